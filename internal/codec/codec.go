// Package codec содержит кодировщик категориальных признаков (штат, район, рынок,
// культура, сорт) в целочисленные коды, которые ожидает модель цены.
package codec

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownCategory возвращается при кодировании значения, которого нет в словаре.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrUnknownCode возвращается при декодировании кода вне словаря.
	ErrUnknownCode = errors.New("unknown code")
)

// Code - целочисленный код категориального значения внутри одного пространства имен.
type Code int

// Namespace - независимое пространство имен словаря.
type Namespace string

const (
	State     Namespace = "state"
	District  Namespace = "district"
	Market    Namespace = "market"
	Commodity Namespace = "commodity"
	Variety   Namespace = "variety"
)

// Namespaces перечисляет все пространства имен в порядке колонок датасета.
var Namespaces = []Namespace{State, District, Market, Commodity, Variety}

// columnNames - имена колонок, под которыми кодировщики сохранялись при обучении.
var columnNames = map[string]Namespace{
	"state":         State,
	"district name": District,
	"market name":   Market,
	"commodity":     Commodity,
	"variety":       Variety,
}

// ParseNamespace распознает имя пространства ("district") или исходное имя колонки ("District Name").
func ParseNamespace(name string) (Namespace, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, ns := range Namespaces {
		if string(ns) == key {
			return ns, nil
		}
	}
	if ns, ok := columnNames[key]; ok {
		return ns, nil
	}
	return "", fmt.Errorf("unknown namespace %q", name)
}

// vocabulary хранит прямое и обратное отображение одного пространства имен.
type vocabulary struct {
	classes []string
	index   map[string]Code
}

func newVocabulary(ns Namespace, classes []string) (*vocabulary, error) {
	v := &vocabulary{
		classes: make([]string, len(classes)),
		index:   make(map[string]Code, len(classes)),
	}
	copy(v.classes, classes)
	for i, class := range classes {
		if _, dup := v.index[class]; dup {
			return nil, fmt.Errorf("duplicate class %q in namespace %s", class, ns)
		}
		v.index[class] = Code(i)
	}
	return v, nil
}

// Codec - неизменяемый набор словарей. Безопасен для конкурентного чтения.
type Codec struct {
	vocab map[Namespace]*vocabulary
}

// New создает Codec из упорядоченных списков классов. Код значения равен его позиции в списке,
// поэтому порядок должен совпадать с тем, на котором обучалась модель.
func New(classes map[Namespace][]string) (*Codec, error) {
	c := &Codec{vocab: make(map[Namespace]*vocabulary, len(Namespaces))}
	for _, ns := range Namespaces {
		list, ok := classes[ns]
		if !ok {
			return nil, fmt.Errorf("missing classes for namespace %s", ns)
		}
		v, err := newVocabulary(ns, list)
		if err != nil {
			return nil, err
		}
		c.vocab[ns] = v
	}
	return c, nil
}

// Fit строит словари по значениям датасета:
// уникальные значения сортируются, код равен индексу.
func Fit(values map[Namespace][]string) (*Codec, error) {
	classes := make(map[Namespace][]string, len(Namespaces))
	for _, ns := range Namespaces {
		seen := make(map[string]struct{})
		var distinct []string
		for _, v := range values[ns] {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			distinct = append(distinct, v)
		}
		sort.Strings(distinct)
		classes[ns] = distinct
	}
	return New(classes)
}

// Load читает артефакт кодировщиков (YAML или JSON): пространство имен -> список классов.
// Ключи могут быть как именами пространств, так и исходными именами колонок.
func Load(path string) (*Codec, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read encoders: %w", err)
	}

	var raw map[string][]string
	if err := yaml.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("parse encoders: %w", err)
	}

	classes := make(map[Namespace][]string, len(raw))
	for key, list := range raw {
		ns, err := ParseNamespace(key)
		if err != nil {
			return nil, fmt.Errorf("parse encoders: %w", err)
		}
		classes[ns] = list
	}
	return New(classes)
}

// Save записывает словари в YAML файл в формате, который читает Load.
func (c *Codec) Save(path string) error {
	out := make(map[string][]string, len(c.vocab))
	for ns, v := range c.vocab {
		out[string(ns)] = v.classes
	}
	payload, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal encoders: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write encoders: %w", err)
	}
	return nil
}

// Encode возвращает код значения в пространстве имен.
func (c *Codec) Encode(ns Namespace, value string) (Code, error) {
	v, ok := c.vocab[ns]
	if !ok {
		return 0, fmt.Errorf("unknown namespace %q", ns)
	}
	code, ok := v.index[value]
	if !ok {
		return 0, fmt.Errorf("%w: %s %q", ErrUnknownCategory, ns, value)
	}
	return code, nil
}

// Decode возвращает исходное значение по коду.
func (c *Codec) Decode(ns Namespace, code Code) (string, error) {
	v, ok := c.vocab[ns]
	if !ok {
		return "", fmt.Errorf("unknown namespace %q", ns)
	}
	if code < 0 || int(code) >= len(v.classes) {
		return "", fmt.Errorf("%w: %s %d", ErrUnknownCode, ns, code)
	}
	return v.classes[code], nil
}

// Classes возвращает копию словаря пространства имен в порядке кодов.
func (c *Codec) Classes(ns Namespace) []string {
	v, ok := c.vocab[ns]
	if !ok {
		return nil
	}
	out := make([]string, len(v.classes))
	copy(out, v.classes)
	return out
}

// Len возвращает размер словаря.
func (c *Codec) Len(ns Namespace) int {
	if v, ok := c.vocab[ns]; ok {
		return len(v.classes)
	}
	return 0
}
