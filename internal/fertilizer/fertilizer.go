// Package fertilizer сравнивает уровни NPK почвы с нормой культуры и подсказывает удобрения.
package fertilizer

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownCrop - культуры нет в справочнике норм.
var ErrUnknownCrop = errors.New("crop not found in fertilizer database")

// NPK - уровни азота, фосфора и калия.
type NPK struct {
	N float64 `json:"N"`
	P float64 `json:"P"`
	K float64 `json:"K"`
}

// ideal - нормы NPK по культурам.
var ideal = map[string]NPK{
	// зерновые
	"rice":    {90, 40, 40},
	"wheat":   {120, 60, 40},
	"maize":   {120, 60, 40},
	"sorghum": {100, 50, 40},
	"barley":  {80, 40, 40},

	// бобовые
	"chickpea":   {20, 40, 20},
	"pigeonpea":  {20, 50, 20},
	"green gram": {20, 40, 20},
	"black gram": {20, 40, 20},
	"lentil":     {20, 40, 20},

	// масличные
	"groundnut": {25, 50, 75},
	"mustard":   {80, 40, 40},
	"sunflower": {60, 60, 40},
	"soybean":   {30, 60, 40},
	"sesame":    {40, 20, 20},

	// технические
	"cotton":    {150, 75, 75},
	"sugarcane": {250, 115, 115},
	"jute":      {60, 30, 30},
	"tobacco":   {90, 60, 60},

	// овощи
	"tomato":      {100, 60, 50},
	"potato":      {150, 60, 120},
	"onion":       {100, 50, 50},
	"brinjal":     {100, 60, 50},
	"cabbage":     {120, 60, 60},
	"cauliflower": {120, 60, 60},
	"chilli":      {100, 50, 50},
	"okra":        {80, 40, 40},
	"carrot":      {60, 40, 40},

	// фрукты
	"banana": {200, 60, 200},
	"mango":  {100, 50, 100},
	"grapes": {120, 60, 120},
	"orange": {120, 60, 120},
	"apple":  {70, 35, 70},
}

const (
	nitrogenLow    = "Ammonium Sulphate"
	nitrogenHigh   = "Urea"
	phosphorusLow  = "DAP (Diammonium Phosphate)"
	phosphorusHigh = "Single Super Phosphate"
	potassiumLow   = "Sulphate of Potash"
	potassiumHigh  = "Muriate of Potash"
)

// Advice - результат сравнения с нормой.
type Advice struct {
	Crop     string   `json:"crop"`
	Actual   NPK      `json:"actual"`
	Ideal    NPK      `json:"ideal"`
	Messages []string `json:"messages"`
}

// Crops возвращает отсортированный список культур справочника.
func Crops() []string {
	out := make([]string, 0, len(ideal))
	for name := range ideal {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Advise сравнивает уровни почвы с нормой культуры. Имя культуры не чувствительно к регистру.
func Advise(crop string, actual NPK) (*Advice, error) {
	name := strings.ToLower(strings.TrimSpace(crop))
	norm, ok := ideal[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCrop, crop)
	}

	if actual == norm {
		return &Advice{
			Crop:     name,
			Actual:   actual,
			Ideal:    norm,
			Messages: []string{"Your soil NPK levels are perfect for this crop!"},
		}, nil
	}

	msgs := []string{
		compare(actual.N, norm.N,
			fmt.Sprintf("Nitrogen is LOW. Use %s to improve growth.", nitrogenLow),
			fmt.Sprintf("Nitrogen is HIGH. Reduce use of %s.", nitrogenHigh),
			"Nitrogen level is optimal."),
		compare(actual.P, norm.P,
			fmt.Sprintf("Phosphorus is LOW. Apply %s for better roots.", phosphorusLow),
			fmt.Sprintf("Phosphorus is HIGH. Reduce use of %s.", phosphorusHigh),
			"Phosphorus level is optimal."),
		compare(actual.K, norm.K,
			fmt.Sprintf("Potassium is LOW. Use %s for strong stems.", potassiumLow),
			fmt.Sprintf("Potassium is HIGH. Avoid excess %s.", potassiumHigh),
			"Potassium level is optimal."),
	}
	return &Advice{Crop: name, Actual: actual, Ideal: norm, Messages: msgs}, nil
}

func compare(actual, norm float64, low, high, optimal string) string {
	switch {
	case actual < norm:
		return low
	case actual > norm:
		return high
	default:
		return optimal
	}
}

// Format строит текст ответа для мобильного клиента.
func (a *Advice) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Crop: %s\n\n", titleCase(a.Crop))
	fmt.Fprintf(&b, "Your NPK Levels:\n")
	fmt.Fprintf(&b, "N = %s, P = %s, K = %s\n\n", decimalString(a.Actual.N), decimalString(a.Actual.P), decimalString(a.Actual.K))
	fmt.Fprintf(&b, "Ideal NPK Levels:\n")
	fmt.Fprintf(&b, "N = %s, P = %s, K = %s\n\n", integerString(a.Ideal.N), integerString(a.Ideal.P), integerString(a.Ideal.K))
	fmt.Fprintf(&b, "Recommendations:\n")
	for i, m := range a.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s", m)
	}
	return strings.TrimSpace(b.String())
}

// decimalString печатает введенный уровень как число с дробной частью ("80.0").
func decimalString(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// integerString печатает норму без дробной части, нормы в справочнике целые.
func integerString(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// titleCase переводит первую букву каждого слова в верхний регистр ("green gram" -> "Green Gram").
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
