// Package dataset содержит закодированный исторический датасет цен и операции над ним:
// перечисление рынков-кандидатов штата и выбор представительных значений (мода).
package dataset

import (
	"fmt"
	"time"

	"github.com/akozadaev/go_farm_assist/internal/codec"
	"github.com/akozadaev/go_farm_assist/internal/models"
)

// unixEpochOrdinal - порядковый номер дня 1970-01-01, если 0001-01-01 имеет номер 1.
const unixEpochOrdinal = 719163

// DayOrdinal возвращает порядковый номер календарной даты t (пролептический григорианский
// календарь, 0001-01-01 = 1). Часовой пояс t не смещает дату.
func DayOrdinal(t time.Time) int {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return unixEpochOrdinal + int(midnight.Unix()/86400)
}

// Record - закодированная строка датасета.
type Record struct {
	State      codec.Code
	District   codec.Code
	Market     codec.Code
	Commodity  codec.Code
	Variety    codec.Code
	DayOrdinal int
	Price      float64
}

// Candidate - пара (район, рынок), встречающаяся в истории штата.
type Candidate struct {
	District codec.Code
	Market   codec.Code
}

type districtCommodity struct {
	district  codec.Code
	commodity codec.Code
}

// Dataset - неизменяемый набор записей с индексами по штату и по паре (район, культура).
// После создания только читается, поэтому безопасен для конкурентных запросов.
type Dataset struct {
	records    []Record
	candidates map[codec.Code][]Candidate
	byDistrict map[districtCommodity][]int
}

// New строит Dataset и его индексы. Порядок записей сохраняется: от него зависит
// порядок кандидатов и разрешение ничьих при вычислении моды.
func New(records []Record) *Dataset {
	ds := &Dataset{
		records:    make([]Record, len(records)),
		candidates: make(map[codec.Code][]Candidate),
		byDistrict: make(map[districtCommodity][]int),
	}
	copy(ds.records, records)

	seen := make(map[codec.Code]map[Candidate]struct{})
	for i, r := range ds.records {
		key := districtCommodity{district: r.District, commodity: r.Commodity}
		ds.byDistrict[key] = append(ds.byDistrict[key], i)

		stateSeen, ok := seen[r.State]
		if !ok {
			stateSeen = make(map[Candidate]struct{})
			seen[r.State] = stateSeen
		}
		cand := Candidate{District: r.District, Market: r.Market}
		if _, dup := stateSeen[cand]; dup {
			continue
		}
		stateSeen[cand] = struct{}{}
		ds.candidates[r.State] = append(ds.candidates[r.State], cand)
	}
	return ds
}

// Encode кодирует сырые записи словарями c. Значение вне словаря - ошибка загрузки.
func Encode(raw []models.PriceRecord, c *codec.Codec) (*Dataset, error) {
	records := make([]Record, 0, len(raw))
	for i, row := range raw {
		var r Record
		fields := []struct {
			ns    codec.Namespace
			value string
			dst   *codec.Code
		}{
			{codec.State, row.State, &r.State},
			{codec.District, row.District, &r.District},
			{codec.Market, row.Market, &r.Market},
			{codec.Commodity, row.Commodity, &r.Commodity},
			{codec.Variety, row.Variety, &r.Variety},
		}
		for _, f := range fields {
			code, err := c.Encode(f.ns, f.value)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			*f.dst = code
		}
		r.DayOrdinal = DayOrdinal(row.PriceDate)
		r.Price = row.ModalPrice
		records = append(records, r)
	}
	return New(records), nil
}

// Vocabulary собирает значения категориальных колонок для codec.Fit.
func Vocabulary(raw []models.PriceRecord) map[codec.Namespace][]string {
	values := make(map[codec.Namespace][]string, len(codec.Namespaces))
	for _, row := range raw {
		values[codec.State] = append(values[codec.State], row.State)
		values[codec.District] = append(values[codec.District], row.District)
		values[codec.Market] = append(values[codec.Market], row.Market)
		values[codec.Commodity] = append(values[codec.Commodity], row.Commodity)
		values[codec.Variety] = append(values[codec.Variety], row.Variety)
	}
	return values
}

// Len возвращает число записей.
func (ds *Dataset) Len() int {
	return len(ds.records)
}

// Records возвращает копию всех записей в исходном порядке.
func (ds *Dataset) Records() []Record {
	out := make([]Record, len(ds.records))
	copy(out, ds.records)
	return out
}

// Candidates возвращает уникальные пары (район, рынок) штата в порядке первого появления.
// Пары, которые никогда не торговали нужной культурой, тоже входят в результат.
func (ds *Dataset) Candidates(state codec.Code) []Candidate {
	src := ds.candidates[state]
	out := make([]Candidate, len(src))
	copy(out, src)
	return out
}

// Filter возвращает записи района по культуре в исходном порядке.
func (ds *Dataset) Filter(district, commodity codec.Code) []Record {
	idx := ds.byDistrict[districtCommodity{district: district, commodity: commodity}]
	out := make([]Record, len(idx))
	for i, j := range idx {
		out[i] = ds.records[j]
	}
	return out
}

// HasHistory сообщает, есть ли у района записи по культуре.
func (ds *Dataset) HasHistory(district, commodity codec.Code) bool {
	return len(ds.byDistrict[districtCommodity{district: district, commodity: commodity}]) > 0
}

// ModeVariety возвращает самый частый сорт среди записей.
func ModeVariety(records []Record) (codec.Code, bool) {
	return mode(records, func(r Record) codec.Code { return r.Variety })
}

// ModeMarket возвращает самый частый рынок среди записей.
func ModeMarket(records []Record) (codec.Code, bool) {
	return mode(records, func(r Record) codec.Code { return r.Market })
}

// mode выбирает самое частое значение; при равенстве частот побеждает значение,
// встретившееся раньше.
func mode(records []Record, field func(Record) codec.Code) (codec.Code, bool) {
	if len(records) == 0 {
		return 0, false
	}
	counts := make(map[codec.Code]int)
	var order []codec.Code
	for _, r := range records {
		v := field(r)
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	best := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best, true
}
