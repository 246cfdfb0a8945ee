package market

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundPrice округляет денежную величину до двух знаков по точному двоичному значению
// float64: 2.675 хранится как 2.67499... и дает 2.67, точная середина (0.125) идет к четному.
func RoundPrice(v float64) float64 {
	f, _ := round2(v).Float64()
	return f
}

// Amount форматирует денежную величину с двумя знаками без хвостовых нулей,
// целые значения печатаются как "1800.0".
func Amount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return withFraction(round2(v).String())
}

func round2(v float64) decimal.Decimal {
	d, err := decimal.NewFromString(strconv.FormatFloat(v, 'f', 2, 64))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Quantity форматирует количество (вес в центнерах) в том же стиле.
func Quantity(v float64) string {
	return withFraction(strconv.FormatFloat(v, 'f', -1, 64))
}

func withFraction(s string) string {
	if strings.ContainsAny(s, ".eE") {
		return s
	}
	return s + ".0"
}

// Format строит текст ответа для мобильного клиента. Имена штата, района и культуры
// передаются в том виде, в каком их прислал пользователь.
func (r *Recommendation) Format(state, district, commodity string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Your Local Market:\n")
	fmt.Fprintf(&b, "Predicted Modal Price for %s in %s: ₹%s per quintal\n", commodity, district, Amount(r.LocalPrice))
	fmt.Fprintf(&b, "Total Estimated Value for %s quintals: ₹%s\n", Quantity(r.Weight), Amount(r.Income))
	fmt.Fprintf(&b, "\nTop 3 Market Recommendations in %s\n", state)
	for i, m := range r.Top {
		fmt.Fprintf(&b, "%d. %s, %s: ₹%s per quintal → ₹%s total (↑ ₹%s/qtl)\n",
			i+1, m.Market, m.District, Amount(m.Price), Amount(m.Total), Amount(m.Markup))
	}
	if len(r.Top) > 0 {
		fmt.Fprintf(&b, "\nBest Option: %s, %s\n", r.Best.Market, r.Best.District)
		fmt.Fprintf(&b, "Max Estimated Income: ₹%s for %s quintals\n", Amount(r.Best.Price*r.Weight), Quantity(r.Weight))
	}

	return strings.TrimSpace(b.String())
}
