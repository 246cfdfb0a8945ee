package market

import (
	"time"

	"github.com/akozadaev/go_farm_assist/internal/codec"
	"github.com/akozadaev/go_farm_assist/internal/dataset"
	"github.com/akozadaev/go_farm_assist/internal/oracle"
)

// BuildFeatureRow собирает строку признаков модели цены. Значения не проверяются.
func BuildFeatureRow(state, district, market, commodity, variety codec.Code, date time.Time) oracle.FeatureRow {
	return oracle.FeatureRow{
		State:      state,
		District:   district,
		Market:     market,
		Commodity:  commodity,
		Variety:    variety,
		DayOrdinal: dataset.DayOrdinal(date),
	}
}
