package oracle

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/akozadaev/go_farm_assist/internal/codec"
	"github.com/akozadaev/go_farm_assist/internal/dataset"
)

// ErrNoHistory возвращается исторической моделью, если для строки нет ни одного наблюдения.
var ErrNoHistory = errors.New("no historical observations for feature row")

// DefaultWindow - число ближайших по дате наблюдений, по которым берется медиана.
const DefaultWindow = 30

type observation struct {
	day   int
	price float64
}

type marketKey struct {
	market, commodity, variety codec.Code
}

type districtKey struct {
	district, commodity codec.Code
}

// Historical - офлайн оракул для работы без сервера моделей: медиана наблюдаемых цен,
// ближайших по дате, сначала по (рынок, культура, сорт), затем по (район, культура),
// затем по культуре.
type Historical struct {
	window      int
	byMarket    map[marketKey][]observation
	byDistrict  map[districtKey][]observation
	byCommodity map[codec.Code][]observation
}

// NewHistorical строит индексы по датасету. window <= 0 означает DefaultWindow.
func NewHistorical(ds *dataset.Dataset, window int) *Historical {
	if window <= 0 {
		window = DefaultWindow
	}
	h := &Historical{
		window:      window,
		byMarket:    make(map[marketKey][]observation),
		byDistrict:  make(map[districtKey][]observation),
		byCommodity: make(map[codec.Code][]observation),
	}
	for _, r := range ds.Records() {
		obs := observation{day: r.DayOrdinal, price: r.Price}
		mk := marketKey{market: r.Market, commodity: r.Commodity, variety: r.Variety}
		dk := districtKey{district: r.District, commodity: r.Commodity}
		h.byMarket[mk] = append(h.byMarket[mk], obs)
		h.byDistrict[dk] = append(h.byDistrict[dk], obs)
		h.byCommodity[r.Commodity] = append(h.byCommodity[r.Commodity], obs)
	}
	return h
}

func (h *Historical) Name() string {
	return "historical"
}

func (h *Historical) PredictBatch(ctx context.Context, rows []FeatureRow) ([]float64, error) {
	prices := make([]float64, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		obs := h.byMarket[marketKey{market: row.Market, commodity: row.Commodity, variety: row.Variety}]
		if len(obs) == 0 {
			obs = h.byDistrict[districtKey{district: row.District, commodity: row.Commodity}]
		}
		if len(obs) == 0 {
			obs = h.byCommodity[row.Commodity]
		}
		if len(obs) == 0 {
			return nil, fmt.Errorf("%w: row %d", ErrNoHistory, i)
		}
		prices[i] = nearestMedian(obs, row.DayOrdinal, h.window)
	}
	return prices, nil
}

func nearestMedian(obs []observation, day, window int) float64 {
	sorted := make([]observation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return absInt(sorted[i].day-day) < absInt(sorted[j].day-day)
	})
	if len(sorted) > window {
		sorted = sorted[:window]
	}

	prices := make([]float64, len(sorted))
	for i, o := range sorted {
		prices[i] = o.price
	}
	sort.Float64s(prices)

	n := len(prices)
	if n%2 == 1 {
		return prices[n/2]
	}
	return (prices[n/2-1] + prices[n/2]) / 2
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
