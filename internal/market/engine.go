// Package market реализует сравнение рынков штата по предсказанной цене:
// локальная цена пользователя, топ-3 рынков и лучший вариант продажи.
package market

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/akozadaev/go_farm_assist/internal/codec"
	"github.com/akozadaev/go_farm_assist/internal/dataset"
	"github.com/akozadaev/go_farm_assist/internal/oracle"
)

var (
	// ErrNoDataFound - у района пользователя нет истории по культуре.
	ErrNoDataFound = errors.New("no data found for this combination")
	// ErrNoCandidatesFound - в штате нет ни одного рынка с историей по культуре.
	ErrNoCandidatesFound = errors.New("no markets with price history found in this state")
	// ErrPrediction - модель цены не смогла ответить.
	ErrPrediction = errors.New("price prediction failed")
)

// TopN - сколько рынков попадает в рекомендацию.
const TopN = 3

// Query - закодированный запрос на сравнение рынков.
type Query struct {
	State     codec.Code
	District  codec.Code
	Commodity codec.Code
	Date      time.Time
	Weight    float64
	Cost      float64
}

// RankedMarket - рынок-кандидат с предсказанной ценой и производными величинами.
type RankedMarket struct {
	District     string
	Market       string
	DistrictCode codec.Code
	MarketCode   codec.Code
	Price        float64
	Total        float64
	Markup       float64
}

// Recommendation - результат сравнения рынков.
type Recommendation struct {
	LocalMarket string
	LocalPrice  float64
	Weight      float64
	Income      float64
	Profit      float64
	Top         []RankedMarket
	Best        RankedMarket
	Evaluated   int
}

// EngineConfig - параметры Engine.
type EngineConfig struct {
	// OracleTimeout ограничивает вызов модели цены; 0 - без ограничения.
	OracleTimeout time.Duration
	Logger        *slog.Logger
}

// Engine ранжирует рынки штата. Датасет, словари и оракул только читаются.
type Engine struct {
	ds      *dataset.Dataset
	codec   *codec.Codec
	oracle  oracle.PriceOracle
	timeout time.Duration
	logger  *slog.Logger
}

// NewEngine создает Engine с внедренными справочными данными.
func NewEngine(ds *dataset.Dataset, c *codec.Codec, o oracle.PriceOracle, cfg EngineConfig) (*Engine, error) {
	if ds == nil || c == nil || o == nil {
		return nil, errors.New("dataset, codec and oracle must not be nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Engine{
		ds:      ds,
		codec:   c,
		oracle:  o,
		timeout: cfg.OracleTimeout,
		logger:  logger,
	}, nil
}

// Recommend предсказывает локальную цену района пользователя и цены на всех рынках штата
// с историей по культуре, затем выбирает топ-3 по убыванию цены.
// Все строки отправляются оракулу одним пакетом: первая - локальная, затем кандидаты.
func (e *Engine) Recommend(ctx context.Context, q Query) (*Recommendation, error) {
	rows := e.ds.Filter(q.District, q.Commodity)
	if len(rows) == 0 {
		return nil, ErrNoDataFound
	}
	variety, _ := dataset.ModeVariety(rows)
	localMarket, _ := dataset.ModeMarket(rows)

	batch := []oracle.FeatureRow{
		BuildFeatureRow(q.State, q.District, localMarket, q.Commodity, variety, q.Date),
	}

	// сорт кандидата зависит только от района, поэтому кэшируется на время запроса
	varieties := make(map[codec.Code]codec.Code)
	var qualified []dataset.Candidate
	for _, cand := range e.ds.Candidates(q.State) {
		v, ok := varieties[cand.District]
		if !ok {
			if !e.ds.HasHistory(cand.District, q.Commodity) {
				continue
			}
			v, _ = dataset.ModeVariety(e.ds.Filter(cand.District, q.Commodity))
			varieties[cand.District] = v
		}
		batch = append(batch, BuildFeatureRow(q.State, cand.District, cand.Market, q.Commodity, v, q.Date))
		qualified = append(qualified, cand)
	}
	if len(qualified) == 0 {
		return nil, ErrNoCandidatesFound
	}

	prices, err := e.predict(ctx, batch)
	if err != nil {
		return nil, err
	}

	local := prices[0]
	results := make([]RankedMarket, 0, len(qualified))
	for i, cand := range qualified {
		districtName, err := e.codec.Decode(codec.District, cand.District)
		if err != nil {
			return nil, fmt.Errorf("decode candidate district: %w", err)
		}
		marketName, err := e.codec.Decode(codec.Market, cand.Market)
		if err != nil {
			return nil, fmt.Errorf("decode candidate market: %w", err)
		}
		price := prices[i+1]
		results = append(results, RankedMarket{
			District:     districtName,
			Market:       marketName,
			DistrictCode: cand.District,
			MarketCode:   cand.Market,
			Price:        price,
			Total:        price * q.Weight,
			Markup:       price - local,
		})
	}

	top := Rank(results, TopN)

	localMarketName, err := e.codec.Decode(codec.Market, localMarket)
	if err != nil {
		return nil, fmt.Errorf("decode local market: %w", err)
	}

	e.logger.Debug("market_recommendation_done",
		"oracle", e.oracle.Name(),
		"candidates", len(qualified),
		"local_price", local,
		"best_market", top[0].Market,
	)

	return &Recommendation{
		LocalMarket: localMarketName,
		LocalPrice:  local,
		Weight:      q.Weight,
		Income:      local * q.Weight,
		Profit:      (local - q.Cost) * q.Weight,
		Top:         top,
		Best:        top[0],
		Evaluated:   len(qualified),
	}, nil
}

func (e *Engine) predict(ctx context.Context, batch []oracle.FeatureRow) ([]float64, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	prices, err := e.oracle.PredictBatch(ctx, batch)
	if err != nil {
		e.logger.Error("oracle_predict_failed",
			"oracle", e.oracle.Name(),
			"batch_size", len(batch),
			"error", err.Error(),
		)
		return nil, fmt.Errorf("%w: %v", ErrPrediction, err)
	}
	if len(prices) != len(batch) {
		return nil, fmt.Errorf("%w: oracle returned %d prices for %d rows", ErrPrediction, len(prices), len(batch))
	}
	e.logger.Debug("oracle_predict_done",
		"oracle", e.oracle.Name(),
		"batch_size", len(batch),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return prices, nil
}

// Rank сортирует результаты по убыванию цены (при равенстве сохраняется порядок
// перечисления) и возвращает не более n первых.
func Rank(results []RankedMarket, n int) []RankedMarket {
	ranked := make([]RankedMarket, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Price > ranked[j].Price
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
