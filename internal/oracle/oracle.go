// Package oracle описывает внешнюю модель цены как черный ящик и ее реализации.
package oracle

import (
	"context"
	"fmt"

	"github.com/akozadaev/go_farm_assist/internal/codec"
	"github.com/akozadaev/go_farm_assist/internal/modelserver"
)

// FeatureRow - строка признаков модели цены. Порядок полей фиксирован и совпадает с
// порядком колонок при обучении: штат, район, рынок, культура, сорт, номер дня.
type FeatureRow struct {
	State      codec.Code
	District   codec.Code
	Market     codec.Code
	Commodity  codec.Code
	Variety    codec.Code
	DayOrdinal int
}

// Values возвращает признаки в порядке модели.
func (r FeatureRow) Values() []float64 {
	return []float64{
		float64(r.State),
		float64(r.District),
		float64(r.Market),
		float64(r.Commodity),
		float64(r.Variety),
		float64(r.DayOrdinal),
	}
}

// PriceOracle предсказывает модальную цену для пакета строк, по одной цене на строку,
// в том же порядке.
type PriceOracle interface {
	Name() string
	PredictBatch(ctx context.Context, rows []FeatureRow) ([]float64, error)
}

// Remote вызывает регрессор на сервере моделей одним пакетным запросом.
type Remote struct {
	client *modelserver.Client
	model  string
}

// NewRemote создает оракул поверх клиента сервера моделей.
func NewRemote(client *modelserver.Client, model string) *Remote {
	return &Remote{client: client, model: model}
}

func (r *Remote) Name() string {
	return "remote:" + r.model
}

func (r *Remote) PredictBatch(ctx context.Context, rows []FeatureRow) ([]float64, error) {
	instances := make([][]float64, len(rows))
	for i, row := range rows {
		instances[i] = row.Values()
	}
	prices, err := r.client.Predict(ctx, r.model, instances)
	if err != nil {
		return nil, fmt.Errorf("remote oracle: %w", err)
	}
	return prices, nil
}

// Func позволяет использовать функцию как оракул.
type Func func(ctx context.Context, rows []FeatureRow) ([]float64, error)

func (f Func) Name() string {
	return "func"
}

func (f Func) PredictBatch(ctx context.Context, rows []FeatureRow) ([]float64, error) {
	return f(ctx, rows)
}
