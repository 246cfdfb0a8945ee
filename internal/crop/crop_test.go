package crop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akozadaev/go_farm_assist/internal/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type classifierFunc func(ctx context.Context, features map[string]float64) (Prediction, error)

func (f classifierFunc) Classify(ctx context.Context, features map[string]float64) (Prediction, error) {
	return f(ctx, features)
}

func fixedNow(m time.Month) func() time.Time {
	return func() time.Time { return time.Date(2025, m, 10, 12, 0, 0, 0, time.UTC) }
}

func TestSeason(t *testing.T) {
	tests := map[time.Month]string{
		time.January:   SeasonRabi,
		time.February:  SeasonRabi,
		time.March:     SeasonSummer,
		time.May:       SeasonSummer,
		time.June:      SeasonKharif,
		time.October:   SeasonKharif,
		time.November:  SeasonRabi,
		time.December:  SeasonRabi,
		time.April:     SeasonSummer,
		time.September: SeasonKharif,
	}
	for m, want := range tests {
		assert.Equal(t, want, Season(m), m.String())
	}
}

func TestFeatures(t *testing.T) {
	f := Features(Input{N: 90, P: 42, K: 43, PH: 6.5}, weather.Conditions{TempC: 20, Humidity: 80, PrecipMM: 200}, SeasonRabi)
	assert.Equal(t, map[string]float64{
		"N": 90, "P": 42, "K": 43, "temperature": 20, "humidity": 80, "ph": 6.5, "rainfall": 200,
		"season_kharif": 0, "season_rabi": 1, "season_summer": 0,
	}, f)
}

func TestRecommend(t *testing.T) {
	var seen map[string]float64
	classifier := classifierFunc(func(_ context.Context, features map[string]float64) (Prediction, error) {
		seen = features
		return Prediction{
			Label:         "rice",
			Classes:       []string{"apple", "banana", "cotton", "jute", "maize", "rice"},
			Probabilities: []float64{0.01, 0.04, 0.1, 0.1, 0.05, 0.7},
		}, nil
	})

	advisor := NewAdvisor(classifier, weather.Static(weather.Fallback), fixedNow(time.July), nil)
	got, err := advisor.Recommend(context.Background(), Input{N: 90, P: 42, K: 43, PH: 6.5, District: "Pune"})
	require.NoError(t, err)

	assert.Equal(t, "rice", got.Crop)
	assert.Equal(t, SeasonKharif, got.Season)
	assert.Equal(t, 1.0, seen["season_kharif"])
	assert.Equal(t, 100.0, seen["rainfall"])

	require.Len(t, got.Top, TopN)
	assert.Equal(t, "rice", got.Top[0].Crop)
	// равные вероятности сохраняют порядок классов
	assert.Equal(t, "cotton", got.Top[1].Crop)
	assert.Equal(t, "jute", got.Top[2].Crop)
	assert.Equal(t, "maize", got.Top[3].Crop)
	assert.Equal(t, "banana", got.Top[4].Crop)
	assert.InDelta(t, 70.0, got.Top[0].Confidence, 1e-9)
}

func TestRecommendClassifierError(t *testing.T) {
	classifier := classifierFunc(func(context.Context, map[string]float64) (Prediction, error) {
		return Prediction{}, errors.New("model not loaded")
	})
	advisor := NewAdvisor(classifier, weather.Static(weather.Fallback), fixedNow(time.March), nil)

	_, err := advisor.Recommend(context.Background(), Input{District: "Pune"})
	assert.ErrorIs(t, err, ErrClassification)
}

func TestFormat(t *testing.T) {
	r := &Result{
		Crop:    "rice",
		Weather: weather.Conditions{TempC: 25, Humidity: 60, PrecipMM: 100},
		Season:  SeasonKharif,
		Top: []Ranked{
			{Crop: "rice", Confidence: 70},
			{Crop: "jute", Confidence: 12.3456},
		},
	}

	want := `Recommended Crop: rice

Weather Details:
Temperature: 25 °C
Humidity: 60 %
Rainfall: 100 mm
Season: Kharif

Top 5 Probable Crops:
1. rice - 70.0%
2. jute - 12.35%`
	assert.Equal(t, want, r.Format())
}
