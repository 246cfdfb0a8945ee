// Package crop подбирает культуру по составу почвы и текущей погоде с помощью внешнего классификатора.
package crop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/akozadaev/go_farm_assist/internal/modelserver"
	"github.com/akozadaev/go_farm_assist/internal/weather"
	"github.com/shopspring/decimal"
)

// ErrClassification - классификатор культур не смог ответить.
var ErrClassification = errors.New("crop classification failed")

// TopN - сколько наиболее вероятных культур попадает в ответ.
const TopN = 5

const (
	SeasonKharif = "kharif"
	SeasonRabi   = "rabi"
	SeasonSummer = "summer"
)

// Season возвращает сельскохозяйственный сезон месяца.
func Season(m time.Month) string {
	switch m {
	case time.June, time.July, time.August, time.September, time.October:
		return SeasonKharif
	case time.November, time.December, time.January, time.February:
		return SeasonRabi
	default:
		return SeasonSummer
	}
}

// Prediction - ответ классификатора: метка и вероятности по всем классам.
type Prediction struct {
	Label         string
	Classes       []string
	Probabilities []float64
}

// Classifier - внешняя модель рекомендации культуры.
type Classifier interface {
	Classify(ctx context.Context, features map[string]float64) (Prediction, error)
}

// RemoteClassifier вызывает классификатор на сервере моделей.
type RemoteClassifier struct {
	client *modelserver.Client
	model  string
}

// NewRemoteClassifier создает классификатор поверх клиента сервера моделей.
func NewRemoteClassifier(client *modelserver.Client, model string) *RemoteClassifier {
	return &RemoteClassifier{client: client, model: model}
}

func (r *RemoteClassifier) Classify(ctx context.Context, features map[string]float64) (Prediction, error) {
	out, err := r.client.Classify(ctx, r.model, []map[string]float64{features})
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{Label: out[0].Label, Classes: out[0].Classes, Probabilities: out[0].Probabilities}, nil
}

// Input - состав почвы и местность пользователя.
type Input struct {
	N        float64
	P        float64
	K        float64
	PH       float64
	District string
}

// Ranked - культура и уверенность модели в процентах.
type Ranked struct {
	Crop       string  `json:"crop"`
	Confidence float64 `json:"confidence"`
}

// Result - рекомендация культуры.
type Result struct {
	Crop    string             `json:"crop"`
	Weather weather.Conditions `json:"weather"`
	Season  string             `json:"season"`
	Top     []Ranked           `json:"top"`
}

// Advisor собирает признаки (почва, погода, сезон) и вызывает классификатор.
type Advisor struct {
	classifier Classifier
	weather    weather.Provider
	now        func() time.Time
	logger     *slog.Logger
}

// NewAdvisor создает Advisor. now == nil означает time.Now.
func NewAdvisor(classifier Classifier, provider weather.Provider, now func() time.Time, logger *slog.Logger) *Advisor {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Advisor{classifier: classifier, weather: provider, now: now, logger: logger}
}

// Features строит вектор признаков классификатора с one-hot кодированием сезона.
func Features(in Input, w weather.Conditions, season string) map[string]float64 {
	f := map[string]float64{
		"N":             in.N,
		"P":             in.P,
		"K":             in.K,
		"temperature":   w.TempC,
		"humidity":      w.Humidity,
		"ph":            in.PH,
		"rainfall":      w.PrecipMM,
		"season_kharif": 0,
		"season_rabi":   0,
		"season_summer": 0,
	}
	f["season_"+season] = 1
	return f
}

// Recommend возвращает рекомендованную культуру и топ-5 вероятных культур.
func (a *Advisor) Recommend(ctx context.Context, in Input) (*Result, error) {
	w := a.weather.Current(ctx, in.District)
	season := Season(a.now().Month())

	pred, err := a.classifier.Classify(ctx, Features(in, w, season))
	if err != nil {
		a.logger.Error("crop_classification_failed", "district", in.District, "error", err.Error())
		return nil, fmt.Errorf("%w: %v", ErrClassification, err)
	}
	if len(pred.Classes) != len(pred.Probabilities) {
		return nil, fmt.Errorf("%w: %d classes and %d probabilities", ErrClassification, len(pred.Classes), len(pred.Probabilities))
	}

	ranked := make([]Ranked, len(pred.Classes))
	for i, class := range pred.Classes {
		ranked[i] = Ranked{Crop: class, Confidence: pred.Probabilities[i] * 100}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})
	if len(ranked) > TopN {
		ranked = ranked[:TopN]
	}

	return &Result{Crop: pred.Label, Weather: w, Season: season, Top: ranked}, nil
}

// Format строит текст ответа для мобильного клиента.
func (r *Result) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recommended Crop: %s\n\n", r.Crop)
	fmt.Fprintf(&b, "Weather Details:\n")
	fmt.Fprintf(&b, "Temperature: %s °C\n", number(r.Weather.TempC))
	fmt.Fprintf(&b, "Humidity: %s %%\n", number(r.Weather.Humidity))
	fmt.Fprintf(&b, "Rainfall: %s mm\n", number(r.Weather.PrecipMM))
	fmt.Fprintf(&b, "Season: %s\n\n", titleCase(r.Season))
	fmt.Fprintf(&b, "Top 5 Probable Crops:\n")
	for i, c := range r.Top {
		fmt.Fprintf(&b, "%d. %s - %s%%\n", i+1, c.Crop, percent(c.Confidence))
	}
	return strings.TrimSpace(b.String())
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func percent(v float64) string {
	s := decimal.NewFromFloat(v).Round(2).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
