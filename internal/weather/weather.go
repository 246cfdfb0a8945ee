// Package weather предоставляет текущую погоду по названию местности с запасными
// значениями на случай недоступности внешнего API.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Conditions - текущая погода.
type Conditions struct {
	TempC    float64 `json:"temp_c"`
	Humidity float64 `json:"humidity"`
	PrecipMM float64 `json:"precip_mm"`
	Fallback bool    `json:"fallback"`
}

// Fallback - значения, которые используются при любой ошибке получения погоды.
var Fallback = Conditions{TempC: 25, Humidity: 60, PrecipMM: 100, Fallback: true}

// Provider возвращает текущую погоду. Реализации не возвращают ошибку:
// при сбое отдается Fallback.
type Provider interface {
	Current(ctx context.Context, location string) Conditions
}

// WeatherAPI - клиент weatherapi.com (current.json).
type WeatherAPI struct {
	baseURL    string
	key        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWeatherAPI создает клиент. Пустой ключ означает, что всегда используется Fallback.
func NewWeatherAPI(baseURL, key string, timeout time.Duration, logger *slog.Logger) *WeatherAPI {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &WeatherAPI{
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        key,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Current запрашивает погоду и при ошибке возвращает Fallback.
func (w *WeatherAPI) Current(ctx context.Context, location string) Conditions {
	if w.key == "" {
		return Fallback
	}
	c, err := w.fetch(ctx, location)
	if err != nil {
		w.logger.Warn("weather_lookup_failed",
			"location", location,
			"error", err.Error(),
		)
		return Fallback
	}
	return c
}

func (w *WeatherAPI) fetch(ctx context.Context, location string) (Conditions, error) {
	q := url.Values{}
	q.Set("key", w.key)
	q.Set("q", location)
	endpoint := fmt.Sprintf("%s/v1/current.json?%s", w.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Conditions{}, fmt.Errorf("failed to create request: %w", err)
	}

	res, err := w.httpClient.Do(req)
	if err != nil {
		return Conditions{}, fmt.Errorf("failed to get weather: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return Conditions{}, fmt.Errorf("error getting weather: status %d, body: %s", res.StatusCode, string(body))
	}

	var result struct {
		Current *struct {
			TempC    float64  `json:"temp_c"`
			Humidity float64  `json:"humidity"`
			PrecipMM *float64 `json:"precip_mm"`
		} `json:"current"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return Conditions{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Current == nil {
		return Conditions{}, fmt.Errorf("response has no current conditions")
	}

	c := Conditions{TempC: result.Current.TempC, Humidity: result.Current.Humidity}
	if result.Current.PrecipMM != nil {
		c.PrecipMM = *result.Current.PrecipMM
	}
	return c, nil
}

// Static всегда возвращает заданные условия.
type Static Conditions

func (s Static) Current(context.Context, string) Conditions {
	return Conditions(s)
}
