// Package modelserver содержит HTTP клиент к серверу обученных моделей
// (регрессор цены и классификатор культур).
package modelserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrBadStatus возвращается, если сервер моделей ответил статусом >= 400.
var ErrBadStatus = errors.New("model server returned error status")

// Client выполняет запросы предсказаний к серверу моделей.
// Протокол: POST {baseURL}/v1/models/{model}:predict|:classify с телом {"instances": [...]}.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создает клиент с заданным базовым URL и таймаутом на запрос.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Classification - результат классификатора для одного объекта.
type Classification struct {
	Label         string    `json:"label"`
	Classes       []string  `json:"classes"`
	Probabilities []float64 `json:"probabilities"`
}

// Predict отправляет строки признаков регрессору и возвращает по одному значению на строку.
func (c *Client) Predict(ctx context.Context, model string, instances [][]float64) ([]float64, error) {
	var result struct {
		Predictions []float64 `json:"predictions"`
	}
	if err := c.do(ctx, model, "predict", instances, &result); err != nil {
		return nil, err
	}
	if len(result.Predictions) != len(instances) {
		return nil, fmt.Errorf("model %s returned %d predictions for %d instances", model, len(result.Predictions), len(instances))
	}
	return result.Predictions, nil
}

// Classify отправляет именованные признаки классификатору.
func (c *Client) Classify(ctx context.Context, model string, instances []map[string]float64) ([]Classification, error) {
	var result struct {
		Predictions []Classification `json:"predictions"`
	}
	if err := c.do(ctx, model, "classify", instances, &result); err != nil {
		return nil, err
	}
	if len(result.Predictions) != len(instances) {
		return nil, fmt.Errorf("model %s returned %d predictions for %d instances", model, len(result.Predictions), len(instances))
	}
	for i, p := range result.Predictions {
		if len(p.Classes) != len(p.Probabilities) {
			return nil, fmt.Errorf("model %s: prediction %d has %d classes and %d probabilities", model, i, len(p.Classes), len(p.Probabilities))
		}
	}
	return result.Predictions, nil
}

func (c *Client) do(ctx context.Context, model, verb string, instances any, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(map[string]any{"instances": instances}); err != nil {
		return fmt.Errorf("failed to encode instances: %w", err)
	}

	url := fmt.Sprintf("%s/v1/models/%s:%s", c.baseURL, model, verb)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call model %s: %w", model, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("%w: model %s status %d, body: %s", ErrBadStatus, model, res.StatusCode, string(body))
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
