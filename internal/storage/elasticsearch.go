package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/akozadaev/go_farm_assist/internal/models"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// PriceRecordMapping описывает маппинг индекса исторических цен.
const PriceRecordMapping = `{
  "mappings": {
    "properties": {
      "seq":         {"type": "long"},
      "state":       {"type": "keyword"},
      "district":    {"type": "keyword"},
      "market":      {"type": "keyword"},
      "commodity":   {"type": "keyword"},
      "variety":     {"type": "keyword"},
      "price_date":  {"type": "date"},
      "modal_price": {"type": "double"}
    }
  }
}`

// pageSize задает размер страницы при выгрузке индекса.
const pageSize = 1000

// BulkError сообщает, что Bulk API отклонил часть документов.
// Rejected содержит позиции (seq) отклоненных записей, если ответ их перечислил.
type BulkError struct {
	Rejected []int
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("error bulk indexing: %d documents were rejected", len(e.Rejected))
}

// priceDocument хранит запись вместе с её позицией в исходном датасете.
type priceDocument struct {
	Seq int `json:"seq"`
	models.PriceRecord
}

// ElasticsearchStorage предоставляет методы для работы с Elasticsearch/OpenSearch.
// Использует прямые HTTP запросы для совместимости с OpenSearch.
type ElasticsearchStorage struct {
	client     *elasticsearch.Client // Официальный клиент Elasticsearch
	index      string                // Имя индекса с ценами
	httpClient *http.Client          // HTTP клиент для прямых запросов
	baseURL    string                // Базовый URL Elasticsearch/OpenSearch
}

// NewElasticsearchStorageWithURL создает новый экземпляр ElasticsearchStorage с указанным URL.
func NewElasticsearchStorageWithURL(client *elasticsearch.Client, index string, baseURL string) *ElasticsearchStorage {
	return &ElasticsearchStorage{
		client:     client,
		index:      index,
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Close ничего не делает: клиент не держит соединений.
func (es *ElasticsearchStorage) Close() error {
	return nil
}

// CreateIndex создает индекс в Elasticsearch/OpenSearch с заданным маппингом.
// Если индекс уже существует, функция возвращает nil без ошибки.
func (es *ElasticsearchStorage) CreateIndex(ctx context.Context, mappingJSON string) error {
	res, err := es.client.Indices.Exists([]string{es.index}, es.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = es.client.Indices.Create(
		es.index,
		es.client.Indices.Create.WithBody(strings.NewReader(mappingJSON)),
		es.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("error creating index: %s", string(body))
	}

	return nil
}

// IndexRecord индексирует одну запись с позицией seq.
// Если документ с таким ID уже существует, он будет обновлен.
func (es *ElasticsearchStorage) IndexRecord(ctx context.Context, seq int, record models.PriceRecord) error {
	body, err := json.Marshal(priceDocument{Seq: seq, PriceRecord: record})
	if err != nil {
		return fmt.Errorf("failed to marshal price record: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      es.index,
		DocumentID: strconv.Itoa(seq),
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, es.client)
	if err != nil {
		return fmt.Errorf("failed to index price record: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("error indexing price record: %s", string(body))
	}

	return nil
}

// BulkIndexRecords индексирует несколько записей за один запрос через Bulk API.
// Записи получают позиции offset, offset+1, ... которые задают порядок выгрузки.
func (es *ElasticsearchStorage) BulkIndexRecords(ctx context.Context, records []models.PriceRecord, offset int) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	for i, record := range records {
		seq := offset + i
		meta := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": es.index,
				"_id":    strconv.Itoa(seq),
			},
		}

		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("failed to encode meta: %w", err)
		}
		if err := enc.Encode(priceDocument{Seq: seq, PriceRecord: record}); err != nil {
			return fmt.Errorf("failed to encode price record: %w", err)
		}
	}

	url := fmt.Sprintf("%s/_bulk?refresh=true", es.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")

	res, err := es.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to bulk index: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("error bulk indexing: status %d, body: %s", res.StatusCode, string(body))
	}

	var result struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if !result.Errors {
		return nil
	}

	bulkErr := &BulkError{}
	for _, item := range result.Items {
		for _, op := range item {
			if op.Status < 300 {
				continue
			}
			seq, err := strconv.Atoi(op.ID)
			if err != nil {
				return fmt.Errorf("unexpected document id %q in bulk response", op.ID)
			}
			bulkErr.Rejected = append(bulkErr.Rejected, seq)
		}
	}
	return bulkErr
}

// LoadRecords выгружает весь индекс постранично (search_after по seq) в исходном порядке.
func (es *ElasticsearchStorage) LoadRecords(ctx context.Context) ([]models.PriceRecord, error) {
	var records []models.PriceRecord
	var after []interface{}

	for {
		page, last, err := es.searchPage(ctx, after)
		if err != nil {
			return nil, err
		}
		for _, doc := range page {
			rec := doc.PriceRecord
			rec.PriceDate = rec.PriceDate.UTC()
			records = append(records, rec)
		}
		if len(page) < pageSize {
			return records, nil
		}
		after = last
	}
}

func (es *ElasticsearchStorage) searchPage(ctx context.Context, after []interface{}) ([]priceDocument, []interface{}, error) {
	query := map[string]interface{}{
		"size":  pageSize,
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		"sort": []map[string]interface{}{
			{"seq": map[string]interface{}{"order": "asc"}},
		},
	}
	if after != nil {
		query["search_after"] = after
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, nil, fmt.Errorf("failed to encode query: %w", err)
	}

	url := fmt.Sprintf("%s/%s/_search", es.baseURL, es.index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := es.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to search: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		body, _ := io.ReadAll(res.Body)
		return nil, nil, fmt.Errorf("error searching: status %d, body: %s", res.StatusCode, string(body))
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source priceDocument `json:"_source"`
				Sort   []interface{} `json:"sort"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, nil, fmt.Errorf("failed to decode response: %w", err)
	}

	docs := make([]priceDocument, 0, len(result.Hits.Hits))
	var last []interface{}
	for _, hit := range result.Hits.Hits {
		docs = append(docs, hit.Source)
		last = hit.Sort
	}
	return docs, last, nil
}
