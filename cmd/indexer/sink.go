package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/akozadaev/go_farm_assist/internal/config"
	"github.com/akozadaev/go_farm_assist/internal/models"
	"github.com/akozadaev/go_farm_assist/internal/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/schollz/progressbar/v3"
)

// recordWriter принимает датасет пачками; offset - позиция первой записи пачки.
// После успешной загрузки вызывается Close, после ошибки - abort.
type recordWriter interface {
	prepare(ctx context.Context) error
	write(ctx context.Context, batch []models.PriceRecord, offset int) error
	abort() error
	Close() error
}

// esWriter пишет пачки через Bulk API. Документы, которые Bulk API отклонил,
// индексируются повторно по одному.
type esWriter struct {
	es *storage.ElasticsearchStorage
}

func (w *esWriter) prepare(ctx context.Context) error {
	return w.es.CreateIndex(ctx, storage.PriceRecordMapping)
}

func (w *esWriter) write(ctx context.Context, batch []models.PriceRecord, offset int) error {
	err := w.es.BulkIndexRecords(ctx, batch, offset)
	var bulkErr *storage.BulkError
	if !errors.As(err, &bulkErr) || len(bulkErr.Rejected) == 0 {
		return err
	}

	for _, seq := range bulkErr.Rejected {
		i := seq - offset
		if i < 0 || i >= len(batch) {
			return fmt.Errorf("bulk response rejected unknown record %d", seq)
		}
		if err := w.es.IndexRecord(ctx, seq, batch[i]); err != nil {
			return fmt.Errorf("retry record %d: %w", seq, err)
		}
	}
	return nil
}

func (w *esWriter) abort() error {
	return w.es.Close()
}

func (w *esWriter) Close() error {
	return w.es.Close()
}

// sqlWriter вставляет пачки в price_records. Без appendRows таблица очищается
// перед загрузкой, чтобы повторный запуск не дублировал строки.
type sqlWriter struct {
	src        *storage.SQLSource
	appendRows bool
}

func (w *sqlWriter) prepare(ctx context.Context) error {
	if err := w.src.Migrate(ctx); err != nil {
		return err
	}
	if w.appendRows {
		return nil
	}
	return w.src.Truncate(ctx)
}

func (w *sqlWriter) write(ctx context.Context, batch []models.PriceRecord, _ int) error {
	return w.src.Insert(ctx, batch)
}

func (w *sqlWriter) abort() error {
	return w.src.Close()
}

func (w *sqlWriter) Close() error {
	return w.src.Close()
}

// xlsxWriter копит записи и сохраняет книгу при закрытии.
type xlsxWriter struct {
	path    string
	records []models.PriceRecord
}

func (w *xlsxWriter) prepare(context.Context) error {
	return nil
}

func (w *xlsxWriter) write(_ context.Context, batch []models.PriceRecord, _ int) error {
	w.records = append(w.records, batch...)
	return nil
}

// abort не сохраняет книгу: неполный датасет не должен попасть в файл.
func (w *xlsxWriter) abort() error {
	w.records = nil
	return nil
}

func (w *xlsxWriter) Close() error {
	return storage.WriteXLSX(w.path, storage.DefaultColumns, w.records)
}

// openWriter создает writer для target. appendRows влияет только на SQL цели.
func openWriter(target, output string, appendRows bool, cfg *config.Config) (recordWriter, error) {
	switch strings.ToLower(target) {
	case "elasticsearch":
		esClient, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses:         []string{cfg.ElasticsearchURL},
			DisableMetaHeader: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
		}
		return &esWriter{es: storage.NewElasticsearchStorageWithURL(esClient, cfg.ElasticsearchIndex, cfg.ElasticsearchURL)}, nil
	case "postgres":
		src, err := storage.NewSQLSource("postgres", cfg.PostgresDSN())
		if err != nil {
			return nil, err
		}
		return &sqlWriter{src: src, appendRows: appendRows}, nil
	case "sqlite":
		path := cfg.SQLitePath
		if output != "" {
			path = output
		}
		src, err := storage.NewSQLSource("sqlite3", path)
		if err != nil {
			return nil, err
		}
		return &sqlWriter{src: src, appendRows: appendRows}, nil
	case "xlsx":
		if output == "" {
			return nil, fmt.Errorf("--output is required for xlsx target")
		}
		return &xlsxWriter{path: output}, nil
	default:
		return nil, fmt.Errorf("unknown target %q", target)
	}
}

// openInput выбирает источник по расширению файла; без файла используется источник из конфигурации.
func openInput(input string, cfg *config.Config) (storage.Source, error) {
	switch {
	case input == "":
		return storage.Open(cfg)
	case strings.EqualFold(filepath.Ext(input), ".xlsx"):
		return storage.NewXLSXSource(input, storage.DefaultColumns), nil
	default:
		return storage.NewCSVSource(input, storage.DefaultColumns), nil
	}
}

// indexRecords пишет записи пачками по batchSize и показывает прогресс в progress.
func indexRecords(ctx context.Context, records []models.PriceRecord, w recordWriter, batchSize int, progress io.Writer) error {
	if batchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if err := w.prepare(ctx); err != nil {
		return fmt.Errorf("prepare target: %w", err)
	}

	bar := progressbar.NewOptions(len(records),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Indexing price records"),
	)

	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := w.write(ctx, records[start:end], start); err != nil {
			return fmt.Errorf("write records %d-%d: %w", start, end-1, err)
		}
		_ = bar.Add(end - start)
	}
	_ = bar.Finish()
	return nil
}
