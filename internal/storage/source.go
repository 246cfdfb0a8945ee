// Package storage содержит источники исторических цен: CSV, XLSX, PostgreSQL/SQLite и Elasticsearch/OpenSearch.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/akozadaev/go_farm_assist/internal/config"
	"github.com/akozadaev/go_farm_assist/internal/models"
	"github.com/elastic/go-elasticsearch/v8"
)

// ErrUnknownSource возвращается для неподдерживаемого значения DATASET_SOURCE.
var ErrUnknownSource = errors.New("unknown dataset source")

// Source загружает все исторические записи цен.
type Source interface {
	LoadRecords(ctx context.Context) ([]models.PriceRecord, error)
	Close() error
}

// Columns задает имена колонок табличного датасета.
type Columns struct {
	State      string
	District   string
	Market     string
	Commodity  string
	Variety    string
	PriceDate  string
	ModalPrice string
}

// DefaultColumns соответствует заголовку очищенного датасета цен.
var DefaultColumns = Columns{
	State:      "STATE",
	District:   "District Name",
	Market:     "Market Name",
	Commodity:  "Commodity",
	Variety:    "Variety",
	PriceDate:  "Price Date",
	ModalPrice: "Modal_Price",
}

// Header возвращает заголовок в порядке полей PriceRecord.
func (c Columns) Header() []string {
	return []string{c.State, c.District, c.Market, c.Commodity, c.Variety, c.PriceDate, c.ModalPrice}
}

// dateLayouts перечисляет форматы дат, встречающиеся в выгрузках Agmarknet.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
	"02-Jan-2006",
	"02 Jan 2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate разбирает дату в одном из поддерживаемых форматов. Время приводится к UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date %q", s)
}

// ParsePrice разбирает цену, допуская разделители тысяч.
func ParsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", s, err)
	}
	return v, nil
}

// normalizeHeader сравнивает заголовки без учета регистра, пробелов и подчеркиваний.
func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "").Replace(s)
}

type rowParser struct {
	index     [7]int
	parseDate func(string) (time.Time, error)
}

func newRowParser(header []string, cols Columns) (*rowParser, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		positions[normalizeHeader(name)] = i
	}

	p := &rowParser{parseDate: ParseDate}
	for i, name := range cols.Header() {
		pos, ok := positions[normalizeHeader(name)]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		p.index[i] = pos
	}
	return p, nil
}

func (p *rowParser) parse(row []string) (models.PriceRecord, error) {
	cell := func(i int) string {
		if p.index[i] < len(row) {
			return strings.TrimSpace(row[p.index[i]])
		}
		return ""
	}

	date, err := p.parseDate(cell(5))
	if err != nil {
		return models.PriceRecord{}, err
	}
	price, err := ParsePrice(cell(6))
	if err != nil {
		return models.PriceRecord{}, err
	}

	return models.PriceRecord{
		State:      cell(0),
		District:   cell(1),
		Market:     cell(2),
		Commodity:  cell(3),
		Variety:    cell(4),
		PriceDate:  date,
		ModalPrice: price,
	}, nil
}

// parseRows превращает табличные строки в записи. Пустые строки пропускаются.
func parseRows(p *rowParser, rows [][]string, firstLine int) ([]models.PriceRecord, error) {
	records := make([]models.PriceRecord, 0, len(rows))
	for i, row := range rows {
		if blank(row) {
			continue
		}
		rec, err := p.parse(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", firstLine+i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Open открывает источник, выбранный в конфигурации.
func Open(cfg *config.Config) (Source, error) {
	switch strings.ToLower(cfg.DatasetSource) {
	case "csv":
		return NewCSVSource(cfg.DatasetPath, DefaultColumns), nil
	case "xlsx":
		return NewXLSXSource(cfg.DatasetPath, DefaultColumns), nil
	case "postgres":
		return NewSQLSource("postgres", cfg.PostgresDSN())
	case "sqlite":
		return NewSQLSource("sqlite3", cfg.SQLitePath)
	case "elasticsearch":
		esClient, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses:         []string{cfg.ElasticsearchURL},
			DisableMetaHeader: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
		}
		return NewElasticsearchStorageWithURL(esClient, cfg.ElasticsearchIndex, cfg.ElasticsearchURL), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.DatasetSource)
	}
}
