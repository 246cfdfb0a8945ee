package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/akozadaev/go_farm_assist/internal/models"
)

// CSVSource читает датасет цен из CSV файла с заголовком.
type CSVSource struct {
	path    string
	columns Columns
}

// NewCSVSource создает источник для файла path.
func NewCSVSource(path string, columns Columns) *CSVSource {
	return &CSVSource{path: path, columns: columns}
}

// LoadRecords читает все строки файла.
func (s *CSVSource) LoadRecords(ctx context.Context) ([]models.PriceRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	return ReadCSV(f, s.columns)
}

// Close ничего не делает: файл закрывается после чтения.
func (s *CSVSource) Close() error {
	return nil
}

// ReadCSV разбирает CSV поток с заголовком.
func ReadCSV(r io.Reader, columns Columns) ([]models.PriceRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	parser, err := newRowParser(header, columns)
	if err != nil {
		return nil, err
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return parseRows(parser, rows, 2)
}
