package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/akozadaev/go_farm_assist/internal/models"
	"github.com/xuri/excelize/v2"
)

// XLSXSource читает датасет цен с первого листа книги Excel.
type XLSXSource struct {
	path    string
	columns Columns
}

// NewXLSXSource создает источник для книги path.
func NewXLSXSource(path string, columns Columns) *XLSXSource {
	return &XLSXSource{path: path, columns: columns}
}

// LoadRecords читает все строки первого листа. Даты могут храниться как текст или как серийный номер Excel.
func (s *XLSXSource) LoadRecords(ctx context.Context) ([]models.PriceRecord, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", s.path)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}

	parser, err := newRowParser(rows[0], s.columns)
	if err != nil {
		return nil, err
	}
	parser.parseDate = parseExcelDate
	return parseRows(parser, rows[1:], 2)
}

// Close ничего не делает: книга закрывается после чтения.
func (s *XLSXSource) Close() error {
	return nil
}

func parseExcelDate(s string) (time.Time, error) {
	if serial, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid excel date %q: %w", s, err)
		}
		return t.UTC(), nil
	}
	return ParseDate(s)
}

// WriteXLSX сохраняет записи в книгу Excel с заголовком columns.
func WriteXLSX(path string, columns Columns, records []models.PriceRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, name := range columns.Header() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, name)
	}

	for i, rec := range records {
		values := []any{
			rec.State,
			rec.District,
			rec.Market,
			rec.Commodity,
			rec.Variety,
			rec.PriceDate.Format("2006-01-02"),
			rec.ModalPrice,
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}
