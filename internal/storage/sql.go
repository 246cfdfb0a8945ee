package storage

import (
	"context"
	"fmt"

	"github.com/akozadaev/go_farm_assist/internal/models"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS price_records (
	id          BIGSERIAL PRIMARY KEY,
	state       TEXT NOT NULL,
	district    TEXT NOT NULL,
	market      TEXT NOT NULL,
	commodity   TEXT NOT NULL,
	variety     TEXT NOT NULL,
	price_date  DATE NOT NULL,
	modal_price DOUBLE PRECISION NOT NULL
)`

const sqliteSchema = `CREATE TABLE IF NOT EXISTS price_records (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	state       TEXT NOT NULL,
	district    TEXT NOT NULL,
	market      TEXT NOT NULL,
	commodity   TEXT NOT NULL,
	variety     TEXT NOT NULL,
	price_date  DATE NOT NULL,
	modal_price REAL NOT NULL
)`

// SQLSource хранит записи цен в таблице price_records PostgreSQL или SQLite.
// Порядок вставки сохраняется через автоинкрементный id.
type SQLSource struct {
	db     *sqlx.DB // Подключение к базе данных
	driver string   // postgres или sqlite3
}

// NewSQLSource создает источник и устанавливает подключение к БД.
// Для postgres DSN должен быть в формате: "host=... port=... user=... password=... dbname=... sslmode=...",
// для sqlite3 это путь к файлу.
func NewSQLSource(driver, dsn string) (*SQLSource, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLSource{db: db, driver: driver}, nil
}

// Close закрывает подключение к базе данных.
func (s *SQLSource) Close() error {
	return s.db.Close()
}

// Migrate создает таблицу price_records, если её нет.
func (s *SQLSource) Migrate(ctx context.Context) error {
	schema := postgresSchema
	if s.driver == "sqlite3" {
		schema = sqliteSchema
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate price_records: %w", err)
	}
	return nil
}

// Truncate удаляет все записи. id продолжают расти, поэтому порядок новых вставок сохраняется.
func (s *SQLSource) Truncate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM price_records`); err != nil {
		return fmt.Errorf("failed to truncate price_records: %w", err)
	}
	return nil
}

// Insert добавляет записи одним запросом.
func (s *SQLSource) Insert(ctx context.Context, records []models.PriceRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `INSERT INTO price_records (state, district, market, commodity, variety, price_date, modal_price)
		VALUES (:state, :district, :market, :commodity, :variety, :price_date, :modal_price)`
	if _, err := s.db.NamedExecContext(ctx, query, records); err != nil {
		return fmt.Errorf("failed to insert price records: %w", err)
	}
	return nil
}

// LoadRecords возвращает все записи в порядке вставки.
func (s *SQLSource) LoadRecords(ctx context.Context) ([]models.PriceRecord, error) {
	query := `SELECT state, district, market, commodity, variety, price_date, modal_price
		FROM price_records ORDER BY id`

	var records []models.PriceRecord
	if err := s.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("failed to query price records: %w", err)
	}

	for i := range records {
		records[i].PriceDate = records[i].PriceDate.UTC()
	}
	return records, nil
}
