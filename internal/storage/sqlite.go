package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/statements/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteStore is the default durable backend: one row per (ticker, type) with
// the series msgpack-encoded in a blob column. msgpack keeps the payloads
// compact; the records of a large cap's quarterly series run to hundreds of KB
// as JSON.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the statements database with the cache profile
// pragmas: WAL, normal sync, in-memory temp tables.
func Open(path string) (*sql.DB, error) {
	connStr := path + "?_pragma=journal_mode(WAL)"
	connStr += "&_pragma=synchronous(NORMAL)"
	connStr += "&_pragma=temp_store(MEMORY)"
	connStr += "&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open statements database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping statements database: %w", err)
	}
	return db, nil
}

// NewSQLiteStore creates the store and its schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS statement_series (
			ticker         TEXT NOT NULL,
			statement_type TEXT NOT NULL,
			data           BLOB NOT NULL,
			updated_at     INTEGER NOT NULL,
			PRIMARY KEY (ticker, statement_type)
		)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create statement_series table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key domain.Key) (*domain.StatementSeries, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM statement_series WHERE ticker = ? AND statement_type = ?",
		key.Ticker, string(key.Type),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", domain.ErrStorageRead, key, err)
	}

	var series domain.StatementSeries
	if err := msgpack.Unmarshal(data, &series); err != nil {
		return nil, false, fmt.Errorf("%w: %s: decode: %v", domain.ErrStorageRead, key, err)
	}
	return &series, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key domain.Key, series *domain.StatementSeries) error {
	data, err := msgpack.Marshal(series)
	if err != nil {
		return fmt.Errorf("%w: %s: encode: %v", domain.ErrStorageWrite, key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO statement_series (ticker, statement_type, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(ticker, statement_type) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		key.Ticker, string(key.Type), data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrStorageWrite, key, err)
	}
	return nil
}
