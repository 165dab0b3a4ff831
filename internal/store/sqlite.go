package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"stocksim/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ QuoteStore = (*SQLiteStore)(nil)
var _ AssetStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS quotes (
	symbol         TEXT    NOT NULL,
	fetched_at     INTEGER NOT NULL,
	current_price  REAL,
	previous_close REAL,
	open           REAL,
	day_low        REAL,
	day_high       REAL,
	volume         INTEGER,
	market_cap     REAL,
	company_name   TEXT,
	currency       TEXT,
	exchange       TEXT
);
CREATE INDEX IF NOT EXISTS idx_quotes_symbol_time ON quotes(symbol, fetched_at);

CREATE TABLE IF NOT EXISTS assets (
	symbol     TEXT PRIMARY KEY,
	name       TEXT,
	exchange   TEXT,
	tradable   INTEGER NOT NULL,
	checked_at INTEGER NOT NULL
);
`

// SQLiteStore implements QuoteStore and AssetStore backed by a SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// schema if needed, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// A single connection keeps :memory: databases coherent and avoids
	// SQLITE_BUSY between writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// QuoteStore implementation
// ---------------------------------------------------------------------------

// SaveQuote appends a quote snapshot.
func (s *SQLiteStore) SaveQuote(ctx context.Context, q *domain.Quote) error {
	ts := q.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO quotes
		(symbol, fetched_at, current_price, previous_close, open, day_low, day_high,
		 volume, market_cap, company_name, currency, exchange)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.ToUpper(q.Symbol), ts.UnixMilli(), q.CurrentPrice, q.PreviousClose, q.Open,
		q.DayLow, q.DayHigh, q.Volume, q.MarketCap, q.CompanyName, q.Currency, q.Exchange,
	)
	return err
}

// LatestQuote returns the most recent snapshot for a symbol.
func (s *SQLiteStore) LatestQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	row := s.db.QueryRowContext(ctx, `SELECT
		symbol, fetched_at, current_price, previous_close, open, day_low, day_high,
		volume, market_cap, company_name, currency, exchange
		FROM quotes WHERE symbol = ? ORDER BY fetched_at DESC LIMIT 1`,
		strings.ToUpper(symbol),
	)

	var (
		q  domain.Quote
		ts int64
	)
	err := row.Scan(&q.Symbol, &ts, &q.CurrentPrice, &q.PreviousClose, &q.Open, &q.DayLow,
		&q.DayHigh, &q.Volume, &q.MarketCap, &q.CompanyName, &q.Currency, &q.Exchange)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("quote for %s: %w", symbol, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	q.Timestamp = time.UnixMilli(ts)
	return &q, nil
}

// ---------------------------------------------------------------------------
// AssetStore implementation
// ---------------------------------------------------------------------------

// SaveAsset inserts or replaces the asset record for a symbol.
func (s *SQLiteStore) SaveAsset(ctx context.Context, a *domain.Asset) error {
	checked := a.CheckedAt
	if checked.IsZero() {
		checked = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO assets
		(symbol, name, exchange, tradable, checked_at) VALUES (?, ?, ?, ?, ?)`,
		strings.ToUpper(a.Symbol), a.Name, a.Exchange, a.Tradable, checked.UnixMilli(),
	)
	return err
}

// GetAsset retrieves the cached asset record for a symbol.
func (s *SQLiteStore) GetAsset(ctx context.Context, symbol string) (*domain.Asset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT symbol, name, exchange, tradable, checked_at FROM assets WHERE symbol = ?`,
		strings.ToUpper(symbol),
	)

	var (
		a       domain.Asset
		checked int64
	)
	err := row.Scan(&a.Symbol, &a.Name, &a.Exchange, &a.Tradable, &checked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset %s: %w", symbol, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	a.CheckedAt = time.UnixMilli(checked)
	return &a, nil
}
