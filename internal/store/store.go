// Package store defines storage interfaces for caching market data locally:
// daily bars in Parquet files, live quotes and ticker lookups in SQLite.
package store

import (
	"context"
	"errors"
	"time"

	"stocksim/internal/domain"
)

// ErrNotFound is returned when a cached record does not exist.
var ErrNotFound = errors.New("not found")

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within [start, end].
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market string) ([]string, error)
}

// QuoteStore keeps a journal of fetched live quotes.
type QuoteStore interface {
	// SaveQuote appends a quote snapshot.
	SaveQuote(ctx context.Context, q *domain.Quote) error

	// LatestQuote returns the most recent snapshot for a symbol.
	LatestQuote(ctx context.Context, symbol string) (*domain.Quote, error)
}

// AssetStore caches ticker validation results.
type AssetStore interface {
	// SaveAsset inserts or replaces the asset record for a symbol.
	SaveAsset(ctx context.Context, a *domain.Asset) error

	// GetAsset retrieves the cached asset record for a symbol.
	GetAsset(ctx context.Context, symbol string) (*domain.Asset, error)
}
