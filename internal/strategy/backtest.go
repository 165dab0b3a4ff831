package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"stocksim/internal/domain"
	"stocksim/internal/indicator"
	"stocksim/internal/store"
)

// ErrNoBarStore is returned by the store-backed runs of a Backtester built
// without a bar store.
var ErrNoBarStore = errors.New("no bar store configured")

// Backtester loads historical bars from a store and simulates registered
// strategies over them.
type Backtester struct {
	store    store.BarStore
	registry *Registry
	market   string
}

// NewBacktester creates a Backtester that reads bars from the given store and
// looks up strategies in the provided registry. barStore may be nil when only
// Compare is used.
func NewBacktester(barStore store.BarStore, registry *Registry) *Backtester {
	return &Backtester{
		store:    barStore,
		registry: registry,
		market:   store.DefaultMarket,
	}
}

// Run simulates the strategy kind over symbol's daily bars within
// [start, end], starting with initialCash.
func (bt *Backtester) Run(
	ctx context.Context,
	kind Kind,
	symbol string,
	start, end time.Time,
	initialCash float64,
) (*Result, error) {
	st, ok := bt.registry.Get(kind)
	if !ok {
		return nil, fmt.Errorf("%w: strategy %q is not registered", ErrInvalidInput, kind)
	}

	s, err := bt.load(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	return Simulate(s, initialCash, st)
}

// RunAll simulates every registered strategy over symbol's bars.
func (bt *Backtester) RunAll(
	ctx context.Context,
	symbol string,
	start, end time.Time,
	initialCash float64,
) ([]*Result, error) {
	s, err := bt.load(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	return bt.Compare(ctx, s, initialCash)
}

// Compare simulates every registered strategy over the same series
// concurrently. Indicators are attached once before the fan-out so the
// goroutines only ever read the series. Results follow registry order.
func (bt *Backtester) Compare(ctx context.Context, s domain.Series, initialCash float64) ([]*Result, error) {
	series := indicator.WithIndicators(s)
	kinds := bt.registry.List()
	results := make([]*Result, len(kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, k := range kinds {
		st, _ := bt.registry.Get(k)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := Simulate(series, initialCash, st)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (bt *Backtester) load(ctx context.Context, symbol string, start, end time.Time) (domain.Series, error) {
	if bt.store == nil {
		return domain.Series{}, ErrNoBarStore
	}
	bars, err := bt.store.ReadBars(ctx, symbol, bt.market, start, end)
	if err != nil {
		return domain.Series{}, fmt.Errorf("reading bars for %s: %w", symbol, err)
	}
	return domain.SeriesFromBars(bars), nil
}
