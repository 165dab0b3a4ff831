package strategy_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocksim/internal/domain"
	"stocksim/internal/store"
	"stocksim/internal/strategy"
	"stocksim/internal/strategy/builtins"
)

// memBarStore is an in-memory store.BarStore.
type memBarStore struct {
	bars []domain.Bar
}

var _ store.BarStore = (*memBarStore)(nil)

func (m *memBarStore) WriteBars(_ context.Context, bars []domain.Bar) error {
	m.bars = append(m.bars, bars...)
	return nil
}

func (m *memBarStore) ReadBars(_ context.Context, symbol, _ string, start, end time.Time) ([]domain.Bar, error) {
	var out []domain.Bar
	for _, b := range m.bars {
		if b.Symbol == symbol && !b.Timestamp.Before(start) && !b.Timestamp.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBarStore) ListSymbols(context.Context, string) ([]string, error) { return nil, nil }

func sampleBars(symbol string, n int) []domain.Bar {
	d0 := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, n)
	for i := range bars {
		// A slow sine-like oscillation so every strategy gets a chance to trade.
		c := 100 + float64((i%40)-20)*float64(1-2*((i/40)%2))
		bars[i] = domain.Bar{Symbol: symbol, Timestamp: d0.AddDate(0, 0, i), Close: c}
	}
	return bars
}

func TestBacktesterRun(t *testing.T) {
	t.Parallel()
	ms := &memBarStore{bars: sampleBars("AAPL", 200)}
	bt := strategy.NewBacktester(ms, builtins.NewRegistry())

	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	res, err := bt.Run(context.Background(), strategy.BuyAndHold, "AAPL", start, end, 1000)
	require.NoError(t, err)
	assert.Len(t, res.PortfolioValues, 200)
	assert.Len(t, res.Trades, 2)
}

func TestBacktesterRunEmptyRange(t *testing.T) {
	t.Parallel()
	bt := strategy.NewBacktester(&memBarStore{}, builtins.NewRegistry())
	_, err := bt.Run(context.Background(), strategy.RSIStrategy, "AAPL", time.Now().AddDate(-1, 0, 0), time.Now(), 1000)
	assert.ErrorIs(t, err, strategy.ErrInvalidInput)
}

func TestBacktesterRunUnregistered(t *testing.T) {
	t.Parallel()
	bt := strategy.NewBacktester(&memBarStore{bars: sampleBars("AAPL", 10)}, strategy.NewRegistry())
	_, err := bt.Run(context.Background(), strategy.RSIStrategy, "AAPL", time.Time{}, time.Now(), 1000)
	assert.ErrorIs(t, err, strategy.ErrInvalidInput)
}

func TestBacktesterRunWithoutStore(t *testing.T) {
	t.Parallel()
	bt := strategy.NewBacktester(nil, builtins.NewRegistry())
	_, err := bt.Run(context.Background(), strategy.BuyAndHold, "AAPL", time.Time{}, time.Now(), 1000)
	assert.ErrorIs(t, err, strategy.ErrNoBarStore)
	_, err = bt.RunAll(context.Background(), "AAPL", time.Time{}, time.Now(), 1000)
	assert.ErrorIs(t, err, strategy.ErrNoBarStore)
}

func TestBacktesterCompareMatchesSequentialRuns(t *testing.T) {
	t.Parallel()
	reg := builtins.NewRegistry()
	bt := strategy.NewBacktester(&memBarStore{}, reg)
	s := domain.SeriesFromBars(sampleBars("MSFT", 240))

	results, err := bt.Compare(context.Background(), s, 5000)
	require.NoError(t, err)
	require.Len(t, results, len(strategy.Kinds()))

	for i, k := range strategy.Kinds() {
		st, _ := reg.Get(k)
		want, err := strategy.Simulate(s, 5000, st)
		require.NoError(t, err)
		assert.Equal(t, k, results[i].Strategy)
		assert.Equal(t, want, results[i])
	}
	assert.False(t, s.Has(domain.ColumnRSI), "Compare must not mutate the caller's series")
}

func TestBacktesterCompareCancelled(t *testing.T) {
	t.Parallel()
	bt := strategy.NewBacktester(&memBarStore{}, builtins.NewRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := bt.Compare(ctx, domain.SeriesFromBars(sampleBars("X", 60)), 1000)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBacktesterRunAll(t *testing.T) {
	t.Parallel()
	bt := strategy.NewBacktester(&memBarStore{bars: sampleBars("NVDA", 120)}, builtins.NewRegistry())
	results, err := bt.RunAll(context.Background(), "NVDA", time.Time{}, time.Now(), 1000)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}
