package analysis

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocksim/internal/domain"
	"stocksim/internal/gather"
)

func barsFromCloses(start time.Time, closes ...float64) []domain.Bar {
	out := make([]domain.Bar, len(closes))
	for i, c := range closes {
		out[i] = domain.Bar{
			Symbol:    "AAPL",
			Timestamp: start.AddDate(0, 0, i),
			Open:      c, High: c, Low: c, Close: c,
			Volume: 100,
		}
	}
	return out
}

func TestBuildDailyReturnAndAverages(t *testing.T) {
	closes := []float64{100, 110, 99, 99, 108.9, 100, 101, 102, 103, 104, 105}
	f := Build(barsFromCloses(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), closes...))

	require.Equal(t, len(closes), f.Len())
	assert.Equal(t, "AAPL", f.Symbol)
	assert.True(t, math.IsNaN(f.DailyReturn[0]))
	assert.InDelta(t, 10, f.DailyReturn[1], 1e-9)
	assert.InDelta(t, -10, f.DailyReturn[2], 1e-9)
	assert.InDelta(t, 0, f.DailyReturn[3], 1e-9)

	assert.True(t, math.IsNaN(f.MA5[3]))
	assert.InDelta(t, (100+110+99+99+108.9)/5, f.MA5[4], 1e-9)
	assert.True(t, math.IsNaN(f.MA10[8]))
	assert.InDelta(t, 102.69, f.MA10[9], 1e-9)

	// With fewer than 20 bars the long average spans the whole frame.
	for i := 0; i < len(closes)-1; i++ {
		assert.True(t, math.IsNaN(f.MA20[i]), "MA20[%d]", i)
	}
	var sum float64
	for _, c := range closes {
		sum += c
	}
	assert.InDelta(t, sum/float64(len(closes)), f.MA20[len(closes)-1], 1e-9)
}

func TestBuildVolatility(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	short := Build(barsFromCloses(start, 100, 101, 102, 103))
	assert.Nil(t, short.Volatility, "volatility needs at least five bars")

	// Returns alternate +10% / -10%, so every full window has the same spread.
	closes := []float64{100, 110, 99, 108.9, 98.01, 107.811, 97.0299}
	f := Build(barsFromCloses(start, closes...))
	require.Len(t, f.Volatility, len(closes))
	for i := 0; i < 5; i++ {
		assert.True(t, math.IsNaN(f.Volatility[i]), "Volatility[%d] should be empty", i)
	}
	// Sample std of {10,-10,10,-10,10}: mean 2, squares 64*3+144*2 = 480, /4.
	assert.InDelta(t, math.Sqrt(120), f.Volatility[5], 1e-6)
	assert.InDelta(t, math.Sqrt(120), f.Volatility[6], 1e-6)
}

func TestRows(t *testing.T) {
	f := Build(barsFromCloses(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), 10, 11, 12, 13, 14))
	rows := f.Rows()
	require.Len(t, rows, 5)

	assert.Equal(t, "2024-03-04", rows[0].Date)
	assert.Nil(t, rows[0].DailyReturn)
	assert.Nil(t, rows[0].MA5)
	require.NotNil(t, rows[1].DailyReturn)
	assert.InDelta(t, 10, *rows[1].DailyReturn, 1e-9)
	require.NotNil(t, rows[4].MA5)
	assert.InDelta(t, 12, *rows[4].MA5, 1e-9)
	assert.Nil(t, rows[4].MA10)
	assert.Nil(t, rows[4].Volatility)
}

func TestBuildEmpty(t *testing.T) {
	f := Build(nil)
	assert.Zero(t, f.Len())
	assert.Empty(t, f.Rows())
	assert.Nil(t, f.Volatility)
}

type stubProvider struct {
	quote      *domain.Quote
	quoteErr   error
	bars       []domain.Bar
	historyErr error
	period     gather.Period
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) LiveQuote(context.Context, string) (*domain.Quote, error) {
	return s.quote, s.quoteErr
}

func (s *stubProvider) History(_ context.Context, _ string, period gather.Period, _ gather.Interval) ([]domain.Bar, error) {
	s.period = period
	return s.bars, s.historyErr
}

func (s *stubProvider) ValidateTicker(context.Context, string) bool { return true }

func TestRollingStdSkipsIncompleteWindows(t *testing.T) {
	got := rollingStd([]float64{1, 2, math.NaN(), 4, 5, 6, 8}, 3)
	require.Len(t, got, 7)
	for i := 0; i <= 4; i++ {
		assert.Truef(t, math.IsNaN(got[i]), "window ending at %d has no value", i)
	}
	assert.InDelta(t, 1.0, got[5], 1e-12)
	assert.InDelta(t, math.Sqrt(7.0/3.0), got[6], 1e-12)
}

var prepareNow = time.Date(2024, 6, 3, 20, 0, 0, 0, time.UTC)

func TestPrepare(t *testing.T) {
	start := prepareNow.AddDate(0, 0, -45)
	closes := make([]float64, 46)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	p := &stubProvider{
		quote: &domain.Quote{Symbol: "AAPL", CurrentPrice: 146},
		bars:  barsFromCloses(start, closes...),
	}

	a, err := Prepare(context.Background(), p, "AAPL", 30, prepareNow)
	require.NoError(t, err)
	assert.Equal(t, gather.Period1Mo, p.period)
	assert.Equal(t, 146.0, a.Quote.CurrentPrice)
	require.NotNil(t, a.Frame)
	require.Equal(t, 31, a.Frame.Len(), "bars on the cutoff day are kept")
	assert.Equal(t, 115.0, a.Frame.Bars[0].Close)
	assert.Equal(t, 145.0, a.Frame.Bars[a.Frame.Len()-1].Close)
}

func TestPrepareHistoryOlderThanWindow(t *testing.T) {
	p := &stubProvider{
		quote: &domain.Quote{Symbol: "AAPL", CurrentPrice: 146},
		bars:  barsFromCloses(prepareNow.AddDate(0, 0, -60), 100, 101, 102),
	}
	a, err := Prepare(context.Background(), p, "AAPL", 30, prepareNow)
	require.NoError(t, err)
	assert.Nil(t, a.Frame)
}

func TestPrepareWithoutHistory(t *testing.T) {
	p := &stubProvider{
		quote:      &domain.Quote{Symbol: "AAPL", CurrentPrice: 146},
		historyErr: gather.ErrNoData,
	}
	a, err := Prepare(context.Background(), p, "AAPL", 30, prepareNow)
	require.NoError(t, err)
	assert.NotNil(t, a.Quote)
	assert.Nil(t, a.Frame)
}

func TestPrepareQuoteFailure(t *testing.T) {
	p := &stubProvider{quoteErr: gather.ErrNotFound}
	_, err := Prepare(context.Background(), p, "NOPE", 30, prepareNow)
	assert.True(t, errors.Is(err, gather.ErrNotFound))

	_, err = Prepare(context.Background(), &stubProvider{}, "AAPL", 0, prepareNow)
	assert.Error(t, err)
}
