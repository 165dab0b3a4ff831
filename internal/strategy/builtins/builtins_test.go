package builtins

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocksim/internal/domain"
	"stocksim/internal/indicator"
	"stocksim/internal/strategy"
)

var day0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func seriesOf(closes ...float64) domain.Series {
	dates := make([]time.Time, len(closes))
	for i := range dates {
		dates[i] = day0.AddDate(0, 0, i)
	}
	return domain.NewSeries(dates, closes)
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func randomWalk(n int, seed int64) domain.Series {
	rng := rand.New(rand.NewSource(seed))
	closes := make([]float64, n)
	price := 100.0
	for i := range closes {
		price *= 1 + (rng.Float64()-0.5)*0.06
		closes[i] = price
	}
	return seriesOf(closes...)
}

func TestRegistryHoldsEveryKind(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	for _, k := range strategy.Kinds() {
		st, ok := r.Get(k)
		require.Truef(t, ok, "no handler registered for %s", k)
		assert.Equal(t, k, st.Kind())
	}
	assert.Equal(t, strategy.Kinds(), r.List())
}

func TestBuyAndHoldScenario(t *testing.T) {
	t.Parallel()
	res, err := strategy.Simulate(seriesOf(100, 110, 90), 1000, NewBuyAndHold())
	require.NoError(t, err)

	assert.Equal(t, strategy.BuyAndHold, res.Strategy)
	assert.Equal(t, []float64{1000, 1100, 900}, res.PortfolioValues)
	assert.InDelta(t, 900, res.FinalValue, 1e-9)
	assert.InDelta(t, -10.0, res.ReturnPct, 1e-9)
	assert.InDelta(t, -10.0, res.BuyHoldReturnPct, 1e-9)

	require.Len(t, res.Trades, 2)
	buy, sell := res.Trades[0], res.Trades[1]
	assert.Equal(t, strategy.ActionBuy, buy.Action)
	assert.Equal(t, day0, buy.Date)
	assert.InDelta(t, 10, buy.Shares, 1e-12)
	assert.InDelta(t, 1000, buy.Value, 1e-9)
	assert.Equal(t, strategy.ActionSell, sell.Action)
	assert.Equal(t, day0.AddDate(0, 0, 2), sell.Date)
	assert.InDelta(t, 900, sell.Value, 1e-9)

	assert.InDelta(t, 100*(1100-900)/1100.0, res.MaxDrawdownPct, 1e-9)
	assert.Equal(t, 1, res.RoundTrips)
	assert.Zero(t, res.WinRatePct)
}

func TestBuyAndHoldMatchesPriceRatio(t *testing.T) {
	t.Parallel()
	s := randomWalk(300, 7)
	res, err := strategy.Simulate(s, 2500, NewBuyAndHold())
	require.NoError(t, err)

	want := 2500 * s.Close[len(s.Close)-1] / s.Close[0]
	assert.InDelta(t, want, res.FinalValue, 1e-6)
	assert.InDelta(t, res.BuyHoldReturnPct, res.ReturnPct, 1e-9)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, strategy.ActionBuy, res.Trades[0].Action)
	assert.Equal(t, strategy.ActionSell, res.Trades[1].Action)
}

func TestSMACrossSingleCrossAtWarmupEnd(t *testing.T) {
	t.Parallel()
	const n = 51
	s := seriesOf(constant(n, 100)...)
	s.MA20 = constant(n, 1)
	s.MA50 = constant(n, 2)
	s.MA20[50] = 3

	res, err := strategy.Simulate(s, 1000, NewSMACross())
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, strategy.ActionBuy, res.Trades[0].Action)
	assert.Equal(t, day0.AddDate(0, 0, 50), res.Trades[0].Date)
	assert.InDelta(t, 10, res.Trades[0].Shares, 1e-12)
	assert.InDelta(t, 1000, res.FinalValue, 1e-9)
	assert.Len(t, res.PortfolioValues, n)
}

func TestSMACrossIgnoresSignalsBeforeWarmup(t *testing.T) {
	t.Parallel()
	const n = 50
	s := seriesOf(constant(n, 100)...)
	s.MA20 = constant(n, 5)
	s.MA50 = constant(n, 1)

	res, err := strategy.Simulate(s, 1000, NewSMACross())
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Equal(t, constant(n, 1000), res.PortfolioValues)
	assert.Zero(t, res.ReturnPct)
}

func TestSMACrossEqualityIsDeadZone(t *testing.T) {
	t.Parallel()
	const n = 60
	s := seriesOf(constant(n, 100)...)
	s.MA20 = constant(n, 2)
	s.MA50 = constant(n, 2)

	res, err := strategy.Simulate(s, 1000, NewSMACross())
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
}

func TestSMACrossRoundTrip(t *testing.T) {
	t.Parallel()
	const n = 55
	closes := constant(n, 100)
	closes[52] = 120
	closes[53] = 120
	closes[54] = 130
	s := seriesOf(closes...)
	s.MA20 = constant(n, 1)
	s.MA50 = constant(n, 2)
	s.MA20[51] = 3 // cross up
	s.MA20[52] = 3
	s.MA20[53] = 1 // cross down
	s.MA20[54] = 1

	res, err := strategy.Simulate(s, 1000, NewSMACross())
	require.NoError(t, err)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, strategy.ActionBuy, res.Trades[0].Action)
	assert.Equal(t, strategy.ActionSell, res.Trades[1].Action)
	assert.InDelta(t, 1200, res.Trades[1].Value, 1e-9)
	assert.InDelta(t, 1200, res.FinalValue, 1e-9)
	assert.InDelta(t, 1200, res.PortfolioValues[53], 1e-9)
	assert.InDelta(t, 1200, res.PortfolioValues[54], 1e-9, "flat after selling")
	assert.Equal(t, 1, res.RoundTrips)
	assert.Equal(t, 100.0, res.WinRatePct)
}

func TestRSIExactlyThirtyDoesNotBuy(t *testing.T) {
	t.Parallel()
	const n = 30
	s := seriesOf(constant(n, 100)...)
	s.RSI = constant(n, 30)

	res, err := strategy.Simulate(s, 1000, NewRSI())
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Equal(t, constant(n, 1000), res.PortfolioValues)
}

func TestRSIRoundTrip(t *testing.T) {
	t.Parallel()
	const n = 20
	closes := constant(n, 100)
	for i := 15; i < n; i++ {
		closes[i] = 120
	}
	s := seriesOf(closes...)
	s.RSI = constant(n, 50)
	for i := 0; i < 14; i++ {
		s.RSI[i] = math.NaN()
	}
	s.RSI[13] = 10 // inside warm-up, ignored
	s.RSI[14] = 25
	s.RSI[15] = 70 // exactly overbought, no sell
	s.RSI[16] = 75

	res, err := strategy.Simulate(s, 1000, NewRSI())
	require.NoError(t, err)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, day0.AddDate(0, 0, 14), res.Trades[0].Date)
	assert.Equal(t, day0.AddDate(0, 0, 16), res.Trades[1].Date)
	assert.InDelta(t, 1000, res.PortfolioValues[14], 1e-9)
	assert.InDelta(t, 1200, res.PortfolioValues[15], 1e-9)
	assert.InDelta(t, 1200, res.FinalValue, 1e-9)
	assert.InDelta(t, 20, res.ReturnPct, 1e-9)
}

func TestRSISkipsUndefinedValues(t *testing.T) {
	t.Parallel()
	const n = 20
	s := seriesOf(constant(n, 100)...)
	s.RSI = constant(n, math.NaN())

	res, err := strategy.Simulate(s, 1000, NewRSI())
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
}

func TestRSIFlatSeriesNeverTrades(t *testing.T) {
	t.Parallel()
	res, err := strategy.Simulate(seriesOf(constant(30, 100)...), 1000, NewRSI())
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Equal(t, constant(30, 1000), res.PortfolioValues)
}

func TestTradesAlternateAndPositionIsAllInOrAllOut(t *testing.T) {
	t.Parallel()
	for _, seed := range []int64{1, 2, 3, 42} {
		s := randomWalk(400, seed)
		indicator.Attach(&s)
		for _, st := range []strategy.Strategy{NewSMACross(), NewRSI()} {
			out := st.Run(s, 1000)
			require.Len(t, out.Values, s.Len())
			for i, tr := range out.Trades {
				want := strategy.ActionBuy
				if i%2 == 1 {
					want = strategy.ActionSell
				}
				assert.Equalf(t, want, tr.Action, "%s seed %d trade %d", st.Kind(), seed, i)
			}
			p := out.Position
			assert.True(t, p.Cash == 0 || p.Shares == 0, "position must be all-in or all-out")
		}
	}
}

func TestEveryStrategyValuesEveryBar(t *testing.T) {
	t.Parallel()
	s := randomWalk(120, 9)
	for _, k := range strategy.Kinds() {
		st, _ := NewRegistry().Get(k)
		res, err := strategy.Simulate(s, 1000, st)
		require.NoError(t, err)
		assert.Len(t, res.PortfolioValues, s.Len(), k.String())
		assert.Len(t, res.Dates, s.Len(), k.String())
	}
}

func TestSimulateIsIdempotent(t *testing.T) {
	t.Parallel()
	s := randomWalk(250, 11)
	indicator.Attach(&s)
	for _, k := range strategy.Kinds() {
		st, _ := NewRegistry().Get(k)
		a, err := strategy.Simulate(s, 1000, st)
		require.NoError(t, err)
		b, err := strategy.Simulate(s, 1000, st)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestShortSeriesNeverTrades(t *testing.T) {
	t.Parallel()
	s := randomWalk(10, 5)
	for _, st := range []strategy.Strategy{NewSMACross(), NewRSI()} {
		res, err := strategy.Simulate(s, 1000, st)
		require.NoError(t, err)
		assert.Empty(t, res.Trades)
		assert.Equal(t, constant(10, 1000), res.PortfolioValues)
	}
}
