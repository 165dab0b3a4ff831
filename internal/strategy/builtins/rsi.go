package builtins

import (
	"math"

	"stocksim/internal/domain"
	"stocksim/internal/indicator"
	"stocksim/internal/strategy"
)

var _ strategy.Strategy = (*RSI)(nil)

// RSI buys when the RSI drops strictly below the oversold level and sells
// when it rises strictly above the overbought level.
type RSI struct {
	window     int
	oversold   float64
	overbought float64
}

// NewRSI creates the 14-bar RSI strategy with 30/70 thresholds.
func NewRSI() *RSI {
	return &RSI{
		window:     indicator.RSIWindow,
		oversold:   30,
		overbought: 70,
	}
}

// Kind returns strategy.RSIStrategy.
func (r *RSI) Kind() strategy.Kind { return strategy.RSIStrategy }

// Warmup returns the RSI window.
func (r *RSI) Warmup() int { return r.window }

// Run trades on the RSI column of s. Bars inside the warm-up window or with
// no RSI value never trade.
func (r *RSI) Run(s domain.Series, cash float64) strategy.Outcome {
	pos := strategy.Position{Cash: cash}
	st := stateOut
	out := strategy.Outcome{Values: make([]float64, 0, s.Len())}

	for i := 0; i < s.Len(); i++ {
		bar := s.Bar(i)
		if i < r.window || math.IsNaN(bar.RSI) {
			out.Values = append(out.Values, pos.Value(bar.Close))
			continue
		}

		switch {
		case st == stateOut && bar.RSI < r.oversold:
			out.Trades = append(out.Trades, pos.BuyAll(bar.Date, bar.Close))
			st = stateIn
		case st == stateIn && bar.RSI > r.overbought:
			out.Trades = append(out.Trades, pos.SellAll(bar.Date, bar.Close))
			st = stateOut
		}
		out.Values = append(out.Values, pos.Value(bar.Close))
	}

	out.Position = pos
	return out
}
