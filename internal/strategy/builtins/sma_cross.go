// Package builtins provides the strategy implementations that ship with
// stocksim.
package builtins

import (
	"stocksim/internal/domain"
	"stocksim/internal/indicator"
	"stocksim/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross implements a simple moving average crossover strategy. It goes
// all-in when the short SMA is strictly above the long SMA and all-out when
// it is strictly below. Exact equality leaves the position unchanged.
type SMACross struct {
	shortPeriod int
	longPeriod  int
}

// NewSMACross creates the 20/50 crossover strategy.
func NewSMACross() *SMACross {
	return &SMACross{
		shortPeriod: indicator.MAShort,
		longPeriod:  indicator.MALong,
	}
}

// Kind returns strategy.MovingAverageCrossover.
func (s *SMACross) Kind() strategy.Kind {
	return strategy.MovingAverageCrossover
}

// Warmup returns the long SMA period.
func (s *SMACross) Warmup() int { return s.longPeriod }

// Run trades on the MA20 and MA50 columns of ser.
func (s *SMACross) Run(ser domain.Series, cash float64) strategy.Outcome {
	pos := strategy.Position{Cash: cash}
	st := stateOut
	out := strategy.Outcome{Values: make([]float64, 0, ser.Len())}

	for i := 0; i < ser.Len(); i++ {
		bar := ser.Bar(i)
		if i < s.longPeriod {
			out.Values = append(out.Values, pos.Value(bar.Close))
			continue
		}

		switch {
		case st == stateOut && bar.MA20 > bar.MA50:
			out.Trades = append(out.Trades, pos.BuyAll(bar.Date, bar.Close))
			st = stateIn
		case st == stateIn && bar.MA20 < bar.MA50:
			out.Trades = append(out.Trades, pos.SellAll(bar.Date, bar.Close))
			st = stateOut
		}
		out.Values = append(out.Values, pos.Value(bar.Close))
	}

	out.Position = pos
	return out
}
