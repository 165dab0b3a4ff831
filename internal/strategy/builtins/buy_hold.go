package builtins

import (
	"stocksim/internal/domain"
	"stocksim/internal/strategy"
)

var _ strategy.Strategy = (*BuyAndHold)(nil)

// BuyAndHold buys at the first close and holds to the end of the series.
type BuyAndHold struct{}

// NewBuyAndHold creates the buy-and-hold benchmark strategy.
func NewBuyAndHold() *BuyAndHold { return &BuyAndHold{} }

// Kind returns strategy.BuyAndHold.
func (b *BuyAndHold) Kind() strategy.Kind { return strategy.BuyAndHold }

// Warmup returns 0.
func (b *BuyAndHold) Warmup() int { return 0 }

// Run buys with all cash at bar 0 and values the holding at every close.
// The closing SELL at the last bar is recorded for the trade log only: the
// returned position still holds the shares, which values identically at the
// last close.
func (b *BuyAndHold) Run(s domain.Series, cash float64) strategy.Outcome {
	pos := strategy.Position{Cash: cash}
	n := s.Len()
	out := strategy.Outcome{Values: make([]float64, 0, n)}

	first := s.Bar(0)
	out.Trades = append(out.Trades, pos.BuyAll(first.Date, first.Close))

	for i := 0; i < n; i++ {
		out.Values = append(out.Values, pos.Shares*s.Close[i])
	}

	last := s.Bar(n - 1)
	exit := pos
	out.Trades = append(out.Trades, exit.SellAll(last.Date, last.Close))

	out.Position = pos
	return out
}
