package strategy

import "time"

// Action is the side of an executed fill.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Trade is one executed market fill at a bar's closing price.
type Trade struct {
	Date   time.Time `json:"date"`
	Action Action    `json:"action"`
	Price  float64   `json:"price"`
	Shares float64   `json:"shares"`
	Value  float64   `json:"value"`
}

// Position is the mutable state of a run. Fills are all-in/all-out, so
// outside a fill at most one of Cash and Shares is non-zero.
type Position struct {
	Cash   float64
	Shares float64
}

// BuyAll converts all cash into shares at price.
func (p *Position) BuyAll(date time.Time, price float64) Trade {
	p.Shares = p.Cash / price
	p.Cash = 0
	return Trade{
		Date:   date,
		Action: ActionBuy,
		Price:  price,
		Shares: p.Shares,
		Value:  p.Shares * price,
	}
}

// SellAll converts all shares into cash at price.
func (p *Position) SellAll(date time.Time, price float64) Trade {
	p.Cash = p.Shares * price
	t := Trade{
		Date:   date,
		Action: ActionSell,
		Price:  price,
		Shares: p.Shares,
		Value:  p.Cash,
	}
	p.Shares = 0
	return t
}

// Value marks the position to market at price.
func (p Position) Value(price float64) float64 {
	return p.Cash + p.Shares*price
}
