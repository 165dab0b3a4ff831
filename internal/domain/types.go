// Package domain defines the core market-data types shared across stocksim:
// OHLCV bars, live quotes, listed assets and the columnar price series the
// strategy simulator consumes.
package domain

import "time"

// Bar is a single OHLCV observation for one symbol and one period.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// Quote is a point-in-time snapshot of a symbol's trading session.
type Quote struct {
	Symbol        string    `json:"symbol"`
	CurrentPrice  float64   `json:"current_price"`
	PreviousClose float64   `json:"previous_close"`
	Open          float64   `json:"open"`
	DayLow        float64   `json:"day_low"`
	DayHigh       float64   `json:"day_high"`
	Volume        int64     `json:"volume"`
	MarketCap     float64   `json:"market_cap"`
	CompanyName   string    `json:"company_name"`
	Currency      string    `json:"currency"`
	Exchange      string    `json:"exchange"`
	Timestamp     time.Time `json:"timestamp"`
}

// DailyChange returns CurrentPrice - PreviousClose, or 0 when either side is
// unknown.
func (q Quote) DailyChange() float64 {
	if q.CurrentPrice == 0 || q.PreviousClose == 0 {
		return 0
	}
	return q.CurrentPrice - q.PreviousClose
}

// DailyChangePercent returns the daily change as a percentage of the previous
// close.
func (q Quote) DailyChangePercent() float64 {
	if q.CurrentPrice == 0 || q.PreviousClose == 0 {
		return 0
	}
	return q.DailyChange() / q.PreviousClose * 100
}

// Asset describes a tradable instrument as known to the market-data source.
type Asset struct {
	Symbol    string
	Name      string
	Exchange  string
	Tradable  bool
	CheckedAt time.Time
}
