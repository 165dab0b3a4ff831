// Package analysis prepares the quote plus derived-metrics view shown by the
// analyze command: daily returns, short moving averages and rolling
// volatility over recent daily bars.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"stocksim/internal/domain"
	"stocksim/internal/gather"
	"stocksim/internal/indicator"
)

// VolatilityWindow is the number of daily returns per volatility sample.
const VolatilityWindow = 5

// Frame holds bars and the metrics derived from them, column by column. NaN
// marks a bar with no value. Volatility is nil when there are fewer than
// VolatilityWindow bars.
type Frame struct {
	Symbol      string
	Bars        []domain.Bar
	DailyReturn []float64
	MA5         []float64
	MA10        []float64
	MA20        []float64
	Volatility  []float64
}

// Row is one bar of a Frame. Nil metrics have no value.
type Row struct {
	Date        string   `json:"date"`
	Open        float64  `json:"open"`
	High        float64  `json:"high"`
	Low         float64  `json:"low"`
	Close       float64  `json:"close"`
	Volume      int64    `json:"volume"`
	DailyReturn *float64 `json:"daily_return"`
	MA5         *float64 `json:"ma5"`
	MA10        *float64 `json:"ma10"`
	MA20        *float64 `json:"ma20"`
	Volatility  *float64 `json:"volatility"`
}

// Build derives the analysis columns from bars ordered oldest first.
func Build(bars []domain.Bar) *Frame {
	n := len(bars)
	closes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
	}

	f := &Frame{
		Bars:        bars,
		DailyReturn: dailyReturns(closes),
		MA5:         indicator.SMA(closes, 5),
		MA10:        indicator.SMA(closes, 10),
		MA20:        indicator.SMA(closes, min(20, n)),
	}
	if n > 0 {
		f.Symbol = bars[0].Symbol
	}
	if n >= VolatilityWindow {
		f.Volatility = rollingStd(f.DailyReturn, VolatilityWindow)
	}
	return f
}

// Len returns the number of bars.
func (f *Frame) Len() int { return len(f.Bars) }

// Row returns bar i as a row.
func (f *Frame) Row(i int) Row {
	b := f.Bars[i]
	return Row{
		Date:        b.Timestamp.Format(time.DateOnly),
		Open:        b.Open,
		High:        b.High,
		Low:         b.Low,
		Close:       b.Close,
		Volume:      b.Volume,
		DailyReturn: value(f.DailyReturn, i),
		MA5:         value(f.MA5, i),
		MA10:        value(f.MA10, i),
		MA20:        value(f.MA20, i),
		Volatility:  value(f.Volatility, i),
	}
}

// Rows returns every bar as a row.
func (f *Frame) Rows() []Row {
	rows := make([]Row, f.Len())
	for i := range rows {
		rows[i] = f.Row(i)
	}
	return rows
}

// Analysis is a live quote plus the frame over recent history.
type Analysis struct {
	Quote *domain.Quote
	Frame *Frame // nil when no history is available
}

// Prepare fetches the live quote and the daily bars of symbol dated within
// days of now, and derives the analysis frame. A failed quote is an error;
// missing history only leaves Frame nil.
func Prepare(ctx context.Context, p gather.Provider, symbol string, days int, now time.Time) (*Analysis, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	log := slog.Default().With("component", "analysis", "symbol", symbol)

	q, err := p.LiveQuote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetching quote: %w", err)
	}
	out := &Analysis{Quote: q}

	bars, err := p.History(ctx, symbol, gather.DaysPeriod(days), gather.Interval1D)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("no history for analysis", "days", days, "error", err)
		return out, nil
	}

	cutoff := now.AddDate(0, 0, -days)
	for len(bars) > 0 && bars[0].Timestamp.Before(cutoff) {
		bars = bars[1:]
	}
	if len(bars) == 0 {
		return out, nil
	}
	out.Frame = Build(bars)
	return out, nil
}

// dailyReturns returns the percentage change of each close from the one
// before it. The first bar has no return.
func dailyReturns(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		if i == 0 || closes[i-1] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (closes[i]/closes[i-1] - 1) * 100
	}
	return out
}

// rollingStd returns the sample standard deviation of each window of values
// ending at i. Windows containing NaN have no value.
func rollingStd(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		out[i] = math.NaN()
		if i+1 < window {
			continue
		}
		w := values[i+1-window : i+1]
		if slices.ContainsFunc(w, math.IsNaN) {
			continue
		}
		out[i] = stat.StdDev(w, nil)
	}
	return out
}

func value(col []float64, i int) *float64 {
	if i >= len(col) || math.IsNaN(col[i]) {
		return nil
	}
	v := col[i]
	return &v
}
