package domain

import (
	"math"
	"time"
)

// Column names an optional indicator column on a Series.
type Column string

const (
	ColumnMA20 Column = "MA20"
	ColumnMA50 Column = "MA50"
	ColumnRSI  Column = "RSI"
)

// Series is an ordered, columnar sequence of daily prices. Dates and Close
// are mandatory and of equal length. Indicator columns are optional: a nil
// slice means the column is absent, a NaN element means "no value" for that
// bar.
type Series struct {
	Dates []time.Time
	Close []float64

	MA20 []float64
	MA50 []float64
	RSI  []float64
}

// PriceBar is a row view of a Series.
type PriceBar struct {
	Date  time.Time
	Close float64
	MA20  float64
	MA50  float64
	RSI   float64
}

// NewSeries builds a Series from parallel date and close slices.
func NewSeries(dates []time.Time, closes []float64) Series {
	return Series{Dates: dates, Close: closes}
}

// SeriesFromBars projects bars onto a Series, keeping their order.
func SeriesFromBars(bars []Bar) Series {
	s := Series{
		Dates: make([]time.Time, len(bars)),
		Close: make([]float64, len(bars)),
	}
	for i, b := range bars {
		s.Dates[i] = b.Timestamp
		s.Close[i] = b.Close
	}
	return s
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s.Close) }

// Has reports whether the indicator column is present.
func (s Series) Has(c Column) bool {
	return s.column(c) != nil
}

func (s Series) column(c Column) []float64 {
	switch c {
	case ColumnMA20:
		return s.MA20
	case ColumnMA50:
		return s.MA50
	case ColumnRSI:
		return s.RSI
	}
	return nil
}

// Bar returns row i. Absent indicator columns read as NaN.
func (s Series) Bar(i int) PriceBar {
	return PriceBar{
		Date:  s.Dates[i],
		Close: s.Close[i],
		MA20:  at(s.MA20, i),
		MA50:  at(s.MA50, i),
		RSI:   at(s.RSI, i),
	}
}

// Clone returns a copy of the Series header. Column slices are shared, so
// assigning a new column on the clone leaves the original untouched.
func (s Series) Clone() Series {
	return s
}

func at(col []float64, i int) float64 {
	if i >= len(col) {
		return math.NaN()
	}
	return col[i]
}
