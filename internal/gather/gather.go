// Package gather defines the market-data collaborator stocksim depends on:
// live quotes, historical bars and ticker validation, plus the period and
// interval tokens used to request history.
package gather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stocksim/internal/domain"
)

// Errors reported by providers.
var (
	ErrNotFound        = errors.New("symbol not found")
	ErrNoData          = errors.New("no data returned")
	ErrInvalidPeriod   = errors.New("invalid period")
	ErrInvalidInterval = errors.New("invalid interval")
)

// Provider is the interface for a market-data source.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// LiveQuote returns the current quote of symbol, or ErrNotFound.
	LiveQuote(ctx context.Context, symbol string) (*domain.Quote, error)

	// History returns the bars of symbol covering period at the given
	// interval, oldest first. An empty result is reported as ErrNoData.
	History(ctx context.Context, symbol string, period Period, interval Interval) ([]domain.Bar, error)

	// ValidateTicker reports whether symbol exists at the source.
	ValidateTicker(ctx context.Context, symbol string) bool
}

// DateRange represents a time range for data fetching.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Period is a lookback window token such as "1mo" or "max".
type Period string

const (
	Period1D  Period = "1d"
	Period5D  Period = "5d"
	Period1Mo Period = "1mo"
	Period3Mo Period = "3mo"
	Period6Mo Period = "6mo"
	Period1Y  Period = "1y"
	Period2Y  Period = "2y"
	Period5Y  Period = "5y"
	Period10Y Period = "10y"
	PeriodYTD Period = "ytd"
	PeriodMax Period = "max"
)

// Periods lists every valid period token.
func Periods() []Period {
	return []Period{Period1D, Period5D, Period1Mo, Period3Mo, Period6Mo,
		Period1Y, Period2Y, Period5Y, Period10Y, PeriodYTD, PeriodMax}
}

// ParsePeriod validates a period token.
func ParsePeriod(s string) (Period, error) {
	for _, p := range Periods() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

// maxLookbackStart bounds the "max" period; the provider has no US equity
// history before it.
var maxLookbackStart = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Range returns the date range the period covers, ending at now.
func (p Period) Range(now time.Time) (DateRange, error) {
	var start time.Time
	switch p {
	case Period1D:
		start = now.AddDate(0, 0, -1)
	case Period5D:
		start = now.AddDate(0, 0, -5)
	case Period1Mo:
		start = now.AddDate(0, -1, 0)
	case Period3Mo:
		start = now.AddDate(0, -3, 0)
	case Period6Mo:
		start = now.AddDate(0, -6, 0)
	case Period1Y:
		start = now.AddDate(-1, 0, 0)
	case Period2Y:
		start = now.AddDate(-2, 0, 0)
	case Period5Y:
		start = now.AddDate(-5, 0, 0)
	case Period10Y:
		start = now.AddDate(-10, 0, 0)
	case PeriodYTD:
		start = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	case PeriodMax:
		start = maxLookbackStart
	default:
		return DateRange{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, string(p))
	}
	return DateRange{Start: start, End: now}, nil
}

// DaysPeriod maps a lookback in days onto the smallest period covering it.
func DaysPeriod(days int) Period {
	switch {
	case days <= 1:
		return Period1D
	case days <= 5:
		return Period5D
	case days <= 31:
		return Period1Mo
	case days <= 92:
		return Period3Mo
	case days <= 183:
		return Period6Mo
	case days <= 366:
		return Period1Y
	case days <= 731:
		return Period2Y
	case days <= 1827:
		return Period5Y
	case days <= 3653:
		return Period10Y
	}
	return PeriodMax
}

// Interval is a bar size token such as "1d" or "15m".
type Interval string

const (
	Interval1M  Interval = "1m"
	Interval2M  Interval = "2m"
	Interval5M  Interval = "5m"
	Interval15M Interval = "15m"
	Interval30M Interval = "30m"
	Interval60M Interval = "60m"
	Interval90M Interval = "90m"
	Interval1H  Interval = "1h"
	Interval1D  Interval = "1d"
	Interval5D  Interval = "5d"
	Interval1Wk Interval = "1wk"
	Interval1Mo Interval = "1mo"
	Interval3Mo Interval = "3mo"
)

// Intervals lists every interval token.
func Intervals() []Interval {
	return []Interval{Interval1M, Interval2M, Interval5M, Interval15M, Interval30M,
		Interval60M, Interval90M, Interval1H, Interval1D, Interval5D, Interval1Wk,
		Interval1Mo, Interval3Mo}
}

// ParseInterval validates an interval token.
func ParseInterval(s string) (Interval, error) {
	for _, iv := range Intervals() {
		if string(iv) == s {
			return iv, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidInterval, s)
}

// Daily reports whether bars of this interval are at least one day wide.
func (iv Interval) Daily() bool {
	switch iv {
	case Interval1D, Interval5D, Interval1Wk, Interval1Mo, Interval3Mo:
		return true
	}
	return false
}
