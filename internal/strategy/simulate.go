package strategy

import (
	"errors"
	"fmt"
	"math"
	"time"

	"stocksim/internal/domain"
	"stocksim/internal/indicator"
)

// Errors returned by Simulate.
var (
	// ErrInvalidInput is returned for an empty series, a non-positive
	// initial cash amount or an unknown strategy.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedData is returned when the series itself is unusable:
	// non-finite or non-positive closes, dates going backwards, or columns
	// of mismatched length.
	ErrMalformedData = errors.New("malformed data")
)

const daysPerYear = 365.25

// Result is the outcome of one simulation. It is built once by Simulate and
// never modified afterwards.
type Result struct {
	Strategy            Kind      `json:"strategy"`
	InitialInvestment   float64   `json:"initial_investment"`
	StartDate           time.Time `json:"start_date"`
	EndDate             time.Time `json:"end_date"`
	FinalValue          float64   `json:"final_value"`
	ReturnPct           float64   `json:"return_pct"`
	AnnualizedReturnPct float64   `json:"annualized_return"`
	BuyHoldReturnPct    float64   `json:"buy_hold_return"`
	Trades              []Trade   `json:"trades"`

	// Dates and PortfolioValues hold one entry per input bar.
	Dates           []time.Time `json:"dates"`
	PortfolioValues []float64   `json:"portfolio_values"`

	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	RoundTrips     int     `json:"round_trips"`
	WinRatePct     float64 `json:"win_rate_pct"`
}

// Simulate replays st over s starting with initialCash and derives the
// summary statistics. Indicator columns missing from s are computed on a
// copy; s itself is never written to.
func Simulate(s domain.Series, initialCash float64, st Strategy) (*Result, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: no strategy given", ErrInvalidInput)
	}
	if s.Len() == 0 {
		return nil, fmt.Errorf("%w: empty price series", ErrInvalidInput)
	}
	if !(initialCash > 0) || math.IsInf(initialCash, 1) {
		return nil, fmt.Errorf("%w: initial cash must be positive, got %v", ErrInvalidInput, initialCash)
	}
	if err := Validate(s); err != nil {
		return nil, err
	}

	series := indicator.WithIndicators(s)
	out := st.Run(series, initialCash)

	n := series.Len()
	first, last := series.Close[0], series.Close[n-1]

	res := &Result{
		Strategy:          st.Kind(),
		InitialInvestment: initialCash,
		StartDate:         series.Dates[0],
		EndDate:           series.Dates[n-1],
		Trades:            out.Trades,
		Dates:             append([]time.Time(nil), series.Dates...),
		PortfolioValues:   out.Values,
	}

	res.FinalValue = out.Position.Value(last)
	res.ReturnPct = (res.FinalValue/initialCash - 1) * 100
	res.BuyHoldReturnPct = (last/first - 1) * 100
	res.AnnualizedReturnPct = annualize(res.ReturnPct, res.StartDate, res.EndDate)
	res.MaxDrawdownPct = maxDrawdown(out.Values)
	res.RoundTrips, res.WinRatePct = roundTrips(out.Trades)

	return res, nil
}

// Validate checks that s is a usable price series.
func Validate(s domain.Series) error {
	n := len(s.Close)
	if len(s.Dates) != n {
		return fmt.Errorf("%w: %d dates for %d closes", ErrMalformedData, len(s.Dates), n)
	}
	for _, col := range []struct {
		name domain.Column
		vals []float64
	}{
		{domain.ColumnMA20, s.MA20},
		{domain.ColumnMA50, s.MA50},
		{domain.ColumnRSI, s.RSI},
	} {
		if col.vals != nil && len(col.vals) != n {
			return fmt.Errorf("%w: column %s has %d values for %d bars", ErrMalformedData, col.name, len(col.vals), n)
		}
	}
	for i, c := range s.Close {
		if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
			return fmt.Errorf("%w: close %v at bar %d", ErrMalformedData, c, i)
		}
		if i > 0 && s.Dates[i].Before(s.Dates[i-1]) {
			return fmt.Errorf("%w: date %s at bar %d precedes %s", ErrMalformedData,
				s.Dates[i].Format(time.DateOnly), i, s.Dates[i-1].Format(time.DateOnly))
		}
	}
	return nil
}

// annualize converts a total return into a compound yearly rate. Series
// spanning less than one whole day report 0.
func annualize(returnPct float64, start, end time.Time) float64 {
	days := int(end.Sub(start) / (24 * time.Hour))
	years := float64(days) / daysPerYear
	if years <= 0 {
		return 0
	}
	return (math.Pow(1+returnPct/100, 1/years) - 1) * 100
}

func maxDrawdown(values []float64) float64 {
	var peak, worst float64
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak * 100; dd > worst {
			worst = dd
		}
	}
	return worst
}

// roundTrips pairs each BUY with the following SELL and reports how many
// pairs closed and the share of them that closed above their entry value.
func roundTrips(trades []Trade) (int, float64) {
	var closed, wins int
	var entry *Trade
	for i := range trades {
		switch trades[i].Action {
		case ActionBuy:
			entry = &trades[i]
		case ActionSell:
			if entry == nil {
				continue
			}
			closed++
			if trades[i].Value > entry.Value {
				wins++
			}
			entry = nil
		}
	}
	if closed == 0 {
		return 0, 0
	}
	return closed, float64(wins) / float64(closed) * 100
}
