package report

import (
	"errors"
	"fmt"
	"math"
	"time"

	charts "github.com/vicanso/go-charts/v2"

	"stocksim/internal/strategy"
)

// ErrNoValues is returned when there is nothing to plot.
var ErrNoValues = errors.New("no portfolio values to chart")

// EquityChart renders the portfolio value of each result over time as a PNG
// line chart. All results must cover the same dates.
func EquityChart(title string, dark bool, results ...*strategy.Result) ([]byte, error) {
	if len(results) == 0 || len(results[0].PortfolioValues) == 0 {
		return nil, ErrNoValues
	}
	n := len(results[0].Dates)

	values := make([][]float64, 0, len(results))
	names := make([]string, 0, len(results))
	yMin, yMax := math.Inf(1), math.Inf(-1)
	for _, r := range results {
		if len(r.PortfolioValues) != n {
			return nil, fmt.Errorf("result %s has %d values, want %d", r.Strategy, len(r.PortfolioValues), n)
		}
		for _, v := range r.PortfolioValues {
			yMin = math.Min(yMin, v)
			yMax = math.Max(yMax, v)
		}
		values = append(values, r.PortfolioValues)
		names = append(names, r.Strategy.String())
	}

	padding := (yMax - yMin) * 0.05
	if padding == 0 {
		padding = yMax * 0.05
	}
	yMin -= padding
	yMax += padding

	xLabels := make([]string, n)
	for i, d := range results[0].Dates {
		xLabels[i] = d.Format(labelLayout(results[0].Dates))
	}

	split := 6
	if n <= 30 {
		split = max(n/3, 3)
	}

	theme := charts.ThemeLight
	if dark {
		theme = charts.ThemeDark
	}

	p, err := charts.LineRender(
		values,
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: split,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: names,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(theme),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(500),
	)
	if err != nil {
		return nil, fmt.Errorf("rendering chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding chart: %w", err)
	}
	return buf, nil
}

// labelLayout picks a date layout fitting the span of dates.
func labelLayout(dates []time.Time) string {
	if len(dates) < 2 {
		return time.DateOnly
	}
	span := dates[len(dates)-1].Sub(dates[0])
	switch {
	case span > 2*365*24*time.Hour:
		return "Jan '06"
	case span > 2*24*time.Hour:
		return "Jan 02"
	}
	return "15:04"
}
