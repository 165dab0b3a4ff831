package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"stocksim/internal/analysis"
	"stocksim/internal/domain"
	"stocksim/internal/strategy"
)

// RenderQuote renders a live quote card.
func (t Theme) RenderQuote(q *domain.Quote) string {
	name := q.CompanyName
	if name == "" {
		name = q.Symbol
	}
	change := fmt.Sprintf("%+.2f (%s)", q.DailyChange(), FormatPercent(q.DailyChangePercent()))

	var b strings.Builder
	b.WriteString(t.Title.Render(fmt.Sprintf("%s  %s", q.Symbol, name)))
	b.WriteString("\n")
	t.field(&b, "Price", t.Highlight.Render(FormatPrice(q.CurrentPrice)+" "+q.Currency))
	t.field(&b, "Change", t.signed(q.DailyChange(), change))
	t.field(&b, "Prev Close", t.Value.Render(FormatPrice(q.PreviousClose)))
	t.field(&b, "Open", t.Value.Render(FormatPrice(q.Open)))
	t.field(&b, "Day Range", t.Value.Render(FormatPrice(q.DayLow)+" - "+FormatPrice(q.DayHigh)))
	t.field(&b, "Volume", t.Value.Render(FormatInt(q.Volume)))
	if q.MarketCap > 0 {
		t.field(&b, "Market Cap", t.Value.Render(FormatVolume(q.MarketCap)))
	}
	if q.Exchange != "" {
		t.field(&b, "Exchange", t.Value.Render(q.Exchange))
	}
	t.field(&b, "As Of", t.Dim.Render(q.Timestamp.Format(time.DateTime)))
	return t.Box.Render(strings.TrimRight(b.String(), "\n"))
}

// RenderFrame renders the last limit rows of an analysis frame as a table.
// limit <= 0 renders every row.
func (t Theme) RenderFrame(f *analysis.Frame, limit int) string {
	rows := f.Rows()
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}

	var b strings.Builder
	b.WriteString(t.Header.Render(fmt.Sprintf("%-10s %9s %8s %9s %9s %9s %7s %12s",
		"Date", "Close", "Return", "MA5", "MA10", "MA20", "Vol", "Volume")))
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(t.Value.Render(fmt.Sprintf("%-10s %9s ", r.Date, FormatPrice(r.Close))))
		if r.DailyReturn != nil {
			b.WriteString(t.signed(*r.DailyReturn, fmt.Sprintf("%8s", FormatPercent(*r.DailyReturn))))
		} else {
			b.WriteString(t.Dim.Render(fmt.Sprintf("%8s", "-")))
		}
		b.WriteString(t.Value.Render(fmt.Sprintf(" %9s %9s %9s %7s %12s",
			optional(r.MA5, "%.2f"), optional(r.MA10, "%.2f"), optional(r.MA20, "%.2f"),
			optional(r.Volatility, "%.2f"), FormatInt(r.Volume))))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderBars renders OHLCV bars as a table. Intraday bars carry their time.
func (t Theme) RenderBars(bars []domain.Bar, intraday bool) string {
	layout := time.DateOnly
	if intraday {
		layout = "2006-01-02 15:04"
	}
	var b strings.Builder
	b.WriteString(t.Header.Render(fmt.Sprintf("%-16s %9s %9s %9s %9s %12s", "Date", "Open", "High", "Low", "Close", "Volume")))
	for i, bar := range bars {
		b.WriteString("\n")
		line := fmt.Sprintf("%-16s %9s %9s %9s %9s %12s", bar.Timestamp.Format(layout),
			FormatPrice(bar.Open), FormatPrice(bar.High), FormatPrice(bar.Low), FormatPrice(bar.Close), FormatInt(bar.Volume))
		if i > 0 {
			b.WriteString(t.signed(bar.Close-bars[i-1].Close, line))
		} else {
			b.WriteString(t.Value.Render(line))
		}
	}
	return b.String()
}

// RenderResult renders the summary and trade log of one simulation.
func (t Theme) RenderResult(symbol string, r *strategy.Result) string {
	var b strings.Builder
	b.WriteString(t.Title.Render(fmt.Sprintf("%s  %s", symbol, r.Strategy)))
	b.WriteString("\n")
	t.field(&b, "Period", t.Value.Render(r.StartDate.Format(time.DateOnly)+" to "+r.EndDate.Format(time.DateOnly)))
	t.field(&b, "Invested", t.Value.Render(FormatMoney(r.InitialInvestment)))
	t.field(&b, "Final Value", t.Highlight.Render(FormatMoney(r.FinalValue)))
	t.field(&b, "Return", t.signed(r.ReturnPct, FormatPercent(r.ReturnPct)))
	t.field(&b, "Annualized", t.signed(r.AnnualizedReturnPct, FormatPercent(r.AnnualizedReturnPct)))
	t.field(&b, "Buy & Hold", t.signed(r.BuyHoldReturnPct, FormatPercent(r.BuyHoldReturnPct)))
	t.field(&b, "Max Drawdown", t.Loss.Render(fmt.Sprintf("%.2f%%", r.MaxDrawdownPct)))
	t.field(&b, "Round Trips", t.Value.Render(fmt.Sprintf("%d (%.0f%% won)", r.RoundTrips, r.WinRatePct)))

	summary := t.Box.Render(strings.TrimRight(b.String(), "\n"))
	if len(r.Trades) == 0 {
		return summary + "\n" + t.Dim.Render("no trades")
	}
	return lipgloss.JoinVertical(lipgloss.Left, summary, t.renderTrades(r.Trades))
}

func (t Theme) renderTrades(trades []strategy.Trade) string {
	var b strings.Builder
	b.WriteString(t.Header.Render(fmt.Sprintf("%-10s %-4s %10s %12s %14s", "Date", "Side", "Price", "Shares", "Value")))
	for _, tr := range trades {
		b.WriteString("\n")
		line := fmt.Sprintf("%-10s %-4s %10s %12.4f %14s",
			tr.Date.Format(time.DateOnly), tr.Action, FormatPrice(tr.Price), tr.Shares, FormatMoney(tr.Value))
		if tr.Action == strategy.ActionBuy {
			b.WriteString(t.Gain.Render(line))
		} else {
			b.WriteString(t.Loss.Render(line))
		}
	}
	return b.String()
}

// RenderComparison renders one row per simulation, best return first
// highlighted.
func (t Theme) RenderComparison(symbol string, results []*strategy.Result) string {
	var b strings.Builder
	b.WriteString(t.Title.Render(symbol + "  strategy comparison"))
	b.WriteString("\n")
	b.WriteString(t.Header.Render(fmt.Sprintf("%-26s %14s %10s %10s %9s %7s", "Strategy", "Final Value", "Return", "Annual", "Max DD", "Trades")))

	best := -1
	for i, r := range results {
		if best < 0 || r.ReturnPct > results[best].ReturnPct {
			best = i
		}
	}
	for i, r := range results {
		b.WriteString("\n")
		name := fmt.Sprintf("%-26s", r.Strategy.String())
		if i == best {
			b.WriteString(t.Highlight.Render(name))
		} else {
			b.WriteString(t.Value.Render(name))
		}
		b.WriteString(t.Value.Render(fmt.Sprintf(" %14s ", FormatMoney(r.FinalValue))))
		b.WriteString(t.signed(r.ReturnPct, fmt.Sprintf("%10s", FormatPercent(r.ReturnPct))))
		b.WriteString(" ")
		b.WriteString(t.signed(r.AnnualizedReturnPct, fmt.Sprintf("%10s", FormatPercent(r.AnnualizedReturnPct))))
		b.WriteString(t.Value.Render(fmt.Sprintf(" %8.2f%% %7d", r.MaxDrawdownPct, len(r.Trades))))
	}
	return b.String()
}

// CacheEntry describes the cached daily bars of one symbol.
type CacheEntry struct {
	Symbol string    `json:"symbol"`
	First  time.Time `json:"first"`
	Last   time.Time `json:"last"`
}

// RenderCache renders the bar cache listing.
func (t Theme) RenderCache(entries []CacheEntry) string {
	if len(entries) == 0 {
		return t.Dim.Render("bar cache is empty")
	}
	var b strings.Builder
	b.WriteString(t.Header.Render(fmt.Sprintf("%-8s %-10s %-10s", "Symbol", "First", "Last")))
	for _, e := range entries {
		b.WriteString("\n")
		b.WriteString(t.Label.Render(fmt.Sprintf("%-8s", e.Symbol)))
		b.WriteString(t.Value.Render(fmt.Sprintf(" %-10s %-10s", e.First.Format(time.DateOnly), e.Last.Format(time.DateOnly))))
	}
	return b.String()
}

func (t Theme) field(b *strings.Builder, label, value string) {
	b.WriteString(t.Label.Render(fmt.Sprintf("%-13s", label)))
	b.WriteString(value)
	b.WriteString("\n")
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
