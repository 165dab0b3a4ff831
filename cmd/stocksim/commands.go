package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"stocksim/internal/analysis"
	"stocksim/internal/api"
	"stocksim/internal/domain"
	"stocksim/internal/gather"
	"stocksim/internal/report"
	"stocksim/internal/store"
	"stocksim/internal/strategy"
)

const envKey = "env"

var (
	errSymbolRequired = errors.New("a ticker symbol is required")
	errExtraArgs      = errors.New("unexpected arguments after the symbol")
	errInvalidTicker  = errors.New("invalid ticker")
	errNoBarCache     = errors.New("the bar cache is disabled (fetch.cache_bars)")
)

const dateLayout = "2006-01-02"

func envOf(c *cli.Context) *env {
	return c.App.Metadata[envKey].(*env)
}

// symbolArg returns the single positional symbol. Flags after the symbol are
// not parsed by cli, so any further argument is rejected rather than ignored.
func symbolArg(c *cli.Context) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(c.Args().First()))
	if s == "" {
		return "", errSymbolRequired
	}
	if c.NArg() > 1 {
		return "", fmt.Errorf("%w: %s (flags go before the symbol: %s %s [flags] %s)",
			errExtraArgs, strings.Join(c.Args().Tail(), " "), c.App.Name, c.Command.Name, s)
	}
	return s, nil
}

func (e *env) print(v any, formatted string) error {
	if e.asJSON {
		j, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(e.out, string(j))
		return err
	}
	_, err := fmt.Fprintln(e.out, formatted)
	return err
}

var periodFlag = &cli.StringFlag{
	Name:    "period",
	Aliases: []string{"p"},
	Usage:   "lookback period: " + joinPeriods(),
}

var intervalFlag = &cli.StringFlag{
	Name:    "interval",
	Aliases: []string{"i"},
	Usage:   "bar interval, e.g. 1d, 1wk, 15m",
}

var cashFlag = &cli.Float64Flag{
	Name:  "cash",
	Usage: "initial investment (default from config)",
}

var chartFlag = &cli.StringFlag{
	Name:  "chart",
	Usage: "write a PNG chart of portfolio values to this path",
}

var cachedFlags = []cli.Flag{
	&cli.BoolFlag{Name: "cached", Usage: "replay daily bars from the local cache instead of fetching"},
	&cli.StringFlag{Name: "start", Usage: "first cached day, YYYY-MM-DD (default: start of --period)"},
	&cli.StringFlag{Name: "end", Usage: "last cached day, YYYY-MM-DD (default: today)"},
}

func joinPeriods() string {
	ps := gather.Periods()
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return strings.Join(out, ", ")
}

// window resolves the period and interval flags against the config.
func (e *env) window(c *cli.Context) (gather.Period, gather.Interval, error) {
	p, iv := c.String("period"), c.String("interval")
	if p == "" {
		p = e.cfg.Simulation.Period
	}
	if iv == "" {
		iv = e.cfg.Simulation.Interval
	}
	period, err := gather.ParsePeriod(p)
	if err != nil {
		return "", "", err
	}
	interval, err := gather.ParseInterval(iv)
	if err != nil {
		return "", "", err
	}
	return period, interval, nil
}

var quoteCommand = &cli.Command{
	Name:      "quote",
	Usage:     "show the live quote of a ticker",
	ArgsUsage: "[flags] <symbol>",
	Action: func(c *cli.Context) error {
		symbol, err := symbolArg(c)
		if err != nil {
			return err
		}
		e := envOf(c)
		q, err := e.provider.LiveQuote(c.Context, symbol)
		if err != nil {
			return err
		}
		return e.print(q, e.theme.RenderQuote(q))
	},
}

var historyCommand = &cli.Command{
	Name:      "history",
	Usage:     "show historical bars of a ticker",
	ArgsUsage: "[flags] <symbol>",
	Flags:     []cli.Flag{periodFlag, intervalFlag},
	Action: func(c *cli.Context) error {
		symbol, err := symbolArg(c)
		if err != nil {
			return err
		}
		e := envOf(c)
		period, interval, err := e.window(c)
		if err != nil {
			return err
		}
		bars, err := e.provider.History(c.Context, symbol, period, interval)
		if err != nil {
			return err
		}
		return e.print(bars, e.theme.RenderBars(bars, !interval.Daily()))
	},
}

var analyzeCommand = &cli.Command{
	Name:      "analyze",
	Usage:     "show the quote plus returns, moving averages and volatility",
	ArgsUsage: "[flags] <symbol>",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "days", Value: 30, Usage: "days of history to analyze"},
		&cli.IntFlag{Name: "rows", Value: 10, Usage: "number of most recent rows to print (0 for all)"},
	},
	Action: func(c *cli.Context) error {
		symbol, err := symbolArg(c)
		if err != nil {
			return err
		}
		e := envOf(c)
		a, err := analysis.Prepare(c.Context, e.provider, symbol, c.Int("days"), time.Now())
		if err != nil {
			return err
		}

		out := e.theme.RenderQuote(a.Quote)
		var rows []analysis.Row
		if a.Frame != nil {
			rows = a.Frame.Rows()
			out += "\n" + e.theme.RenderFrame(a.Frame, c.Int("rows"))
		} else {
			out += "\n" + e.theme.Dim.Render("no history available")
		}
		return e.print(map[string]any{"quote": a.Quote, "rows": rows}, out)
	},
}

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "check whether a ticker exists",
	ArgsUsage: "[flags] <symbol>",
	Action: func(c *cli.Context) error {
		symbol, err := symbolArg(c)
		if err != nil {
			return err
		}
		e := envOf(c)
		ok := e.provider.ValidateTicker(c.Context, symbol)
		msg := e.theme.Loss.Render(symbol + " is not a valid ticker")
		if ok {
			msg = e.theme.Gain.Render(symbol + " is valid")
		}
		if err := e.print(map[string]any{"symbol": symbol, "valid": ok}, msg); err != nil {
			return err
		}
		if !ok {
			return errInvalidTicker
		}
		return nil
	},
}

var simulateCommand = &cli.Command{
	Name:      "simulate",
	Usage:     "replay one strategy over a ticker's history",
	ArgsUsage: "[flags] <symbol>",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:    "strategy",
			Aliases: []string{"s"},
			Value:   strategy.BuyAndHold.Slug(),
			Usage:   "buy-and-hold, ma-crossover or rsi",
		},
		cashFlag, periodFlag, intervalFlag, chartFlag,
	}, cachedFlags...),
	Action: func(c *cli.Context) error {
		symbol, err := symbolArg(c)
		if err != nil {
			return err
		}
		e := envOf(c)
		st, err := e.registry.Lookup(c.String("strategy"))
		if err != nil {
			return err
		}

		var res *strategy.Result
		if c.Bool("cached") {
			bt, start, end, err := e.cachedRange(c)
			if err != nil {
				return err
			}
			res, err = bt.Run(c.Context, st.Kind(), symbol, start, end, e.cash(c))
			if err != nil {
				return err
			}
		} else {
			series, err := e.series(c, symbol)
			if err != nil {
				return err
			}
			res, err = strategy.Simulate(series, e.cash(c), st)
			if err != nil {
				return err
			}
		}
		if err := e.chart(c, symbol, res); err != nil {
			return err
		}
		return e.print(res, e.theme.RenderResult(symbol, res))
	},
}

var compareCommand = &cli.Command{
	Name:      "compare",
	Usage:     "replay every strategy over a ticker's history side by side",
	ArgsUsage: "[flags] <symbol>",
	Flags:     append([]cli.Flag{cashFlag, periodFlag, intervalFlag, chartFlag}, cachedFlags...),
	Action: func(c *cli.Context) error {
		symbol, err := symbolArg(c)
		if err != nil {
			return err
		}
		e := envOf(c)

		var results []*strategy.Result
		if c.Bool("cached") {
			bt, start, end, err := e.cachedRange(c)
			if err != nil {
				return err
			}
			results, err = bt.RunAll(c.Context, symbol, start, end, e.cash(c))
			if err != nil {
				return err
			}
		} else {
			series, err := e.series(c, symbol)
			if err != nil {
				return err
			}
			results, err = strategy.NewBacktester(nil, e.registry).Compare(c.Context, series, e.cash(c))
			if err != nil {
				return err
			}
		}
		if err := e.chart(c, symbol, results...); err != nil {
			return err
		}
		return e.print(results, e.theme.RenderComparison(symbol, results))
	},
}

var cacheCommand = &cli.Command{
	Name:  "cache",
	Usage: "list the symbols in the daily bar cache and the days they cover",
	Action: func(c *cli.Context) error {
		e := envOf(c)
		if e.bars == nil {
			return errNoBarCache
		}
		symbols, err := e.bars.ListSymbols(c.Context, store.DefaultMarket)
		if err != nil {
			return err
		}
		entries := make([]report.CacheEntry, 0, len(symbols))
		for _, sym := range symbols {
			first, last, ok := e.bars.Coverage(sym, store.DefaultMarket)
			if !ok {
				continue
			}
			entries = append(entries, report.CacheEntry{Symbol: sym, First: first, Last: last})
		}
		return e.print(entries, e.theme.RenderCache(entries))
	},
}

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "run the HTTP API",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "host", Usage: "listen host (default from config)"},
		&cli.IntFlag{Name: "port", Usage: "listen port (default from config)"},
	},
	Action: func(c *cli.Context) error {
		e := envOf(c)
		if h := c.String("host"); h != "" {
			e.cfg.Server.Host = h
		}
		if p := c.Int("port"); p != 0 {
			e.cfg.Server.Port = p
		}
		return api.NewServer(e.cfg, e.provider, e.registry).ListenAndServe(c.Context)
	},
}

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "print the version",
	Action: func(c *cli.Context) error {
		_, err := fmt.Fprintf(envOf(c).out, "stocksim %s\n", version)
		return err
	},
}

// series fetches the history selected by the period and interval flags.
func (e *env) series(c *cli.Context, symbol string) (domain.Series, error) {
	period, interval, err := e.window(c)
	if err != nil {
		return domain.Series{}, err
	}
	bars, err := e.provider.History(c.Context, symbol, period, interval)
	if err != nil {
		return domain.Series{}, err
	}
	return domain.SeriesFromBars(bars), nil
}

// cachedRange resolves --start and --end for a replay from the bar cache.
// A missing start falls back to the start of --period.
func (e *env) cachedRange(c *cli.Context) (*strategy.Backtester, time.Time, time.Time, error) {
	if e.bars == nil {
		return nil, time.Time{}, time.Time{}, errNoBarCache
	}
	end := time.Now().UTC()
	if v := c.String("end"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, time.Time{}, time.Time{}, fmt.Errorf("%w: --end %q", strategy.ErrInvalidInput, v)
		}
		end = d.Add(24*time.Hour - time.Millisecond)
	}
	var start time.Time
	if v := c.String("start"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, time.Time{}, time.Time{}, fmt.Errorf("%w: --start %q", strategy.ErrInvalidInput, v)
		}
		start = d
	} else {
		period, _, err := e.window(c)
		if err != nil {
			return nil, time.Time{}, time.Time{}, err
		}
		rng, err := period.Range(end)
		if err != nil {
			return nil, time.Time{}, time.Time{}, err
		}
		start = rng.Start
	}
	return strategy.NewBacktester(e.bars, e.registry), start, end, nil
}

func (e *env) cash(c *cli.Context) float64 {
	if c.IsSet("cash") {
		return c.Float64("cash")
	}
	return e.cfg.Simulation.InitialCash
}

func (e *env) chart(c *cli.Context, symbol string, results ...*strategy.Result) error {
	path := c.String("chart")
	if path == "" {
		return nil
	}
	png, err := report.EquityChart(symbol, e.theme.Dark, results...)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("writing chart: %w", err)
	}
	return nil
}
