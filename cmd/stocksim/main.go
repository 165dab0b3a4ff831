package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"stocksim/internal/config"
	"stocksim/internal/gather"
	"stocksim/internal/gather/us"
	"stocksim/internal/report"
	"stocksim/internal/store"
	"stocksim/internal/strategy"
	"stocksim/internal/strategy/builtins"
	"stocksim/internal/util"
)

var version = "dev"

// env is what every command runs against.
type env struct {
	cfg      *config.Config
	provider gather.Provider
	bars     *store.ParquetStore // nil when the bar cache is disabled
	registry *strategy.Registry
	theme    report.Theme
	out      io.Writer
	asJSON   bool
	closers  []io.Closer
}

func (e *env) Close() {
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			slog.Warn("closing", "error", err)
		}
	}
}

// openFunc builds the env for a command invocation.
type openFunc func(c *cli.Context, cfg *config.Config) (*env, error)

// openAlpaca wires the Alpaca provider over the local caches.
func openAlpaca(_ *cli.Context, cfg *config.Config) (*env, error) {
	e := &env{cfg: cfg, registry: builtins.NewRegistry()}

	opts := us.Options{
		APIKey:    cfg.Alpaca.APIKey,
		APISecret: cfg.Alpaca.APISecret,
		BaseURL:   cfg.Alpaca.BaseURL,
		DataURL:   cfg.Alpaca.DataURL,
		Feed:      cfg.Fetch.Feed,
		Limiter:   util.NewRateLimiter(cfg.Fetch.RateLimitPerMin),
	}
	if cfg.Fetch.CacheBars {
		e.bars = store.NewParquetStore(cfg.Storage.DataDir)
		opts.Bars = e.bars
	}
	if cfg.Storage.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite dir: %w", err)
		}
		db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		opts.Quotes, opts.Assets = db, db
		e.closers = append(e.closers, db)
	}
	e.provider = us.NewAlpacaProvider(opts)
	return e, nil
}

func newApp(out io.Writer, open openFunc) *cli.App {
	app := cli.NewApp()
	app.Name = "stocksim"
	app.Version = version
	app.Usage = "stock quotes, history and trading strategy simulation"
	app.Writer = out
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to the YAML config file",
			EnvVars: []string{"STOCKSIM_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "override the configured log level",
		},
		&cli.BoolFlag{
			Name:  "dark",
			Usage: "render with the dark theme",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "print JSON instead of formatted tables",
		},
	}
	app.Before = func(c *cli.Context) error {
		var (
			cfg *config.Config
			err error
		)
		if p := c.String("config"); p != "" {
			cfg, err = config.Load(p)
		} else {
			cfg, err = config.LoadDefault()
		}
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if lvl := c.String("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

		e, err := open(c, cfg)
		if err != nil {
			return err
		}
		e.out = out
		e.asJSON = c.Bool("json")
		e.theme = report.NewTheme(cfg.Theme.DarkMode || c.Bool("dark"))
		c.App.Metadata = map[string]any{envKey: e}
		return nil
	}
	app.After = func(c *cli.Context) error {
		if e, ok := c.App.Metadata[envKey].(*env); ok {
			e.Close()
		}
		return nil
	}
	app.Commands = []*cli.Command{
		quoteCommand,
		historyCommand,
		analyzeCommand,
		validateCommand,
		simulateCommand,
		compareCommand,
		cacheCommand,
		serveCommand,
		versionCommand,
	}
	return app
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newApp(os.Stdout, openAlpaca).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
