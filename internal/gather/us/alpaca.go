// Package us implements the market-data provider for US equities on top of
// the Alpaca market-data and trading APIs.
package us

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"stocksim/internal/domain"
	"stocksim/internal/gather"
	"stocksim/internal/store"
	"stocksim/internal/util"
)

var _ gather.Provider = (*AlpacaProvider)(nil)

// assetTTL bounds how long a cached ticker lookup is trusted.
const assetTTL = 24 * time.Hour

// DataClient is the subset of *marketdata.Client the provider uses.
type DataClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
	GetSnapshot(symbol string, req marketdata.GetSnapshotRequest) (*marketdata.Snapshot, error)
}

// AssetClient is the subset of *alpaca.Client the provider uses.
type AssetClient interface {
	GetAsset(symbol string) (*alpaca.Asset, error)
}

// Options configures an AlpacaProvider. Every store is optional.
type Options struct {
	APIKey    string
	APISecret string
	BaseURL   string // trading API, used for asset lookups
	DataURL   string // market-data API
	Feed      string // "iex" or "sip"

	Bars    store.BarStore
	Quotes  store.QuoteStore
	Assets  store.AssetStore
	Limiter *util.RateLimiter
}

// AlpacaProvider serves quotes, history and ticker validation for US
// equities.
type AlpacaProvider struct {
	data    DataClient
	assets  AssetClient
	feed    string
	bars    store.BarStore
	quotes  store.QuoteStore
	known   store.AssetStore
	limiter *util.RateLimiter
	now     func() time.Time
	log     *slog.Logger
}

// NewAlpacaProvider creates a provider with real Alpaca clients.
func NewAlpacaProvider(opts Options) *AlpacaProvider {
	dataOpts := marketdata.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.DataURL != "" {
		dataOpts.BaseURL = opts.DataURL
	}
	tradingOpts := alpaca.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.BaseURL != "" {
		tradingOpts.BaseURL = opts.BaseURL
	}
	return NewAlpacaProviderWithClients(marketdata.NewClient(dataOpts), alpaca.NewClient(tradingOpts), opts)
}

// NewAlpacaProviderWithClients creates a provider over the given clients.
// Credentials and URLs in opts are ignored.
func NewAlpacaProviderWithClients(data DataClient, assets AssetClient, opts Options) *AlpacaProvider {
	feed := strings.ToLower(opts.Feed)
	if feed == "" {
		feed = "iex"
	}
	return &AlpacaProvider{
		data:    data,
		assets:  assets,
		feed:    feed,
		bars:    opts.Bars,
		quotes:  opts.Quotes,
		known:   opts.Assets,
		limiter: opts.Limiter,
		now:     time.Now,
		log:     slog.Default().With("provider", "alpaca"),
	}
}

// Name returns the provider identifier.
func (p *AlpacaProvider) Name() string { return "alpaca" }

// ---------------------------------------------------------------------------
// Live quote
// ---------------------------------------------------------------------------

// LiveQuote builds a quote from the latest snapshot of symbol. The asset
// record supplies the company name and exchange when it can be fetched.
// Quotes are journaled to the quote store, and the newest journaled quote is
// served when the snapshot request fails.
func (p *AlpacaProvider) LiveQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = normalize(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", gather.ErrNotFound)
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	snap, err := p.data.GetSnapshot(symbol, marketdata.GetSnapshotRequest{Feed: marketdata.Feed(p.feed)})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", gather.ErrNotFound, symbol)
		}
		fetchErr := fmt.Errorf("GetSnapshot %s: %w", symbol, err)
		if p.quotes == nil || ctx.Err() != nil {
			return nil, fetchErr
		}
		cached, err := p.quotes.LatestQuote(ctx, symbol)
		if err != nil {
			return nil, fetchErr
		}
		p.log.Warn("serving cached quote", "symbol", symbol, "fetched_at", cached.Timestamp, "error", fetchErr)
		return cached, nil
	}
	if snap == nil || (snap.LatestTrade == nil && snap.DailyBar == nil) {
		return nil, fmt.Errorf("%w: %s", gather.ErrNotFound, symbol)
	}

	q := &domain.Quote{
		Symbol:    symbol,
		Currency:  "USD",
		Timestamp: p.now().UTC(),
	}
	if snap.DailyBar != nil {
		q.CurrentPrice = snap.DailyBar.Close
		q.Open = snap.DailyBar.Open
		q.DayHigh = snap.DailyBar.High
		q.DayLow = snap.DailyBar.Low
		q.Volume = int64(snap.DailyBar.Volume)
	}
	if snap.LatestTrade != nil && snap.LatestTrade.Price > 0 {
		q.CurrentPrice = snap.LatestTrade.Price
	}
	if snap.PrevDailyBar != nil {
		q.PreviousClose = snap.PrevDailyBar.Close
	}

	if asset, err := p.lookupAsset(ctx, symbol); err == nil {
		q.CompanyName = asset.Name
		q.Exchange = asset.Exchange
	} else {
		p.log.Debug("asset lookup failed", "symbol", symbol, "error", err)
	}

	if p.quotes != nil {
		if err := p.quotes.SaveQuote(ctx, q); err != nil {
			p.log.Warn("caching quote", "symbol", symbol, "error", err)
		}
	}
	return q, nil
}

// ---------------------------------------------------------------------------
// History
// ---------------------------------------------------------------------------

// History fetches the bars of symbol covering period. Daily bars are written
// through to the bar cache, and served from it when the fetch fails.
func (p *AlpacaProvider) History(ctx context.Context, symbol string, period gather.Period, interval gather.Interval) ([]domain.Bar, error) {
	symbol = normalize(symbol)
	rng, err := period.Range(p.now())
	if err != nil {
		return nil, err
	}
	tf, err := timeFrame(interval)
	if err != nil {
		return nil, err
	}
	cacheable := interval == gather.Interval1D && p.bars != nil

	bars, fetchErr := p.fetchBars(ctx, symbol, tf, rng)
	if fetchErr != nil {
		if !cacheable || ctx.Err() != nil {
			return nil, fetchErr
		}
		cached, err := p.bars.ReadBars(ctx, symbol, store.DefaultMarket, rng.Start, rng.End)
		if err != nil || len(cached) == 0 {
			return nil, fetchErr
		}
		p.log.Warn("serving cached bars", "symbol", symbol, "bars", len(cached), "error", fetchErr)
		return cached, nil
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s %s/%s", gather.ErrNoData, symbol, period, interval)
	}

	if cacheable {
		if err := p.bars.WriteBars(ctx, bars); err != nil {
			p.log.Warn("caching bars", "symbol", symbol, "error", err)
		}
	}
	return bars, nil
}

func (p *AlpacaProvider) fetchBars(ctx context.Context, symbol string, tf marketdata.TimeFrame, rng gather.DateRange) ([]domain.Bar, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	raw, err := p.data.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: tf,
		Start:     rng.Start,
		End:       rng.End,
		Feed:      marketdata.Feed(p.feed),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", gather.ErrNotFound, symbol)
		}
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(raw))
	for _, ab := range raw {
		bars = append(bars, domain.Bar{
			Symbol:     symbol,
			Timestamp:  ab.Timestamp,
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     int64(ab.Volume),
			TradeCount: int64(ab.TradeCount),
			VWAP:       ab.VWAP,
		})
	}
	p.log.Debug("fetched bars", "symbol", symbol, "start", rng.Start, "bars", len(bars))
	return bars, nil
}

// timeFrame maps an interval token onto an Alpaca bar timeframe.
func timeFrame(iv gather.Interval) (marketdata.TimeFrame, error) {
	switch iv {
	case gather.Interval1M:
		return marketdata.NewTimeFrame(1, marketdata.Min), nil
	case gather.Interval2M:
		return marketdata.NewTimeFrame(2, marketdata.Min), nil
	case gather.Interval5M:
		return marketdata.NewTimeFrame(5, marketdata.Min), nil
	case gather.Interval15M:
		return marketdata.NewTimeFrame(15, marketdata.Min), nil
	case gather.Interval30M:
		return marketdata.NewTimeFrame(30, marketdata.Min), nil
	case gather.Interval60M, gather.Interval1H:
		return marketdata.NewTimeFrame(1, marketdata.Hour), nil
	case gather.Interval1D:
		return marketdata.OneDay, nil
	case gather.Interval1Wk:
		return marketdata.NewTimeFrame(1, marketdata.Week), nil
	case gather.Interval1Mo:
		return marketdata.NewTimeFrame(1, marketdata.Month), nil
	case gather.Interval3Mo:
		return marketdata.NewTimeFrame(3, marketdata.Month), nil
	}
	return marketdata.TimeFrame{}, fmt.Errorf("%w: %q not offered by alpaca", gather.ErrInvalidInterval, string(iv))
}

// ---------------------------------------------------------------------------
// Ticker validation
// ---------------------------------------------------------------------------

// ValidateTicker reports whether symbol is a known, tradable asset.
func (p *AlpacaProvider) ValidateTicker(ctx context.Context, symbol string) bool {
	symbol = normalize(symbol)
	if symbol == "" {
		return false
	}
	asset, err := p.lookupAsset(ctx, symbol)
	if err != nil {
		if !errors.Is(err, gather.ErrNotFound) {
			p.log.Warn("validating ticker", "symbol", symbol, "error", err)
		}
		return false
	}
	return asset.Tradable
}

// lookupAsset returns the asset record of symbol, preferring a fresh cache
// entry. Definitive answers from the API, negative ones included, are
// cached.
func (p *AlpacaProvider) lookupAsset(ctx context.Context, symbol string) (*domain.Asset, error) {
	if p.known != nil {
		a, err := p.known.GetAsset(ctx, symbol)
		if err == nil && p.now().Sub(a.CheckedAt) < assetTTL {
			if a.Name == "" && !a.Tradable {
				return nil, fmt.Errorf("%w: %s", gather.ErrNotFound, symbol)
			}
			return a, nil
		}
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	raw, err := p.assets.GetAsset(symbol)
	var a *domain.Asset
	switch {
	case err == nil && raw != nil:
		a = &domain.Asset{
			Symbol:    symbol,
			Name:      raw.Name,
			Exchange:  string(raw.Exchange),
			Tradable:  raw.Tradable && raw.Status == alpaca.AssetActive,
			CheckedAt: p.now().UTC(),
		}
	case err == nil || isNotFound(err):
		a = &domain.Asset{Symbol: symbol, CheckedAt: p.now().UTC()}
	default:
		return nil, fmt.Errorf("GetAsset %s: %w", symbol, err)
	}

	if p.known != nil {
		if err := p.known.SaveAsset(ctx, a); err != nil {
			p.log.Warn("caching asset", "symbol", symbol, "error", err)
		}
	}
	if a.Name == "" && !a.Tradable {
		return nil, fmt.Errorf("%w: %s", gather.ErrNotFound, symbol)
	}
	return a, nil
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func isNotFound(err error) bool {
	var apiErr *alpaca.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusUnprocessableEntity
	}
	return false
}
