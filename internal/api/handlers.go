package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"stocksim/internal/analysis"
	"stocksim/internal/config"
	"stocksim/internal/domain"
	"stocksim/internal/gather"
	"stocksim/internal/strategy"
)

// Handler serves the API endpoints.
type Handler struct {
	provider   gather.Provider
	registry   *strategy.Registry
	backtester *strategy.Backtester
	defaults   config.Simulation
}

// NewHandler creates a Handler. defaults fill in simulate requests that omit
// cash, period or interval.
func NewHandler(provider gather.Provider, registry *strategy.Registry, defaults config.Simulation) *Handler {
	return &Handler{
		provider:   provider,
		registry:   registry,
		backtester: strategy.NewBacktester(nil, registry),
		defaults:   defaults,
	}
}

// GetQuote returns the live quote of a symbol.
func (h *Handler) GetQuote(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	q, err := h.provider.LiveQuote(c.Request.Context(), symbol)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"quote":                q,
			"daily_change":         q.DailyChange(),
			"daily_change_percent": q.DailyChangePercent(),
		},
	})
}

// BarJSON is the wire form of a bar.
type BarJSON struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// GetBars returns historical bars. Query parameters: period (default from
// config), interval (default from config).
func (h *Handler) GetBars(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	period, interval, err := h.window(c.Query("period"), c.Query("interval"))
	if err != nil {
		writeError(c, err)
		return
	}

	bars, err := h.provider.History(c.Request.Context(), symbol, period, interval)
	if err != nil {
		writeError(c, err)
		return
	}

	layout := "2006-01-02"
	if !interval.Daily() {
		layout = "2006-01-02T15:04:05Z07:00"
	}
	out := make([]BarJSON, len(bars))
	for i, b := range bars {
		out[i] = BarJSON{
			Date:   b.Timestamp.Format(layout),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":   symbol,
		"period":   period,
		"interval": interval,
		"count":    len(out),
		"data":     out,
	})
}

// GetAnalysis returns the quote and derived metrics over the last days
// (default 30) of daily bars.
func (h *Handler) GetAnalysis(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	days := 30
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = n
	}

	a, err := analysis.Prepare(c.Request.Context(), h.provider, symbol, days, time.Now())
	if err != nil {
		writeError(c, err)
		return
	}
	var rows []analysis.Row
	if a.Frame != nil {
		rows = a.Frame.Rows()
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"quote": a.Quote,
			"rows":  rows,
		},
	})
}

// Validate reports whether a ticker exists.
func (h *Handler) Validate(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"valid":  h.provider.ValidateTicker(c.Request.Context(), symbol),
	})
}

// ListStrategies returns the registered strategies.
func (h *Handler) ListStrategies(c *gin.Context) {
	kinds := h.registry.List()
	out := make([]gin.H, len(kinds))
	for i, k := range kinds {
		st, _ := h.registry.Get(k)
		out[i] = gin.H{"name": k.String(), "id": k.Slug(), "warmup": st.Warmup()}
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// SimulateRequest is the body of POST /simulate. An empty Strategy runs every
// registered strategy. An omitted InitialCash uses the configured amount.
type SimulateRequest struct {
	Symbol      string   `json:"symbol" binding:"required"`
	Strategy    string   `json:"strategy"`
	InitialCash *float64 `json:"initial_cash"`
	Period      string   `json:"period"`
	Interval    string   `json:"interval"`
}

// Simulate fetches the history of the requested symbol and replays one or
// every strategy over it.
func (h *Handler) Simulate(c *gin.Context) {
	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cash := h.defaults.InitialCash
	if req.InitialCash != nil {
		cash = *req.InitialCash
	}
	if !(cash > 0) {
		writeError(c, fmt.Errorf("%w: initial cash must be positive, got %v", strategy.ErrInvalidInput, cash))
		return
	}

	var st strategy.Strategy
	if req.Strategy != "" {
		var err error
		if st, err = h.registry.Lookup(req.Strategy); err != nil {
			writeError(c, err)
			return
		}
	}

	period, interval, err := h.window(req.Period, req.Interval)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx := c.Request.Context()
	symbol := strings.ToUpper(req.Symbol)
	bars, err := h.provider.History(ctx, symbol, period, interval)
	if err != nil {
		writeError(c, err)
		return
	}
	series := domain.SeriesFromBars(bars)

	var results []*strategy.Result
	if st != nil {
		res, err := strategy.Simulate(series, cash, st)
		if err != nil {
			writeError(c, err)
			return
		}
		results = []*strategy.Result{res}
	} else {
		results, err = h.backtester.Compare(ctx, series, cash)
		if err != nil {
			writeError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"period": period,
		"data":   results,
	})
}

// window resolves period and interval tokens, falling back to the configured
// defaults.
func (h *Handler) window(p, iv string) (gather.Period, gather.Interval, error) {
	if p == "" {
		p = h.defaults.Period
	}
	if iv == "" {
		iv = h.defaults.Interval
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

// writeError maps domain errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, gather.ErrNotFound), errors.Is(err, gather.ErrNoData):
		status = http.StatusNotFound
	case errors.Is(err, gather.ErrInvalidPeriod), errors.Is(err, gather.ErrInvalidInterval),
		errors.Is(err, strategy.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, strategy.ErrMalformedData):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
