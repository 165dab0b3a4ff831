// Package stocksim is a Go client for the stocksim HTTP API.
package stocksim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client provides a Go SDK for interacting with the stocksim server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new stocksim API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stocksim: %d %s", e.StatusCode, e.Message)
}

// Quote is a live quote as returned by the server.
type Quote struct {
	Symbol        string    `json:"symbol"`
	CurrentPrice  float64   `json:"current_price"`
	PreviousClose float64   `json:"previous_close"`
	Open          float64   `json:"open"`
	DayLow        float64   `json:"day_low"`
	DayHigh       float64   `json:"day_high"`
	Volume        int64     `json:"volume"`
	MarketCap     float64   `json:"market_cap"`
	CompanyName   string    `json:"company_name"`
	Currency      string    `json:"currency"`
	Exchange      string    `json:"exchange"`
	Timestamp     time.Time `json:"timestamp"`

	DailyChange        float64 `json:"-"`
	DailyChangePercent float64 `json:"-"`
}

// Bar is one OHLCV bar.
type Bar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Trade is one executed fill of a simulation.
type Trade struct {
	Date   time.Time `json:"date"`
	Action string    `json:"action"`
	Price  float64   `json:"price"`
	Shares float64   `json:"shares"`
	Value  float64   `json:"value"`
}

// Result is the outcome of simulating one strategy.
type Result struct {
	Strategy            string      `json:"strategy"`
	InitialInvestment   float64     `json:"initial_investment"`
	StartDate           time.Time   `json:"start_date"`
	EndDate             time.Time   `json:"end_date"`
	FinalValue          float64     `json:"final_value"`
	ReturnPct           float64     `json:"return_pct"`
	AnnualizedReturnPct float64     `json:"annualized_return"`
	BuyHoldReturnPct    float64     `json:"buy_hold_return"`
	Trades              []Trade     `json:"trades"`
	Dates               []time.Time `json:"dates"`
	PortfolioValues     []float64   `json:"portfolio_values"`
	MaxDrawdownPct      float64     `json:"max_drawdown_pct"`
	RoundTrips          int         `json:"round_trips"`
	WinRatePct          float64     `json:"win_rate_pct"`
}

// SimulateRequest selects what to simulate. Zero fields take the server's
// defaults; an empty Strategy runs every strategy.
type SimulateRequest struct {
	Symbol      string  `json:"symbol"`
	Strategy    string  `json:"strategy,omitempty"`
	InitialCash float64 `json:"initial_cash,omitempty"`
	Period      string  `json:"period,omitempty"`
	Interval    string  `json:"interval,omitempty"`
}

// GetQuote retrieves the live quote of a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	var resp struct {
		Data struct {
			Quote              Quote   `json:"quote"`
			DailyChange        float64 `json:"daily_change"`
			DailyChangePercent float64 `json:"daily_change_percent"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/quote/"+url.PathEscape(symbol), nil, &resp); err != nil {
		return nil, err
	}
	q := resp.Data.Quote
	q.DailyChange = resp.Data.DailyChange
	q.DailyChangePercent = resp.Data.DailyChangePercent
	return &q, nil
}

// GetBars retrieves historical bars. Empty period or interval use the
// server's defaults.
func (c *Client) GetBars(ctx context.Context, symbol, period, interval string) ([]Bar, error) {
	q := url.Values{}
	if period != "" {
		q.Set("period", period)
	}
	if interval != "" {
		q.Set("interval", interval)
	}
	path := "/api/v1/bars/" + url.PathEscape(symbol)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Data []Bar `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ValidateTicker reports whether the server knows symbol.
func (c *Client) ValidateTicker(ctx context.Context, symbol string) (bool, error) {
	var resp struct {
		Valid bool `json:"valid"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/validate/"+url.PathEscape(symbol), nil, &resp); err != nil {
		return false, err
	}
	return resp.Valid, nil
}

// Simulate runs one or every strategy over the requested history.
func (c *Client) Simulate(ctx context.Context, req SimulateRequest) ([]Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data []Result `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/simulate", body, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
