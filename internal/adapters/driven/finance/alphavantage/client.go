// Package alphavantage fetches company financials from the Alpha Vantage API.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/retry"
)

var _ driven.MarketData = (*Client)(nil)

// Default configuration values.
const (
	DefaultEndpoint = "https://www.alphavantage.co/query"
	DefaultTimeout  = 30 * time.Second

	// The free tier allows 5 calls per minute.
	DefaultCallsPerMinute = 5

	// WeeklyLimit caps the weekly series handed to the model.
	WeeklyLimit = 200
)

const op = "alphavantage"

const weeklyKey = "Weekly Time Series"

// Config holds client configuration.
type Config struct {
	APIKey         string
	Endpoint       string
	Timeout        time.Duration
	CallsPerMinute int
}

// Client calls Alpha Vantage at a bounded rate.
type Client struct {
	client   *http.Client
	limiter  *rate.Limiter
	endpoint string
	apiKey   string
}

// New creates a Client. The API key is required.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: alpha vantage API key is required", domain.ErrInvalidInput)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CallsPerMinute <= 0 {
		cfg.CallsPerMinute = DefaultCallsPerMinute
	}
	return &Client{
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.CallsPerMinute)), 1),
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
	}, nil
}

// CompanyOverview returns the OVERVIEW payload for symbol.
func (c *Client) CompanyOverview(ctx context.Context, symbol string) (string, error) {
	body, err := c.query(ctx, "OVERVIEW", symbol)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// IncomeStatement returns the annual income statements for symbol.
func (c *Client) IncomeStatement(ctx context.Context, symbol string) (string, error) {
	return c.annualReports(ctx, "INCOME_STATEMENT", symbol)
}

// BalanceSheet returns the annual balance sheets for symbol.
func (c *Client) BalanceSheet(ctx context.Context, symbol string) (string, error) {
	return c.annualReports(ctx, "BALANCE_SHEET", symbol)
}

// annualReports keeps the annualReports array of a fundamentals payload.
// Quarterly reports are dropped.
func (c *Client) annualReports(ctx context.Context, function, symbol string) (string, error) {
	body, err := c.query(ctx, function, symbol)
	if err != nil {
		return "", err
	}
	var payload struct {
		AnnualReports json.RawMessage `json:"annualReports"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", decodeError(err)
	}
	if len(payload.AnnualReports) == 0 {
		return "[]", nil
	}
	return string(payload.AnnualReports), nil
}

// WeeklyPerformance returns the most recent weekly candles for symbol.
func (c *Client) WeeklyPerformance(ctx context.Context, symbol string) (string, error) {
	body, err := c.query(ctx, "TIME_SERIES_WEEKLY", symbol)
	if err != nil {
		return "", err
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", decodeError(err)
	}
	var series map[string]json.RawMessage
	if raw, ok := payload[weeklyKey]; ok {
		if err := json.Unmarshal(raw, &series); err != nil {
			return "", decodeError(err)
		}
	}
	return latestWeeks(series, WeeklyLimit)
}

// latestWeeks keeps the limit most recent entries. Keys are ISO dates.
func latestWeeks(series map[string]json.RawMessage, limit int) (string, error) {
	dates := make([]string, 0, len(series))
	for d := range series {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if len(dates) > limit {
		dates = dates[:limit]
	}

	kept := make(map[string]json.RawMessage, len(dates))
	for _, d := range dates {
		kept[d] = series[d]
	}
	out, err := json.Marshal(kept)
	if err != nil {
		return "", fmt.Errorf("encode weekly series: %w", err)
	}
	return string(out), nil
}

func (c *Client) query(ctx context.Context, function, symbol string) ([]byte, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty stock symbol", domain.ErrInvalidInput)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"function": {function},
		"symbol":   {symbol},
		"apikey":   {c.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, retry.TransportError(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.TransportError(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, retry.StatusError(op, resp, body)
	}
	if err := apiError(body, symbol); err != nil {
		return nil, err
	}
	return body, nil
}

// apiError detects the error shapes Alpha Vantage returns with status 200.
func apiError(body []byte, symbol string) error {
	var msg struct {
		ErrorMessage string `json:"Error Message"`
		Note         string `json:"Note"`
		Information  string `json:"Information"`
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return decodeError(err)
	}
	switch {
	case msg.ErrorMessage != "":
		return fmt.Errorf("%w: symbol %s: %s", domain.ErrNotFound, symbol, msg.ErrorMessage)
	case msg.Note != "":
		return &domain.ServiceError{Op: op, StatusCode: http.StatusTooManyRequests, Err: fmt.Errorf("%s", msg.Note)}
	case msg.Information != "":
		return &domain.ServiceError{Op: op, StatusCode: http.StatusTooManyRequests, Err: fmt.Errorf("%s", msg.Information)}
	}
	return nil
}

func decodeError(err error) error {
	return &domain.ServiceError{Op: op, StatusCode: http.StatusOK, Err: fmt.Errorf("decode response: %w", err)}
}
