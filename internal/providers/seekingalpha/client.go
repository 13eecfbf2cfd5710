// Package seekingalpha is a client for the Seeking Alpha API served through
// RapidAPI, plus the provider that exposes it to the registry.
package seekingalpha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/optiscreen/internal/infra"
	"github.com/seenimoa/optiscreen/pkg/models"
)

// DefaultHost is the RapidAPI host header value.
const DefaultHost = "seeking-alpha.p.rapidapi.com"

// Endpoint paths.
const (
	pathScreenerList      = "/screeners/list"
	pathScreenerResults   = "/screeners/get-results"
	pathProfile           = "/symbols/get-profile"
	pathOptionExpirations = "/symbols/get-option-expirations"
	pathOptions           = "/symbols/v2/get-options"
	pathFinancials        = "/symbols/get-financials"
	pathChart             = "/symbols/get-chart"
)

// Config configures a Client.
type Config struct {
	BaseURL   string
	Host      string
	Key       string
	RateLimit float64 // requests per second; 0 disables limiting
	Burst     int
	Timeout   time.Duration
}

// Client calls Seeking Alpha endpoints. Every request is rate limited and
// counted.
type Client struct {
	baseURL string
	host    string
	key     string
	http    *http.Client
	limiter *infra.RateLimiter
	counter *infra.CallCounter
	log     zerolog.Logger
}

// NewClient creates a client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://" + host
	}
	log = log.With().Str("component", "seekingalpha").Logger()
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		host:    host,
		key:     cfg.Key,
		http:    infra.NewHTTPClient(cfg.Timeout),
		limiter: infra.NewRateLimiter(cfg.RateLimit, cfg.Burst),
		counter: infra.NewCallCounter("RapidAPI", log),
		log:     log,
	}
}

// Calls returns the number of requests made so far.
func (c *Client) Calls() int64 {
	return c.counter.Count()
}

// Counter exposes the call counter.
func (c *Client) Counter() *infra.CallCounter {
	return c.counter
}

// HasKey reports whether an API key is configured.
func (c *Client) HasKey() bool {
	return c.key != ""
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"x-rapidapi-key":  c.key,
		"x-rapidapi-host": c.host,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	c.counter.Inc()

	data, err := infra.Do(ctx, c.http, infra.Request{
		Method:  method,
		URL:     c.baseURL + path,
		Query:   query,
		Headers: c.headers(),
		Body:    body,
	})
	if err != nil {
		return nil, err
	}
	v, err := infra.DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("response from %s did not contain valid JSON: %w", path, err)
	}
	return v, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (any, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// ListScreeners returns the raw screeners list, numbers kept as json.Number.
func (c *Client) ListScreeners(ctx context.Context) (any, error) {
	return c.get(ctx, pathScreenerList, nil)
}

// ResultsQuery selects a page of screener results.
type ResultsQuery struct {
	Page      int
	PerPage   int
	AssetType string
}

// ScreenerPage is one page of screener results.
type ScreenerPage struct {
	Names []string
	Rows  int
}

// ScreenerResults posts payload and returns the ticker names of one page.
func (c *Client) ScreenerResults(ctx context.Context, payload map[string]any, q ResultsQuery) (ScreenerPage, error) {
	query := url.Values{
		"page":     {strconv.Itoa(q.Page)},
		"per_page": {strconv.Itoa(q.PerPage)},
		"type":     {q.AssetType},
	}
	v, err := c.do(ctx, http.MethodPost, pathScreenerResults, query, payload)
	if err != nil {
		return ScreenerPage{}, fmt.Errorf("fetch screener results: %w", err)
	}
	return ParseScreenerResults(v)
}

// ProfileURL returns the profile request URL for symbols.
func (c *Client) ProfileURL(symbols []string) string {
	return c.baseURL + pathProfile + "?symbols=" + url.QueryEscape(strings.Join(symbols, ","))
}

// Profiles fetches profiles for symbols, keyed by uppercase symbol.
func (c *Client) Profiles(ctx context.Context, symbols []string) (map[string]models.Profile, error) {
	v, err := c.get(ctx, pathProfile, url.Values{"symbols": {strings.Join(symbols, ",")}})
	if err != nil {
		return nil, fmt.Errorf("fetch profiles: %w", err)
	}
	return ParseProfiles(v, symbols)
}

// OptionExpirations fetches the expiration calendar of symbol.
func (c *Client) OptionExpirations(ctx context.Context, symbol string) (models.Expirations, error) {
	v, err := c.get(ctx, pathOptionExpirations, url.Values{"symbol": {symbol}})
	if err != nil {
		return models.Expirations{}, fmt.Errorf("fetch option expirations for %s: %w", symbol, err)
	}
	exp := ParseExpirations(v)
	exp.Symbol = symbol
	return exp, nil
}

// Options fetches the options chain of tickerID expiring on exp.
func (c *Client) Options(ctx context.Context, tickerID int64, exp models.Date) ([]models.OptionQuote, error) {
	v, err := c.get(ctx, pathOptions, url.Values{
		"ticker_id":       {strconv.FormatInt(tickerID, 10)},
		"expiration_date": {exp.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch options: %w", err)
	}
	return ParseOptions(v)
}

// FinancialsQuery selects a financial statement.
type FinancialsQuery struct {
	Symbol         string
	TargetCurrency string
	PeriodType     string
	StatementType  string
}

// Financials fetches a statement. The payload must be a JSON list.
func (c *Client) Financials(ctx context.Context, q FinancialsQuery) (json.RawMessage, error) {
	v, err := c.get(ctx, pathFinancials, url.Values{
		"symbol":          {q.Symbol},
		"target_currency": {q.TargetCurrency},
		"period_type":     {q.PeriodType},
		"statement_type":  {q.StatementType},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch financials: %w", err)
	}
	if _, ok := v.([]any); !ok {
		return nil, fmt.Errorf("financials payload for %s was not a list", q.Symbol)
	}
	return json.Marshal(v)
}

// Chart fetches daily closes of symbol over period, oldest first.
func (c *Client) Chart(ctx context.Context, symbol, period string) ([]models.PricePoint, error) {
	v, err := c.get(ctx, pathChart, url.Values{"symbol": {symbol}, "period": {period}})
	if err != nil {
		return nil, fmt.Errorf("fetch chart for %s: %w", symbol, err)
	}
	return ParseChart(v)
}
