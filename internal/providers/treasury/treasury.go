// Package treasury reads Treasury bill rates from the U.S. Treasury fiscal
// data API. No API key is required.
package treasury

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/optiscreen/internal/infra"
	"github.com/seenimoa/optiscreen/internal/provider"
)

const (
	providerName = "treasury"

	// DefaultBaseURL is the fiscal service root.
	DefaultBaseURL = "https://api.fiscaldata.treasury.gov/services/api/fiscal_service"

	pathAvgInterestRates  = "/v2/accounting/od/avg_interest_rates"
	securityTreasuryBills = "Treasury Bills"
	rateCacheKey          = "treasury-bills"
)

// Rate is the latest average interest rate of a security class.
type Rate struct {
	RecordDate   string          `json:"record_date"`
	SecurityDesc string          `json:"security_desc"`
	Percent      decimal.Decimal `json:"avg_interest_rate_amt"`
	Value        decimal.Decimal `json:"rate"` // Percent/100, 4 places
}

// Client fetches Treasury rates, caching the latest value.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *infra.Cache
}

// NewClient creates a client. A zero cacheTTL disables caching.
func NewClient(baseURL string, timeout, cacheTTL time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    infra.NewHTTPClient(timeout),
	}
	if cacheTTL > 0 {
		c.cache = infra.NewCache(cacheTTL)
	}
	return c
}

// RiskFreeRate returns the latest Treasury bill rate as a fraction with four
// decimal places, e.g. 0.0425.
func (c *Client) RiskFreeRate(ctx context.Context) (decimal.Decimal, error) {
	r, err := c.LatestBillRate(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return r.Value, nil
}

// LatestBillRate returns the most recent Treasury bill record.
func (c *Client) LatestBillRate(ctx context.Context) (Rate, error) {
	if c.cache == nil {
		return c.fetchBillRate(ctx)
	}
	v, err := c.cache.GetOrLoad(rateCacheKey, func() (any, error) {
		return c.fetchBillRate(ctx)
	})
	if err != nil {
		return Rate{}, err
	}
	return v.(Rate), nil
}

func (c *Client) fetchBillRate(ctx context.Context) (Rate, error) {
	data, err := infra.Do(ctx, c.http, infra.Request{
		URL: c.baseURL + pathAvgInterestRates,
		Query: url.Values{
			"filter":     {"security_desc:eq:" + securityTreasuryBills},
			"sort":       {"-record_date"},
			"page[size]": {"1"},
		},
	})
	if err != nil {
		return Rate{}, fmt.Errorf("risk-free rate request failed: %w", err)
	}
	v, err := infra.DecodeJSON(data)
	if err != nil {
		return Rate{}, errors.New("risk-free rate response was not valid JSON")
	}
	return parseRate(v)
}

func parseRate(v any) (Rate, error) {
	payload, _ := v.(map[string]any)
	rows, _ := payload["data"].([]any)
	if len(rows) == 0 {
		return Rate{}, errors.New("risk-free rate data was missing in the response")
	}
	entry, ok := rows[0].(map[string]any)
	if !ok {
		return Rate{}, errors.New("risk-free rate entry was missing")
	}
	pct, err := decimal.NewFromString(strings.TrimSpace(fmt.Sprint(entry["avg_interest_rate_amt"])))
	if err != nil {
		return Rate{}, errors.New("risk-free rate value was invalid")
	}
	r := Rate{
		Percent: pct,
		Value:   pct.Div(decimal.NewFromInt(100)).RoundBank(4),
	}
	r.RecordDate, _ = entry["record_date"].(string)
	r.SecurityDesc, _ = entry["security_desc"].(string)
	return r, nil
}

// Provider exposes the Treasury rate through the registry.
type Provider struct {
	provider.BaseProvider
	client *Client
}

// New creates the provider.
func New(client *Client) *Provider {
	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"U.S. Treasury fiscal data, average interest rates",
			"https://fiscaldata.treasury.gov",
			nil,
		),
		client: client,
	}
	p.RegisterFetcher(&rateFetcher{
		BaseFetcher: provider.NewBaseFetcher(provider.ModelTreasuryRate,
			"Latest Treasury bill average interest rate", nil, nil),
		client: client,
	})
	return p
}

// Ping fetches the latest rate.
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.client.LatestBillRate(ctx)
	return err
}

type rateFetcher struct {
	provider.BaseFetcher
	client *Client
}

func (f *rateFetcher) Fetch(ctx context.Context, _ provider.QueryParams) (*provider.FetchResult, error) {
	r, err := f.client.LatestBillRate(ctx)
	if err != nil {
		return nil, err
	}
	return &provider.FetchResult{Data: r, FetchedAt: time.Now()}, nil
}
