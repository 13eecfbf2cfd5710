// Package cboe reads the CBOE list of securities with weekly options. The
// list is public; no API key is required.
package cboe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/seenimoa/optiscreen/internal/infra"
	"github.com/seenimoa/optiscreen/internal/provider"
)

const (
	providerName = "cboe"

	// DefaultWeekliesURL serves the weeklies list as CSV.
	DefaultWeekliesURL = "https://www.cboe.com/available_weeklys/get_csv_download/"

	weekliesCacheKey = "weeklies"
)

// Client downloads and parses the weeklies list.
type Client struct {
	url   string
	http  *http.Client
	cache *infra.Cache
}

// NewClient creates a client. A zero cacheTTL disables caching.
func NewClient(weekliesURL string, timeout, cacheTTL time.Duration) *Client {
	if weekliesURL == "" {
		weekliesURL = DefaultWeekliesURL
	}
	c := &Client{url: weekliesURL, http: infra.NewHTTPClient(timeout)}
	if cacheTTL > 0 {
		c.cache = infra.NewCache(cacheTTL)
	}
	return c
}

// URL returns the download location.
func (c *Client) URL() string {
	return c.url
}

// WeeklySymbols returns the unique symbols on the weeklies list in the order
// they appear.
func (c *Client) WeeklySymbols(ctx context.Context) ([]string, error) {
	if c.cache == nil {
		return c.fetch(ctx)
	}
	v, err := c.cache.GetOrLoad(weekliesCacheKey, func() (any, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (c *Client) fetch(ctx context.Context) ([]string, error) {
	data, err := infra.Do(ctx, c.http, infra.Request{
		URL:     c.url,
		Headers: map[string]string{"Accept": "text/csv, text/html;q=0.9"},
	})
	if err != nil {
		return nil, fmt.Errorf("cboe weeklies: %w", err)
	}
	symbols, err := ParseWeeklies(data)
	if err != nil {
		return nil, fmt.Errorf("cboe weeklies: %w", err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("cboe weeklies: no symbols found at %s", c.url)
	}
	return symbols, nil
}

// Provider exposes the weeklies list through the registry.
type Provider struct {
	provider.BaseProvider
	client *Client
}

// New creates the provider.
func New(client *Client) *Provider {
	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"CBOE - securities with weekly option expirations",
			"https://www.cboe.com/available_weeklys/",
			nil,
		),
		client: client,
	}
	p.RegisterFetcher(&weekliesFetcher{
		BaseFetcher: provider.NewBaseFetcher(provider.ModelWeeklyOptions,
			"Symbols listed with weekly options", nil, nil),
		client: client,
	})
	return p
}

// Ping downloads the list.
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.client.WeeklySymbols(ctx)
	return err
}

type weekliesFetcher struct {
	provider.BaseFetcher
	client *Client
}

func (f *weekliesFetcher) Fetch(ctx context.Context, _ provider.QueryParams) (*provider.FetchResult, error) {
	symbols, err := f.client.WeeklySymbols(ctx)
	if err != nil {
		return nil, err
	}
	return &provider.FetchResult{Data: symbols, FetchedAt: time.Now()}, nil
}
