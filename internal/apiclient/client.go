// Package apiclient talks to optiscreen's own REST API. The fetch commands
// read investments and statements through it so they see exactly what API
// clients see.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/seenimoa/optiscreen/internal/infra"
)

// Paths of the REST resources the commands read.
const (
	InvestmentsPath         = "/api/investments/"
	FinancialStatementsPath = "/api/financial-statements/"
)

// Client is a JSON client for the local REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the API served at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    infra.NewHTTPClient(timeout),
	}
}

// URL joins path onto the base URL.
func (c *Client) URL(path string) string {
	return c.baseURL + path
}

// InvestmentQuery filters the investments list.
type InvestmentQuery struct {
	ScreenerType       string
	OptionsSuitability *int
}

func (q InvestmentQuery) values() url.Values {
	v := url.Values{}
	if q.ScreenerType != "" {
		v.Set("screener_type", q.ScreenerType)
	}
	if q.OptionsSuitability != nil {
		v.Set("options_suitability", strconv.Itoa(*q.OptionsSuitability))
	}
	return v
}

// Get fetches endpoint (an absolute URL, or a path under the base URL) and
// decodes the JSON body.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (any, error) {
	if strings.HasPrefix(endpoint, "/") {
		endpoint = c.URL(endpoint)
	}
	data, err := infra.Do(ctx, c.http, infra.Request{URL: endpoint, Query: query})
	if err != nil {
		return nil, fmt.Errorf("failed to call '%s': %w", endpoint, err)
	}
	v, err := infra.DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("response from '%s' did not contain valid JSON", endpoint)
	}
	return v, nil
}

// Tickers lists the tickers of investments matching q. endpoint overrides
// the investments URL when non-empty.
func (c *Client) Tickers(ctx context.Context, endpoint string, q InvestmentQuery) ([]string, error) {
	if endpoint == "" {
		endpoint = InvestmentsPath
	}
	v, err := c.Get(ctx, endpoint, q.values())
	if err != nil {
		return nil, err
	}
	entries, err := Entries(v)
	if err != nil {
		return nil, err
	}
	return ExtractTickers(entries), nil
}

// FinancialStatements returns the stored statements of symbol with the given
// statement type, as decoded JSON objects.
func (c *Client) FinancialStatements(ctx context.Context, symbol, statementType string) ([]any, error) {
	v, err := c.Get(ctx, FinancialStatementsPath, url.Values{
		"symbol":         {symbol},
		"statement_type": {statementType},
	})
	if err != nil {
		return nil, err
	}
	return Entries(v)
}

// ErrUnexpectedShape is returned when a list response is neither a list nor
// an object carrying one.
var ErrUnexpectedShape = errors.New("payload did not contain a list of results under 'results' or 'data'")

// Entries unwraps a list response: a bare list, or an object whose
// "results" or "data" member is a list.
func Entries(v any) ([]any, error) {
	switch p := v.(type) {
	case []any:
		return p, nil
	case map[string]any:
		for _, key := range []string{"results", "data"} {
			if list, ok := p[key].([]any); ok {
				return list, nil
			}
		}
	}
	return nil, ErrUnexpectedShape
}

// ExtractTickers returns the non-empty "ticker" strings of entries.
func ExtractTickers(entries []any) []string {
	var tickers []string
	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if t, ok := m["ticker"].(string); ok && t != "" {
			tickers = append(tickers, t)
		}
	}
	return tickers
}
