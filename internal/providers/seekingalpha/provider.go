package seekingalpha

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/seenimoa/optiscreen/internal/provider"
	"github.com/seenimoa/optiscreen/pkg/models"
)

const providerName = "seekingalpha"

// Provider exposes Client through the provider registry.
type Provider struct {
	provider.BaseProvider
	client *Client
}

// New creates the provider around client and registers its fetchers.
func New(client *Client) *Provider {
	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"Seeking Alpha screeners, profiles, options and financials via RapidAPI",
			"https://rapidapi.com/apidojo/api/seeking-alpha",
			[]provider.ProviderCredential{{
				Name:        "api_key",
				Description: "RapidAPI key subscribed to the Seeking Alpha API",
				Required:    true,
				EnvVar:      "OPTISCREEN_RAPIDAPI_KEY",
			}},
		),
		client: client,
	}

	p.RegisterFetcher(newFetcher(provider.ModelScreenerList, "Screener definitions and their filters",
		nil, nil, func(ctx context.Context, _ provider.QueryParams) (any, error) {
			return client.ListScreeners(ctx)
		}))
	p.RegisterFetcher(newFetcher(provider.ModelScreenerResults, "Ticker names matching a screener payload",
		[]string{provider.ParamPayload},
		[]string{provider.ParamPage, provider.ParamPerPage, provider.ParamType},
		func(ctx context.Context, params provider.QueryParams) (any, error) {
			var payload map[string]any
			if err := json.Unmarshal([]byte(params[provider.ParamPayload]), &payload); err != nil {
				return nil, fmt.Errorf("payload must be a JSON object: %w", err)
			}
			q := ResultsQuery{
				Page:      intParam(params, provider.ParamPage, 1),
				PerPage:   intParam(params, provider.ParamPerPage, 100),
				AssetType: stringParam(params, provider.ParamType, "stock"),
			}
			page, err := client.ScreenerResults(ctx, payload, q)
			if err != nil {
				return nil, err
			}
			return page.Names, nil
		}))
	p.RegisterFetcher(newFetcher(provider.ModelSymbolProfile, "Last price and market cap per symbol",
		[]string{provider.ParamSymbols}, nil,
		func(ctx context.Context, params provider.QueryParams) (any, error) {
			return client.Profiles(ctx, splitSymbols(params[provider.ParamSymbols]))
		}))
	p.RegisterFetcher(newFetcher(provider.ModelOptionExpirations, "Option expiration calendar and ticker_id",
		[]string{provider.ParamSymbol}, nil,
		func(ctx context.Context, params provider.QueryParams) (any, error) {
			return client.OptionExpirations(ctx, strings.ToUpper(params[provider.ParamSymbol]))
		}))
	p.RegisterFetcher(newFetcher(provider.ModelOptionsChain, "Options chain for one expiration",
		[]string{provider.ParamTickerID, provider.ParamExpirationDate}, nil,
		func(ctx context.Context, params provider.QueryParams) (any, error) {
			id, err := strconv.ParseInt(params[provider.ParamTickerID], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("ticker_id must be an integer: %w", err)
			}
			exp, err := models.ParseDate(params[provider.ParamExpirationDate])
			if err != nil {
				return nil, fmt.Errorf("expiration_date must be YYYY-MM-DD: %w", err)
			}
			return client.Options(ctx, id, exp)
		}))
	p.RegisterFetcher(newFetcher(provider.ModelFinancials, "Raw financial statement rows",
		[]string{provider.ParamSymbol},
		[]string{provider.ParamCurrency, provider.ParamPeriodType, provider.ParamStatementType},
		func(ctx context.Context, params provider.QueryParams) (any, error) {
			return client.Financials(ctx, FinancialsQuery{
				Symbol:         params[provider.ParamSymbol],
				TargetCurrency: stringParam(params, provider.ParamCurrency, models.DefaultTargetCurrency),
				PeriodType:     stringParam(params, provider.ParamPeriodType, models.DefaultPeriodType),
				StatementType:  stringParam(params, provider.ParamStatementType, models.StatementIncome),
			})
		}))
	p.RegisterFetcher(newFetcher(provider.ModelPriceChart, "Daily closes",
		[]string{provider.ParamSymbol}, []string{provider.ParamPeriod},
		func(ctx context.Context, params provider.QueryParams) (any, error) {
			return client.Chart(ctx, strings.ToUpper(params[provider.ParamSymbol]), stringParam(params, provider.ParamPeriod, "6M"))
		}))
	return p
}

// Init stores the API key on the client.
func (p *Provider) Init(credentials map[string]string) error {
	if err := p.BaseProvider.Init(credentials); err != nil {
		return err
	}
	if key := p.Credential("api_key"); key != "" {
		p.client.key = key
	}
	return nil
}

// Ping lists screeners, the cheapest authenticated call.
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.client.ListScreeners(ctx)
	return err
}

type fetchFunc func(ctx context.Context, params provider.QueryParams) (any, error)

type fetcher struct {
	provider.BaseFetcher
	fn fetchFunc
}

func newFetcher(model provider.ModelType, desc string, required, optional []string, fn fetchFunc) *fetcher {
	return &fetcher{
		BaseFetcher: provider.NewBaseFetcher(model, desc, required, optional),
		fn:          fn,
	}
}

func (f *fetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	data, err := f.fn(ctx, params)
	if err != nil {
		return nil, err
	}
	return &provider.FetchResult{Data: data, FetchedAt: time.Now()}, nil
}

func intParam(params provider.QueryParams, key string, def int) int {
	if n, err := strconv.Atoi(params[key]); err == nil && n > 0 {
		return n
	}
	return def
}

func stringParam(params provider.QueryParams, key, def string) string {
	if v := strings.TrimSpace(params[key]); v != "" {
		return v
	}
	return def
}

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
