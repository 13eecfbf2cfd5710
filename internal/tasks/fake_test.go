package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/optiscreen/internal/apiclient"
	"github.com/seenimoa/optiscreen/internal/config"
	"github.com/seenimoa/optiscreen/internal/database"
	"github.com/seenimoa/optiscreen/internal/infra"
	"github.com/seenimoa/optiscreen/internal/providers/seekingalpha"
	"github.com/seenimoa/optiscreen/internal/store"
	"github.com/seenimoa/optiscreen/pkg/models"
)

// fakeSA serves canned Seeking Alpha responses.
type fakeSA struct {
	mu sync.Mutex

	screeners   string
	pages       [][]string
	perPageRows []int
	profiles    map[string]models.Profile
	singleOnly  map[string]bool
	expirations map[string]models.Expirations
	expErr      map[string]error
	options     map[int64][]models.OptionQuote
	financials  string
	charts      map[string][]models.PricePoint

	payloads      []map[string]any
	queries       []seekingalpha.ResultsQuery
	profileCalls  [][]string
	financialsReq []seekingalpha.FinancialsQuery
	calls         int64
}

func (f *fakeSA) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeSA) Calls() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSA) ListScreeners(context.Context) (any, error) {
	f.count()
	return infra.DecodeJSON([]byte(f.screeners))
}

func (f *fakeSA) ScreenerResults(_ context.Context, payload map[string]any, q seekingalpha.ResultsQuery) (seekingalpha.ScreenerPage, error) {
	f.count()
	f.payloads = append(f.payloads, payload)
	f.queries = append(f.queries, q)
	i := q.Page - 1
	if i >= len(f.pages) {
		return seekingalpha.ScreenerPage{}, nil
	}
	rows := len(f.pages[i])
	if i < len(f.perPageRows) {
		rows = f.perPageRows[i]
	}
	return seekingalpha.ScreenerPage{Names: f.pages[i], Rows: rows}, nil
}

func (f *fakeSA) ProfileURL(symbols []string) string {
	return "https://sa.test/symbols/get-profile?symbols=" + strings.Join(symbols, "%2C")
}

func (f *fakeSA) Profiles(_ context.Context, symbols []string) (map[string]models.Profile, error) {
	f.count()
	f.mu.Lock()
	f.profileCalls = append(f.profileCalls, append([]string(nil), symbols...))
	f.mu.Unlock()
	out := map[string]models.Profile{}
	for _, s := range symbols {
		p, ok := f.profiles[s]
		if !ok || (f.singleOnly[s] && len(symbols) > 1) {
			continue
		}
		out[s] = p
	}
	return out, nil
}

func (f *fakeSA) OptionExpirations(_ context.Context, symbol string) (models.Expirations, error) {
	f.count()
	if err := f.expErr[symbol]; err != nil {
		return models.Expirations{}, err
	}
	exp := f.expirations[symbol]
	exp.Symbol = symbol
	return exp, nil
}

func (f *fakeSA) Options(_ context.Context, tickerID int64, _ models.Date) ([]models.OptionQuote, error) {
	f.count()
	q, ok := f.options[tickerID]
	if !ok {
		return nil, errors.New("options data was not found in the API response")
	}
	return q, nil
}

func (f *fakeSA) Financials(_ context.Context, q seekingalpha.FinancialsQuery) (json.RawMessage, error) {
	f.count()
	f.financialsReq = append(f.financialsReq, q)
	return json.RawMessage(f.financials), nil
}

func (f *fakeSA) Chart(_ context.Context, symbol, _ string) ([]models.PricePoint, error) {
	f.count()
	points, ok := f.charts[symbol]
	if !ok {
		return nil, errors.New("chart data was not found")
	}
	return points, nil
}

type fakeRate struct {
	rate decimal.Decimal
	err  error
}

func (f fakeRate) RiskFreeRate(context.Context) (decimal.Decimal, error) { return f.rate, f.err }

type fakeWeeklies []string

func (f fakeWeeklies) URL() string { return "https://cboe.test/weeklies.csv" }

func (f fakeWeeklies) WeeklySymbols(context.Context) ([]string, error) { return f, nil }

type harness struct {
	runner *Runner
	sa     *fakeSA
	out    *bytes.Buffer
	err    *bytes.Buffer
}

func newHarness(t *testing.T, today time.Time) *harness {
	t.Helper()
	db, err := database.Open(context.Background(), database.Config{Path: database.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := &harness{sa: &fakeSA{}, out: &bytes.Buffer{}, err: &bytes.Buffer{}}
	h.runner = &Runner{
		Store:        store.New(db.Conn(), zerolog.Nop()),
		SeekingAlpha: h.sa,
		Fetch: config.FetchConfig{
			ProfileChunkSize:        3,
			Concurrency:             2,
			MaxPages:                5,
			MinNextMonthExpirations: 3,
			ExpirationWindowDays:    31,
		},
		Log: zerolog.Nop(),
		Out: h.out,
		Err: h.err,
		Now: func() time.Time { return today },
	}
	return h
}

func (h *harness) withAPI(baseURL string) {
	h.runner.API = apiclient.New(baseURL, 5*time.Second)
}

func nd(s string) decimal.NullDecimal {
	return models.NewNullDecimal(decimal.RequireFromString(s))
}

func dates(t *testing.T, ss ...string) []models.Date {
	t.Helper()
	out := make([]models.Date, len(ss))
	for i, s := range ss {
		d, err := models.ParseDate(s)
		require.NoError(t, err)
		out[i] = d
	}
	return out
}

func intPtr(v int) *int { return &v }

func datePtr(t *testing.T, s string) *models.Date {
	d := dates(t, s)[0]
	return &d
}
