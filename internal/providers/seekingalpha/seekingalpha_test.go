package seekingalpha

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/seenimoa/optiscreen/internal/infra"
	"github.com/seenimoa/optiscreen/internal/provider"
	"github.com/seenimoa/optiscreen/pkg/models"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	v, err := infra.DecodeJSON([]byte(s))
	if err != nil {
		t.Fatalf("decode %s: %v", s, err)
	}
	return v
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Key: "test-key"}, zerolog.Nop())
}

// ── Parsing ──

func TestParseScreenerResultsNameOrder(t *testing.T) {
	v := decode(t, `{"data": [
		{"attributes": {"name": "AAPL", "names": ["ignored"]}},
		{"attributes": {"names": ["MSFT", "", "GOOG"]}},
		{"attributes": {"p": {"name": "ANET"}}},
		{"attributes": {"p": {"names": ["NVDA"]}}},
		{"attributes": {}},
		"junk"
	]}`)
	page, err := ParseScreenerResults(v)
	if err != nil {
		t.Fatalf("ParseScreenerResults: %v", err)
	}
	want := []string{"AAPL", "MSFT", "GOOG", "ANET", "NVDA"}
	if strings.Join(page.Names, ",") != strings.Join(want, ",") {
		t.Errorf("Names: got %v, want %v", page.Names, want)
	}
	if page.Rows != 6 {
		t.Errorf("Rows: got %d, want 6", page.Rows)
	}
}

func TestParseScreenerResultsShapes(t *testing.T) {
	if page, err := ParseScreenerResults(decode(t, `{}`)); err != nil || page.Rows != 0 {
		t.Errorf("missing data: got %+v, %v", page, err)
	}
	if _, err := ParseScreenerResults(decode(t, `{"data": {}}`)); err == nil {
		t.Error("map data should be rejected")
	}
	if _, err := ParseScreenerResults(decode(t, `[]`)); err == nil {
		t.Error("list payload should be rejected")
	}
}

func TestParseProfiles(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		requested []string
		want      map[string][2]string // symbol → price, market cap
	}{
		{
			name:      "list with ids",
			body:      `{"data": [{"id": "aapl", "attributes": {"lastDaily": {"last": 189.5}, "marketCap": 2950000000000}}, {"id": "MSFT", "attributes": {"last": "410.1"}}]}`,
			requested: []string{"AAPL", "MSFT"},
			want:      map[string][2]string{"AAPL": {"189.5", "2950000000000"}, "MSFT": {"410.1", ""}},
		},
		{
			name:      "map keyed by symbol",
			body:      `{"data": {"ANET": {"attributes": {"price": {"last": 95.25}}}}}`,
			requested: []string{"ANET"},
			want:      map[string][2]string{"ANET": {"95.25", ""}},
		},
		{
			name:      "single object without id",
			body:      `{"data": {"attributes": {"lastDaily": {"last": 12}}}}`,
			requested: []string{"XYZ"},
			want:      map[string][2]string{"XYZ": {"12", ""}},
		},
		{
			name:      "symbol key fallback",
			body:      `[{"symbol": "T", "last": 17.01}]`,
			requested: []string{"T", "VZ"},
			want:      map[string][2]string{"T": {"17.01", ""}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseProfiles(decode(t, tc.body), tc.requested)
			if err != nil {
				t.Fatalf("ParseProfiles: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("profiles: got %v", got)
			}
			for sym, w := range tc.want {
				p, ok := got[sym]
				if !ok {
					t.Fatalf("missing %s in %v", sym, got)
				}
				if price := nullString(p.Price); price != w[0] {
					t.Errorf("%s price: got %q, want %q", sym, price, w[0])
				}
				if mc := nullString(p.MarketCap); mc != w[1] {
					t.Errorf("%s market cap: got %q, want %q", sym, mc, w[1])
				}
			}
		})
	}
}

func TestParseProfilesBadNumber(t *testing.T) {
	_, err := ParseProfiles(decode(t, `{"data": [{"id": "X", "attributes": {"last": "n/a"}}]}`), []string{"X"})
	if err == nil || !strings.Contains(err.Error(), "unable to parse 'n/a' as a decimal number") {
		t.Errorf("got %v", err)
	}
}

func TestParseExpirations(t *testing.T) {
	v := decode(t, `{"data": {"attributes": {"ticker_id": 146, "dates": ["11/21/2025", "bad", null, "12/19/2025"]}}}`)
	exp := ParseExpirations(v)
	if exp.TickerID != "146" {
		t.Errorf("TickerID: got %q, want 146", exp.TickerID)
	}
	if len(exp.Dates) != 2 || exp.Dates[0].String() != "2025-11-21" || exp.Dates[1].String() != "2025-12-19" {
		t.Errorf("Dates: got %v", exp.Dates)
	}

	list := ParseExpirations(decode(t, `{"data": [{"nothing": 1}, {"dates": ["01/16/2026"], "ticker_id": "9"}]}`))
	if list.TickerID != "9" || len(list.Dates) != 1 {
		t.Errorf("list shape: got %+v", list)
	}

	empty := ParseExpirations(decode(t, `{"data": {}}`))
	if empty.TickerID != "" || len(empty.Dates) != 0 {
		t.Errorf("empty: got %+v", empty)
	}
}

func TestParseOptions(t *testing.T) {
	quotes, err := ParseOptions(decode(t, `{"options": [
		{"option_type": "PUT", "strike_price": 95, "bid": 2.1, "ask": "2.3"},
		{"option_type": "call", "strike_price": "100", "bid": null},
		{"option_type": "put", "strike_price": "x"}
	]}`))
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("quotes: got %d, want 2", len(quotes))
	}
	if !quotes[0].IsPut() || quotes[0].Strike.String() != "95" || quotes[0].Ask.Decimal.String() != "2.3" {
		t.Errorf("quotes[0]: got %+v", quotes[0])
	}
	if quotes[1].Bid.Valid {
		t.Error("null bid should be invalid")
	}

	if _, err := ParseOptions(decode(t, `[]`)); err != nil {
		t.Errorf("list shape: %v", err)
	}
	if _, err := ParseOptions(decode(t, `{"data": []}`)); err == nil {
		t.Error("missing options should fail")
	}
}

func TestParseChartSortsByDate(t *testing.T) {
	points, err := ParseChart(decode(t, `{"attributes": {
		"2025-01-03 00:00:00": {"close": 11},
		"2025-01-02 00:00:00": {"close": 10.5},
		"2025-01-06 00:00:00": {"open": 1}
	}}`))
	if err != nil {
		t.Fatalf("ParseChart: %v", err)
	}
	if len(points) != 2 || points[0].Close != 10.5 || points[1].Close != 11 {
		t.Errorf("points: got %+v", points)
	}
}

// ── Client ──

func TestClientSendsRapidAPIHeadersAndCounts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-rapidapi-key") != "test-key" {
			t.Errorf("x-rapidapi-key: got %q", r.Header.Get("x-rapidapi-key"))
		}
		if r.Header.Get("x-rapidapi-host") != DefaultHost {
			t.Errorf("x-rapidapi-host: got %q", r.Header.Get("x-rapidapi-host"))
		}
		if r.URL.Path != pathOptionExpirations || r.URL.Query().Get("symbol") != "ANET" {
			t.Errorf("request: got %s", r.URL)
		}
		io.WriteString(w, `{"data": {"attributes": {"ticker_id": 146, "dates": ["11/21/2025"]}}}`)
	})

	exp, err := c.OptionExpirations(context.Background(), "ANET")
	if err != nil {
		t.Fatalf("OptionExpirations: %v", err)
	}
	if exp.Symbol != "ANET" || exp.TickerID != "146" {
		t.Errorf("exp: got %+v", exp)
	}
	c.OptionExpirations(context.Background(), "ANET")
	if c.Calls() != 2 {
		t.Errorf("Calls: got %d, want 2", c.Calls())
	}
}

func TestClientScreenerResultsPostsPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s", r.Method)
		}
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("per_page") != "50" || q.Get("type") != "stock" {
			t.Errorf("query: got %s", r.URL.RawQuery)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["quant_rating"]; !ok {
			t.Errorf("body: got %v", body)
		}
		io.WriteString(w, `{"data": [{"attributes": {"name": "AAPL"}}]}`)
	})

	page, err := c.ScreenerResults(context.Background(),
		map[string]any{"quant_rating": map[string]any{"in": []any{"strong_buy"}}},
		ResultsQuery{Page: 2, PerPage: 50, AssetType: "stock"})
	if err != nil {
		t.Fatalf("ScreenerResults: %v", err)
	}
	if len(page.Names) != 1 || page.Names[0] != "AAPL" || page.Rows != 1 {
		t.Errorf("page: got %+v", page)
	}
}

func TestClientFinancialsRequiresList(t *testing.T) {
	body := `[{"name": "Revenue"}]`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("statement_type") != "income-statement" {
			t.Errorf("statement_type: got %q", r.URL.Query().Get("statement_type"))
		}
		io.WriteString(w, body)
	})
	q := FinancialsQuery{Symbol: "ANET", TargetCurrency: "USD", PeriodType: "annual", StatementType: "income-statement"}

	raw, err := c.Financials(context.Background(), q)
	if err != nil {
		t.Fatalf("Financials: %v", err)
	}
	if string(raw) != `[{"name":"Revenue"}]` {
		t.Errorf("payload: got %s", raw)
	}

	body = `{"data": []}`
	if _, err := c.Financials(context.Background(), q); err == nil {
		t.Error("object payload should be rejected")
	}
}

func TestClientHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, "quota")
	})
	_, err := c.Profiles(context.Background(), []string{"AAPL"})
	if err == nil || !strings.Contains(err.Error(), "received unexpected status code 429") {
		t.Errorf("got %v", err)
	}
}

func TestProfileURL(t *testing.T) {
	c := NewClient(Config{BaseURL: "https://example.test/"}, zerolog.Nop())
	got := c.ProfileURL([]string{"AAPL", "BRK.B"})
	want := "https://example.test/symbols/get-profile?symbols=AAPL%2CBRK.B"
	if got != want {
		t.Errorf("ProfileURL: got %q, want %q", got, want)
	}
}

// ── Provider ──

func TestProviderRequiresKeyAndFetches(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-rapidapi-key") != "from-init" {
			t.Errorf("key: got %q", r.Header.Get("x-rapidapi-key"))
		}
		io.WriteString(w, `{"data": {"attributes": {"ticker_id": 7, "dates": []}}}`)
	})
	p := New(c)
	if err := p.Init(nil); err == nil {
		t.Error("Init without api_key should fail")
	}
	if err := p.Init(map[string]string{"api_key": "from-init"}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	reg := provider.NewRegistry()
	if err := reg.Register(p); err != nil {
		t.Fatalf("Register: %v", err)
	}
	res, err := reg.Fetch(context.Background(), provider.ModelOptionExpirations, provider.QueryParams{provider.ParamSymbol: "x"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	exp := res.Data.(models.Expirations)
	if exp.Symbol != "X" || exp.TickerID != "7" {
		t.Errorf("data: got %+v", exp)
	}
	if len(p.SupportedModels()) != 7 {
		t.Errorf("SupportedModels: got %v", p.SupportedModels())
	}
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
