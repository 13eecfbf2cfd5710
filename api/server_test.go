package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/seenimoa/optiscreen/internal/config"
	"github.com/seenimoa/optiscreen/internal/database"
	"github.com/seenimoa/optiscreen/internal/scheduler"
	"github.com/seenimoa/optiscreen/internal/store"
	"github.com/seenimoa/optiscreen/pkg/models"
)

// ── Test Helpers ──

func testServer(t *testing.T) *Server {
	t.Helper()
	return testServerWithConfig(t, &config.Config{})
}

func testServerWithConfig(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	db, err := database.Open(context.Background(), database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := NewServer(cfg, store.New(db.Conn(), zerolog.Nop()), zerolog.Nop(), WithVersion("test"))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Hub().Run(ctx)
	return srv
}

// envelope mirrors APIResponse with data left undecoded.
type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors"`
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var resp envelope
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) envelope {
	t.Helper()
	resp := decodeResponse(t, rec)
	if err := json.Unmarshal(resp.Data, v); err != nil {
		t.Fatalf("failed to decode data %s: %v", resp.Data, err)
	}
	return resp
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status: got %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

type investmentJSON struct {
	ID                 int64   `json:"id"`
	Ticker             string  `json:"ticker"`
	Category           string  `json:"category"`
	Price              *string `json:"price"`
	OptionExp          *string `json:"option_exp"`
	OptionsSuitability *int    `json:"options_suitability"`
}

func seedInvestment(t *testing.T, srv *Server, inv models.Investment) models.Investment {
	t.Helper()
	if err := srv.store.Investments.Create(context.Background(), &inv); err != nil {
		t.Fatalf("seed %s: %v", inv.Ticker, err)
	}
	return inv
}

func tickers(items []investmentJSON) string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Ticker
	}
	return strings.Join(out, ",")
}

// ── Investments ──

func TestInvestmentCRUD(t *testing.T) {
	srv := testServer(t)

	rec := do(t, srv, http.MethodPost, "/api/investments/", `{"ticker":" aapl ","category":"stock","price":"15.42","option_exp":"2024-03-28"}`)
	expectStatus(t, rec, http.StatusCreated)
	var created investmentJSON
	resp := decodeData(t, rec, &created)
	if !resp.Success {
		t.Error("success: got false, want true")
	}
	if created.Ticker != "AAPL" {
		t.Errorf("ticker: got %q, want %q", created.Ticker, "AAPL")
	}
	if created.Price == nil || *created.Price != "15.4200" {
		t.Errorf("price: got %v, want 15.4200", created.Price)
	}

	path := fmt.Sprintf("/api/investments/%d/", created.ID)
	rec = do(t, srv, http.MethodGet, path, "")
	expectStatus(t, rec, http.StatusOK)

	rec = do(t, srv, http.MethodPatch, path, `{"price": 16, "options_suitability": 1}`)
	expectStatus(t, rec, http.StatusOK)
	var patched investmentJSON
	decodeData(t, rec, &patched)
	if patched.Price == nil || *patched.Price != "16.0000" {
		t.Errorf("patched price: got %v, want 16.0000", patched.Price)
	}
	if patched.Category != "stock" {
		t.Errorf("patched category: got %q, want %q", patched.Category, "stock")
	}
	if patched.OptionExp == nil || *patched.OptionExp != "2024-03-28" {
		t.Errorf("patched option_exp: got %v, want 2024-03-28", patched.OptionExp)
	}

	rec = do(t, srv, http.MethodPut, path, `{"ticker":"AAPL"}`)
	expectStatus(t, rec, http.StatusBadRequest)
	if got := decodeResponse(t, rec).Errors["category"]; got != models.MsgRequired {
		t.Errorf("put without category: got %q, want %q", got, models.MsgRequired)
	}

	rec = do(t, srv, http.MethodPut, path, `{"ticker":"msft","category":"etf"}`)
	expectStatus(t, rec, http.StatusOK)
	var put investmentJSON
	decodeData(t, rec, &put)
	if put.Ticker != "MSFT" || put.Category != "etf" {
		t.Errorf("put: got %s/%s, want MSFT/etf", put.Ticker, put.Category)
	}
	if put.Price == nil || *put.Price != "16.0000" {
		t.Errorf("put keeps omitted fields: got price %v, want 16.0000", put.Price)
	}

	rec = do(t, srv, http.MethodDelete, path, "")
	expectStatus(t, rec, http.StatusNoContent)
	rec = do(t, srv, http.MethodGet, path, "")
	expectStatus(t, rec, http.StatusNotFound)
	rec = do(t, srv, http.MethodDelete, path, "")
	expectStatus(t, rec, http.StatusNotFound)
}

func TestCreateInvestmentValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
		want  string
	}{
		{"blank ticker", `{"ticker":"   ","category":"stock"}`, "ticker", "Ticker cannot be empty."},
		{"missing ticker", `{"category":"stock"}`, "ticker", models.MsgRequired},
		{"missing category", `{"ticker":"AAPL"}`, "category", models.MsgRequired},
		{"blank category", `{"ticker":"AAPL","category":""}`, "category", models.MsgBlank},
		{"null ticker", `{"ticker":null,"category":"stock"}`, "ticker", models.MsgNull},
		{"bad price", `{"ticker":"AAPL","category":"stock","price":"abc"}`, "price", msgInvalidNumber},
		{"too many places", `{"ticker":"AAPL","category":"stock","price":"1.23456"}`, "price", "Ensure that there are no more than 4 decimal places."},
		{"too many digits", `{"ticker":"AAPL","category":"stock","price":123456789}`, "price", "Ensure that there are no more than 8 digits before the decimal point."},
		{"bad volume", `{"ticker":"AAPL","category":"stock","volume":"lots"}`, "volume", msgInvalidInteger},
		{"fractional volume", `{"ticker":"AAPL","category":"stock","volume":1.5}`, "volume", msgInvalidInteger},
		{"bad date", `{"ticker":"AAPL","category":"stock","option_exp":"03/28/2024"}`, "option_exp", msgInvalidDate},
		{"bad suitability", `{"ticker":"AAPL","category":"stock","options_suitability":5}`, "options_suitability", `"5" is not a valid choice.`},
		{"bad bool", `{"ticker":"AAPL","category":"stock","weekly_options":"maybe"}`, "weekly_options", msgInvalidBool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t)
			rec := do(t, srv, http.MethodPost, "/api/investments", tt.body)
			expectStatus(t, rec, http.StatusBadRequest)
			resp := decodeResponse(t, rec)
			if resp.Success {
				t.Error("success: got true, want false")
			}
			if got := resp.Errors[tt.field]; got != tt.want {
				t.Errorf("errors[%s]: got %q, want %q (all %v)", tt.field, got, tt.want, resp.Errors)
			}
		})
	}
}

func TestCreateInvestmentAcceptsWholeFloatVolume(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodPost, "/api/investments", `{"ticker":"AAPL","category":"stock","volume":12.0}`)
	expectStatus(t, rec, http.StatusCreated)
	var got struct {
		Volume *int64 `json:"volume"`
	}
	decodeData(t, rec, &got)
	if got.Volume == nil || *got.Volume != 12 {
		t.Errorf("volume: got %v, want 12", got.Volume)
	}
}

func TestCreateInvestmentRejectsMalformedBody(t *testing.T) {
	srv := testServer(t)
	for _, body := range []string{`{"ticker":`, `[1,2]`, `null`} {
		rec := do(t, srv, http.MethodPost, "/api/investments", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", body, rec.Code)
		}
	}
}

func TestCreateInvestmentDuplicateTicker(t *testing.T) {
	srv := testServer(t)
	seedInvestment(t, srv, models.Investment{Ticker: "AAPL", Category: "stock"})

	rec := do(t, srv, http.MethodPost, "/api/investments", `{"ticker":"aapl","category":"stock"}`)
	expectStatus(t, rec, http.StatusBadRequest)
	if got := decodeResponse(t, rec).Errors["ticker"]; got != "investment with this ticker already exists." {
		t.Errorf("errors[ticker]: got %q", got)
	}
}

func TestListInvestmentFilters(t *testing.T) {
	srv := testServer(t)
	vol := int64(100)
	suitable := models.IntPtr(models.SuitabilitySuitable)
	price := func(s string) decimal.NullDecimal {
		return models.NewNullDecimal(decimal.RequireFromString(s))
	}
	seedInvestment(t, srv, models.Investment{Ticker: "AAA", Category: "stock", ScreenerType: models.StocksByQuant,
		Price: price("10"), Volume: &vol, OptionsSuitability: suitable, OptVal: price("1.5"), MarketCap: price("1000")})
	seedInvestment(t, srv, models.Investment{Ticker: "BBB", Category: "etf", ScreenerType: "Dividend",
		Price: price("50"), OptVal: price("3"), MarketCap: price("5000")})
	seedInvestment(t, srv, models.Investment{Ticker: "CCC", Category: "Stock"})

	tests := []struct {
		query string
		want  string
	}{
		{"", "AAA,BBB,CCC"},
		{"category=STOCK", "AAA,CCC"},
		{"screener_type=stocks+by+quant", "AAA"},
		{"screenter_type=dividend", "BBB"},
		{"screener_type=Dividend&screenter_type=Stocks+by+Quant", "BBB"},
		{"ticker=b", "BBB"},
		{"price=10", "AAA"},
		{"min_price=20", "BBB"},
		{"max_price=20", "AAA"},
		{"min_price=10&max_price=50", "AAA,BBB"},
		{"opt_val=3", "BBB"},
		{"min_opt_val=2", "BBB"},
		{"max_opt_val=2", "AAA"},
		{"min_market_cap=2000", "BBB"},
		{"max_market_cap=2000", "AAA"},
		{"min_volume=50", "AAA"},
		{"options_suitability=1", "AAA"},
		{"category=stock&ticker=c", "CCC"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, "/api/investments/?"+tt.query, "")
			expectStatus(t, rec, http.StatusOK)
			var items []investmentJSON
			decodeData(t, rec, &items)
			if got := tickers(items); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListInvestmentFilterErrors(t *testing.T) {
	srv := testServer(t)
	tests := []struct {
		query string
		field string
		want  string
	}{
		{"min_price=abc", "min_price", msgFilterNumber},
		{"price=", "price", msgFilterNumber},
		{"max_opt_val=1e", "max_opt_val", msgFilterNumber},
		{"min_volume=1.5", "min_volume", msgFilterInteger},
		{"options_suitability=yes", "options_suitability", msgFilterInteger},
		{"min_price=10&max_price=5", "max_price", msgFilterRange},
		{"min_market_cap=10&max_market_cap=9.99", "max_market_cap", msgFilterRange},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, "/api/investments?"+tt.query, "")
			expectStatus(t, rec, http.StatusBadRequest)
			if got := decodeResponse(t, rec).Errors[tt.field]; got != tt.want {
				t.Errorf("errors[%s]: got %q, want %q", tt.field, got, tt.want)
			}
		})
	}
}

func TestListInvestmentsEmptyIsList(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodGet, "/api/investments", "")
	expectStatus(t, rec, http.StatusOK)
	if got := string(decodeResponse(t, rec).Data); got != "[]" {
		t.Errorf("data: got %s, want []", got)
	}
}

// ── Screeners ──

func TestScreenerTypeNamesAreCaseSensitive(t *testing.T) {
	srv := testServer(t)

	rec := do(t, srv, http.MethodPost, "/api/screener-types", `{"name":"Custom"}`)
	expectStatus(t, rec, http.StatusCreated)
	rec = do(t, srv, http.MethodPost, "/api/screener-types", `{"name":"custom"}`)
	expectStatus(t, rec, http.StatusCreated)
	var st struct {
		Name string `json:"name"`
	}
	decodeData(t, rec, &st)
	if st.Name != "custom" {
		t.Errorf("name: got %q, want %q", st.Name, "custom")
	}

	rec = do(t, srv, http.MethodGet, "/api/screener-types", "")
	expectStatus(t, rec, http.StatusOK)
	var all []json.RawMessage
	decodeData(t, rec, &all)
	if len(all) != 2 {
		t.Errorf("screener types: got %d, want 2", len(all))
	}
}

func TestScreenerTypesAndFilters(t *testing.T) {
	srv := testServer(t)

	rec := do(t, srv, http.MethodPost, "/api/screener-types", `{"name":" Custom ","description":"mine"}`)
	expectStatus(t, rec, http.StatusCreated)
	var st struct {
		ID      int64             `json:"id"`
		Name    string            `json:"name"`
		Filters []json.RawMessage `json:"filters"`
	}
	decodeData(t, rec, &st)
	if st.Name != "Custom" {
		t.Errorf("name: got %q, want %q", st.Name, "Custom")
	}
	if st.Filters == nil || len(st.Filters) != 0 {
		t.Errorf("filters: got %v, want empty list", st.Filters)
	}

	rec = do(t, srv, http.MethodPost, "/api/screener-types/", `{"name":"Custom"}`)
	expectStatus(t, rec, http.StatusBadRequest)
	if got := decodeResponse(t, rec).Errors["name"]; got != "screener type with this name already exists." {
		t.Errorf("duplicate name: got %q", got)
	}

	body := fmt.Sprintf(`{"screener_type":%d,"label":"div_yield","payload":{"div_yield":{"gte":3}},"display_order":2}`, st.ID)
	rec = do(t, srv, http.MethodPost, "/api/screener-filters/", body)
	expectStatus(t, rec, http.StatusCreated)
	var f struct {
		ID      int64           `json:"id"`
		Payload json.RawMessage `json:"payload"`
	}
	decodeData(t, rec, &f)
	if string(f.Payload) != `{"div_yield":{"gte":3}}` {
		t.Errorf("payload: got %s", f.Payload)
	}

	rec = do(t, srv, http.MethodGet, fmt.Sprintf("/api/screener-types/%d", st.ID), "")
	expectStatus(t, rec, http.StatusOK)
	decodeData(t, rec, &st)
	if len(st.Filters) != 1 {
		t.Errorf("filters after create: got %d, want 1", len(st.Filters))
	}

	rec = do(t, srv, http.MethodGet, fmt.Sprintf("/api/screener-filters?screener_type=%d", st.ID), "")
	expectStatus(t, rec, http.StatusOK)
	var filters []json.RawMessage
	decodeData(t, rec, &filters)
	if len(filters) != 1 {
		t.Errorf("filter list: got %d, want 1", len(filters))
	}

	rec = do(t, srv, http.MethodPatch, fmt.Sprintf("/api/screener-filters/%d/", f.ID), `{"label":"  "}`)
	expectStatus(t, rec, http.StatusBadRequest)
	if got := decodeResponse(t, rec).Errors["label"]; got != "Label cannot be empty." {
		t.Errorf("blank label: got %q", got)
	}

	rec = do(t, srv, http.MethodPut, fmt.Sprintf("/api/screener-types/%d", st.ID), `{"description":"x"}`)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = do(t, srv, http.MethodDelete, fmt.Sprintf("/api/screener-types/%d", st.ID), "")
	expectStatus(t, rec, http.StatusNoContent)
	rec = do(t, srv, http.MethodGet, fmt.Sprintf("/api/screener-filters/%d", f.ID), "")
	expectStatus(t, rec, http.StatusNotFound)
}

func TestCreateScreenerFilterValidation(t *testing.T) {
	srv := testServer(t)
	tests := []struct {
		name  string
		body  string
		field string
		want  string
	}{
		{"unknown type", `{"screener_type":999,"label":"x","payload":{}}`, "screener_type", `Invalid pk "999" - object does not exist.`},
		{"missing payload", `{"screener_type":999,"label":"x"}`, "payload", models.MsgRequired},
		{"null payload", `{"screener_type":999,"label":"x","payload":null}`, "payload", models.MsgNull},
		{"bad type id", `{"screener_type":"abc","label":"x","payload":{}}`, "screener_type", msgInvalidInteger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/screener-filters", tt.body)
			expectStatus(t, rec, http.StatusBadRequest)
			if got := decodeResponse(t, rec).Errors[tt.field]; got != tt.want {
				t.Errorf("errors[%s]: got %q, want %q", tt.field, got, tt.want)
			}
		})
	}
}

// ── Financial statements and reports ──

func TestFinancialStatements(t *testing.T) {
	srv := testServer(t)

	body := `{"symbol":"anet","statement_type":"income-statement","payload":[{"name":"Revenue"}]}`
	rec := do(t, srv, http.MethodPost, "/api/financial-statements/", body)
	expectStatus(t, rec, http.StatusCreated)
	var fs struct {
		ID             int64  `json:"id"`
		Symbol         string `json:"symbol"`
		TargetCurrency string `json:"target_currency"`
		PeriodType     string `json:"period_type"`
	}
	decodeData(t, rec, &fs)
	if fs.Symbol != "ANET" || fs.TargetCurrency != "USD" || fs.PeriodType != "annual" {
		t.Errorf("created: got %+v", fs)
	}

	rec = do(t, srv, http.MethodPost, "/api/financial-statements/", body)
	expectStatus(t, rec, http.StatusBadRequest)
	if _, ok := decodeResponse(t, rec).Errors["non_field_errors"]; !ok {
		t.Error("duplicate statement: want non_field_errors")
	}

	rec = do(t, srv, http.MethodPost, "/api/financial-statements/", `{"symbol":"anet","statement_type":"balance-sheet","payload":{"a":1}}`)
	expectStatus(t, rec, http.StatusBadRequest)
	if got := decodeResponse(t, rec).Errors["payload"]; got != "Payload must be a JSON list." {
		t.Errorf("object payload: got %q", got)
	}

	rec = do(t, srv, http.MethodGet, "/api/financial-statements?symbol=anet&statement_type=INCOME-STATEMENT", "")
	expectStatus(t, rec, http.StatusOK)
	var items []json.RawMessage
	decodeData(t, rec, &items)
	if len(items) != 1 {
		t.Errorf("list: got %d, want 1", len(items))
	}

	rec = do(t, srv, http.MethodPatch, fmt.Sprintf("/api/financial-statements/%d", fs.ID), `{"period_type":"Quarterly"}`)
	expectStatus(t, rec, http.StatusOK)
	decodeData(t, rec, &fs)
	if fs.PeriodType != "quarterly" {
		t.Errorf("period_type: got %q, want %q", fs.PeriodType, "quarterly")
	}
}

func TestDueDiligenceReports(t *testing.T) {
	srv := testServer(t)

	rec := do(t, srv, http.MethodPost, "/api/due-diligence-reports", `{"symbol":" anet","rating":"buy","confidence":0.8,"report":{"text":"ok"}}`)
	expectStatus(t, rec, http.StatusCreated)
	var rep struct {
		ID            int64           `json:"id"`
		Symbol        string          `json:"symbol"`
		Rating        string          `json:"rating"`
		Confidence    *float64        `json:"confidence"`
		FinancialData json.RawMessage `json:"financial_data"`
	}
	decodeData(t, rec, &rep)
	if rep.Symbol != "ANET" || rep.Rating != "BUY" {
		t.Errorf("created: got %s/%s, want ANET/BUY", rep.Symbol, rep.Rating)
	}
	if rep.Confidence == nil || *rep.Confidence != 0.8 {
		t.Errorf("confidence: got %v, want 0.8", rep.Confidence)
	}
	if string(rep.FinancialData) != "{}" {
		t.Errorf("financial_data: got %s, want {}", rep.FinancialData)
	}

	rec = do(t, srv, http.MethodPost, "/api/due-diligence-reports", `{"symbol":"","rating":"buy","confidence":"high"}`)
	expectStatus(t, rec, http.StatusBadRequest)
	resp := decodeResponse(t, rec)
	if got := resp.Errors["symbol"]; got != "Symbol cannot be empty." {
		t.Errorf("errors[symbol]: got %q", got)
	}
	if got := resp.Errors["confidence"]; got != msgInvalidNumber {
		t.Errorf("errors[confidence]: got %q", got)
	}

	rec = do(t, srv, http.MethodGet, "/api/due-diligence-reports?rating=Buy&symbol=ANET", "")
	expectStatus(t, rec, http.StatusOK)
	var items []json.RawMessage
	decodeData(t, rec, &items)
	if len(items) != 1 {
		t.Errorf("list: got %d, want 1", len(items))
	}

	rec = do(t, srv, http.MethodDelete, fmt.Sprintf("/api/due-diligence-reports/%d/", rep.ID), "")
	expectStatus(t, rec, http.StatusNoContent)
}

// ── CBOE, health, keys ──

func TestCboeSecuritiesReadOnly(t *testing.T) {
	srv := testServer(t)
	if _, err := srv.store.Cboe.Replace(context.Background(), []string{"AAPL", "SPY", "SPX"}); err != nil {
		t.Fatalf("seed cboe: %v", err)
	}

	rec := do(t, srv, http.MethodGet, "/api/cboe-securities/?symbol=sp", "")
	expectStatus(t, rec, http.StatusOK)
	var items []struct {
		ID     int64  `json:"id"`
		Symbol string `json:"symbol"`
	}
	decodeData(t, rec, &items)
	if len(items) != 2 || items[0].Symbol != "SPX" || items[1].Symbol != "SPY" {
		t.Errorf("list: got %+v, want SPX, SPY", items)
	}

	rec = do(t, srv, http.MethodGet, fmt.Sprintf("/api/cboe-securities/%d", items[0].ID), "")
	expectStatus(t, rec, http.StatusOK)

	rec = do(t, srv, http.MethodPost, "/api/cboe-securities", `{"symbol":"QQQ"}`)
	expectStatus(t, rec, http.StatusMethodNotAllowed)
}

func TestNotFoundRoutes(t *testing.T) {
	srv := testServer(t)
	for _, path := range []string{"/api/nope", "/api/investments/abc", "/api/investments/0/", "/api/screener-types/42"} {
		rec := do(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: got %d, want 404", path, rec.Code)
		}
	}
}

func TestHealth(t *testing.T) {
	srv := testServer(t)
	for _, path := range []string{"/health", "/api/health/"} {
		rec := do(t, srv, http.MethodGet, path, "")
		expectStatus(t, rec, http.StatusOK)
		var h HealthResponse
		decodeData(t, rec, &h)
		if h.Status != "ok" || h.Version != "test" || h.Database != "ok" {
			t.Errorf("%s: got %+v", path, h)
		}
	}
}

func TestConfigKeysAreMasked(t *testing.T) {
	cfg := &config.Config{}
	cfg.RapidAPI.Key = "abcdefghijkl"
	srv := testServerWithConfig(t, cfg)

	rec := do(t, srv, http.MethodGet, "/api/config/keys", "")
	expectStatus(t, rec, http.StatusOK)
	var keys []config.KeyStatus
	decodeData(t, rec, &keys)
	if len(keys) != 2 {
		t.Fatalf("keys: got %d, want 2", len(keys))
	}
	if !keys[0].IsSet || keys[0].Masked != "abc...jkl" {
		t.Errorf("rapidapi key: got %+v", keys[0])
	}
	if strings.Contains(rec.Body.String(), "abcdefghijkl") {
		t.Error("response leaks the raw key")
	}
}

func TestCORSPreflightAllowsPatch(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/investments/1", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("Access-Control-Allow-Origin: got empty")
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodPatch) {
		t.Errorf("Access-Control-Allow-Methods: got %q, want PATCH", got)
	}
}

// ── WebSocket ──

func TestWebSocketReceivesJobEvents(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello Message
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.Type != "hello" {
		t.Errorf("first message: got %q, want hello", hello.Type)
	}

	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub().ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	srv.Hub().Publish(scheduler.Event{RunID: "r1", Job: scheduler.JobScreeners, Status: scheduler.StatusSucceeded})

	var msg struct {
		Type string          `json:"type"`
		Data scheduler.Event `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if msg.Type != "job.succeeded" {
		t.Errorf("type: got %q, want job.succeeded", msg.Type)
	}
	if msg.Data.Job != scheduler.JobScreeners || msg.Data.RunID != "r1" {
		t.Errorf("event: got %+v", msg.Data)
	}
}
