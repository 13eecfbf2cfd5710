package provider

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubFetcher struct {
	BaseFetcher
	calls int
}

func newStubFetcher(model ModelType, required []string, opts ...FetcherOption) *stubFetcher {
	return &stubFetcher{BaseFetcher: NewBaseFetcher(model, "stub "+string(model), required, nil, opts...)}
}

func (s *stubFetcher) Fetch(ctx context.Context, params QueryParams) (*FetchResult, error) {
	if err := s.RateLimit(ctx); err != nil {
		return nil, err
	}
	key := CacheKey(s.ModelType(), params)
	if v, ok := s.CacheGet(key); ok {
		r := *v.(*FetchResult)
		r.Cached = true
		return &r, nil
	}
	s.calls++
	r := &FetchResult{Data: params[ParamSymbol]}
	s.CacheSet(key, r)
	return r, nil
}

type stubProvider struct {
	BaseProvider
}

func newStubProvider(name string, creds []ProviderCredential, models ...ModelType) *stubProvider {
	p := &stubProvider{BaseProvider: NewBaseProvider(name, "stub "+name, "https://example.com", creds)}
	for _, m := range models {
		p.RegisterFetcher(newStubFetcher(m, []string{ParamSymbol}))
	}
	return p
}

// ── Registry ──

func TestRegistryRegisterGetList(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"treasury", "seekingalpha"} {
		if err := reg.Register(newStubProvider(name, nil, ModelSymbolProfile)); err != nil {
			t.Fatalf("Register %s: %v", name, err)
		}
	}

	p, err := reg.Get("seekingalpha")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Info().Name != "seekingalpha" {
		t.Errorf("Get: got %q", p.Info().Name)
	}

	infos := reg.List()
	if len(infos) != 2 || infos[0].Name != "seekingalpha" || infos[1].Name != "treasury" {
		t.Errorf("List: got %+v", infos)
	}

	var notFound *ErrProviderNotFound
	if _, err := reg.Get("nope"); !errors.As(err, &notFound) {
		t.Errorf("Get unknown: got %v", err)
	}
}

func TestRegistryRejectsEmptyName(t *testing.T) {
	if err := NewRegistry().Register(newStubProvider("", nil)); err == nil {
		t.Error("Register with empty name should fail")
	}
}

func TestRegistryProvidersFor(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newStubProvider("a", nil, ModelOptionsChain))
	reg.Register(newStubProvider("b", nil, ModelOptionsChain, ModelTreasuryRate))
	reg.Register(newStubProvider("b", nil, ModelOptionsChain)) // re-register keeps one entry

	got := reg.ProvidersFor(ModelOptionsChain)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("ProvidersFor: got %v, want [a b]", got)
	}
	if len(reg.ProvidersFor(ModelWeeklyOptions)) != 0 {
		t.Error("ProvidersFor unserved model should be empty")
	}
}

func TestRegistryFetch(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newStubProvider("seekingalpha", nil, ModelSymbolProfile))

	res, err := reg.Fetch(context.Background(), ModelSymbolProfile, QueryParams{ParamSymbol: "AAPL"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Provider != "seekingalpha" || res.Model != ModelSymbolProfile || res.Data != "AAPL" {
		t.Errorf("Fetch: got %+v", res)
	}
	if res.FetchedAt.IsZero() {
		t.Error("FetchedAt should be set")
	}
}

func TestRegistryFetchErrors(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newStubProvider("seekingalpha", nil, ModelSymbolProfile))
	ctx := context.Background()

	var missing *ErrMissingParam
	if _, err := reg.Fetch(ctx, ModelSymbolProfile, QueryParams{}); !errors.As(err, &missing) {
		t.Errorf("missing param: got %v", err)
	} else if missing.Param != ParamSymbol {
		t.Errorf("missing param name: got %q", missing.Param)
	}

	var unsupported *ErrModelNotSupported
	_, err := reg.Fetch(ctx, ModelFinancials, QueryParams{ParamProvider: "seekingalpha", ParamSymbol: "X"})
	if !errors.As(err, &unsupported) {
		t.Errorf("unsupported model: got %v", err)
	}

	var notFound *ErrProviderNotFound
	if _, err := reg.Fetch(ctx, ModelTreasuryRate, QueryParams{}); !errors.As(err, &notFound) {
		t.Errorf("no provider: got %v", err)
	}
}

// ── BaseFetcher / BaseProvider ──

func TestBaseFetcherCache(t *testing.T) {
	f := newStubFetcher(ModelTreasuryRate, nil, WithCache(time.Minute))
	params := QueryParams{ParamSymbol: "T-BILL"}

	first, _ := f.Fetch(context.Background(), params)
	second, _ := f.Fetch(context.Background(), params)
	if f.calls != 1 {
		t.Errorf("upstream calls: got %d, want 1", f.calls)
	}
	if first.Cached || !second.Cached {
		t.Errorf("Cached flags: got %v/%v, want false/true", first.Cached, second.Cached)
	}

	uncached := newStubFetcher(ModelTreasuryRate, nil)
	uncached.Fetch(context.Background(), params)
	uncached.Fetch(context.Background(), params)
	if uncached.calls != 2 {
		t.Errorf("uncached calls: got %d, want 2", uncached.calls)
	}
}

func TestBaseProviderInit(t *testing.T) {
	creds := []ProviderCredential{{Name: "api_key", Required: true}}
	p := newStubProvider("seekingalpha", creds, ModelSymbolProfile)

	var invalid *ErrInvalidCredentials
	if err := p.Init(nil); !errors.As(err, &invalid) {
		t.Errorf("Init without key: got %v", err)
	}
	if err := p.Init(map[string]string{"api_key": "k"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if p.Credential("api_key") != "k" {
		t.Errorf("Credential: got %q", p.Credential("api_key"))
	}
}

func TestBaseProviderSupportedModelsSorted(t *testing.T) {
	p := newStubProvider("x", nil, ModelPriceChart, ModelFinancials, ModelOptionsChain)
	got := p.Info().Models
	want := []ModelType{ModelFinancials, ModelOptionsChain, ModelPriceChart}
	if len(got) != len(want) {
		t.Fatalf("Models: got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Models[%d]: got %s, want %s", i, got[i], want[i])
		}
	}
}

// ── Helpers ──

func TestCacheKeyIgnoresOrderAndProvider(t *testing.T) {
	a := CacheKey(ModelOptionsChain, QueryParams{ParamTickerID: "1", ParamExpirationDate: "2025-02-21", ParamProvider: "x"})
	b := CacheKey(ModelOptionsChain, QueryParams{ParamExpirationDate: "2025-02-21", ParamTickerID: "1"})
	if a != b {
		t.Errorf("CacheKey: %q != %q", a, b)
	}
	want := "OptionsChain:expiration_date=2025-02-21:ticker_id=1"
	if a != want {
		t.Errorf("CacheKey: got %q, want %q", a, want)
	}
}

func TestParseModelType(t *testing.T) {
	tests := []struct {
		in   string
		want ModelType
		ok   bool
	}{
		{"ScreenerList", ModelScreenerList, true},
		{"treasuryrate", ModelTreasuryRate, true},
		{"WEEKLYOPTIONS", ModelWeeklyOptions, true},
		{"EquityQuote", "", false},
	}
	for _, tc := range tests {
		got, ok := ParseModelType(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseModelType(%q): got %q/%v, want %q/%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
