package infra

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// ── Cache ──

func TestCacheExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache(time.Minute)
	c.now = func() time.Time { return now }

	c.Set("rate", 0.0425)
	if v, ok := c.Get("rate"); !ok || v.(float64) != 0.0425 {
		t.Fatalf("Get: got %v, %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("rate"); ok {
		t.Error("Get after TTL should miss")
	}
	c.Cleanup()
	if len(c.entries) != 0 {
		t.Errorf("Cleanup: %d entries left", len(c.entries))
	}
}

func TestCacheGetOrLoad(t *testing.T) {
	c := NewCache(time.Hour)
	calls := 0
	load := func() (any, error) {
		calls++
		return "value", nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("k", load)
		if err != nil || v != "value" {
			t.Fatalf("GetOrLoad: got %v, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("loader calls: got %d, want 1", calls)
	}

	_, err := c.GetOrLoad("bad", func() (any, error) { return nil, errors.New("boom") })
	if err == nil {
		t.Error("GetOrLoad should return loader error")
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("errors must not be cached")
	}
}

// ── RateLimiter ──

func TestRateLimiterBurstThenCancel(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait on empty bucket: got %v, want deadline exceeded", err)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	for i := 0; i < 10; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
}

// ── HTTP ──

func TestDoSendsQueryHeadersAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s", r.Method)
		}
		if r.URL.Query().Get("page") != "2" {
			t.Errorf("page: got %q", r.URL.Query().Get("page"))
		}
		if r.Header.Get("x-rapidapi-key") != "k" {
			t.Errorf("header: got %q", r.Header.Get("x-rapidapi-key"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type: got %q", r.Header.Get("Content-Type"))
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	data, err := Do(context.Background(), srv.Client(), Request{
		Method:  http.MethodPost,
		URL:     srv.URL + "/screeners/get-results",
		Query:   url.Values{"page": {"2"}},
		Headers: map[string]string{"x-rapidapi-key": "k"},
		Body:    map[string]any{"filter": map[string]any{}},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("body: got %s", data)
	}
}

func TestDoReturnsErrHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("quota exceeded"))
	}))
	defer srv.Close()

	_, err := Do(context.Background(), srv.Client(), Request{URL: srv.URL})
	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) {
		t.Fatalf("Do: got %v, want *ErrHTTP", err)
	}
	if httpErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode: got %d", httpErr.StatusCode)
	}
	if httpErr.Error() != "received unexpected status code 403: quota exceeded" {
		t.Errorf("Error: got %q", httpErr.Error())
	}
}

func TestDecodeJSONKeepsNumberText(t *testing.T) {
	v, err := DecodeJSON([]byte(`{"value":0.20,"big":500000000}`))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	m := v.(map[string]any)
	if m["value"].(interface{ String() string }).String() != "0.20" {
		t.Errorf("value: got %v", m["value"])
	}
	if m["big"].(interface{ String() string }).String() != "500000000" {
		t.Errorf("big: got %v", m["big"])
	}
}

// ── CallCounter ──

func TestCallCounter(t *testing.T) {
	c := NewCallCounter("RapidAPI", zerolog.Nop())
	c.Inc()
	if got := c.Inc(); got != 2 {
		t.Errorf("Inc: got %d, want 2", got)
	}
	if c.Count() != 2 {
		t.Errorf("Count: got %d", c.Count())
	}
	c.Reset()
	if c.Count() != 0 {
		t.Errorf("Reset: got %d", c.Count())
	}

	var nilCounter *CallCounter
	if nilCounter.Inc() != 0 {
		t.Error("nil counter should be a no-op")
	}
}
