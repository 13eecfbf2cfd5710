package cboe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/seenimoa/optiscreen/internal/provider"
)

const weekliesCSV = `"Available Weeklys - Exchange Traded Products (ETFs and ETNs)",
Ticker Symbol,Name
SPY,SPDR S&P 500 ETF Trust
QQQ,Invesco QQQ Trust

"Available Weeklys - Equity",
AAPL,Apple Inc.
BRK.B,Berkshire Hathaway Inc. Class B
SPY,duplicate row
aapl,lowercase is not a symbol
`

const weekliesHTML = `<html><body><table>
<tr><th>Ticker Symbol</th><th>Name</th></tr>
<tr><td> MSFT </td><td>Microsoft</td></tr>
<tr><td>BF/B</td><td>Brown-Forman</td></tr>
<tr><td>Available Weeklys</td><td></td></tr>
</table></body></html>`

func TestParseWeekliesCSV(t *testing.T) {
	got, err := ParseWeeklies([]byte(weekliesCSV))
	if err != nil {
		t.Fatalf("ParseWeeklies: %v", err)
	}
	want := "SPY,QQQ,AAPL,BRK.B"
	if strings.Join(got, ",") != want {
		t.Errorf("symbols: got %v, want %s", got, want)
	}
}

func TestParseWeekliesHTML(t *testing.T) {
	got, err := ParseWeeklies([]byte(weekliesHTML))
	if err != nil {
		t.Fatalf("ParseWeeklies: %v", err)
	}
	want := "MSFT,BF/B"
	if strings.Join(got, ",") != want {
		t.Errorf("symbols: got %v, want %s", got, want)
	}
}

func TestSymbolPattern(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"AAPL", true},
		{"BRK.B", true},
		{"X", true},
		{"ABCDEFGHIJK", false},
		{"1ABC", false},
		{"Ticker Symbol", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := symbolRE.MatchString(tc.in); got != tc.want {
			t.Errorf("symbolRE(%q): got %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestWeeklySymbolsCachesAndRejectsEmpty(t *testing.T) {
	calls := 0
	body := weekliesCSV
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		io.WriteString(w, body)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, time.Hour)
	for i := 0; i < 2; i++ {
		syms, err := c.WeeklySymbols(context.Background())
		if err != nil || len(syms) != 4 {
			t.Fatalf("WeeklySymbols: got %v, %v", syms, err)
		}
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}

	body = "Ticker Symbol,Name\n"
	if _, err := NewClient(srv.URL, time.Second, 0).WeeklySymbols(context.Background()); err == nil {
		t.Error("empty list should fail")
	}
}

func TestProviderFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, weekliesHTML)
	}))
	defer srv.Close()

	reg := provider.NewRegistry()
	p := New(NewClient(srv.URL, time.Second, 0))
	p.Init(nil)
	reg.Register(p)

	res, err := reg.Fetch(context.Background(), provider.ModelWeeklyOptions, provider.QueryParams{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if syms := res.Data.([]string); len(syms) != 2 {
		t.Errorf("data: got %v", syms)
	}
	if res.Provider != "cboe" {
		t.Errorf("Provider: got %q", res.Provider)
	}
}
