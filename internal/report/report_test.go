package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestText(t *testing.T) {
	conf := 82.0
	out := Text(Data{
		Symbol:     "ANET",
		Rating:     "STRONG BUY",
		Confidence: &conf,
		Model:      "gpt-4o-mini",
		Analysis:   "\n  Margins expanding.  \n",
	})
	for _, want := range []string{
		"FINANCIAL DUE DILIGENCE REPORT",
		"Company Symbol: ANET\n",
		"Investment Rating: 🟢🟢 STRONG BUY 🟢🟢\n",
		"Confidence: 82%\n",
		"Model: gpt-4o-mini\n",
		"\n\nMargins expanding.\n\n",
		"DISCLAIMER",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Text: missing %q in\n%s", want, out)
		}
	}
	if strings.Contains(out, "News Sentiment") {
		t.Error("Text: sentiment line should be omitted when empty")
	}
}

func TestMark(t *testing.T) {
	tests := map[string]string{
		"BUY":     "🟢",
		"HOLD":    "🟡",
		"SELL":    "🔴",
		"UNKNOWN": "⚪",
	}
	for rating, want := range tests {
		if got := Mark(rating); got != want {
			t.Errorf("Mark(%q): got %q, want %q", rating, got, want)
		}
	}
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	path, err := Save(dir, " bsx ", "body")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(path) != "BSX_DD_Report.txt" {
		t.Errorf("Save path: got %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "body" {
		t.Errorf("Save content: got %q", data)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1.5m"},
		{2 * time.Hour, "2.0h"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v): got %s, want %s", tt.d, got, tt.want)
		}
	}
}
