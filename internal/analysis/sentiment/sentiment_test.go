package sentiment

import (
	"testing"
	"time"
)

func TestScore(t *testing.T) {
	tests := []struct {
		text     string
		wantSign int
		wantHits bool
	}{
		{"Acme beats estimates and raises guidance", 1, true},
		{"Acme downgraded after earnings miss", -1, true},
		{"Acme schedules annual meeting", 0, false},
	}
	for _, tc := range tests {
		score, hits := Score(tc.text)
		if (hits > 0) != tc.wantHits {
			t.Errorf("Score(%q) hits: got %d", tc.text, hits)
		}
		switch {
		case tc.wantSign > 0 && score <= 0,
			tc.wantSign < 0 && score >= 0,
			tc.wantSign == 0 && score != 0:
			t.Errorf("Score(%q): got %v, want sign %d", tc.text, score, tc.wantSign)
		}
	}
}

func TestAggregate(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	headlines := []Headline{
		{Title: "Acme beats on revenue, record margins", Published: now.Add(-2 * time.Hour)},
		{Title: "Acme faces lawsuit", Published: now.Add(-10 * 24 * time.Hour)},
		{Title: "Acme to present at conference"},
	}
	got := Aggregate(headlines, now)
	if got.Count != 3 {
		t.Errorf("Count: got %d, want 3", got.Count)
	}
	if got.Score <= 0.3 || got.Label != "Positive" {
		t.Errorf("recent positive news should dominate: got %v (%s)", got.Score, got.Label)
	}
	if got.String() == "" {
		t.Error("String should not be empty")
	}
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil, time.Now())
	if got.Label != "Neutral" || got.Score != 0 || got.Count != 0 {
		t.Errorf("Aggregate(nil): got %+v", got)
	}
}
