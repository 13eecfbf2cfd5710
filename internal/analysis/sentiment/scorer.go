// Package sentiment scores news headlines with a keyword lexicon so the
// due-diligence prompt can carry a tone summary next to the raw headlines.
package sentiment

import (
	"fmt"
	"math"
	"strings"
	"time"
)

var positive = map[string]float64{
	"beat": 0.5, "beats": 0.5, "upgrade": 0.6, "upgraded": 0.6, "outperform": 0.6,
	"raises guidance": 0.7, "record": 0.5, "surge": 0.7, "rally": 0.6,
	"buyback": 0.4, "dividend increase": 0.5, "growth": 0.3, "strong": 0.3,
}

var negative = map[string]float64{
	"miss": 0.5, "misses": 0.5, "downgrade": 0.6, "downgraded": 0.6, "underperform": 0.6,
	"cuts guidance": 0.7, "lawsuit": 0.5, "plunge": 0.7, "selloff": 0.6,
	"investigation": 0.5, "dividend cut": 0.6, "weak": 0.3, "layoffs": 0.4,
}

// Headline is a dated news item.
type Headline struct {
	Title     string
	Summary   string
	Link      string
	Published time.Time
}

// Score returns a tone in [-1, 1] and the number of lexicon hits in text.
func Score(text string) (float64, int) {
	lower := strings.ToLower(text)
	var pos, neg float64
	hits := 0
	for word, w := range positive {
		if strings.Contains(lower, word) {
			pos += w
			hits++
		}
	}
	for word, w := range negative {
		if strings.Contains(lower, word) {
			neg += w
			hits++
		}
	}
	if pos+neg == 0 {
		return 0, hits
	}
	return (pos - neg) / (pos + neg), hits
}

// Summary is the aggregate tone of a set of headlines.
type Summary struct {
	Score float64
	Label string
	Count int
	Hits  int
}

func (s Summary) String() string {
	return fmt.Sprintf("%s (score %.2f across %d headlines)", s.Label, s.Score, s.Count)
}

// Aggregate weights each headline's tone by recency, halving every day.
// Headlines without a date get full weight.
func Aggregate(headlines []Headline, now time.Time) Summary {
	sum := Summary{Label: "Neutral", Count: len(headlines)}
	var weighted, total float64
	for _, h := range headlines {
		score, hits := Score(h.Title + " " + h.Summary)
		sum.Hits += hits
		if hits == 0 {
			continue
		}
		w := 1.0
		if !h.Published.IsZero() {
			age := math.Max(now.Sub(h.Published).Hours(), 0)
			w = math.Exp2(-age / 24)
		}
		weighted += score * w
		total += w
	}
	if total > 0 {
		sum.Score = weighted / total
	}
	switch {
	case sum.Score > 0.3:
		sum.Label = "Positive"
	case sum.Score > 0.1:
		sum.Label = "Slightly positive"
	case sum.Score < -0.3:
		sum.Label = "Negative"
	case sum.Score < -0.1:
		sum.Label = "Slightly negative"
	}
	return sum
}
