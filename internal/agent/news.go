package agent

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/optiscreen/internal/analysis/sentiment"
	"github.com/seenimoa/optiscreen/internal/infra"
)

// DefaultFeedURL is the per-symbol Seeking Alpha feed; %s is the symbol.
const DefaultFeedURL = "https://seekingalpha.com/api/sa/combined/%s.xml"

// Feed reads headlines from an RSS or Atom feed.
type Feed struct {
	urlTemplate string
	limit       int
	parser      *gofeed.Parser
}

// NewFeed creates a feed reader. urlTemplate holds one %s for the symbol;
// limit caps the number of headlines (0 keeps all).
func NewFeed(urlTemplate string, limit int, timeout time.Duration) *Feed {
	if urlTemplate == "" {
		urlTemplate = DefaultFeedURL
	}
	p := gofeed.NewParser()
	p.Client = infra.NewHTTPClient(timeout)
	p.UserAgent = "optiscreen/1.0"
	return &Feed{urlTemplate: urlTemplate, limit: limit, parser: p}
}

// URL returns the feed location for symbol.
func (f *Feed) URL(symbol string) string {
	if !strings.Contains(f.urlTemplate, "%s") {
		return f.urlTemplate
	}
	return fmt.Sprintf(f.urlTemplate, strings.ToUpper(symbol))
}

// Headlines returns the newest items of symbol's feed.
func (f *Feed) Headlines(ctx context.Context, symbol string) ([]sentiment.Headline, error) {
	feed, err := f.parser.ParseURLWithContext(f.URL(symbol), ctx)
	if err != nil {
		if he, ok := err.(gofeed.HTTPError); ok && he.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("parse feed for %s: %w", symbol, err)
	}

	out := make([]sentiment.Headline, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		h := sentiment.Headline{Title: title, Summary: strings.TrimSpace(item.Description), Link: item.Link}
		if item.PublishedParsed != nil {
			h.Published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			h.Published = *item.UpdatedParsed
		}
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Published.After(out[j].Published)
	})
	if f.limit > 0 && len(out) > f.limit {
		out = out[:f.limit]
	}
	return out, nil
}
