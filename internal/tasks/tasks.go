// Package tasks implements the polling commands that pull screeners,
// profiles, option chains and financials from upstream APIs into the store.
// Each task writes its human-readable report to Out and per-item problems to
// Err, and returns an error only when the run as a whole fails.
package tasks

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/seenimoa/optiscreen/internal/apiclient"
	"github.com/seenimoa/optiscreen/internal/config"
	"github.com/seenimoa/optiscreen/internal/providers/seekingalpha"
	"github.com/seenimoa/optiscreen/internal/store"
	"github.com/seenimoa/optiscreen/pkg/models"
)

// SeekingAlpha is the subset of the Seeking Alpha client the tasks call.
type SeekingAlpha interface {
	ListScreeners(ctx context.Context) (any, error)
	ScreenerResults(ctx context.Context, payload map[string]any, q seekingalpha.ResultsQuery) (seekingalpha.ScreenerPage, error)
	ProfileURL(symbols []string) string
	Profiles(ctx context.Context, symbols []string) (map[string]models.Profile, error)
	OptionExpirations(ctx context.Context, symbol string) (models.Expirations, error)
	Options(ctx context.Context, tickerID int64, exp models.Date) ([]models.OptionQuote, error)
	Financials(ctx context.Context, q seekingalpha.FinancialsQuery) (json.RawMessage, error)
	Chart(ctx context.Context, symbol, period string) ([]models.PricePoint, error)
	Calls() int64
}

// RateSource provides the annual risk-free rate, e.g. 0.0425.
type RateSource interface {
	RiskFreeRate(ctx context.Context) (decimal.Decimal, error)
}

// WeekliesSource lists symbols with weekly options.
type WeekliesSource interface {
	URL() string
	WeeklySymbols(ctx context.Context) ([]string, error)
}

// Runner carries the dependencies shared by every task.
type Runner struct {
	Store        *store.Store
	SeekingAlpha SeekingAlpha
	Treasury     RateSource
	Cboe         WeekliesSource
	API          *apiclient.Client
	Fetch        config.FetchConfig
	Log          zerolog.Logger

	Out io.Writer
	Err io.Writer
	Now func() time.Time
}

func (r *Runner) out() io.Writer {
	if r.Out == nil {
		return os.Stdout
	}
	return r.Out
}

func (r *Runner) errOut() io.Writer {
	if r.Err == nil {
		return os.Stderr
	}
	return r.Err
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Runner) chunkSize() int {
	if r.Fetch.ProfileChunkSize <= 0 {
		return 3
	}
	return r.Fetch.ProfileChunkSize
}

func (r *Runner) concurrency() int {
	if r.Fetch.Concurrency <= 0 {
		return 1
	}
	return r.Fetch.Concurrency
}

func (r *Runner) minNextMonth() int {
	if r.Fetch.MinNextMonthExpirations <= 0 {
		return 3
	}
	return r.Fetch.MinNextMonthExpirations
}

func (r *Runner) windowDays() int {
	if r.Fetch.ExpirationWindowDays <= 0 {
		return 31
	}
	return r.Fetch.ExpirationWindowDays
}

func (r *Runner) maxPages() int {
	if r.Fetch.MaxPages <= 0 {
		return 50
	}
	return r.Fetch.MaxPages
}

func chunk(items []string, size int) [][]string {
	var out [][]string
	for len(items) > 0 {
		n := min(size, len(items))
		out = append(out, items[:n])
		items = items[n:]
	}
	return out
}

func suitable() *int {
	v := models.SuitabilitySuitable
	return &v
}
