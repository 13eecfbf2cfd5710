package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/seenimoa/optiscreen/internal/analysis/derivatives"
	"github.com/seenimoa/optiscreen/internal/apiclient"
	"github.com/seenimoa/optiscreen/internal/store"
	"github.com/seenimoa/optiscreen/pkg/models"
)

func formatExpirations(ticker, tickerID string, closest []models.Date, windowDays int) string {
	prefix := fmt.Sprintf("%s (ticker_id %s): ", ticker, tickerID)
	furthest, ok := derivatives.Latest(closest)
	if !ok {
		return prefix + fmt.Sprintf("No option expiration date within the next %d days.", windowDays)
	}
	parts := make([]string, len(closest))
	for i, d := range closest {
		parts[i] = d.String()
	}
	return prefix + strings.Join(parts, ", ") + "; furthest: " + furthest.String()
}

// FetchOptionExpirations reports the expirations nearest the trading window
// for every suitable investment of screener. Per-ticker failures are written
// to Err and do not stop the run.
func (r *Runner) FetchOptionExpirations(ctx context.Context, screener string) ([]string, error) {
	if screener == "" {
		screener = models.StocksByQuant
	}
	investments, err := r.Store.Investments.List(ctx, store.InvestmentFilter{
		ScreenerType:       screener,
		OptionsSuitability: suitable(),
	})
	if err != nil {
		return nil, err
	}
	if len(investments) == 0 {
		fmt.Fprintf(r.out(), "No tickers found for %s with options suitability 1.\n", screener)
		return nil, nil
	}

	today := r.now()
	var lines []string
	for _, inv := range investments {
		exp, err := r.SeekingAlpha.OptionExpirations(ctx, inv.Ticker)
		if err == nil && exp.TickerID == "" {
			err = errors.New("missing expected data in seeking alpha response")
		}
		if err != nil {
			fmt.Fprintf(r.errOut(), "%s: %v\n", inv.Ticker, err)
			continue
		}
		closest := derivatives.ClosestDates(exp.Dates, today, r.windowDays())
		line := formatExpirations(inv.Ticker, exp.TickerID, closest, r.windowDays())
		fmt.Fprintln(r.out(), line)
		lines = append(lines, line)
	}
	return lines, nil
}

// TickerQuery selects tickers from the local API.
type TickerQuery struct {
	Screener           string
	OptionsSuitability int
	InvestmentsURL     string
}

// TickerNames lists tickers through the local REST API.
func (r *Runner) TickerNames(ctx context.Context, q TickerQuery) ([]string, error) {
	if q.Screener == "" {
		q.Screener = models.StocksByQuant
	}
	suitability := q.OptionsSuitability
	tickers, err := r.API.Tickers(ctx, q.InvestmentsURL, apiclient.InvestmentQuery{
		ScreenerType:       q.Screener,
		OptionsSuitability: &suitability,
	})
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, errors.New("no tickers were returned by the investments endpoint")
	}
	fmt.Fprintln(r.out(), strings.Join(tickers, "\n"))
	return tickers, nil
}
