package tasks

import (
	"context"
	"fmt"

	"github.com/seenimoa/optiscreen/internal/analysis/technical"
	"github.com/seenimoa/optiscreen/internal/store"
	"github.com/seenimoa/optiscreen/pkg/models"
)

// DefaultChartPeriod is the chart span requested for RSI.
const DefaultChartPeriod = "6M"

// FetchRSI stores the 14-day RSI of each investment of screener. Tickers
// without a usable chart are reported on Err.
func (r *Runner) FetchRSI(ctx context.Context, screener string) (map[string]string, error) {
	if screener == "" {
		screener = models.StocksByQuant
	}
	investments, err := r.Store.Investments.List(ctx, store.InvestmentFilter{ScreenerType: screener})
	if err != nil {
		return nil, err
	}
	if len(investments) == 0 {
		return nil, fmt.Errorf("no investments found for screener %s", screener)
	}

	out := make(map[string]string, len(investments))
	for _, inv := range investments {
		points, err := r.SeekingAlpha.Chart(ctx, inv.Ticker, DefaultChartPeriod)
		if err != nil {
			fmt.Fprintf(r.errOut(), "%s: %v\n", inv.Ticker, err)
			continue
		}
		rsi := technical.RSI(technical.Closes(points), technical.DefaultRSIPeriod)
		if !rsi.Valid {
			fmt.Fprintf(r.errOut(), "%s: not enough price history for RSI\n", inv.Ticker)
			continue
		}
		if err := r.Store.Investments.SetRSI(ctx, inv.ID, rsi); err != nil {
			return nil, fmt.Errorf("save rsi for %s: %w", inv.Ticker, err)
		}
		out[inv.Ticker] = rsi.Decimal.StringFixed(2)
		fmt.Fprintf(r.out(), "%s: RSI %s\n", inv.Ticker, out[inv.Ticker])
	}
	return out, nil
}
