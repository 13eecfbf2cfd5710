package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/optiscreen/internal/analysis/derivatives"
	"github.com/seenimoa/optiscreen/internal/store"
	"github.com/seenimoa/optiscreen/pkg/models"
)

// PutCandidate is a put that met the ROI and delta thresholds.
type PutCandidate struct {
	Ticker string
	derivatives.Put
}

func (c PutCandidate) String() string {
	return fmt.Sprintf("%s: ROI %s%% at strike %s bid %s ask %s mid %s delta %s",
		c.Ticker, show(c.ROI), strikeString(c.Strike), show(c.Bid), show(c.Ask), show(c.Mid), show(c.Delta))
}

// strikeString renders a strike the way a float prints: 95 as "95.0", 97.25
// as "97.25".
func strikeString(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return d.StringFixed(1)
	}
	return d.String()
}

func show(d decimal.NullDecimal) string {
	if !d.Valid {
		return "N/A"
	}
	return d.Decimal.String()
}

// PutChecker prices the puts of every suitable investment of screener at its
// stored expiration, prints the ROI candidates and stores the opt_val of
// the put two strikes under the rounded price.
func (r *Runner) PutChecker(ctx context.Context, screener string, t derivatives.Thresholds) ([]PutCandidate, error) {
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
		return nil, errors.New("no investments found with options_suitability=1 for the provided screener type")
	}

	var rate decimal.NullDecimal
	if r.Treasury != nil {
		if v, err := r.Treasury.RiskFreeRate(ctx); err == nil {
			rate = decimal.NewNullDecimal(v)
		} else {
			r.Log.Warn().Err(err).Msg("risk-free rate lookup failed")
		}
	}
	if !rate.Valid {
		fmt.Fprintln(r.errOut(), "Risk-free rate unavailable; implied volatility will be skipped.")
	}

	today := r.now()
	var candidates []PutCandidate
	for _, inv := range investments {
		if inv.OptionExp == nil {
			fmt.Fprintf(r.errOut(), "Skipping %s: missing option expiration date.\n", inv.Ticker)
			continue
		}
		if !inv.Price.Valid {
			fmt.Fprintf(r.errOut(), "Skipping %s: missing stored price for comparison.\n", inv.Ticker)
			continue
		}
		quotes, err := r.SeekingAlpha.Options(ctx, inv.ID, *inv.OptionExp)
		if err != nil {
			fmt.Fprintf(r.errOut(), "%s: %v\n", inv.Ticker, err)
			continue
		}

		years := derivatives.YearsToExpiry(*inv.OptionExp, today)
		puts := derivatives.PricePuts(quotes, inv.Price.Decimal, years, rate)

		if target, ok := derivatives.FindStrike(puts, derivatives.TargetStrike(inv.Price.Decimal)); ok {
			if err := r.storeOptVal(ctx, inv, target); err != nil {
				return nil, err
			}
		}

		for _, p := range derivatives.Candidates(puts, t) {
			c := PutCandidate{Ticker: inv.Ticker, Put: p}
			fmt.Fprintln(r.out(), c.String())
			candidates = append(candidates, c)
		}
	}

	if len(candidates) == 0 {
		return nil, errors.New("no put options met the ROI and delta thresholds for the selected investments")
	}
	return candidates, nil
}

func (r *Runner) storeOptVal(ctx context.Context, inv models.Investment, p derivatives.Put) error {
	optVal := models.OptValSpec.Quantize(p.OptVal)
	if sameDecimal(optVal, inv.OptVal) {
		return nil
	}
	if err := r.Store.Investments.SetOptVal(ctx, inv.ID, optVal); err != nil {
		return fmt.Errorf("save opt_val for %s: %w", inv.Ticker, err)
	}
	r.Log.Debug().Str("ticker", inv.Ticker).Str("opt_val", show(optVal)).Msg("opt_val updated")
	return nil
}
