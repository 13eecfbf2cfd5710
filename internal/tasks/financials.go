package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/seenimoa/optiscreen/internal/providers/seekingalpha"
	"github.com/seenimoa/optiscreen/pkg/models"
)

// FinancialsOptions select a statement to download.
type FinancialsOptions struct {
	Symbol         string
	TargetCurrency string
	PeriodType     string
	StatementType  string
}

// FetchFinancials downloads one statement and upserts it.
func (r *Runner) FetchFinancials(ctx context.Context, opts FinancialsOptions) (*models.FinancialStatement, error) {
	if strings.TrimSpace(opts.Symbol) == "" {
		return nil, errors.New("a symbol is required")
	}
	fs := &models.FinancialStatement{
		Symbol:         opts.Symbol,
		TargetCurrency: defaultString(opts.TargetCurrency, models.DefaultTargetCurrency),
		PeriodType:     defaultString(opts.PeriodType, models.DefaultPeriodType),
		StatementType:  defaultString(opts.StatementType, models.StatementIncome),
	}
	fs.Normalize()

	payload, err := r.SeekingAlpha.Financials(ctx, seekingalpha.FinancialsQuery{
		Symbol:         fs.Symbol,
		TargetCurrency: fs.TargetCurrency,
		PeriodType:     fs.PeriodType,
		StatementType:  fs.StatementType,
	})
	if err != nil {
		return nil, err
	}
	fs.Payload = payload
	if err := fs.Validate(); err != nil {
		return nil, err
	}

	created, err := r.Store.Financials.Upsert(ctx, fs)
	if err != nil {
		return nil, err
	}
	action := "Updated"
	if created {
		action = "Created"
	}
	fmt.Fprintf(r.out(), "%s financial statement for %s (%s, %s, %s).\n",
		action, fs.Symbol, fs.StatementType, fs.PeriodType, fs.TargetCurrency)
	fmt.Fprintf(r.out(), "RapidAPI calls: %d\n", r.SeekingAlpha.Calls())
	return fs, nil
}

func defaultString(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
