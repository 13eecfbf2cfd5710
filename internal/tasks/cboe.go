package tasks

import (
	"context"
	"fmt"

	"github.com/seenimoa/optiscreen/internal/store"
)

// WeekliesResult summarizes a weeklies sync.
type WeekliesResult struct {
	Securities int
	Flagged    int64
}

// SyncCboeWeeklies replaces the stored weeklies list and flags investments
// that have weekly options.
func (r *Runner) SyncCboeWeeklies(ctx context.Context) (WeekliesResult, error) {
	symbols, err := r.Cboe.WeeklySymbols(ctx)
	if err != nil {
		return WeekliesResult{}, err
	}
	var res WeekliesResult
	err = r.Store.WithTx(ctx, func(tx *store.Store) error {
		n, err := tx.Cboe.Replace(ctx, symbols)
		if err != nil {
			return err
		}
		res.Securities = n
		res.Flagged, err = tx.Investments.FlagWeeklyOptions(ctx)
		return err
	})
	if err != nil {
		return WeekliesResult{}, err
	}
	fmt.Fprintf(r.out(), "Synced %d CBOE weekly securities; %d investments flagged\n", res.Securities, res.Flagged)
	r.Log.Info().Str("source", r.Cboe.URL()).Int("securities", res.Securities).Int64("flagged", res.Flagged).Msg("cboe weeklies synced")
	return res, nil
}
