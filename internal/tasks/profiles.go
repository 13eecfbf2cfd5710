package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/optiscreen/internal/analysis/derivatives"
	"github.com/seenimoa/optiscreen/internal/apiclient"
	"github.com/seenimoa/optiscreen/internal/store"
	"github.com/seenimoa/optiscreen/pkg/models"
)

// ProfileOptions select the investments to refresh.
type ProfileOptions struct {
	Screener       string
	SkipPriced     bool
	InvestmentsURL string
}

type persisted struct {
	price       decimal.NullDecimal
	marketCap   decimal.NullDecimal
	suitability int
}

// FetchProfileData refreshes price, market cap, options suitability and the
// trading expiration of the screener's investments. It returns the tickers
// that were written.
func (r *Runner) FetchProfileData(ctx context.Context, opts ProfileOptions) ([]string, error) {
	tickers, err := r.API.Tickers(ctx, opts.InvestmentsURL, apiclient.InvestmentQuery{ScreenerType: opts.Screener})
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, errors.New("investments endpoint did not return any entries with ticker information")
	}

	if opts.SkipPriced {
		tickers, err = r.withoutPrice(ctx, tickers)
		if err != nil {
			return nil, err
		}
		if len(tickers) == 0 {
			return nil, errors.New("no tickers remain to update after skipping priced investments")
		}
	}

	var updated, missing []string
	for _, c := range chunk(tickers, r.chunkSize()) {
		profiles, err := r.chunkProfiles(ctx, c)
		if err != nil {
			return nil, err
		}
		written, err := r.updateChunk(ctx, c, profiles)
		if err != nil {
			return nil, err
		}
		if err := r.verifyChunk(ctx, written); err != nil {
			return nil, err
		}
		for _, t := range c {
			if _, ok := written[t]; ok {
				updated = append(updated, t)
			} else {
				missing = append(missing, t)
			}
		}
	}

	if len(updated) == 0 {
		return nil, errors.New("no matching investments were updated with the returned profile data")
	}
	if len(missing) > 0 {
		fmt.Fprintln(r.out(), "No profile data returned for: "+strings.Join(uniqueSorted(missing), ", "))
	}
	r.Log.Info().Int("updated", len(updated)).Int("missing", len(missing)).
		Int64("rapidapi_calls", r.SeekingAlpha.Calls()).Msg("profile data refreshed")
	return updated, nil
}

func (r *Runner) withoutPrice(ctx context.Context, tickers []string) ([]string, error) {
	hasPrice := true
	priced, err := r.Store.Investments.List(ctx, store.InvestmentFilter{Tickers: tickers, HasPrice: &hasPrice})
	if err != nil {
		return nil, err
	}
	skip := make(map[string]bool, len(priced))
	for _, inv := range priced {
		skip[strings.ToUpper(inv.Ticker)] = true
	}
	var out []string
	for _, t := range tickers {
		if !skip[strings.ToUpper(t)] {
			out = append(out, t)
		}
	}
	return out, nil
}

// chunkProfiles fetches profiles for tickers. Tickers missing from a
// multi-symbol response are requested again in smaller groups.
func (r *Runner) chunkProfiles(ctx context.Context, tickers []string) (map[string]models.Profile, error) {
	fmt.Fprintf(r.out(), "Fetching profile data from %s\n", r.SeekingAlpha.ProfileURL(tickers))
	profiles, err := r.SeekingAlpha.Profiles(ctx, tickers)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, t := range tickers {
		if _, ok := profiles[strings.ToUpper(t)]; !ok {
			missing = append(missing, t)
		}
	}
	if len(missing) == 0 || len(tickers) == 1 {
		return profiles, nil
	}

	size := min(max((len(tickers)+1)/2, 1), r.chunkSize())
	for _, c := range chunk(missing, size) {
		more, err := r.chunkProfiles(ctx, c)
		if err != nil {
			return nil, err
		}
		for k, v := range more {
			profiles[k] = v
		}
	}
	return profiles, nil
}

func (r *Runner) updateChunk(ctx context.Context, tickers []string, profiles map[string]models.Profile) (map[string]persisted, error) {
	var found []string
	for _, t := range tickers {
		if _, ok := profiles[strings.ToUpper(t)]; ok {
			found = append(found, t)
		}
	}

	expirations := make([]models.Expirations, len(found))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency())
	for i, t := range found {
		g.Go(func() error {
			exp, err := r.SeekingAlpha.OptionExpirations(gctx, t)
			if err != nil {
				return err
			}
			expirations[i] = exp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	written := make(map[string]persisted, len(found))
	for i, t := range found {
		p, err := r.applyProfile(ctx, t, profiles[strings.ToUpper(t)], expirations[i])
		if err != nil {
			return nil, err
		}
		written[t] = p
	}
	return written, nil
}

func (r *Runner) applyProfile(ctx context.Context, ticker string, profile models.Profile, exp models.Expirations) (persisted, error) {
	today := r.now()
	suitability := derivatives.Suitability(exp.Dates, today, r.minNextMonth())
	tickerID, _ := strconv.ParseInt(exp.TickerID, 10, 64)

	price := profile.Price
	var expiry *models.Date
	if suitability == models.SuitabilitySuitable {
		if d, ok := derivatives.OptionExpiry(exp.Dates, today, r.windowDays()); ok {
			expiry = &d
		}
		if !price.Valid {
			single, err := r.SeekingAlpha.Profiles(ctx, []string{ticker})
			if err != nil {
				return persisted{}, err
			}
			price = single[strings.ToUpper(ticker)].Price
		}
		if !price.Valid {
			fmt.Fprintf(r.out(), "%s: suitability met but profile returned no price; leaving price unchanged.\n", ticker)
		}
		closest := derivatives.ClosestDates(exp.Dates, today, r.windowDays())
		fmt.Fprintln(r.out(), formatExpirations(ticker, exp.TickerID, closest, r.windowDays()))
	}

	var result persisted
	var created bool
	err := r.Store.WithTx(ctx, func(tx *store.Store) error {
		inv, err := tx.Investments.GetByTicker(ctx, ticker)
		switch {
		case errors.Is(err, store.ErrNotFound):
			created = true
			inv = &models.Investment{Ticker: ticker, Category: "stock", ID: tickerID}
		case err != nil:
			return err
		case tickerID > 0 && tickerID != inv.ID:
			if err := tx.Investments.ChangeID(ctx, inv.ID, tickerID); err != nil {
				return fmt.Errorf("move %s to ticker id %d: %w", ticker, tickerID, err)
			}
			inv.ID = tickerID
		}

		if suitability == models.SuitabilitySuitable && price.Valid {
			inv.Price = price
		}
		if profile.MarketCap.Valid {
			inv.MarketCap = profile.MarketCap
		}
		inv.OptionsSuitability = &suitability
		inv.OptionExp = expiry

		if created {
			err = tx.Investments.Create(ctx, inv)
		} else {
			err = tx.Investments.Update(ctx, inv)
		}
		if err != nil {
			return fmt.Errorf("save %s: %w", ticker, err)
		}
		result = persisted{price: inv.Price, marketCap: inv.MarketCap, suitability: suitability}
		return nil
	})
	if err != nil {
		return persisted{}, err
	}

	action := "Updated"
	if created {
		action = "Created"
	}
	fmt.Fprintf(r.out(), "%s investment %s with price=%s and market cap=%s\n",
		action, ticker, fixed(models.PriceSpec, result.price), fixed(models.MarketCapSpec, result.marketCap))
	return result, nil
}

func (r *Runner) verifyChunk(ctx context.Context, written map[string]persisted) error {
	var failed []string
	for ticker, want := range written {
		inv, err := r.Store.Investments.GetByTicker(ctx, ticker)
		if err != nil {
			failed = append(failed, ticker)
			continue
		}
		if !sameDecimal(inv.Price, want.price) || !sameDecimal(inv.MarketCap, want.marketCap) ||
			inv.OptionsSuitability == nil || *inv.OptionsSuitability != want.suitability {
			failed = append(failed, ticker)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to persist profile data for: %s", strings.Join(uniqueSorted(failed), ", "))
	}
	return nil
}

func sameDecimal(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

func fixed(spec models.DecimalSpec, d decimal.NullDecimal) string {
	if s := spec.Format(d); s != nil {
		return *s
	}
	return "None"
}

func uniqueSorted(items []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
