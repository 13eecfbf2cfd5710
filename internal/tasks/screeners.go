package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/seenimoa/optiscreen/internal/providers/seekingalpha"
	"github.com/seenimoa/optiscreen/internal/screener"
	"github.com/seenimoa/optiscreen/internal/store"
)

// FetchScreeners syncs the upstream screener list and its filters, then
// makes sure the custom screener exists. It returns the printed report.
func (r *Runner) FetchScreeners(ctx context.Context) (string, error) {
	raw, err := r.SeekingAlpha.ListScreeners(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch screeners: %w", err)
	}
	screeners, err := screener.ParseList(raw)
	if err != nil {
		return "", err
	}
	custom, err := screener.CustomScreener()
	if err != nil {
		return "", err
	}

	err = r.Store.WithTx(ctx, func(tx *store.Store) error {
		for _, s := range append(screeners, custom) {
			st, err := tx.Screeners.UpsertType(ctx, s.Name, s.Description)
			if err != nil {
				return fmt.Errorf("save screener %q: %w", s.Name, err)
			}
			if err := tx.Screeners.SyncFilters(ctx, st.ID, s.Filters); err != nil {
				return fmt.Errorf("save filters of %q: %w", s.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	entries := make([]string, len(screeners))
	for i, s := range screeners {
		entries[i] = s.Format()
	}
	report := strings.Join(entries, "\n")
	fmt.Fprintln(r.out(), report)
	r.Log.Info().Int("screeners", len(screeners)).Int64("rapidapi_calls", r.SeekingAlpha.Calls()).Msg("screeners synced")
	return report, nil
}

// ResultsOptions select and adjust a screener results fetch.
type ResultsOptions struct {
	Screener  string
	AssetType string
	Page      int
	PerPage   int
	Overrides screener.Overrides
}

// FetchScreenerResults runs a stored screener upstream and replaces the
// screener's investments with the returned tickers.
func (r *Runner) FetchScreenerResults(ctx context.Context, opts ResultsOptions) ([]string, error) {
	name := strings.TrimSpace(opts.Screener)
	if name == "" {
		return nil, errors.New("a screener name is required")
	}
	if opts.AssetType == "" {
		opts.AssetType = "stock"
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.PerPage <= 0 {
		opts.PerPage = 100
	}

	st, err := r.Store.Screeners.GetTypeByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("screener named '%s' does not exist in the database", name)
	}
	if err != nil {
		return nil, err
	}
	filters, err := r.Store.Screeners.ListFilters(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	payload, err := screener.BuildPayload(name, filters)
	if err != nil {
		return nil, err
	}
	if err := opts.Overrides.Apply(payload); err != nil {
		return nil, err
	}

	names, err := r.collectResults(ctx, payload, opts)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, errors.New("seeking alpha response did not include any ticker names")
	}

	err = r.Store.WithTx(ctx, func(tx *store.Store) error {
		if _, err := tx.Investments.DeleteScreenerExcept(ctx, name, names); err != nil {
			return err
		}
		for _, n := range names {
			if err := tx.Investments.UpsertScreenerResult(ctx, n, opts.AssetType, name); err != nil {
				return fmt.Errorf("save %s: %w", n, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(r.out(), strings.Join(names, "\n"))
	r.Log.Info().Str("screener", name).Int("tickers", len(names)).Msg("screener results stored")
	return names, nil
}

// collectResults pages through the results until a page comes back empty
// or short, or the page limit is reached. Names are deduplicated.
func (r *Runner) collectResults(ctx context.Context, payload map[string]any, opts ResultsOptions) ([]string, error) {
	var names []string
	seen := map[string]bool{}
	for page, fetched := opts.Page, 0; fetched < r.maxPages(); page, fetched = page+1, fetched+1 {
		res, err := r.SeekingAlpha.ScreenerResults(ctx, payload, seekingalpha.ResultsQuery{
			Page: page, PerPage: opts.PerPage, AssetType: opts.AssetType,
		})
		if err != nil {
			return nil, err
		}
		for _, n := range res.Names {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
		if res.Rows == 0 || res.Rows < opts.PerPage {
			break
		}
	}
	return names, nil
}
