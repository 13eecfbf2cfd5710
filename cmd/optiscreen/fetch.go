package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/seenimoa/optiscreen/internal/analysis/derivatives"
	"github.com/seenimoa/optiscreen/internal/screener"
	"github.com/seenimoa/optiscreen/internal/tasks"
	"github.com/seenimoa/optiscreen/pkg/utils"
)

const defaultScreener = "Stocks by Quant"

// runner wires the task runner to cmd's output streams.
func runner(cmd *cobra.Command, needsKey bool) (*tasks.Runner, error) {
	return deps.Runner(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), needsKey)
}

func fetchCommands() []*cobra.Command {
	return []*cobra.Command{
		fetchScreenersCmd(),
		fetchScreenerResultsCmd(),
		fetchProfileDataCmd(),
		fetchOptionExpirationsCmd(),
		fetchTickerNamesCmd(),
		fetchFinancialsCmd(),
		putCheckerCmd(),
		syncCboeWeekliesCmd(),
		fetchRSICmd(),
	}
}

// --- Screeners ---

func fetchScreenersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch-screeners",
		Short: "Download Seeking Alpha screeners and store their filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := runner(cmd, true)
			if err != nil {
				return err
			}
			_, err = r.FetchScreeners(cmd.Context())
			return err
		},
	}
}

func fetchScreenerResultsCmd() *cobra.Command {
	var opts tasks.ResultsOptions
	cmd := &cobra.Command{
		Use:   "fetch-screener-results",
		Short: "Run a stored screener and replace its investments with the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := runner(cmd, true)
			if err != nil {
				return err
			}
			_, err = r.FetchScreenerResults(cmd.Context(), opts)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Screener, "screener", defaultScreener, "screener type name")
	f.StringVar(&opts.AssetType, "type", "stock", "asset type")
	f.IntVar(&opts.Page, "page", 1, "first page to request")
	f.IntVar(&opts.PerPage, "per-page", 100, "results per page")
	overrideFlags(cmd, &opts.Overrides)
	return cmd
}

func overrideFlags(cmd *cobra.Command, o *screener.Overrides) {
	f := cmd.Flags()
	f.StringVar(&o.MarketCap, "market-cap", "", "minimum market cap, e.g. 2B or 500M")
	f.StringVar(&o.MinPrice, "min-price", "", "minimum close price")
	f.StringVar(&o.MaxPrice, "max-price", "", "maximum close price")
	f.StringVar(&o.QuantRating, "quant-rating", "", "comma separated quant ratings, e.g. strong_buy,buy")
}

// --- Profiles and options ---

func fetchProfileDataCmd() *cobra.Command {
	var opts tasks.ProfileOptions
	cmd := &cobra.Command{
		Use:   "fetch-profile-data",
		Short: "Refresh price, market cap and options suitability of a screener's investments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := runner(cmd, true)
			if err != nil {
				return err
			}
			_, err = r.FetchProfileData(cmd.Context(), opts)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Screener, "screener-type", defaultScreener, "screener type name")
	f.BoolVar(&opts.SkipPriced, "skip-priced", false, "skip investments that already have a price")
	f.StringVar(&opts.InvestmentsURL, "investments-url", "", "investments endpoint (default: api.base_url)")
	return cmd
}

func fetchOptionExpirationsCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "fetch-option-expirations",
		Short: "Print the option expirations of a screener's investments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := runner(cmd, true)
			if err != nil {
				return err
			}
			_, err = r.FetchOptionExpirations(cmd.Context(), name)
			return err
		},
	}
	cmd.Flags().StringVar(&name, "screener-type", defaultScreener, "screener type name")
	return cmd
}

func fetchTickerNamesCmd() *cobra.Command {
	var q tasks.TickerQuery
	cmd := &cobra.Command{
		Use:   "fetch-ticker-names",
		Short: "List tickers from the REST API by screener and options suitability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := runner(cmd, false)
			if err != nil {
				return err
			}
			_, err = r.TickerNames(cmd.Context(), q)
			return err
		},
	}
	f := cmd.Flags()
	f.IntVar(&q.OptionsSuitability, "options-suitability", 1, "options suitability to match")
	f.StringVar(&q.Screener, "screener-type", defaultScreener, "screener type name")
	f.StringVar(&q.InvestmentsURL, "investments-url", "", "investments endpoint (default: api.base_url)")
	return cmd
}

// --- Financials ---

func fetchFinancialsCmd() *cobra.Command {
	var opts tasks.FinancialsOptions
	cmd := &cobra.Command{
		Use:   "fetch-financials",
		Short: "Download one financial statement and store it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := runner(cmd, true)
			if err != nil {
				return err
			}
			o := opts
			o.Symbol = utils.NormalizeTicker(o.Symbol)
			_, err = r.FetchFinancials(cmd.Context(), o)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Symbol, "symbol", "anet", "ticker symbol")
	f.StringVar(&opts.TargetCurrency, "target-currency", "USD", "reporting currency")
	f.StringVar(&opts.PeriodType, "period-type", "annual", "annual or quarterly")
	f.StringVar(&opts.StatementType, "statement-type", "income-statement",
		"income-statement, balance-sheet or cash-flow-statement")
	return cmd
}

// --- Put checker ---

func putCheckerCmd() *cobra.Command {
	var name, minROI, deltaLower, deltaUpper string
	def := derivatives.DefaultThresholds()
	cmd := &cobra.Command{
		Use:   "put-checker",
		Short: "Find short-put candidates at the trading expiration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseThresholds(minROI, deltaLower, deltaUpper)
			if err != nil {
				return err
			}
			r, err := runner(cmd, true)
			if err != nil {
				return err
			}
			_, err = r.PutChecker(cmd.Context(), name, t)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "screener-type", defaultScreener, "screener type name")
	f.StringVar(&minROI, "min-roi", def.MinROI.String(), "minimum bid/strike percentage")
	f.StringVar(&deltaLower, "delta-lower", def.DeltaLower.String(), "lowest acceptable put delta")
	f.StringVar(&deltaUpper, "delta-upper", def.DeltaUpper.String(), "highest acceptable put delta")
	return cmd
}

func parseThresholds(minROI, lower, upper string) (derivatives.Thresholds, error) {
	var t derivatives.Thresholds
	for _, p := range []struct {
		flag string
		in   string
		dst  *decimal.Decimal
	}{
		{"--min-roi", minROI, &t.MinROI},
		{"--delta-lower", lower, &t.DeltaLower},
		{"--delta-upper", upper, &t.DeltaUpper},
	} {
		d, err := decimal.NewFromString(p.in)
		if err != nil {
			return t, fmt.Errorf("invalid %s %q: %w", p.flag, p.in, err)
		}
		*p.dst = d
	}
	if t.DeltaLower.GreaterThan(t.DeltaUpper) {
		return t, fmt.Errorf("--delta-lower %s is above --delta-upper %s", t.DeltaLower, t.DeltaUpper)
	}
	return t, nil
}

// --- CBOE and RSI ---

func syncCboeWeekliesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-cboe-weeklies",
		Short: "Download the CBOE weeklies list and flag investments with weekly options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := runner(cmd, false)
			if err != nil {
				return err
			}
			_, err = r.SyncCboeWeeklies(cmd.Context())
			return err
		},
	}
}

func fetchRSICmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "fetch-rsi",
		Short: "Compute the 14-day RSI of a screener's investments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := runner(cmd, true)
			if err != nil {
				return err
			}
			_, err = r.FetchRSI(cmd.Context(), name)
			return err
		},
	}
	cmd.Flags().StringVar(&name, "screener-type", defaultScreener, "screener type name")
	return cmd
}
