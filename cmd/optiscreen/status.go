package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"github.com/seenimoa/optiscreen/internal/config"
	"github.com/seenimoa/optiscreen/internal/provider"
	"github.com/seenimoa/optiscreen/internal/store"
	"github.com/seenimoa/optiscreen/pkg/utils"
)

// --- Query Command ---

var queryCmd = &cobra.Command{
	Use:   "query PROVIDER MODEL",
	Short: "Run one upstream fetcher and print its JSON",
	Long: `Run a single provider fetcher with ad-hoc parameters and print the
result. Use "optiscreen status" to list providers and their models.

Examples:
  optiscreen query treasury TreasuryRate
  optiscreen query cboe WeeklyOptions
  optiscreen query seekingalpha SymbolProfile --param symbols=AAPL,MSFT
  optiscreen query seekingalpha Financials --param symbol=anet --param statement_type=balance-sheet`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, ok := provider.ParseModelType(args[1])
		if !ok {
			return fmt.Errorf("unknown model %q", args[1])
		}
		raw, _ := cmd.Flags().GetStringArray("param")
		params, err := parseParams(raw)
		if err != nil {
			return err
		}
		params[provider.ParamProvider] = args[0]

		reg, err := deps.Registry()
		if err != nil {
			return err
		}
		if _, err := reg.Get(args[0]); err != nil {
			if args[0] == "seekingalpha" && cfg.RapidAPI.Key == "" {
				return errNoRapidAPIKey
			}
			return err
		}
		res, err := reg.Fetch(cmd.Context(), model, params)
		if err != nil {
			return err
		}
		body, err := json.Marshal(res)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(pretty.Pretty(body))
		return err
	},
}

func init() {
	queryCmd.Flags().StringArrayP("param", "p", nil, "fetcher parameter as key=value (repeatable)")
}

// parseParams turns key=value pairs into query params.
func parseParams(pairs []string) (provider.QueryParams, error) {
	params := provider.QueryParams{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --param %q: want key=value", p)
		}
		params[k] = strings.TrimSpace(v)
	}
	return params, nil
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		now := utils.NowET()

		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintln(out, "  optiscreen: System Status")
		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintf(out, "  Version:       %s (%s)\n", version, commit)
		fmt.Fprintf(out, "  Market Status: %s\n", utils.MarketStatusAt(now))
		fmt.Fprintf(out, "  Time (ET):     %s\n", utils.FormatDateTimeET(now))
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Configuration:")
		fmt.Fprintf(out, "    Database:      %s\n", cfg.Database.Path)
		fmt.Fprintf(out, "    API Server:    %s\n", cfg.Addr())
		fmt.Fprintf(out, "    API Base URL:  %s\n", cfg.API.BaseURL)
		fmt.Fprintf(out, "    LLM Model:     %s\n", cfg.LLM.Model)
		printSchedule(out, cfg.Schedule)
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Fprintf(out, "    %-25s %s\n", k.Name+":", status)
		}
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Providers:")
		reg, err := deps.Registry()
		if err != nil {
			return err
		}
		for _, info := range reg.List() {
			models := make([]string, len(info.Models))
			for i, m := range info.Models {
				models[i] = string(m)
			}
			fmt.Fprintf(out, "    %-14s ✅ %s\n", info.Name, strings.Join(models, ", "))
		}
		if _, err := reg.Get("seekingalpha"); err != nil {
			fmt.Fprintf(out, "    %-14s ❌ RapidAPI key not set\n", "seekingalpha")
		}
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Data:")
		if err := printData(cmd, out); err != nil {
			fmt.Fprintf(out, "    ❌ database unavailable: %v\n", err)
		}

		fmt.Fprintln(out, "═══════════════════════════════════════")
		return nil
	},
}

func printSchedule(out io.Writer, s config.ScheduleConfig) {
	jobs := []struct{ name, spec string }{
		{"screeners", s.Screeners},
		{"cboe_weeklies", s.CboeWeeklies},
		{"profile_data", s.ProfileData},
		{"put_checker", s.PutChecker},
	}
	for _, j := range jobs {
		spec := j.spec
		if spec == "" {
			spec = "disabled"
		}
		fmt.Fprintf(out, "    %-14s %s\n", j.name+":", spec)
	}
}

func printData(cmd *cobra.Command, out io.Writer) error {
	st, err := deps.Store(cmd.Context())
	if err != nil {
		return err
	}
	invs, err := st.Investments.List(cmd.Context(), store.InvestmentFilter{})
	if err != nil {
		return err
	}
	var total float64
	for _, inv := range invs {
		if inv.MarketCap.Valid {
			total += inv.MarketCap.Decimal.InexactFloat64()
		}
	}
	types, err := st.Screeners.ListTypes(cmd.Context(), "")
	if err != nil {
		return err
	}
	weeklies, err := st.Cboe.List(cmd.Context(), "")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "    Investments:   %d (combined market cap %s)\n", len(invs), utils.FormatCompact(total))
	fmt.Fprintf(out, "    Screeners:     %d\n", len(types))
	fmt.Fprintf(out, "    CBOE weeklies: %d\n", len(weeklies))
	return nil
}
