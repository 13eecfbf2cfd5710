package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seenimoa/optiscreen/internal/agent"
	"github.com/seenimoa/optiscreen/internal/report"
	"github.com/seenimoa/optiscreen/pkg/models"
	"github.com/seenimoa/optiscreen/pkg/utils"
)

// --- AI Agent Command ---

var aiAgentCmd = &cobra.Command{
	Use:   "ai-agent SYMBOL",
	Short: "Run an AI due-diligence analysis on a stored company",
	Long: `Fetch the balance sheet, income statement and cash-flow statement of
SYMBOL from the REST API, ask OpenAI for an investment analysis and print
the report.

Examples:
  optiscreen ai-agent ANET
  optiscreen ai-agent bsx --save --output-dir reports
  optiscreen ai-agent nvda --with-news --no-persist`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts ddOptions
		f := cmd.Flags()
		opts.Save, _ = f.GetBool("save")
		opts.OutputDir, _ = f.GetString("output-dir")
		baseURL, _ := f.GetString("base-url")
		withNews, _ := f.GetBool("with-news")
		noPersist, _ := f.GetBool("no-persist")
		if opts.OutputDir == "" {
			opts.OutputDir = cfg.Agent.OutputDir
		}

		dd, err := deps.Agent(baseURL, withNews)
		if err != nil {
			return fmt.Errorf("failed to initialize agent: %w", err)
		}
		var reports reportCreator
		if !noPersist {
			st, err := deps.Store(cmd.Context())
			if err != nil {
				return err
			}
			reports = st.Reports
		}
		return runDueDiligence(cmd.Context(), cmd.OutOrStdout(), dd, reports, args[0], opts)
	},
}

func init() {
	f := aiAgentCmd.Flags()
	f.Bool("save", false, "save the report to a file")
	f.String("output-dir", "", "directory for saved reports (default: agent.output_dir)")
	f.String("base-url", "", "REST API base URL (default: api.base_url)")
	f.Bool("with-news", false, "include recent headlines and their sentiment in the prompt")
	f.Bool("no-persist", false, "do not store the report in the database")
}

type analyzer interface {
	Analyze(ctx context.Context, symbol string) (*agent.Result, error)
}

type reportCreator interface {
	Create(ctx context.Context, rep *models.DueDiligenceReport) error
}

type ddOptions struct {
	Save      bool
	OutputDir string
}

// runDueDiligence analyzes symbol and prints the report. A nil reports
// skips persisting it. Failing to save the file is reported but not fatal.
func runDueDiligence(ctx context.Context, out io.Writer, a analyzer, reports reportCreator, symbol string, opts ddOptions) error {
	symbol = utils.NormalizeTicker(symbol)
	rule := strings.Repeat("=", 80)

	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "  Starting Financial Due Diligence for %s\n", symbol)
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "📊 Fetching financial statements...")
	for _, s := range agent.Statements {
		fmt.Fprintf(out, "  ✓ Fetching %s\n", s.Type)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "🤖 Analyzing with OpenAI...")

	res, err := a.Analyze(ctx, symbol)
	if err != nil {
		return err
	}

	data := report.Data{
		Symbol:     res.Symbol,
		Rating:     res.Rating,
		Confidence: res.Confidence,
		Model:      res.Model,
		Analysis:   res.Analysis,
	}
	if res.Sentiment != nil {
		data.Sentiment = res.Sentiment.String()
	}
	formatted := report.Text(data)

	fmt.Fprintln(out)
	fmt.Fprintf(out, "✅ Analysis complete! (%s)\n", report.FormatDuration(res.Duration))
	fmt.Fprintln(out)
	fmt.Fprintln(out, formatted)

	if opts.Save {
		fmt.Fprintln(out)
		if path, err := report.Save(opts.OutputDir, res.Symbol, formatted); err != nil {
			fmt.Fprintf(out, "❌ Failed to save report: %v\n", err)
		} else {
			fmt.Fprintf(out, "✅ Report saved to %s\n", path)
		}
	}

	if reports != nil {
		rec, err := res.Record(formatted)
		if err != nil {
			return fmt.Errorf("record report: %w", err)
		}
		if err := reports.Create(ctx, rec); err != nil {
			return fmt.Errorf("store report: %w", err)
		}
		fmt.Fprintf(out, "💾 Stored due-diligence report #%d\n", rec.ID)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, rule)
	return nil
}
