// Package agent runs AI due-diligence analyses over the financial
// statements stored by optiscreen.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog"
	"github.com/tidwall/pretty"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/optiscreen/internal/agent/prompts"
	"github.com/seenimoa/optiscreen/internal/analysis/sentiment"
	"github.com/seenimoa/optiscreen/internal/llm"
	"github.com/seenimoa/optiscreen/pkg/models"
)

// Statements maps the key used in the prompt to the statement type
// requested from the API.
var Statements = []struct {
	Key  string
	Type string
}{
	{"balance_sheet", models.StatementBalanceSheet},
	{"income_statement", models.StatementIncome},
	{"cash_flow", models.StatementCashFlow},
}

// StatementSource lists stored statements.
type StatementSource interface {
	FinancialStatements(ctx context.Context, symbol, statementType string) ([]any, error)
}

// HeadlineSource returns recent news for a symbol.
type HeadlineSource interface {
	Headlines(ctx context.Context, symbol string) ([]sentiment.Headline, error)
}

// DDAgent fetches a company's statements and asks the model for a rating.
type DDAgent struct {
	Statements StatementSource
	Model      llm.Provider
	News       HeadlineSource // optional
	Options    *llm.ChatOptions
	Log        zerolog.Logger
	Now        func() time.Time
}

// Result is one completed analysis.
type Result struct {
	Symbol        string
	Rating        string
	Confidence    *float64
	Summary       string
	Analysis      string
	FinancialData map[string]any
	Headlines     []sentiment.Headline
	Sentiment     *sentiment.Summary
	Model         string
	Usage         llm.Usage
	Duration      time.Duration
}

// Analyze runs the full analysis of symbol.
func (a *DDAgent) Analyze(ctx context.Context, symbol string) (*Result, error) {
	start := a.now()
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.New("a symbol is required")
	}
	log := a.Log.With().Str("symbol", symbol).Logger()

	data, err := a.FetchFinancialData(ctx, symbol)
	if err != nil {
		return nil, err
	}

	res := &Result{Symbol: symbol, FinancialData: data}
	var news string
	if a.News != nil {
		headlines, err := a.News.Headlines(ctx, symbol)
		if err != nil {
			log.Warn().Err(err).Msg("headlines unavailable")
		} else if len(headlines) > 0 {
			res.Headlines = headlines
			s := sentiment.Aggregate(headlines, start)
			res.Sentiment = &s
			news = formatHeadlines(headlines, s)
		}
	}

	prompt, err := BuildPrompt(symbol, data, news)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("prompt_chars", len(prompt)).Msg("requesting analysis")

	resp, err := a.Model.Chat(ctx, []llm.Message{
		llm.SystemMessage(prompts.SystemPrompt),
		llm.UserMessage(prompt),
	}, a.Options)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	res.Analysis = resp.Content
	res.Model = resp.Model
	res.Usage = resp.Usage
	res.Rating = ExtractRating(resp.Content)
	if sum, ok := ParseSummary(resp.Content); ok {
		res.Confidence = sum.Confidence
		res.Summary = sum.Summary
	}
	res.Duration = a.now().Sub(start)

	log.Info().Str("rating", res.Rating).Int("tokens", resp.Usage.TotalTokens).
		Dur("duration", res.Duration).Msg("analysis complete")
	return res, nil
}

// FetchFinancialData fetches the three statements of symbol concurrently.
// Any failure aborts the whole fetch.
func (a *DDAgent) FetchFinancialData(ctx context.Context, symbol string) (map[string]any, error) {
	results := make([][]any, len(Statements))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range Statements {
		g.Go(func() error {
			entries, err := a.Statements.FinancialStatements(gctx, symbol, s.Type)
			if err != nil {
				return fmt.Errorf("failed to fetch %s: %w", s.Type, err)
			}
			results[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data := make(map[string]any, len(Statements))
	for i, s := range Statements {
		if results[i] == nil {
			results[i] = []any{}
		}
		data[s.Key] = results[i]
	}
	return data, nil
}

// BuildPrompt renders the due-diligence prompt with data as indented JSON.
func BuildPrompt(symbol string, data map[string]any, news string) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode financial data: %w", err)
	}
	indented := pretty.PrettyOptions(raw, &pretty.Options{Width: 80, Indent: "  ", SortKeys: true})
	return prompts.DueDiligence(symbol, string(indented), news), nil
}

// ExtractRating returns the first rating named in text, or the default.
func ExtractRating(text string) string {
	upper := strings.ToUpper(text)
	for _, r := range prompts.Ratings {
		if strings.Contains(upper, r) {
			return r
		}
	}
	return prompts.DefaultRating
}

// Summary is the structured block that closes a response.
type Summary struct {
	Rating     string
	Confidence *float64
	Summary    string
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ParseSummary reads the last fenced block of text, repairing malformed
// JSON first. Confidence may be a number or a string such as "85%".
func ParseSummary(text string) (Summary, bool) {
	matches := fencedBlock.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return Summary{}, false
	}
	block := strings.TrimSpace(matches[len(matches)-1][1])
	repaired, err := jsonrepair.JSONRepair(block)
	if err != nil {
		return Summary{}, false
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
		return Summary{}, false
	}

	var s Summary
	if r, ok := raw["rating"].(string); ok {
		s.Rating = strings.ToUpper(strings.TrimSpace(r))
	}
	if sum, ok := raw["summary"].(string); ok {
		s.Summary = strings.TrimSpace(sum)
	}
	switch c := raw["confidence"].(type) {
	case float64:
		s.Confidence = &c
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(c), "%")), 64); err == nil {
			s.Confidence = &f
		}
	}
	return s, true
}

// Record converts the result into a stored report.
func (r *Result) Record(formatted string) (*models.DueDiligenceReport, error) {
	report := map[string]any{
		"analysis":         r.Analysis,
		"formatted_output": formatted,
		"summary":          r.Summary,
	}
	if r.Sentiment != nil {
		report["news_sentiment"] = r.Sentiment.String()
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	dataJSON, err := json.Marshal(r.FinancialData)
	if err != nil {
		return nil, fmt.Errorf("encode financial data: %w", err)
	}
	rec := &models.DueDiligenceReport{
		Symbol:        r.Symbol,
		Rating:        r.Rating,
		Confidence:    r.Confidence,
		ModelName:     r.Model,
		Report:        reportJSON,
		FinancialData: dataJSON,
	}
	rec.Normalize()
	return rec, rec.Validate()
}

func formatHeadlines(headlines []sentiment.Headline, s sentiment.Summary) string {
	var sb strings.Builder
	for _, h := range headlines {
		sb.WriteString("- ")
		sb.WriteString(h.Title)
		if !h.Published.IsZero() {
			sb.WriteString(" (" + h.Published.Format(models.DateLayout) + ")")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Headline tone: " + s.String())
	return sb.String()
}

func (a *DDAgent) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
