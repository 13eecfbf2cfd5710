// Package report renders due-diligence analyses as plain-text reports and
// writes them to disk.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultOutputDir is where saved reports go.
const DefaultOutputDir = "financial_reports"

const width = 80

var ratingMarks = map[string]string{
	"STRONG BUY":  "🟢🟢",
	"BUY":         "🟢",
	"HOLD":        "🟡",
	"SELL":        "🔴",
	"STRONG SELL": "🔴🔴",
}

// Data is what a report shows.
type Data struct {
	Symbol     string
	Rating     string
	Confidence *float64
	Model      string
	Sentiment  string
	Analysis   string
}

// Mark returns the marker drawn around rating.
func Mark(rating string) string {
	if m, ok := ratingMarks[rating]; ok {
		return m
	}
	return "⚪"
}

// Text renders the report.
func Text(d Data) string {
	line := strings.Repeat("=", width)
	mark := Mark(d.Rating)

	var sb strings.Builder
	sb.WriteString("\n" + line + "\n")
	sb.WriteString(center("FINANCIAL DUE DILIGENCE REPORT") + "\n")
	sb.WriteString(line + "\n\n")

	fmt.Fprintf(&sb, "Company Symbol: %s\n", d.Symbol)
	fmt.Fprintf(&sb, "Investment Rating: %s %s %s\n", mark, d.Rating, mark)
	if d.Confidence != nil {
		fmt.Fprintf(&sb, "Confidence: %s%%\n", trimFloat(*d.Confidence))
	}
	if d.Model != "" {
		fmt.Fprintf(&sb, "Model: %s\n", d.Model)
	}
	if d.Sentiment != "" {
		fmt.Fprintf(&sb, "News Sentiment: %s\n", d.Sentiment)
	}

	sb.WriteString("\n" + line + "\n\n")
	sb.WriteString(strings.TrimSpace(d.Analysis))
	sb.WriteString("\n\n" + line + "\n\n")

	sb.WriteString("⚠️  DISCLAIMER: This analysis is generated by AI for informational purposes only.\n")
	sb.WriteString("    It should not be considered financial advice. Always conduct your own research\n")
	sb.WriteString("    and consult with a qualified financial advisor before making investment decisions.\n")
	sb.WriteString("\n" + line + "\n")
	return sb.String()
}

// FileName is the saved report name for symbol.
func FileName(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol)) + "_DD_Report.txt"
}

// Save writes content to dir/FileName(symbol), creating dir as needed, and
// returns the written path.
func Save(dir, symbol, content string) (string, error) {
	if dir == "" {
		dir = DefaultOutputDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	path := filepath.Join(dir, FileName(symbol))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

func center(s string) string {
	pad := (width - len(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.1f", f)
	return strings.TrimSuffix(s, ".0")
}
