package utils

import (
	"sort"
	"strings"
)

// Seeking Alpha writes share classes with a dot, some brokers with a slash.
var classSeparators = strings.NewReplacer("/", ".", "-", ".")

// NormalizeTicker trims, uppercases and strips a leading "$" from a
// user-supplied ticker. Share-class separators become dots, so "brk/b",
// "BRK-B" and "$brk.b" all map to "BRK.B".
func NormalizeTicker(ticker string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	ticker = strings.TrimPrefix(ticker, "$")
	return classSeparators.Replace(ticker)
}

// NormalizeTickers normalizes, de-duplicates and sorts a ticker list.
// Blank entries are dropped.
func NormalizeTickers(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = NormalizeTicker(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// SplitTickers parses a comma or whitespace separated list, e.g. a
// --symbols flag.
func SplitTickers(s string) []string {
	return NormalizeTickers(strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	}))
}
