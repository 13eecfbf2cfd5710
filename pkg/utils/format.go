// Package utils holds small helpers shared by the CLI and the tasks:
// ticker normalisation, U.S. market hours and number formatting.
package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatUSD formats amount with thousands separators, e.g. "$1,234,567.89".
func FormatUSD(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = math.Abs(amount)
	}
	s := strconv.FormatFloat(amount, 'f', 2, 64)
	intPart, decPart, _ := strings.Cut(s, ".")
	return sign + "$" + groupThousands(intPart) + "." + decPart
}

// FormatCompact formats amount with a K/M/B/T suffix, e.g. 2.5e9 becomes
// "$2.5B". This matches how market-cap filters are written.
func FormatCompact(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = math.Abs(amount)
	}
	switch {
	case amount >= 1e12:
		return fmt.Sprintf("%s$%sT", sign, trimDecimals(amount/1e12))
	case amount >= 1e9:
		return fmt.Sprintf("%s$%sB", sign, trimDecimals(amount/1e9))
	case amount >= 1e6:
		return fmt.Sprintf("%s$%sM", sign, trimDecimals(amount/1e6))
	case amount >= 1e3:
		return fmt.Sprintf("%s$%sK", sign, trimDecimals(amount/1e3))
	default:
		return fmt.Sprintf("%s$%.2f", sign, amount)
	}
}

// FormatPct formats a percentage with an explicit sign: 2.45 becomes "+2.45%".
func FormatPct(pct float64) string {
	if pct >= 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var sb strings.Builder
	head := len(digits) % 3
	if head > 0 {
		sb.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}

// trimDecimals formats n with up to 2 decimals, dropping trailing zeros.
func trimDecimals(n float64) string {
	s := fmt.Sprintf("%.2f", n)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
