// Package technical computes price indicators from daily closes.
package technical

import (
	"math"
	"sort"

	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"

	"github.com/seenimoa/optiscreen/pkg/models"
)

// DefaultRSIPeriod is the Wilder lookback.
const DefaultRSIPeriod = 14

// Closes returns the closing prices ordered by date.
func Closes(points []models.PricePoint) []float64 {
	sorted := make([]models.PricePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })
	closes := make([]float64, len(sorted))
	for i, p := range sorted {
		closes[i] = p.Close
	}
	return closes
}

// RSI returns the latest relative strength index to two decimals, or an
// empty value when there are not enough closes.
func RSI(closes []float64, period int) decimal.NullDecimal {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	if len(closes) < period+1 {
		return decimal.NullDecimal{}
	}
	values := talib.Rsi(closes, period)
	if len(values) == 0 {
		return decimal.NullDecimal{}
	}
	last := values[len(values)-1]
	if math.IsNaN(last) || math.IsInf(last, 0) {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(last).Round(2))
}
