package derivatives

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/optiscreen/pkg/models"
)

// Default candidate thresholds.
var (
	DefaultMinROI     = decimal.RequireFromString("2.5")
	DefaultDeltaLower = decimal.RequireFromString("-0.34")
	DefaultDeltaUpper = decimal.RequireFromString("-0.25")
)

// Put is a put quote with the metrics computed for it.
type Put struct {
	models.OptionQuote
	OptVal decimal.NullDecimal // bid as a percentage of strike
	IV     decimal.NullDecimal // implied volatility, percent
	Delta  decimal.NullDecimal
	ROI    decimal.NullDecimal // mid as a percentage of strike
	Mid    decimal.NullDecimal
}

// Thresholds select ROI candidates. ROI must exceed MinROI and delta must
// lie within [DeltaLower, DeltaUpper].
type Thresholds struct {
	MinROI     decimal.Decimal
	DeltaLower decimal.Decimal
	DeltaUpper decimal.Decimal
}

// DefaultThresholds returns the standard candidate window.
func DefaultThresholds() Thresholds {
	return Thresholds{MinROI: DefaultMinROI, DeltaLower: DefaultDeltaLower, DeltaUpper: DefaultDeltaUpper}
}

// OptVal is bid/strike*100 to two decimals.
func OptVal(bid decimal.NullDecimal, strike decimal.Decimal) decimal.NullDecimal {
	if !bid.Valid || strike.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(bid.Decimal.Div(strike).Mul(hundred).RoundBank(2))
}

// MidPrice is (bid+ask)/2 to two decimals.
func MidPrice(bid, ask decimal.NullDecimal) decimal.NullDecimal {
	if !bid.Valid || !ask.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(bid.Decimal.Add(ask.Decimal).Div(two).RoundBank(2))
}

// ROI is the unrounded mid as a percentage of strike, to two decimals.
func ROI(bid, ask decimal.NullDecimal, strike decimal.Decimal) decimal.NullDecimal {
	if !bid.Valid || !ask.Valid || strike.IsZero() {
		return decimal.NullDecimal{}
	}
	mid := bid.Decimal.Add(ask.Decimal).Div(two)
	return decimal.NewNullDecimal(mid.Div(strike).Mul(hundred).RoundBank(2))
}

// TargetStrike is the price rounded half-up to a whole number, minus two.
func TargetStrike(price decimal.Decimal) decimal.Decimal {
	return price.Round(0).Sub(two)
}

// PricePuts returns the puts struck at or below price, highest strike first,
// with opt_val, implied volatility, delta, ROI and mid filled in. Without a
// rate or time to expiry the volatility and delta stay empty.
func PricePuts(quotes []models.OptionQuote, price decimal.Decimal, years, rate decimal.NullDecimal) []Put {
	var puts []Put
	for _, q := range quotes {
		if !q.IsPut() || q.Strike.GreaterThan(price) {
			continue
		}
		in := Inputs{Spot: price, Strike: q.Strike, Years: years, Rate: rate}
		p := Put{
			OptionQuote: q,
			OptVal:      OptVal(q.Bid, q.Strike),
			IV:          ImpliedVolatility(q.Bid, in),
			ROI:         ROI(q.Bid, q.Ask, q.Strike),
			Mid:         MidPrice(q.Bid, q.Ask),
		}
		p.Delta = PutDelta(p.IV, in)
		puts = append(puts, p)
	}
	sort.SliceStable(puts, func(i, j int) bool {
		return puts[i].Strike.GreaterThan(puts[j].Strike)
	})
	return puts
}

// Candidates keeps the puts whose delta and ROI fall inside t.
func Candidates(puts []Put, t Thresholds) []Put {
	var out []Put
	for _, p := range puts {
		if !p.Delta.Valid || p.Delta.Decimal.LessThan(t.DeltaLower) || p.Delta.Decimal.GreaterThan(t.DeltaUpper) {
			continue
		}
		if !p.ROI.Valid || !p.ROI.Decimal.GreaterThan(t.MinROI) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FindStrike returns the first put struck at strike.
func FindStrike(puts []Put, strike decimal.Decimal) (Put, bool) {
	for _, p := range puts {
		if p.Strike.Equal(strike) {
			return p, true
		}
	}
	return Put{}, false
}
