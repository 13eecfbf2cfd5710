// Package derivatives prices European puts and picks cash-secured put
// candidates from an options chain.
package derivatives

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/seenimoa/optiscreen/pkg/models"
)

const (
	volLow        = 1e-6
	volHigh       = 5.0
	maxIterations = 100
	tolerance     = 1e-6
	daysPerYear   = 365
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// Inputs are the market observations used to back out volatility.
type Inputs struct {
	Spot   decimal.Decimal
	Strike decimal.Decimal
	Years  decimal.NullDecimal // time to expiry
	Rate   decimal.NullDecimal // annual risk-free rate, e.g. 0.0425
}

func (in Inputs) usable() bool {
	return in.Years.Valid && in.Rate.Valid &&
		in.Spot.IsPositive() && in.Strike.IsPositive() && in.Years.Decimal.IsPositive()
}

func (in Inputs) floats() (s, k, t, r float64) {
	return in.Spot.InexactFloat64(), in.Strike.InexactFloat64(),
		in.Years.Decimal.InexactFloat64(), in.Rate.Decimal.InexactFloat64()
}

func d1(s, k, t, r, sigma float64) float64 {
	return (math.Log(s/k) + (r+sigma*sigma/2)*t) / (sigma * math.Sqrt(t))
}

// PutPrice is the Black-Scholes price of a European put.
func PutPrice(s, k, t, r, sigma float64) float64 {
	if sigma <= 0 {
		return 0
	}
	a := d1(s, k, t, r, sigma)
	b := a - sigma*math.Sqrt(t)
	return k*math.Exp(-r*t)*distuv.UnitNormal.CDF(-b) - s*distuv.UnitNormal.CDF(-a)
}

// ImpliedVolatility bisects for the volatility that prices the put at
// premium. The result is a percentage with two decimals.
func ImpliedVolatility(premium decimal.NullDecimal, in Inputs) decimal.NullDecimal {
	if !premium.Valid || !premium.Decimal.IsPositive() || !in.usable() {
		return decimal.NullDecimal{}
	}
	s, k, t, r := in.floats()
	target := premium.Decimal.InexactFloat64()

	low, high := volLow, volHigh
	if target < PutPrice(s, k, t, r, low) || target > PutPrice(s, k, t, r, high) {
		return decimal.NullDecimal{}
	}
	for i := 0; i < maxIterations; i++ {
		mid := (low + high) / 2
		price := PutPrice(s, k, t, r, mid)
		if math.Abs(price-target) < tolerance {
			low = mid
			break
		}
		if price > target {
			high = mid
		} else {
			low = mid
		}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(low * 100).RoundBank(2))
}

// PutDelta is N(d1) - 1 for the implied volatility iv (a percentage).
func PutDelta(iv decimal.NullDecimal, in Inputs) decimal.NullDecimal {
	if !iv.Valid || !in.usable() {
		return decimal.NullDecimal{}
	}
	sigma := iv.Decimal.InexactFloat64() / 100
	if sigma <= 0 {
		return decimal.NullDecimal{}
	}
	s, k, t, r := in.floats()
	delta := distuv.UnitNormal.CDF(d1(s, k, t, r, sigma)) - 1
	return decimal.NewNullDecimal(decimal.NewFromFloat(delta).RoundBank(2))
}

// YearsToExpiry is days/365 to four decimals. Expired or same-day
// expirations have no value.
func YearsToExpiry(expiry models.Date, today time.Time) decimal.NullDecimal {
	days := int(expiry.Sub(models.DateOf(today).Time).Hours() / 24)
	if days <= 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(
		decimal.NewFromInt(int64(days)).Div(decimal.NewFromInt(daysPerYear)).RoundBank(4))
}
