package api

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/optiscreen/internal/store"
	"github.com/seenimoa/optiscreen/pkg/models"
)

// Query parameter messages.
const (
	msgFilterNumber  = "Enter a valid number."
	msgFilterInteger = "Enter a valid integer."
	msgFilterRange   = "Maximum value must be greater than or equal to minimum value."
)

// param returns the last value of key. A present but empty parameter is
// returned as "" with ok true.
func param(q url.Values, key string) (string, bool) {
	vals, ok := q[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[len(vals)-1], true
}

func decimalParam(q url.Values, errs models.FieldErrors, key string) *decimal.Decimal {
	raw, ok := param(q, key)
	if !ok {
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		errs.Add(key, msgFilterNumber)
		return nil
	}
	return &d
}

func intParam(q url.Values, errs models.FieldErrors, key string) *int64 {
	raw, ok := param(q, key)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		errs.Add(key, msgFilterInteger)
		return nil
	}
	return &n
}

// decimalRange parses a min/max pair and checks their order.
func decimalRange(q url.Values, errs models.FieldErrors, minKey, maxKey string) (lo, hi *decimal.Decimal) {
	lo = decimalParam(q, errs, minKey)
	hi = decimalParam(q, errs, maxKey)
	if lo != nil && hi != nil && lo.GreaterThan(*hi) {
		errs.Add(maxKey, msgFilterRange)
	}
	return lo, hi
}

// investmentFilter builds the list filter from query parameters.
func investmentFilter(q url.Values) (store.InvestmentFilter, models.FieldErrors) {
	errs := models.FieldErrors{}
	f := store.InvestmentFilter{
		Category:       q.Get("category"),
		ScreenerType:   q.Get("screener_type"),
		TickerContains: q.Get("ticker"),
	}
	if f.ScreenerType == "" {
		f.ScreenerType = q.Get("screenter_type")
	}

	f.Price = decimalParam(q, errs, "price")
	f.MinPrice, f.MaxPrice = decimalRange(q, errs, "min_price", "max_price")
	f.OptVal = decimalParam(q, errs, "opt_val")
	f.MinOptVal, f.MaxOptVal = decimalRange(q, errs, "min_opt_val", "max_opt_val")
	f.MinMarketCap, f.MaxMarketCap = decimalRange(q, errs, "min_market_cap", "max_market_cap")
	f.MinVolume = intParam(q, errs, "min_volume")
	if n := intParam(q, errs, "options_suitability"); n != nil {
		v := int(*n)
		f.OptionsSuitability = &v
	}

	if len(errs) > 0 {
		return f, errs
	}
	return f, nil
}
