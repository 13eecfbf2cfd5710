package screener

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/optiscreen/internal/infra"
	"github.com/seenimoa/optiscreen/pkg/models"
)

// ErrNoFilters is returned when a screener has nothing to send upstream.
var ErrNoFilters = errors.New("does not have any stored filters")

var exchanges = []string{
	"New York Stock Exchange(NYSE)",
	"Nasdaq Global Select(NasdaqGS)",
	"Nasdaq Global Market(NasdaqGM)",
	"The Toronto Stock Exchange(TSX)",
}

func in(values ...string) map[string]any {
	items := make([]any, len(values))
	for i, v := range values {
		items[i] = v
	}
	return map[string]any{"in": items}
}

func gte(n string) map[string]any {
	return map[string]any{"gte": json.Number(n)}
}

// ExchangeFilterPayload limits results to the major US and Toronto exchanges.
func ExchangeFilterPayload() map[string]any {
	return map[string]any{"exchange": in(exchanges...)}
}

// CustomFilterPayload is the quality screen stored on the custom screener.
func CustomFilterPayload() map[string]any {
	p := ExchangeFilterPayload()
	grades := []string{"A+", "A", "A-", "B+", "B"}
	p["marketcap_display"] = gte("5000000000")
	p["quant_rating"] = in("buy", "strong_buy")
	p["sell_side_rating"] = in("hold", "buy", "strong_buy")
	p["authors_rating"] = in("hold", "buy", "strong_buy")
	p["profitability_category"] = in(grades...)
	p["growth_category"] = in(grades...)
	p["eps_revisions_category"] = in(grades...)
	p["value_category"] = in("A+", "A", "A-", "B+", "B", "B-", "C+", "C")
	p["altman_z_score"] = gte("2")
	p["cash_from_operations_as_reported"] = gte("0")
	return p
}

// CustomFilterPayloadV2 is the reduced exchange, size and quant screen.
func CustomFilterPayloadV2() map[string]any {
	p := ExchangeFilterPayload()
	p["marketcap_display"] = gte("5000000000")
	p["quant_rating"] = in("buy", "strong_buy")
	return p
}

// BuildPayload merges the stored filters of a screener into one request body.
func BuildPayload(screener string, filters []models.ScreenerFilter) (map[string]any, error) {
	merged := map[string]any{}
	for _, f := range filters {
		v, err := decodePayload(f.Payload)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", f.Label, err)
		}
		if isEmpty(v) {
			continue
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unsupported filter payload structure encountered: '%s'", f.Label)
		}
		for k, val := range m {
			if prev, ok := merged[k]; ok && !sameValue(prev, val) {
				return nil, fmt.Errorf("conflicting values for payload key '%s' across filters", k)
			}
			merged[k] = val
		}
	}

	switch screener {
	case models.CustomScreenerFilter:
		base := CustomFilterPayload()
		for k, v := range merged {
			base[k] = v
		}
		merged = base
	case models.StocksByQuant:
		merged = StripIndustryIDs(merged).(map[string]any)
	}

	if len(merged) == 0 {
		return nil, fmt.Errorf("screener '%s' %w", screener, ErrNoFilters)
	}
	return merged, nil
}

// sameValue compares decoded JSON values. Numbers compare by value, so 5
// and 5.0 are equal.
func sameValue(a, b any) bool {
	switch x := a.(type) {
	case json.Number:
		y, ok := b.(json.Number)
		if !ok {
			return false
		}
		dx, errX := decimal.NewFromString(x.String())
		dy, errY := decimal.NewFromString(y.String())
		if errX != nil || errY != nil {
			return x == y
		}
		return dx.Equal(dy)
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, v := range x {
			w, ok := y[k]
			if !ok || !sameValue(v, w) {
				return false
			}
		}
		return true
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !sameValue(x[i], y[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func decodePayload(raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	return infra.DecodeJSON(raw)
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(x) == 0
	case []any:
		return len(x) == 0
	case string:
		return x == ""
	case bool:
		return !x
	case json.Number:
		f, err := x.Float64()
		return err == nil && f == 0
	}
	return false
}

// Overrides are command-line adjustments applied to a built payload.
type Overrides struct {
	MarketCap   string
	MinPrice    string
	MaxPrice    string
	QuantRating string
}

var marketCapRE = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)([KMBT]?)$`)

var marketCapUnits = map[string]int32{"": 0, "K": 3, "M": 6, "B": 9, "T": 12}

// ParseMarketCap converts values like "5B" or "750m" to a plain number.
func ParseMarketCap(s string) (decimal.Decimal, error) {
	m := marketCapRE.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return decimal.Decimal{}, errors.New("market cap value must be a number optionally followed by K, M, B, or T")
	}
	d, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Decimal{}, errors.New("market cap value must be a number optionally followed by K, M, B, or T")
	}
	return d.Shift(marketCapUnits[strings.ToUpper(m[2])]), nil
}

// number renders d as a JSON number, without a fraction when integral.
func number(d decimal.Decimal) json.Number {
	if d.Equal(d.Truncate(0)) {
		return json.Number(d.Truncate(0).String())
	}
	return json.Number(d.String())
}

// Apply writes the overrides into payload["filter"] when that is an object,
// otherwise into the payload itself.
func (o Overrides) Apply(payload map[string]any) error {
	target := payload
	if f, ok := payload["filter"].(map[string]any); ok {
		target = f
	}

	if o.MarketCap != "" {
		d, err := ParseMarketCap(o.MarketCap)
		if err != nil {
			return err
		}
		mc := subMap(target, "marketcap_display")
		mc["gte"] = number(d)
	}

	if o.MinPrice != "" || o.MaxPrice != "" {
		var lo, hi decimal.NullDecimal
		for _, p := range []struct {
			raw string
			dst *decimal.NullDecimal
		}{{o.MinPrice, &lo}, {o.MaxPrice, &hi}} {
			if p.raw == "" {
				continue
			}
			d, err := decimal.NewFromString(strings.TrimSpace(p.raw))
			if err != nil {
				return errors.New("price filters must be numeric values")
			}
			*p.dst = decimal.NewNullDecimal(d)
		}
		if lo.Valid && hi.Valid && lo.Decimal.GreaterThan(hi.Decimal) {
			return errors.New("minimum price cannot be greater than maximum price")
		}
		closeFilter := subMap(target, "close")
		if lo.Valid {
			closeFilter["gte"] = number(lo.Decimal)
		}
		if hi.Valid {
			closeFilter["lte"] = number(hi.Decimal)
		}
	}

	if q := strings.TrimSpace(o.QuantRating); q != "" {
		target["quant_rating"] = in(q)
	}
	return nil
}

// subMap returns m[key] as an object, replacing any non-object value.
func subMap(m map[string]any, key string) map[string]any {
	if existing, ok := m[key].(map[string]any); ok {
		return existing
	}
	fresh := map[string]any{}
	m[key] = fresh
	return fresh
}
