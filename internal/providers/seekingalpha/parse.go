package seekingalpha

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/optiscreen/pkg/models"
)

// ExpirationLayout is the date format of option expirations.
const ExpirationLayout = "01/02/2006"

var errUnexpectedShape = errors.New("seeking alpha returned an unexpected payload structure")

// ParseDecimal converts a JSON scalar to a decimal. nil yields an invalid
// NullDecimal.
func ParseDecimal(v any) (decimal.NullDecimal, error) {
	var (
		d   decimal.Decimal
		err error
	)
	switch n := v.(type) {
	case nil:
		return decimal.NullDecimal{}, nil
	case json.Number:
		d, err = decimal.NewFromString(n.String())
	case string:
		if strings.TrimSpace(n) == "" {
			return decimal.NullDecimal{}, nil
		}
		d, err = decimal.NewFromString(strings.TrimSpace(n))
	case float64:
		d = decimal.NewFromFloat(n)
	case int:
		d = decimal.NewFromInt(int64(n))
	case int64:
		d = decimal.NewFromInt(n)
	default:
		err = errors.New("not a number")
	}
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("unable to parse '%v' as a decimal number", v)
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// dataSection unwraps a top-level {"data": ...} envelope.
func dataSection(v any) any {
	if m, ok := asMap(v); ok {
		if d, ok := m["data"]; ok {
			return d
		}
	}
	return v
}

// attributesOf returns entry["attributes"] when it is a map, else entry.
func attributesOf(entry map[string]any) map[string]any {
	if attrs, ok := asMap(entry["attributes"]); ok {
		return attrs
	}
	return entry
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok && s != ""
}

func appendStrings(dst []string, v any) ([]string, bool) {
	list, ok := v.([]any)
	if !ok {
		return dst, false
	}
	for _, item := range list {
		if s, ok := nonEmptyString(item); ok {
			dst = append(dst, s)
		}
	}
	return dst, true
}

// ParseScreenerResults extracts ticker names from a get-results response.
// Names come from attributes.name, attributes.names, attributes.p.name and
// attributes.p.names, in that order.
func ParseScreenerResults(v any) (ScreenerPage, error) {
	m, ok := asMap(v)
	if !ok {
		return ScreenerPage{}, errUnexpectedShape
	}
	raw, present := m["data"]
	if !present || raw == nil {
		return ScreenerPage{}, nil
	}
	rows, ok := raw.([]any)
	if !ok {
		return ScreenerPage{}, errUnexpectedShape
	}

	page := ScreenerPage{Rows: len(rows)}
	for _, row := range rows {
		item, ok := asMap(row)
		if !ok {
			continue
		}
		attrs, ok := asMap(item["attributes"])
		if !ok {
			continue
		}
		if name, ok := nonEmptyString(attrs["name"]); ok {
			page.Names = append(page.Names, name)
			continue
		}
		var found bool
		if page.Names, found = appendStrings(page.Names, attrs["names"]); found {
			continue
		}
		p, ok := asMap(attrs["p"])
		if !ok {
			continue
		}
		if name, ok := nonEmptyString(p["name"]); ok {
			page.Names = append(page.Names, name)
			continue
		}
		page.Names, _ = appendStrings(page.Names, p["names"])
	}
	return page, nil
}

// ParseProfiles maps a get-profile response to profiles keyed by uppercase
// symbol. A lone profile object is keyed by its own id, or by the single
// requested symbol.
func ParseProfiles(v any, requested []string) (map[string]models.Profile, error) {
	section := dataSection(v)
	profiles := make(map[string]models.Profile)

	add := func(symbol string, entry map[string]any) error {
		p, err := normalizeProfile(entry)
		if err != nil {
			return fmt.Errorf("profile %s: %w", symbol, err)
		}
		p.Symbol = strings.ToUpper(symbol)
		profiles[p.Symbol] = p
		return nil
	}

	switch s := section.(type) {
	case map[string]any:
		if isProfileObject(s) {
			symbol := profileSymbol(s)
			if symbol == "" && len(requested) == 1 {
				symbol = requested[0]
			}
			if symbol == "" {
				return nil, errors.New("profile payload did not identify its symbol")
			}
			if err := add(symbol, s); err != nil {
				return nil, err
			}
			return profiles, nil
		}
		for symbol, raw := range s {
			if entry, ok := asMap(raw); ok {
				if err := add(symbol, entry); err != nil {
					return nil, err
				}
			}
		}
	case []any:
		for _, raw := range s {
			entry, ok := asMap(raw)
			if !ok {
				continue
			}
			symbol := profileSymbol(entry)
			if symbol == "" {
				if len(s) == 1 && len(requested) == 1 {
					symbol = requested[0]
				} else {
					continue
				}
			}
			if err := add(symbol, entry); err != nil {
				return nil, err
			}
		}
	default:
		return nil, errors.New("profile payload had an unexpected structure")
	}
	return profiles, nil
}

func isProfileObject(m map[string]any) bool {
	_, hasAttrs := m["attributes"]
	_, hasID := m["id"]
	return hasAttrs || hasID
}

func profileSymbol(entry map[string]any) string {
	for _, key := range []string{"id", "symbol", "ticker"} {
		switch v := entry[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func normalizeProfile(entry map[string]any) (models.Profile, error) {
	src := attributesOf(entry)

	var last any
	if daily, ok := asMap(src["lastDaily"]); ok && daily["last"] != nil {
		last = daily["last"]
	} else if src["last"] != nil {
		last = src["last"]
	} else if price, ok := asMap(src["price"]); ok {
		last = price["last"]
	}

	price, err := ParseDecimal(last)
	if err != nil {
		return models.Profile{}, err
	}
	marketCap, err := ParseDecimal(src["marketCap"])
	if err != nil {
		return models.Profile{}, err
	}
	return models.Profile{Price: price, MarketCap: marketCap}, nil
}

// ParseExpirations extracts expiration dates and ticker_id. Dates that are
// not MM/DD/YYYY are skipped.
func ParseExpirations(v any) models.Expirations {
	var exp models.Expirations
	var sources []map[string]any
	switch s := dataSection(v).(type) {
	case map[string]any:
		sources = append(sources, attributesOf(s))
	case []any:
		for _, raw := range s {
			if entry, ok := asMap(raw); ok {
				sources = append(sources, attributesOf(entry))
			}
		}
	}

	datesFound := false
	for _, src := range sources {
		if exp.TickerID == "" {
			switch id := src["ticker_id"].(type) {
			case json.Number:
				exp.TickerID = id.String()
			case string:
				exp.TickerID = id
			case float64:
				exp.TickerID = fmt.Sprintf("%.0f", id)
			}
		}
		if datesFound {
			continue
		}
		list, ok := src["dates"].([]any)
		if !ok {
			continue
		}
		datesFound = true
		for _, raw := range list {
			if raw == nil {
				continue
			}
			t, err := time.Parse(ExpirationLayout, strings.TrimSpace(fmt.Sprint(raw)))
			if err != nil {
				continue
			}
			exp.Dates = append(exp.Dates, models.DateOf(t))
		}
	}
	return exp
}

// ParseOptions extracts option rows from a list or an {"options": [...]}
// object. Rows without a numeric strike are skipped.
func ParseOptions(v any) ([]models.OptionQuote, error) {
	var rows []any
	switch s := v.(type) {
	case []any:
		rows = s
	case map[string]any:
		list, ok := s["options"].([]any)
		if !ok {
			return nil, errors.New("options data was not found in the API response")
		}
		rows = list
	default:
		return nil, errors.New("options data was not found in the API response")
	}

	quotes := make([]models.OptionQuote, 0, len(rows))
	for _, raw := range rows {
		row, ok := asMap(raw)
		if !ok {
			continue
		}
		strike, err := ParseDecimal(row["strike_price"])
		if err != nil || !strike.Valid {
			continue
		}
		bid, _ := ParseDecimal(row["bid"])
		ask, _ := ParseDecimal(row["ask"])
		q := models.OptionQuote{
			OptionType: strings.ToLower(fmt.Sprint(row["option_type"])),
			Strike:     strike.Decimal,
			Bid:        bid,
			Ask:        ask,
		}
		if s, ok := row["expiration_date"].(string); ok {
			q.ExpirationDate = s
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// ParseChart extracts closes from a get-chart response whose attributes are
// keyed by timestamp, sorted oldest first.
func ParseChart(v any) ([]models.PricePoint, error) {
	var attrs map[string]any
	switch s := dataSection(v).(type) {
	case map[string]any:
		attrs = attributesOf(s)
	case []any:
		if len(s) > 0 {
			if entry, ok := asMap(s[0]); ok {
				attrs = attributesOf(entry)
			}
		}
	}
	if attrs == nil {
		return nil, errors.New("chart payload had an unexpected structure")
	}

	points := make([]models.PricePoint, 0, len(attrs))
	for key, raw := range attrs {
		bar, ok := asMap(raw)
		if !ok {
			continue
		}
		c, err := ParseDecimal(bar["close"])
		if err != nil || !c.Valid {
			continue
		}
		f, _ := c.Decimal.Float64()
		points = append(points, models.PricePoint{Date: key, Close: f})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points, nil
}
