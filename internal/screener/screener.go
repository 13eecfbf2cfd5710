// Package screener turns the Seeking Alpha screener list into stored filter
// specs and builds the request payloads used to fetch screener results.
package screener

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/seenimoa/optiscreen/internal/store"
	"github.com/seenimoa/optiscreen/pkg/models"
)

// CustomDescription describes the always-present custom screener type.
const CustomDescription = "Custom filter payload applied to every fetch."

// Screener is one entry of the upstream screener list.
type Screener struct {
	Name        string
	Description string
	Filters     []store.FilterSpec
}

// Labels returns the filter labels in order.
func (s Screener) Labels() []string {
	labels := make([]string, len(s.Filters))
	for i, f := range s.Filters {
		labels[i] = f.Label
	}
	return labels
}

// Format renders the screener name followed by its filter labels.
func (s Screener) Format() string {
	var sb strings.Builder
	sb.WriteString(s.Name)
	for _, label := range s.Labels() {
		if label == "" {
			continue
		}
		sb.WriteString("\n  - ")
		sb.WriteString(label)
	}
	return sb.String()
}

// ParseList reads the decoded /screeners/list response.
func ParseList(v any) ([]Screener, error) {
	root, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected payload structure: expected a JSON object")
	}
	data, ok := root["data"].([]any)
	if !ok {
		if root["data"] == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("unexpected payload structure: 'data' is not a list")
	}

	screeners := make([]Screener, 0, len(data))
	for i, item := range data {
		attrs, err := attributesOf(item, i)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSpace(pyStr(attrs["name"]))
		filters, err := extractFilters(attrs, i, name)
		if err != nil {
			return nil, err
		}
		screeners = append(screeners, Screener{
			Name:        name,
			Description: extractDescription(attrs),
			Filters:     filters,
		})
	}
	return screeners, nil
}

// CustomScreener returns the custom screener type with its single filter.
func CustomScreener() (Screener, error) {
	payload, err := json.Marshal(CustomFilterPayload())
	if err != nil {
		return Screener{}, fmt.Errorf("encode custom payload: %w", err)
	}
	return Screener{
		Name:        models.CustomScreenerFilter,
		Description: CustomDescription,
		Filters: []store.FilterSpec{
			{Label: models.CustomScreenerFilter, Payload: payload},
		},
	}, nil
}

func attributesOf(item any, index int) (map[string]any, error) {
	m, _ := item.(map[string]any)
	attrs, ok := m["attributes"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected payload structure: missing 'attributes.name' at index %d", index)
	}
	if _, ok := attrs["name"]; !ok {
		return nil, fmt.Errorf("unexpected payload structure: missing 'attributes.name' at index %d", index)
	}
	return attrs, nil
}

func extractDescription(attrs map[string]any) string {
	for _, key := range []string{"description", "shortDescription", "summary"} {
		switch v := attrs[key].(type) {
		case nil, []any, map[string]any:
			continue
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		default:
			return pyStr(v)
		}
	}
	return ""
}

func extractFilters(attrs map[string]any, index int, screener string) ([]store.FilterSpec, error) {
	var items []any
	switch raw := attrs["filters"].(type) {
	case nil:
		return nil, nil
	case map[string]any:
		if len(raw) == 0 {
			return nil, nil
		}
		items = []any{raw}
	case []any:
		items = raw
	default:
		return nil, fmt.Errorf("unexpected payload structure: 'attributes.filters' must be a list or dict at index %d", index)
	}

	quant := screener == models.StocksByQuant
	var specs []store.FilterSpec
	for _, item := range items {
		label, payload, ok := normalizeFilter(item, quant)
		if !ok {
			continue
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode filter %q: %w", label, err)
		}
		specs = append(specs, store.FilterSpec{Label: label, Payload: raw})
	}
	return specs, nil
}

// normalizeFilter returns the label and payload of a filter item, or false
// when the item should be skipped.
func normalizeFilter(item any, quant bool) (string, any, bool) {
	if quant {
		item = TrimQuantRating(item)
	}
	switch v := item.(type) {
	case map[string]any:
		clean := sanitizeFilter(v, quant)
		if len(clean) == 0 {
			return "", nil, false
		}
		return dictLabel(clean), clean, true
	case []any:
		return pyJSON(v), v, true
	case nil:
		return "", nil, false
	default:
		label := pyStr(v)
		if label == "" {
			return "", nil, false
		}
		return label, v, true
	}
}

func dictLabel(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + pyStr(m[k])
	}
	return strings.Join(parts, ", ")
}

func isIndustryIDKey(key string) bool {
	return strings.ReplaceAll(strings.ToLower(key), "_", "") == "industryid"
}

// sanitizeFilter drops industry-id keys for the quant screener and renames
// them to industry_id everywhere else.
func sanitizeFilter(m map[string]any, quant bool) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if isIndustryIDKey(k) {
			if quant {
				continue
			}
			k = "industry_id"
		}
		out[k] = v
	}
	return out
}

// StripIndustryIDs removes industry-id keys at every depth.
func StripIndustryIDs(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			if isIndustryIDKey(k) {
				continue
			}
			out[k] = StripIndustryIDs(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = StripIndustryIDs(val)
		}
		return out
	default:
		return v
	}
}

var allowedQuantRatings = map[string]bool{"strong buy": true, "buy": true}

// TrimQuantRating keeps only buy and strong buy entries of every
// quant_rating value found in v.
func TrimQuantRating(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			if k == "quant_rating" {
				out[k] = trimQuantEntries(val)
			} else {
				out[k] = TrimQuantRating(val)
			}
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = TrimQuantRating(val)
		}
		return out
	default:
		return v
	}
}

func trimQuantEntries(v any) any {
	switch x := v.(type) {
	case []any:
		out := []any{}
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				continue
			}
			norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", " ")
			if allowedQuantRatings[norm] {
				out = append(out, s)
			}
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = trimQuantEntries(val)
		}
		return out
	default:
		return v
	}
}
