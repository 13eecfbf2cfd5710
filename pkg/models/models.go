// Package models defines the records stored by optiscreen and the upstream
// market data shapes the commands work with.
package models

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time component.
type Date struct {
	time.Time
}

// NewDate returns the date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "YYYY-MM-DD".
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DecimalSpec is the precision of a fixed-point column.
type DecimalSpec struct {
	MaxDigits int
	Places    int32
}

// Fixed-point columns.
var (
	PriceSpec     = DecimalSpec{MaxDigits: 12, Places: 4}
	MarketCapSpec = DecimalSpec{MaxDigits: 20, Places: 2}
	OptValSpec    = DecimalSpec{MaxDigits: 10, Places: 2}
	RSISpec       = DecimalSpec{MaxDigits: 5, Places: 2}
	ROISpec       = DecimalSpec{MaxDigits: 10, Places: 2}
	DeltaSpec     = DecimalSpec{MaxDigits: 5, Places: 2}
)

// Quantize rounds half-up (away from zero) to the spec's places.
func (s DecimalSpec) Quantize(d decimal.NullDecimal) decimal.NullDecimal {
	if !d.Valid {
		return d
	}
	return decimal.NullDecimal{Decimal: d.Decimal.Round(s.Places), Valid: true}
}

// Format renders the value with exactly the spec's places.
func (s DecimalSpec) Format(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	out := d.Decimal.StringFixed(s.Places)
	return &out
}

// Check returns a validation message when d does not fit the column.
func (s DecimalSpec) Check(d decimal.Decimal) string {
	digits := len(new(big.Int).Abs(d.Coefficient()).String())
	exp := d.Exponent()

	var places, whole int
	if exp < 0 {
		places = int(-exp)
		whole = digits - places
		if whole < 0 {
			whole = 0
		}
	} else {
		whole = digits + int(exp)
		if d.IsZero() {
			whole = 1
		}
	}

	switch {
	case places > int(s.Places):
		return fmt.Sprintf("Ensure that there are no more than %d decimal places.", s.Places)
	case whole > s.MaxDigits-int(s.Places):
		return fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", s.MaxDigits-int(s.Places))
	}
	return ""
}

// NewNullDecimal wraps a decimal as a valid NullDecimal.
func NewNullDecimal(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// FieldErrors maps a field name to its validation message.
type FieldErrors map[string]string

// Add records msg for field unless the field already has one.
func (e FieldErrors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Err returns nil when no errors were recorded.
func (e FieldErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validation messages shared by the record types.
const (
	MsgRequired = "This field is required."
	MsgBlank    = "This field may not be blank."
	MsgNull     = "This field may not be null."
)

func maxLength(n int) string {
	return fmt.Sprintf("Ensure this field has no more than %d characters.", n)
}
