package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/optiscreen/pkg/models"
)

// Field level messages for request bodies.
const (
	msgInvalidString  = "Not a valid string."
	msgInvalidNumber  = "A valid number is required."
	msgInvalidInteger = "A valid integer is required."
	msgInvalidBool    = "Must be a valid boolean."
	msgInvalidDate    = "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
)

const maxBodyBytes = 10 << 20

// payload is a decoded JSON object body. Only keys present in the body are
// bound, which gives PATCH its partial semantics.
type payload map[string]json.RawMessage

func decodePayload(r *http.Request) (payload, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return payload{}, nil
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %v", err)
	}
	if p == nil {
		return nil, errors.New("invalid JSON body: expected an object")
	}
	return p, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// require records a message for every key missing from the body.
func (p payload) require(errs models.FieldErrors, keys ...string) {
	for _, k := range keys {
		if _, ok := p[k]; !ok {
			errs.Add(k, models.MsgRequired)
		}
	}
}

func (p payload) str(errs models.FieldErrors, key string, dst *string) {
	raw, ok := p[key]
	if !ok {
		return
	}
	if isNull(raw) {
		errs.Add(key, models.MsgNull)
		return
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		errs.Add(key, msgInvalidString)
		return
	}
	*dst = s
}

// scalar returns the unquoted text of a JSON number or string.
func scalar(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

func (p payload) decimal(errs models.FieldErrors, key string, spec models.DecimalSpec, dst *decimal.NullDecimal) {
	raw, ok := p[key]
	if !ok {
		return
	}
	if isNull(raw) {
		*dst = decimal.NullDecimal{}
		return
	}
	s, ok := scalar(raw)
	if !ok {
		errs.Add(key, msgInvalidNumber)
		return
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		errs.Add(key, msgInvalidNumber)
		return
	}
	if msg := spec.Check(d); msg != "" {
		errs.Add(key, msg)
		return
	}
	*dst = models.NewNullDecimal(d)
}

func (p payload) integer(errs models.FieldErrors, key string) (int64, bool, bool) {
	raw, ok := p[key]
	if !ok {
		return 0, false, false
	}
	if isNull(raw) {
		return 0, true, true
	}
	s, ok := scalar(raw)
	if !ok {
		errs.Add(key, msgInvalidInteger)
		return 0, false, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// 12.0 is accepted as 12.
		d, derr := decimal.NewFromString(s)
		if derr != nil || !d.IsInteger() {
			errs.Add(key, msgInvalidInteger)
			return 0, false, false
		}
		n = d.IntPart()
	}
	return n, false, true
}

func (p payload) int64Ptr(errs models.FieldErrors, key string, dst **int64) {
	n, null, ok := p.integer(errs, key)
	switch {
	case !ok:
	case null:
		*dst = nil
	default:
		*dst = &n
	}
}

func (p payload) intPtr(errs models.FieldErrors, key string, dst **int) {
	n, null, ok := p.integer(errs, key)
	switch {
	case !ok:
	case null:
		*dst = nil
	default:
		v := int(n)
		*dst = &v
	}
}

func (p payload) requiredInt64(errs models.FieldErrors, key string, dst *int64) {
	n, null, ok := p.integer(errs, key)
	switch {
	case !ok:
	case null:
		errs.Add(key, models.MsgNull)
	default:
		*dst = n
	}
}

func (p payload) requiredInt(errs models.FieldErrors, key string, dst *int) {
	var n int64
	p.requiredInt64(errs, key, &n)
	if _, ok := errs[key]; !ok {
		if _, present := p[key]; present {
			*dst = int(n)
		}
	}
}

func (p payload) float(errs models.FieldErrors, key string, dst **float64) {
	raw, ok := p[key]
	if !ok {
		return
	}
	if isNull(raw) {
		*dst = nil
		return
	}
	s, ok := scalar(raw)
	if !ok {
		errs.Add(key, msgInvalidNumber)
		return
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		errs.Add(key, msgInvalidNumber)
		return
	}
	*dst = &f
}

func (p payload) boolean(errs models.FieldErrors, key string, dst *bool) {
	raw, ok := p[key]
	if !ok {
		return
	}
	if isNull(raw) {
		errs.Add(key, models.MsgNull)
		return
	}
	s, ok := scalar(raw)
	if !ok {
		if err := json.Unmarshal(raw, dst); err != nil {
			errs.Add(key, msgInvalidBool)
		}
		return
	}
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		*dst = true
	case "false", "0", "no", "off":
		*dst = false
	default:
		errs.Add(key, msgInvalidBool)
	}
}

func (p payload) date(errs models.FieldErrors, key string, dst **models.Date) {
	raw, ok := p[key]
	if !ok {
		return
	}
	if isNull(raw) {
		*dst = nil
		return
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		errs.Add(key, msgInvalidDate)
		return
	}
	d, err := models.ParseDate(s)
	if err != nil {
		errs.Add(key, msgInvalidDate)
		return
	}
	*dst = &d
}

// rawJSON binds any JSON value. nullable controls whether null is accepted.
func (p payload) rawJSON(errs models.FieldErrors, key string, nullable bool, dst *json.RawMessage) {
	raw, ok := p[key]
	if !ok {
		return
	}
	if isNull(raw) && !nullable {
		errs.Add(key, models.MsgNull)
		return
	}
	*dst = append(json.RawMessage(nil), bytes.TrimSpace(raw)...)
}

// merge copies validation messages from err into errs. It returns err when
// err is not a validation error.
func merge(errs models.FieldErrors, err error) error {
	if err == nil {
		return nil
	}
	var fe models.FieldErrors
	if !errors.As(err, &fe) {
		return err
	}
	for k, v := range fe {
		errs.Add(k, v)
	}
	return nil
}
