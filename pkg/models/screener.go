package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ScreenerType is a named upstream screener.
type ScreenerType struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Filters     []ScreenerFilter `json:"filters"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Normalize trims the name.
func (s *ScreenerType) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
}

// Validate checks the name.
func (s *ScreenerType) Validate() error {
	errs := FieldErrors{}
	switch {
	case s.Name == "":
		errs.Add("name", "Name cannot be empty.")
	case len(s.Name) > 255:
		errs.Add("name", maxLength(255))
	}
	return errs.Err()
}

// ScreenerFilter is one JSON filter payload of a screener.
type ScreenerFilter struct {
	ID             int64           `json:"id"`
	ScreenerTypeID int64           `json:"screener_type"`
	Label          string          `json:"label"`
	Payload        json.RawMessage `json:"payload"`
	DisplayOrder   int             `json:"display_order"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Normalize trims the label.
func (f *ScreenerFilter) Normalize() {
	f.Label = strings.TrimSpace(f.Label)
	if len(f.Payload) == 0 {
		f.Payload = json.RawMessage("null")
	}
}

// Validate checks the label and payload.
func (f *ScreenerFilter) Validate() error {
	errs := FieldErrors{}
	if f.ScreenerTypeID <= 0 {
		errs.Add("screener_type", MsgRequired)
	}
	switch {
	case f.Label == "":
		errs.Add("label", "Label cannot be empty.")
	case len(f.Label) > 255:
		errs.Add("label", maxLength(255))
	}
	if !json.Valid(f.Payload) {
		errs.Add("payload", "Value must be valid JSON.")
	}
	return errs.Err()
}
