package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Statement types requested from the financials endpoint.
const (
	StatementBalanceSheet   = "balance-sheet"
	StatementIncome         = "income-statement"
	StatementCashFlow       = "cash-flow-statement"
	DefaultTargetCurrency   = "USD"
	DefaultPeriodType       = "annual"
	MaxSymbolLength         = 16
	MaxRatingLength         = 16
	MaxFinancialFieldLength = 32
)

// FinancialStatement is one raw upstream statement payload.
type FinancialStatement struct {
	ID             int64           `json:"id"`
	Symbol         string          `json:"symbol"`
	TargetCurrency string          `json:"target_currency"`
	PeriodType     string          `json:"period_type"`
	StatementType  string          `json:"statement_type"`
	Payload        json.RawMessage `json:"payload"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Normalize applies the casing used by the unique key.
func (f *FinancialStatement) Normalize() {
	f.Symbol = strings.ToUpper(strings.TrimSpace(f.Symbol))
	f.TargetCurrency = strings.ToUpper(strings.TrimSpace(f.TargetCurrency))
	f.PeriodType = strings.ToLower(strings.TrimSpace(f.PeriodType))
	f.StatementType = strings.TrimSpace(f.StatementType)
	if len(f.Payload) == 0 {
		f.Payload = json.RawMessage("[]")
	}
}

// Validate checks the key fields and that the payload is a JSON list.
func (f *FinancialStatement) Validate() error {
	errs := FieldErrors{}
	switch {
	case f.Symbol == "":
		errs.Add("symbol", "Symbol cannot be empty.")
	case len(f.Symbol) > MaxSymbolLength:
		errs.Add("symbol", maxLength(MaxSymbolLength))
	}
	for field, v := range map[string]string{
		"target_currency": f.TargetCurrency,
		"period_type":     f.PeriodType,
		"statement_type":  f.StatementType,
	} {
		switch {
		case v == "":
			errs.Add(field, MsgBlank)
		case len(v) > MaxFinancialFieldLength:
			errs.Add(field, maxLength(MaxFinancialFieldLength))
		}
	}
	if !json.Valid(f.Payload) || !bytes.HasPrefix(bytes.TrimSpace(f.Payload), []byte("[")) {
		errs.Add("payload", "Payload must be a JSON list.")
	}
	return errs.Err()
}

// DueDiligenceReport is a stored AI-generated analysis.
type DueDiligenceReport struct {
	ID            int64           `json:"id"`
	Symbol        string          `json:"symbol"`
	Rating        string          `json:"rating"`
	Confidence    *float64        `json:"confidence"`
	ModelName     string          `json:"model_name"`
	Report        json.RawMessage `json:"report"`
	FinancialData json.RawMessage `json:"financial_data"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Normalize uppercases the symbol and rating.
func (r *DueDiligenceReport) Normalize() {
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
	r.Rating = strings.ToUpper(strings.TrimSpace(r.Rating))
	if len(r.Report) == 0 {
		r.Report = json.RawMessage("{}")
	}
	if len(r.FinancialData) == 0 {
		r.FinancialData = json.RawMessage("{}")
	}
}

// Validate checks symbol, rating and JSON fields.
func (r *DueDiligenceReport) Validate() error {
	errs := FieldErrors{}
	switch {
	case r.Symbol == "":
		errs.Add("symbol", "Symbol cannot be empty.")
	case len(r.Symbol) > MaxSymbolLength:
		errs.Add("symbol", maxLength(MaxSymbolLength))
	}
	if len(r.Rating) > MaxRatingLength {
		errs.Add("rating", maxLength(MaxRatingLength))
	}
	if !json.Valid(r.Report) {
		errs.Add("report", "Value must be valid JSON.")
	}
	if !json.Valid(r.FinancialData) {
		errs.Add("financial_data", "Value must be valid JSON.")
	}
	return errs.Err()
}
