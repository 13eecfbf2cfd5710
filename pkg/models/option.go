package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// OptionQuote is a single row of an options chain.
type OptionQuote struct {
	OptionType     string              `json:"option_type"` // "put" or "call"
	Strike         decimal.Decimal     `json:"strike_price"`
	Bid            decimal.NullDecimal `json:"bid"`
	Ask            decimal.NullDecimal `json:"ask"`
	ExpirationDate string              `json:"expiration_date,omitempty"`
}

// IsPut reports whether the quote is a put.
func (q OptionQuote) IsPut() bool {
	return strings.EqualFold(strings.TrimSpace(q.OptionType), "put")
}

// Expirations is the option expiration calendar of a symbol.
type Expirations struct {
	Symbol   string `json:"symbol"`
	TickerID string `json:"ticker_id"`
	Dates    []Date `json:"dates"`
}

// Profile is the subset of a symbol profile the commands persist.
type Profile struct {
	Symbol    string              `json:"symbol"`
	Price     decimal.NullDecimal `json:"price"`
	MarketCap decimal.NullDecimal `json:"market_cap"`
}

// PricePoint is one daily close of a price chart.
type PricePoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}
