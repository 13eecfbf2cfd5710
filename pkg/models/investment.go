package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Options suitability values.
const (
	SuitabilityUnknown    = -1
	SuitabilityUnsuitable = 0
	SuitabilitySuitable   = 1
)

// Screener names with special handling.
const (
	StocksByQuant        = "Stocks by Quant"
	CustomScreenerFilter = "Custom screener filter"
)

// MaxTickerLength bounds Investment.Ticker. Screener results may store
// company names rather than symbols.
const MaxTickerLength = 255

// Investment is a tracked security and the metrics computed for it.
type Investment struct {
	ID                 int64               `json:"id"`
	Ticker             string              `json:"ticker"`
	Category           string              `json:"category"`
	ScreenerType       string              `json:"screener_type"`
	Price              decimal.NullDecimal `json:"price"`
	Volume             *int64              `json:"volume"`
	MarketCap          decimal.NullDecimal `json:"market_cap"`
	OptionsSuitability *int                `json:"options_suitability"`
	OptionExp          *Date               `json:"option_exp"`
	Description        string              `json:"description"`
	OptVal             decimal.NullDecimal `json:"opt_val"`
	RSI                decimal.NullDecimal `json:"rsi"`
	ROI                decimal.NullDecimal `json:"roi"`
	Delta              decimal.NullDecimal `json:"delta"`
	WeeklyOptions      bool                `json:"weekly_options"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// MarshalJSON renders decimal fields as fixed-point strings, e.g. "15.4200".
func (i Investment) MarshalJSON() ([]byte, error) {
	type alias Investment
	return json.Marshal(struct {
		alias
		Price     *string `json:"price"`
		MarketCap *string `json:"market_cap"`
		OptVal    *string `json:"opt_val"`
		RSI       *string `json:"rsi"`
		ROI       *string `json:"roi"`
		Delta     *string `json:"delta"`
	}{
		alias:     alias(i),
		Price:     PriceSpec.Format(i.Price),
		MarketCap: MarketCapSpec.Format(i.MarketCap),
		OptVal:    OptValSpec.Format(i.OptVal),
		RSI:       RSISpec.Format(i.RSI),
		ROI:       ROISpec.Format(i.ROI),
		Delta:     DeltaSpec.Format(i.Delta),
	})
}

// Normalize trims and uppercases the ticker and quantizes decimal fields.
func (i *Investment) Normalize() {
	i.Ticker = strings.ToUpper(strings.TrimSpace(i.Ticker))
	i.Category = strings.TrimSpace(i.Category)
	i.ScreenerType = strings.TrimSpace(i.ScreenerType)
	i.Quantize()
}

// Quantize rounds every decimal field to its column's places.
func (i *Investment) Quantize() {
	i.Price = PriceSpec.Quantize(i.Price)
	i.MarketCap = MarketCapSpec.Quantize(i.MarketCap)
	i.OptVal = OptValSpec.Quantize(i.OptVal)
	i.RSI = RSISpec.Quantize(i.RSI)
	i.ROI = ROISpec.Quantize(i.ROI)
	i.Delta = DeltaSpec.Quantize(i.Delta)
}

// Validate checks the fields a client may set.
func (i *Investment) Validate() error {
	errs := FieldErrors{}
	switch {
	case i.Ticker == "":
		errs.Add("ticker", "Ticker cannot be empty.")
	case len(i.Ticker) > MaxTickerLength:
		errs.Add("ticker", maxLength(MaxTickerLength))
	}
	if i.Category == "" {
		errs.Add("category", MsgBlank)
	}
	if s := i.OptionsSuitability; s != nil && (*s < SuitabilityUnknown || *s > SuitabilitySuitable) {
		errs.Add("options_suitability", fmt.Sprintf("\"%d\" is not a valid choice.", *s))
	}
	return errs.Err()
}

// Suitability returns the stored suitability or SuitabilityUnknown.
func (i *Investment) Suitability() int {
	if i.OptionsSuitability == nil {
		return SuitabilityUnknown
	}
	return *i.OptionsSuitability
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
