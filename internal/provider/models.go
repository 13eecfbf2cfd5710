package provider

import "strings"

// ModelType names a kind of upstream data a fetcher returns.
type ModelType string

// Seeking Alpha
const (
	ModelScreenerList      ModelType = "ScreenerList"
	ModelScreenerResults   ModelType = "ScreenerResults"
	ModelSymbolProfile     ModelType = "SymbolProfile"
	ModelOptionExpirations ModelType = "OptionExpirations"
	ModelOptionsChain      ModelType = "OptionsChain"
	ModelFinancials        ModelType = "Financials"
	ModelPriceChart        ModelType = "PriceChart"
)

// Treasury and CBOE
const (
	ModelTreasuryRate  ModelType = "TreasuryRate"
	ModelWeeklyOptions ModelType = "WeeklyOptions"
)

// AllModelTypes returns every known model type.
func AllModelTypes() []ModelType {
	return []ModelType{
		ModelScreenerList,
		ModelScreenerResults,
		ModelSymbolProfile,
		ModelOptionExpirations,
		ModelOptionsChain,
		ModelFinancials,
		ModelPriceChart,
		ModelTreasuryRate,
		ModelWeeklyOptions,
	}
}

// ParseModelType matches s case-insensitively against the known model types.
func ParseModelType(s string) (ModelType, bool) {
	for _, m := range AllModelTypes() {
		if strings.EqualFold(string(m), s) {
			return m, true
		}
	}
	return "", false
}
