// Package provider defines the upstream data-provider abstraction: a Provider
// exposes one Fetcher per model type, and a Registry routes ad-hoc queries
// to them by name.
package provider

import (
	"context"
	"fmt"
	"time"
)

// ProviderCredential describes a credential a provider needs.
type ProviderCredential struct {
	Name        string `json:"name"`        // e.g. "api_key"
	Description string `json:"description"` // e.g. "RapidAPI key for seeking-alpha.p.rapidapi.com"
	Required    bool   `json:"required"`
	EnvVar      string `json:"env_var"`
}

// ProviderInfo holds metadata about a registered provider.
type ProviderInfo struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Website     string               `json:"website"`
	Credentials []ProviderCredential `json:"credentials"`
	Models      []ModelType          `json:"models"`
}

// Provider is implemented by every upstream data source.
type Provider interface {
	Info() ProviderInfo

	// Init validates and stores credentials. Called once before Register.
	Init(credentials map[string]string) error

	// Fetcher returns the fetcher for model, or nil if unsupported.
	Fetcher(model ModelType) Fetcher

	SupportedModels() []ModelType

	// Ping verifies connectivity and credentials.
	Ping(ctx context.Context) error
}

// QueryParams is the generic parameter map passed to fetchers.
type QueryParams map[string]string

// Common query parameter keys.
const (
	ParamSymbol         = "symbol"
	ParamSymbols        = "symbols"
	ParamTickerID       = "ticker_id"
	ParamExpirationDate = "expiration_date"
	ParamPage           = "page"
	ParamPerPage        = "per_page"
	ParamType           = "type"
	ParamPayload        = "payload" // raw JSON body
	ParamPeriod         = "period"
	ParamPeriodType     = "period_type"
	ParamStatementType  = "statement_type"
	ParamCurrency       = "target_currency"
	ParamProvider       = "provider"
)

// FetchResult wraps fetched data with metadata.
type FetchResult struct {
	Provider  string    `json:"provider"`
	Model     ModelType `json:"model"`
	Data      any       `json:"data"`
	FetchedAt time.Time `json:"fetched_at"`
	Cached    bool      `json:"cached"`
}

// Fetcher fetches a single model type.
type Fetcher interface {
	ModelType() ModelType
	Description() string
	RequiredParams() []string
	OptionalParams() []string
	Fetch(ctx context.Context, params QueryParams) (*FetchResult, error)
}

// ErrProviderNotFound is returned when a requested provider is not registered.
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return fmt.Sprintf("provider %q not found", e.Name)
}

// ErrModelNotSupported is returned when a provider has no fetcher for a model.
type ErrModelNotSupported struct {
	Provider string
	Model    ModelType
}

func (e *ErrModelNotSupported) Error() string {
	return fmt.Sprintf("provider %q does not support model %q", e.Provider, e.Model)
}

// ErrMissingParam is returned when a required query parameter is missing.
type ErrMissingParam struct {
	Param string
}

func (e *ErrMissingParam) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Param)
}

// ErrInvalidCredentials is returned when provider credentials are missing or invalid.
type ErrInvalidCredentials struct {
	Provider string
	Detail   string
}

func (e *ErrInvalidCredentials) Error() string {
	return fmt.Sprintf("invalid credentials for provider %q: %s", e.Provider, e.Detail)
}

// ValidateParams checks that every required key is present and non-empty.
func ValidateParams(params QueryParams, required []string) error {
	for _, key := range required {
		if v, ok := params[key]; !ok || v == "" {
			return &ErrMissingParam{Param: key}
		}
	}
	return nil
}
