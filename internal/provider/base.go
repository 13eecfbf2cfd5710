package provider

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/seenimoa/optiscreen/internal/infra"
)

// BaseFetcher carries the metadata every fetcher reports plus an optional
// cache and rate limiter. Embed it in concrete fetchers.
type BaseFetcher struct {
	model       ModelType
	description string
	required    []string
	optional    []string
	cache       *infra.Cache
	limiter     *infra.RateLimiter
}

// FetcherOption customises a BaseFetcher.
type FetcherOption func(*BaseFetcher)

// WithCache caches results for ttl.
func WithCache(ttl time.Duration) FetcherOption {
	return func(b *BaseFetcher) { b.cache = infra.NewCache(ttl) }
}

// WithLimiter shares rl with other fetchers of the same upstream.
func WithLimiter(rl *infra.RateLimiter) FetcherOption {
	return func(b *BaseFetcher) { b.limiter = rl }
}

// NewBaseFetcher creates a base fetcher. Without options it neither caches
// nor rate limits.
func NewBaseFetcher(model ModelType, desc string, required, optional []string, opts ...FetcherOption) BaseFetcher {
	b := BaseFetcher{
		model:       model,
		description: desc,
		required:    required,
		optional:    optional,
	}
	for _, o := range opts {
		o(&b)
	}
	return b
}

func (b *BaseFetcher) ModelType() ModelType     { return b.model }
func (b *BaseFetcher) Description() string      { return b.description }
func (b *BaseFetcher) RequiredParams() []string { return b.required }
func (b *BaseFetcher) OptionalParams() []string { return b.optional }

// CacheGet retrieves a cached value. It always misses without WithCache.
func (b *BaseFetcher) CacheGet(key string) (any, bool) {
	if b.cache == nil {
		return nil, false
	}
	return b.cache.Get(key)
}

// CacheSet stores a value when caching is enabled.
func (b *BaseFetcher) CacheSet(key string, value any) {
	if b.cache != nil {
		b.cache.Set(key, value)
	}
}

// RateLimit waits for a request slot.
func (b *BaseFetcher) RateLimit(ctx context.Context) error {
	if b.limiter == nil {
		return ctx.Err()
	}
	return b.limiter.Wait(ctx)
}

// CacheKey builds a deterministic key from model and params.
func CacheKey(model ModelType, params QueryParams) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k != ParamProvider {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(string(model))
	for _, k := range keys {
		sb.WriteString(":" + k + "=" + params[k])
	}
	return sb.String()
}

// BaseProvider implements the bookkeeping half of Provider. Embed it in
// concrete providers and override Ping.
type BaseProvider struct {
	info        ProviderInfo
	fetchers    map[ModelType]Fetcher
	credentials map[string]string
}

// NewBaseProvider creates a base provider.
func NewBaseProvider(name, description, website string, creds []ProviderCredential) BaseProvider {
	return BaseProvider{
		info: ProviderInfo{
			Name:        name,
			Description: description,
			Website:     website,
			Credentials: creds,
		},
		fetchers:    make(map[ModelType]Fetcher),
		credentials: make(map[string]string),
	}
}

func (bp *BaseProvider) Info() ProviderInfo { return bp.info }

// Init checks that every required credential is present.
func (bp *BaseProvider) Init(credentials map[string]string) error {
	for _, cred := range bp.info.Credentials {
		if cred.Required && credentials[cred.Name] == "" {
			return &ErrInvalidCredentials{
				Provider: bp.info.Name,
				Detail:   "missing required credential: " + cred.Name,
			}
		}
	}
	if credentials != nil {
		bp.credentials = credentials
	}
	return nil
}

func (bp *BaseProvider) Fetcher(model ModelType) Fetcher {
	return bp.fetchers[model]
}

// SupportedModels returns the registered model types in sorted order.
func (bp *BaseProvider) SupportedModels() []ModelType {
	models := make([]ModelType, 0, len(bp.fetchers))
	for m := range bp.fetchers {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i] < models[j] })
	return models
}

func (bp *BaseProvider) Ping(ctx context.Context) error {
	return nil
}

// RegisterFetcher adds f to this provider.
func (bp *BaseProvider) RegisterFetcher(f Fetcher) {
	bp.fetchers[f.ModelType()] = f
	bp.info.Models = bp.SupportedModels()
}

// Credential returns a stored credential value.
func (bp *BaseProvider) Credential(name string) string {
	return bp.credentials[name]
}
