package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry is a thread-safe set of providers indexed by name and by the
// model types they serve.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	modelIdx  map[ModelType][]string // model → provider names, registration order
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		modelIdx:  make(map[ModelType][]string),
	}
}

// Register adds p. Call p.Init first. A provider registered twice under the
// same name replaces the earlier one.
func (r *Registry) Register(p Provider) error {
	info := p.Info()
	if info.Name == "" {
		return fmt.Errorf("provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[info.Name] = p
	for _, model := range p.SupportedModels() {
		if !contains(r.modelIdx[model], info.Name) {
			r.modelIdx[model] = append(r.modelIdx[model], info.Name)
		}
	}
	return nil
}

// Get returns the provider registered as name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	return p, nil
}

// List returns info about all registered providers, sorted by name.
func (r *Registry) List() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ProviderInfo, 0, len(r.providers))
	for _, p := range r.providers {
		infos = append(infos, p.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// ProvidersFor returns the names of providers serving model.
func (r *Registry) ProvidersFor(model ModelType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.modelIdx[model]...)
}

// Fetch runs the fetcher for model on the provider named in
// params["provider"], or on the first provider serving model.
func (r *Registry) Fetch(ctx context.Context, model ModelType, params QueryParams) (*FetchResult, error) {
	name := params[ParamProvider]

	r.mu.RLock()
	if name == "" && len(r.modelIdx[model]) > 0 {
		name = r.modelIdx[model][0]
	}
	p, ok := r.providers[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	fetcher := p.Fetcher(model)
	if fetcher == nil {
		return nil, &ErrModelNotSupported{Provider: name, Model: model}
	}
	if err := ValidateParams(params, fetcher.RequiredParams()); err != nil {
		return nil, err
	}

	result, err := fetcher.Fetch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("provider %q fetch %s: %w", name, model, err)
	}
	result.Provider = name
	result.Model = model
	if result.FetchedAt.IsZero() {
		result.FetchedAt = time.Now()
	}
	return result, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
