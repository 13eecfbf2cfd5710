// Package providers builds the upstream clients from configuration and
// registers them with a provider registry.
package providers

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/optiscreen/internal/config"
	"github.com/seenimoa/optiscreen/internal/provider"
	"github.com/seenimoa/optiscreen/internal/providers/cboe"
	"github.com/seenimoa/optiscreen/internal/providers/seekingalpha"
	"github.com/seenimoa/optiscreen/internal/providers/treasury"
)

// Clients holds one client per upstream service.
type Clients struct {
	SeekingAlpha *seekingalpha.Client
	Treasury     *treasury.Client
	Cboe         *cboe.Client
}

// NewClients creates the upstream clients described by cfg.
func NewClients(cfg *config.Config, log zerolog.Logger) *Clients {
	timeout := time.Duration(cfg.Fetch.Timeout) * time.Second
	return &Clients{
		SeekingAlpha: seekingalpha.NewClient(seekingalpha.Config{
			BaseURL:   cfg.RapidAPI.BaseURL,
			Host:      cfg.RapidAPI.Host,
			Key:       cfg.RapidAPI.Key,
			RateLimit: cfg.RapidAPI.RateLimit,
			Burst:     cfg.RapidAPI.Burst,
			Timeout:   timeout,
		}, log),
		Treasury: treasury.NewClient(cfg.Treasury.BaseURL, timeout,
			time.Duration(cfg.Treasury.CacheTTL)*time.Second),
		Cboe: cboe.NewClient(cfg.Cboe.WeekliesURL, timeout,
			time.Duration(cfg.Cboe.CacheTTL)*time.Second),
	}
}

// RegisterAllTo registers every provider with reg. Seeking Alpha is only
// registered when a RapidAPI key is configured.
func RegisterAllTo(reg *provider.Registry, clients *Clients, rapidAPIKey string) error {
	tr := treasury.New(clients.Treasury)
	if err := tr.Init(nil); err != nil {
		return err
	}
	if err := reg.Register(tr); err != nil {
		return err
	}

	cb := cboe.New(clients.Cboe)
	if err := cb.Init(nil); err != nil {
		return err
	}
	if err := reg.Register(cb); err != nil {
		return err
	}

	if rapidAPIKey != "" {
		sa := seekingalpha.New(clients.SeekingAlpha)
		if err := sa.Init(map[string]string{"api_key": rapidAPIKey}); err != nil {
			return err
		}
		if err := reg.Register(sa); err != nil {
			return err
		}
	}
	return nil
}
