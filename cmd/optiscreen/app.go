package main

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/optiscreen/internal/agent"
	"github.com/seenimoa/optiscreen/internal/apiclient"
	"github.com/seenimoa/optiscreen/internal/config"
	"github.com/seenimoa/optiscreen/internal/database"
	"github.com/seenimoa/optiscreen/internal/llm"
	"github.com/seenimoa/optiscreen/internal/provider"
	"github.com/seenimoa/optiscreen/internal/providers"
	"github.com/seenimoa/optiscreen/internal/store"
	"github.com/seenimoa/optiscreen/internal/tasks"
)

var (
	errNoRapidAPIKey = errors.New("rapidapi key is not configured (set OPTISCREEN_RAPIDAPI_KEY or RAPIDAPI_KEY)")
	errNoOpenAIKey   = errors.New("openai key is not configured (set OPTISCREEN_LLM_OPENAI_KEY or OPENAI_API_KEY)")
)

// app builds the command dependencies on first use so that commands only
// open what they need.
type app struct {
	cfg *config.Config
	log zerolog.Logger

	mu      sync.Mutex
	db      *database.DB
	store   *store.Store
	clients *providers.Clients
}

func newApp(cfg *config.Config, log zerolog.Logger) *app {
	return &app{cfg: cfg, log: log}
}

func (a *app) timeout() time.Duration {
	if a.cfg.Fetch.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(a.cfg.Fetch.Timeout) * time.Second
}

// Store opens and migrates the database once.
func (a *app) Store(ctx context.Context) (*store.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store != nil {
		return a.store, nil
	}
	db, err := database.Open(ctx, database.Config{
		Path:    a.cfg.Database.Path,
		Profile: database.Profile(a.cfg.Database.Profile),
	})
	if err != nil {
		return nil, err
	}
	a.db = db
	a.store = store.New(db.Conn(), a.log)
	return a.store, nil
}

// Clients returns the upstream clients, created once so that one RapidAPI
// call counter covers the whole run.
func (a *app) Clients() *providers.Clients {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.clients == nil {
		a.clients = providers.NewClients(a.cfg, a.log)
	}
	return a.clients
}

// API returns a client for this service's REST API. An empty baseURL uses
// api.base_url.
func (a *app) API(baseURL string) *apiclient.Client {
	if baseURL == "" {
		baseURL = a.cfg.API.BaseURL
	}
	return apiclient.New(baseURL, a.timeout())
}

// Runner wires the task runner. needsKey rejects runs that would only fail
// upstream without a RapidAPI key.
func (a *app) Runner(ctx context.Context, out, errOut io.Writer, needsKey bool) (*tasks.Runner, error) {
	if needsKey && a.cfg.RapidAPI.Key == "" {
		return nil, errNoRapidAPIKey
	}
	st, err := a.Store(ctx)
	if err != nil {
		return nil, err
	}
	c := a.Clients()
	return &tasks.Runner{
		Store:        st,
		SeekingAlpha: c.SeekingAlpha,
		Treasury:     c.Treasury,
		Cboe:         c.Cboe,
		API:          a.API(""),
		Fetch:        a.cfg.Fetch,
		Log:          a.log.With().Str("component", "tasks").Logger(),
		Out:          out,
		Err:          errOut,
	}, nil
}

// Registry registers every upstream provider. Seeking Alpha is left out
// without a RapidAPI key.
func (a *app) Registry() (*provider.Registry, error) {
	reg := provider.NewRegistry()
	if err := providers.RegisterAllTo(reg, a.Clients(), a.cfg.RapidAPI.Key); err != nil {
		return nil, err
	}
	return reg, nil
}

// Agent builds the due-diligence agent against the REST API at baseURL.
func (a *app) Agent(baseURL string, withNews bool) (*agent.DDAgent, error) {
	if a.cfg.LLM.OpenAIKey == "" {
		return nil, errNoOpenAIKey
	}
	model, err := llm.NewOpenAIProvider(a.cfg.LLM.OpenAIKey,
		llm.WithOpenAIBaseURL(a.cfg.LLM.BaseURL),
		llm.WithOpenAIModel(a.cfg.LLM.Model),
		llm.WithOpenAIDefaults(a.cfg.LLM.Temperature, a.cfg.LLM.MaxTokens),
	)
	if err != nil {
		return nil, err
	}
	dd := &agent.DDAgent{
		Statements: a.API(baseURL),
		Model:      model,
		Log:        a.log.With().Str("component", "agent").Logger(),
	}
	if withNews {
		dd.News = agent.NewFeed(a.cfg.Agent.NewsFeedURL, a.cfg.Agent.MaxHeadlines, a.timeout())
	}
	return dd, nil
}

// Close releases the database.
func (a *app) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn().Err(err).Msg("closing database")
		}
		a.db, a.store = nil, nil
	}
}
