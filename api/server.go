// Package api serves the optiscreen REST API: CRUD over investments,
// screeners, financial statements, due-diligence reports and the CBOE
// weeklies list, plus health, key status and a websocket of job events.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/seenimoa/optiscreen/internal/config"
	"github.com/seenimoa/optiscreen/internal/store"
)

const (
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 15 * time.Second
)

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	store   *store.Store
	hub     *Hub
	log     zerolog.Logger
	version string
	started time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithHub replaces the websocket hub, e.g. to share it with a scheduler
// created before the server.
func WithHub(h *Hub) Option {
	return func(s *Server) { s.hub = h }
}

// NewServer creates a server with all routes and middleware.
func NewServer(cfg *config.Config, st *store.Store, log zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		log:     log.With().Str("component", "api").Logger(),
		version: "dev",
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = NewHub(log)
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the websocket hub. It satisfies scheduler.Publisher.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: requestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(s.log))
	r.Use(requestIDField)
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Get("/health", s.handleHealth)
			r.Get("/config/keys", s.handleGetConfigKeys)

			r.Route("/investments", func(r chi.Router) {
				r.Get("/", s.handleListInvestments)
				r.Post("/", s.handleCreateInvestment)
				r.Get("/{id}", s.handleGetInvestment)
				r.Put("/{id}", s.handleUpdateInvestment(false))
				r.Patch("/{id}", s.handleUpdateInvestment(true))
				r.Delete("/{id}", s.handleDeleteInvestment)
			})
			r.Route("/screener-types", func(r chi.Router) {
				r.Get("/", s.handleListScreenerTypes)
				r.Post("/", s.handleCreateScreenerType)
				r.Get("/{id}", s.handleGetScreenerType)
				r.Put("/{id}", s.handleUpdateScreenerType(false))
				r.Patch("/{id}", s.handleUpdateScreenerType(true))
				r.Delete("/{id}", s.handleDeleteScreenerType)
			})
			r.Route("/screener-filters", func(r chi.Router) {
				r.Get("/", s.handleListScreenerFilters)
				r.Post("/", s.handleCreateScreenerFilter)
				r.Get("/{id}", s.handleGetScreenerFilter)
				r.Put("/{id}", s.handleUpdateScreenerFilter(false))
				r.Patch("/{id}", s.handleUpdateScreenerFilter(true))
				r.Delete("/{id}", s.handleDeleteScreenerFilter)
			})
			r.Route("/financial-statements", func(r chi.Router) {
				r.Get("/", s.handleListFinancials)
				r.Post("/", s.handleCreateFinancial)
				r.Get("/{id}", s.handleGetFinancial)
				r.Put("/{id}", s.handleUpdateFinancial(false))
				r.Patch("/{id}", s.handleUpdateFinancial(true))
				r.Delete("/{id}", s.handleDeleteFinancial)
			})
			r.Route("/due-diligence-reports", func(r chi.Router) {
				r.Get("/", s.handleListReports)
				r.Post("/", s.handleCreateReport)
				r.Get("/{id}", s.handleGetReport)
				r.Put("/{id}", s.handleUpdateReport(false))
				r.Patch("/{id}", s.handleUpdateReport(true))
				r.Delete("/{id}", s.handleDeleteReport)
			})
			r.Route("/cboe-securities", func(r chi.Router) {
				r.Get("/", s.handleListCboe)
				r.Get("/{id}", s.handleGetCboe)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, msgNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "Method \""+r.Method+"\" not allowed.")
	})
	return r
}

// requestIDField adds chi's request id to the request logger.
func requestIDField(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}
