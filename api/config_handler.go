package api

import (
	"net/http"
	"time"

	"github.com/seenimoa/optiscreen/internal/config"
)

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Database  string `json:"database"`
	WSClients int    `json:"ws_clients"`
	Uptime    string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Version:   s.version,
		Database:  "ok",
		WSClients: s.hub.ClientCount(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	}
	status := http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		resp.Status, resp.Database = "degraded", err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, APIResponse{Success: status == http.StatusOK, Data: resp})
}

// handleGetConfigKeys reports which upstream credentials are configured,
// masked.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, config.CheckAPIKeys(s.cfg))
}
