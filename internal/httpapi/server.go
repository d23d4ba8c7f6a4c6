// Package httpapi exposes the daemon's purely observational HTTP surface:
// /healthz and /metrics. It never carries the command transport — that
// stays newline-delimited JSON on stdio (spec §5-6) — and is off unless
// Telemetry.Enabled is set.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obodeldog/cogni-living-daemon/internal/infra/datadir"
)

// Server holds the dependencies the HTTP handlers read from.
type Server struct {
	DataDir *datadir.Checker
}

// NewServer returns a Server wired to the given health checker.
func NewServer(dd *datadir.Checker) *Server {
	return &Server{DataDir: dd}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, req *http.Request) {
	status := s.DataDir.Status()

	body := map[string]any{
		"data_dir_writable": status.Writable,
		"checked_at":        status.CheckedAt,
	}

	w.Header().Set("Content-Type", "application/json")
	if !status.Writable {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(body)
}
