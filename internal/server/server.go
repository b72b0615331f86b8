// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

// Package server is the read-only HTTP surface of `leadledger serve`:
// health, Prometheus metrics, and JSON listings of recent permits, runs
// and scheduled sources.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/leadledger/internal/config"
	"github.com/tomtom215/leadledger/internal/models"
	"github.com/tomtom215/leadledger/internal/supervisor"
)

// PermitReader is satisfied by *store.PermitStore.
type PermitReader interface {
	RecentPermits(ctx context.Context, source string, limit int) ([]models.NormalizedPermit, error)
}

// RunReader is satisfied by *store.RunStore and *audit.MemoryStore.
type RunReader interface {
	RecentRuns(ctx context.Context, source string, limit int) ([]models.RunRecord, error)
}

// SourceStatuser is satisfied by *supervisor.SourceScheduler.
type SourceStatuser interface {
	Statuses() []supervisor.SourceStatus
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the optional backends. A nil dependency makes its endpoint
// answer 503.
type Deps struct {
	Permits PermitReader
	Runs    RunReader
	Sources SourceStatuser
	DB      Pinger
}

// Server holds handlers and their dependencies.
type Server struct {
	cfg  config.ServerConfig
	deps Deps
}

// New creates a Server.
func New(cfg config.ServerConfig, deps Deps) *Server {
	return &Server{cfg: cfg, deps: deps}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHandler(s.cfg.CORSOrigins))

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimit(s.cfg.RateLimitReqs, s.cfg.RateLimitWindow))
		r.Use(apiMetrics)
		r.Use(chimiddleware.Compress(5, "application/json"))

		r.Get("/permits/recent", s.recentPermits)
		r.Get("/runs/recent", s.recentRuns)
		r.Get("/sources", s.sources)
	})

	return r
}

// HTTPServer wraps Router in an *http.Server using the configured address
// and timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Router(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}
}
