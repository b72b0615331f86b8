// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/leadledger/internal/validation"
)

// recentQuery is the query string of the /recent endpoints.
type recentQuery struct {
	Source string `json:"source" validate:"omitempty,max=64,printascii"`
	Limit  int    `json:"limit" validate:"gte=0,lte=1000"`
}

var errBadLimit = errors.New("limit must be an integer")

func parseRecentQuery(r *http.Request) (recentQuery, error) {
	q := recentQuery{Source: r.URL.Query().Get("source")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, errBadLimit
		}
		q.Limit = n
	}
	if err := validation.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	body := map[string]string{"status": "ok", "database": "not_configured"}

	if s.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.DB.PingContext(ctx); err != nil {
			respondError(w, r, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", "database ping failed", err)
			return
		}
		body["database"] = "ok"
	}
	respondData(w, r, body, 0, started)
}

func (s *Server) recentPermits(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if s.deps.Permits == nil {
		respondError(w, r, http.StatusServiceUnavailable, "NOT_CONFIGURED", "permit store not configured", nil)
		return
	}
	q, err := parseRecentQuery(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	permits, err := s.deps.Permits.RecentPermits(r.Context(), q.Source, q.Limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "QUERY_ERROR", "failed to load permits", err)
		return
	}
	respondData(w, r, permits, len(permits), started)
}

func (s *Server) recentRuns(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if s.deps.Runs == nil {
		respondError(w, r, http.StatusServiceUnavailable, "NOT_CONFIGURED", "run store not configured", nil)
		return
	}
	q, err := parseRecentQuery(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	runs, err := s.deps.Runs.RecentRuns(r.Context(), q.Source, q.Limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "QUERY_ERROR", "failed to load runs", err)
		return
	}
	respondData(w, r, runs, len(runs), started)
}

func (s *Server) sources(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if s.deps.Sources == nil {
		respondError(w, r, http.StatusServiceUnavailable, "NOT_CONFIGURED", "scheduler not running", nil)
		return
	}
	statuses := s.deps.Sources.Statuses()
	respondData(w, r, statuses, len(statuses), started)
}
