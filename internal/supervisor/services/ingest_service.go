// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package services

import (
	"context"
	"time"

	"github.com/tomtom215/leadledger/internal/logging"
	"github.com/tomtom215/leadledger/internal/pipeline"
)

// Runner is satisfied by *pipeline.Runner.
type Runner interface {
	Run(ctx context.Context, source string) (*pipeline.Stats, error)
}

// ResultFunc receives the outcome of every scheduled run.
type ResultFunc func(source string, stats *pipeline.Stats, err error)

// IngestService runs one source every interval.
type IngestService struct {
	runner     Runner
	source     string
	interval   time.Duration
	runOnStart bool
	onResult   ResultFunc
}

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithRunOnStart runs the source immediately instead of waiting one
// interval.
func WithRunOnStart(v bool) IngestOption {
	return func(s *IngestService) { s.runOnStart = v }
}

// WithResultFunc registers a callback for run outcomes.
func WithResultFunc(fn ResultFunc) IngestOption {
	return func(s *IngestService) { s.onResult = fn }
}

// NewIngestService creates a service for source. A non-positive interval
// means 24h.
func NewIngestService(runner Runner, source string, interval time.Duration, opts ...IngestOption) *IngestService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	s := &IngestService{
		runner:     runner,
		source:     source,
		interval:   interval,
		runOnStart: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve implements suture.Service.
func (s *IngestService) Serve(ctx context.Context) error {
	if s.runOnStart {
		s.runOnce(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *IngestService) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	stats, err := s.runner.Run(ctx, s.source)
	if err != nil {
		logging.Warn().Err(err).Str("source", s.source).Dur("next_in", s.interval).Msg("Scheduled run failed")
	}
	if s.onResult != nil {
		s.onResult(s.source, stats, err)
	}
}

func (s *IngestService) String() string {
	return "ingest-" + s.source
}

// Interval returns the run period.
func (s *IngestService) Interval() time.Duration {
	return s.interval
}
