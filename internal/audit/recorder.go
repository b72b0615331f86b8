// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package audit

import (
	"context"
	"time"

	"github.com/tomtom215/leadledger/internal/logging"
	"github.com/tomtom215/leadledger/internal/metrics"
	"github.com/tomtom215/leadledger/internal/models"
)

// DefaultWriteTimeout bounds a single audit write.
const DefaultWriteTimeout = 10 * time.Second

// Store persists run rows.
type Store interface {
	SaveRun(ctx context.Context, run models.RunRecord) error
}

// Recorder writes run rows and swallows failures.
type Recorder struct {
	store   Store
	timeout time.Duration
}

// NewRecorder creates a Recorder. A nil store only logs.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, timeout: DefaultWriteTimeout}
}

// Record writes run. It has no error result: a failed write is logged
// and counted, and the caller's outcome is unchanged.
func (r *Recorder) Record(ctx context.Context, run models.RunRecord) {
	logger := logging.Ctx(ctx)

	event := logger.Info()
	if run.Status == models.RunError {
		event = logger.Warn()
	}
	event.
		Str("status", string(run.Status)).
		Int("fetched", run.Fetched).
		Int("parsed", run.Parsed).
		Int("dropped", run.Dropped).
		Int64("upserted", run.Upserted).
		Int64("duration_ms", run.DurationMS).
		Bool("dry_run", run.DryRun).
		Msg("Run finished")

	if r == nil || r.store == nil {
		return
	}

	timeout := r.timeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := r.store.SaveRun(writeCtx, run); err != nil {
		metrics.AuditFailures.Inc()
		logger.Error().Err(err).Str("run_id", run.RunID).Msg("Failed to save audit row")
	}
}
