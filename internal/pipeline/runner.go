// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

// Package pipeline runs fetch, map, upsert and audit for one source at a
// time, and fans out over several sources with bounded parallelism.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/leadledger/internal/audit"
	"github.com/tomtom215/leadledger/internal/logging"
	"github.com/tomtom215/leadledger/internal/mapping"
	"github.com/tomtom215/leadledger/internal/metrics"
	"github.com/tomtom215/leadledger/internal/models"
	"github.com/tomtom215/leadledger/internal/source"
	"github.com/tomtom215/leadledger/internal/upsert"
)

// ErrUnknownSource is returned when a source name is not in the catalog.
var ErrUnknownSource = errors.New("unknown source")

// FetcherFactory builds the fetcher for a source.
type FetcherFactory func(spec mapping.SourceSpec) (source.Fetcher, error)

// Options tune a Runner.
type Options struct {
	BatchSize int
	PageSize  int
	// Limit caps the records fetched per run; 0 means all.
	Limit  int
	DryRun bool
	// Since overrides the checkpoint as the fetch lower bound.
	Since *time.Time
	// Overlap is subtracted from a checkpoint to re-read late edits.
	Overlap     time.Duration
	MaxParallel int
}

// Deps are the collaborators a Runner drives.
type Deps struct {
	Fetchers FetcherFactory
	Writer   upsert.BatchWriter
	Audit    audit.Store
	// Checkpoint is optional.
	Checkpoint Checkpoint
}

// Stats is the result of one run.
type Stats struct {
	models.RunRecord
	// Since is the lower bound the fetch used, if any.
	Since *time.Time
}

// Runner executes pipeline runs.
//
// One Run of a source goes through these steps:
//
//  1. Pick the fetch lower bound (explicit --since, else checkpoint minus overlap)
//  2. Fetch raw records through the source's Fetcher
//  3. Map and validate them, counting drops
//  4. Upsert the survivors in batches
//  5. Record the audit row and metrics, whatever the outcome
//  6. Advance the checkpoint, only on success and never backwards
//
// Example usage:
//
//	runner := pipeline.NewRunner(specs, pipeline.Deps{
//		Fetchers: factory,
//		Writer:   db.Permits(),
//		Audit:    db.Runs(),
//	}, pipeline.Options{BatchSize: 500})
//	stats, err := runner.Run(ctx, "austin")
//
// A Runner is safe for concurrent use; RunAll runs several sources at once.
type Runner struct {
	specs      map[string]mapping.SourceSpec
	fetchers   FetcherFactory
	upserter   *upsert.Client
	recorder   *audit.Recorder
	checkpoint Checkpoint
	opts       Options
	now        func() time.Time
}

// NewRunner creates a Runner over the resolved source catalog. In dry-run
// mode the writer is replaced by upsert.DryRunWriter and checkpoints are
// left untouched.
func NewRunner(specs map[string]mapping.SourceSpec, deps Deps, opts Options) *Runner {
	writer := deps.Writer
	if opts.DryRun || writer == nil {
		writer = upsert.DryRunWriter{}
	}
	return &Runner{
		specs:      specs,
		fetchers:   deps.Fetchers,
		upserter:   &upsert.Client{Writer: writer, BatchSize: opts.BatchSize},
		recorder:   audit.NewRecorder(deps.Audit),
		checkpoint: deps.Checkpoint,
		opts:       opts,
		now:        time.Now,
	}
}

// Run ingests one source. The audit row is written whatever the outcome;
// the returned Stats are never nil for a known source.
func (r *Runner) Run(ctx context.Context, name string) (*Stats, error) {
	spec, ok := r.specs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}

	runID := logging.NewRunID()
	ctx = logging.ContextWithRunID(ctx, runID)
	ctx = logging.ContextWithSource(ctx, name)
	logger := logging.Ctx(ctx)

	stats := &Stats{RunRecord: models.RunRecord{
		RunID:     runID,
		Source:    name,
		StartedAt: r.now().UTC(),
		DryRun:    r.opts.DryRun,
	}}
	stats.Since = r.since(ctx, name)

	ev := logger.Info().Str("kind", spec.Kind).Bool("dry_run", r.opts.DryRun)
	if stats.Since != nil {
		ev = ev.Time("since", *stats.Since)
	}
	ev.Msg("Starting run")

	err := r.execute(ctx, spec, stats)

	stats.Finish(r.now().UTC(), err)
	r.recorder.Record(ctx, stats.RunRecord)
	metrics.RecordRun(name, string(stats.Status), time.Duration(stats.DurationMS)*time.Millisecond, metrics.RunCounts{
		Fetched:  stats.Fetched,
		Parsed:   stats.Parsed,
		Dropped:  stats.Dropped,
		Upserted: stats.Upserted,
	})

	if err != nil {
		return stats, fmt.Errorf("run %s: %w", name, err)
	}
	r.saveCheckpoint(ctx, stats)
	return stats, nil
}

func (r *Runner) execute(ctx context.Context, spec mapping.SourceSpec, stats *Stats) error {
	if r.fetchers == nil {
		return errors.New("no fetcher factory configured")
	}
	fetcher, err := r.fetchers(spec)
	if err != nil {
		return fmt.Errorf("build fetcher: %w", err)
	}

	raws, err := fetcher.Fetch(ctx, source.Query{
		Since:    stats.Since,
		Limit:    r.opts.Limit,
		PageSize: r.opts.PageSize,
	})
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	stats.Fetched = len(raws)

	mapper := mapping.NewMapper(spec, mapping.WithClock(r.now))
	permits, dropped := mapper.MapAll(raws)
	stats.Parsed = len(permits)
	stats.Dropped = dropped
	stats.MinIssueDate, stats.MaxIssueDate = issueRange(permits)

	n, err := r.upserter.Upsert(ctx, permits)
	stats.Upserted = n
	if err != nil {
		return err
	}
	return nil
}

// since picks the fetch lower bound: the explicit override, else the
// checkpoint minus the overlap window.
func (r *Runner) since(ctx context.Context, name string) *time.Time {
	if r.opts.Since != nil {
		t := r.opts.Since.UTC()
		return &t
	}
	if r.checkpoint == nil {
		return nil
	}
	mark, err := r.checkpoint.Load(ctx, name)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to load checkpoint, running full fetch")
		return nil
	}
	if mark == nil || mark.MaxIssueDate.IsZero() {
		return nil
	}
	t := mark.MaxIssueDate.Add(-r.opts.Overlap).UTC()
	return &t
}

func (r *Runner) saveCheckpoint(ctx context.Context, stats *Stats) {
	if r.checkpoint == nil || r.opts.DryRun || stats.MaxIssueDate == nil {
		return
	}

	// Never move the mark backwards.
	if prev, err := r.checkpoint.Load(ctx, stats.Source); err == nil && prev != nil &&
		!stats.MaxIssueDate.After(prev.MaxIssueDate) {
		return
	}

	mark := Mark{MaxIssueDate: *stats.MaxIssueDate, RunID: stats.RunID, SavedAt: r.now().UTC()}
	if err := r.checkpoint.Save(ctx, stats.Source, mark); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to save checkpoint")
	}
}

func issueRange(permits []models.NormalizedPermit) (minDate, maxDate *time.Time) {
	for i := range permits {
		d := permits[i].IssueDate
		if d == nil {
			continue
		}
		if minDate == nil || d.Before(*minDate) {
			v := *d
			minDate = &v
		}
		if maxDate == nil || d.After(*maxDate) {
			v := *d
			maxDate = &v
		}
	}
	return minDate, maxDate
}
