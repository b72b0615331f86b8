// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/leadledger/internal/audit"
	"github.com/tomtom215/leadledger/internal/config"
	"github.com/tomtom215/leadledger/internal/logging"
	"github.com/tomtom215/leadledger/internal/mapping"
	"github.com/tomtom215/leadledger/internal/pipeline"
	"github.com/tomtom215/leadledger/internal/postgrest"
	"github.com/tomtom215/leadledger/internal/source"
	"github.com/tomtom215/leadledger/internal/store"
	"github.com/tomtom215/leadledger/internal/upsert"
)

// backend is the set of resources a command opened from config. Close
// releases all of them.
type backend struct {
	specs      map[string]mapping.SourceSpec
	breakers   *source.BreakerSet
	writer     upsert.BatchWriter
	audit      audit.Store
	db         *store.DB
	checkpoint *pipeline.BadgerCheckpoint
}

// openBackend resolves the source catalog and opens the configured sink.
// A dry run without a reachable database still works: permits go to the
// dry-run writer and run records are only logged.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	specs, err := mapping.Resolve(cfg)
	if err != nil {
		return nil, err
	}
	b := &backend{specs: specs, breakers: source.NewBreakerSet(cfg.Breaker)}

	switch cfg.Sink {
	case config.SinkPostgREST:
		client, err := postgrest.New(cfg.Supabase, cfg.Ingest.DryRun)
		if err != nil {
			return nil, err
		}
		b.writer = client
		// A keyless dry run has nothing to authenticate the runs table
		// write with, so its run rows are only logged.
		if cfg.Supabase.ServiceKey != "" {
			b.audit = client
		} else {
			logging.Warn().Msg("no supabase service key; dry run will not record runs")
		}
	default:
		db, err := store.Open(ctx, cfg.Database)
		switch {
		case err == nil:
			b.db = db
			b.writer, b.audit = db.Permits(), db.Runs()
		case cfg.Ingest.DryRun && errors.Is(err, store.ErrNotConnected):
			logging.Warn().Msg("no database configured; dry run will not record runs")
		default:
			return nil, err
		}
	}

	if cfg.Ingest.CheckpointEnabled && !cfg.Ingest.DryRun {
		cp, err := pipeline.OpenBadgerCheckpoint(cfg.Ingest.CheckpointPath)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.checkpoint = cp
	}
	return b, nil
}

// runner builds a pipeline runner over the backend.
func (b *backend) runner(cfg *config.Config, opts pipeline.Options) *pipeline.Runner {
	httpClient := source.NewHTTPClient(cfg.HTTP)
	deps := pipeline.Deps{
		Fetchers: func(spec mapping.SourceSpec) (source.Fetcher, error) {
			return source.New(spec, source.Deps{HTTP: httpClient, Breakers: b.breakers})
		},
		Writer: b.writer,
		Audit:  b.audit,
	}
	if b.checkpoint != nil {
		deps.Checkpoint = b.checkpoint
	}
	return pipeline.NewRunner(b.specs, deps, opts)
}

// Close releases the database and checkpoint store.
func (b *backend) Close() {
	if b.checkpoint != nil {
		if err := b.checkpoint.Close(); err != nil {
			logging.Warn().Err(err).Msg("failed to close checkpoint store")
		}
	}
	if err := b.db.Close(); err != nil {
		logging.Warn().Err(err).Msg("failed to close database")
	}
}

// runOptions translates config into pipeline options.
func runOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		BatchSize:   cfg.Ingest.BatchSize,
		PageSize:    cfg.Ingest.PageSize,
		Limit:       cfg.Ingest.Limit,
		DryRun:      cfg.Ingest.DryRun,
		Overlap:     cfg.Ingest.CheckpointOverlap,
		MaxParallel: cfg.Ingest.MaxParallelSources,
	}
}

// openStore connects to Postgres for the read-only commands.
func openStore(ctx context.Context, cfg *config.Config) (*store.DB, error) {
	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}
