// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package upsert

import (
	"context"
	"sync"

	"github.com/tomtom215/leadledger/internal/logging"
	"github.com/tomtom215/leadledger/internal/models"
)

// DryRunWriter counts permits without writing them.
type DryRunWriter struct{}

// WriteBatch reports every permit as affected.
func (DryRunWriter) WriteBatch(ctx context.Context, batch []models.NormalizedPermit) (int64, error) {
	logging.Ctx(ctx).Info().Int("records", len(batch)).Msg("Dry run: skipping batch write")
	return int64(len(batch)), nil
}

// SinkName implements SinkNamer.
func (DryRunWriter) SinkName() string { return "dry-run" }

// MemoryWriter keeps permits in a map keyed like the database table.
// Useful for tests and local experiments.
type MemoryWriter struct {
	mu      sync.Mutex
	rows    map[string]models.NormalizedPermit
	batches []int
	// FailOn makes the batch with this 1-based index fail, when non-zero.
	FailOn int
	Err    error
}

// NewMemoryWriter creates an empty MemoryWriter.
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{rows: make(map[string]models.NormalizedPermit)}
}

// WriteBatch stores the batch, last write wins.
func (w *MemoryWriter) WriteBatch(_ context.Context, batch []models.NormalizedPermit) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.FailOn > 0 && len(w.batches)+1 == w.FailOn {
		w.batches = append(w.batches, -len(batch))
		return 0, w.Err
	}
	for _, p := range batch {
		w.rows[p.Key()] = p
	}
	w.batches = append(w.batches, len(batch))
	return int64(len(batch)), nil
}

// SinkName implements SinkNamer.
func (w *MemoryWriter) SinkName() string { return "memory" }

// Len returns the number of distinct stored permits.
func (w *MemoryWriter) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.rows)
}

// Batches returns the size of each batch written, in order. Failed batches
// are recorded as negative sizes.
func (w *MemoryWriter) Batches() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]int(nil), w.batches...)
}

// Get returns the stored permit for a natural key.
func (w *MemoryWriter) Get(source, sourceRecordID string) (models.NormalizedPermit, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.rows[(&models.NormalizedPermit{Source: source, SourceRecordID: sourceRecordID}).Key()]
	return p, ok
}
