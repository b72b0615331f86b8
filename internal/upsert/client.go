// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

// Package upsert writes normalized permits to a sink in fixed-size,
// sequential batches keyed on (source, source_record_id).
package upsert

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/leadledger/internal/logging"
	"github.com/tomtom215/leadledger/internal/metrics"
	"github.com/tomtom215/leadledger/internal/models"
)

// DefaultBatchSize is used when Client.BatchSize is not positive.
const DefaultBatchSize = 500

// BatchWriter performs one conflict-resolving write and returns the
// number of rows affected. A batch is all-or-nothing.
type BatchWriter interface {
	WriteBatch(ctx context.Context, batch []models.NormalizedPermit) (int64, error)
}

// SinkNamer is implemented by writers that label their metrics.
type SinkNamer interface {
	SinkName() string
}

// Client splits permits into batches and writes them one at a time.
type Client struct {
	Writer    BatchWriter
	BatchSize int
}

// Upsert writes permits and returns the total rows affected. If a batch
// fails, Upsert stops and returns the count from the batches already
// committed together with the error; there is no retry.
func (c *Client) Upsert(ctx context.Context, permits []models.NormalizedPermit) (int64, error) {
	size := c.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	sink := sinkName(c.Writer)
	batches := (len(permits) + size - 1) / size

	var total int64
	for i := 0; i < batches; i++ {
		start := i * size
		end := start + size
		if end > len(permits) {
			end = len(permits)
		}

		if err := ctx.Err(); err != nil {
			return total, fmt.Errorf("upsert batch %d/%d: %w", i+1, batches, err)
		}

		batch := Dedupe(permits[start:end])
		began := time.Now()
		n, err := c.Writer.WriteBatch(ctx, batch)
		metrics.RecordUpsertBatch(sink, time.Since(began), err)
		if err != nil {
			return total, fmt.Errorf("upsert batch %d/%d (%d records): %w", i+1, batches, len(batch), err)
		}
		total += n

		logging.Ctx(ctx).Debug().
			Int("batch", i+1).
			Int("batches", batches).
			Int("records", len(batch)).
			Int64("affected", n).
			Msg("Upsert batch committed")
	}
	return total, nil
}

// Dedupe collapses permits sharing a natural key, keeping the last
// occurrence at the position of the first. Postgres rejects an
// ON CONFLICT DO UPDATE statement that touches the same row twice.
func Dedupe(batch []models.NormalizedPermit) []models.NormalizedPermit {
	pos := make(map[string]int, len(batch))
	out := make([]models.NormalizedPermit, 0, len(batch))
	for i := range batch {
		key := batch[i].Key()
		if at, ok := pos[key]; ok {
			out[at] = batch[i]
			continue
		}
		pos[key] = len(out)
		out = append(out, batch[i])
	}
	return out
}

func sinkName(w BatchWriter) string {
	if n, ok := w.(SinkNamer); ok {
		return n.SinkName()
	}
	return "unknown"
}
