// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/leadledger/internal/config"
	"github.com/tomtom215/leadledger/internal/models"
	"github.com/tomtom215/leadledger/internal/testinfra"
)

func TestPostgresIntegration(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg, err := testinfra.NewPostgresContainer(ctx)
	require.NoError(t, err)
	defer testinfra.CleanupContainer(t, ctx, pg)

	db, err := Open(ctx, config.DatabaseConfig{URL: pg.DSN, MaxOpenConns: 2})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate(ctx))
	// A second migrate is a no-op.
	require.NoError(t, db.Migrate(ctx))

	version, err := db.MigrationVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	permits := db.Permits()
	batch := []models.NormalizedPermit{samplePermit("1"), samplePermit("2"), samplePermit("3")}

	t.Run("upsert is idempotent", func(t *testing.T) {
		_, err := permits.WriteBatch(ctx, batch)
		require.NoError(t, err)
		_, err = permits.WriteBatch(ctx, batch)
		require.NoError(t, err)

		n, err := permits.Count(ctx, "austin")
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("conflict updates fields", func(t *testing.T) {
		changed := samplePermit("2")
		changed.Status = "Final"
		changed.Trades = []models.Trade{models.TradeRoofing, models.TradeHVAC}
		_, err := permits.WriteBatch(ctx, []models.NormalizedPermit{changed})
		require.NoError(t, err)

		recent, err := permits.RecentPermits(ctx, "austin", 10)
		require.NoError(t, err)
		require.Len(t, recent, 3)

		var found bool
		for _, p := range recent {
			if p.SourceRecordID == "2" {
				found = true
				assert.Equal(t, "Final", p.Status)
				assert.Equal(t, changed.Trades, p.Trades)
			}
		}
		assert.True(t, found)
	})

	t.Run("runs round trip", func(t *testing.T) {
		run := models.RunRecord{
			RunID:     "6f1c2d7e-0000-4000-8000-000000000001",
			Source:    "austin",
			StartedAt: time.Now().UTC().Add(-time.Minute),
			Fetched:   3,
			Parsed:    3,
			Upserted:  3,
		}
		run.Finish(time.Now().UTC(), nil)
		require.NoError(t, db.Runs().SaveRun(ctx, run))

		runs, err := db.Runs().RecentRuns(ctx, "austin", 5)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, models.RunSuccess, runs[0].Status)
		assert.Equal(t, int64(3), runs[0].Upserted)
	})
}
