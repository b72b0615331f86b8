// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/leadledger/internal/models"
)

const insertRun = `INSERT INTO ingest_runs (
	run_id, source, started_at, finished_at, duration_ms,
	fetched, parsed, dropped, upserted, errors,
	status, error_message, min_issue_date, max_issue_date, dry_run
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

const selectRunColumns = `run_id, source, started_at, finished_at, duration_ms,
	fetched, parsed, dropped, upserted, errors,
	status, error_message, min_issue_date, max_issue_date, dry_run`

// RunStore appends to and reads the ingest_runs audit table.
type RunStore struct {
	db *sql.DB
}

// SaveRun inserts one audit row.
func (s *RunStore) SaveRun(ctx context.Context, run models.RunRecord) error {
	if s == nil || s.db == nil {
		return ErrNotConnected
	}

	_, err := s.db.ExecContext(ctx, insertRun,
		run.RunID, run.Source, run.StartedAt, run.FinishedAt, run.DurationMS,
		run.Fetched, run.Parsed, run.Dropped, run.Upserted, run.Errors,
		string(run.Status), run.ErrorMessage, run.MinIssueDate, run.MaxIssueDate, run.DryRun,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.RunID, err)
	}
	return nil
}

// RecentRuns returns the newest audit rows, optionally for one source.
func (s *RunStore) RecentRuns(ctx context.Context, source string, limit int) ([]models.RunRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConnected
	}
	limit = clampLimit(limit)

	query := "SELECT " + selectRunColumns + " FROM ingest_runs"
	args := []any{}
	if source != "" {
		query += " WHERE source = $1"
		args = append(args, source)
	}
	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer closeRows(rows)

	var out []models.RunRecord
	for rows.Next() {
		var (
			r          models.RunRecord
			status     string
			msg        sql.NullString
			minD, maxD sql.NullTime
		)
		if err := rows.Scan(
			&r.RunID, &r.Source, &r.StartedAt, &r.FinishedAt, &r.DurationMS,
			&r.Fetched, &r.Parsed, &r.Dropped, &r.Upserted, &r.Errors,
			&status, &msg, &minD, &maxD, &r.DryRun,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Status = models.RunStatus(status)
		if msg.Valid {
			m := msg.String
			r.ErrorMessage = &m
		}
		r.MinIssueDate = nullTime(minD)
		r.MaxIssueDate = nullTime(maxD)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return out, nil
}
