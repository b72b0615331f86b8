// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package models

import "time"

// RunStatus is the outcome of a pipeline run.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunError   RunStatus = "error"
)

// RunRecord is the audit row written once per pipeline invocation.
type RunRecord struct {
	RunID        string     `json:"run_id"`
	Source       string     `json:"source"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   time.Time  `json:"finished_at"`
	DurationMS   int64      `json:"duration_ms"`
	Fetched      int        `json:"fetched"`
	Parsed       int        `json:"parsed"`
	Dropped      int        `json:"dropped"`
	Upserted     int64      `json:"upserted"`
	Errors       int        `json:"errors"`
	Status       RunStatus  `json:"status"`
	ErrorMessage *string    `json:"error_message"`
	MinIssueDate *time.Time `json:"min_issue_date"`
	MaxIssueDate *time.Time `json:"max_issue_date"`
	DryRun       bool       `json:"dry_run"`
}

// Finish stamps the end time and derives the status. An error marks the
// run as failed; dropped records without an error make it partial.
func (r *RunRecord) Finish(now time.Time, err error) {
	r.FinishedAt = now
	r.DurationMS = now.Sub(r.StartedAt).Milliseconds()
	switch {
	case err != nil:
		msg := err.Error()
		r.ErrorMessage = &msg
		r.Status = RunError
		r.Errors++
	case r.Dropped > 0:
		r.Status = RunPartial
	default:
		r.Status = RunSuccess
	}
}
