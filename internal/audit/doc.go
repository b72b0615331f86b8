// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

// Package audit writes one RunRecord per pipeline invocation to the
// ingest_runs table (or its PostgREST or in-memory equivalent).
//
// Recording never fails the run: store errors are logged, counted in
// leadledger_audit_failures_total and dropped. The write uses a context
// detached from the run's cancellation so that an interrupted run still
// leaves its error row behind.
//
// Usage:
//
//	rec := audit.NewRecorder(db.Runs())
//	run.Finish(time.Now(), err)
//	rec.Record(ctx, run)
package audit
