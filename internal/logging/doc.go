// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

// Package logging provides the process-wide zerolog logger.
//
// Call Init once from main with the values from config.LoggingConfig, then
// log through the package helpers or through Ctx(ctx), which attaches the
// run_id and source of the pipeline invocation carried in ctx:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	ctx = logging.ContextWithRunID(ctx, logging.NewRunID())
//	logging.Ctx(ctx).Info().Int("fetched", 120).Msg("Fetch complete")
//
// Always terminate an event chain with Msg or Send; an unterminated chain
// is never written.
package logging
