// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

/*
Package models defines the data structures shared across LeadLedger.

Key types:

  - NormalizedPermit: one building permit in the common schema, keyed by
    (Source, SourceRecordID). Produced by the mapping package, written by
    the upsert client, read back by the dashboard.
  - RunRecord: one audit row per pipeline invocation.
  - Trade and Category: the classification vocabulary.
  - APIResponse: the JSON envelope served by the HTTP endpoints.

Optional values (dates, valuation, coordinates) are pointers; nil means the
source did not supply a usable value. Trades is never nil.
*/
package models
