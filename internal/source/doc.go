// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

// Package source fetches raw permit records from municipal open-data
// portals.
//
// Three portal kinds are supported:
//
//   - socrata: SODA JSON endpoints paged with $limit/$offset
//   - arcgis: FeatureServer/MapServer layer query endpoints
//   - csv: a single CSV download
//
// Every fetcher returns records as []map[string]any keyed by the portal's
// own column names; the mapping package turns them into permits.
//
// All requests go through one HTTPClient, which applies the configured
// timeout and a token-bucket rate limit, and through a per-source circuit
// breaker. There are no retries: a failed request fails the fetch.
package source
