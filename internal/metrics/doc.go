// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

// Package metrics defines the Prometheus instruments for LeadLedger.
//
// All collectors register with the default registry through promauto.
// The serve command exposes them on /metrics; one-shot ingest runs push
// them to a Pushgateway when metrics.pushgateway_url is configured.
package metrics
