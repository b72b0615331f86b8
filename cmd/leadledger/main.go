// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

// Command leadledger ingests municipal building permits into Postgres.
package main

import (
	"os"

	"github.com/tomtom215/leadledger/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
