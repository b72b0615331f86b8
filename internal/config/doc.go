// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

// Package config loads LeadLedger configuration with koanf.
//
// Values are layered: built-in defaults, an optional YAML file, a fixed set
// of environment variables, then explicitly set command-line flags.
//
// Example YAML:
//
//	sink: postgres
//	database:
//	  url: postgres://leadledger:secret@db:5432/leads?sslmode=require
//	ingest:
//	  batch_size: 500
//	  checkpoint_enabled: true
//	sources:
//	  austin:
//	    interval: 12h
//	  sanantonio:
//	    kind: csv
//	    url: https://data.sanantonio.gov/permits.csv
//	    city: San Antonio
//	    county: Bexar
//	    fields:
//	      permit_number: ["PERMIT #"]
//	      address: ["ADDRESS"]
//	      description: ["WORK TYPE", "PROJECT NAME"]
//	      issue_date: ["DATE ISSUED"]
//	server:
//	  port: 8089
//	  cors_origins: ["https://leads.example.com"]
//
// Recognized environment variables include DATABASE_URL, SUPABASE_URL,
// SUPABASE_SERVICE_KEY, SOCRATA_APP_TOKEN, INGEST_BATCH_SIZE, LOG_LEVEL and
// LEADLEDGER_CONFIG (config file path).
package config
