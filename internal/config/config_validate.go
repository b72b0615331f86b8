// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package config

import (
	"fmt"
	"strings"
)

// Validate checks that the configuration is coherent.
func (c *Config) Validate() error {
	if err := c.validateSink(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateHTTP(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

// validateSink checks the sink name and, for PostgREST, its credentials.
// Missing Postgres settings are reported when a connection is attempted so
// that dry runs and `sources` work without a database.
func (c *Config) validateSink() error {
	switch c.Sink {
	case SinkPostgres:
		return nil
	case SinkPostgREST:
		if c.Supabase.URL == "" {
			return fmt.Errorf("SUPABASE_URL is required when sink=%s", SinkPostgREST)
		}
		if err := validateHTTPURL(c.Supabase.URL, "SUPABASE_URL"); err != nil {
			return err
		}
		if c.Supabase.ServiceKey == "" && !c.Ingest.DryRun {
			return fmt.Errorf("SUPABASE_SERVICE_KEY is required when sink=%s", SinkPostgREST)
		}
		if c.Supabase.Table == "" {
			return fmt.Errorf("supabase.table must not be empty")
		}
		return nil
	default:
		return fmt.Errorf("sink must be %q or %q, got %q", SinkPostgres, SinkPostgREST, c.Sink)
	}
}

func (c *Config) validateIngest() error {
	if c.Ingest.BatchSize < 1 {
		return fmt.Errorf("ingest.batch_size must be at least 1, got %d", c.Ingest.BatchSize)
	}
	if c.Ingest.BatchSize > MaxBatchSize {
		return fmt.Errorf("ingest.batch_size must be at most %d, got %d", MaxBatchSize, c.Ingest.BatchSize)
	}
	if c.Ingest.PageSize < 1 {
		return fmt.Errorf("ingest.page_size must be at least 1, got %d", c.Ingest.PageSize)
	}
	if c.Ingest.Limit < 0 {
		return fmt.Errorf("ingest.limit must not be negative, got %d", c.Ingest.Limit)
	}
	if c.Ingest.MaxParallelSources < 1 {
		return fmt.Errorf("ingest.max_parallel_sources must be at least 1, got %d", c.Ingest.MaxParallelSources)
	}
	if c.Ingest.CheckpointEnabled && c.Ingest.CheckpointPath == "" {
		return fmt.Errorf("ingest.checkpoint_path is required when checkpointing is enabled")
	}
	if c.Ingest.CheckpointOverlap < 0 {
		return fmt.Errorf("ingest.checkpoint_overlap must not be negative")
	}
	return nil
}

func (c *Config) validateHTTP() error {
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive")
	}
	if c.HTTP.RequestsPerSecond < 0 {
		return fmt.Errorf("http.requests_per_second must not be negative")
	}
	if c.HTTP.RequestsPerSecond > 0 && c.HTTP.Burst < 1 {
		return fmt.Errorf("http.burst must be at least 1 when rate limiting is enabled")
	}
	return nil
}

var validKinds = map[string]bool{KindSocrata: true, KindArcGIS: true, KindCSV: true}

// validateSources checks explicit overrides only. Whether a source without
// a kind is a known built-in is decided by the mapping catalog.
func (c *Config) validateSources() error {
	for name, src := range c.Sources {
		if name == "" || strings.ContainsAny(name, " /") {
			return fmt.Errorf("sources: invalid source name %q", name)
		}
		if src.Kind != "" && !validKinds[src.Kind] {
			return fmt.Errorf("sources.%s.kind must be socrata, arcgis or csv, got %q", name, src.Kind)
		}
		if src.URL != "" {
			if err := validateHTTPURL(src.URL, "sources."+name+".url"); err != nil {
				return err
			}
		}
		if src.Interval < 0 {
			return fmt.Errorf("sources.%s.interval must not be negative", name)
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
