// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultConfigPaths lists where a config file is searched when none is
// given explicitly. The first existing file wins.
var DefaultConfigPaths = []string{
	"leadledger.yaml",
	"leadledger.yml",
	"/etc/leadledger/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "LEADLEDGER_CONFIG"

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Port:            5432,
			SSLMode:         "prefer",
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Supabase: SupabaseConfig{
			Table:     "permits",
			RunsTable: "ingest_runs",
			Timeout:   60 * time.Second,
		},
		Sink: SinkPostgres,
		Ingest: IngestConfig{
			BatchSize:          500,
			PageSize:           1000,
			MaxParallelSources: 1,
			CheckpointPath:     "/data/leadledger/checkpoints",
			CheckpointOverlap:  72 * time.Hour,
		},
		HTTP: HTTPConfig{
			Timeout:           60 * time.Second,
			RequestsPerSecond: 2,
			Burst:             1,
			UserAgent:         "leadledger/1.0 (+https://github.com/tomtom215/leadledger)",
		},
		Breaker: BreakerConfig{
			MaxRequests:         3,
			Interval:            time.Minute,
			Timeout:             2 * time.Minute,
			MinRequests:         10,
			FailureRatio:        0.6,
			ConsecutiveFailures: 5,
		},
		Metrics: MetricsConfig{
			Job: "leadledger_ingest",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8089,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Defaults returns the built-in configuration without consulting any
// file, environment or flag.
func Defaults() *Config {
	return defaultConfig()
}

// LoadWithKoanf loads configuration in layers, each overriding the last:
// defaults, the YAML file at path (or the first of DefaultConfigPaths),
// mapped environment variables, then flags in fs that were set explicitly.
// fs may be nil.
func LoadWithKoanf(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath, err := findConfigFile(path)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, flagTransformFunc(fs)), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile resolves the config file path. An explicit path or the
// env override must exist; default locations are optional.
func findConfigFile(explicit string) (string, error) {
	for _, p := range []string{explicit, os.Getenv(ConfigPathEnvVar)} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("config file %s: %w", p, err)
		}
		return p, nil
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// envMappings maps lower-cased environment variable names to config paths.
// Unmapped variables are ignored so unrelated environment never leaks in.
var envMappings = map[string]string{
	"database_url":              "database.url",
	"pghost":                    "database.host",
	"pgport":                    "database.port",
	"pgdatabase":                "database.name",
	"pguser":                    "database.user",
	"pgpassword":                "database.password",
	"pgsslmode":                 "database.sslmode",
	"supabase_url":              "supabase.url",
	"supabase_service_key":      "supabase.service_key",
	"supabase_rpc":              "supabase.rpc",
	"leadledger_sink":           "sink",
	"socrata_app_token":         "socrata.app_token",
	"ingest_batch_size":         "ingest.batch_size",
	"ingest_page_size":          "ingest.page_size",
	"ingest_limit":              "ingest.limit",
	"ingest_dry_run":            "ingest.dry_run",
	"ingest_max_parallel":       "ingest.max_parallel_sources",
	"ingest_checkpoint_enabled": "ingest.checkpoint_enabled",
	"ingest_checkpoint_path":    "ingest.checkpoint_path",
	"ingest_checkpoint_overlap": "ingest.checkpoint_overlap",
	"http_timeout":              "http.timeout",
	"http_requests_per_second":  "http.requests_per_second",
	"http_user_agent":           "http.user_agent",
	"metrics_pushgateway_url":   "metrics.pushgateway_url",
	"metrics_job":               "metrics.job",
	"server_host":               "server.host",
	"server_port":               "server.port",
	"server_cors_origins":       "server.cors_origins",
	"log_level":                 "logging.level",
	"log_format":                "logging.format",
	"log_caller":                "logging.caller",
}

// envTransformFunc maps an environment variable name to its config path,
// or "" to skip it.
//
// Examples:
//   - DATABASE_URL -> database.url
//   - SOCRATA_APP_TOKEN -> socrata.app_token
//   - INGEST_BATCH_SIZE -> ingest.batch_size
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// flagMappings maps CLI flag names to config paths.
var flagMappings = map[string]string{
	"batch-size":   "ingest.batch_size",
	"page-size":    "ingest.page_size",
	"limit":        "ingest.limit",
	"dry-run":      "ingest.dry_run",
	"parallel":     "ingest.max_parallel_sources",
	"checkpoint":   "ingest.checkpoint_enabled",
	"sink":         "sink",
	"database-url": "database.url",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
	"port":         "server.port",
}

// flagTransformFunc only loads flags the user set, so an untouched flag's
// zero value never masks a file or env setting.
func flagTransformFunc(fs *pflag.FlagSet) func(f *pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		if !f.Changed {
			return "", nil
		}
		key, ok := flagMappings[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	}
}
