// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package config

import (
	"fmt"
	"net/url"
	"time"
)

// Sink names accepted by Config.Sink.
const (
	SinkPostgres  = "postgres"
	SinkPostgREST = "postgrest"
)

// Source kinds accepted by SourceConfig.Kind.
const (
	KindSocrata = "socrata"
	KindArcGIS  = "arcgis"
	KindCSV     = "csv"
)

// MaxBatchSize keeps one multi-row upsert of 21 bound columns under the
// Postgres limit of 65535 parameters per statement.
const MaxBatchSize = 65535 / 21

// Config holds all application configuration.
//
// Loading order (see LoadWithKoanf):
//  1. Defaults from defaultConfig
//  2. YAML config file, if one is found
//  3. Environment variables with an explicit mapping
//  4. Command-line flags that were set explicitly
//
// Config is immutable after loading and safe for concurrent reads.
type Config struct {
	Database DatabaseConfig          `koanf:"database"`
	Supabase SupabaseConfig          `koanf:"supabase"`
	Sink     string                  `koanf:"sink"`
	Ingest   IngestConfig            `koanf:"ingest"`
	HTTP     HTTPConfig              `koanf:"http"`
	Socrata  SocrataConfig           `koanf:"socrata"`
	Breaker  BreakerConfig           `koanf:"breaker"`
	Sources  map[string]SourceConfig `koanf:"sources"`
	Metrics  MetricsConfig           `koanf:"metrics"`
	Server   ServerConfig            `koanf:"server"`
	Logging  LoggingConfig           `koanf:"logging"`
}

// DatabaseConfig holds Postgres connection settings. URL wins over the
// individual parts when both are set.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Name            string        `koanf:"name"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"sslmode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// Configured reports whether enough settings exist to attempt a connection.
func (d DatabaseConfig) Configured() bool {
	return d.URL != "" || d.Host != ""
}

// SupabaseConfig configures the PostgREST sink.
type SupabaseConfig struct {
	URL        string        `koanf:"url"`
	ServiceKey string        `koanf:"service_key"`
	Table      string        `koanf:"table"`
	RunsTable  string        `koanf:"runs_table"`
	RPC        string        `koanf:"rpc"` // when set, batches go to /rest/v1/rpc/<rpc>
	Timeout    time.Duration `koanf:"timeout"`
}

// IngestConfig controls a pipeline run.
type IngestConfig struct {
	BatchSize          int           `koanf:"batch_size"`
	PageSize           int           `koanf:"page_size"`
	Limit              int           `koanf:"limit"` // 0 means no limit
	DryRun             bool          `koanf:"dry_run"`
	MaxParallelSources int           `koanf:"max_parallel_sources"`
	CheckpointEnabled  bool          `koanf:"checkpoint_enabled"`
	CheckpointPath     string        `koanf:"checkpoint_path"`
	CheckpointOverlap  time.Duration `koanf:"checkpoint_overlap"`
}

// HTTPConfig configures the shared outbound HTTP client.
type HTTPConfig struct {
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
	UserAgent         string        `koanf:"user_agent"`
}

// SocrataConfig holds Socrata-wide settings.
type SocrataConfig struct {
	AppToken string `koanf:"app_token"`
}

// BreakerConfig configures the per-source circuit breaker.
type BreakerConfig struct {
	MaxRequests         uint32        `koanf:"max_requests"`
	Interval            time.Duration `koanf:"interval"`
	Timeout             time.Duration `koanf:"timeout"`
	MinRequests         uint32        `koanf:"min_requests"`
	FailureRatio        float64       `koanf:"failure_ratio"`
	ConsecutiveFailures uint32        `koanf:"consecutive_failures"`
}

// SourceConfig declares or overrides one permit source. Built-in sources
// only need the keys being overridden; new sources must set kind, url and
// fields.
type SourceConfig struct {
	Enabled     *bool               `koanf:"enabled"`
	Kind        string              `koanf:"kind"`
	URL         string              `koanf:"url"`
	DateField   string              `koanf:"date_field"`
	Where       string              `koanf:"where"`
	AppToken    string              `koanf:"app_token"`
	Interval    time.Duration       `koanf:"interval"`
	City        string              `koanf:"city"`
	County      string              `koanf:"county"`
	DateLayouts []string            `koanf:"date_layouts"`
	Fields      map[string][]string `koanf:"fields"`
}

// MetricsConfig configures Prometheus export.
type MetricsConfig struct {
	PushgatewayURL string `koanf:"pushgateway_url"`
	Job            string `koanf:"job"`
}

// ServerConfig configures the HTTP listener used by serve.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	// CORSOrigins lists browser origins allowed to call the API. Empty
	// disables cross-origin access.
	CORSOrigins []string `koanf:"cors_origins"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// validateHTTPURL checks that rawURL is an absolute http(s) URL.
func validateHTTPURL(rawURL, fieldName string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %q", fieldName, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	return nil
}
