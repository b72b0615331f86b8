// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

// Package store persists permits and run audit rows in Postgres through
// pgx's database/sql driver.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tomtom215/leadledger/internal/config"
	"github.com/tomtom215/leadledger/internal/logging"
)

// ErrNotConnected is returned when no database is configured or open.
var ErrNotConnected = errors.New("database not connected")

// DB wraps the connection pool.
type DB struct {
	db *sql.DB
}

// Open connects to Postgres and verifies the connection with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	dsn, err := BuildDSN(cfg)
	if err != nil {
		return nil, err
	}

	logging.Debug().Str("host", cfg.Host).Str("database", cfg.Name).Msg("Connecting to postgres")

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &DB{db: db}, nil
}

// New wraps an existing *sql.DB. Tests use it with sqlmock.
func New(db *sql.DB) *DB {
	return &DB{db: db}
}

// SQL returns the underlying pool.
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Permits returns the permit store backed by d.
func (d *DB) Permits() *PermitStore {
	return &PermitStore{db: d.db}
}

// Runs returns the run audit store backed by d.
func (d *DB) Runs() *RunStore {
	return &RunStore{db: d.db}
}

// Close closes the pool. It is safe on a nil DB.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// BuildDSN returns cfg.URL when set, otherwise a key=value DSN from the
// individual settings.
func BuildDSN(cfg config.DatabaseConfig) (string, error) {
	if cfg.URL != "" {
		return cfg.URL, nil
	}
	if cfg.Host == "" {
		return "", fmt.Errorf("%w: set DATABASE_URL or database.host", ErrNotConnected)
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "prefer"
	}

	parts := []string{
		"host=" + quoteDSN(cfg.Host),
		fmt.Sprintf("port=%d", port),
		"sslmode=" + quoteDSN(sslmode),
	}
	if cfg.Name != "" {
		parts = append(parts, "dbname="+quoteDSN(cfg.Name))
	}
	if cfg.User != "" {
		parts = append(parts, "user="+quoteDSN(cfg.User))
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+quoteDSN(cfg.Password))
	}
	return strings.Join(parts, " "), nil
}

// quoteDSN quotes a key=value DSN value when it contains spaces, quotes or
// backslashes.
func quoteDSN(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// closeRows closes rows and logs a failure; used in defers.
func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close rows")
	}
}
