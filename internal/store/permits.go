// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/leadledger/internal/logging"
	"github.com/tomtom215/leadledger/internal/models"
)

const (
	// DefaultRecentLimit is used when a caller passes a non-positive limit.
	DefaultRecentLimit = 50
	// MaxRecentLimit caps reader queries.
	MaxRecentLimit = 1000
)

// permitColumns is the insert column order. trades is bound as a text
// array literal and cast in SQL.
var permitColumns = []string{
	"source",
	"source_record_id",
	"permit_number",
	"issue_date",
	"application_date",
	"description",
	"category",
	"trades",
	"address",
	"city",
	"county",
	"state",
	"zip",
	"valuation",
	"applicant",
	"contractor",
	"owner",
	"status",
	"latitude",
	"longitude",
	"ingested_at",
}

// maxRowsPerStatement keeps a single upsert under the 65535 bind
// parameter limit of the Postgres wire protocol.
var maxRowsPerStatement = 65535 / len(permitColumns)

const permitConflictClause = ` ON CONFLICT (source, source_record_id) DO UPDATE SET
	permit_number = EXCLUDED.permit_number,
	issue_date = EXCLUDED.issue_date,
	application_date = EXCLUDED.application_date,
	description = EXCLUDED.description,
	category = EXCLUDED.category,
	trades = EXCLUDED.trades,
	address = EXCLUDED.address,
	city = EXCLUDED.city,
	county = EXCLUDED.county,
	state = EXCLUDED.state,
	zip = EXCLUDED.zip,
	valuation = EXCLUDED.valuation,
	applicant = EXCLUDED.applicant,
	contractor = EXCLUDED.contractor,
	owner = EXCLUDED.owner,
	status = EXCLUDED.status,
	latitude = EXCLUDED.latitude,
	longitude = EXCLUDED.longitude,
	ingested_at = EXCLUDED.ingested_at,
	updated_at = now()`

const selectPermitColumns = `source, source_record_id, permit_number, issue_date, application_date,
	description, category, array_to_string(trades, ','), address, city, county, state, zip,
	valuation, applicant, contractor, owner, status, latitude, longitude, ingested_at`

// PermitStore reads and writes the permits table.
type PermitStore struct {
	db *sql.DB
}

// SinkName labels upsert metrics.
func (s *PermitStore) SinkName() string {
	return "postgres"
}

// WriteBatch upserts batch in one transaction and returns the number of
// rows inserted or updated. Each statement is a multi-row insert of at most
// maxRowsPerStatement permits. The batch must not contain two permits with
// the same natural key.
func (s *PermitStore) WriteBatch(ctx context.Context, batch []models.NormalizedPermit) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrNotConnected
	}
	if len(batch) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	var affected int64
	for start := 0; start < len(batch); start += maxRowsPerStatement {
		end := min(start+maxRowsPerStatement, len(batch))
		query, args := buildUpsert(batch[start:end])

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			rollback(tx)
			return 0, fmt.Errorf("failed to upsert permits: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			rollback(tx)
			return 0, fmt.Errorf("failed to read affected rows: %w", err)
		}
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return affected, nil
}

func buildUpsert(batch []models.NormalizedPermit) (string, []any) {
	ncol := len(permitColumns)
	args := make([]any, 0, len(batch)*ncol)

	var b strings.Builder
	b.WriteString("INSERT INTO permits (")
	b.WriteString(strings.Join(permitColumns, ", "))
	b.WriteString(") VALUES ")

	for i := range batch {
		p := &batch[i]
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c, col := range permitColumns {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", i*ncol+c+1)
			if col == "trades" {
				b.WriteString("::text[]")
			}
		}
		b.WriteByte(')')

		args = append(args,
			p.Source,
			p.SourceRecordID,
			p.PermitNumber,
			p.IssueDate,
			p.ApplicationDate,
			p.Description,
			string(p.Category),
			textArray(p.TradeStrings()),
			p.Address,
			p.City,
			p.County,
			p.State,
			p.Zip,
			p.Valuation,
			p.Applicant,
			p.Contractor,
			p.Owner,
			p.Status,
			p.Latitude,
			p.Longitude,
			p.FetchedAt,
		)
	}
	b.WriteString(permitConflictClause)
	return b.String(), args
}

// textArray renders a Postgres text[] literal.
func textArray(vals []string) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `"`, `\"`)
		b.WriteString(v)
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}

// RecentPermits returns the newest permits, optionally for one source,
// ordered by issue date (undated last) and then ingestion time.
func (s *PermitStore) RecentPermits(ctx context.Context, source string, limit int) ([]models.NormalizedPermit, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConnected
	}
	limit = clampLimit(limit)

	query := "SELECT " + selectPermitColumns + " FROM permits"
	args := []any{}
	if source != "" {
		query += " WHERE source = $1"
		args = append(args, source)
	}
	query += fmt.Sprintf(" ORDER BY issue_date DESC NULLS LAST, ingested_at DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent permits: %w", err)
	}
	defer closeRows(rows)

	out := make([]models.NormalizedPermit, 0, limit)
	for rows.Next() {
		p, err := scanPermit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate permits: %w", err)
	}
	return out, nil
}

func scanPermit(rows *sql.Rows) (models.NormalizedPermit, error) {
	var (
		p                   models.NormalizedPermit
		category, trades    string
		issued, applied     sql.NullTime
		valuation, lat, lon sql.NullFloat64
	)
	err := rows.Scan(
		&p.Source, &p.SourceRecordID, &p.PermitNumber, &issued, &applied,
		&p.Description, &category, &trades, &p.Address, &p.City, &p.County, &p.State, &p.Zip,
		&valuation, &p.Applicant, &p.Contractor, &p.Owner, &p.Status, &lat, &lon, &p.FetchedAt,
	)
	if err != nil {
		return p, fmt.Errorf("failed to scan permit: %w", err)
	}

	p.Category = models.Category(category)
	p.Trades = models.ParseTrades(strings.Split(trades, ","))
	p.IssueDate = nullTime(issued)
	p.ApplicationDate = nullTime(applied)
	p.Valuation = nullFloat(valuation)
	p.Latitude = nullFloat(lat)
	p.Longitude = nullFloat(lon)
	return p, nil
}

// Count returns the number of stored permits, optionally for one source.
func (s *PermitStore) Count(ctx context.Context, source string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrNotConnected
	}

	var (
		n   int64
		err error
	)
	if source == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM permits").Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM permits WHERE source = $1", source).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count permits: %w", err)
	}
	return n, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentLimit
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	default:
		return limit
	}
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		logging.Warn().Err(err).Msg("Failed to roll back transaction")
	}
}
