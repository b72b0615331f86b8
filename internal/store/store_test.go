// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package store

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/leadledger/internal/config"
	"github.com/tomtom215/leadledger/internal/models"
)

func newMock(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func samplePermit(id string) models.NormalizedPermit {
	issued := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	val := 45000.0
	return models.NormalizedPermit{
		Source:         "austin",
		SourceRecordID: id,
		PermitNumber:   "BP-" + id,
		IssueDate:      &issued,
		Description:    "roof replacement",
		Category:       models.CategoryResidential,
		Trades:         []models.Trade{models.TradeRoofing},
		Address:        "100 Congress Ave",
		City:           "Austin",
		County:         "Travis",
		State:          "TX",
		Zip:            "78701",
		Valuation:      &val,
		FetchedAt:      time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC),
	}
}

func TestBuildDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.DatabaseConfig
		want    string
		wantErr bool
	}{
		{
			name: "url wins",
			cfg:  config.DatabaseConfig{URL: "postgres://u:p@db:5432/x", Host: "ignored"},
			want: "postgres://u:p@db:5432/x",
		},
		{
			name: "key value parts",
			cfg:  config.DatabaseConfig{Host: "db", Port: 6543, Name: "permits", User: "etl", Password: "s3cret", SSLMode: "require"},
			want: "host=db port=6543 sslmode=require dbname=permits user=etl password=s3cret",
		},
		{
			name: "defaults port and sslmode",
			cfg:  config.DatabaseConfig{Host: "localhost"},
			want: "host=localhost port=5432 sslmode=prefer",
		},
		{
			name: "quotes password with space",
			cfg:  config.DatabaseConfig{Host: "db", Password: "a b'c"},
			want: `host=db port=5432 sslmode=prefer password='a b\'c'`,
		},
		{
			name:    "nothing configured",
			cfg:     config.DatabaseConfig{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := BuildDSN(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrNotConnected))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTextArray(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "{}", textArray(nil))
	assert.Equal(t, `{"roofing","hvac"}`, textArray([]string{"roofing", "hvac"}))
	assert.Equal(t, `{"a\"b","c\\d"}`, textArray([]string{`a"b`, `c\d`}))
}

func TestPermitStore_WriteBatch(t *testing.T) {
	t.Parallel()

	t.Run("single transaction with conflict clause", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		p := samplePermit("1")

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO permits (source, source_record_id")).
			WithArgs(
				"austin", "1", "BP-1", *p.IssueDate, nil, "roof replacement", "residential",
				`{"roofing"}`, "100 Congress Ave", "Austin", "Travis", "TX", "78701", 45000.0,
				"", "", "", "", nil, nil, p.FetchedAt,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		n, err := db.Permits().WriteBatch(context.Background(), []models.NormalizedPermit{p})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("multi row statement", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		batch := []models.NormalizedPermit{samplePermit("1"), samplePermit("2"), samplePermit("3")}

		mock.ExpectBegin()
		mock.ExpectExec(`ON CONFLICT \(source, source_record_id\) DO UPDATE SET`).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectCommit()

		n, err := db.Permits().WriteBatch(context.Background(), batch)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec failure rolls back", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO permits").WillReturnError(assert.AnError)
		mock.ExpectRollback()

		n, err := db.Permits().WriteBatch(context.Background(), []models.NormalizedPermit{samplePermit("1")})
		require.Error(t, err)
		assert.ErrorIs(t, err, assert.AnError)
		assert.Zero(t, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("commit failure", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO permits").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit().WillReturnError(assert.AnError)

		_, err := db.Permits().WriteBatch(context.Background(), []models.NormalizedPermit{samplePermit("1")})
		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("large batch splits under the bind limit", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		batch := make([]models.NormalizedPermit, 3200)
		for i := range batch {
			batch[i] = samplePermit(strconv.Itoa(i))
		}

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO permits").WillReturnResult(sqlmock.NewResult(0, int64(maxRowsPerStatement)))
		mock.ExpectExec("INSERT INTO permits").WillReturnResult(sqlmock.NewResult(0, int64(3200-maxRowsPerStatement)))
		mock.ExpectCommit()

		n, err := db.Permits().WriteBatch(context.Background(), batch)
		require.NoError(t, err)
		assert.Equal(t, int64(3200), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty batch touches nothing", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)

		n, err := db.Permits().WriteBatch(context.Background(), nil)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBuildUpsert_Placeholders(t *testing.T) {
	t.Parallel()

	query, args := buildUpsert([]models.NormalizedPermit{samplePermit("1"), samplePermit("2")})
	ncol := len(permitColumns)

	assert.Len(t, args, 2*ncol)
	assert.Contains(t, query, "($1, $2, ")
	assert.Contains(t, query, "$8::text[]")
	assert.Contains(t, query, "$29::text[]")
	assert.True(t, strings.Contains(query, "$42)"), "last placeholder closes the second row")
}

func TestBuildUpsert_BindLimit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, config.MaxBatchSize, maxRowsPerStatement)

	batch := make([]models.NormalizedPermit, maxRowsPerStatement)
	for i := range batch {
		batch[i] = samplePermit(strconv.Itoa(i))
	}
	_, args := buildUpsert(batch)
	assert.LessOrEqual(t, len(args), 65535)
}

func TestPermitStore_RecentPermits(t *testing.T) {
	t.Parallel()

	columns := []string{
		"source", "source_record_id", "permit_number", "issue_date", "application_date",
		"description", "category", "trades", "address", "city", "county", "state", "zip",
		"valuation", "applicant", "contractor", "owner", "status", "latitude", "longitude", "ingested_at",
	}
	issued := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	fetched := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	t.Run("filters by source", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)

		rows := sqlmock.NewRows(columns).
			AddRow("austin", "1", "BP-1", issued, nil, "kitchen remodel electrical panel", "residential",
				"general_contractor,electrical", "1 Main St", "Austin", "Travis", "TX", "78701",
				12500.5, "", "Acme", "", "Issued", 30.27, -97.74, fetched).
			AddRow("austin", "2", "BP-2", nil, nil, "", "other",
				"", "2 Main St", "Austin", "Travis", "TX", "",
				nil, "", "", "", "", nil, nil, fetched)
		mock.ExpectQuery(`FROM permits WHERE source = \$1 ORDER BY issue_date DESC NULLS LAST, ingested_at DESC LIMIT \$2`).
			WithArgs("austin", 10).
			WillReturnRows(rows)

		got, err := db.Permits().RecentPermits(context.Background(), "austin", 10)
		require.NoError(t, err)
		require.Len(t, got, 2)

		first := got[0]
		assert.Equal(t, "BP-1", first.PermitNumber)
		assert.Equal(t, []models.Trade{models.TradeGeneralContractor, models.TradeElectrical}, first.Trades)
		require.NotNil(t, first.IssueDate)
		assert.True(t, first.IssueDate.Equal(issued))
		require.NotNil(t, first.Valuation)
		assert.InDelta(t, 12500.5, *first.Valuation, 0.001)
		require.NotNil(t, first.Latitude)

		second := got[1]
		assert.Nil(t, second.IssueDate)
		assert.Nil(t, second.Valuation)
		assert.Nil(t, second.Latitude)
		assert.Empty(t, second.Trades)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("all sources and clamped limit", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)

		mock.ExpectQuery(`FROM permits ORDER BY issue_date DESC NULLS LAST, ingested_at DESC LIMIT \$1`).
			WithArgs(MaxRecentLimit).
			WillReturnRows(sqlmock.NewRows(columns))

		got, err := db.Permits().RecentPermits(context.Background(), "", 50000)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)

		mock.ExpectQuery("FROM permits").WillReturnError(assert.AnError)

		_, err := db.Permits().RecentPermits(context.Background(), "", 0)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestPermitStore_Count(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM permits WHERE source = \$1`).
		WithArgs("dallas").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM permits$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(100))

	n, err := db.Permits().Count(context.Background(), "dallas")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	n, err = db.Permits().Count(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(100), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStore(t *testing.T) {
	t.Parallel()

	started := time.Date(2024, 3, 2, 6, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)
	msg := "fetch austin: status 503"

	t.Run("save run", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)

		run := models.RunRecord{
			RunID:        "6f1c2d7e-0000-4000-8000-000000000001",
			Source:       "austin",
			StartedAt:    started,
			FinishedAt:   finished,
			DurationMS:   90000,
			Errors:       1,
			Status:       models.RunError,
			ErrorMessage: &msg,
		}
		mock.ExpectExec("INSERT INTO ingest_runs").
			WithArgs(run.RunID, "austin", started, finished, int64(90000),
				0, 0, 0, int64(0), 1, "error", msg, nil, nil, false).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, db.Runs().SaveRun(context.Background(), run))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("recent runs", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)

		cols := []string{
			"run_id", "source", "started_at", "finished_at", "duration_ms",
			"fetched", "parsed", "dropped", "upserted", "errors",
			"status", "error_message", "min_issue_date", "max_issue_date", "dry_run",
		}
		mock.ExpectQuery(`FROM ingest_runs ORDER BY started_at DESC LIMIT \$1`).
			WithArgs(DefaultRecentLimit).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("r2", "austin", started, finished, 90000, 0, 0, 0, 0, 1, "error", msg, nil, nil, false).
				AddRow("r1", "dallas", started, finished, 1000, 10, 9, 1, 9, 0, "partial", nil, started, finished, true))

		runs, err := db.Runs().RecentRuns(context.Background(), "", 0)
		require.NoError(t, err)
		require.Len(t, runs, 2)

		assert.Equal(t, models.RunError, runs[0].Status)
		require.NotNil(t, runs[0].ErrorMessage)
		assert.Equal(t, msg, *runs[0].ErrorMessage)
		assert.Nil(t, runs[0].MinIssueDate)

		assert.Equal(t, models.RunPartial, runs[1].Status)
		assert.Nil(t, runs[1].ErrorMessage)
		assert.NotNil(t, runs[1].MaxIssueDate)
		assert.True(t, runs[1].DryRun)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNotConnected(t *testing.T) {
	t.Parallel()

	var db *DB
	assert.NoError(t, db.Close())
	assert.ErrorIs(t, db.Migrate(context.Background()), ErrNotConnected)

	var ps *PermitStore
	_, err := ps.WriteBatch(context.Background(), []models.NormalizedPermit{samplePermit("1")})
	assert.ErrorIs(t, err, ErrNotConnected)

	var rs *RunStore
	assert.ErrorIs(t, rs.SaveRun(context.Background(), models.RunRecord{}), ErrNotConnected)
}

func TestDB_Close(t *testing.T) {
	t.Parallel()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	assert.NoError(t, New(sqlDB).Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
