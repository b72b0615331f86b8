// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

// Package postgrest writes permits and run rows through a Supabase
// PostgREST endpoint instead of a direct Postgres connection.
package postgrest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/leadledger/internal/config"
	"github.com/tomtom215/leadledger/internal/models"
)

// permitColumns names every column of an upsert so PostgREST writes null
// for a value the body leaves out instead of keeping the stored one.
const permitColumns = "source,source_record_id,permit_number,issue_date,application_date," +
	"description,category,trades,address,city,county,state,zip,valuation," +
	"applicant,contractor,owner,status,latitude,longitude,ingested_at"

const (
	conflictTarget = "source,source_record_id"
	upsertPrefer   = "resolution=merge-duplicates,count=exact,return=minimal"
	maxErrorBody   = 64 * 1024
)

// ErrBadContentRange is returned when the count header cannot be parsed.
var ErrBadContentRange = errors.New("unparseable Content-Range")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Client talks to <url>/rest/v1.
//
// Permits go to the configured table as a bulk POST with
// on_conflict=source,source_record_id and merge-duplicates resolution, or,
// when an RPC function is configured, to /rpc/<name> as {"records": [...]}.
// Run rows are appended to the runs table. Both satisfy the interfaces the
// pipeline writes through:
//
//	client, err := postgrest.New(cfg.Supabase, cfg.Ingest.DryRun)
//	if err != nil {
//		return err
//	}
//	deps := pipeline.Deps{Writer: client, Audit: client}
type Client struct {
	base      string
	key       string
	table     string
	runsTable string
	rpc       string
	http      *http.Client
}

// New builds a client from cfg. In dry-run mode the service key may be
// empty.
func New(cfg config.SupabaseConfig, dryRun bool) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("supabase url is required")
	}
	if cfg.ServiceKey == "" && !dryRun {
		return nil, errors.New("supabase service key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	table := cfg.Table
	if table == "" {
		table = "permits"
	}
	runs := cfg.RunsTable
	if runs == "" {
		runs = "ingest_runs"
	}
	return &Client{
		base:      strings.TrimRight(cfg.URL, "/") + "/rest/v1",
		key:       cfg.ServiceKey,
		table:     table,
		runsTable: runs,
		rpc:       cfg.RPC,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

// SinkName labels upsert metrics.
func (c *Client) SinkName() string {
	return "postgrest"
}

// WriteBatch upserts batch. With an RPC function configured the function
// receives {"records": [...]} and returns the affected count; otherwise
// rows are posted to the table with merge-duplicates resolution and the
// count is read from Content-Range.
func (c *Client) WriteBatch(ctx context.Context, batch []models.NormalizedPermit) (int64, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	if c.rpc != "" {
		return c.writeRPC(ctx, batch)
	}

	q := url.Values{}
	q.Set("on_conflict", conflictTarget)
	q.Set("columns", permitColumns)
	endpoint := c.base + "/" + url.PathEscape(c.table) + "?" + q.Encode()
	resp, err := c.post(ctx, endpoint, upsertPrefer, rows(batch))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	cr := resp.Header.Get("Content-Range")
	if cr == "" {
		return int64(len(batch)), nil
	}
	return ParseContentRange(cr)
}

func (c *Client) writeRPC(ctx context.Context, batch []models.NormalizedPermit) (int64, error) {
	endpoint := c.base + "/rpc/" + url.PathEscape(c.rpc)
	resp, err := c.post(ctx, endpoint, "", map[string]any{"records": rows(batch)})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var n int64
	if err := json.NewDecoder(resp.Body).Decode(&n); err != nil {
		return 0, fmt.Errorf("failed to decode rpc %s result: %w", c.rpc, err)
	}
	return n, nil
}

// rows copies batch with nil trades replaced by an empty list, so the
// text[] column is '{}' rather than null.
func rows(batch []models.NormalizedPermit) []models.NormalizedPermit {
	out := make([]models.NormalizedPermit, len(batch))
	copy(out, batch)
	for i := range out {
		if out[i].Trades == nil {
			out[i].Trades = []models.Trade{}
		}
	}
	return out
}

// SaveRun appends one audit row to the runs table.
func (c *Client) SaveRun(ctx context.Context, run models.RunRecord) error {
	endpoint := c.base + "/" + url.PathEscape(c.runsTable)
	resp, err := c.post(ctx, endpoint, "return=minimal", run)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) post(ctx context.Context, endpoint, prefer string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.key != "" {
		req.Header.Set("apikey", c.key)
		req.Header.Set("Authorization", "Bearer "+c.key)
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Method: http.MethodPost, URL: endpoint, StatusCode: resp.StatusCode, Body: string(b)}
	}
	return resp, nil
}

// ParseContentRange extracts the row count from a PostgREST Content-Range
// header. "*/N" and "a-b/N" yield N; "a-b/*" yields b-a+1.
func ParseContentRange(v string) (int64, error) {
	rng, total, ok := strings.Cut(strings.TrimSpace(v), "/")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrBadContentRange, v)
	}
	if total != "*" {
		n, err := strconv.ParseInt(total, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q", ErrBadContentRange, v)
		}
		return n, nil
	}

	first, last, ok := strings.Cut(rng, "-")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrBadContentRange, v)
	}
	a, errA := strconv.ParseInt(first, 10, 64)
	b, errB := strconv.ParseInt(last, 10, 64)
	if errA != nil || errB != nil || b < a {
		return 0, fmt.Errorf("%w: %q", ErrBadContentRange, v)
	}
	return b - a + 1, nil
}
