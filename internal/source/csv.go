// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tomtom215/leadledger/internal/mapping"
)

// CSVFetcher downloads a CSV file and returns one record per data row.
type CSVFetcher struct {
	spec    mapping.SourceSpec
	http    *HTTPClient
	breaker *Breaker
}

// Kind implements Fetcher.
func (f *CSVFetcher) Kind() string { return "csv" }

// Fetch downloads the file and reads rows until EOF or q.Limit. The whole
// download counts as one request for the breaker.
func (f *CSVFetcher) Fetch(ctx context.Context, q Query) ([]map[string]any, error) {
	var out []map[string]any
	err := f.breaker.Do(func() error {
		body, err := f.http.get(ctx, f.spec.Name, f.spec.URL, nil)
		if err != nil {
			return err
		}
		defer body.Close()

		out, err = ReadCSV(body, q.Limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", f.spec.Name, err)
	}
	return out, nil
}

// ReadCSV parses a header row followed by data rows. Short rows leave
// trailing columns unset; blank lines are skipped. limit 0 reads all rows.
func ReadCSV(r io.Reader, limit int) ([]map[string]any, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var out []map[string]any
	for line := 2; limit <= 0 || len(out) < limit; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if isBlank(row) {
			continue
		}
		rec := make(map[string]any, len(header))
		for i, name := range header {
			if i < len(row) && name != "" {
				rec[name] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
