// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tomtom215/leadledger/internal/logging"
	"github.com/tomtom215/leadledger/internal/mapping"
)

// socrataTimeLayout is the SoQL floating timestamp format.
const socrataTimeLayout = "2006-01-02T15:04:05.000"

// SocrataFetcher pages through a SODA resource endpoint.
type SocrataFetcher struct {
	spec    mapping.SourceSpec
	http    *HTTPClient
	breaker *Breaker
}

// Kind implements Fetcher.
func (f *SocrataFetcher) Kind() string { return "socrata" }

// Fetch requests pages of q.pageSize() records, newest first, until a short
// page arrives or q.Limit is reached.
func (f *SocrataFetcher) Fetch(ctx context.Context, q Query) ([]map[string]any, error) {
	pageSize := q.pageSize()
	header := http.Header{}
	if f.spec.AppToken != "" {
		header.Set("X-App-Token", f.spec.AppToken)
	}

	var out []map[string]any
	for offset := 0; ; {
		reqURL := f.pageURL(q, pageSize, offset)

		var page []map[string]any
		err := f.breaker.Do(func() error {
			return f.http.getJSON(ctx, f.spec.Name, reqURL, header, &page)
		})
		if err != nil {
			return nil, fmt.Errorf("fetch %s page at offset %d: %w", f.spec.Name, offset, err)
		}

		out = append(out, page...)
		logging.Debug().Str("source", f.spec.Name).Int("offset", offset).Int("page", len(page)).Msg("Fetched Socrata page")

		if len(page) < pageSize || q.done(len(out)) {
			break
		}
		offset += len(page)
	}
	return truncate(out, q), nil
}

func (f *SocrataFetcher) pageURL(q Query, pageSize, offset int) string {
	params := url.Values{}
	params.Set("$limit", strconv.Itoa(pageSize))
	params.Set("$offset", strconv.Itoa(offset))
	if f.spec.DateField != "" {
		params.Set("$order", f.spec.DateField+" DESC")
	}
	if where := f.where(q); where != "" {
		params.Set("$where", where)
	}

	sep := "?"
	if strings.Contains(f.spec.URL, "?") {
		sep = "&"
	}
	return f.spec.URL + sep + params.Encode()
}

func (f *SocrataFetcher) where(q Query) string {
	var clauses []string
	if f.spec.Where != "" {
		clauses = append(clauses, f.spec.Where)
	}
	if q.Since != nil && f.spec.DateField != "" {
		clauses = append(clauses, fmt.Sprintf("%s >= '%s'", f.spec.DateField, q.Since.UTC().Format(socrataTimeLayout)))
	}
	return joinClauses(clauses)
}

// joinClauses ANDs filter clauses, parenthesizing when there are several.
func joinClauses(clauses []string) string {
	switch len(clauses) {
	case 0:
		return ""
	case 1:
		return clauses[0]
	default:
		return "(" + strings.Join(clauses, ") AND (") + ")"
	}
}
