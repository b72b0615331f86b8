// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package source

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/leadledger/internal/mapping"
)

// DefaultPageSize is used when Query.PageSize is zero.
const DefaultPageSize = 1000

// Query bounds a fetch.
type Query struct {
	// Since, when set, restricts the fetch to records dated on or after it.
	// CSV sources ignore it.
	Since *time.Time
	// Limit caps the total number of records; 0 means no cap.
	Limit int
	// PageSize is the number of records requested per page.
	PageSize int
}

func (q Query) pageSize() int {
	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if q.Limit > 0 && q.Limit < size {
		size = q.Limit
	}
	return size
}

// done reports whether n records satisfy the limit.
func (q Query) done(n int) bool {
	return q.Limit > 0 && n >= q.Limit
}

// Fetcher retrieves raw records from one source.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) ([]map[string]any, error)
	Kind() string
}

// Deps are the shared resources fetchers draw on.
type Deps struct {
	HTTP     *HTTPClient
	Breakers *BreakerSet
}

// New returns the fetcher for spec.Kind.
func New(spec mapping.SourceSpec, deps Deps) (Fetcher, error) {
	if deps.HTTP == nil || deps.Breakers == nil {
		return nil, fmt.Errorf("source %s: http client and breakers are required", spec.Name)
	}
	b := deps.Breakers.Get(spec.Name)
	switch spec.Kind {
	case "socrata":
		return &SocrataFetcher{spec: spec, http: deps.HTTP, breaker: b}, nil
	case "arcgis":
		return &ArcGISFetcher{spec: spec, http: deps.HTTP, breaker: b}, nil
	case "csv":
		return &CSVFetcher{spec: spec, http: deps.HTTP, breaker: b}, nil
	default:
		return nil, fmt.Errorf("source %s: unsupported kind %q", spec.Name, spec.Kind)
	}
}

// truncate trims records to the query limit.
func truncate(records []map[string]any, q Query) []map[string]any {
	if q.Limit > 0 && len(records) > q.Limit {
		return records[:q.Limit]
	}
	return records
}
