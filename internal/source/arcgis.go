// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tomtom215/leadledger/internal/logging"
	"github.com/tomtom215/leadledger/internal/mapping"
)

// Geometry coordinates are added to attributes under these keys.
const (
	GeometryXKey = "_x"
	GeometryYKey = "_y"
)

// ArcGISFetcher queries a FeatureServer or MapServer layer.
type ArcGISFetcher struct {
	spec    mapping.SourceSpec
	http    *HTTPClient
	breaker *Breaker
}

type arcgisResponse struct {
	Features []arcgisFeature `json:"features"`
	// ExceededTransferLimit is set when more records match than were returned.
	ExceededTransferLimit bool         `json:"exceededTransferLimit"`
	Error                 *arcgisError `json:"error"`
}

type arcgisFeature struct {
	Attributes map[string]any  `json:"attributes"`
	Geometry   *arcgisGeometry `json:"geometry"`
}

type arcgisGeometry struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// arcgisError is reported by ArcGIS inside a 200 response.
type arcgisError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

func (e *arcgisError) Error() string {
	msg := fmt.Sprintf("arcgis error %d: %s", e.Code, e.Message)
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	return msg
}

// Kind implements Fetcher.
func (f *ArcGISFetcher) Kind() string { return "arcgis" }

// Fetch pages with resultOffset while the server reports
// exceededTransferLimit.
func (f *ArcGISFetcher) Fetch(ctx context.Context, q Query) ([]map[string]any, error) {
	pageSize := q.pageSize()

	var out []map[string]any
	for offset := 0; ; {
		reqURL := f.pageURL(q, pageSize, offset)

		var resp arcgisResponse
		err := f.breaker.Do(func() error {
			if err := f.http.getJSON(ctx, f.spec.Name, reqURL, nil, &resp); err != nil {
				return err
			}
			if resp.Error != nil {
				return resp.Error
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("fetch %s page at offset %d: %w", f.spec.Name, offset, err)
		}

		for _, feat := range resp.Features {
			out = append(out, flattenFeature(feat))
		}
		logging.Debug().Str("source", f.spec.Name).Int("offset", offset).Int("page", len(resp.Features)).Msg("Fetched ArcGIS page")

		if !resp.ExceededTransferLimit || len(resp.Features) == 0 || q.done(len(out)) {
			break
		}
		offset += len(resp.Features)
	}
	return truncate(out, q), nil
}

func (f *ArcGISFetcher) pageURL(q Query, pageSize, offset int) string {
	params := url.Values{}
	params.Set("where", f.where(q))
	params.Set("outFields", "*")
	params.Set("returnGeometry", "true")
	params.Set("outSR", "4326")
	params.Set("f", "json")
	params.Set("resultOffset", strconv.Itoa(offset))
	params.Set("resultRecordCount", strconv.Itoa(pageSize))
	if f.spec.DateField != "" {
		params.Set("orderByFields", f.spec.DateField+" DESC")
	}
	return strings.TrimRight(f.spec.URL, "/") + "/query?" + params.Encode()
}

func (f *ArcGISFetcher) where(q Query) string {
	var clauses []string
	if f.spec.Where != "" {
		clauses = append(clauses, f.spec.Where)
	}
	if q.Since != nil && f.spec.DateField != "" {
		clauses = append(clauses, fmt.Sprintf("%s >= TIMESTAMP '%s'", f.spec.DateField, q.Since.UTC().Format("2006-01-02 15:04:05")))
	}
	if w := joinClauses(clauses); w != "" {
		return w
	}
	return "1=1"
}

func flattenFeature(feat arcgisFeature) map[string]any {
	rec := make(map[string]any, len(feat.Attributes)+2)
	for k, v := range feat.Attributes {
		rec[k] = v
	}
	if feat.Geometry != nil {
		if feat.Geometry.X != nil {
			rec[GeometryXKey] = *feat.Geometry.X
		}
		if feat.Geometry.Y != nil {
			rec[GeometryYKey] = *feat.Geometry.Y
		}
	}
	return rec
}
