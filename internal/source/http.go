// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/leadledger/internal/config"
	"github.com/tomtom215/leadledger/internal/metrics"
)

// maxErrorBody caps how much of a failed response is kept for the error.
const maxErrorBody = 64 * 1024

// HTTPError is returned for non-200 responses.
type HTTPError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// HTTPClient is the outbound client shared by all fetchers.
type HTTPClient struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewHTTPClient builds a client from cfg. A zero RequestsPerSecond
// disables rate limiting.
func NewHTTPClient(cfg config.HTTPConfig) *HTTPClient {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &HTTPClient{
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: cfg.UserAgent,
	}
}

// get waits for the rate limiter, issues a GET and returns the body of a
// 200 response. The caller closes it.
func (c *HTTPClient) get(ctx context.Context, source, reqURL string, header http.Header) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordFetchRequest(source, "error", time.Since(start))
		return nil, fmt.Errorf("request failed: %w", err)
	}
	metrics.RecordFetchRequest(source, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, &HTTPError{URL: reqURL, StatusCode: resp.StatusCode, Body: string(readBodyForError(resp.Body))}
	}
	return resp.Body, nil
}

// getJSON issues a GET and decodes the JSON body into out.
func (c *HTTPClient) getJSON(ctx context.Context, source, reqURL string, header http.Header, out any) error {
	body, err := c.get(ctx, source, reqURL, header)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// readBodyForError reads at most maxErrorBody bytes of a failed response.
func readBodyForError(body io.Reader) []byte {
	b, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return b
}
