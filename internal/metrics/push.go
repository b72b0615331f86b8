// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the default registry to a Pushgateway. Cron-driven ingest
// runs exit before any scraper could see them, so they push instead.
func Push(ctx context.Context, url, job string) error {
	return PushGatherer(ctx, url, job, prometheus.DefaultGatherer)
}

// PushGatherer pushes g to the Pushgateway at url under job, replacing
// earlier metrics of the same job.
func PushGatherer(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
