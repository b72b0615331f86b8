// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package pipeline

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/leadledger/internal/mapping"
)

// RunAll runs each named source, at most Options.MaxParallel at a time.
// One source failing does not stop the others; the returned error joins
// every failure. Results are in the order of names.
func (r *Runner) RunAll(ctx context.Context, names []string) ([]*Stats, error) {
	limit := r.opts.MaxParallel
	if limit < 1 {
		limit = 1
	}

	results := make([]*Stats, len(names))
	errs := make([]error, len(names))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			results[i], errs[i] = r.Run(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

// EnabledSources returns the enabled source names in sorted order.
func (r *Runner) EnabledSources() []string {
	return mapping.Enabled(r.specs)
}
