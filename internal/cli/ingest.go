// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tomtom215/leadledger/internal/logging"
	"github.com/tomtom215/leadledger/internal/mapping"
	"github.com/tomtom215/leadledger/internal/metrics"
	"github.com/tomtom215/leadledger/internal/pipeline"
)

// sinceLayouts are accepted by --since.
var sinceLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func newIngestCommand() *cobra.Command {
	var (
		all   bool
		since string
	)

	cmd := &cobra.Command{
		Use:   "ingest [source...]",
		Short: "Fetch, normalize and upsert permits",
		Long: `Ingest runs the pipeline for the named sources, or for every enabled
source with --all. Each run writes one row to the audit table. The command
exits non-zero when any run fails.`,
		Example: `  leadledger ingest austin
  leadledger ingest --all --dry-run --limit 100
  leadledger ingest dallas --since 2026-01-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return errors.New("name at least one source or pass --all")
			}
			var sinceTime *time.Time
			if since != "" {
				t, err := parseSince(since)
				if err != nil {
					return err
				}
				sinceTime = &t
			}
			return runIngest(cmd, args, all, sinceTime)
		},
	}

	addIngestFlags(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "ingest every enabled source")
	cmd.Flags().StringVar(&since, "since", "", "only fetch permits on or after DATE (YYYY-MM-DD or RFC 3339)")

	return cmd
}

func runIngest(cmd *cobra.Command, names []string, all bool, since *time.Time) error {
	ctx := cmd.Context()
	cfg := configFrom(ctx)

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	if all {
		names = mapping.Enabled(b.specs)
		if len(names) == 0 {
			return errors.New("no sources are enabled")
		}
	}
	for _, name := range names {
		if _, err := mapping.Lookup(b.specs, name); err != nil {
			return err
		}
	}

	opts := runOptions(cfg)
	opts.Since = since
	runner := b.runner(cfg, opts)

	stats, runErr := runner.RunAll(ctx, names)

	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	if err := render(cmd.OutOrStdout(), format, stats, statsView(stats)); err != nil {
		return err
	}

	pushMetrics(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job)
	return runErr
}

// pushMetrics sends run metrics to the Pushgateway when one is configured.
// A push failure does not fail the command.
func pushMetrics(ctx context.Context, url, job string) {
	if url == "" {
		return
	}
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := metrics.Push(pushCtx, url, job); err != nil {
		logging.Warn().Err(err).Msg("failed to push metrics")
	}
}

func parseSince(s string) (time.Time, error) {
	for _, layout := range sinceLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --since %q: want YYYY-MM-DD or RFC 3339", s)
}

func statsView(stats []*pipeline.Stats) tableView {
	view := tableView{
		header: table.Row{"Source", "Status", "Fetched", "Parsed", "Dropped", "Upserted", "Duration", "Error"},
	}
	var fetched, upserted int64
	for _, s := range stats {
		if s == nil {
			continue
		}
		fetched += int64(s.Fetched)
		upserted += s.Upserted
		view.rows = append(view.rows, table.Row{
			s.Source,
			s.Status,
			s.Fetched,
			s.Parsed,
			s.Dropped,
			s.Upserted,
			(time.Duration(s.DurationMS) * time.Millisecond).String(),
			deref(s.ErrorMessage),
		})
	}
	view.footer = table.Row{"Total", "", fetched, "", "", upserted, "", ""}
	return view
}
