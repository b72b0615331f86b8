// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package cli

import (
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tomtom215/leadledger/internal/models"
	"github.com/tomtom215/leadledger/internal/store"
)

// descriptionWidth truncates descriptions in table output.
const descriptionWidth = 48

func newRecentCommand() *cobra.Command {
	var (
		sourceName string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the most recently issued permits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := openStore(ctx, configFrom(ctx))
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			permits, err := db.Permits().RecentPermits(ctx, sourceName, limit)
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format, permits, permitsView(permits))
		},
	}

	cmd.Flags().StringVar(&sourceName, "source", "", "only permits from this source")
	cmd.Flags().IntVar(&limit, "limit", store.DefaultRecentLimit, "number of permits to show")
	return cmd
}

func newRunsCommand() *cobra.Command {
	var (
		sourceName string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent ingestion runs from the audit table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := openStore(ctx, configFrom(ctx))
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			runs, err := db.Runs().RecentRuns(ctx, sourceName, limit)
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format, runs, runsView(runs))
		},
	}

	cmd.Flags().StringVar(&sourceName, "source", "", "only runs of this source")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	return cmd
}

func permitsView(permits []models.NormalizedPermit) tableView {
	view := tableView{
		header: table.Row{"Source", "Permit", "Issued", "Category", "Trades", "Address", "Valuation", "Description"},
	}
	for i := range permits {
		p := &permits[i]
		view.rows = append(view.rows, table.Row{
			p.Source,
			p.PermitNumber,
			formatTime(p.IssueDate),
			p.Category,
			strings.Join(p.TradeStrings(), ","),
			p.Address,
			formatFloat(p.Valuation),
			truncate(p.Description, descriptionWidth),
		})
	}
	return view
}

func runsView(runs []models.RunRecord) tableView {
	view := tableView{
		header: table.Row{"Started", "Source", "Status", "Fetched", "Dropped", "Upserted", "Duration", "Dry run", "Error"},
	}
	for _, r := range runs {
		view.rows = append(view.rows, table.Row{
			r.StartedAt.UTC().Format(time.RFC3339),
			r.Source,
			r.Status,
			r.Fetched,
			r.Dropped,
			r.Upserted,
			(time.Duration(r.DurationMS) * time.Millisecond).String(),
			r.DryRun,
			truncate(deref(r.ErrorMessage), descriptionWidth),
		})
	}
	return view
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
