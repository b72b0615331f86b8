// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tomtom215/leadledger/internal/mapping"
)

// sourceInfo is the listing form of a SourceSpec.
type sourceInfo struct {
	Name      string `json:"name" yaml:"name"`
	Kind      string `json:"kind" yaml:"kind"`
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	City      string `json:"city,omitempty" yaml:"city,omitempty"`
	County    string `json:"county,omitempty" yaml:"county,omitempty"`
	Interval  string `json:"interval" yaml:"interval"`
	DateField string `json:"date_field,omitempty" yaml:"date_field,omitempty"`
	URL       string `json:"url" yaml:"url"`
}

func newSourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List configured permit sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			specs, err := mapping.Resolve(configFrom(cmd.Context()))
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			infos := sourceInfos(specs)
			return render(cmd.OutOrStdout(), format, infos, sourcesView(infos))
		},
	}
}

func sourceInfos(specs map[string]mapping.SourceSpec) []sourceInfo {
	names := mapping.Names(specs)
	out := make([]sourceInfo, 0, len(names))
	for _, name := range names {
		s := specs[name]
		out = append(out, sourceInfo{
			Name:      s.Name,
			Kind:      s.Kind,
			Enabled:   s.Enabled,
			City:      s.City,
			County:    s.County,
			Interval:  s.Interval.String(),
			DateField: s.DateField,
			URL:       s.URL,
		})
	}
	return out
}

func sourcesView(infos []sourceInfo) tableView {
	view := tableView{header: table.Row{"Name", "Kind", "Enabled", "City", "County", "Interval", "URL"}}
	for _, s := range infos {
		view.rows = append(view.rows, table.Row{s.Name, s.Kind, s.Enabled, s.City, s.County, s.Interval, s.URL})
	}
	return view
}
