// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

const (
	outputAuto     = "auto"
	outputTable    = "table"
	outputCSV      = "csv"
	outputMarkdown = "markdown"
	outputJSON     = "json"
	outputYAML     = "yaml"
)

var outputFormats = []string{outputAuto, outputTable, outputCSV, outputMarkdown, outputJSON, outputYAML}

// outputFormat returns the --output value with auto resolved: a terminal
// gets a table, anything else gets CSV.
func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("output")
	switch format {
	case "", outputAuto:
		if isTerminal(cmd.OutOrStdout()) {
			return outputTable, nil
		}
		return outputCSV, nil
	case outputTable, outputCSV, outputMarkdown, outputJSON, outputYAML:
		return format, nil
	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// tableView is the tabular form of a command result.
type tableView struct {
	header table.Row
	rows   []table.Row
	footer table.Row
}

// render writes data in format. Tabular formats use view; json and yaml
// encode data itself.
func render(w io.Writer, format string, data any, view tableView) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(view.header)
	t.AppendRows(view.rows)
	if view.footer != nil {
		t.AppendFooter(view.footer)
	}
	switch format {
	case outputCSV:
		t.RenderCSV()
	case outputMarkdown:
		t.RenderMarkdown()
	default:
		t.SetStyle(table.StyleLight)
		t.Render()
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *f)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
