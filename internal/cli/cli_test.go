// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/tomtom215/leadledger/internal/models"
	"github.com/tomtom215/leadledger/internal/pipeline"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeConfig writes a YAML config file and returns its path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leadledger.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	for _, want := range []string{"leadledger " + Version, "commit:", "go:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q, got: %s", want, out)
		}
	}
}

func TestSourcesCommand(t *testing.T) {
	cfg := writeConfig(t, "logging:\n  level: error\n")

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "sources", "--config", cfg, "-o", "json")
		if err != nil {
			t.Fatalf("sources: %v", err)
		}
		var infos []sourceInfo
		if err := json.Unmarshal([]byte(out), &infos); err != nil {
			t.Fatalf("decode output: %v\n%s", err, out)
		}
		names := make(map[string]bool)
		for _, s := range infos {
			names[s.Name] = true
		}
		for _, want := range []string{"austin", "dallas", "houston", "harris", "fortworth"} {
			if !names[want] {
				t.Errorf("sources output missing %q", want)
			}
		}
	})

	t.Run("yaml", func(t *testing.T) {
		out, err := execute(t, "sources", "--config", cfg, "-o", "yaml")
		if err != nil {
			t.Fatalf("sources: %v", err)
		}
		var infos []sourceInfo
		if err := yaml.Unmarshal([]byte(out), &infos); err != nil {
			t.Fatalf("decode output: %v\n%s", err, out)
		}
		if len(infos) < 5 {
			t.Errorf("got %d sources, want at least 5", len(infos))
		}
	})

	t.Run("csv when not a terminal", func(t *testing.T) {
		out, err := execute(t, "sources", "--config", cfg)
		if err != nil {
			t.Fatalf("sources: %v", err)
		}
		if !strings.HasPrefix(out, "Name,Kind,Enabled") {
			t.Errorf("output should start with a CSV header, got: %s", out)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, err := execute(t, "sources", "--config", cfg, "-o", "xml"); err == nil {
			t.Error("expected error for unknown output format")
		}
	})
}

func TestIngestRequiresSource(t *testing.T) {
	cfg := writeConfig(t, "logging:\n  level: error\n")
	_, err := execute(t, "ingest", "--config", cfg, "--dry-run")
	if err == nil || !strings.Contains(err.Error(), "--all") {
		t.Errorf("error = %v, want a hint about --all", err)
	}
}

func TestIngestDryRun(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"permit_num": "BP-1", "addr": "100 Main St", "desc": "roof replacement", "issued": "2026-03-01"},
			{"permit_num": "BP-2", "addr": "200 Elm St", "desc": "kitchen remodel", "issued": "2026-03-02"}
		]`))
	}))
	defer srv.Close()

	cfg := writeConfig(t, `logging:
  level: error
http:
  requests_per_second: 100
  burst: 10
sources:
  local:
    kind: socrata
    url: `+srv.URL+`
    city: Testville
    fields:
      permit_number: [permit_num]
      address: [addr]
      description: [desc]
      issue_date: [issued]
`)

	out, err := execute(t, "ingest", "local", "--config", cfg, "--dry-run", "-o", "json")
	if err != nil {
		t.Fatalf("ingest: %v\n%s", err, out)
	}

	var stats []pipeline.Stats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(stats) != 1 {
		t.Fatalf("got %d results, want 1", len(stats))
	}
	got := stats[0]
	if got.Source != "local" || got.Status != models.RunSuccess {
		t.Errorf("result = %+v, want local/success", got.RunRecord)
	}
	if got.Fetched != 2 || got.Upserted != 2 || !got.DryRun {
		t.Errorf("fetched=%d upserted=%d dry_run=%v, want 2/2/true", got.Fetched, got.Upserted, got.DryRun)
	}
}

func TestIngestDryRunPostgRESTWithoutKey(t *testing.T) {
	t.Setenv("SUPABASE_SERVICE_KEY", "")

	permitsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"permit_num": "BP-9", "addr": "9 Oak St", "desc": "water heater"}]`))
	}))
	defer permitsSrv.Close()

	var sinkCalls atomic.Int32
	sinkSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		sinkCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer sinkSrv.Close()

	cfg := writeConfig(t, `logging:
  level: error
sink: postgrest
supabase:
  url: `+sinkSrv.URL+`
sources:
  local:
    kind: socrata
    url: `+permitsSrv.URL+`
    fields:
      permit_number: [permit_num]
      address: [addr]
      description: [desc]
`)

	out, err := execute(t, "ingest", "local", "--config", cfg, "--dry-run", "-o", "json")
	if err != nil {
		t.Fatalf("ingest: %v\n%s", err, out)
	}
	if n := sinkCalls.Load(); n != 0 {
		t.Errorf("sink received %d requests during a keyless dry run, want 0", n)
	}
}

func TestIngestUnknownSource(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg := writeConfig(t, "logging:\n  level: error\n")

	_, err := execute(t, "ingest", "nowhere", "--config", cfg, "--dry-run")
	if err == nil || !strings.Contains(err.Error(), "unknown source") {
		t.Errorf("error = %v, want unknown source", err)
	}
}

func TestParseSince(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2026-01-15", want: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		{in: "2026-01-15T08:30:00", want: time.Date(2026, 1, 15, 8, 30, 0, 0, time.UTC)},
		{in: "2026-01-15T08:30:00-06:00", want: time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC)},
		{in: "15/01/2026", wantErr: true},
		{in: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := parseSince(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSince(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("parseSince(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRenderFormats(t *testing.T) {
	t.Parallel()

	msg := "fetch austin: timeout"
	stats := []*pipeline.Stats{
		{RunRecord: models.RunRecord{Source: "austin", Status: models.RunSuccess, Fetched: 10, Parsed: 10, Upserted: 10}},
		nil,
		{RunRecord: models.RunRecord{Source: "dallas", Status: models.RunError, ErrorMessage: &msg}},
	}
	view := statsView(stats)

	tests := []struct {
		format string
		want   []string
	}{
		{format: outputCSV, want: []string{"Source,Status", "austin,success,10", "dallas,error", "Total"}},
		{format: outputMarkdown, want: []string{"| Source | Status |", "| austin | success |"}},
		{format: outputTable, want: []string{"austin", "fetch austin: timeout", "Total"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			if err := render(&buf, tt.format, stats, view); err != nil {
				t.Fatalf("render: %v", err)
			}
			// Table styles upper-case headers and footers.
			got := strings.ToLower(buf.String())
			for _, want := range tt.want {
				if !strings.Contains(got, strings.ToLower(want)) {
					t.Errorf("%s output should contain %q, got:\n%s", tt.format, want, buf.String())
				}
			}
		})
	}
}

func TestPermitsView(t *testing.T) {
	t.Parallel()

	issued := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	val := 45000.0
	permits := []models.NormalizedPermit{{
		Source:       "austin",
		PermitNumber: "2026-001",
		IssueDate:    &issued,
		Category:     models.CategoryResidential,
		Trades:       []models.Trade{models.TradeRoofing, models.TradeElectrical},
		Address:      "1 Congress Ave",
		Valuation:    &val,
		Description:  strings.Repeat("x", 100),
	}}

	view := permitsView(permits)
	if len(view.rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(view.rows))
	}
	row := view.rows[0]
	want := table.Row{"austin", "2026-001", "2026-02-03", models.CategoryResidential, "roofing,electrical", "1 Congress Ave", "45000.00"}
	for i, w := range want {
		if row[i] != w {
			t.Errorf("column %d = %v, want %v", i, row[i], w)
		}
	}
	if desc := row[7].(string); len([]rune(desc)) != descriptionWidth {
		t.Errorf("description has %d runes, want %d", len([]rune(desc)), descriptionWidth)
	}
}
