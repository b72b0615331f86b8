// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRunRecordFinish(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)

	tests := []struct {
		name       string
		dropped    int
		err        error
		wantStatus RunStatus
		wantMsg    bool
	}{
		{"clean run", 0, nil, RunSuccess, false},
		{"dropped records", 3, nil, RunPartial, false},
		{"failed run", 3, errors.New("fetch austin: status 503"), RunError, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := RunRecord{StartedAt: start, Dropped: tt.dropped}
			r.Finish(end, tt.err)

			if r.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", r.Status, tt.wantStatus)
			}
			if r.DurationMS != 1500 {
				t.Errorf("duration = %d, want 1500", r.DurationMS)
			}
			if tt.wantMsg {
				if r.ErrorMessage == nil || *r.ErrorMessage != tt.err.Error() {
					t.Errorf("unexpected error message: %v", r.ErrorMessage)
				}
				if r.Errors != 1 {
					t.Errorf("errors = %d, want 1", r.Errors)
				}
			} else if r.ErrorMessage != nil {
				t.Errorf("expected nil error message, got %q", *r.ErrorMessage)
			}
		})
	}
}

func TestPermitTrades(t *testing.T) {
	t.Parallel()

	p := NormalizedPermit{Source: "austin", SourceRecordID: "2024-001", Trades: []Trade{TradeRoofing, TradeHVAC}}
	if !p.HasTrade(TradeRoofing) || p.HasTrade(TradePlumbing) {
		t.Errorf("HasTrade mismatch for %v", p.Trades)
	}
	if diff := cmp.Diff([]string{"roofing", "hvac"}, p.TradeStrings()); diff != "" {
		t.Errorf("TradeStrings mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(p.Trades, ParseTrades([]string{"roofing", " ", "hvac"})); diff != "" {
		t.Errorf("ParseTrades mismatch (-want +got):\n%s", diff)
	}
	if p.Key() == (&NormalizedPermit{Source: "austi", SourceRecordID: "n2024-001"}).Key() {
		t.Error("keys must not collide across source boundary")
	}
}
