// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package mapping

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tomtom215/leadledger/internal/models"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testMapper(t *testing.T, name string) *Mapper {
	t.Helper()
	spec, ok := Builtin()[name]
	if !ok {
		t.Fatalf("builtin source %q missing", name)
	}
	return NewMapper(spec, WithClock(func() time.Time { return fixedNow }))
}

func ptrFloat(f float64) *float64 { return &f }

func ptrTime(t time.Time) *time.Time { return &t }

func TestMapAustin(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"permit_number":           "2024-012345 BP",
		"issue_date":              "2024-05-01T00:00:00.000",
		"applieddate":             "2024-04-12T00:00:00.000",
		"description":             "Kitchen remodel and new electrical panel",
		"permit_class_mapped":     "Residential",
		"original_address1":       " 1200 BARTON SPRINGS RD ",
		"original_zip":            "78704",
		"total_job_valuation":     "45,000.00",
		"contractor_company_name": "Lone Star Builders",
		"status_current":          "Active",
		"latitude":                "30.2611",
		"longitude":               "-97.7596",
	}

	got := testMapper(t, "austin").Map(raw)
	want := models.NormalizedPermit{
		Source:          "austin",
		SourceRecordID:  "2024-012345 BP",
		PermitNumber:    "2024-012345 BP",
		IssueDate:       ptrTime(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
		ApplicationDate: ptrTime(time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC)),
		Description:     "Kitchen remodel and new electrical panel",
		Category:        models.CategoryResidential,
		Trades:          []models.Trade{models.TradeElectrical, models.TradeGeneralContractor},
		Address:         "1200 BARTON SPRINGS RD",
		City:            "Austin",
		County:          "Travis",
		State:           "TX",
		Zip:             "78704",
		Valuation:       ptrFloat(45000),
		Contractor:      "Lone Star Builders",
		Status:          "Active",
		Latitude:        ptrFloat(30.2611),
		Longitude:       ptrFloat(-97.7596),
		FetchedAt:       fixedNow,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Map mismatch (-want +got):\n%s", diff)
	}
}

func TestMapMissingAddress(t *testing.T) {
	t.Parallel()

	m := testMapper(t, "dallas")
	got := m.Map(map[string]any{
		"permit_number":    "BP-99",
		"work_description": "roof replacement",
	})

	if got.Address != "" {
		t.Errorf("expected empty address, got %q", got.Address)
	}
	if got.Source != "dallas" {
		t.Errorf("expected source dallas, got %q", got.Source)
	}
	if diff := cmp.Diff([]models.Trade{models.TradeRoofing}, got.Trades); diff != "" {
		t.Errorf("trades mismatch:\n%s", diff)
	}
	if err := Validate(&got); err != nil {
		t.Errorf("permit number alone should be valid: %v", err)
	}
}

func TestMapNeverPanics(t *testing.T) {
	t.Parallel()

	inputs := []map[string]any{
		nil,
		{},
		{"permit_number": nil, "issue_date": 12, "value": []any{1, 2}},
		{"street_address": map[string]any{"human_address": "{}"}, "value": true},
		{"issued_date": "not a date", "value": "N/A", "zip_code": 75201.0},
	}
	m := testMapper(t, "dallas")
	for _, raw := range inputs {
		p := m.Map(raw)
		if p.Source != "dallas" {
			t.Errorf("source missing for %v", raw)
		}
		if p.Trades == nil {
			t.Errorf("trades nil for %v", raw)
		}
		if p.IssueDate != nil {
			t.Errorf("expected nil issue date for %v, got %v", raw, p.IssueDate)
		}
	}
}

func TestMapValuation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want *float64
	}{
		{"45,000.00", ptrFloat(45000)},
		{"$1,200", ptrFloat(1200)},
		{" 350 ", ptrFloat(350)},
		{12500.5, ptrFloat(12500.5)},
		{"0", ptrFloat(0)},
		{"TBD", nil},
		{"", nil},
		{"-5", nil},
		{nil, nil},
	}
	m := testMapper(t, "dallas")
	for _, tt := range tests {
		got := m.Map(map[string]any{"permit_number": "X", "value": tt.in}).Valuation
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("valuation for %#v mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestMapHoustonArcGIS(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"OBJECTID":    float64(88213),
		"PROJ_NO":     "24012345",
		"ISSUE_DATE":  float64(1714521600000),
		"PROJ_DESC":   "RES REROOF",
		"STREET_NUM":  float64(4410),
		"STREET_NAME": "MONTROSE BLVD",
		"ZIP":         float64(77006),
		"VALUATION":   float64(18000),
		"_x":          -95.3905,
		"_y":          29.7339,
	}
	got := testMapper(t, "houston").Map(raw)

	if got.SourceRecordID != "88213" {
		t.Errorf("SourceRecordID = %q, want 88213", got.SourceRecordID)
	}
	if got.PermitNumber != "24012345" {
		t.Errorf("PermitNumber = %q", got.PermitNumber)
	}
	if got.Address != "4410 MONTROSE BLVD" {
		t.Errorf("joined address = %q", got.Address)
	}
	if got.Zip != "77006" {
		t.Errorf("Zip = %q", got.Zip)
	}
	if got.IssueDate == nil || !got.IssueDate.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("IssueDate from epoch ms = %v", got.IssueDate)
	}
	if got.Category != models.CategoryResidential {
		t.Errorf("Category = %s", got.Category)
	}
	if got.Latitude == nil || *got.Latitude != 29.7339 {
		t.Errorf("Latitude = %v", got.Latitude)
	}
}

func TestMapHarrisCSV(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"permit number":       "HC-2024-77",
		"Issue Date":          "5/1/2024",
		"Project Description": "New single family home build",
		"Street Address":      "100 Main St",
		"City":                "Katy",
		"Estimated Value":     "$310,000",
	}
	got := testMapper(t, "harris").Map(raw)

	if got.PermitNumber != "HC-2024-77" {
		t.Errorf("case-insensitive header lookup failed: %q", got.PermitNumber)
	}
	if got.City != "Katy" || got.County != "Harris" || got.State != "TX" {
		t.Errorf("location defaults wrong: %s/%s/%s", got.City, got.County, got.State)
	}
	if got.IssueDate == nil || got.IssueDate.Format("2006-01-02") != "2024-05-01" {
		t.Errorf("IssueDate = %v", got.IssueDate)
	}
	if diff := cmp.Diff([]models.Trade{models.TradeGeneralContractor}, got.Trades); diff != "" {
		t.Errorf("trades mismatch:\n%s", diff)
	}
}

func TestSyntheticIDStable(t *testing.T) {
	t.Parallel()

	spec := SourceSpec{
		Name: "nokey",
		Kind: "csv",
		URL:  "https://example.org/p.csv",
		Fields: map[Field][]string{
			FieldAddress:     {"addr"},
			FieldDescription: {"desc"},
		},
	}
	m := NewMapper(spec)
	raw := map[string]any{"addr": "1 Elm St", "desc": "deck"}
	a, b := m.Map(raw), m.Map(raw)
	if a.SourceRecordID == "" || a.SourceRecordID != b.SourceRecordID {
		t.Errorf("synthetic ids not stable: %q vs %q", a.SourceRecordID, b.SourceRecordID)
	}
	other := m.Map(map[string]any{"addr": "2 Elm St", "desc": "deck"})
	if other.SourceRecordID == a.SourceRecordID {
		t.Error("different addresses must yield different ids")
	}
}

func TestMapAllDropsInvalid(t *testing.T) {
	t.Parallel()

	m := testMapper(t, "dallas")
	kept, dropped := m.MapAll([]map[string]any{
		{"permit_number": "A1", "street_address": "1 Main"},
		{"work_description": "roof"},
		{"street_address": "5 Oak"},
		{"permit_number": "  "},
	})
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if len(kept) != 2 {
		t.Fatalf("kept = %d, want 2", len(kept))
	}
	if kept[1].SourceRecordID == "" {
		t.Error("address-only permit should receive a synthetic id")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	p := models.NormalizedPermit{Source: "austin", Category: models.CategoryOther}
	err := Validate(&p)
	if !errors.Is(err, ErrInvalidPermit) {
		t.Fatalf("expected ErrInvalidPermit, got %v", err)
	}

	neg := -1.0
	p = models.NormalizedPermit{Source: "austin", SourceRecordID: "1", PermitNumber: "1", Category: models.CategoryOther, Valuation: &neg}
	if err := Validate(&p); err == nil {
		t.Error("negative valuation must fail validation")
	}
}
