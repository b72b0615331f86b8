// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package validation

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	Source       string   `json:"source" validate:"required"`
	PermitNumber string   `json:"permit_number" validate:"required_without=Address"`
	Address      string   `json:"address" validate:"required_without=PermitNumber"`
	Category     string   `json:"category" validate:"oneof=residential commercial other"`
	Limit        int      `json:"limit" validate:"gte=0,lte=1000"`
	Name         string   `json:"name" validate:"omitempty,max=8,printascii"`
	Latitude     *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Internal     string   `json:"-"`
}

func TestGetSingleton(t *testing.T) {
	t.Parallel()
	if Get() != Get() {
		t.Error("Get should return the same instance")
	}
}

func TestStruct(t *testing.T) {
	t.Parallel()

	lat := 95.0
	tests := []struct {
		name      string
		in        sample
		wantField string
		wantTag   string
		wantMsg   string
	}{
		{
			name: "valid",
			in:   sample{Source: "austin", PermitNumber: "P1", Category: "other"},
		},
		{
			name:      "missing source",
			in:        sample{PermitNumber: "P1", Category: "other"},
			wantField: "source",
			wantTag:   "required",
			wantMsg:   "source is required",
		},
		{
			name:      "no address or number",
			in:        sample{Source: "austin", Category: "other"},
			wantField: "permit_number",
			wantTag:   "required_without",
			wantMsg:   "permit_number is required when address is empty",
		},
		{
			name:      "bad category",
			in:        sample{Source: "austin", Address: "1 Main", Category: "farm"},
			wantField: "category",
			wantTag:   "oneof",
			wantMsg:   "category must be one of: residential commercial other",
		},
		{
			name:      "limit too high",
			in:        sample{Source: "austin", Address: "1 Main", Category: "other", Limit: 5000},
			wantField: "limit",
			wantTag:   "lte",
			wantMsg:   "limit must be less than or equal to 1000",
		},
		{
			name:      "name too long",
			in:        sample{Source: "austin", Address: "1 Main", Category: "other", Name: "far-too-long"},
			wantField: "name",
			wantTag:   "max",
			wantMsg:   "name must be at most 8 characters",
		},
		{
			name:      "latitude out of range",
			in:        sample{Source: "austin", Address: "1 Main", Category: "other", Latitude: &lat},
			wantField: "latitude",
			wantTag:   "latitude",
			wantMsg:   "latitude must be a valid latitude",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Struct(&tt.in)
			if tt.wantTag == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *Error, got %T (%v)", err, err)
			}
			if !verr.Has(tt.wantField, tt.wantTag) {
				t.Errorf("fields %+v missing %s/%s", verr.Fields, tt.wantField, tt.wantTag)
			}
			if !strings.Contains(verr.Error(), tt.wantMsg) {
				t.Errorf("message %q should contain %q", verr.Error(), tt.wantMsg)
			}
		})
	}
}

func TestErrorDeduplicatesMessages(t *testing.T) {
	t.Parallel()

	e := &Error{Fields: []FieldError{
		{Field: "a", Message: "same"},
		{Field: "b", Message: "same"},
		{Field: "c", Message: "other"},
	}}
	if got := e.Error(); got != "same; other" {
		t.Errorf("Error() = %q, want %q", got, "same; other")
	}
	if got := (&Error{}).Error(); got != "validation failed" {
		t.Errorf("empty Error() = %q", got)
	}
}

func TestStructRejectsNonStruct(t *testing.T) {
	t.Parallel()

	err := Struct(42)
	if err == nil {
		t.Fatal("expected error for non-struct")
	}
	var verr *Error
	if errors.As(err, &verr) {
		t.Error("non-struct input should not yield *Error")
	}
}

func TestSnakeCase(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]string{
		"Address":        "address",
		"PermitNumber":   "permit_number",
		"SourceRecordID": "source_record_id",
		"Zip":            "zip",
	} {
		if got := snakeCase(in); got != want {
			t.Errorf("snakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
