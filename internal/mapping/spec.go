// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package mapping

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Field names a canonical permit attribute a source can supply.
type Field string

const (
	FieldSourceRecordID  Field = "source_record_id"
	FieldPermitNumber    Field = "permit_number"
	FieldIssueDate       Field = "issue_date"
	FieldApplicationDate Field = "application_date"
	FieldDescription     Field = "description"
	FieldCategory        Field = "category"
	FieldAddress         Field = "address"
	FieldCity            Field = "city"
	FieldCounty          Field = "county"
	FieldState           Field = "state"
	FieldZip             Field = "zip"
	FieldValuation       Field = "valuation"
	FieldApplicant       Field = "applicant"
	FieldContractor      Field = "contractor"
	FieldOwner           Field = "owner"
	FieldStatus          Field = "status"
	FieldLatitude        Field = "latitude"
	FieldLongitude       Field = "longitude"
)

var knownFields = map[Field]bool{
	FieldSourceRecordID: true, FieldPermitNumber: true, FieldIssueDate: true,
	FieldApplicationDate: true, FieldDescription: true, FieldCategory: true,
	FieldAddress: true, FieldCity: true, FieldCounty: true, FieldState: true,
	FieldZip: true, FieldValuation: true, FieldApplicant: true,
	FieldContractor: true, FieldOwner: true, FieldStatus: true,
	FieldLatitude: true, FieldLongitude: true,
}

// joinSep separates raw keys whose values are concatenated, as in
// "STREET_NUM+STREET_NAME".
const joinSep = "+"

// SourceSpec declares one permit source: where to fetch it and how its raw
// records map onto NormalizedPermit. Adding a source is a matter of adding
// a SourceSpec, in code or in YAML.
type SourceSpec struct {
	Name      string
	Kind      string // socrata, arcgis or csv
	URL       string
	DateField string // raw date column used for ordering and incremental queries
	Where     string // extra filter appended to the fetch query
	AppToken  string
	Interval  time.Duration
	Enabled   bool

	City   string // defaults applied when the record has none
	County string
	State  string

	// DateLayouts are tried before the common layouts.
	DateLayouts []string

	// Fields lists candidate raw keys per canonical field. The first
	// candidate with a non-empty value wins. A candidate of the form
	// "A+B" joins the values of A and B with a space.
	Fields map[Field][]string
}

// Validate checks that the spec is complete enough to fetch and map.
func (s *SourceSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("source spec: name is required")
	}
	switch s.Kind {
	case "socrata", "arcgis", "csv":
	default:
		return fmt.Errorf("source %s: unknown kind %q", s.Name, s.Kind)
	}
	if s.URL == "" {
		return fmt.Errorf("source %s: url is required", s.Name)
	}
	if len(s.Fields[FieldPermitNumber]) == 0 && len(s.Fields[FieldAddress]) == 0 {
		return fmt.Errorf("source %s: fields must map permit_number or address", s.Name)
	}
	for f, keys := range s.Fields {
		if !knownFields[f] {
			return fmt.Errorf("source %s: unknown field %q", s.Name, f)
		}
		for _, k := range keys {
			if strings.TrimSpace(k) == "" {
				return fmt.Errorf("source %s: empty raw key for field %s", s.Name, f)
			}
		}
	}
	return nil
}

// Clone returns a deep copy so callers can override fields freely.
func (s *SourceSpec) Clone() SourceSpec {
	out := *s
	out.DateLayouts = append([]string(nil), s.DateLayouts...)
	out.Fields = make(map[Field][]string, len(s.Fields))
	for f, keys := range s.Fields {
		out.Fields[f] = append([]string(nil), keys...)
	}
	return out
}

// Names returns the spec names in sorted order.
func Names(specs map[string]SourceSpec) []string {
	names := make([]string, 0, len(specs))
	for n := range specs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
