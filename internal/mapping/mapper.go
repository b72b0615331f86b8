// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package mapping

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tomtom215/leadledger/internal/classify"
	"github.com/tomtom215/leadledger/internal/logging"
	"github.com/tomtom215/leadledger/internal/models"
)

// permitNamespace seeds the deterministic ids synthesized for records that
// carry neither a native id nor a permit number.
var permitNamespace = uuid.MustParse("6f1c2a52-3f0e-4d8e-9a57-1c9e2b7d4a10")

// Mapper converts raw records of one source into NormalizedPermits.
//
// Each field is read from the first non-empty candidate column the
// SourceSpec lists for it. Dates, valuation and coordinates are parsed
// leniently; anything unparseable becomes nil rather than an error. The
// source record id falls back to the permit number and then to a
// deterministic UUIDv5 over source, address, issue date and description.
//
// Example usage:
//
//	m := mapping.NewMapper(spec)
//	permits, dropped := m.MapAll(raws)
type Mapper struct {
	spec       SourceSpec
	classifier *classify.Classifier
	now        func() time.Time
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithClock overrides the clock used for FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(m *Mapper) { m.now = now }
}

// WithClassifier overrides the default keyword classifier.
func WithClassifier(c *classify.Classifier) Option {
	return func(m *Mapper) { m.classifier = c }
}

// NewMapper creates a mapper for spec.
func NewMapper(spec SourceSpec, opts ...Option) *Mapper {
	m := &Mapper{
		spec:       spec.Clone(),
		classifier: classify.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Source returns the source name stamped on every permit.
func (m *Mapper) Source() string {
	return m.spec.Name
}

// Map converts one raw record. It never fails: missing or malformed fields
// become empty strings or nil pointers, and the result always carries the
// source name. Use Validate to decide whether to keep it.
func (m *Mapper) Map(raw map[string]any) models.NormalizedPermit {
	p := models.NormalizedPermit{
		Source:          m.spec.Name,
		PermitNumber:    m.text(raw, FieldPermitNumber),
		Description:     m.text(raw, FieldDescription),
		Address:         m.text(raw, FieldAddress),
		City:            firstNonEmpty(m.text(raw, FieldCity), m.spec.City),
		County:          firstNonEmpty(m.text(raw, FieldCounty), m.spec.County),
		State:           strings.ToUpper(firstNonEmpty(m.text(raw, FieldState), m.spec.State, models.DefaultState)),
		Zip:             m.text(raw, FieldZip),
		Applicant:       m.text(raw, FieldApplicant),
		Contractor:      m.text(raw, FieldContractor),
		Owner:           m.text(raw, FieldOwner),
		Status:          m.text(raw, FieldStatus),
		IssueDate:       parseDate(m.value(raw, FieldIssueDate), m.spec.DateLayouts),
		ApplicationDate: parseDate(m.value(raw, FieldApplicationDate), m.spec.DateLayouts),
		Valuation:       parseValuation(m.value(raw, FieldValuation)),
		Latitude:        parseCoordinate(m.value(raw, FieldLatitude), 90),
		Longitude:       parseCoordinate(m.value(raw, FieldLongitude), 180),
		FetchedAt:       m.now().UTC(),
	}

	p.Trades = m.classifier.Trades(p.Description)
	p.Category = m.classifier.Category(m.text(raw, FieldCategory), p.Description)
	p.SourceRecordID = firstNonEmpty(m.text(raw, FieldSourceRecordID), p.PermitNumber)
	if p.SourceRecordID == "" && p.Address != "" {
		p.SourceRecordID = syntheticID(&p)
	}
	return p
}

// MapAll maps and validates raws, returning the valid permits and the
// number dropped. Drop reasons are logged at debug level.
func (m *Mapper) MapAll(raws []map[string]any) ([]models.NormalizedPermit, int) {
	kept := make([]models.NormalizedPermit, 0, len(raws))
	dropped := 0
	for i, raw := range raws {
		p := m.Map(raw)
		if err := Validate(&p); err != nil {
			dropped++
			logging.Debug().
				Str("source", m.spec.Name).
				Int("index", i).
				Str("permit_number", p.PermitNumber).
				Err(err).
				Msg("Dropping invalid permit record")
			continue
		}
		kept = append(kept, p)
	}
	return kept, dropped
}

// value returns the first non-empty raw value among the field's candidates.
func (m *Mapper) value(raw map[string]any, f Field) any {
	for _, key := range m.spec.Fields[f] {
		if strings.Contains(key, joinSep) {
			if joined := joinValues(raw, key); joined != "" {
				return joined
			}
			continue
		}
		if v, ok := lookup(raw, key); ok && stringValue(v) != "" {
			return v
		}
	}
	return nil
}

func (m *Mapper) text(raw map[string]any, f Field) string {
	return stringValue(m.value(raw, f))
}

// lookup finds key exactly, then case-insensitively.
func lookup(raw map[string]any, key string) (any, bool) {
	if v, ok := raw[key]; ok {
		return v, true
	}
	for k, v := range raw {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func joinValues(raw map[string]any, spec string) string {
	parts := make([]string, 0, 3)
	for _, key := range strings.Split(spec, joinSep) {
		v, _ := lookup(raw, strings.TrimSpace(key))
		if s := stringValue(v); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// syntheticID derives a stable id from the fields that identify a permit
// when the source offers no key, so re-ingestion still upserts in place.
func syntheticID(p *models.NormalizedPermit) string {
	var b strings.Builder
	b.WriteString(p.Source)
	b.WriteByte('|')
	b.WriteString(strings.ToUpper(p.Address))
	b.WriteByte('|')
	if p.IssueDate != nil {
		b.WriteString(p.IssueDate.Format("2006-01-02"))
	}
	b.WriteByte('|')
	b.WriteString(p.Description)
	return uuid.NewSHA1(permitNamespace, []byte(b.String())).String()
}
