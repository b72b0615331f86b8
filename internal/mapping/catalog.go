// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package mapping

import (
	"fmt"

	"github.com/tomtom215/leadledger/internal/config"
)

// Resolve merges the built-in sources with the sources section of cfg.
// Config entries override built-in values key by key; entries with no
// built-in counterpart must be complete specs. Socrata sources without
// their own app token inherit socrata.app_token.
func Resolve(cfg *config.Config) (map[string]SourceSpec, error) {
	specs := Builtin()

	for name, sc := range cfg.Sources {
		spec, ok := specs[name]
		if !ok {
			spec = SourceSpec{Name: name, Enabled: true, Interval: defaultInterval, Fields: map[Field][]string{}}
		}
		applyOverrides(&spec, sc)
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		specs[name] = spec
	}

	for name, spec := range specs {
		if spec.Kind == config.KindSocrata && spec.AppToken == "" {
			spec.AppToken = cfg.Socrata.AppToken
			specs[name] = spec
		}
	}
	return specs, nil
}

func applyOverrides(spec *SourceSpec, sc config.SourceConfig) {
	if sc.Enabled != nil {
		spec.Enabled = *sc.Enabled
	}
	if sc.Kind != "" {
		spec.Kind = sc.Kind
	}
	if sc.URL != "" {
		spec.URL = sc.URL
	}
	if sc.DateField != "" {
		spec.DateField = sc.DateField
	}
	if sc.Where != "" {
		spec.Where = sc.Where
	}
	if sc.AppToken != "" {
		spec.AppToken = sc.AppToken
	}
	if sc.Interval > 0 {
		spec.Interval = sc.Interval
	}
	if sc.City != "" {
		spec.City = sc.City
	}
	if sc.County != "" {
		spec.County = sc.County
	}
	if len(sc.DateLayouts) > 0 {
		spec.DateLayouts = append([]string(nil), sc.DateLayouts...)
	}
	for f, keys := range sc.Fields {
		spec.Fields[Field(f)] = append([]string(nil), keys...)
	}
}

// Lookup resolves a single source by name.
func Lookup(specs map[string]SourceSpec, name string) (SourceSpec, error) {
	spec, ok := specs[name]
	if !ok {
		return SourceSpec{}, fmt.Errorf("unknown source %q (known: %v)", name, Names(specs))
	}
	return spec, nil
}

// Enabled returns the names of enabled specs in sorted order.
func Enabled(specs map[string]SourceSpec) []string {
	var out []string
	for _, name := range Names(specs) {
		if specs[name].Enabled {
			out = append(out, name)
		}
	}
	return out
}
