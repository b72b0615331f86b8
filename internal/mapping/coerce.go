// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package mapping

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// commonDateLayouts are tried after a source's own layouts. Socrata
// floating timestamps carry no zone and are read as UTC.
var commonDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 03:04:05 PM",
	"1/2/2006 3:04:05 PM",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"20060102",
	"Jan 2, 2006",
}

// Dates outside this window are treated as data-entry errors.
var (
	minPlausibleDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	maxPlausibleDate = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
)

// epochMillisFloor separates epoch milliseconds from compact dates like
// 20240115 when a numeric date arrives.
const epochMillisFloor = 1e11

// stringValue renders a raw JSON/CSV value as trimmed text. Numbers are
// rendered without an exponent so numeric ids stay intact.
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	case map[string]any, []any:
		// Nested objects (Socrata location columns) have no scalar text.
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// numberValue extracts a float from a raw value. Currency formatting is
// stripped from strings.
func numberValue(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case int32:
		f = float64(t)
	default:
		s := stringValue(v)
		if s == "" {
			return 0, false
		}
		s = strings.NewReplacer(",", "", "$", "", " ", "").Replace(s)
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseValuation returns a non-negative valuation, or nil.
//
//	"45,000.00" -> 45000
//	"$1,200"    -> 1200
//	"TBD"       -> nil
//	"-5"        -> nil
func parseValuation(v any) *float64 {
	f, ok := numberValue(v)
	if !ok || f < 0 {
		return nil
	}
	return &f
}

// parseCoordinate returns v when it parses and lies within ±limit. Zero is
// treated as missing; no Texas permit sits on the equator or meridian.
func parseCoordinate(v any, limit float64) *float64 {
	f, ok := numberValue(v)
	if !ok || f == 0 || math.Abs(f) > limit {
		return nil
	}
	return &f
}

// parseDate parses a raw date in any supported layout, or epoch millis.
// Unparseable or implausible values yield nil.
func parseDate(v any, layouts []string) *time.Time {
	var t time.Time
	switch raw := v.(type) {
	case nil:
		return nil
	case time.Time:
		t = raw.UTC()
	case float64, float32, int, int64, int32:
		f, _ := numberValue(raw)
		if f < epochMillisFloor {
			return nil
		}
		t = time.UnixMilli(int64(f)).UTC()
	default:
		s := stringValue(raw)
		if s == "" {
			return nil
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms >= epochMillisFloor {
			t = time.UnixMilli(ms).UTC()
			break
		}
		parsed, ok := parseDateString(s, layouts)
		if !ok {
			return nil
		}
		t = parsed
	}
	if t.Before(minPlausibleDate) || !t.Before(maxPlausibleDate) {
		return nil
	}
	return &t
}

func parseDateString(s string, layouts []string) (time.Time, bool) {
	for _, set := range [][]string{layouts, commonDateLayouts} {
		for _, layout := range set {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}
