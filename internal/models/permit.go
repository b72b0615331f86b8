// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package models

import (
	"strings"
	"time"
)

// Trade is a contractor trade inferred from a permit's work description.
type Trade string

const (
	TradePlumbing          Trade = "plumbing"
	TradeElectrical        Trade = "electrical"
	TradeHVAC              Trade = "hvac"
	TradeRoofing           Trade = "roofing"
	TradeGeneralContractor Trade = "general_contractor"
)

// AllTrades lists every trade in classification order.
var AllTrades = []Trade{
	TradePlumbing,
	TradeElectrical,
	TradeHVAC,
	TradeRoofing,
	TradeGeneralContractor,
}

// Category is the coarse property class of a permit.
type Category string

const (
	CategoryResidential Category = "residential"
	CategoryCommercial  Category = "commercial"
	CategoryOther       Category = "other"
)

// DefaultState is applied when a source does not carry a state column.
const DefaultState = "TX"

// NormalizedPermit is a permit record in the common schema.
//
// (Source, SourceRecordID) is the natural key and the upsert conflict
// target. Every column is always encoded, absent values as null, so rows
// of one bulk body share a key set. A permit is valid when it carries an address or a permit number;
// the validate tags are checked by mapping.Validate.
type NormalizedPermit struct {
	Source          string     `json:"source" validate:"required"`
	SourceRecordID  string     `json:"source_record_id" validate:"required"`
	PermitNumber    string     `json:"permit_number" validate:"required_without=Address"`
	IssueDate       *time.Time `json:"issue_date"`
	ApplicationDate *time.Time `json:"application_date"`
	Description     string     `json:"description"`
	Category        Category   `json:"category" validate:"oneof=residential commercial other"`
	Trades          []Trade    `json:"trades"`
	Address         string     `json:"address" validate:"required_without=PermitNumber"`
	City            string     `json:"city"`
	County          string     `json:"county"`
	State           string     `json:"state"`
	Zip             string     `json:"zip"`
	Valuation       *float64   `json:"valuation" validate:"omitempty,gte=0"`
	Applicant       string     `json:"applicant"`
	Contractor      string     `json:"contractor"`
	Owner           string     `json:"owner"`
	Status          string     `json:"status"`
	Latitude        *float64   `json:"latitude" validate:"omitempty,latitude"`
	Longitude       *float64   `json:"longitude" validate:"omitempty,longitude"`
	FetchedAt       time.Time  `json:"ingested_at"`
}

// Key returns the natural key used for conflict resolution.
func (p *NormalizedPermit) Key() string {
	return p.Source + "\x00" + p.SourceRecordID
}

// HasTrade reports whether t was inferred for the permit.
func (p *NormalizedPermit) HasTrade(t Trade) bool {
	for _, have := range p.Trades {
		if have == t {
			return true
		}
	}
	return false
}

// TradeStrings returns the trades as plain strings, for text[] columns.
func (p *NormalizedPermit) TradeStrings() []string {
	out := make([]string, len(p.Trades))
	for i, t := range p.Trades {
		out[i] = string(t)
	}
	return out
}

// ParseTrades converts stored trade names back to Trades, skipping blanks.
func ParseTrades(names []string) []Trade {
	out := make([]Trade, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, Trade(n))
		}
	}
	return out
}
