// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

// Package classify infers trades and property category from free-text
// permit descriptions using case-insensitive keyword matching.
//
// The matching is a heuristic: "remodel kitchen and add roof deck" is
// tagged roofing as well as general_contractor. Callers should treat the
// result as a lead hint, not a fact.
package classify

import (
	"strings"

	"github.com/tomtom215/leadledger/internal/models"
)

// TradeRule lists the keywords that mark a permit as belonging to a trade.
type TradeRule struct {
	Trade    models.Trade
	Keywords []string
}

// Classifier holds the keyword tables. The zero value is not usable; use
// Default or New.
type Classifier struct {
	trades     []models.Trade
	tradeScan  *matcher
	categories *matcher
}

// Category groups in the categories matcher.
const (
	groupResidential = iota
	groupCommercial
)

// DefaultTradeRules is the built-in trade table, in output order.
var DefaultTradeRules = []TradeRule{
	{models.TradePlumbing, []string{"plumb", "water heater", "water line", "sewer", "drain", "gas line", "backflow"}},
	{models.TradeElectrical, []string{"electric", "panel", "wiring", "circuit", "solar", "generator", "meter"}},
	{models.TradeHVAC, []string{"hvac", "air condition", "a/c", "furnace", "heat pump", "duct", "mechanical"}},
	{models.TradeRoofing, []string{"roof", "shingle", "reroof"}},
	{models.TradeGeneralContractor, []string{"remodel", "renovat", "addition", "new construction", "build", "alteration", "repair", "kitchen", "bath"}},
}

// Default category keywords. Text is padded with a space on both sides, so
// a keyword's own spaces act as word edges: "res " matches the "RES " prefix
// some portals use without hitting "resurface", and " house" does not fire
// inside "warehouse".
var (
	DefaultResidentialKeywords = []string{"residential", "single family", "duplex", " house", "townhouse", "home", "apartment", " res "}
	DefaultCommercialKeywords  = []string{"commercial", "retail", "office", "restaurant", "warehouse", "industrial", "tenant finish"}
)

var defaultClassifier = New(DefaultTradeRules, DefaultResidentialKeywords, DefaultCommercialKeywords)

// Default returns the classifier built from the default tables.
func Default() *Classifier {
	return defaultClassifier
}

// New builds a classifier. Keywords are lower-cased once here. At most
// 64 trade rules are supported.
func New(trades []TradeRule, residential, commercial []string) *Classifier {
	c := &Classifier{trades: make([]models.Trade, len(trades))}
	groups := make([][]string, len(trades))
	for i, r := range trades {
		c.trades[i] = r.Trade
		groups[i] = lowerAll(r.Keywords)
	}
	c.tradeScan = newMatcher(groups)
	c.categories = newMatcher([][]string{
		groupResidential: lowerAll(residential),
		groupCommercial:  lowerAll(commercial),
	})
	return c
}

// Trades returns every trade whose keywords occur in description, in table
// order. The result is never nil.
func (c *Classifier) Trades(description string) []models.Trade {
	text := strings.ToLower(description)
	out := make([]models.Trade, 0, 2)
	if strings.TrimSpace(text) == "" {
		return out
	}
	hits := c.tradeScan.scan(text)
	for i, trade := range c.trades {
		if hits&(1<<uint(i)) != 0 {
			out = append(out, trade)
		}
	}
	return out
}

// Category classifies a permit from its source category column (if any),
// falling back to the description.
func (c *Classifier) Category(sourceCategory, description string) models.Category {
	for _, text := range []string{sourceCategory, description} {
		if cat, ok := c.category(text); ok {
			return cat
		}
	}
	return models.CategoryOther
}

func (c *Classifier) category(text string) (models.Category, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return "", false
	}
	text = " " + text + " "
	hits := c.categories.scan(text)
	switch {
	case hits&(1<<groupResidential) != 0:
		return models.CategoryResidential, true
	case hits&(1<<groupCommercial) != 0:
		return models.CategoryCommercial, true
	}
	return "", false
}

// Trades classifies with the default tables.
func Trades(description string) []models.Trade {
	return defaultClassifier.Trades(description)
}

// Category classifies with the default tables.
func Category(sourceCategory, description string) models.Category {
	return defaultClassifier.Category(sourceCategory, description)
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
