// Package core provides amount parsing and unit handling utilities.
//
// Sales and targets are expressed in crore ("Cr"), where one Cr equals
// 10,000,000 base currency units.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CroreUnit is the number of base units in one Cr.
var CroreUnit = decimal.NewFromInt(10_000_000)

// ParseAmount converts a spreadsheet cell to a non-negative amount.
//
// Thousands separators and surrounding whitespace are tolerated. Empty,
// malformed or negative input yields zero and ok=false so callers can
// count coercions without failing the load.
//
// Examples:
//
//	ParseAmount("12.34")   -> 12.34, true
//	ParseAmount("1,234.5") -> 1234.5, true
//	ParseAmount("n/a")     -> 0, false
//	ParseAmount("-3")      -> 0, false
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// ToCrore converts base units to Cr.
func ToCrore(d decimal.Decimal) decimal.Decimal {
	return d.Div(CroreUnit)
}

// Float returns the value as float64 for display and percentages.
func Float(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
