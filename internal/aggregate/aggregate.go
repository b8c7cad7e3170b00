// Package aggregate computes grouped sums and the percentages every
// dashboard view is built from. All functions are pure and read-only
// over their input records.
package aggregate

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"salesdash/internal/core"
)

var hundred = decimal.NewFromInt(100)

// KeyFunc extracts the grouping value of a record.
type KeyFunc func(core.Record) string

// Grouping keys used by the views.
var (
	ByMonth        KeyFunc = func(r core.Record) string { return r.MonthName }
	ByRegion       KeyFunc = func(r core.Record) string { return r.Region }
	BySubRegion    KeyFunc = func(r core.Record) string { return r.SubRegion }
	ByBusiness     KeyFunc = func(r core.Record) string { return r.Business }
	ByBusinessArea KeyFunc = func(r core.Record) string { return r.BusinessArea }
	ByFileType     KeyFunc = func(r core.Record) string { return r.FileType }
)

// Sums maps a group value to its summed sale amount.
type Sums map[string]decimal.Decimal

// SumBy groups records by key and sums their sale amounts. A nil filter
// keeps every record. Records with an empty key are skipped.
func SumBy(records []core.Record, key KeyFunc, filter func(core.Record) bool) Sums {
	sums := make(Sums)
	for _, r := range records {
		if filter != nil && !filter(r) {
			continue
		}
		k := key(r)
		if k == "" {
			continue
		}
		sums[k] = sums[k].Add(r.Sale)
	}
	return sums
}

// Total sums the sale amount of the records passing filter.
func Total(records []core.Record, filter func(core.Record) bool) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if filter != nil && !filter(r) {
			continue
		}
		total = total.Add(r.Sale)
	}
	return total
}

// Point is one labelled value of a series.
type Point struct {
	Label string
	Value decimal.Decimal
}

// Series is an ordered list of points along an axis.
type Series []Point

// Fill lays sums out along axis, filling groups with no data with zero.
// Groups not on the axis are dropped.
func Fill(sums Sums, axis []string) Series {
	s := make(Series, len(axis))
	for i, label := range axis {
		s[i] = Point{Label: label, Value: sums[label]}
	}
	return s
}

// Get returns the value for label, zero when absent.
func (s Series) Get(label string) decimal.Decimal {
	for _, p := range s {
		if p.Label == label {
			return p.Value
		}
	}
	return decimal.Zero
}

// Total returns the sum of all points.
func (s Series) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s {
		total = total.Add(p.Value)
	}
	return total
}

// GrowthPct is (current - previous) / previous * 100. A non-positive
// previous value has no baseline and reports 0.
func GrowthPct(current, previous decimal.Decimal) float64 {
	if !previous.IsPositive() {
		return 0
	}
	return core.Float(current.Sub(previous).Div(previous).Mul(hundred))
}

// AchievementPct is actual / target * 100, or 0 without a positive target.
func AchievementPct(actual, target decimal.Decimal) float64 {
	if !target.IsPositive() {
		return 0
	}
	return core.Float(actual.Div(target).Mul(hundred))
}

// ComparisonRow is one group of a year-over-year comparison.
type ComparisonRow struct {
	Label    string
	Current  decimal.Decimal
	Previous decimal.Decimal
	Growth   float64
}

// Compare pairs current and previous sums along axis.
func Compare(current, previous Sums, axis []string) []ComparisonRow {
	rows := make([]ComparisonRow, len(axis))
	for i, label := range axis {
		cur, prev := current[label], previous[label]
		rows[i] = ComparisonRow{
			Label:    label,
			Current:  cur,
			Previous: prev,
			Growth:   GrowthPct(cur, prev),
		}
	}
	return rows
}

// UnionAxis returns the sorted union of the groups of all sums, for
// dimensions without a canonical list (regions, business areas).
func UnionAxis(sums ...Sums) []string {
	seen := make(map[string]struct{})
	for _, s := range sums {
		for k := range s {
			seen[k] = struct{}{}
		}
	}
	axis := make([]string, 0, len(seen))
	for k := range seen {
		axis = append(axis, k)
	}
	sort.Strings(axis)
	return axis
}

// Distinct returns the sorted distinct non-empty values of key.
func Distinct(records []core.Record, key KeyFunc) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		v := strings.TrimSpace(key(r))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Slice is one share of a contribution breakdown.
type Slice struct {
	Label string
	Value decimal.Decimal
	Pct   float64
}

// Share computes each axis group's percentage of the axis total.
// Percentages are 0 when the total is 0.
func Share(sums Sums, axis []string) []Slice {
	series := Fill(sums, axis)
	total := series.Total()
	out := make([]Slice, len(series))
	for i, p := range series {
		out[i] = Slice{Label: p.Label, Value: p.Value, Pct: AchievementPct(p.Value, total)}
	}
	return out
}
