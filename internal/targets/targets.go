// Package targets loads the sales target table and matches its rows to
// actual sales.
//
// A target table carries one amount per (label, month). The label is a
// business line for BAREA rows, a sub-region for REGION rows and a file
// type for FILE TYPE rows, which additionally name the business in a
// zone column. Which physical columns hold the type, zone and file type
// is declared by Schema rather than guessed.
package targets

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"salesdash/internal/core"
	"salesdash/internal/log"
)

// Category tags of the type column.
const (
	CategoryBArea    = "BAREA"
	CategoryRegion   = "REGION"
	CategoryFileType = "FILE TYPE"
)

// Canonical column names after alias resolution.
const (
	ColRegion = "Region"
	ColMonth  = "Month"
	ColAmount = "Target Amount"
)

var aliases = map[string]string{
	"region":        ColRegion,
	"reg":           ColRegion,
	"month":         ColMonth,
	"month name":    ColMonth,
	"target":        ColAmount,
	"target amount": ColAmount,
	"target_cr":     ColAmount,
}

// Schema declares the role of the optional target columns.
type Schema struct {
	TypeColumn     string
	ZoneColumn     string
	FileTypeColumn string
}

// DefaultSchema matches the layout of the usual Target workbook.
func DefaultSchema() Schema {
	return Schema{TypeColumn: "TYPE", ZoneColumn: "ZONE", FileTypeColumn: ColRegion}
}

// Target is one normalized target row.
type Target struct {
	Type     string // upper-cased, "" when unclassified
	Label    string
	Zone     string
	FileType string
	Month    string
	Raw      decimal.Decimal
	Amount   decimal.Decimal // in Cr
}

// Table is a loaded target table.
type Table struct {
	Rows    []Target
	HasType bool
	HasZone bool
	// Scaled is true when amounts were converted from base units to Cr.
	Scaled bool
}

// Empty reports whether no targets were loaded.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// Loader normalizes raw target tables.
type Loader struct {
	schema Schema
	logger *log.Logger
}

func NewLoader(schema Schema, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Discard()
	}
	return &Loader{schema: schema, logger: logger.WithComponent(log.ComponentTargets)}
}

// Load resolves column aliases, parses amounts and applies the unit
// heuristic: when the largest amount exceeds one Cr in base units the
// whole table is assumed to be in base units and divided down.
func (l *Loader) Load(ctx context.Context, raw core.Table) (Table, error) {
	t := core.Table{Name: raw.Name, Columns: append([]string(nil), raw.Columns...), Rows: raw.Rows}
	t.TrimColumns()
	resolveAliases(&t, l.schema)

	var missing []string
	for _, c := range []string{ColRegion, ColMonth, ColAmount} {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		err := &core.SchemaError{Source: sourceName(t), Missing: missing}
		l.logger.ErrorContext(ctx, "Missing required target columns",
			log.NewFields().WithSource("Target", t.Name).WithMissing(missing).WithError(err).ToSlice()...)
		return Table{}, err
	}

	var (
		region   = t.Index(ColRegion)
		month    = t.Index(ColMonth)
		amount   = t.Index(ColAmount)
		typ      = indexFold(t, l.schema.TypeColumn)
		zone     = indexFold(t, l.schema.ZoneColumn)
		fileType = indexFold(t, l.schema.FileTypeColumn)
	)
	if fileType < 0 {
		fileType = region
	}

	out := Table{HasType: typ >= 0, HasZone: zone >= 0}
	out.Rows = make([]Target, 0, len(t.Rows))
	largest := decimal.Zero
	for i := range t.Rows {
		v, _ := core.ParseAmount(t.Cell(i, amount))
		if v.GreaterThan(largest) {
			largest = v
		}
		out.Rows = append(out.Rows, Target{
			Type:     upper(t.Cell(i, typ)),
			Label:    strings.TrimSpace(t.Cell(i, region)),
			Zone:     strings.TrimSpace(t.Cell(i, zone)),
			FileType: strings.TrimSpace(t.Cell(i, fileType)),
			Month:    strings.TrimSpace(t.Cell(i, month)),
			Raw:      v,
			Amount:   v,
		})
	}

	if largest.GreaterThan(core.CroreUnit) {
		out.Scaled = true
		for i := range out.Rows {
			out.Rows[i].Amount = core.ToCrore(out.Rows[i].Raw)
		}
	}

	l.logger.DebugContext(ctx, "Targets loaded",
		log.FieldRows, len(out.Rows),
		"scaled", out.Scaled)
	return out, nil
}

// Match returns the rows of category. Without a type column every row is
// returned for every category.
func (l *Loader) Match(ctx context.Context, t Table, category string) []Target {
	if !t.HasType {
		l.logger.WarnContext(ctx, "Target type column not found, using all rows",
			log.FieldCategory, category, "column", l.schema.TypeColumn)
		return t.Rows
	}
	want := upper(category)
	var out []Target
	for _, r := range t.Rows {
		if r.Type == want {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		l.logger.WarnContext(ctx, "No target rows for category", log.FieldCategory, category)
	}
	return out
}

// Sums totals target amounts grouped by key, comparing keys upper-cased.
func Sums(rows []Target, key func(Target) string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, r := range rows {
		k := upper(key(r))
		if k == "" {
			continue
		}
		out[k] = out[k].Add(r.Amount)
	}
	return out
}

// ByLabel groups by the region/business label.
func ByLabel(r Target) string { return r.Label }

// ByMonth groups by month label.
func ByMonth(r Target) string { return r.Month }

// ByFileType groups by the file type key.
func ByFileType(r Target) string { return r.FileType }

// For sums the rows whose label and month both match, case-insensitively.
// An empty month matches every month.
func For(rows []Target, label, month string) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		if !strings.EqualFold(r.Label, strings.TrimSpace(label)) {
			continue
		}
		if month != "" && !strings.EqualFold(r.Month, strings.TrimSpace(month)) {
			continue
		}
		total = total.Add(r.Amount)
	}
	return total
}

// InZone returns the rows whose zone equals zone, case-insensitively.
func InZone(rows []Target, zone string) []Target {
	var out []Target
	for _, r := range rows {
		if strings.EqualFold(r.Zone, strings.TrimSpace(zone)) {
			out = append(out, r)
		}
	}
	return out
}

// Total sums every row.
func Total(rows []Target) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	return total
}

// resolveAliases renames the first column matching each canonical name.
// Role columns declared by the schema keep their names.
func resolveAliases(t *core.Table, s Schema) {
	roles := map[string]bool{
		strings.ToLower(s.TypeColumn): true,
		strings.ToLower(s.ZoneColumn): true,
	}
	taken := make(map[string]bool)
	for i, c := range t.Columns {
		key := strings.ToLower(c)
		if roles[key] {
			continue
		}
		canonical, ok := aliases[key]
		if !ok || taken[canonical] {
			continue
		}
		taken[canonical] = true
		t.Columns[i] = canonical
	}
}

func indexFold(t core.Table, name string) int {
	if name == "" {
		return -1
	}
	for i, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func sourceName(t core.Table) string {
	if t.Name != "" {
		return t.Name
	}
	return "Target"
}
