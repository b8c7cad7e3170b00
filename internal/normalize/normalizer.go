// Package normalize turns one raw sales table into typed records.
//
// Column names are trimmed and source-specific spellings renamed to the
// canonical ones, categorical fields are upper-cased, the business area is
// derived and month labels are classified. Missing required columns fail
// the whole source with a *core.SchemaError; everything else degrades
// to zero, absent or unmapped values.
package normalize

import (
	"context"
	"strings"

	"salesdash/internal/core"
	"salesdash/internal/log"
)

// Result is the normalized form of one source table.
type Result struct {
	Source          core.Source
	Records         []core.Record
	MissingOptional []string
	// Coerced counts sale amounts that were malformed and set to zero.
	Coerced int
	// Unmapped counts records whose month label could not be classified.
	Unmapped int
}

// Normalizer normalizes raw source tables.
type Normalizer struct {
	logger *log.Logger
}

func New(logger *log.Logger) *Normalizer {
	if logger == nil {
		logger = log.Discard()
	}
	return &Normalizer{logger: logger.WithComponent(log.ComponentNormalize)}
}

// Normalize standardizes table and tags every record with source.
// A missing required column returns an empty Result and a *core.SchemaError.
func (n *Normalizer) Normalize(ctx context.Context, table core.Table, source core.Source) (Result, error) {
	t := core.Table{Name: table.Name, Columns: append([]string(nil), table.Columns...), Rows: table.Rows}
	t.TrimColumns()
	t.Rename(Renames[source])

	fields := log.NewFields().WithSource(string(source), t.Name)

	if missing := missingColumns(t, requiredColumns); len(missing) > 0 {
		err := &core.SchemaError{Source: sourceLabel(t, source), Missing: missing}
		n.logger.ErrorContext(ctx, "Missing required columns", fields.WithMissing(missing).WithError(err).ToSlice()...)
		return Result{Source: source}, err
	}

	res := Result{Source: source}
	if missing := missingColumns(t, optionalColumns); len(missing) > 0 {
		res.MissingOptional = missing
		n.logger.WarnContext(ctx, "Missing optional columns", log.NewFields().WithSource(string(source), t.Name).WithMissing(missing).ToSlice()...)
	}

	col := columnIndex(t)
	hasBusiness := col[ColBusiness] >= 0

	res.Records = make([]core.Record, 0, len(t.Rows))
	for i := range t.Rows {
		get := func(name string) string { return t.Cell(i, col[name]) }

		r := core.Record{
			Source:      source,
			Region:      strings.TrimSpace(get(ColRegion)),
			Business:    upper(get(ColBusiness)),
			FileType:    upper(get(ColFileType)),
			SubRegion:   upper(get(ColSubRegion)),
			FileSubType: upper(get(ColFileSubType)),
			Destination: strings.TrimSpace(get(ColDestination)),
			Quarter:     strings.TrimSpace(get(ColQuarter)),
		}

		switch {
		case hasBusiness:
			r.BusinessArea = core.DeriveBusinessArea(r.FileSubType, r.Business)
		default:
			r.BusinessArea = core.UnknownBusinessArea
		}

		sale, ok := core.ParseAmount(get(ColSale))
		if !ok {
			res.Coerced++
		}
		r.Sale = sale

		r.TravelMonth = strings.ToLower(strings.TrimSpace(get(ColTravelMonth)))
		if num, name, ok := core.ClassifyMonth(r.TravelMonth); ok {
			r.MonthNum, r.MonthName = num, name
		} else {
			res.Unmapped++
		}
		r.TravelYear, _ = parseInt(get(ColTravelYear))

		r.FileDate, _ = ParseDate(get(ColFileDate))
		r.TourStart, _ = ParseDate(get(ColTourStart))
		r.Pax, _ = parseInt(get(ColPax))

		res.Records = append(res.Records, r)
	}

	n.logger.DebugContext(ctx, "Source normalized",
		append(fields.WithOperation(log.OpNormalize).ToSlice(), log.FieldRows, len(res.Records))...)
	if res.Coerced > 0 || res.Unmapped > 0 {
		n.logger.WarnContext(ctx, "Source contains unparseable values",
			log.FieldSource, string(source),
			"coerced_amounts", res.Coerced,
			"unmapped_months", res.Unmapped)
	}
	return res, nil
}

func missingColumns(t core.Table, want []string) []string {
	var missing []string
	for _, c := range want {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// columnIndex resolves every known column, -1 when absent.
func columnIndex(t core.Table) map[string]int {
	idx := make(map[string]int, len(requiredColumns)+len(optionalColumns))
	for _, c := range requiredColumns {
		idx[c] = t.Index(c)
	}
	for _, c := range optionalColumns {
		idx[c] = t.Index(c)
	}
	return idx
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func sourceLabel(t core.Table, source core.Source) string {
	if t.Name != "" {
		return t.Name
	}
	return string(source)
}
