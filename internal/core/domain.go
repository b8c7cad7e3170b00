package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Recent     Source = "Recent"
	Historical Source = "Historical"
)

type (
	// Source tags which feed a record was read from.
	Source string

	Date struct {
		time.Time
	}

	// Record is one row of unified sales data.
	Record struct {
		Sale         decimal.Decimal // in Cr
		TravelMonth  string          // lower-cased raw label
		MonthNum     int             // 1-12, 0 when unmapped
		MonthName    string
		TravelYear   int
		Source       Source
		Region       string
		Business     string // "Final Buniess"
		FileType     string
		FileSubType  string
		SubRegion    string // REGION_B
		Destination  string
		BusinessArea string
		FileDate     Date
		TourStart    Date
		Pax          int
		Quarter      string
	}

	// Filters are the request-scoped sidebar selections. Empty or "All" means no filter.
	Filters struct {
		Region   string
		Quarter  string
		Business string
	}
)

var (
	ErrSchema   = errors.New("schema error")
	ErrNotFound = errors.New("not found")
)

// SchemaError reports required columns missing from a source table.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns in %s: %s", e.Source, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true if the date is absent
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// OnOrBefore reports whether d is present and not after the calendar day of t.
func (d Date) OnOrBefore(t time.Time) bool {
	if d.IsZero() {
		return false
	}
	return !dayOf(d.Time).After(dayOf(t))
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Matches reports whether the record passes the filters.
func (f Filters) Matches(r Record) bool {
	return matchFilter(f.Region, r.Region) &&
		matchFilter(f.Quarter, r.Quarter) &&
		matchFilter(f.Business, r.Business)
}

// IsZero reports whether no filter is selected.
func (f Filters) IsZero() bool {
	return isAll(f.Region) && isAll(f.Quarter) && isAll(f.Business)
}

func matchFilter(want, got string) bool {
	if isAll(want) {
		return true
	}
	return want == got
}

func isAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "All")
}
