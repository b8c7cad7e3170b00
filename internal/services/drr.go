package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"salesdash/internal/aggregate"
	"salesdash/internal/core"
)

// maxDRRDays caps the daily series at roughly ten years.
const maxDRRDays = 3660

var ErrInvalidRange = errors.New("invalid date range")

// DRRView is the daily run rate page.
type DRRView struct {
	HasData bool
	Filters core.Filters
	From    time.Time
	To      time.Time
	Days    []aggregate.DayTotal
	Total   decimal.Decimal
	RunRate decimal.Decimal
}

// DRRSummary sums sales per file date over [from, to]. A zero bound
// defaults to the earliest or latest file date of the dataset.
func (s *DashboardService) DRRSummary(ctx context.Context, from, to time.Time, f core.Filters) (DRRView, error) {
	ds := s.Dataset(ctx).Apply(f)
	view := DRRView{Filters: f, Total: decimal.Zero, RunRate: decimal.Zero}

	first, last, ok := fileDateBounds(ds.Records)
	if !ok {
		return view, nil
	}
	if from.IsZero() {
		from = first
	}
	if to.IsZero() {
		to = last
	}
	if to.Before(from) {
		return view, fmt.Errorf("%w: %s is before %s", ErrInvalidRange, to.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	if to.Sub(from) > maxDRRDays*24*time.Hour {
		return view, fmt.Errorf("%w: more than %d days", ErrInvalidRange, maxDRRDays)
	}

	view.HasData = true
	view.From, view.To = from, to
	view.Days = aggregate.Daily(ds.Records, from, to)
	for _, d := range view.Days {
		view.Total = view.Total.Add(d.Sale)
	}
	view.RunRate = aggregate.RunRate(view.Days)
	return view, nil
}

func fileDateBounds(records []core.Record) (first, last time.Time, ok bool) {
	for _, r := range records {
		if r.FileDate.IsEmpty() {
			continue
		}
		t := r.FileDate.Time
		if !ok || t.Before(first) {
			first = t
		}
		if !ok || t.After(last) {
			last = t
		}
		ok = true
	}
	return first, last, ok
}
