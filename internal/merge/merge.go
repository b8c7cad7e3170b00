// Package merge combines the recent and historical feeds into one
// dataset. Each source is authoritative for a disjoint set of months of
// the reporting window, so a (year, month) is never counted twice.
package merge

import (
	"salesdash/internal/core"
)

// RecentApplies reports whether a Recent record falls in the window the
// recent feed is authoritative for: the current month onward, and only
// files dated on or before the applicable yesterday cutoff.
func RecentApplies(r core.Record, w core.Window) bool {
	if r.MonthNum < 1 || r.MonthNum < w.CurrentMonth {
		return false
	}
	switch r.TravelYear {
	case w.CurrentYear:
		return r.FileDate.OnOrBefore(w.Yesterday)
	case w.PreviousYear:
		return r.FileDate.OnOrBefore(w.PreviousYearYesterday)
	}
	return false
}

// HistoricalApplies reports whether a Historical record falls strictly
// before the current reporting month of the current or previous year.
func HistoricalApplies(r core.Record, w core.Window) bool {
	if r.MonthNum < 1 || r.MonthNum >= w.CurrentMonth {
		return false
	}
	return r.TravelYear == w.CurrentYear || r.TravelYear == w.PreviousYear
}

// Merge filters each source to its window and concatenates the result.
// Records are not deduplicated.
func Merge(recent, historical []core.Record, w core.Window) core.Dataset {
	ds := core.Dataset{Window: w}
	ds.Records = make([]core.Record, 0, len(recent)+len(historical))
	for _, r := range recent {
		if RecentApplies(r, w) {
			ds.Records = append(ds.Records, r)
		}
	}
	for _, r := range historical {
		if HistoricalApplies(r, w) {
			ds.Records = append(ds.Records, r)
		}
	}
	return ds
}

// Stats summarizes what a merge kept, for diagnostics.
type Stats struct {
	Recent, RecentKept         int
	Historical, HistoricalKept int
}

// Summarize counts the input and kept records per source.
func Summarize(recent, historical []core.Record, ds core.Dataset) Stats {
	s := Stats{Recent: len(recent), Historical: len(historical)}
	for _, r := range ds.Records {
		switch r.Source {
		case core.Recent:
			s.RecentKept++
		case core.Historical:
			s.HistoricalKept++
		}
	}
	return s
}
