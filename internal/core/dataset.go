package core

// Dataset is the unified, time-aligned record set for one load cycle.
// It is never mutated after construction; Filter and Year return copies.
type Dataset struct {
	Window  Window
	Records []Record
}

// Empty reports whether there is no data available.
func (d Dataset) Empty() bool {
	return len(d.Records) == 0
}

// Filter returns the records matching pred.
func (d Dataset) Filter(pred func(Record) bool) Dataset {
	out := Dataset{Window: d.Window}
	for _, r := range d.Records {
		if pred(r) {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// Apply narrows the dataset by the request filters.
func (d Dataset) Apply(f Filters) Dataset {
	if f.IsZero() {
		return d
	}
	return d.Filter(f.Matches)
}

// Year selects one travel year with per-month source authority: Historical
// before the current reporting month, Recent from it onward.
func (d Dataset) Year(year int) Dataset {
	cm := d.Window.CurrentMonth
	return d.Filter(func(r Record) bool {
		if r.TravelYear != year || r.MonthNum == 0 {
			return false
		}
		switch r.Source {
		case Historical:
			return r.MonthNum < cm
		case Recent:
			return r.MonthNum >= cm
		}
		return false
	})
}

// Current returns the current-year series.
func (d Dataset) Current() Dataset {
	return d.Year(d.Window.CurrentYear)
}

// Previous returns the previous-year series.
func (d Dataset) Previous() Dataset {
	return d.Year(d.Window.PreviousYear)
}
