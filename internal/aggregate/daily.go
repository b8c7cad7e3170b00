package aggregate

import (
	"time"

	"github.com/shopspring/decimal"

	"salesdash/internal/core"
)

// DayTotal is the sale total of one file date.
type DayTotal struct {
	Day   time.Time
	Sale  decimal.Decimal
	Files int
}

// Daily sums records by file date over the inclusive range [from, to],
// one entry per calendar day. Records without a file date are skipped.
func Daily(records []core.Record, from, to time.Time) []DayTotal {
	from, to = day(from), day(to)
	if to.Before(from) {
		return nil
	}
	index := make(map[time.Time]int)
	var out []DayTotal
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		index[d] = len(out)
		out = append(out, DayTotal{Day: d, Sale: decimal.Zero})
	}
	for _, r := range records {
		if r.FileDate.IsEmpty() {
			continue
		}
		i, ok := index[day(r.FileDate.Time)]
		if !ok {
			continue
		}
		out[i].Sale = out[i].Sale.Add(r.Sale)
		out[i].Files++
	}
	return out
}

// RunRate is the average daily sale over the days that had any files.
func RunRate(days []DayTotal) decimal.Decimal {
	total := decimal.Zero
	active := 0
	for _, d := range days {
		if d.Files == 0 {
			continue
		}
		total = total.Add(d.Sale)
		active++
	}
	if active == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(active)))
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
