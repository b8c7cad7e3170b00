package core

import (
	"strconv"
	"strings"
	"time"
)

var monthNames = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var monthLookup = func() map[string]int {
	m := make(map[string]int, 36)
	for i, name := range monthNames {
		n := i + 1
		m[strings.ToLower(name)] = n
		m[strings.ToLower(time.Month(n).String())] = n
		m[strconv.Itoa(n)] = n
	}
	return m
}()

// ClassifyMonth maps a free-form month label to its number and short name.
// Accepts three-letter abbreviations, full English names and "1".."12",
// case and surrounding whitespace ignored. Spreadsheet numeric cells such
// as "7.0" are accepted as well. Anything else is unmapped.
func ClassifyMonth(text string) (num int, name string, ok bool) {
	key := strings.ToLower(strings.TrimSpace(text))
	if n, found := monthLookup[key]; found {
		return n, monthNames[n-1], true
	}
	if f, err := strconv.ParseFloat(key, 64); err == nil && f == float64(int(f)) {
		if n, found := monthLookup[strconv.Itoa(int(f))]; found {
			return n, monthNames[n-1], true
		}
	}
	return 0, "", false
}

// MonthName returns "Jan".."Dec" for 1..12 and "" otherwise.
func MonthName(n int) string {
	if n < 1 || n > 12 {
		return ""
	}
	return monthNames[n-1]
}

// Window anchors every year-over-year comparison: the current year is
// compared against the same elapsed period of the previous year.
type Window struct {
	Today                 time.Time
	Yesterday             time.Time
	CurrentYear           int
	CurrentMonth          int
	PreviousYear          int
	PreviousYearYesterday time.Time
}

// NewWindow derives the reporting window from now. When yesterday is
// Feb 29 the previous-year cutoff clamps to Feb 28.
func NewWindow(now time.Time) Window {
	yesterday := now.AddDate(0, 0, -1)
	prev := now.Year() - 1

	_, m, d := yesterday.Date()
	if m == time.February && d == 29 && !isLeap(prev) {
		d = 28
	}
	prevYesterday := time.Date(prev, m, d, yesterday.Hour(), yesterday.Minute(), yesterday.Second(), yesterday.Nanosecond(), yesterday.Location())

	return Window{
		Today:                 now,
		Yesterday:             yesterday,
		CurrentYear:           now.Year(),
		CurrentMonth:          int(now.Month()),
		PreviousYear:          prev,
		PreviousYearYesterday: prevYesterday,
	}
}

// AsOf formats the window cutoff the way dashboard captions show it ("Jul 23").
func (w Window) AsOf() string {
	return w.Yesterday.Format("Jan 02")
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// Clock supplies the instant the reporting window is derived from.
type Clock interface {
	Now() time.Time
}

type liveClock struct{}

func (liveClock) Now() time.Time { return time.Now() }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// LiveClock follows the wall clock.
func LiveClock() Clock { return liveClock{} }

// FixedClock always reports t, for dashboards pinned to a historical cutoff.
func FixedClock(t time.Time) Clock { return fixedClock{t: t} }
