package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"salesdash/internal/core"
)

// Layouts tried in order. Slash dates are month-first, as spreadsheet
// exports in these feeds are.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/06",
	"02-Jan-2006",
	"2-Jan-06",
	"02 Jan 2006",
	"Jan 2, 2006",
}

// serial numbers outside this range are not plausible booking dates
const (
	minSerial = 1
	maxSerial = 2958465 // 9999-12-31
)

// ParseDate parses a date cell. Excel serial numbers are accepted.
// Invalid input yields an absent date and ok=false.
func ParseDate(s string) (core.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f < minSerial || f > maxSerial {
			return core.Date{}, false
		}
		t, err := excelize.ExcelDateToTime(f, false)
		if err != nil {
			return core.Date{}, false
		}
		return core.Date{Time: t.UTC()}, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.Date{Time: t.UTC()}, true
		}
	}
	return core.Date{}, false
}

// parseInt accepts integral cells, including spreadsheet floats like "2025.0".
func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
