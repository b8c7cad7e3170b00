package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMonth(t *testing.T) {
	cases := []struct {
		in   string
		num  int
		name string
		ok   bool
	}{
		{"JUL", 7, "Jul", true},
		{"july", 7, "Jul", true},
		{"7", 7, "Jul", true},
		{"  Sep ", 9, "Sep", true},
		{"September", 9, "Sep", true},
		{"12", 12, "Dec", true},
		{"7.0", 7, "Jul", true},
		{"13", 0, "", false},
		{"0", 0, "", false},
		{"", 0, "", false},
		{"sept", 0, "", false},
		{"7.5", 0, "", false},
	}
	for _, tc := range cases {
		num, name, ok := ClassifyMonth(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.num, num, "input %q", tc.in)
		assert.Equal(t, tc.name, name, "input %q", tc.in)
	}
}

func TestMonthName(t *testing.T) {
	assert.Equal(t, "Jan", MonthName(1))
	assert.Equal(t, "Dec", MonthName(12))
	assert.Equal(t, "", MonthName(0))
	assert.Equal(t, "", MonthName(13))
}

func TestNewWindow(t *testing.T) {
	w := NewWindow(time.Date(2025, 7, 24, 22, 4, 0, 0, time.UTC))

	assert.Equal(t, 2025, w.CurrentYear)
	assert.Equal(t, 7, w.CurrentMonth)
	assert.Equal(t, 2024, w.PreviousYear)
	assert.Equal(t, time.Date(2025, 7, 23, 22, 4, 0, 0, time.UTC), w.Yesterday)
	assert.Equal(t, time.Date(2024, 7, 23, 22, 4, 0, 0, time.UTC), w.PreviousYearYesterday)
	assert.Equal(t, "Jul 23", w.AsOf())
}

func TestNewWindowMonthBoundary(t *testing.T) {
	w := NewWindow(time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC))

	assert.Equal(t, 8, w.CurrentMonth)
	assert.Equal(t, time.July, w.Yesterday.Month())
	assert.Equal(t, 31, w.Yesterday.Day())
}

func TestNewWindowLeapDayClamps(t *testing.T) {
	w := NewWindow(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	assert.Equal(t, 29, w.Yesterday.Day())
	assert.Equal(t, time.Date(2023, 2, 28, 12, 0, 0, 0, time.UTC), w.PreviousYearYesterday)
}

func TestClocks(t *testing.T) {
	pinned := time.Date(2025, 7, 24, 22, 4, 0, 0, time.UTC)
	assert.Equal(t, pinned, FixedClock(pinned).Now())
	assert.WithinDuration(t, time.Now(), LiveClock().Now(), time.Second)
}
