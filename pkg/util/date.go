package util

import (
	"strconv"
	"time"
)

const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a UTC midnight date.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts YYYY-MM-DD, YYYYMMDD, or RFC3339 and returns the UTC date.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{DateLayout, "20060102", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return Day(time.Unix(ts, 0).UTC()), true
	}
	return time.Time{}, false
}

// ParseDateDefault parses a date or returns def if empty/invalid.
func ParseDateDefault(s string, def time.Time) time.Time {
	if t, ok := ParseDate(s); ok {
		return t
	}
	return def
}

func MonthBegin(t time.Time) time.Time {
	y, m, _ := t.Date()
	return Date(y, m, 1)
}

func MonthEnd(t time.Time) time.Time {
	return MonthBegin(t).AddDate(0, 1, -1)
}

// NextMonthEnd returns the month-end of the month after t.
func NextMonthEnd(t time.Time) time.Time {
	return MonthEnd(MonthBegin(t).AddDate(0, 1, 0))
}

// PrevMonthEnd returns the month-end of the month before t.
func PrevMonthEnd(t time.Time) time.Time {
	return MonthBegin(t).AddDate(0, 0, -1)
}

func IsMonthEnd(t time.Time) bool {
	return Day(t).Equal(MonthEnd(t))
}

// AddMonths shifts t by n months, clamping the day to the target month's length.
// When eom is set and t is a month-end, the result is also a month-end.
func AddMonths(t time.Time, n int, eom bool) time.Time {
	first := MonthBegin(t).AddDate(0, n, 0)
	last := MonthEnd(first)
	if eom && IsMonthEnd(t) {
		return last
	}
	d := t.Day()
	if d > last.Day() {
		d = last.Day()
	}
	return Date(first.Year(), first.Month(), d)
}

// DaysBetween counts calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// YearsBetween measures an actual/365.25 distance, used for time-to-maturity.
func YearsBetween(a, b time.Time) float64 {
	return float64(DaysBetween(a, b)) / 365.25
}

// MonthsBetween counts month boundaries crossed from a to b.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
