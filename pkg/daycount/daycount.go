// Package daycount maps reference-data day-count codes to year-fraction
// conventions.
package daycount

import (
	"fmt"
	"strings"
	"time"

	"BondPanel/pkg/util"
)

// Convention is a day-count basis.
type Convention int

const (
	Thirty360 Convention = iota
	ActualActualISDA
	Actual360
	Actual365Fixed
)

func (c Convention) String() string {
	switch c {
	case Thirty360:
		return "30/360"
	case ActualActualISDA:
		return "ACT/ACT"
	case Actual360:
		return "ACT/360"
	case Actual365Fixed:
		return "ACT/365"
	}
	return fmt.Sprintf("Convention(%d)", int(c))
}

var codes = map[string]Convention{
	"":        Thirty360,
	"30/360":  Thirty360,
	"ACT/ACT": ActualActualISDA,
	"ACT/360": Actual360,
	"ACT/365": Actual365Fixed,
	"ACT/366": Actual365Fixed,
}

// Parse resolves a reference-data code. Empty means 30/360.
func Parse(code string) (Convention, error) {
	c, ok := codes[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return 0, fmt.Errorf("unknown day count %q", code)
	}
	return c, nil
}

// DayCount returns the day count between two dates under the convention.
func (c Convention) DayCount(start, end time.Time) int {
	if c == Thirty360 {
		return thirty360Days(start, end)
	}
	return util.DaysBetween(start, end)
}

// YearFraction returns the accrual fraction between start and end.
func (c Convention) YearFraction(start, end time.Time) float64 {
	switch c {
	case Thirty360:
		return float64(thirty360Days(start, end)) / 360
	case Actual360:
		return float64(util.DaysBetween(start, end)) / 360
	case Actual365Fixed:
		return float64(util.DaysBetween(start, end)) / 365
	case ActualActualISDA:
		return actActISDA(start, end)
	}
	panic(fmt.Sprintf("daycount: unhandled convention %d", int(c)))
}

// US bond basis 30/360.
func thirty360Days(start, end time.Time) int {
	y1, m1, d1 := start.Date()
	y2, m2, d2 := end.Date()
	if d1 == 31 {
		d1 = 30
	}
	if d2 == 31 && d1 >= 30 {
		d2 = 30
	}
	return 360*(y2-y1) + 30*(int(m2)-int(m1)) + (d2 - d1)
}

func daysInYear(y int) float64 {
	if y%4 == 0 && (y%100 != 0 || y%400 == 0) {
		return 366
	}
	return 365
}

func actActISDA(start, end time.Time) float64 {
	if !end.After(start) {
		if end.Equal(start) {
			return 0
		}
		return -actActISDA(end, start)
	}
	y1, y2 := start.Year(), end.Year()
	if y1 == y2 {
		return float64(util.DaysBetween(start, end)) / daysInYear(y1)
	}
	frac := float64(util.DaysBetween(start, util.Date(y1+1, time.January, 1))) / daysInYear(y1)
	frac += float64(y2 - y1 - 1)
	frac += float64(util.DaysBetween(util.Date(y2, time.January, 1), end)) / daysInYear(y2)
	return frac
}
