// Package calendar provides the business-day calendars used for settlement
// dates and return windows.
package calendar

import (
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/aa"
	"github.com/rickar/cal/v2/us"

	"BondPanel/pkg/util"
)

// Calendar answers business-day questions on UTC dates.
type Calendar struct {
	name string
	bc   *cal.BusinessCalendar
}

// NYSE is the exchange settlement calendar.
func NYSE() *Calendar {
	bc := cal.NewBusinessCalendar()
	bc.AddHoliday(
		us.NewYear,
		us.MlkDay,
		us.PresidentsDay,
		aa.GoodFriday,
		us.MemorialDay,
		us.Juneteenth,
		us.IndependenceDay,
		us.LaborDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	)
	return &Calendar{name: "nyse", bc: bc}
}

// Federal is the US federal holiday calendar.
func Federal() *Calendar {
	bc := cal.NewBusinessCalendar()
	bc.AddHoliday(
		us.NewYear,
		us.MlkDay,
		us.PresidentsDay,
		us.MemorialDay,
		us.Juneteenth,
		us.IndependenceDay,
		us.LaborDay,
		us.ColumbusDay,
		us.VeteransDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	)
	return &Calendar{name: "federal", bc: bc}
}

// Weekdays treats every Monday to Friday as a business day.
func Weekdays() *Calendar {
	return &Calendar{name: "weekdays", bc: cal.NewBusinessCalendar()}
}

func (c *Calendar) Name() string { return c.name }

func (c *Calendar) IsBusinessDay(t time.Time) bool {
	return c.bc.IsWorkday(util.Day(t).Add(12 * time.Hour))
}

// AddBusinessDays moves n business days forward (n>0) or backward (n<0).
// With n == 0 the date is returned unchanged.
func (c *Calendar) AddBusinessDays(t time.Time, n int) time.Time {
	d := util.Day(t)
	step := 1
	if n < 0 {
		step, n = -1, -n
	}
	for n > 0 {
		d = d.AddDate(0, 0, step)
		if c.IsBusinessDay(d) {
			n--
		}
	}
	return d
}

// Following rolls a non-business day forward.
func (c *Calendar) Following(t time.Time) time.Time {
	d := util.Day(t)
	for !c.IsBusinessDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// ModifiedFollowing rolls forward unless that crosses into the next month,
// in which case it rolls backward.
func (c *Calendar) ModifiedFollowing(t time.Time) time.Time {
	d := c.Following(t)
	if d.Month() == util.Day(t).Month() {
		return d
	}
	d = util.Day(t)
	for !c.IsBusinessDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// BusinessDaysBetween counts business days in [from, to).
func (c *Calendar) BusinessDaysBetween(from, to time.Time) int {
	a, b := util.Day(from), util.Day(to)
	sign := 1
	if b.Before(a) {
		a, b, sign = b, a, -1
	}
	n := 0
	for d := a; d.Before(b); d = d.AddDate(0, 0, 1) {
		if c.IsBusinessDay(d) {
			n++
		}
	}
	return sign * n
}

// FirstBusinessDays returns the first n business days of t's month.
func (c *Calendar) FirstBusinessDays(t time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	end := util.MonthEnd(t)
	for d := util.MonthBegin(t); !d.After(end) && len(out) < n; d = d.AddDate(0, 0, 1) {
		if c.IsBusinessDay(d) {
			out = append(out, d)
		}
	}
	return out
}

// LastBusinessDays returns the last n business days of t's month, latest first.
func (c *Calendar) LastBusinessDays(t time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	begin := util.MonthBegin(t)
	for d := util.MonthEnd(t); !d.Before(begin) && len(out) < n; d = d.AddDate(0, 0, -1) {
		if c.IsBusinessDay(d) {
			out = append(out, d)
		}
	}
	return out
}
