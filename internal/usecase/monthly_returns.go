package usecase

import (
	"sort"
	"time"

	"BondPanel/internal/domain/models"
	"BondPanel/pkg/calendar"
	"BondPanel/pkg/stats"
	"BondPanel/pkg/util"
)

// ReturnBase selects the denominator of accrued-inclusive returns.
type ReturnBase string

const (
	BaseClean ReturnBase = "clean"
	BaseDirty ReturnBase = "dirty"
)

type MonthlyConfig struct {
	// WindowDays is how many business days at each month boundary qualify.
	WindowDays int
	// MaxGapDays bounds the distance between the month-ends of two
	// observations that form a return.
	MaxGapDays int
	Base       ReturnBase
}

func (c MonthlyConfig) withDefaults() MonthlyConfig {
	if c.WindowDays <= 0 {
		c.WindowDays = 5
	}
	if c.MaxGapDays <= 0 {
		c.MaxGapDays = 31
	}
	if c.Base == "" {
		c.Base = BaseClean
	}
	return c
}

// MonthlyConstructor picks month-boundary prices and forms monthly returns.
type MonthlyConstructor struct {
	cfg MonthlyConfig
	cal *calendar.Calendar
}

func NewMonthlyConstructor(cfg MonthlyConfig, cal *calendar.Calendar) *MonthlyConstructor {
	return &MonthlyConstructor{cfg: cfg.withDefaults(), cal: cal}
}

// Build returns one record per month-end for a single bond, ordered by date.
// A month-end observation (last trade in the final business days of month M)
// is dated at the end of M; a month-begin observation (first trade in the
// opening business days of M) stands in for the end of M-1. Each kind forms
// its own return series and month-end observations win where both exist.
func (m *MonthlyConstructor) Build(obs []models.ValuedBondObservation) []models.MonthlyReturn {
	sorted := make([]models.ValuedBondObservation, 0, len(obs))
	for _, o := range obs {
		if stats.Valid(o.Price) && o.Price > 0 {
			sorted = append(sorted, o)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	var ends, begins []models.MonthlyReturn
	for i := 0; i < len(sorted); {
		month := util.MonthBegin(sorted[i].Date)
		j := i
		for j < len(sorted) && util.MonthBegin(sorted[j].Date).Equal(month) {
			j++
		}
		first, last := sorted[i], sorted[j-1]

		if lastDays := m.cal.LastBusinessDays(month, m.cfg.WindowDays); len(lastDays) > 0 && !last.Date.Before(lastDays[len(lastDays)-1]) {
			ends = append(ends, monthlyFrom(last, util.MonthEnd(month), models.SourceEnd))
		}
		if firstDays := m.cal.FirstBusinessDays(month, m.cfg.WindowDays); len(firstDays) > 0 && !first.Date.After(firstDays[len(firstDays)-1]) {
			begins = append(begins, monthlyFrom(first, util.PrevMonthEnd(month), models.SourceBegin))
		}
		i = j
	}

	m.chain(ends)
	m.chain(begins)

	byMonth := make(map[time.Time]models.MonthlyReturn, len(ends)+len(begins))
	for _, r := range begins {
		byMonth[r.MonthEnd] = r
	}
	for _, r := range ends {
		byMonth[r.MonthEnd] = r
	}
	out := make([]models.MonthlyReturn, 0, len(byMonth))
	for _, r := range byMonth {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthEnd.Before(out[j].MonthEnd) })
	return out
}

func monthlyFrom(o models.ValuedBondObservation, monthEnd time.Time, src models.ObservationSource) models.MonthlyReturn {
	return models.MonthlyReturn{
		Cusip:        o.Cusip,
		MonthEnd:     monthEnd,
		ObsDate:      o.Date,
		Source:       src,
		Price:        o.Price,
		Dirty:        o.Dirty,
		AccruedAll:   o.AccruedAll,
		Yield:        o.Yield,
		YieldTrue:    o.YieldTrue,
		ModDuration:  o.ModDuration,
		Convexity:    o.Convexity,
		ParVolume:    o.ParVolume,
		DollarVolume: o.DollarVolume,
		Ret:          stats.NaN,
		RetPrice:     stats.NaN,
		RetAccrued:   stats.NaN,
		RetTotal:     stats.NaN,
	}
}

// chain fills returns between consecutive records that pass the gap check.
func (m *MonthlyConstructor) chain(series []models.MonthlyReturn) {
	for i := 1; i < len(series); i++ {
		prev, cur := series[i-1], &series[i]
		if util.DaysBetween(prev.MonthEnd, cur.MonthEnd) > m.cfg.MaxGapDays {
			continue
		}
		cur.RetPrice = clipReturn(cur.Price/prev.Price - 1)
		gain := cur.Price + cur.AccruedAll - prev.Price - prev.AccruedAll
		cur.RetAccrued = clipReturn(gain / prev.Price)
		if stats.Valid(prev.Dirty) && prev.Dirty > 0 {
			cur.RetTotal = clipReturn(gain / prev.Dirty)
		}
		if m.cfg.Base == BaseDirty {
			cur.Ret = cur.RetTotal
		} else {
			cur.Ret = cur.RetAccrued
		}
	}
}

func clipReturn(r float64) float64 {
	if !stats.Valid(r) {
		return stats.NaN
	}
	return stats.Clip(r, -1, 1)
}
