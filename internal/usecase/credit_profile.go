package usecase

import (
	"math"
	"sort"
	"time"

	"BondPanel/internal/domain/models"
	"BondPanel/pkg/stats"
	"BondPanel/pkg/util"
)

var spScale = map[string]int{
	"AAA": 1, "AA+": 2, "AA": 3, "AA/A-1+": 3, "AA-": 4, "AA-/A-1+": 4,
	"A+": 5, "A": 6, "A-": 7, "BBB+": 8, "BBB": 9, "BBB/A-2": 9, "BBB-": 10,
	"BB+": 11, "BB": 12, "BB-": 13, "B+": 14, "B": 15, "B-": 16,
	"CCC+": 17, "CCC": 18, "CCC-": 19, "CC": 20, "C": 21, "D": 22,
}

var moodyScale = map[string]int{
	"Aaa": 1, "Aa1": 2, "Aa2": 3, "Aa3": 4, "A1": 5, "A2": 6, "A3": 7,
	"Baa1": 8, "Baa2": 9, "Baa3": 10, "Ba1": 11, "Ba2": 12, "Ba3": 13,
	"B1": 14, "B2": 15, "B3": 16, "Caa1": 17, "Caa2": 18, "Caa3": 19,
	"Ca": 20, "C": 21,
}

// RatingScore maps an agency letter rating onto the numeric scale where
// AAA/Aaa is 1. Withdrawn, suspended and short-term ratings are not scored.
func RatingScore(agency, rating string) (int, bool) {
	var s int
	var ok bool
	switch agency {
	case models.AgencySP:
		s, ok = spScale[rating]
	case models.AgencyMoody:
		s, ok = moodyScale[rating]
	}
	return s, ok
}

type datedInt struct {
	date  time.Time
	value int
}

type datedFloat struct {
	date  time.Time
	value float64
}

// RatingHistory answers as-of rating lookups per bond.
type RatingHistory struct {
	sp    map[string][]datedInt
	moody map[string][]datedInt
}

func NewRatingHistory(events []models.RatingEvent) *RatingHistory {
	h := &RatingHistory{sp: make(map[string][]datedInt), moody: make(map[string][]datedInt)}
	for _, e := range events {
		s, ok := RatingScore(e.Agency, e.Rating)
		if !ok || e.Date.IsZero() {
			continue
		}
		p := datedInt{date: util.Day(e.Date), value: s}
		if e.Agency == models.AgencySP {
			h.sp[e.Cusip] = append(h.sp[e.Cusip], p)
		} else {
			h.moody[e.Cusip] = append(h.moody[e.Cusip], p)
		}
	}
	for _, m := range []map[string][]datedInt{h.sp, h.moody} {
		for _, s := range m {
			sort.SliceStable(s, func(i, j int) bool { return s[i].date.Before(s[j].date) })
		}
	}
	return h
}

// AsOf returns the latest S&P and Moody's scores on or before t and the
// composite, which prefers S&P. Zero means unrated.
func (h *RatingHistory) AsOf(cusip string, t time.Time) (sp, moody, composite int) {
	if h == nil {
		return 0, 0, 0
	}
	sp = lastInt(h.sp[cusip], t)
	moody = lastInt(h.moody[cusip], t)
	composite = sp
	if composite == 0 {
		composite = moody
	}
	return sp, moody, composite
}

func lastInt(s []datedInt, t time.Time) int {
	i := sort.Search(len(s), func(i int) bool { return s[i].date.After(t) })
	if i == 0 {
		return 0
	}
	return s[i-1].value
}

// AmountHistory answers as-of amount outstanding lookups per bond.
type AmountHistory struct {
	offering map[string]float64
	points   map[string][]datedFloat
}

// NewAmountHistory derives amount outstanding after each action from the
// offering amount and the action amount.
func NewAmountHistory(issues []models.BondIssue, actions []models.AmountAction) *AmountHistory {
	h := &AmountHistory{
		offering: make(map[string]float64, len(issues)),
		points:   make(map[string][]datedFloat),
	}
	for _, b := range issues {
		if b.OfferingAmount > 0 {
			h.offering[b.Cusip] = b.OfferingAmount
		}
	}

	sorted := append([]models.AmountAction(nil), actions...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].EffectiveDate.Before(sorted[j].EffectiveDate) })
	for _, a := range sorted {
		offer, ok := h.offering[a.Cusip]
		if !ok || a.EffectiveDate.IsZero() {
			continue
		}
		out := amountAfter(a, offer)
		if !stats.Valid(out) {
			continue
		}
		h.points[a.Cusip] = append(h.points[a.Cusip], datedFloat{date: util.MonthEnd(a.EffectiveDate), value: out})
	}
	return h
}

func amountAfter(a models.AmountAction, offer float64) float64 {
	amt := a.Amount
	switch util.NormalizeCode(a.Type) {
	case "IM", "E":
		amt = offer
	case "I", "REV":
		amt = 0
	case "IA":
		if math.IsNaN(amt) {
			amt = offer
		}
	case "RO":
		if math.IsNaN(amt) {
			amt = a.AmountOutstanding - offer
		}
		amt = -amt
	case "R":
		if math.IsNaN(amt) {
			amt = 0
		}
	}

	out := offer - amt
	switch util.NormalizeCode(a.Type) {
	case "B":
		if out < 0 {
			out = 0
		}
	case "R":
		if out < 0 {
			out = offer + amt
		}
	}
	return out
}

// AsOf returns the amount outstanding at t, falling back to the offering
// amount before any action. NaN when the bond is unknown.
func (h *AmountHistory) AsOf(cusip string, t time.Time) float64 {
	if h == nil {
		return stats.NaN
	}
	s := h.points[cusip]
	i := sort.Search(len(s), func(i int) bool { return s[i].date.After(t) })
	if i > 0 {
		return s[i-1].value
	}
	if offer, ok := h.offering[cusip]; ok {
		return offer
	}
	return stats.NaN
}

type sicRange struct{ lo, hi, industry int }

// Fama-French 12 industry SIC ranges; anything unlisted is 12 (Other).
var ff12Ranges = []sicRange{
	{100, 999, 1}, {2000, 2399, 1}, {2700, 2749, 1}, {2770, 2799, 1}, {3100, 3199, 1}, {3940, 3989, 1},
	{2500, 2519, 2}, {2590, 2599, 2}, {3630, 3659, 2}, {3710, 3711, 2}, {3714, 3714, 2}, {3716, 3716, 2},
	{3750, 3751, 2}, {3792, 3792, 2}, {3900, 3939, 2}, {3990, 3999, 2},
	{2520, 2589, 3}, {2600, 2699, 3}, {2750, 2769, 3}, {3000, 3099, 3}, {3200, 3569, 3}, {3580, 3629, 3},
	{3700, 3709, 3}, {3712, 3713, 3}, {3715, 3715, 3}, {3717, 3749, 3}, {3752, 3791, 3}, {3793, 3799, 3},
	{3830, 3839, 3}, {3860, 3899, 3},
	{1200, 1399, 4}, {2900, 2999, 4},
	{2800, 2829, 5}, {2840, 2899, 5},
	{3570, 3579, 6}, {3660, 3692, 6}, {3694, 3699, 6}, {3810, 3829, 6}, {7370, 7379, 6},
	{4800, 4899, 7},
	{4900, 4949, 8},
	{5000, 5999, 9}, {7200, 7299, 9}, {7600, 7699, 9},
	{2830, 2839, 10}, {3693, 3693, 10}, {3840, 3859, 10}, {8000, 8099, 10},
	{6000, 6999, 11},
}

// FF12 classifies a SIC code into the Fama-French 12 industries.
func FF12(sic int) int {
	for _, r := range ff12Ranges {
		if sic >= r.lo && sic <= r.hi {
			return r.industry
		}
	}
	return 12
}
