package usecase

import (
	"errors"
	"time"

	"BondPanel/internal/domain/models"
	"BondPanel/pkg/bondmath"
	"BondPanel/pkg/calendar"
	"BondPanel/pkg/daycount"
	"BondPanel/pkg/stats"
	"BondPanel/pkg/util"
)

// ParRule rescales quotes of bonds with a given par denomination. An empty
// Frequencies list matches any coupon frequency.
type ParRule struct {
	Par         float64
	Frequencies []int
	Multiplier  float64
}

func (r ParRule) matches(par float64, freq int) bool {
	if r.Par != par {
		return false
	}
	if len(r.Frequencies) == 0 {
		return true
	}
	for _, f := range r.Frequencies {
		if f == freq {
			return true
		}
	}
	return false
}

// DefaultParTable lists the recognised denominations.
func DefaultParTable() []ParRule {
	return []ParRule{
		{Par: 1000, Multiplier: 1},
		{Par: 100, Multiplier: 1},
		{Par: 25, Multiplier: 1},
		{Par: 10, Frequencies: []int{1, 4, 12}, Multiplier: 10},
	}
}

// DefaultDatedOverrides fixes known reference-data errors by identifier.
func DefaultDatedOverrides() map[string]time.Time {
	return map[string]time.Time{"61768T613": util.Date(2018, time.December, 5)}
}

type ValuationConfig struct {
	ParTable   []ParRule
	DefaultPar float64
	// PriceField picks the daily price to value: vw, ew or close.
	PriceField     string
	DatedOverrides map[string]time.Time
}

func (c ValuationConfig) withDefaults() ValuationConfig {
	if len(c.ParTable) == 0 {
		c.ParTable = DefaultParTable()
	}
	if c.DefaultPar == 0 {
		c.DefaultPar = 1000
	}
	if c.PriceField == "" {
		c.PriceField = "vw"
	}
	if c.DatedOverrides == nil {
		c.DatedOverrides = DefaultDatedOverrides()
	}
	return c
}

// Valuation drop and failure reasons.
const (
	DropUnknownPar          = "unknown_par"
	FailUnsupportedBond     = "unsupported_bond"
	FailDayCount            = "day_count"
	FailFrequency           = "frequency"
	FailSettlementMaturity  = "settlement_after_maturity"
	FailNoConvergence       = "no_convergence"
	FailInvalidSchedule     = "invalid_schedule"
	FailInvalidPrice        = "invalid_price"
	valuationStage          = "valuation"
	valuationFailureUnknown = "other"
)

// ValuationResult carries valued observations and per-reason counts of
// dropped observations and null valuations.
type ValuationResult struct {
	Observations []models.ValuedBondObservation
	Dropped      map[string]int
	Failed       map[string]int
}

// Valuer solves yields and risk measures for daily observations.
type Valuer struct {
	cfg ValuationConfig
	cal *calendar.Calendar
}

func NewValuer(cfg ValuationConfig, cal *calendar.Calendar) *Valuer {
	return &Valuer{cfg: cfg.withDefaults(), cal: cal}
}

// ValueBond values one bond's observations. A failing observation keeps a
// null valuation; only unrecognised par denominations are dropped.
func (v *Valuer) ValueBond(issue models.BondIssue, obs []models.DailyBondObservation) ValuationResult {
	res := ValuationResult{Dropped: map[string]int{}, Failed: map[string]int{}}

	par := issue.ParValue
	if par == 0 {
		par = v.cfg.DefaultPar
	}
	freq, freqErr := bondmath.FrequencyFromCode(issue.InterestFrequency, issue.Coupon)
	mult, ok := v.multiplier(par, freq)
	if !ok {
		res.Dropped[DropUnknownPar] = len(obs)
		return res
	}
	dc, dcErr := daycount.Parse(issue.DayCountBasis)

	dated := issue.EffectiveDatedDate()
	if d, ok := v.cfg.DatedOverrides[issue.Cusip]; ok {
		dated = d
	}

	for _, o := range obs {
		price := v.price(o) * mult
		val := models.ValuedBondObservation{DailyBondObservation: o, Price: price, Valuation: nullValuation()}

		var err error
		switch {
		case dcErr != nil:
			err = dcErr
			res.Failed[FailDayCount]++
		case freqErr != nil:
			err = freqErr
			res.Failed[FailFrequency]++
		}
		if err == nil {
			kind, supported := bondmath.Classify(issue.CouponType, issue.Coupon, price)
			if !supported {
				res.Failed[FailUnsupportedBond]++
			} else {
				b := bondmath.Bond{Kind: kind, CouponPct: issue.Coupon, Frequency: freq, DayCount: dc, DatedDate: dated, Maturity: issue.Maturity}
				a, verr := bondmath.Value(b, price, o.Date, v.cal)
				if verr != nil {
					res.Failed[failureReason(verr)]++
				} else {
					val.Valuation = models.Valuation{
						Valid:       true,
						Settlement:  a.Settlement,
						Yield:       a.Yield,
						YieldTrue:   a.YieldTrue,
						Clean:       a.Clean,
						Dirty:       a.Dirty,
						AccruedLast: a.AccruedLast,
						AccruedPaid: a.AccruedPaid,
						AccruedAll:  a.AccruedAll(),
						ModDuration: a.ModDuration,
						Convexity:   a.Convexity,
					}
				}
			}
		}
		res.Observations = append(res.Observations, val)
	}
	return res
}

func (v *Valuer) multiplier(par float64, freq int) (float64, bool) {
	for _, r := range v.cfg.ParTable {
		if r.matches(par, freq) {
			return r.Multiplier, true
		}
	}
	return 0, false
}

func (v *Valuer) price(o models.DailyBondObservation) float64 {
	switch v.cfg.PriceField {
	case "ew":
		return o.PriceEW
	case "close":
		return o.Close
	}
	if stats.Valid(o.PriceVW) {
		return o.PriceVW
	}
	return o.PriceEW
}

func nullValuation() models.Valuation {
	n := stats.NaN
	return models.Valuation{
		Yield: n, YieldTrue: n, Clean: n, Dirty: n,
		AccruedLast: n, AccruedPaid: n, AccruedAll: n,
		ModDuration: n, Convexity: n,
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, bondmath.ErrSettlementAfterMaturity):
		return FailSettlementMaturity
	case errors.Is(err, bondmath.ErrNoConvergence):
		return FailNoConvergence
	case errors.Is(err, bondmath.ErrInvalidSchedule):
		return FailInvalidSchedule
	case errors.Is(err, bondmath.ErrInvalidPrice):
		return FailInvalidPrice
	}
	return valuationFailureUnknown
}
