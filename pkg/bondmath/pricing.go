package bondmath

import (
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"

	"BondPanel/pkg/calendar"
)

const (
	priceTolerance = 1e-10
	maxNewtonSteps = 100
)

// future holds the remaining flows with their discount times.
type future struct {
	t      []float64
	amount []float64
}

func (s Schedule) future(settle time.Time) future {
	var f future
	for _, cf := range s.Flows {
		if !cf.PayDate.After(settle) {
			continue
		}
		f.t = append(f.t, s.Bond.DayCount.YearFraction(settle, cf.PayDate))
		f.amount = append(f.amount, cf.Amount)
	}
	return f
}

// dirty returns price and its first two yield derivatives under periodic
// compounding m times a year.
func (f future) dirty(y float64, m int) (p, dp, d2p float64) {
	fm := float64(m)
	base := 1 + y/fm
	for i, t := range f.t {
		df := math.Pow(base, -fm*t)
		p += f.amount[i] * df
		dp -= f.amount[i] * t * df / base
		d2p += f.amount[i] * t * (fm*t + 1) / fm * df / (base * base)
	}
	return p, dp, d2p
}

// DirtyPrice prices the schedule at yield y compounded m times per year.
func (s Schedule) DirtyPrice(y float64, m int, settle time.Time) float64 {
	p, _, _ := s.future(settle).dirty(y, m)
	return p
}

// CleanPrice is DirtyPrice less accrued interest.
func (s Schedule) CleanPrice(y float64, m int, settle time.Time) float64 {
	return s.DirtyPrice(y, m, settle) - s.Accrued(settle)
}

// Yield solves for the yield compounded m times a year that reproduces the
// clean price. Newton iteration runs first; a Nelder-Mead search on the
// squared pricing error is the fallback.
func (s Schedule) Yield(clean float64, m int, settle time.Time) (float64, error) {
	if m <= 0 {
		return 0, ErrInvalidSchedule
	}
	f := s.future(settle)
	if len(f.t) == 0 {
		return 0, ErrSettlementAfterMaturity
	}
	target := clean + s.Accrued(settle)
	fm := float64(m)

	y := 0.05
	if s.Bond.Kind == Fixed && clean > 0 {
		y = s.Bond.CouponPct / clean
	}
	for i := 0; i < maxNewtonSteps; i++ {
		p, dp, _ := f.dirty(y, m)
		diff := p - target
		if math.Abs(diff) < priceTolerance {
			return y, nil
		}
		if dp == 0 || math.IsNaN(dp) {
			break
		}
		next := y - diff/dp
		if 1+next/fm <= 0 || math.IsNaN(next) {
			break
		}
		y = next
	}

	objective := func(x []float64) float64 {
		if 1+x[0]/fm <= 0 {
			return math.MaxFloat64
		}
		p, _, _ := f.dirty(x[0], m)
		d := p - target
		return d * d
	}
	res, err := optimize.Minimize(optimize.Problem{Func: objective}, []float64{0.05}, &optimize.Settings{FuncEvaluations: 5000}, &optimize.NelderMead{})
	if err != nil && res == nil {
		return 0, ErrNoConvergence
	}
	if res == nil || math.Sqrt(res.F) > 1e-6 {
		return 0, ErrNoConvergence
	}
	return res.X[0], nil
}

// Analytics are the valuation outputs for one observation.
type Analytics struct {
	Settlement  time.Time
	Yield       float64 // semiannual compounding
	YieldTrue   float64 // compounding at the coupon frequency
	Clean       float64
	Dirty       float64
	AccruedLast float64
	AccruedPaid float64
	ModDuration float64
	Convexity   float64
}

// AccruedAll is accrued interest in the current period plus coupons paid.
func (a Analytics) AccruedAll() float64 { return a.AccruedLast + a.AccruedPaid }

// SettlementDays is the standard corporate settlement lag.
const SettlementDays = 2

// Value settles a trade date on cal and solves every analytic for an
// observed clean price.
func Value(b Bond, clean float64, tradeDate time.Time, cal *calendar.Calendar) (Analytics, error) {
	if math.IsNaN(clean) || math.IsInf(clean, 0) || clean <= 0 {
		return Analytics{}, ErrInvalidPrice
	}
	settle := cal.ModifiedFollowing(cal.AddBusinessDays(tradeDate, SettlementDays))
	if !settle.Before(b.Maturity) {
		return Analytics{}, ErrSettlementAfterMaturity
	}
	s, err := BuildSchedule(b, cal)
	if err != nil {
		return Analytics{}, err
	}

	y, err := s.Yield(clean, 2, settle)
	if err != nil {
		return Analytics{}, err
	}

	yTrue := y
	trueFreq := b.Frequency
	if b.Kind == Zero {
		trueFreq = 1
	}
	if trueFreq != 2 {
		if yTrue, err = s.Yield(clean, trueFreq, settle); err != nil {
			return Analytics{}, err
		}
	}

	p, dp, d2p := s.future(settle).dirty(y, 2)
	accrued := s.Accrued(settle)
	return Analytics{
		Settlement:  settle,
		Yield:       y,
		YieldTrue:   yTrue,
		Clean:       p - accrued,
		Dirty:       p,
		AccruedLast: accrued,
		AccruedPaid: s.PaidCoupons(settle),
		ModDuration: -dp / p,
		Convexity:   d2p / p,
	}, nil
}
