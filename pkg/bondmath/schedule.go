// Package bondmath prices plain fixed-coupon and zero-coupon bonds and solves
// for yield from an observed clean price.
package bondmath

import (
	"errors"
	"fmt"
	"time"

	"BondPanel/pkg/calendar"
	"BondPanel/pkg/daycount"
	"BondPanel/pkg/util"
)

var (
	ErrInvalidSchedule         = errors.New("invalid schedule")
	ErrSettlementAfterMaturity = errors.New("settlement on or after maturity")
	ErrNoConvergence           = errors.New("yield solver did not converge")
	ErrInvalidPrice            = errors.New("price is not finite and positive")
)

// Redemption is the principal repaid per 100 face.
const Redemption = 100.0

// Kind distinguishes the supported instrument shapes.
type Kind int

const (
	Fixed Kind = iota + 1
	Zero
)

// Classify decides how a bond is valued. Coupon type Z is always a zero;
// a fixed-coupon issue paying nothing and quoted below par is valued as a
// zero too. Anything else is unsupported.
func Classify(couponType string, couponPct, price float64) (Kind, bool) {
	switch util.NormalizeCode(couponType) {
	case "Z":
		return Zero, true
	case "F":
		if couponPct > 0 {
			return Fixed, true
		}
		if couponPct == 0 && price < 100 {
			return Zero, true
		}
	}
	return 0, false
}

// FrequencyFromCode maps a reference-data interest frequency code to coupon
// payments per year. Codes 0 and 99 mean semiannual for coupon-paying issues
// and no frequency otherwise.
func FrequencyFromCode(code int, couponPct float64) (int, error) {
	switch code {
	case 1, 2, 4, 12:
		return code, nil
	case 0, 99:
		if couponPct > 0 {
			return 2, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("unsupported interest frequency %d", code)
}

// Bond is the static description needed to build cash flows.
type Bond struct {
	Kind      Kind
	CouponPct float64 // annual coupon, percent of face
	Frequency int     // payments per year; ignored for zeros
	DayCount  daycount.Convention
	DatedDate time.Time
	Maturity  time.Time
}

// CashFlow is one payment per 100 face.
type CashFlow struct {
	AccrualStart time.Time
	AccrualEnd   time.Time
	PayDate      time.Time
	Amount       float64
	Principal    bool
}

// Schedule is the ordered set of flows of a bond.
type Schedule struct {
	Bond  Bond
	Flows []CashFlow
}

// BuildSchedule generates coupon periods backward from maturity to the dated
// date, leaving any short stub at the front. Accrual dates are unadjusted;
// payment dates roll modified-following on cal.
func BuildSchedule(b Bond, cal *calendar.Calendar) (Schedule, error) {
	dated, mat := util.Day(b.DatedDate), util.Day(b.Maturity)
	if dated.IsZero() || mat.IsZero() || !mat.After(dated) {
		return Schedule{}, ErrInvalidSchedule
	}

	s := Schedule{Bond: b}
	redemption := CashFlow{AccrualStart: dated, AccrualEnd: mat, PayDate: cal.ModifiedFollowing(mat), Amount: Redemption, Principal: true}

	if b.Kind == Zero {
		s.Flows = []CashFlow{redemption}
		return s, nil
	}
	if b.Kind != Fixed || b.Frequency <= 0 || 12%b.Frequency != 0 {
		return Schedule{}, ErrInvalidSchedule
	}

	step := 12 / b.Frequency
	eom := util.IsMonthEnd(mat)
	dates := []time.Time{mat}
	for k := 1; ; k++ {
		d := util.AddMonths(mat, -k*step, eom)
		if !d.After(dated) {
			break
		}
		dates = append(dates, d)
	}
	dates = append(dates, dated)

	for i := len(dates) - 1; i > 0; i-- {
		start, end := dates[i], dates[i-1]
		s.Flows = append(s.Flows, CashFlow{
			AccrualStart: start,
			AccrualEnd:   end,
			PayDate:      cal.ModifiedFollowing(end),
			Amount:       b.CouponPct * b.DayCount.YearFraction(start, end),
		})
	}
	redemption.AccrualStart = dates[1]
	s.Flows = append(s.Flows, redemption)
	return s, nil
}

// Accrued returns interest accrued in the coupon period containing settle.
func (s Schedule) Accrued(settle time.Time) float64 {
	if s.Bond.Kind != Fixed {
		return 0
	}
	for _, cf := range s.Flows {
		if cf.Principal {
			continue
		}
		if !settle.Before(cf.AccrualStart) && settle.Before(cf.AccrualEnd) {
			return s.Bond.CouponPct * s.Bond.DayCount.YearFraction(cf.AccrualStart, settle)
		}
	}
	return 0
}

// PaidCoupons sums coupons paid on or before settle.
func (s Schedule) PaidCoupons(settle time.Time) float64 {
	var sum float64
	for _, cf := range s.Flows {
		if !cf.Principal && !cf.PayDate.After(settle) {
			sum += cf.Amount
		}
	}
	return sum
}
