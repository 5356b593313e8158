package models

import "time"

// BenchmarkPoint is one tenor of the risk-free benchmark curve.
type BenchmarkPoint struct {
	Term        int     // nominal years
	Maturity    float64 // actual years to maturity
	Duration    float64
	ModDuration float64
	Yield       float64
	Return      float64
}

// BenchmarkCurve is the benchmark term structure at one month-end.
type BenchmarkCurve struct {
	MonthEnd time.Time
	Points   []BenchmarkPoint
}

// RiskFreeRate is the monthly short rate, in decimal per month.
type RiskFreeRate struct {
	MonthEnd time.Time
	Rate     float64
}

// Rating agencies.
const (
	AgencySP    = "SPR"
	AgencyMoody = "MR"
)

// RatingEvent is a rating assigned by an agency on a date.
type RatingEvent struct {
	Cusip  string
	Agency string
	Date   time.Time
	Rating string
}

// AmountAction is an event that changes the amount outstanding.
// Amount and AmountOutstanding are NaN when not reported.
type AmountAction struct {
	Cusip             string
	Type              string
	EffectiveDate     time.Time
	Amount            float64
	AmountOutstanding float64
}
