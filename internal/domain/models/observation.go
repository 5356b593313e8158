package models

import "time"

// DailyBondObservation summarises one bond's surviving trades on one date.
type DailyBondObservation struct {
	Cusip          string
	Date           time.Time
	PriceEW        float64
	PriceVW        float64
	Open           float64
	High           float64
	Low            float64
	Close          float64
	ParVolume      float64
	DollarVolume   float64
	Trades         int
	Roll           float64
	LIX            float64
	BidAsk         float64
	IQR            float64
	Volatility     float64
	AmihudIntraday float64
}

// Valuation holds the pricing outputs; Valid is false when the observation
// could not be valued and every number is NaN.
type Valuation struct {
	Valid       bool
	Settlement  time.Time
	Yield       float64
	YieldTrue   float64
	Clean       float64
	Dirty       float64
	AccruedLast float64
	AccruedPaid float64
	AccruedAll  float64
	ModDuration float64
	Convexity   float64
}

// ValuedBondObservation is a daily observation plus its valuation.
type ValuedBondObservation struct {
	DailyBondObservation
	Valuation
	// Price is the quote used for valuation after any par rescaling.
	Price float64
}
