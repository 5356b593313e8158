package models

import "time"

// ObservationSource tells which month boundary a monthly price came from.
type ObservationSource string

const (
	SourceEnd   ObservationSource = "end"
	SourceBegin ObservationSource = "begin"
)

// MonthlyReturn is one month's price observation and the return from the
// previous month.
type MonthlyReturn struct {
	Cusip        string
	MonthEnd     time.Time
	ObsDate      time.Time
	Source       ObservationSource
	Price        float64
	Dirty        float64
	AccruedAll   float64
	Yield        float64
	YieldTrue    float64
	ModDuration  float64
	Convexity    float64
	ParVolume    float64
	DollarVolume float64
	// Ret is the configured headline return; the others are its variants.
	Ret        float64
	RetPrice   float64
	RetAccrued float64
	RetTotal   float64
}

// MonthlyBondRecord is one row of the assembled bond-month panel.
type MonthlyBondRecord struct {
	MonthlyReturn
	TMT               float64
	YieldInterpTMT    float64
	YieldInterpDur    float64
	RetInterpTMT      float64
	RetInterpDur      float64
	CreditSpread      float64
	CreditSpreadDur   float64
	RiskFree          float64
	ExRet             float64 // over risk-free
	ExRetBench        float64 // over maturity-matched benchmark
	ExRetBenchDur     float64 // over duration-matched benchmark
	RatingSP          int
	RatingMoody       int
	Rating            int
	AmountOutstanding float64
	Industry          int
	VaR               float64
	Liquidity         MonthlyLiquidity
	CS12              float64
	RetNext           float64
	ExRetNext         float64
	ExRetBenchNext    float64
	ExRetBenchDurNext float64
}

// MonthlyLiquidity holds per bond-month illiquidity measures.
type MonthlyLiquidity struct {
	Cusip    string
	MonthEnd time.Time
	BPW      float64
	Roll     float64
	Amihud   float64
	VoV      float64
	PSGamma  float64
	N        int
}
