package usecase

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"BondPanel/internal/domain/models"
	"BondPanel/pkg/calendar"
	"BondPanel/pkg/stats"
	"BondPanel/pkg/util"
)

type LiquidityConfig struct {
	// MaxGapBusinessDays bounds the business days spanned by a daily return.
	MaxGapBusinessDays int
	// MinObservations is the fewest daily returns a month needs.
	MinObservations int
	// PSMinObservations is the fewest regression rows for Pastor-Stambaugh.
	PSMinObservations int
	PSWinsorize       bool
}

func (c LiquidityConfig) withDefaults() LiquidityConfig {
	if c.MaxGapBusinessDays <= 0 {
		c.MaxGapBusinessDays = 7
	}
	if c.MinObservations <= 0 {
		c.MinObservations = 5
	}
	if c.PSMinObservations <= 0 {
		c.PSMinObservations = 10
	}
	return c
}

// DailyReturn is a log price change in percent between consecutive trading
// days of one bond.
type DailyReturn struct {
	Cusip        string
	Date         time.Time
	DeltaP       float64
	DeltaPLag    float64
	DollarVolume float64
}

// HasLag reports whether the previous day's return is usable too.
func (r DailyReturn) HasLag() bool { return stats.Valid(r.DeltaPLag) }

// LiquidityEstimator computes monthly illiquidity measures from daily prices.
type LiquidityEstimator struct {
	cfg LiquidityConfig
	cal *calendar.Calendar
}

func NewLiquidityEstimator(cfg LiquidityConfig, cal *calendar.Calendar) *LiquidityEstimator {
	return &LiquidityEstimator{cfg: cfg.withDefaults(), cal: cal}
}

// DailyReturns builds clipped log returns of one bond's volume-weighted
// price. Returns spanning more than the allowed business-day gap are left
// out, and a lag is attached only when the previous return survived.
func (e *LiquidityEstimator) DailyReturns(obs []models.DailyBondObservation) []DailyReturn {
	sorted := make([]models.DailyBondObservation, 0, len(obs))
	for _, o := range obs {
		if p := dailyPrice(o); stats.Valid(p) && p > 0 {
			sorted = append(sorted, o)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	var out []DailyReturn
	prevValid := false
	prevDelta := stats.NaN
	for i := 1; i < len(sorted); i++ {
		a, b := sorted[i-1], sorted[i]
		gap := e.cal.BusinessDaysBetween(a.Date, b.Date)
		if gap > e.cfg.MaxGapBusinessDays {
			prevValid = false
			continue
		}
		d := stats.Clip(math.Log(dailyPrice(b))-math.Log(dailyPrice(a)), -1, 1) * 100
		r := DailyReturn{Cusip: b.Cusip, Date: b.Date, DeltaP: d, DeltaPLag: stats.NaN, DollarVolume: b.DollarVolume}
		if prevValid {
			r.DeltaPLag = prevDelta
		}
		out = append(out, r)
		prevValid, prevDelta = true, d
	}
	return out
}

func dailyPrice(o models.DailyBondObservation) float64 {
	if stats.Valid(o.PriceVW) {
		return o.PriceVW
	}
	return o.PriceEW
}

// Monthly aggregates one bond's daily returns by calendar month.
func (e *LiquidityEstimator) Monthly(rets []DailyReturn) []models.MonthlyLiquidity {
	groups := make(map[time.Time][]DailyReturn)
	for _, r := range rets {
		k := util.MonthEnd(r.Date)
		groups[k] = append(groups[k], r)
	}

	out := make([]models.MonthlyLiquidity, 0, len(groups))
	for month, rows := range groups {
		out = append(out, e.month(month, rows))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthEnd.Before(out[j].MonthEnd) })
	return out
}

func (e *LiquidityEstimator) month(monthEnd time.Time, rows []DailyReturn) models.MonthlyLiquidity {
	liq := models.MonthlyLiquidity{
		Cusip:    rows[0].Cusip,
		MonthEnd: monthEnd,
		N:        len(rows),
		BPW:      stats.NaN,
		Roll:     stats.NaN,
		Amihud:   stats.NaN,
		VoV:      stats.NaN,
		PSGamma:  stats.NaN,
	}

	var x, lag, dvol []float64
	var absSum float64
	for _, r := range rows {
		absSum += math.Abs(r.DeltaP)
		dvol = append(dvol, r.DollarVolume)
		if r.HasLag() {
			x = append(x, r.DeltaP)
			lag = append(lag, r.DeltaPLag)
		}
	}

	if len(x) >= e.cfg.MinObservations {
		liq.BPW = -stats.Covariance(x, lag)
		liq.Roll = 0
		if liq.BPW > 0 {
			liq.Roll = 2 * math.Sqrt(liq.BPW)
		}
	}

	if liq.N >= e.cfg.MinObservations {
		if total := stats.Sum(dvol) / 1e6; total > 0 {
			liq.Amihud = absSum / total / float64(liq.N)
		}
		all := make([]float64, len(rows))
		for i, r := range rows {
			all[i] = r.DeltaP
		}
		sigma := stats.StdDev(all)
		if meanVol := stats.Mean(dvol); meanVol > 0 && stats.Valid(sigma) {
			liq.VoV = 8 * math.Pow(sigma, 2.0/3) / math.Cbrt(meanVol)
		}
	}
	return liq
}

// PSKey identifies one bond-month.
type PSKey struct {
	Cusip    string
	MonthEnd time.Time
}

// PastorStambaugh estimates the signed-volume return-reversal coefficient
// per bond-month. The market return of a day is the equal-weighted mean of
// every bond's return that day.
func (e *LiquidityEstimator) PastorStambaugh(byBond map[string][]DailyReturn) map[PSKey]float64 {
	sum := make(map[time.Time]float64)
	cnt := make(map[time.Time]int)
	for _, rets := range byBond {
		for _, r := range rets {
			sum[r.Date] += r.DeltaP
			cnt[r.Date]++
		}
	}

	out := make(map[PSKey]float64)
	for cusip, rets := range byBond {
		for i := 0; i < len(rets); {
			month := util.MonthEnd(rets[i].Date)
			j := i
			for j < len(rets) && util.MonthEnd(rets[j].Date).Equal(month) {
				j++
			}
			if g, ok := e.psRegression(rets[i:j], sum, cnt); ok {
				out[PSKey{Cusip: cusip, MonthEnd: month}] = g
			}
			i = j
		}
	}

	if e.cfg.PSWinsorize {
		winsorizeByMonth(out)
	}
	return out
}

// psRegression fits re[t+1] = a + b*r[t] + g*sign(re[t])*dvol[t] over
// consecutive rows and returns g.
func (e *LiquidityEstimator) psRegression(rows []DailyReturn, sum map[time.Time]float64, cnt map[time.Time]int) (float64, bool) {
	excess := func(r DailyReturn) float64 { return r.DeltaP - sum[r.Date]/float64(cnt[r.Date]) }

	var data, target []float64
	n := 0
	for t := 0; t+1 < len(rows); t++ {
		if !rows[t+1].HasLag() {
			continue
		}
		re := excess(rows[t])
		signed := math.Copysign(1, re) * rows[t].DollarVolume / 1e6
		if re == 0 {
			signed = 0
		}
		data = append(data, 1, rows[t].DeltaP, signed)
		target = append(target, excess(rows[t+1]))
		n++
	}
	if n < e.cfg.PSMinObservations {
		return 0, false
	}

	var beta mat.VecDense
	if err := beta.SolveVec(mat.NewDense(n, 3, data), mat.NewVecDense(n, target)); err != nil {
		return 0, false
	}
	g := beta.AtVec(2)
	return g, stats.Valid(g)
}

func winsorizeByMonth(values map[PSKey]float64) {
	byMonth := make(map[time.Time][]PSKey)
	for k := range values {
		byMonth[k.MonthEnd] = append(byMonth[k.MonthEnd], k)
	}
	for _, keys := range byMonth {
		vals := make([]float64, len(keys))
		for i, k := range keys {
			vals[i] = values[k]
		}
		stats.Winsorize(vals, 0.005, 0.995)
		for i, k := range keys {
			values[k] = vals[i]
		}
	}
}
