package usecase

import (
	"sort"
	"time"

	"BondPanel/internal/domain/models"
	"BondPanel/pkg/stats"
	"BondPanel/pkg/util"
)

// Weighting selects how bonds are weighted inside a portfolio cell.
type Weighting string

const (
	WeightValue Weighting = "vw"
	WeightEqual Weighting = "ew"
)

// FactorReturn selects the forward return being sorted and the matching
// current return used for the reversal sort.
type FactorReturn string

const (
	ReturnExcessRF    FactorReturn = "excess_rf"
	ReturnDurationAdj FactorReturn = "duration_adj"
	ReturnMaturityAdj FactorReturn = "maturity_adj"
)

// DefaultSortQuantiles is the bucket count for single-characteristic sorts.
const DefaultSortQuantiles = 10

type FactorConfig struct {
	Quantiles     int
	Weighting     Weighting
	Return        FactorReturn
	MinMaturity   float64
	MinLiquidityN int
}

func (c FactorConfig) withDefaults() FactorConfig {
	if c.Quantiles <= 0 {
		c.Quantiles = 5
	}
	if c.Weighting == "" {
		c.Weighting = WeightValue
	}
	if c.Return == "" {
		c.Return = ReturnExcessRF
	}
	if c.MinMaturity == 0 {
		c.MinMaturity = 1
	}
	if c.MinLiquidityN <= 0 {
		c.MinLiquidityN = 5
	}
	return c
}

// Cell identifies the intersection of up to three sort buckets; unused
// dimensions stay zero.
type Cell [3]int

// SortInput is one bond on one date in a cross-sectional sort.
type SortInput struct {
	Date   time.Time
	Keys   []float64
	Ret    float64
	Weight float64
}

// SortResult holds the weighted return of every populated cell by date.
type SortResult map[time.Time]map[Cell]float64

// PortfolioSort buckets each date's cross-section on every key
// independently, intersects the buckets and weights returns within each
// cell. Rows with a missing key are left out of that date's sort.
func PortfolioSort(rows []SortInput, q int) SortResult {
	byDate := make(map[time.Time][]SortInput)
	for _, r := range rows {
		if !allValid(r.Keys) || !stats.Valid(r.Ret) {
			continue
		}
		byDate[r.Date] = append(byDate[r.Date], r)
	}

	out := make(SortResult, len(byDate))
	for date, cs := range byDate {
		dims := len(cs[0].Keys)
		buckets := make([][]int, dims)
		for d := 0; d < dims; d++ {
			vals := make([]float64, len(cs))
			for i, r := range cs {
				vals[i] = r.Keys[d]
			}
			buckets[d] = stats.QCut(vals, q)
		}

		rets := make(map[Cell][]float64)
		wts := make(map[Cell][]float64)
		for i, r := range cs {
			var c Cell
			for d := 0; d < dims && d < len(c); d++ {
				c[d] = buckets[d][i]
			}
			rets[c] = append(rets[c], r.Ret)
			wts[c] = append(wts[c], r.Weight)
		}

		cells := make(map[Cell]float64, len(rets))
		for c, rs := range rets {
			if v := cellReturn(rs, wts[c]); stats.Valid(v) {
				cells[c] = v
			}
		}
		out[date] = cells
	}
	return out
}

func allValid(x []float64) bool {
	if len(x) == 0 {
		return false
	}
	for _, v := range x {
		if !stats.Valid(v) {
			return false
		}
	}
	return true
}

// cellReturn is the weight-normalised sum of returns; missing weights
// contribute nothing.
func cellReturn(rets, wts []float64) float64 {
	var total float64
	for _, w := range wts {
		if stats.Valid(w) {
			total += w
		}
	}
	if total <= 0 {
		return stats.NaN
	}
	var sum float64
	for i, r := range rets {
		if stats.Valid(wts[i]) {
			sum += r * wts[i] / total
		}
	}
	return sum
}

// LongShort is the difference between two cells on each date where both
// are populated.
func (s SortResult) LongShort(long, short Cell) map[time.Time]float64 {
	out := make(map[time.Time]float64)
	for date, cells := range s {
		l, okL := cells[long]
		sh, okS := cells[short]
		if okL && okS {
			out[date] = l - sh
		}
	}
	return out
}

// AveragedSpread averages, across every level of the second sort dimension,
// the spread between two levels of the first. With swap the roles of the
// dimensions are exchanged.
func (s SortResult) AveragedSpread(long, short, levels int, swap bool) map[time.Time]float64 {
	out := make(map[time.Time]float64)
	for date, cells := range s {
		var subs []float64
		for k := 1; k <= levels; k++ {
			lc, sc := Cell{long, k}, Cell{short, k}
			if swap {
				lc, sc = Cell{k, long}, Cell{k, short}
			}
			l, okL := cells[lc]
			sh, okS := cells[sc]
			if okL && okS {
				subs = append(subs, l-sh)
			}
		}
		if len(subs) > 0 {
			out[date] = stats.Mean(subs)
		}
	}
	return out
}

// FactorBuilder constructs the bond market, downside-risk, credit-risk,
// liquidity-risk and reversal factors from the bond-month panel.
type FactorBuilder struct {
	cfg FactorConfig
}

func NewFactorBuilder(cfg FactorConfig) *FactorBuilder {
	return &FactorBuilder{cfg: cfg.withDefaults()}
}

func (b *FactorBuilder) forward(r models.MonthlyBondRecord) float64 {
	switch b.cfg.Return {
	case ReturnDurationAdj:
		return r.ExRetBenchDurNext
	case ReturnMaturityAdj:
		return r.ExRetBenchNext
	default:
		return r.ExRetNext
	}
}

func (b *FactorBuilder) current(r models.MonthlyBondRecord) float64 {
	switch b.cfg.Return {
	case ReturnDurationAdj:
		return r.ExRetBenchDur
	case ReturnMaturityAdj:
		return r.ExRetBench
	default:
		return r.Ret
	}
}

func (b *FactorBuilder) weight(r models.MonthlyBondRecord) float64 {
	if b.cfg.Weighting == WeightEqual {
		return 1
	}
	return r.AmountOutstanding
}

// Build returns factor values dated at the month-end after the sort date.
// MKTB, DRF, CRF and LRF are emitted only on dates where all four exist;
// REV is emitted wherever it exists.
func (b *FactorBuilder) Build(panel []models.MonthlyBondRecord) []models.FactorValue {
	q := b.cfg.Quantiles

	var market, drf, rev, lrf []SortInput
	for _, r := range panel {
		y := b.forward(r)
		if !(r.TMT > b.cfg.MinMaturity) || !stats.Valid(y) {
			continue
		}
		w := b.weight(r)
		market = append(market, SortInput{Date: r.MonthEnd, Keys: []float64{0}, Ret: y, Weight: w})

		if r.Rating <= 0 {
			continue
		}
		rating := float64(r.Rating)
		drf = append(drf, SortInput{Date: r.MonthEnd, Keys: []float64{r.VaR, rating}, Ret: y, Weight: w})
		rev = append(rev, SortInput{Date: r.MonthEnd, Keys: []float64{b.current(r), rating}, Ret: y, Weight: w})
		if r.Liquidity.N >= b.cfg.MinLiquidityN {
			lrf = append(lrf, SortInput{Date: r.MonthEnd, Keys: []float64{r.Liquidity.BPW, rating}, Ret: y, Weight: w})
		}
	}

	mkt := make(map[time.Time]float64)
	for date, cells := range PortfolioSort(market, 1) {
		if v, ok := cells[Cell{1}]; ok {
			mkt[date] = v
		}
	}

	drfSort := PortfolioSort(drf, q)
	revSort := PortfolioSort(rev, q)
	lrfSort := PortfolioSort(lrf, q)

	drfF := drfSort.AveragedSpread(q, 1, q, false)
	revF := revSort.AveragedSpread(1, q, q, false)
	lrfF := lrfSort.AveragedSpread(q, 1, q, false)

	crf := make(map[time.Time]float64)
	crfDRF := drfSort.AveragedSpread(q, 1, q, true)
	crfREV := revSort.AveragedSpread(q, 1, q, true)
	crfLRF := lrfSort.AveragedSpread(q, 1, q, true)
	for date, a := range crfDRF {
		r, okR := crfREV[date]
		l, okL := crfLRF[date]
		if okR && okL {
			crf[date] = (a + r + l) / 3
		}
	}

	var out []models.FactorValue
	for date, m := range mkt {
		d, okD := drfF[date]
		c, okC := crf[date]
		l, okL := lrfF[date]
		if !(okD && okC && okL) {
			continue
		}
		next := util.NextMonthEnd(date)
		out = append(out,
			models.FactorValue{Date: next, Name: models.FactorMKT, Value: m},
			models.FactorValue{Date: next, Name: models.FactorDRF, Value: d},
			models.FactorValue{Date: next, Name: models.FactorCRF, Value: c},
			models.FactorValue{Date: next, Name: models.FactorLRF, Value: l},
		)
	}
	for date, v := range revF {
		out = append(out, models.FactorValue{Date: util.NextMonthEnd(date), Name: models.FactorREV, Value: v})
	}
	SortFactors(out)
	return out
}

// SortFactors orders factor values by date then name.
func SortFactors(f []models.FactorValue) {
	sort.Slice(f, func(i, j int) bool {
		if !f[i].Date.Equal(f[j].Date) {
			return f[i].Date.Before(f[j].Date)
		}
		return f[i].Name < f[j].Name
	})
}
