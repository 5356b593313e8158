package usecase

import (
	"sort"
	"time"

	"BondPanel/internal/domain/models"
	"BondPanel/pkg/stats"
	"BondPanel/pkg/util"
)

type PanelConfig struct {
	// MaxGapDays bounds the calendar days between a row and the row whose
	// returns fill its forward fields.
	MaxGapDays int
	// SpreadWindow is the number of lagged spreads averaged into CS12.
	SpreadWindow int
	VaR          VaRConfig
}

func (c PanelConfig) withDefaults() PanelConfig {
	if c.MaxGapDays <= 0 {
		c.MaxGapDays = 31
	}
	if c.SpreadWindow <= 0 {
		c.SpreadWindow = 12
	}
	c.VaR = c.VaR.withDefaults()
	return c
}

// PanelInputs are the cross-sectional tables joined onto monthly returns.
type PanelInputs struct {
	Issues    map[string]models.BondIssue
	Curves    map[time.Time]models.BenchmarkCurve
	RiskFree  map[time.Time]float64
	Ratings   *RatingHistory
	Amounts   *AmountHistory
	Liquidity map[PSKey]models.MonthlyLiquidity
}

// PanelAssembler joins monthly returns with benchmark, credit and liquidity
// data into bond-month records.
type PanelAssembler struct {
	cfg PanelConfig
}

func NewPanelAssembler(cfg PanelConfig) *PanelAssembler {
	return &PanelAssembler{cfg: cfg.withDefaults()}
}

// Assemble builds the panel for every bond with a known issue, ordered by
// month then identifier.
func (p *PanelAssembler) Assemble(returns map[string][]models.MonthlyReturn, in PanelInputs) []models.MonthlyBondRecord {
	var out []models.MonthlyBondRecord
	for cusip, rets := range returns {
		issue, ok := in.Issues[cusip]
		if !ok {
			continue
		}
		out = append(out, p.AssembleBond(issue, rets, in)...)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MonthEnd.Equal(out[j].MonthEnd) {
			return out[i].MonthEnd.Before(out[j].MonthEnd)
		}
		return out[i].Cusip < out[j].Cusip
	})
	return out
}

// AssembleBond builds one bond's rows; rets must be in month order.
func (p *PanelAssembler) AssembleBond(issue models.BondIssue, rets []models.MonthlyReturn, in PanelInputs) []models.MonthlyBondRecord {
	rows := make([]models.MonthlyBondRecord, len(rets))
	series := make([]float64, len(rets))
	industry := FF12(issue.SICCode)

	for i, r := range rets {
		rec := models.MonthlyBondRecord{MonthlyReturn: r}
		rec.TMT = util.YearsBetween(r.MonthEnd, issue.Maturity)
		clearBenchmark(&rec)
		if curve, ok := in.Curves[r.MonthEnd]; ok && len(curve.Points) > 0 {
			ApplySpreads(&rec, curve)
		}

		rec.RiskFree = stats.NaN
		rec.ExRet = stats.NaN
		if rf, ok := in.RiskFree[r.MonthEnd]; ok {
			rec.RiskFree = rf
			rec.ExRet = r.Ret - rf
		}

		rec.RatingSP, rec.RatingMoody, rec.Rating = in.Ratings.AsOf(r.Cusip, r.MonthEnd)
		rec.AmountOutstanding = in.Amounts.AsOf(r.Cusip, r.MonthEnd)
		rec.Industry = industry

		key := PSKey{Cusip: r.Cusip, MonthEnd: r.MonthEnd}
		if liq, ok := in.Liquidity[key]; ok {
			rec.Liquidity = liq
		} else {
			rec.Liquidity = emptyLiquidity(r.Cusip, r.MonthEnd)
		}

		rows[i] = rec
		series[i] = r.Ret
	}

	vars := RollingVaR(series, p.cfg.VaR)
	for i := range rows {
		rows[i].VaR = vars[i]
	}
	p.leadFields(rows)
	p.laggedSpreadMean(rows)
	return rows
}

func clearBenchmark(rec *models.MonthlyBondRecord) {
	rec.YieldInterpTMT, rec.YieldInterpDur = stats.NaN, stats.NaN
	rec.RetInterpTMT, rec.RetInterpDur = stats.NaN, stats.NaN
	rec.CreditSpread, rec.CreditSpreadDur = stats.NaN, stats.NaN
	rec.ExRetBench, rec.ExRetBenchDur = stats.NaN, stats.NaN
}

func emptyLiquidity(cusip string, monthEnd time.Time) models.MonthlyLiquidity {
	return models.MonthlyLiquidity{
		Cusip: cusip, MonthEnd: monthEnd,
		BPW: stats.NaN, Roll: stats.NaN, Amihud: stats.NaN, VoV: stats.NaN, PSGamma: stats.NaN,
	}
}

// leadFields copies next-row returns back one row when the rows are close
// enough in time; otherwise the forward fields stay NaN.
func (p *PanelAssembler) leadFields(rows []models.MonthlyBondRecord) {
	for i := range rows {
		r := &rows[i]
		r.RetNext, r.ExRetNext, r.ExRetBenchNext, r.ExRetBenchDurNext = stats.NaN, stats.NaN, stats.NaN, stats.NaN
		if i+1 >= len(rows) {
			continue
		}
		next := rows[i+1]
		if util.DaysBetween(r.MonthEnd, next.MonthEnd) > p.cfg.MaxGapDays {
			continue
		}
		r.RetNext = next.Ret
		r.ExRetNext = next.ExRet
		r.ExRetBenchNext = next.ExRetBench
		r.ExRetBenchDurNext = next.ExRetBenchDur
	}
}

// laggedSpreadMean sets CS12 to the mean of the previous rows' duration
// spreads over a full window. Rows without a lagged spread are skipped and
// do not count toward the window.
func (p *PanelAssembler) laggedSpreadMean(rows []models.MonthlyBondRecord) {
	var window []float64
	for i := range rows {
		rows[i].CS12 = stats.NaN
		if i == 0 {
			continue
		}
		lag := rows[i-1].CreditSpreadDur
		if !stats.Valid(lag) {
			continue
		}
		window = append(window, lag)
		if len(window) > p.cfg.SpreadWindow {
			window = window[1:]
		}
		if len(window) == p.cfg.SpreadWindow {
			rows[i].CS12 = stats.Mean(window)
		}
	}
}

// MergeGammas attaches Pastor-Stambaugh coefficients to monthly liquidity
// rows, adding rows for bond-months that only have a coefficient.
func MergeGammas(liq map[PSKey]models.MonthlyLiquidity, gammas map[PSKey]float64) {
	for k, g := range gammas {
		row, ok := liq[k]
		if !ok {
			row = emptyLiquidity(k.Cusip, k.MonthEnd)
		}
		row.PSGamma = g
		liq[k] = row
	}
}
