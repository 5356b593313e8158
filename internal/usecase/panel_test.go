package usecase

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BondPanel/internal/domain/models"
	"BondPanel/pkg/stats"
	"BondPanel/pkg/util"
)

func monthRow(month time.Month, ret, yield, dur float64) models.MonthlyReturn {
	end := util.MonthEnd(util.Date(2021, month, 1))
	return models.MonthlyReturn{
		Cusip: testCusip, MonthEnd: end, ObsDate: end, Source: models.SourceEnd,
		Price: 100, Ret: ret, Yield: yield, ModDuration: dur,
	}
}

func TestAssembleBondJoinsAndLeads(t *testing.T) {
	issue := eligibleIssue(testCusip)
	issue.Maturity = util.Date(2031, time.January, 31)
	issue.OfferingAmount = 500
	issue.SICCode = 4911

	rets := []models.MonthlyReturn{
		monthRow(time.January, 0.01, 0.05, 4.6),
		monthRow(time.February, 0.02, 0.05, 4.6),
		monthRow(time.April, 0.03, 0.05, 4.6),
	}
	jan, feb := rets[0].MonthEnd, rets[1].MonthEnd
	curve := testCurve()
	curve.MonthEnd = jan
	in := PanelInputs{
		Curves:   map[time.Time]models.BenchmarkCurve{jan: curve},
		RiskFree: map[time.Time]float64{jan: 0.001, feb: 0.002},
		Ratings: NewRatingHistory([]models.RatingEvent{
			{Cusip: testCusip, Agency: models.AgencySP, Date: util.Date(2020, time.June, 1), Rating: "A"},
		}),
		Amounts: NewAmountHistory([]models.BondIssue{issue}, nil),
		Liquidity: map[PSKey]models.MonthlyLiquidity{
			{Cusip: testCusip, MonthEnd: feb}: {Cusip: testCusip, MonthEnd: feb, BPW: 0.3, N: 8},
		},
	}

	rows := NewPanelAssembler(PanelConfig{}).AssembleBond(issue, rets, in)
	require.Len(t, rows, 3)

	r := rows[0]
	assert.InDelta(t, 10.0, r.TMT, 0.01)
	assert.InDelta(t, 0.03, r.CreditSpreadDur, 1e-12)
	assert.InDelta(t, 0.009, r.ExRet, 1e-12)
	assert.Equal(t, 6, r.Rating)
	assert.Equal(t, 500.0, r.AmountOutstanding)
	assert.Equal(t, 8, r.Industry)
	assert.True(t, math.IsNaN(r.Liquidity.BPW))
	assert.InDelta(t, 0.02, r.RetNext, 1e-12)
	assert.InDelta(t, 0.018, r.ExRetNext, 1e-12)
	assert.True(t, math.IsNaN(r.ExRetBenchNext), "february has no curve")

	assert.Equal(t, 0.3, rows[1].Liquidity.BPW)
	assert.True(t, math.IsNaN(rows[1].CreditSpread))
	assert.True(t, math.IsNaN(rows[1].RetNext), "april is two months later")
	assert.True(t, math.IsNaN(rows[2].ExRet))
	assert.True(t, math.IsNaN(rows[2].RetNext))
	assert.True(t, math.IsNaN(rows[2].VaR))
}

func TestLaggedSpreadMeanNeedsFullWindow(t *testing.T) {
	p := NewPanelAssembler(PanelConfig{SpreadWindow: 3})
	spreads := []float64{0.01, 0.02, math.NaN(), 0.03, 0.04, 0.05}
	rows := make([]models.MonthlyBondRecord, len(spreads))
	for i, s := range spreads {
		rows[i].CreditSpreadDur = s
	}
	p.laggedSpreadMean(rows)

	for i := 0; i < 4; i++ {
		assert.True(t, math.IsNaN(rows[i].CS12), "row %d", i)
	}
	// row 3 has no lag, so row 4 is the first with three lagged spreads
	assert.InDelta(t, 0.02, rows[4].CS12, 1e-12)
	assert.InDelta(t, 0.03, rows[5].CS12, 1e-12)
}

func TestMergeGammas(t *testing.T) {
	month := util.Date(2021, time.March, 31)
	liq := map[PSKey]models.MonthlyLiquidity{
		{Cusip: testCusip, MonthEnd: month}: {Cusip: testCusip, MonthEnd: month, BPW: 1, N: 6},
	}
	MergeGammas(liq, map[PSKey]float64{
		{Cusip: testCusip, MonthEnd: month}:   -0.2,
		{Cusip: "OTHER0000", MonthEnd: month}: 0.4,
	})
	assert.Equal(t, -0.2, liq[PSKey{Cusip: testCusip, MonthEnd: month}].PSGamma)
	assert.Equal(t, 1.0, liq[PSKey{Cusip: testCusip, MonthEnd: month}].BPW)
	other := liq[PSKey{Cusip: "OTHER0000", MonthEnd: month}]
	assert.Equal(t, 0.4, other.PSGamma)
	assert.False(t, stats.Valid(other.BPW))
}
