package usecase

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BondPanel/internal/domain/models"
	"BondPanel/pkg/calendar"
	"BondPanel/pkg/util"
)

func valuedAt(day time.Time, price, accrued float64) models.ValuedBondObservation {
	return models.ValuedBondObservation{
		DailyBondObservation: models.DailyBondObservation{Cusip: testCusip, Date: day},
		Valuation:            models.Valuation{Valid: true, AccruedAll: accrued, Dirty: price + 0.5, Yield: 0.05, ModDuration: 7},
		Price:                price,
	}
}

func byMonthEnd(rows []models.MonthlyReturn) map[time.Time]models.MonthlyReturn {
	out := make(map[time.Time]models.MonthlyReturn, len(rows))
	for _, r := range rows {
		out[r.MonthEnd] = r
	}
	return out
}

func TestMonthlyBuildEndAndBeginSeries(t *testing.T) {
	obs := []models.ValuedBondObservation{
		valuedAt(util.Date(2021, time.January, 29), 100, 1),
		valuedAt(util.Date(2021, time.February, 26), 101, 1.5),
		valuedAt(util.Date(2021, time.March, 2), 102, 0),
		valuedAt(util.Date(2021, time.April, 1), 103, 0.2),
		valuedAt(util.Date(2021, time.April, 30), 104, 0.4),
		valuedAt(util.Date(2021, time.June, 1), 105, 0),
		valuedAt(util.Date(2021, time.June, 15), 106, 0),
	}
	rows := NewMonthlyConstructor(MonthlyConfig{}, calendar.Weekdays()).Build(obs)
	m := byMonthEnd(rows)
	require.Len(t, rows, 5)

	feb := m[util.Date(2021, time.February, 28)]
	assert.Equal(t, models.SourceEnd, feb.Source, "month-end beats month-begin")
	assert.InDelta(t, 0.01, feb.RetPrice, 1e-12)
	assert.InDelta(t, 0.015, feb.RetAccrued, 1e-12)
	assert.InDelta(t, 1.5/100.5, feb.RetTotal, 1e-12)
	assert.Equal(t, feb.RetAccrued, feb.Ret)

	mar := m[util.Date(2021, time.March, 31)]
	assert.Equal(t, models.SourceBegin, mar.Source)
	assert.Equal(t, util.Date(2021, time.April, 1), mar.ObsDate)
	assert.InDelta(t, 103.0/102-1, mar.RetPrice, 1e-12)

	apr := m[util.Date(2021, time.April, 30)]
	assert.True(t, math.IsNaN(apr.Ret), "previous month-end observation is two months back")

	may := m[util.Date(2021, time.May, 31)]
	assert.Equal(t, models.SourceBegin, may.Source)

	assert.True(t, math.IsNaN(m[util.Date(2021, time.January, 31)].Ret))
}

func TestMonthlyDirtyBase(t *testing.T) {
	obs := []models.ValuedBondObservation{
		valuedAt(util.Date(2021, time.January, 29), 100, 1),
		valuedAt(util.Date(2021, time.February, 26), 101, 1.5),
	}
	rows := NewMonthlyConstructor(MonthlyConfig{Base: BaseDirty}, calendar.Weekdays()).Build(obs)
	require.Len(t, rows, 2)
	assert.InDelta(t, 1.5/100.5, rows[1].Ret, 1e-12)
}

func TestMonthlyReturnsClipped(t *testing.T) {
	obs := []models.ValuedBondObservation{
		valuedAt(util.Date(2021, time.January, 29), 100, 0),
		valuedAt(util.Date(2021, time.February, 26), 250, 0),
		valuedAt(util.Date(2021, time.March, 31), 0.001, 0),
	}
	rows := NewMonthlyConstructor(MonthlyConfig{}, calendar.Weekdays()).Build(obs)
	require.Len(t, rows, 3)
	assert.Equal(t, 1.0, rows[1].RetPrice)
	assert.Equal(t, 1.0, rows[1].Ret)
	assert.GreaterOrEqual(t, rows[2].Ret, -1.0)
	for _, r := range rows[1:] {
		assert.LessOrEqual(t, math.Abs(r.Ret), 1.0)
	}
}

func TestMonthlyInvalidValuationKeepsPriceReturn(t *testing.T) {
	a := valuedAt(util.Date(2021, time.January, 29), 100, math.NaN())
	b := valuedAt(util.Date(2021, time.February, 26), 102, math.NaN())
	rows := NewMonthlyConstructor(MonthlyConfig{}, calendar.Weekdays()).Build([]models.ValuedBondObservation{a, b})
	require.Len(t, rows, 2)
	assert.InDelta(t, 0.02, rows[1].RetPrice, 1e-12)
	assert.True(t, math.IsNaN(rows[1].RetAccrued))
}
