package bondmath

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BondPanel/pkg/calendar"
	"BondPanel/pkg/daycount"
	"BondPanel/pkg/util"
)

func tenYear() Bond {
	return Bond{
		Kind:      Fixed,
		CouponPct: 5,
		Frequency: 2,
		DayCount:  daycount.Thirty360,
		DatedDate: util.Date(2015, time.January, 15),
		Maturity:  util.Date(2025, time.January, 15),
	}
}

func TestClassify(t *testing.T) {
	k, ok := Classify("Z", 0, 90)
	assert.True(t, ok)
	assert.Equal(t, Zero, k)

	k, ok = Classify("F", 0, 95)
	assert.True(t, ok)
	assert.Equal(t, Zero, k)

	k, ok = Classify("F", 4.5, 101)
	assert.True(t, ok)
	assert.Equal(t, Fixed, k)

	_, ok = Classify("F", 0, 101)
	assert.False(t, ok)
	_, ok = Classify("V", 3, 100)
	assert.False(t, ok)
}

func TestFrequencyFromCode(t *testing.T) {
	f, err := FrequencyFromCode(99, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, f)

	f, err = FrequencyFromCode(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, f)

	_, err = FrequencyFromCode(13, 5)
	assert.Error(t, err)
}

func TestBuildScheduleFrontStub(t *testing.T) {
	b := tenYear()
	b.DatedDate = util.Date(2020, time.March, 1)
	b.Maturity = util.Date(2021, time.January, 15)
	s, err := BuildSchedule(b, calendar.Weekdays())
	require.NoError(t, err)
	require.Len(t, s.Flows, 3)
	assert.Equal(t, util.Date(2020, time.March, 1), s.Flows[0].AccrualStart)
	assert.Equal(t, util.Date(2020, time.July, 15), s.Flows[0].AccrualEnd)
	assert.InDelta(t, 5*134.0/360, s.Flows[0].Amount, 1e-12)
	assert.InDelta(t, 2.5, s.Flows[1].Amount, 1e-12)
	assert.True(t, s.Flows[2].Principal)
}

func TestBuildScheduleRejectsInvertedDates(t *testing.T) {
	b := tenYear()
	b.Maturity = b.DatedDate
	_, err := BuildSchedule(b, calendar.Weekdays())
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestAccruedThirty360(t *testing.T) {
	s, err := BuildSchedule(tenYear(), calendar.Weekdays())
	require.NoError(t, err)
	assert.InDelta(t, 1.25, s.Accrued(util.Date(2020, time.April, 15)), 1e-12)
	assert.InDelta(t, 0, s.Accrued(util.Date(2020, time.January, 15)), 1e-12)
	assert.InDelta(t, 25.0, s.PaidCoupons(util.Date(2020, time.January, 15)), 1e-9)
}

func TestValueParBondOnCouponDate(t *testing.T) {
	a, err := Value(tenYear(), 100, util.Date(2020, time.January, 13), calendar.Weekdays())
	require.NoError(t, err)
	assert.Equal(t, util.Date(2020, time.January, 15), a.Settlement)
	assert.InDelta(t, 0.05, a.Yield, 1e-3)
	assert.InDelta(t, a.Yield, a.YieldTrue, 1e-15)
	assert.InDelta(t, 100, a.Clean, 1e-6)
	assert.InDelta(t, 0, a.AccruedLast, 1e-12)
	assert.Greater(t, a.ModDuration, 3.0)
	assert.Less(t, a.ModDuration, 5.0)
	assert.Greater(t, a.Convexity, 0.0)
}

func TestValueRoundTrip(t *testing.T) {
	cal := calendar.NYSE()
	for _, price := range []float64{72.5, 95.125, 100, 118.75} {
		a, err := Value(tenYear(), price, util.Date(2019, time.June, 3), cal)
		require.NoError(t, err, price)
		s, err := BuildSchedule(tenYear(), cal)
		require.NoError(t, err)
		assert.InDelta(t, price, s.CleanPrice(a.Yield, 2, a.Settlement), 1e-6, price)
		assert.InDelta(t, a.Dirty, a.Clean+a.AccruedLast, 1e-9)
	}
}

func TestValueQuarterlyYieldTrueDiffers(t *testing.T) {
	b := tenYear()
	b.Frequency = 4
	a, err := Value(b, 97, util.Date(2019, time.June, 3), calendar.NYSE())
	require.NoError(t, err)
	assert.NotEqual(t, a.Yield, a.YieldTrue)
	// Quarterly compounding needs a lower nominal rate for the same price.
	assert.Less(t, a.YieldTrue, a.Yield)
}

func TestValueZeroCoupon(t *testing.T) {
	b := Bond{Kind: Zero, DayCount: daycount.Thirty360, DatedDate: util.Date(2018, time.January, 2), Maturity: util.Date(2028, time.January, 3)}
	a, err := Value(b, 80, util.Date(2021, time.March, 1), calendar.NYSE())
	require.NoError(t, err)
	assert.Zero(t, a.AccruedLast)
	assert.Zero(t, a.AccruedPaid)
	assert.Greater(t, a.Yield, 0.0)
	assert.InDelta(t, 80, a.Clean, 1e-6)
}

func TestValueFailures(t *testing.T) {
	cal := calendar.NYSE()
	_, err := Value(tenYear(), math.NaN(), util.Date(2019, time.June, 3), cal)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = Value(tenYear(), 100, util.Date(2025, time.January, 14), cal)
	assert.ErrorIs(t, err, ErrSettlementAfterMaturity)
}
