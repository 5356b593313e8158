package usecase

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BondPanel/internal/domain/models"
	"BondPanel/pkg/bondmath"
	"BondPanel/pkg/calendar"
	"BondPanel/pkg/daycount"
	"BondPanel/pkg/util"
)

func testIssue() models.BondIssue {
	return models.BondIssue{
		Cusip:                testCusip,
		CouponType:           "F",
		Coupon:               5,
		InterestFrequency:    2,
		HasInterestFrequency: true,
		DatedDate:            util.Date(2010, time.January, 15),
		OfferingDate:         util.Date(2010, time.January, 10),
		Maturity:             util.Date(2030, time.January, 15),
		DayCountBasis:        "30/360",
		ParValue:             1000,
		OfferingAmount:       500000,
	}
}

func dailyAt(day time.Time, price float64) models.DailyBondObservation {
	return models.DailyBondObservation{Cusip: testCusip, Date: day, PriceEW: price, PriceVW: price, Close: price}
}

func TestValueBondRoundTrip(t *testing.T) {
	v := NewValuer(ValuationConfig{}, calendar.NYSE())
	res := v.ValueBond(testIssue(), []models.DailyBondObservation{dailyAt(util.Date(2015, time.June, 10), 103.25)})
	require.Len(t, res.Observations, 1)
	o := res.Observations[0]
	require.True(t, o.Valid)

	b := bondmath.Bond{Kind: bondmath.Fixed, CouponPct: 5, Frequency: 2, DayCount: daycount.Thirty360, DatedDate: testIssue().DatedDate, Maturity: testIssue().Maturity}
	s, err := bondmath.BuildSchedule(b, calendar.NYSE())
	require.NoError(t, err)
	assert.InDelta(t, 103.25, s.CleanPrice(o.Yield, 2, o.Settlement), 1e-6)
	assert.InDelta(t, o.AccruedLast+o.AccruedPaid, o.AccruedAll, 1e-12)
	assert.InDelta(t, o.Clean+o.AccruedLast, o.Dirty, 1e-9)
}

func TestValueBondFailuresAreLocal(t *testing.T) {
	v := NewValuer(ValuationConfig{}, calendar.NYSE())
	obs := []models.DailyBondObservation{
		dailyAt(util.Date(2029, time.June, 10), 101),
		dailyAt(util.Date(2030, time.January, 14), 100),
		dailyAt(util.Date(2029, time.June, 11), math.NaN()),
	}
	obs[2].PriceEW = math.NaN()

	res := v.ValueBond(testIssue(), obs)
	require.Len(t, res.Observations, 3)
	assert.True(t, res.Observations[0].Valid)
	assert.False(t, res.Observations[1].Valid)
	assert.True(t, math.IsNaN(res.Observations[1].Yield))
	assert.False(t, res.Observations[2].Valid)
	assert.Equal(t, 1, res.Failed[FailSettlementMaturity])
	assert.Equal(t, 1, res.Failed[FailInvalidPrice])
}

func TestValueBondParTable(t *testing.T) {
	v := NewValuer(ValuationConfig{}, calendar.NYSE())

	issue := testIssue()
	issue.ParValue = 10
	issue.InterestFrequency = 4
	res := v.ValueBond(issue, []models.DailyBondObservation{dailyAt(util.Date(2015, time.June, 10), 10.1)})
	require.Len(t, res.Observations, 1)
	assert.InDelta(t, 101, res.Observations[0].Price, 1e-9)
	assert.True(t, res.Observations[0].Valid)

	issue.ParValue = 50
	res = v.ValueBond(issue, []models.DailyBondObservation{dailyAt(util.Date(2015, time.June, 10), 99)})
	assert.Empty(t, res.Observations)
	assert.Equal(t, 1, res.Dropped[DropUnknownPar])

	issue.ParValue = 0
	res = v.ValueBond(issue, []models.DailyBondObservation{dailyAt(util.Date(2015, time.June, 10), 99)})
	assert.Len(t, res.Observations, 1)
}

func TestValueBondUnsupportedCouponType(t *testing.T) {
	issue := testIssue()
	issue.CouponType = "F"
	issue.Coupon = 0
	res := NewValuer(ValuationConfig{}, calendar.NYSE()).ValueBond(issue, []models.DailyBondObservation{
		dailyAt(util.Date(2015, time.June, 10), 101),
		dailyAt(util.Date(2015, time.June, 11), 60),
	})
	assert.False(t, res.Observations[0].Valid)
	assert.True(t, res.Observations[1].Valid, "priced below par with no coupon is a zero")
	assert.Equal(t, 1, res.Failed[FailUnsupportedBond])
}

func TestValueBondDatedOverride(t *testing.T) {
	issue := testIssue()
	issue.Cusip = "61768T613"
	issue.DatedDate = util.Date(2030, time.January, 1)
	issue.Maturity = util.Date(2028, time.December, 5)
	res := NewValuer(ValuationConfig{}, calendar.NYSE()).ValueBond(issue, []models.DailyBondObservation{dailyAt(util.Date(2020, time.March, 2), 100)})
	assert.True(t, res.Observations[0].Valid)
}
