package usecase

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"BondPanel/internal/domain/models"
	"BondPanel/pkg/util"
)

func TestRatingScore(t *testing.T) {
	s, ok := RatingScore(models.AgencySP, "BBB-")
	assert.True(t, ok)
	assert.Equal(t, 10, s)

	s, ok = RatingScore(models.AgencyMoody, "Baa3")
	assert.True(t, ok)
	assert.Equal(t, 10, s)

	for _, r := range []string{"NR", "SUSP", "P-1", "NAV", "0"} {
		_, ok = RatingScore(models.AgencySP, r)
		assert.False(t, ok, r)
	}
	_, ok = RatingScore("FR", "AAA")
	assert.False(t, ok)
}

func TestRatingHistoryAsOfPrefersSP(t *testing.T) {
	h := NewRatingHistory([]models.RatingEvent{
		{Cusip: testCusip, Agency: models.AgencyMoody, Date: util.Date(2015, time.January, 10), Rating: "A2"},
		{Cusip: testCusip, Agency: models.AgencySP, Date: util.Date(2015, time.June, 3), Rating: "BBB"},
		{Cusip: testCusip, Agency: models.AgencySP, Date: util.Date(2015, time.March, 20), Rating: "NR"},
	})

	sp, moody, comp := h.AsOf(testCusip, util.Date(2014, time.December, 31))
	assert.Equal(t, [3]int{0, 0, 0}, [3]int{sp, moody, comp})

	sp, moody, comp = h.AsOf(testCusip, util.Date(2015, time.March, 31))
	assert.Equal(t, [3]int{0, 6, 6}, [3]int{sp, moody, comp})

	sp, moody, comp = h.AsOf(testCusip, util.Date(2016, time.March, 31))
	assert.Equal(t, [3]int{9, 6, 9}, [3]int{sp, moody, comp})

	var nilHistory *RatingHistory
	_, _, comp = nilHistory.AsOf(testCusip, util.Date(2016, time.March, 31))
	assert.Equal(t, 0, comp)
}

func TestAmountHistoryActions(t *testing.T) {
	issue := eligibleIssue(testCusip)
	issue.OfferingAmount = 1000
	nan := math.NaN()
	h := NewAmountHistory([]models.BondIssue{issue}, []models.AmountAction{
		{Cusip: testCusip, Type: "RO", EffectiveDate: util.Date(2016, time.May, 2), Amount: nan, AmountOutstanding: 1500},
		{Cusip: testCusip, Type: "B", EffectiveDate: util.Date(2015, time.March, 10), Amount: 300, AmountOutstanding: nan},
		{Cusip: testCusip, Type: "IM", EffectiveDate: util.Date(2020, time.January, 15), Amount: nan, AmountOutstanding: nan},
		{Cusip: "UNKNOWN00", Type: "B", EffectiveDate: util.Date(2015, time.March, 10), Amount: 1, AmountOutstanding: nan},
	})

	assert.Equal(t, 1000.0, h.AsOf(testCusip, util.Date(2015, time.February, 28)))
	assert.Equal(t, 700.0, h.AsOf(testCusip, util.Date(2015, time.March, 31)))
	assert.Equal(t, 1500.0, h.AsOf(testCusip, util.Date(2016, time.May, 31)))
	assert.Equal(t, 0.0, h.AsOf(testCusip, util.Date(2020, time.January, 31)))
	assert.True(t, math.IsNaN(h.AsOf("UNKNOWN00", util.Date(2020, time.January, 31))))
}

func TestAmountAfterRules(t *testing.T) {
	nan := math.NaN()
	cases := []struct {
		typ    string
		amount float64
		want   float64
	}{
		{"I", 400, 1000},
		{"REV", 400, 1000},
		{"E", nan, 0},
		{"IA", nan, 0},
		{"IA", 250, 750},
		{"B", 1200, 0},
		{"R", nan, 1000},
		{"R", 1300, 2300},
	}
	for _, tc := range cases {
		got := amountAfter(models.AmountAction{Type: tc.typ, Amount: tc.amount, AmountOutstanding: nan}, 1000)
		assert.Equal(t, tc.want, got, tc.typ)
	}
}

func TestFF12(t *testing.T) {
	assert.Equal(t, 11, FF12(6021))
	assert.Equal(t, 8, FF12(4911))
	assert.Equal(t, 2, FF12(3711))
	assert.Equal(t, 6, FF12(7372))
	assert.Equal(t, 10, FF12(2834))
	assert.Equal(t, 4, FF12(1311))
	assert.Equal(t, 12, FF12(0))
	assert.Equal(t, 12, FF12(9999))
}
