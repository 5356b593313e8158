package daycount

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BondPanel/pkg/util"
)

func TestParseCodes(t *testing.T) {
	for code, want := range map[string]Convention{
		"":        Thirty360,
		"30/360":  Thirty360,
		"act/act": ActualActualISDA,
		"ACT/360": Actual360,
		"ACT/366": Actual365Fixed,
	} {
		got, err := Parse(code)
		require.NoError(t, err, code)
		assert.Equal(t, want, got, code)
	}
	_, err := Parse("BUS/252")
	assert.Error(t, err)
}

func TestThirty360HalfYear(t *testing.T) {
	yf := Thirty360.YearFraction(util.Date(2020, time.January, 31), util.Date(2020, time.July, 31))
	assert.InDelta(t, 0.5, yf, 1e-12)
	assert.Equal(t, 30, Thirty360.DayCount(util.Date(2020, time.February, 1), util.Date(2020, time.March, 1)))
}

func TestActualConventions(t *testing.T) {
	a, b := util.Date(2019, time.January, 1), util.Date(2020, time.January, 1)
	assert.InDelta(t, 365.0/360, Actual360.YearFraction(a, b), 1e-12)
	assert.InDelta(t, 1.0, Actual365Fixed.YearFraction(a, b), 1e-12)
	assert.InDelta(t, 1.0, ActualActualISDA.YearFraction(a, b), 1e-12)

	// Straddles a leap year boundary.
	got := ActualActualISDA.YearFraction(util.Date(2019, time.December, 1), util.Date(2020, time.February, 1))
	assert.InDelta(t, 31.0/365+31.0/366, got, 1e-12)
}
