package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateLayouts(t *testing.T) {
	want := Date(2012, time.February, 6)
	for _, s := range []string{"2012-02-06", "20120206", "2012-02-06T15:04:05Z"} {
		got, ok := ParseDate(s)
		require.True(t, ok, s)
		assert.True(t, want.Equal(got), s)
	}
	_, ok := ParseDate("")
	assert.False(t, ok)
}

func TestParseDateDefault(t *testing.T) {
	def := Date(2024, time.October, 10)
	assert.Equal(t, def, ParseDateDefault("garbage", def))
}

func TestMonthBoundaries(t *testing.T) {
	d := Date(2020, time.February, 14)
	assert.Equal(t, Date(2020, time.February, 1), MonthBegin(d))
	assert.Equal(t, Date(2020, time.February, 29), MonthEnd(d))
	assert.Equal(t, Date(2020, time.March, 31), NextMonthEnd(d))
	assert.Equal(t, Date(2020, time.January, 31), PrevMonthEnd(d))
	assert.True(t, IsMonthEnd(Date(2021, time.February, 28)))
}

func TestAddMonthsClampsAndKeepsMonthEnd(t *testing.T) {
	assert.Equal(t, Date(2021, time.February, 28), AddMonths(Date(2020, time.August, 31), 6, false))
	assert.Equal(t, Date(2021, time.February, 28), AddMonths(Date(2021, time.August, 31), -6, true))
	assert.Equal(t, Date(2021, time.May, 31), AddMonths(Date(2021, time.November, 30), -6, true))
	assert.Equal(t, Date(2021, time.May, 30), AddMonths(Date(2021, time.November, 30), -6, false))
}

func TestChunk(t *testing.T) {
	parts := Chunk([]int{1, 2, 3, 4, 5}, 2)
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, parts)
	assert.Nil(t, Chunk([]int{}, 3))
}
