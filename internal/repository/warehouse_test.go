package repository

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BondPanel/internal/domain/models"
	"BondPanel/pkg/sqlite"
)

func newSQLiteWarehouse(t *testing.T, opts ...WarehouseOption) *Warehouse {
	t.Helper()
	c, err := sqlite.Open(context.Background(), sqlite.Memory, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	w := NewWarehouse(c.DB(), SQLite, DefaultWarehouseTables(), opts...)
	require.NoError(t, w.InitSchema(context.Background()))
	return w
}

func TestWarehouse_IssuesByCusipChunks(t *testing.T) {
	ctx := context.Background()
	w := newSQLiteWarehouse(t, WithQueryChunk(2), WithQueryRate(1000, 10))

	issues := []models.BondIssue{
		{Cusip: "AAA000001", Coupon: 5, InterestFrequency: 2, HasInterestFrequency: true,
			OfferingDate: d("2010-01-15"), Maturity: d("2020-01-15"), SICCode: 4911, ParValue: 1000},
		{Cusip: "AAA000002", Coupon: math.NaN(), OfferingDate: d("2011-06-01"), Maturity: d("2031-06-01")},
		{Cusip: "AAA000003", Coupon: 3.5, InterestFrequency: 0, HasInterestFrequency: true,
			DatedDate: d("2012-02-01"), Maturity: d("2022-02-01")},
	}
	require.NoError(t, w.LoadIssues(ctx, issues))

	got, err := w.IssuesByCusip(ctx, []string{"AAA000003", "AAA000001", "AAA000003", "", "AAA000002"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "AAA000001", got[0].Cusip)
	assert.True(t, got[0].HasInterestFrequency)
	assert.Equal(t, 2, got[0].InterestFrequency)
	assert.Equal(t, 4911, got[0].SICCode)
	assert.False(t, got[1].HasInterestFrequency)
	assert.True(t, math.IsNaN(got[1].Coupon))
	assert.True(t, got[1].DatedDate.IsZero())
	assert.True(t, got[2].HasInterestFrequency)
	assert.Equal(t, 0, got[2].InterestFrequency)
	assert.Equal(t, d("2012-02-01"), got[2].DatedDate)

	all, err := w.Issues(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestWarehouse_TradesWindow(t *testing.T) {
	ctx := context.Background()
	w := newSQLiteWarehouse(t)

	msg := func(cusip string, date string, seq int64) models.TradeMessage {
		return models.TradeMessage{
			Cusip: cusip, ExecDate: d(date), ExecTime: 11 * time.Hour,
			ReportDate: d(date), ReportTime: models.NoTime,
			MsgSeq: seq, Status: "T", Side: "B", Contra: "C",
			Volume: 10000, Price: 100.5, Yield: math.NaN(),
		}
	}
	require.NoError(t, w.LoadTrades(ctx, []models.TradeMessage{
		msg("AAA000001", "2015-03-02", 1),
		msg("AAA000001", "2015-03-31", 2),
		msg("AAA000001", "2015-04-01", 3),
		msg("AAA000002", "2015-03-10", 4),
	}))

	got, err := w.Trades(ctx, []string{"AAA000001"}, d("2015-03-01"), d("2015-03-31"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].MsgSeq)
	assert.Equal(t, 11*time.Hour, got[0].ExecTime)
	assert.Equal(t, models.NoTime, got[0].ReportTime)
	assert.True(t, math.IsNaN(got[0].Yield))
	assert.Equal(t, "T", got[1].Status)
}

func TestWarehouse_CurvesGroupedByMonth(t *testing.T) {
	ctx := context.Background()
	w := newSQLiteWarehouse(t)

	require.NoError(t, w.LoadCurves(ctx, []models.BenchmarkCurve{
		{MonthEnd: d("2019-01-31"), Points: []models.BenchmarkPoint{
			{Term: 10, Maturity: 9.8, Yield: 0.027},
			{Term: 2, Maturity: 1.9, Yield: 0.025},
		}},
		{MonthEnd: d("2019-02-28"), Points: []models.BenchmarkPoint{
			{Term: 5, Maturity: 4.9, Yield: 0.026, Return: math.NaN()},
		}},
	}))

	curves, err := w.Curves(ctx, d("2019-01-01"), d("2019-12-31"))
	require.NoError(t, err)
	require.Len(t, curves, 2)
	require.Len(t, curves[0].Points, 2)
	assert.Equal(t, 2, curves[0].Points[0].Term)
	assert.Equal(t, 10, curves[0].Points[1].Term)
	assert.Equal(t, d("2019-02-28"), curves[1].MonthEnd)
	assert.True(t, math.IsNaN(curves[1].Points[0].Return))
}

func TestWarehouse_CreditTables(t *testing.T) {
	ctx := context.Background()
	w := newSQLiteWarehouse(t)

	require.NoError(t, w.LoadRatings(ctx, []models.RatingEvent{
		{Cusip: "AAA000001", Agency: models.AgencySP, Date: d("2014-05-01"), Rating: "BBB+"},
		{Cusip: "AAA000001", Agency: models.AgencyMoody, Date: d("2013-01-01"), Rating: "Baa2"},
		{Cusip: "AAA000009", Agency: models.AgencySP, Date: d("2013-01-01"), Rating: "AA"},
	}))
	require.NoError(t, w.LoadAmountActions(ctx, []models.AmountAction{
		{Cusip: "AAA000001", Type: "I", EffectiveDate: d("2010-01-15"), Amount: 500000, AmountOutstanding: 500000},
		{Cusip: "AAA000001", Type: "R", EffectiveDate: d("2016-01-15"), Amount: 100000, AmountOutstanding: math.NaN()},
	}))
	require.NoError(t, w.LoadRiskFree(ctx, []models.RiskFreeRate{
		{MonthEnd: d("2014-01-31"), Rate: 0.0001},
		{MonthEnd: d("2014-02-28"), Rate: 0.0002},
	}))

	ratings, err := w.Ratings(ctx, []string{"AAA000001"})
	require.NoError(t, err)
	require.Len(t, ratings, 2)
	assert.Equal(t, "Baa2", ratings[0].Rating)

	actions, err := w.AmountActions(ctx, []string{"AAA000001"})
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.True(t, math.IsNaN(actions[1].AmountOutstanding))

	rf, err := w.RiskFree(ctx, d("2014-02-01"), d("2014-12-31"))
	require.NoError(t, err)
	require.Len(t, rf, 1)
	assert.Equal(t, 0.0002, rf[0].Rate)
}

func TestWarehouse_LimiterHonoursContext(t *testing.T) {
	w := newSQLiteWarehouse(t, WithQueryRate(0.001, 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.Issues(ctx)
	assert.Error(t, err)
}

func TestUniqueSorted(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, uniqueSorted([]string{"B", "", "A", "B"}))
}
