package usecase

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BondPanel/internal/domain/models"
)

func event(day time.Time, seq int64, price, vol float64, side string) models.CleanTradeEvent {
	at := time.Duration(seq) * time.Minute
	return models.CleanTradeEvent{
		Cusip: testCusip, ExecDate: day, ExecTime: at, ReportDate: day, ReportTime: at,
		MsgSeq: seq, Price: price, Volume: vol, Side: side,
	}
}

func TestAggregateVWAPScenario(t *testing.T) {
	events := []models.CleanTradeEvent{
		event(postDay, 3, 98, 10, "S"),
		event(postDay, 1, 100, 10, "B"),
		event(postDay, 2, 102, 20, "S"),
	}
	obs := NewDailyAggregator().Aggregate(events)
	require.Len(t, obs, 1)
	o := obs[0]

	assert.InDelta(t, 100.5, o.PriceVW, 1e-12)
	assert.InDelta(t, 100.0, o.PriceEW, 1e-12)
	assert.Equal(t, 100.0, o.Open)
	assert.Equal(t, 98.0, o.Close)
	assert.Equal(t, 102.0, o.High)
	assert.Equal(t, 98.0, o.Low)
	assert.Equal(t, 40.0, o.ParVolume)
	assert.InDelta(t, (1000+2040+980)/100.0, o.DollarVolume, 1e-9)
	assert.Equal(t, 3, o.Trades)
	// sells average 100, the single buy is 100
	assert.InDelta(t, 0, o.BidAsk, 1e-12)
	assert.InDelta(t, 0.025, o.IQR, 1e-12)
	assert.InDelta(t, math.Log10(40.2/4), o.LIX, 1e-12)
}

func TestAggregateBidAskNeedsBothSides(t *testing.T) {
	both := NewDailyAggregator().Aggregate([]models.CleanTradeEvent{
		event(postDay, 1, 99, 10, "B"),
		event(postDay, 2, 101, 10, "S"),
	})
	assert.InDelta(t, 2.0/100, both[0].BidAsk, 1e-12)

	oneSide := NewDailyAggregator().Aggregate([]models.CleanTradeEvent{
		event(postDay, 1, 99, 10, "B"),
		event(postDay, 2, 101, 10, "B"),
	})
	assert.True(t, math.IsNaN(oneSide[0].BidAsk))
}

func TestAggregateSingleTradeDay(t *testing.T) {
	obs := NewDailyAggregator().Aggregate([]models.CleanTradeEvent{event(postDay, 1, 100, 10, "B")})
	o := obs[0]
	assert.Equal(t, o.Open, o.Close)
	assert.Equal(t, o.High, o.Low)
	assert.True(t, math.IsNaN(o.Roll))
	assert.True(t, math.IsNaN(o.Volatility))
	assert.True(t, math.IsNaN(o.LIX))
}

func TestAggregateZeroVolumeVWAPIsNaN(t *testing.T) {
	obs := NewDailyAggregator().Aggregate([]models.CleanTradeEvent{event(postDay, 1, 100, 0, "B"), event(postDay, 2, 101, 0, "S")})
	assert.True(t, math.IsNaN(obs[0].PriceVW))
}

func TestAggregateRollPositiveOnBounce(t *testing.T) {
	var events []models.CleanTradeEvent
	for i, p := range []float64{100, 101, 100, 101, 100} {
		events = append(events, event(postDay, int64(i+1), p, 10, "B"))
	}
	o := NewDailyAggregator().Aggregate(events)[0]
	assert.Greater(t, o.Roll, 0.0)
	assert.Greater(t, o.Volatility, 0.0)
	assert.Greater(t, o.AmihudIntraday, 0.0)
}

func TestAggregateGroupsByBondAndDate(t *testing.T) {
	other := event(postDay, 1, 100, 10, "B")
	other.Cusip = "000000AA0"
	obs := NewDailyAggregator().Aggregate([]models.CleanTradeEvent{
		event(postDay.AddDate(0, 0, 1), 1, 100, 10, "B"),
		event(postDay, 1, 100, 10, "B"),
		other,
	})
	require.Len(t, obs, 3)
	assert.Equal(t, "000000AA0", obs[0].Cusip)
	assert.True(t, obs[1].Date.Before(obs[2].Date))
}

func TestAggregateVWAPWithinRange(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(12)
		var events []models.CleanTradeEvent
		lo, hi := math.Inf(1), math.Inf(-1)
		for j := 0; j < n; j++ {
			p := 50 + rng.Float64()*100
			lo, hi = math.Min(lo, p), math.Max(hi, p)
			events = append(events, event(postDay, int64(j+1), p, 1+rng.Float64()*1e6, "S"))
		}
		o := NewDailyAggregator().Aggregate(events)[0]
		assert.GreaterOrEqual(t, o.PriceVW, lo-1e-9)
		assert.LessOrEqual(t, o.PriceVW, hi+1e-9)
	}
}
