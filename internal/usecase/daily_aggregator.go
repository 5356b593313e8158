package usecase

import (
	"math"
	"sort"
	"time"

	"BondPanel/internal/domain/models"
	"BondPanel/pkg/stats"
)

// DailyAggregator collapses clean trade events into one observation per
// bond and execution date.
type DailyAggregator struct{}

func NewDailyAggregator() *DailyAggregator { return &DailyAggregator{} }

type dayKey struct {
	cusip string
	date  time.Time
}

// Aggregate returns observations ordered by bond then date.
func (a *DailyAggregator) Aggregate(events []models.CleanTradeEvent) []models.DailyBondObservation {
	groups := make(map[dayKey][]models.CleanTradeEvent)
	for _, e := range events {
		k := dayKey{e.Cusip, e.ExecDate}
		groups[k] = append(groups[k], e)
	}

	keys := make([]dayKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].cusip != keys[j].cusip {
			return keys[i].cusip < keys[j].cusip
		}
		return keys[i].date.Before(keys[j].date)
	})

	out := make([]models.DailyBondObservation, 0, len(keys))
	for _, k := range keys {
		out = append(out, summarizeDay(k, groups[k]))
	}
	return out
}

func summarizeDay(k dayKey, trades []models.CleanTradeEvent) models.DailyBondObservation {
	sorted := append([]models.CleanTradeEvent(nil), trades...)
	sort.Slice(sorted, func(i, j int) bool { return models.ReportLess(sorted[i], sorted[j]) })

	n := len(sorted)
	px := make([]float64, n)
	vol := make([]float64, n)
	var buys, sells []float64
	var parVol, dollarVol float64
	for i, t := range sorted {
		px[i] = t.Price
		vol[i] = t.Volume
		parVol += t.Volume
		dollarVol += t.Volume * t.Price / 100
		switch t.Side {
		case "B":
			buys = append(buys, t.Price)
		case "S":
			sells = append(sells, t.Price)
		}
	}

	obs := models.DailyBondObservation{
		Cusip:        k.cusip,
		Date:         k.date,
		Trades:       n,
		PriceEW:      stats.Mean(px),
		PriceVW:      vwap(px, vol),
		Open:         px[0],
		Close:        px[n-1],
		High:         px[0],
		Low:          px[0],
		ParVolume:    parVol,
		DollarVolume: dollarVol,
	}
	for _, p := range px[1:] {
		obs.High = math.Max(obs.High, p)
		obs.Low = math.Min(obs.Low, p)
	}

	rets := intradayReturns(px)
	obs.Roll = stats.NaN
	if len(rets) >= 3 {
		obs.Roll = -stats.Covariance(rets[1:], rets[:len(rets)-1])
	}
	obs.Volatility = stats.StdDev(rets)
	obs.AmihudIntraday = stats.NaN
	if len(rets) > 0 && dollarVol > 0 {
		var abs float64
		for _, r := range rets {
			abs += math.Abs(r)
		}
		obs.AmihudIntraday = abs * 10000 / dollarVol / float64(n)
	}

	obs.LIX = stats.NaN
	if obs.High > obs.Low && dollarVol > 0 {
		obs.LIX = math.Log10(dollarVol / (obs.High - obs.Low))
	}

	obs.BidAsk = stats.NaN
	if len(buys) > 0 && len(sells) > 0 {
		ask, bid := stats.Mean(sells), stats.Mean(buys)
		obs.BidAsk = (ask - bid) / ((ask + bid) / 2)
	}

	obs.IQR = (stats.Quantile(0.75, px) - stats.Quantile(0.25, px)) / obs.PriceEW
	return obs
}

// vwap renormalises volumes to unit weights; zero total volume gives NaN.
func vwap(px, vol []float64) float64 {
	total := stats.Sum(vol)
	if total <= 0 {
		return stats.NaN
	}
	var p float64
	for i := range px {
		p += px[i] * (vol[i] / total)
	}
	return p
}

// intradayReturns are simple percentage changes between successive trades.
func intradayReturns(px []float64) []float64 {
	if len(px) < 2 {
		return nil
	}
	out := make([]float64, 0, len(px)-1)
	for i := 1; i < len(px); i++ {
		out = append(out, px[i]/px[i-1]-1)
	}
	return out
}
