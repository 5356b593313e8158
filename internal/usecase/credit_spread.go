package usecase

import (
	"math"
	"sort"

	"BondPanel/internal/domain/models"
	"BondPanel/pkg/stats"
)

// Interpolated is the benchmark yield and return at one bond's maturity or
// duration.
type Interpolated struct {
	Yield  float64
	Return float64
}

// InterpolateBenchmark takes the two tenors whose coordinate lies closest to
// x and interpolates linearly between them, holding the end value outside
// that pair.
func InterpolateBenchmark(points []models.BenchmarkPoint, x float64, coord func(models.BenchmarkPoint) float64) Interpolated {
	nan := Interpolated{Yield: stats.NaN, Return: stats.NaN}
	if !stats.Valid(x) {
		return nan
	}
	var usable []models.BenchmarkPoint
	for _, p := range points {
		if stats.Valid(coord(p)) {
			usable = append(usable, p)
		}
	}
	if len(usable) == 0 {
		return nan
	}
	sort.SliceStable(usable, func(i, j int) bool {
		di, dj := math.Abs(coord(usable[i])-x), math.Abs(coord(usable[j])-x)
		if di != dj {
			return di < dj
		}
		return usable[i].Term < usable[j].Term
	})
	pair := usable
	if len(pair) > 2 {
		pair = pair[:2]
	}
	sort.Slice(pair, func(i, j int) bool { return coord(pair[i]) < coord(pair[j]) })

	xs := make([]float64, len(pair))
	ys := make([]float64, len(pair))
	rs := make([]float64, len(pair))
	for i, p := range pair {
		xs[i], ys[i], rs[i] = coord(p), p.Yield, p.Return
	}
	return Interpolated{Yield: stats.Interp(x, xs, ys), Return: stats.Interp(x, xs, rs)}
}

func byMaturity(p models.BenchmarkPoint) float64 { return p.Maturity }

func byModDuration(p models.BenchmarkPoint) float64 { return p.ModDuration }

// ApplySpreads fills the benchmark-matched fields of a panel row.
func ApplySpreads(rec *models.MonthlyBondRecord, curve models.BenchmarkCurve) {
	tmt := InterpolateBenchmark(curve.Points, rec.TMT, byMaturity)
	dur := InterpolateBenchmark(curve.Points, rec.ModDuration, byModDuration)

	rec.YieldInterpTMT = tmt.Yield
	rec.YieldInterpDur = dur.Yield
	rec.RetInterpTMT = tmt.Return
	rec.RetInterpDur = dur.Return

	rec.CreditSpread = rec.Yield - tmt.Yield
	rec.CreditSpreadDur = rec.Yield - dur.Yield
	rec.ExRetBench = rec.Ret - tmt.Return
	rec.ExRetBenchDur = rec.Ret - dur.Return
}

// BenchmarkModDuration derives modified duration from Macaulay duration and
// yield when a source only reports the former.
func BenchmarkModDuration(duration, yield float64) float64 {
	return duration / (1 + yield)
}
