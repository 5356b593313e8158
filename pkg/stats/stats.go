// Package stats holds NaN-aware descriptive statistics over gonum.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NaN is the missing-value marker used across the pipeline.
var NaN = math.NaN()

func IsNaN(v float64) bool { return math.IsNaN(v) }

// Valid reports whether v is a usable number.
func Valid(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Finite drops NaN and infinite values.
func Finite(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if Valid(v) {
			out = append(out, v)
		}
	}
	return out
}

func Sum(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Sum(x)
}

// Mean is NaN for an empty sample.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return NaN
	}
	return stat.Mean(x, nil)
}

// StdDev is the sample standard deviation, NaN below two observations.
func StdDev(x []float64) float64 {
	if len(x) < 2 {
		return NaN
	}
	return stat.StdDev(x, nil)
}

// Covariance is the sample covariance, NaN below two pairs.
func Covariance(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return NaN
	}
	return stat.Covariance(x, y, nil)
}

// Quantile uses gonum's linear interpolation of the empirical CDF.
func Quantile(p float64, x []float64) float64 {
	if len(x) == 0 {
		return NaN
	}
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	return stat.Quantile(p, stat.LinInterp, s, nil)
}

func Clip(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Max(lo, math.Min(hi, v))
}

// WeightedMean renormalises finite positive weights over finite values.
// It is NaN when no weight survives.
func WeightedMean(x, w []float64) float64 {
	var num, den float64
	for i := range x {
		if !Valid(x[i]) || !Valid(w[i]) {
			continue
		}
		num += x[i] * w[i]
		den += w[i]
	}
	if den == 0 {
		return NaN
	}
	return num / den
}

// Winsorize clamps finite values to the [lo, hi] empirical quantiles in place.
func Winsorize(x []float64, lo, hi float64) {
	f := Finite(x)
	if len(f) == 0 {
		return
	}
	a, b := Quantile(lo, f), Quantile(hi, f)
	for i, v := range x {
		if Valid(v) {
			x[i] = math.Max(a, math.Min(b, v))
		}
	}
}

// Interp linearly interpolates y at x over the points (xs, ys), clamping to
// the end values outside the range. xs must be ascending.
func Interp(x float64, xs, ys []float64) float64 {
	n := len(xs)
	if n == 0 || !Valid(x) {
		return NaN
	}
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	i := sort.SearchFloat64s(xs, x)
	x0, x1 := xs[i-1], xs[i]
	if x1 == x0 {
		return ys[i]
	}
	return ys[i-1] + (x-x0)*(ys[i]-ys[i-1])/(x1-x0)
}
