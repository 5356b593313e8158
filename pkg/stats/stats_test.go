package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanStdCovNaNOnSmallSamples(t *testing.T) {
	assert.True(t, math.IsNaN(Mean(nil)))
	assert.True(t, math.IsNaN(StdDev([]float64{1})))
	assert.True(t, math.IsNaN(Covariance([]float64{1}, []float64{2})))
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-12)
	assert.InDelta(t, 1.0, StdDev([]float64{1, 2, 3}), 1e-12)
	assert.InDelta(t, -1.0, Covariance([]float64{1, 2, 3}, []float64{3, 2, 1}), 1e-12)
}

func TestWeightedMean(t *testing.T) {
	assert.InDelta(t, 100.5, WeightedMean([]float64{100, 102, 98}, []float64{10, 20, 10}), 1e-12)
	assert.True(t, math.IsNaN(WeightedMean([]float64{100}, []float64{0})))
}

func TestClip(t *testing.T) {
	assert.Equal(t, 1.0, Clip(3, -1, 1))
	assert.Equal(t, -1.0, Clip(-1.5, -1, 1))
	assert.True(t, math.IsNaN(Clip(NaN, -1, 1)))
}

func TestInterpClampsAtEnds(t *testing.T) {
	xs := []float64{1, 2, 5}
	ys := []float64{0.01, 0.02, 0.05}
	assert.InDelta(t, 0.01, Interp(0.5, xs, ys), 1e-12)
	assert.InDelta(t, 0.05, Interp(30, xs, ys), 1e-12)
	assert.InDelta(t, 0.035, Interp(3.5, xs, ys), 1e-12)
}

func TestQCutPartitionsWithFirstOrderTies(t *testing.T) {
	vals := []float64{5, 5, 5, 5, 5, 1, 2, 3, 4, 6}
	b := QCut(vals, 5)
	counts := map[int]int{}
	for _, v := range b {
		counts[v]++
	}
	assert.Equal(t, map[int]int{1: 2, 2: 2, 3: 2, 4: 2, 5: 2}, counts)
	// Earlier ties rank lower.
	assert.LessOrEqual(t, b[0], b[4])
	assert.Equal(t, 1, b[5])
	assert.Equal(t, 5, b[9])
}

func TestQCutSmallSampleAndNaN(t *testing.T) {
	b := QCut([]float64{NaN, 3, 1}, 10)
	assert.Equal(t, 0, b[0])
	assert.NotZero(t, b[1])
	assert.NotZero(t, b[2])
	assert.Greater(t, b[1], b[2])

	assert.Equal(t, []int{1}, QCut([]float64{7}, 5))
}

func TestWinsorize(t *testing.T) {
	x := []float64{1, 2, 3, 4, 100, NaN}
	Winsorize(x, 0, 0.8)
	assert.LessOrEqual(t, x[4], 100.0)
	assert.Equal(t, 1.0, x[0])
	assert.True(t, math.IsNaN(x[5]))
}
