package usecase

import (
	"sort"

	"BondPanel/pkg/stats"
)

type VaRConfig struct {
	Window  int // trailing returns considered
	MinObs  int // returns required before any estimate
	OrderNo int // which order statistic, counted from the smallest
}

func (c VaRConfig) withDefaults() VaRConfig {
	if c.Window <= 0 {
		c.Window = 36
	}
	if c.MinObs <= 0 {
		c.MinObs = 24
	}
	if c.OrderNo <= 0 {
		c.OrderNo = 2
	}
	return c
}

// RollingVaR returns, for every position, the negated k-th smallest of the
// trailing window of non-missing returns ending there. Missing inputs and
// positions with too short a history yield NaN.
func RollingVaR(returns []float64, cfg VaRConfig) []float64 {
	cfg = cfg.withDefaults()
	out := make([]float64, len(returns))
	var hist []float64
	for i, r := range returns {
		out[i] = stats.NaN
		if !stats.Valid(r) {
			continue
		}
		hist = append(hist, r)
		if len(hist) < cfg.MinObs || len(hist) < cfg.OrderNo {
			continue
		}
		start := len(hist) - cfg.Window
		if start < 0 {
			start = 0
		}
		window := append([]float64(nil), hist[start:]...)
		sort.Float64s(window)
		out[i] = -window[cfg.OrderNo-1]
	}
	return out
}
