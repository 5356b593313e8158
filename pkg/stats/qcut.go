package stats

import "sort"

// QCut assigns each value to one of q rank-based quantile buckets numbered
// from 1. Ties are ranked by position, so earlier elements rank lower.
// NaN values get bucket 0. Fewer than q buckets may be used when the
// sample is smaller than q.
func QCut(values []float64, q int) []int {
	out := make([]int, len(values))
	if q <= 0 {
		return out
	}

	idx := make([]int, 0, len(values))
	for i, v := range values {
		if Valid(v) {
			idx = append(idx, i)
		}
	}
	n := len(idx)
	if n == 0 {
		return out
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	edges := rankEdges(n, q)
	for r, i := range idx {
		out[i] = bucketOf(float64(r+1), edges)
	}
	return out
}

// rankEdges returns the distinct quantile edges of the ranks 1..n.
func rankEdges(n, q int) []float64 {
	edges := make([]float64, 0, q+1)
	for k := 0; k <= q; k++ {
		e := 1 + float64(k)/float64(q)*float64(n-1)
		if len(edges) > 0 && e <= edges[len(edges)-1] {
			continue
		}
		edges = append(edges, e)
	}
	return edges
}

// bucketOf finds the right-closed interval containing r; the first interval
// also includes its left edge.
func bucketOf(r float64, edges []float64) int {
	if len(edges) < 2 {
		return 1
	}
	for k := 1; k < len(edges); k++ {
		if r <= edges[k]+1e-9 {
			return k
		}
	}
	return len(edges) - 1
}
