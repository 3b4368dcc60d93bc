package align

import "math"

// NearestIndex returns the index of the candidate with minimal |t-c|.
// Ties resolve to the earliest index. Returns -1 for an empty
// candidate list.
func NearestIndex(t float64, candidates []float64) int {
	best := -1
	bestDist := math.Inf(1)
	for i, c := range candidates {
		if d := math.Abs(t - c); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// Nearest returns the candidate value closest to t, with the same
// tie-break as [NearestIndex]. Returns NaN for an empty list.
func Nearest(t float64, candidates []float64) float64 {
	i := NearestIndex(t, candidates)
	if i < 0 {
		return math.NaN()
	}
	return candidates[i]
}

// NearestSample returns the index into the non-decreasing timestamp
// sequence ts closest to t, ties to the earlier index. The binary
// search makes this suitable for long data-stream timestamp axes.
func NearestSample(t float64, ts []float64) int {
	n := len(ts)
	if n == 0 {
		return -1
	}

	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		if ts[mid] < t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	// lo is the first index with ts[lo] >= t.
	if lo == 0 {
		return 0
	}
	if lo == n {
		return n - 1
	}
	if math.Abs(t-ts[lo-1]) <= math.Abs(ts[lo]-t) {
		return lo - 1
	}
	return lo
}

// NearestSamples maps every reference timestamp to its nearest sample
// index in ts.
func NearestSamples(refs []float64, ts []float64) []int {
	out := make([]int, len(refs))
	for i, r := range refs {
		out[i] = NearestSample(r, ts)
	}
	return out
}
