package evaluation

import "math"

// Turnover is the share of next's members that were not in prev, relative to |prev|.
// Identical sets give 0, disjoint sets of equal size give 1. An empty prev is undefined.
func Turnover(prev, next []string) float64 {
	if len(prev) == 0 {
		return math.NaN()
	}
	held := make(map[string]struct{}, len(prev))
	for _, e := range prev {
		held[e] = struct{}{}
	}
	entered := 0
	for _, e := range next {
		if _, ok := held[e]; !ok {
			entered++
		}
	}
	return float64(entered) / float64(len(prev))
}
