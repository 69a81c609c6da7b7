package evaluation

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Monotonicity is the rank correlation between bucket ordinal (1..N) and bucket mean
// return. Two buckets are enough; the cross-section floor of Spearman does not apply.
func Monotonicity(means []float64) (float64, bool) {
	if len(means) < 2 || constant(means) {
		return math.NaN(), false
	}
	ordinals := make([]float64, len(means))
	for i := range ordinals {
		ordinals[i] = float64(i + 1)
	}
	c := stat.Correlation(ordinals, FractionalRanks(means), nil)
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return math.NaN(), false
	}
	return c, true
}
