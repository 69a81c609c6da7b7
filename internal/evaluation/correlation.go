package evaluation

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// MinCrossSection is the smallest cross-section a correlation is computed on.
const MinCrossSection = 3

// FractionalRanks assigns 1-based ranks; tied values share the average of their ranks.
func FractionalRanks(xs []float64) []float64 {
	n := len(xs)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return xs[order[a]] < xs[order[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i + 1
		for j < n && xs[order[j]] == xs[order[i]] {
			j++
		}
		// positions i..j-1 hold ranks i+1..j
		avg := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}
		i = j
	}
	return ranks
}

// Pearson returns the linear correlation of x and y.
// It is undefined (false) below MinCrossSection points or when either side is constant.
func Pearson(x, y []float64) (float64, bool) {
	if len(x) != len(y) || len(x) < MinCrossSection {
		return math.NaN(), false
	}
	if constant(x) || constant(y) {
		return math.NaN(), false
	}
	c := stat.Correlation(x, y, nil)
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return math.NaN(), false
	}
	return c, true
}

// Spearman returns the Pearson correlation of the fractional ranks of x and y.
func Spearman(x, y []float64) (float64, bool) {
	if len(x) != len(y) || len(x) < MinCrossSection {
		return math.NaN(), false
	}
	return Pearson(FractionalRanks(x), FractionalRanks(y))
}

func constant(xs []float64) bool {
	for _, v := range xs[1:] {
		if v != xs[0] {
			return false
		}
	}
	return true
}
