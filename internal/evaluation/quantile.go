package evaluation

import (
	"sort"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
)

// DefaultBuckets is the usual decile split.
const DefaultBuckets = 10

// BucketDay is one date's quantile split.
type BucketDay struct {
	Means []float64 // mean forward return per bucket, bottom (0) to top (N-1)
	Top   []string  // members of the top bucket
}

// LongShort returns top-bucket mean minus bottom-bucket mean.
func (b BucketDay) LongShort() float64 {
	return b.Means[len(b.Means)-1] - b.Means[0]
}

// Buckets splits one date's cross-section into n equal-count buckets by ascending
// factor value. Equal factor values keep their input order (stable sort), so ties on a
// bucket boundary are resolved by panel order. Fewer than n entities is an
// *contracts.InsufficientDataError.
func Buckets(cs CrossSection, n int) (BucketDay, error) {
	size := cs.Len()
	if n < 1 || size < n {
		return BucketDay{}, &contracts.InsufficientDataError{Date: cs.Date, Have: size, Need: n}
	}

	order := make([]int, size)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return cs.Factor[order[a]] < cs.Factor[order[b]]
	})

	sums := make([]float64, n)
	counts := make([]int, n)
	var top []string
	for pos, i := range order {
		b := pos * n / size
		sums[b] += cs.Returns[i]
		counts[b]++
		if b == n-1 {
			top = append(top, cs.Entities[i])
		}
	}

	means := make([]float64, n)
	for b := range means {
		means[b] = sums[b] / float64(counts[b])
	}
	return BucketDay{Means: means, Top: top}, nil
}
