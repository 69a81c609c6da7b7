package evaluation

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// zeroStd is the threshold under which a standard deviation counts as zero.
const zeroStd = 1e-12

// Summary reduces a series to its headline statistics.
type Summary struct {
	N    int
	Mean float64
	Std  float64 // sample standard deviation
	IR   float64 // Mean / Std, 0 when Std is zero
	T    float64 // Mean / (Std / sqrt(N)), 0 when Std is zero
}

// Summarize never fails: an empty series has NaN mean and std, and IR and T
// are 0 whenever the standard deviation is zero or undefined.
func Summarize(values []float64) Summary {
	s := Summary{N: len(values)}
	switch s.N {
	case 0:
		s.Mean, s.Std = math.NaN(), math.NaN()
		return s
	case 1:
		s.Mean = values[0]
		return s
	}

	s.Mean = stat.Mean(values, nil)
	s.Std = stat.StdDev(values, nil)
	if math.IsNaN(s.Std) || s.Std <= zeroStd {
		return s
	}
	s.IR = s.Mean / s.Std
	s.T = s.Mean / (s.Std / math.Sqrt(float64(s.N)))
	return s
}
