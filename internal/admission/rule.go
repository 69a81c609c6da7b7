package admission

import (
	"fmt"
	"math"
)

// Rule is an immutable set of admission thresholds. Build it once from
// configuration and reuse it for every check.
type Rule struct {
	MinAbsRankIC          float64 `json:"min_abs_rank_ic" yaml:"min_abs_rank_ic"`
	MinAbsRankICIR        float64 `json:"min_abs_rank_ic_ir" yaml:"min_abs_rank_ic_ir"`
	MaxTurnoverPerHorizon float64 `json:"max_turnover_per_horizon" yaml:"max_turnover_per_horizon"`
	MinAbsMonotonicity    float64 `json:"min_abs_monotonicity" yaml:"min_abs_monotonicity"`
}

// DefaultRule returns the standard thresholds.
func DefaultRule() Rule {
	return Rule{
		MinAbsRankIC:          0.02,
		MinAbsRankICIR:        0.4,
		MaxTurnoverPerHorizon: 0.6,
		MinAbsMonotonicity:    0.1,
	}
}

// Validate rejects negative or non-finite thresholds.
func (r Rule) Validate() error {
	for name, v := range map[string]float64{
		"min_abs_rank_ic":          r.MinAbsRankIC,
		"min_abs_rank_ic_ir":       r.MinAbsRankICIR,
		"max_turnover_per_horizon": r.MaxTurnoverPerHorizon,
		"min_abs_monotonicity":     r.MinAbsMonotonicity,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("admission threshold %s must be a non-negative number, got %v", name, v)
		}
	}
	return nil
}
