package admission

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
)

// State is a terminal admission state.
type State string

const (
	StateAdmitted State = "ADMITTED"
	StateRejected State = "REJECTED"
)

// CriterionResult is one threshold test on one horizon.
type CriterionResult struct {
	Name      string  `json:"name"`
	Op        string  `json:"op"` // ">=" or "<="
	Threshold float64 `json:"threshold"`
	Actual    float64 `json:"actual"`
	Pass      bool    `json:"pass"`
}

// MarshalJSON writes an undefined Actual as null.
func (c CriterionResult) MarshalJSON() ([]byte, error) {
	type alias CriterionResult
	out := struct {
		alias
		Actual *float64 `json:"actual"`
	}{alias: alias(c)}
	if !math.IsNaN(c.Actual) && !math.IsInf(c.Actual, 0) {
		v := c.Actual
		out.Actual = &v
	}
	return json.Marshal(out)
}

// HorizonCheck is the checklist of one horizon.
type HorizonCheck struct {
	Horizon  int               `json:"horizon"`
	Criteria []CriterionResult `json:"criteria"`
	Pass     bool              `json:"pass"`
}

// Decision is ADMITTED at Horizon, or REJECTED with Horizon 0.
// Checks lists the horizons that were examined, in ascending order; the scan stops at
// the first passing horizon.
type Decision struct {
	State   State          `json:"state"`
	Horizon int            `json:"horizon,omitempty"`
	Checks  []HorizonCheck `json:"checks"`
}

// Admitted reports whether a horizon qualified.
func (d Decision) Admitted() bool {
	return d.State == StateAdmitted
}

func (d Decision) String() string {
	if d.Admitted() {
		return fmt.Sprintf("%s(%d)", d.State, d.Horizon)
	}
	return string(d.State)
}

// Check tests one result against the four thresholds. Undefined (NaN) metrics fail.
func (r Rule) Check(res *contracts.EvalResult) HorizonCheck {
	rankIC, _ := res.Metric("rank_ic_mean")
	rankIR, _ := res.Metric("rank_ic_ir")
	mono, _ := res.Metric("monotonic_mean")

	turnover, ok := res.Metric("top_turnover_per_horizon")
	if !ok {
		mean, _ := res.Metric("top_turnover_mean")
		turnover = mean / float64(res.Horizon())
	}

	criteria := []CriterionResult{
		atLeast("abs_rank_ic_mean", math.Abs(rankIC), r.MinAbsRankIC),
		atLeast("abs_rank_ic_ir", math.Abs(rankIR), r.MinAbsRankICIR),
		atMost("top_turnover_per_horizon", turnover, r.MaxTurnoverPerHorizon),
		atLeast("abs_monotonic_mean", math.Abs(mono), r.MinAbsMonotonicity),
	}

	pass := true
	for _, c := range criteria {
		pass = pass && c.Pass
	}
	return HorizonCheck{Horizon: res.Horizon(), Criteria: criteria, Pass: pass}
}

// Decide scans horizons in ascending order and admits the first one that passes every
// threshold. Later horizons are not examined. Decide never fails and never modifies
// the results it reads.
func Decide(rule Rule, results map[int]*contracts.EvalResult) Decision {
	horizons := make([]int, 0, len(results))
	for h, res := range results {
		if res != nil {
			horizons = append(horizons, h)
		}
	}
	sort.Ints(horizons)

	d := Decision{State: StateRejected}
	for _, h := range horizons {
		check := rule.Check(results[h])
		check.Horizon = h
		d.Checks = append(d.Checks, check)
		if check.Pass {
			d.State = StateAdmitted
			d.Horizon = h
			return d
		}
	}
	return d
}

func atLeast(name string, actual, threshold float64) CriterionResult {
	return CriterionResult{Name: name, Op: ">=", Threshold: threshold, Actual: actual, Pass: !math.IsNaN(actual) && actual >= threshold}
}

func atMost(name string, actual, threshold float64) CriterionResult {
	return CriterionResult{Name: name, Op: "<=", Threshold: threshold, Actual: actual, Pass: !math.IsNaN(actual) && actual <= threshold}
}
