package evaluation

import (
	"fmt"
	"math"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
)

// ReturnKind selects how forward returns are measured and compounded.
type ReturnKind string

const (
	SimpleReturn ReturnKind = "simple"
	LogReturn    ReturnKind = "log"
)

// ParseReturnKind accepts "simple" or "log"; empty means simple.
func ParseReturnKind(s string) (ReturnKind, error) {
	switch ReturnKind(s) {
	case "", SimpleReturn:
		return SimpleReturn, nil
	case LogReturn:
		return LogReturn, nil
	default:
		return "", fmt.Errorf("unknown return kind %q (want simple or log)", s)
	}
}

// between returns the return from p0 to p1, or false when it is undefined.
func (k ReturnKind) between(p0, p1 float64) (float64, bool) {
	switch k {
	case LogReturn:
		if p0 <= 0 || p1 <= 0 {
			return 0, false
		}
		return math.Log(p1) - math.Log(p0), true
	default:
		if p0 == 0 {
			return 0, false
		}
		return p1/p0 - 1, true
	}
}

// ForwardReturns computes the H-observation-ahead return for every (date, entity)
// using each entity's own chronological observations. The last H observations of an
// entity, and observations whose start or end price is missing, get no value.
func ForwardReturns(panel *contracts.Panel, priceField string, horizon int, kind ReturnKind) (map[contracts.Key]float64, error) {
	if horizon <= 0 {
		return nil, &contracts.InvalidHorizonError{Horizons: []int{horizon}, Reason: "horizon must be positive"}
	}
	if !panel.HasField(priceField) {
		return nil, &contracts.SchemaError{Field: priceField}
	}

	out := make(map[contracts.Key]float64, panel.Len())
	for _, idx := range panel.ByEntity() {
		for i := 0; i+horizon < len(idx); i++ {
			start := panel.Row(idx[i])
			end := panel.Row(idx[i+horizon])

			p0, ok0 := start.Value(priceField)
			p1, ok1 := end.Value(priceField)
			if !ok0 || !ok1 {
				continue
			}
			if r, ok := kind.between(p0, p1); ok {
				out[start.Key()] = r
			}
		}
	}
	return out, nil
}

// Compound turns per-period returns into a cumulative wealth path starting at 1.
// Simple returns multiply (1+r); log returns multiply exp(r).
func Compound(returns []float64, kind ReturnKind) []float64 {
	out := make([]float64, len(returns))
	wealth := 1.0
	for i, r := range returns {
		if kind == LogReturn {
			wealth *= math.Exp(r)
		} else {
			wealth *= 1 + r
		}
		out[i] = wealth
	}
	return out
}
