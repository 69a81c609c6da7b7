package evaluation

import (
	"time"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
)

// CrossSection is one date's usable observations, in panel order.
type CrossSection struct {
	Date     time.Time
	Entities []string
	Factor   []float64
	Returns  []float64
}

// Len returns the number of entities.
func (cs CrossSection) Len() int {
	return len(cs.Entities)
}

// Negated returns a copy with the factor sign flipped; entity order is unchanged.
func (cs CrossSection) Negated() CrossSection {
	out := cs
	out.Factor = make([]float64, len(cs.Factor))
	for i, v := range cs.Factor {
		out.Factor[i] = -v
	}
	return out
}

// BuildCrossSections groups usable aligned rows that have a forward return by date.
// Aligned rows are already date-ordered, so the output is chronological.
func BuildCrossSections(aligned []AlignedRow, fwd map[contracts.Key]float64) []CrossSection {
	var out []CrossSection
	for _, a := range aligned {
		if !a.Usable() {
			continue
		}
		r, ok := fwd[a.Key]
		if !ok {
			continue
		}
		if n := len(out); n == 0 || !out[n-1].Date.Equal(a.Key.Date) {
			out = append(out, CrossSection{Date: a.Key.Date})
		}
		cs := &out[len(out)-1]
		cs.Entities = append(cs.Entities, a.Key.Entity)
		cs.Factor = append(cs.Factor, a.Factor)
		cs.Returns = append(cs.Returns, r)
	}
	return out
}
