package evaluation

import (
	"math"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
)

// AlignedRow is a panel row that also has a factor key.
type AlignedRow struct {
	Key      contracts.Key
	Row      contracts.Row
	Factor   float64 // NaN when the factor value is undefined
	Complete bool    // all required fields are present and not NaN
}

// Usable reports whether the row can join a cross-section.
func (a AlignedRow) Usable() bool {
	return a.Complete && !math.IsNaN(a.Factor)
}

// Align restricts the panel to keys present in the factor series, in panel order.
// Factor keys outside the panel are dropped. A required field that no row carries
// is a *contracts.SchemaError.
func Align(panel *contracts.Panel, factor contracts.FactorSeries, required []string) ([]AlignedRow, error) {
	for _, field := range required {
		if !panel.HasField(field) {
			return nil, &contracts.SchemaError{Field: field}
		}
	}

	out := make([]AlignedRow, 0, factor.Len())
	for i := 0; i < panel.Len(); i++ {
		row := panel.Row(i)
		key := row.Key()
		if _, ok := factor.Values[key]; !ok {
			continue
		}
		v, _ := factor.Get(key)

		complete := true
		for _, field := range required {
			if _, ok := row.Value(field); !ok {
				complete = false
				break
			}
		}
		out = append(out, AlignedRow{Key: key, Row: row, Factor: v, Complete: complete})
	}
	return out, nil
}
