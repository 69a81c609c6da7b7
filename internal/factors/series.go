package factors

import (
	"context"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/pkg/logger"
)

// pointFunc computes the value at position i of one entity's chronological rows.
type pointFunc func(rows []contracts.Row, i int) (float64, bool)

// requireFields returns a SchemaError for the first field no panel row carries.
func requireFields(panel *contracts.Panel, fields []string) error {
	for _, f := range fields {
		if !panel.HasField(f) {
			return &contracts.SchemaError{Field: f}
		}
	}
	return nil
}

// perEntity applies fn along every entity's own time series.
func perEntity(ctx context.Context, name string, panel *contracts.Panel, fn pointFunc) (contracts.FactorSeries, error) {
	out := contracts.NewFactorSeries(name)
	for _, idx := range panel.ByEntity() {
		if err := ctx.Err(); err != nil {
			return contracts.FactorSeries{}, err
		}
		rows := make([]contracts.Row, len(idx))
		for i, j := range idx {
			rows[i] = panel.Row(j)
		}
		for i := range rows {
			if v, ok := fn(rows, i); ok {
				out.Set(rows[i].Date, rows[i].Entity, v)
			}
		}
	}
	return out, nil
}

func orNop(log *logger.Logger) *logger.Logger {
	if log == nil {
		return logger.NewNop()
	}
	return log
}
