package factors

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/pkg/logger"
)

// Volatility is the sample standard deviation of the last window simple returns.
type Volatility struct {
	name   string
	window int
	field  string
	logger *logger.Logger
}

// NewVolatility creates a realized volatility provider
func NewVolatility(name string, window int, priceField string, log *logger.Logger) (*Volatility, error) {
	if window < 2 {
		return nil, fmt.Errorf("volatility %s: window must be >= 2, got %d", name, window)
	}
	return &Volatility{name: name, window: window, field: priceField, logger: orNop(log)}, nil
}

func (v *Volatility) Name() string             { return v.name }
func (v *Volatility) RequiredFields() []string { return []string{v.field} }

// Compute calculates the signal
func (v *Volatility) Compute(ctx context.Context, panel *contracts.Panel) (contracts.FactorSeries, error) {
	if err := requireFields(panel, v.RequiredFields()); err != nil {
		return contracts.FactorSeries{}, err
	}

	out, err := perEntity(ctx, v.name, panel, func(rows []contracts.Row, i int) (float64, bool) {
		if i < v.window {
			return 0, false
		}
		rets := make([]float64, 0, v.window)
		for k := i - v.window + 1; k <= i; k++ {
			p0, ok0 := rows[k-1].Value(v.field)
			p1, ok1 := rows[k].Value(v.field)
			if !ok0 || !ok1 || p0 == 0 {
				return 0, false
			}
			rets = append(rets, p1/p0-1)
		}
		return stat.StdDev(rets, nil), true
	})
	if err != nil {
		return out, err
	}

	v.logger.WithFields(map[string]interface{}{
		"factor": v.name,
		"window": v.window,
		"values": out.Len(),
	}).Debug("Calculated volatility signal")
	return out, nil
}
