package factors

import (
	"context"
	"fmt"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/pkg/logger"
)

// Momentum is the trailing price return p(t)/p(t-window) - 1.
// Reversal is the same signal with the sign flipped.
type Momentum struct {
	name   string
	window int
	field  string
	sign   float64
	logger *logger.Logger
}

// NewMomentum creates a momentum provider
func NewMomentum(name string, window int, priceField string, log *logger.Logger) (*Momentum, error) {
	if window < 1 {
		return nil, fmt.Errorf("momentum %s: window must be >= 1, got %d", name, window)
	}
	return &Momentum{name: name, window: window, field: priceField, sign: 1, logger: orNop(log)}, nil
}

// NewReversal creates a short-term reversal provider
func NewReversal(name string, window int, priceField string, log *logger.Logger) (*Momentum, error) {
	m, err := NewMomentum(name, window, priceField, log)
	if err != nil {
		return nil, err
	}
	m.sign = -1
	return m, nil
}

func (m *Momentum) Name() string             { return m.name }
func (m *Momentum) RequiredFields() []string { return []string{m.field} }

// Compute calculates the signal for every entity and date with a full window
func (m *Momentum) Compute(ctx context.Context, panel *contracts.Panel) (contracts.FactorSeries, error) {
	if err := requireFields(panel, m.RequiredFields()); err != nil {
		return contracts.FactorSeries{}, err
	}

	out, err := perEntity(ctx, m.name, panel, func(rows []contracts.Row, i int) (float64, bool) {
		if i < m.window {
			return 0, false
		}
		now, ok1 := rows[i].Value(m.field)
		past, ok2 := rows[i-m.window].Value(m.field)
		if !ok1 || !ok2 || past == 0 {
			return 0, false
		}
		return m.sign * (now/past - 1), true
	})
	if err != nil {
		return out, err
	}

	m.logger.WithFields(map[string]interface{}{
		"factor": m.name,
		"window": m.window,
		"values": out.Len(),
	}).Debug("Calculated momentum signal")
	return out, nil
}
