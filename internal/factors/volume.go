package factors

import (
	"context"
	"fmt"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/pkg/logger"
)

// VolumeRatio is today's volume over the mean volume of the previous window observations.
type VolumeRatio struct {
	name   string
	window int
	logger *logger.Logger
}

// NewVolumeRatio creates a volume ratio provider
func NewVolumeRatio(name string, window int, log *logger.Logger) (*VolumeRatio, error) {
	if window < 1 {
		return nil, fmt.Errorf("volume_ratio %s: window must be >= 1, got %d", name, window)
	}
	return &VolumeRatio{name: name, window: window, logger: orNop(log)}, nil
}

func (r *VolumeRatio) Name() string             { return r.name }
func (r *VolumeRatio) RequiredFields() []string { return []string{"volume"} }

// Compute calculates the signal
func (r *VolumeRatio) Compute(ctx context.Context, panel *contracts.Panel) (contracts.FactorSeries, error) {
	if err := requireFields(panel, r.RequiredFields()); err != nil {
		return contracts.FactorSeries{}, err
	}

	out, err := perEntity(ctx, r.name, panel, func(rows []contracts.Row, i int) (float64, bool) {
		if i < r.window {
			return 0, false
		}
		now, ok := rows[i].Value("volume")
		if !ok {
			return 0, false
		}
		sum := 0.0
		for k := i - r.window; k < i; k++ {
			v, ok := rows[k].Value("volume")
			if !ok {
				return 0, false
			}
			sum += v
		}
		if sum <= 0 {
			return 0, false
		}
		return now / (sum / float64(r.window)), true
	})
	if err != nil {
		return out, err
	}

	r.logger.WithFields(map[string]interface{}{
		"factor": r.name,
		"window": r.window,
		"values": out.Len(),
	}).Debug("Calculated volume ratio signal")
	return out, nil
}
