package factors

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/pkg/logger"
)

// LiquidityDeviation measures how far an entity's amount-weighted intraday log return
// sits from that date's cross-sectional median: (x - median(x))^2 with
// x = ln(close/open) * amount.
type LiquidityDeviation struct {
	name   string
	logger *logger.Logger
}

// NewLiquidityDeviation creates the provider
func NewLiquidityDeviation(name string, log *logger.Logger) *LiquidityDeviation {
	return &LiquidityDeviation{name: name, logger: orNop(log)}
}

func (l *LiquidityDeviation) Name() string { return l.name }
func (l *LiquidityDeviation) RequiredFields() []string {
	return []string{"open", "close", "amount"}
}

// Compute calculates the signal date by date
func (l *LiquidityDeviation) Compute(ctx context.Context, panel *contracts.Panel) (contracts.FactorSeries, error) {
	if err := requireFields(panel, l.RequiredFields()); err != nil {
		return contracts.FactorSeries{}, err
	}

	out := contracts.NewFactorSeries(l.name)
	var (
		date     time.Time
		entities []string
		xs       []float64
	)
	flush := func() {
		if len(xs) == 0 {
			return
		}
		med := median(xs)
		for i, x := range xs {
			d := x - med
			out.Set(date, entities[i], d*d)
		}
		entities, xs = entities[:0], xs[:0]
	}

	for i := 0; i < panel.Len(); i++ {
		row := panel.Row(i)
		if !row.Date.Equal(date) {
			if err := ctx.Err(); err != nil {
				return contracts.FactorSeries{}, err
			}
			flush()
			date = row.Date
		}
		open, ok1 := row.Value("open")
		closePx, ok2 := row.Value("close")
		amount, ok3 := row.Value("amount")
		if !ok1 || !ok2 || !ok3 || open <= 0 || closePx <= 0 {
			continue
		}
		entities = append(entities, row.Entity)
		xs = append(xs, math.Log(closePx/open)*amount)
	}
	flush()

	l.logger.WithFields(map[string]interface{}{
		"factor": l.name,
		"values": out.Len(),
	}).Debug("Calculated liquidity deviation signal")
	return out, nil
}

func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
