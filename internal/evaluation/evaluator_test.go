package evaluation

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
)

// growthPanel: four entities growing at 1%, 2%, 3%, 4% per day for five days.
func growthPanel(t *testing.T) *contracts.Panel {
	closes := map[string][]float64{}
	for i, e := range []string{"A", "B", "C", "D"} {
		g := 0.01 * float64(i+1)
		prices := make([]float64, 5)
		for d := range prices {
			prices[d] = 100 * math.Pow(1+g, float64(d))
		}
		closes[e] = prices
	}
	return pricePanel(t, closes)
}

func evalInput(panel *contracts.Panel, factor contracts.FactorSeries, h int) HorizonInput {
	return HorizonInput{Panel: panel, Factor: factor, Horizon: h, PriceField: "close", Kind: SimpleReturn}
}

func metric(t *testing.T, r *contracts.EvalResult, name string) float64 {
	t.Helper()
	v, ok := r.Metric(name)
	require.True(t, ok, "metric %s missing", name)
	return v
}

func TestCommonEvaluator_FactorEqualsForwardReturn(t *testing.T) {
	panel := growthPanel(t)
	fwd, err := ForwardReturns(panel, "close", 1, SimpleReturn)
	require.NoError(t, err)
	factor := contracts.NewFactorSeries("perfect")
	for k, v := range fwd {
		factor.Set(k.Date, k.Entity, v)
	}

	ev := NewCommonEvaluator(4, 3, 2, nil)
	res, err := ev.Evaluate(context.Background(), evalInput(panel, factor, 1))
	require.NoError(t, err)

	series, ok := res.Artifact("rank_ic_series")
	require.True(t, ok)
	require.Len(t, series, 4, "the fifth date has no forward return")
	for _, p := range series {
		assert.InDelta(t, 1.0, p.Value, 1e-12)
	}

	assert.InDelta(t, 1.0, metric(t, res, "rank_ic_mean"), 1e-12)
	assert.InDelta(t, 0.0, metric(t, res, "rank_ic_std"), 1e-12)
	assert.Equal(t, 0.0, metric(t, res, "rank_ic_ir"), "zero std gives IR 0")
	assert.Equal(t, 0.0, metric(t, res, "rank_ic_t"), "zero std gives t 0")
	assert.Equal(t, 4.0, metric(t, res, "rank_ic_dates"))

	assert.InDelta(t, 1.0, metric(t, res, "monotonic_mean"), 1e-12)
	assert.Equal(t, 0.0, metric(t, res, "top_turnover_mean"), "D stays on top")
	assert.InDelta(t, 0.03, metric(t, res, "group_ls_mean"), 1e-9)
	assert.InDelta(t, 0.04, metric(t, res, "group_4_mean_ret"), 1e-9)

	cum, ok := res.Artifact("ls_cumret")
	require.True(t, ok)
	require.Len(t, cum, 4)
	assert.InDelta(t, math.Pow(1.03, 4), cum[3].Value, 1e-9)

	top, ok := res.Artifact("group_cumret_4")
	require.True(t, ok)
	assert.InDelta(t, math.Pow(1.04, 4), top[3].Value, 1e-9)

	assert.Equal(t, "perfect", res.Factor())
	assert.Equal(t, CommonEvaluatorName, res.Evaluator())
	assert.Equal(t, 1, res.Horizon())
}

func TestCommonEvaluator_TooFewEntitiesForBuckets(t *testing.T) {
	panel := growthPanel(t)
	factor := noisyOracle(t, panel, 1, 0, 1)

	res, err := NewCommonEvaluator(10, 3, 1, nil).Evaluate(context.Background(), evalInput(panel, factor, 1))
	require.NoError(t, err)

	assert.Equal(t, 0.0, metric(t, res, "group_dates"))
	assert.Equal(t, 4.0, metric(t, res, "excluded_group_dates"))
	assert.True(t, math.IsNaN(metric(t, res, "group_ls_mean")))
	assert.True(t, math.IsNaN(metric(t, res, "monotonic_mean")))
	assert.Contains(t, res.Notes(), "buckets")
	assert.InDelta(t, 1.0, metric(t, res, "rank_ic_mean"), 1e-12)
}

func TestCommonEvaluator_PredictiveFactor(t *testing.T) {
	panel := randomPanel(t, 40, 80, 7)
	factor := noisyOracle(t, panel, 5, 0.005, 11)

	res, err := NewCommonEvaluator(5, 3, 4, nil).Evaluate(context.Background(), evalInput(panel, factor, 5))
	require.NoError(t, err)

	assert.Greater(t, metric(t, res, "rank_ic_mean"), 0.5)
	assert.Greater(t, metric(t, res, "ic_mean"), 0.5)
	assert.Greater(t, metric(t, res, "group_ls_mean"), 0.0)
	assert.Greater(t, metric(t, res, "monotonic_mean"), 0.5)
	assert.Equal(t, 75.0, metric(t, res, "group_dates"))

	turnover := metric(t, res, "top_turnover_mean")
	assert.GreaterOrEqual(t, turnover, 0.0)
	assert.LessOrEqual(t, turnover, 1.0)
	assert.InDelta(t, turnover/5, metric(t, res, "top_turnover_per_horizon"), 1e-12)

	for b := 1; b <= 5; b++ {
		daily, ok := res.Artifact("group_ret_" + string(rune('0'+b)))
		require.True(t, ok)
		assert.Len(t, daily, 75)
	}
	ts, _ := res.Artifact("top_turnover_series")
	assert.Len(t, ts, 74, "one value per consecutive pair")
}

func TestCommonEvaluator_WorkerCountDoesNotChangeResults(t *testing.T) {
	panel := randomPanel(t, 25, 60, 3)
	factor := noisyOracle(t, panel, 3, 0.02, 5)
	in := evalInput(panel, factor, 3)

	serial, err := NewCommonEvaluator(5, 3, 1, nil).Evaluate(context.Background(), in)
	require.NoError(t, err)
	parallel, err := NewCommonEvaluator(5, 3, 8, nil).Evaluate(context.Background(), in)
	require.NoError(t, err)

	a, _ := json.Marshal(serial.Record(true))
	b, _ := json.Marshal(parallel.Record(true))
	assert.JSONEq(t, string(a), string(b))
}

func TestCommonEvaluator_SchemaError(t *testing.T) {
	panel := growthPanel(t)
	in := evalInput(panel, contracts.NewFactorSeries("f"), 1)
	in.PriceField = "adj_close"

	_, err := NewCommonEvaluator(0, 0, 0, nil).Evaluate(context.Background(), in)
	var serr *contracts.SchemaError
	assert.ErrorAs(t, err, &serr)
}

func TestCommonEvaluator_Cancelled(t *testing.T) {
	panel := randomPanel(t, 10, 20, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCommonEvaluator(5, 3, 2, nil).Evaluate(ctx, evalInput(panel, noisyOracle(t, panel, 1, 0, 1), 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCommonEvaluator_TwoBuckets(t *testing.T) {
	panel := randomPanel(t, 20, 30, 9)
	factor := noisyOracle(t, panel, 1, 0, 1)

	res, err := NewCommonEvaluator(2, 3, 2, nil).Evaluate(context.Background(), evalInput(panel, factor, 1))
	require.NoError(t, err)

	assert.Equal(t, 29.0, metric(t, res, "group_dates"))
	assert.Greater(t, metric(t, res, "group_ls_mean"), 0.0)
	assert.InDelta(t, 1.0, metric(t, res, "monotonic_mean"), 1e-12)
	mono, _ := res.Artifact("monotonic_series")
	assert.Len(t, mono, 29)
}

func TestCommonEvaluator_TurnoverSkipsGaps(t *testing.T) {
	full := randomPanel(t, 10, 6, 21)

	tests := []struct {
		name   string
		panel  func() *contracts.Panel
		factor func(p *contracts.Panel) contracts.FactorSeries
	}{
		{
			name: "thinned date",
			panel: func() *contracts.Panel {
				var rows []contracts.Row
				kept := 0
				for i := 0; i < full.Len(); i++ {
					r := full.Row(i)
					if r.Date.Equal(day(2)) {
						if kept == 4 {
							continue
						}
						kept++
					}
					rows = append(rows, r)
				}
				p, err := contracts.NewPanel(rows)
				require.NoError(t, err)
				return p
			},
			factor: func(p *contracts.Panel) contracts.FactorSeries {
				return noisyOracle(t, p, 1, 0, 1)
			},
		},
		{
			name:  "factor undefined on a date",
			panel: func() *contracts.Panel { return full },
			factor: func(p *contracts.Panel) contracts.FactorSeries {
				src := noisyOracle(t, p, 1, 0, 1)
				out := contracts.NewFactorSeries(src.Name)
				for i := 0; i < p.Len(); i++ {
					k := p.Row(i).Key()
					if v, ok := src.Get(k); ok && !k.Date.Equal(day(2)) {
						out.Set(k.Date, k.Entity, v)
					}
				}
				return out
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			panel := tt.panel()
			res, err := NewCommonEvaluator(5, 3, 1, nil).Evaluate(context.Background(), evalInput(panel, tt.factor(panel), 1))
			require.NoError(t, err)

			ts, ok := res.Artifact("top_turnover_series")
			require.True(t, ok)
			var dates []time.Time
			for _, p := range ts {
				dates = append(dates, p.Date)
			}
			assert.Equal(t, []time.Time{day(1), day(4)}, dates, "no pair spans the missing date")
		})
	}
}

func TestCommonEvaluator_LongLow(t *testing.T) {
	panel := growthPanel(t)
	fwd, err := ForwardReturns(panel, "close", 1, SimpleReturn)
	require.NoError(t, err)
	factor := contracts.NewFactorSeries("perfect")
	for k, v := range fwd {
		factor.Set(k.Date, k.Entity, v)
	}

	ev := NewCommonEvaluator(4, 3, 1, nil)
	ev.LongHigh = false
	res, err := ev.Evaluate(context.Background(), evalInput(panel, factor, 1))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, metric(t, res, "rank_ic_mean"), 1e-12, "IC ignores the grouping direction")
	assert.InDelta(t, -0.03, metric(t, res, "group_ls_mean"), 1e-9)
	assert.InDelta(t, -1.0, metric(t, res, "monotonic_mean"), 1e-12)
	assert.InDelta(t, 0.01, metric(t, res, "group_4_mean_ret"), 1e-9, "top bucket holds the lowest factor")
	assert.Equal(t, 0.0, metric(t, res, "top_turnover_mean"))
}
