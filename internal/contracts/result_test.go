package contracts

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalResult_IsImmutable(t *testing.T) {
	metrics := map[string]float64{"rank_ic_mean": 0.05}
	artifacts := map[string]Series{"rank_ic_series": {{Date: day(1), Value: 0.05}}}

	r := NewEvalResult("mom_20", "common_eval", 5, metrics, artifacts, nil)

	metrics["rank_ic_mean"] = 99
	artifacts["rank_ic_series"][0].Value = 99

	got := r.Metrics()
	got["rank_ic_mean"] = 42

	s, ok := r.Artifact("rank_ic_series")
	require.True(t, ok)
	s[0].Value = 42

	v, _ := r.Metric("rank_ic_mean")
	assert.Equal(t, 0.05, v)
	s2, _ := r.Artifact("rank_ic_series")
	assert.Equal(t, 0.05, s2[0].Value)

	assert.Equal(t, "mom_20", r.Factor())
	assert.Equal(t, "common_eval", r.Evaluator())
	assert.Equal(t, 5, r.Horizon())
}

func TestEvalResult_RecordJSON(t *testing.T) {
	r := NewEvalResult("rev_5", "common_eval", 1,
		map[string]float64{"rank_ic_mean": 0.1, "group_ls_mean": math.NaN()},
		map[string]Series{"ls_cumret": {{Date: day(1), Value: 1.01}, {Date: day(2), Value: 1.02}}},
		map[string]string{"buckets": "no qualifying dates"},
	)

	data, err := json.Marshal(r.Record(true))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"group_ls_mean":null`)

	var rec EvalRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	back := rec.Result()

	v, ok := back.Metric("group_ls_mean")
	assert.True(t, ok)
	assert.True(t, math.IsNaN(v))
	v, _ = back.Metric("rank_ic_mean")
	assert.Equal(t, 0.1, v)

	s, ok := back.Artifact("ls_cumret")
	require.True(t, ok)
	assert.Equal(t, []float64{1.01, 1.02}, s.Values())
	assert.Equal(t, "no qualifying dates", back.Notes()["buckets"])

	assert.Nil(t, r.Record(false).Artifacts)
}

func TestEvalResult_UnknownMetric(t *testing.T) {
	r := NewEvalResult("x", "common_eval", 1, nil, nil, nil)
	v, ok := r.Metric("missing")
	assert.False(t, ok)
	assert.True(t, math.IsNaN(v))
	assert.Empty(t, r.MetricNames())
}
