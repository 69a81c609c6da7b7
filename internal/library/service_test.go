package library

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xb1002/FactorFrameworkV2/internal/admission"
	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/pkg/redis"
)

func TestNewService_RequiresDeps(t *testing.T) {
	_, err := NewService(Deps{})
	assert.Error(t, err)
}

func TestService_AutoAdmit(t *testing.T) {
	obs := newCountingObserver()
	svc, store := newTestService(t, nil, obs)
	ctx := context.Background()

	panel, err := svc.LoadPanel(ctx)
	require.NoError(t, err)

	out, err := svc.AutoAdmit(ctx, "oracle", panel)
	require.NoError(t, err)
	assert.Equal(t, admission.StateAdmitted, out.Decision.State)
	assert.Equal(t, 1, out.Decision.Horizon)
	require.NotNil(t, out.Entry)
	assert.Len(t, out.Results, 2)

	saved, err := store.Load(ctx, "oracle", "v2")
	require.NoError(t, err)
	assert.Equal(t, SourceAuto, saved.Source)
	assert.Equal(t, 1, saved.AdmittedHorizon)
	assert.Equal(t, []string{"test"}, saved.Tags)

	ic, _ := out.Results[1].Metric("rank_ic_mean")
	assert.Equal(t, ic, saved.Metrics["rank_ic_mean"])
	assert.Equal(t, 1, obs.admissions["ADMITTED"])
	assert.Equal(t, 1, obs.misses)
}

func TestService_AutoAdmitRejected(t *testing.T) {
	obs := newCountingObserver()
	svc, store := newTestService(t, nil, obs)
	ctx := context.Background()

	panel, err := svc.LoadPanel(ctx)
	require.NoError(t, err)

	out, err := svc.AutoAdmit(ctx, "flat", panel)
	require.NoError(t, err)
	assert.Equal(t, admission.StateRejected, out.Decision.State)
	assert.Nil(t, out.Entry)
	assert.Len(t, out.Decision.Checks, 2)

	ic, _ := out.Results[1].Metric("rank_ic_mean")
	assert.True(t, math.IsNaN(ic))

	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 1, obs.admissions["REJECTED"])
}

func TestService_UnknownFactor(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	_, err := svc.Report(ctx, "missing", nil, nil)
	assert.ErrorIs(t, err, ErrUnknownFactor)

	_, err = svc.Compute(ctx, "missing", nil)
	assert.ErrorIs(t, err, ErrUnknownFactor)
}

func TestService_ReportHorizonOverride(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	ctx := context.Background()
	panel, err := svc.LoadPanel(ctx)
	require.NoError(t, err)

	results, err := svc.Report(ctx, "oracle", panel, []int{2})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, 2, results[2].Horizon())

	_, err = svc.Report(ctx, "oracle", panel, []int{2, 2})
	var herr *contracts.InvalidHorizonError
	assert.ErrorAs(t, err, &herr)
}

func TestService_ReportFromCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := redis.NewCache(redis.NewFromRedis(db), "factorlab")
	obs := newCountingObserver()
	svc, _ := newTestService(t, cache, obs)
	panel, err := svc.LoadPanel(context.Background())
	require.NoError(t, err)

	for _, h := range []int{1, 3} {
		res := contracts.NewEvalResult("oracle", "common_eval", h,
			map[string]float64{"rank_ic_mean": 0.1 * float64(h), "rank_ic_ir": math.NaN()}, nil, nil)
		data, err := json.Marshal(res.Record(true))
		require.NoError(t, err)
		mock.ExpectGet("factorlab:cache:" + redis.EvalResultKey("oracle", "v2", "hash", panel.Fingerprint(), h)).SetVal(string(data))
	}

	results, err := svc.Report(context.Background(), "oracle", panel, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	ic, _ := results[3].Metric("rank_ic_mean")
	assert.InDelta(t, 0.3, ic, 1e-12)
	ir, ok := results[3].Metric("rank_ic_ir")
	assert.True(t, ok)
	assert.True(t, math.IsNaN(ir))
	assert.Equal(t, 1, obs.hits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ReportCacheIsPerPanel(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := redis.NewCache(redis.NewFromRedis(db), "factorlab")
	obs := newCountingObserver()
	svc, _ := newTestService(t, cache, obs)

	profilePanel, err := svc.LoadPanel(context.Background())
	require.NoError(t, err)
	other := walkPanel(t, 12, 30)
	require.NotEqual(t, profilePanel.Fingerprint(), other.Fingerprint())

	for _, h := range []int{1, 3} {
		mock.ExpectGet("factorlab:cache:" + redis.EvalResultKey("oracle", "v2", "hash", other.Fingerprint(), h)).RedisNil()
	}

	// cache writes are not expected by the mock; they fail and are only logged
	results, err := svc.Report(context.Background(), "oracle", other, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, obs.misses)
	assert.Equal(t, 0, obs.hits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ManualAdmitAndEntries(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	_, err := svc.ManualAdmit(ctx, contracts.FactorSpec{Name: "no_provider"})
	assert.Error(t, err)

	entry, err := svc.ManualAdmit(ctx, contracts.FactorSpec{Name: "mom_60", Provider: "momentum", Params: map[string]float64{"window": 60}})
	require.NoError(t, err)
	assert.Equal(t, SourceManual, entry.Source)
	assert.Equal(t, "v1", entry.Version)
	assert.Zero(t, entry.AdmittedHorizon)

	entries, err := svc.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "mom_60", entries[0].Name)

	got, err := svc.Entry(ctx, "mom_60", "")
	require.NoError(t, err)
	assert.Equal(t, 60.0, got.Params["window"])

	require.NoError(t, svc.Remove(ctx, "mom_60", "v1"))
	_, err = svc.Entry(ctx, "mom_60", "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Remove(ctx, "mom_60", "v1"), ErrNotFound)
}
