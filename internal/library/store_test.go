package library

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/pkg/config"
	"github.com/xb1002/FactorFrameworkV2/pkg/database"
)

func TestNewEntry(t *testing.T) {
	spec := contracts.FactorSpec{Name: "mom", Provider: "momentum", Params: map[string]float64{"window": 20}, Tags: []string{"price"}}
	metrics := map[string]float64{"rank_ic_mean": 0.05, "ic_ir": math.NaN(), "x": math.Inf(1)}

	e := NewEntry(spec, SourceAuto, 5, metrics)
	assert.Equal(t, "v1", e.Version)
	assert.Equal(t, map[string]float64{"rank_ic_mean": 0.05}, e.Metrics)
	assert.Equal(t, 5, e.AdmittedHorizon)

	spec.Params["window"] = 99
	spec.Tags[0] = "changed"
	assert.Equal(t, 20.0, e.Params["window"])
	assert.Equal(t, []string{"price"}, e.Tags)
	assert.Equal(t, "momentum", e.Spec().Provider)
}

func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	v1 := FactorEntry{Name: "mom", Version: "v1", Provider: "momentum", Source: SourceManual, CreatedAt: base}
	v2 := FactorEntry{Name: "mom", Version: "v2", Provider: "momentum", Source: SourceAuto, AdmittedHorizon: 5,
		Metrics: map[string]float64{"rank_ic_mean": 0.04}, CreatedAt: base.Add(time.Hour)}
	other := FactorEntry{Name: "a_vol", Version: "v1", Provider: "volatility", Source: SourceManual, CreatedAt: base}

	for _, e := range []FactorEntry{v1, v2, other} {
		require.NoError(t, store.Save(ctx, e))
	}

	latest, err := store.Load(ctx, "mom", "")
	require.NoError(t, err)
	assert.Equal(t, "v2", latest.Version)
	assert.Equal(t, 0.04, latest.Metrics["rank_ic_mean"])

	exact, err := store.Load(ctx, "mom", "v1")
	require.NoError(t, err)
	assert.Equal(t, SourceManual, exact.Source)

	v1.Description = "updated"
	require.NoError(t, store.Save(ctx, v1))
	exact, err = store.Load(ctx, "mom", "v1")
	require.NoError(t, err)
	assert.Equal(t, "updated", exact.Description)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a_vol", all[0].Name)
	assert.Equal(t, "v2", all[2].Version)

	require.NoError(t, store.Delete(ctx, "mom", "v2"))
	assert.ErrorIs(t, store.Delete(ctx, "mom", "v2"), ErrNotFound)
	_, err = store.Load(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestPostgresStore(t *testing.T) {
	if testing.Short() || os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Exec(ctx, Schema...))
	require.NoError(t, db.Exec(ctx, `DELETE FROM factor_library.entries WHERE name IN ('mom', 'a_vol')`))

	exerciseStore(t, NewPostgresStore(db.Pool))
}
