package factors

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/pkg/logger"
)

func day(d int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func panelOf(t *testing.T, fields map[string]map[string][]float64) *contracts.Panel {
	t.Helper()
	var rows []contracts.Row
	for entity, cols := range fields {
		n := 0
		for _, v := range cols {
			n = len(v)
		}
		for i := 0; i < n; i++ {
			f := map[string]float64{}
			for name, v := range cols {
				f[name] = v[i]
			}
			rows = append(rows, contracts.Row{Date: day(i), Entity: entity, Fields: f})
		}
	}
	p, err := contracts.NewPanel(rows)
	require.NoError(t, err)
	return p
}

func value(t *testing.T, f contracts.FactorSeries, d int, entity string) float64 {
	t.Helper()
	v, ok := f.Get(contracts.KeyOf(day(d), entity))
	require.True(t, ok, "no value for %s on day %d", entity, d)
	return v
}

func TestMomentumAndReversal(t *testing.T) {
	p := panelOf(t, map[string]map[string][]float64{
		"A": {"close": {10, 11, 12, 15}},
		"B": {"close": {20, 0, 18, 16}},
	})

	mom, err := NewMomentum("mom_2", 2, "close", logger.NewNop())
	require.NoError(t, err)
	f, err := mom.Compute(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, "mom_2", f.Name)
	assert.InDelta(t, 0.2, value(t, f, 2, "A"), 1e-12)
	assert.InDelta(t, 15.0/11-1, value(t, f, 3, "A"), 1e-12)
	assert.InDelta(t, -0.1, value(t, f, 2, "B"), 1e-12)
	_, ok := f.Get(contracts.KeyOf(day(3), "B"))
	assert.False(t, ok, "zero base price")
	_, ok = f.Get(contracts.KeyOf(day(1), "A"))
	assert.False(t, ok, "window not filled")

	rev, err := NewReversal("rev_2", 2, "close", nil)
	require.NoError(t, err)
	r, err := rev.Compute(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, -0.2, value(t, r, 2, "A"), 1e-12)

	_, err = NewMomentum("bad", 0, "close", nil)
	assert.Error(t, err)
}

func TestVolatility(t *testing.T) {
	p := panelOf(t, map[string]map[string][]float64{
		"A": {"close": {100, 110, 99, 99}},
	})

	vol, err := NewVolatility("vol_2", 2, "close", nil)
	require.NoError(t, err)
	f, err := vol.Compute(context.Background(), p)
	require.NoError(t, err)

	// returns on day 1 and 2: +10%, -10%
	assert.InDelta(t, math.Sqrt(0.02), value(t, f, 2, "A"), 1e-12)
	// returns on day 2 and 3: -10%, 0
	assert.InDelta(t, math.Sqrt(0.005), value(t, f, 3, "A"), 1e-12)
	assert.Equal(t, 2, f.Len())

	_, err = NewVolatility("bad", 1, "close", nil)
	assert.Error(t, err)
}

func TestVolumeRatio(t *testing.T) {
	p := panelOf(t, map[string]map[string][]float64{
		"A": {"close": {1, 1, 1, 1}, "volume": {100, 300, 400, 0}},
	})

	vr, err := NewVolumeRatio("vr_2", 2, nil)
	require.NoError(t, err)
	f, err := vr.Compute(context.Background(), p)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, value(t, f, 2, "A"), 1e-12)
	assert.InDelta(t, 0.0, value(t, f, 3, "A"), 1e-12)
}

func TestLiquidityDeviation(t *testing.T) {
	e := math.E
	p := panelOf(t, map[string]map[string][]float64{
		"A": {"open": {1}, "close": {e}, "amount": {10}}, // x = 10
		"B": {"open": {1}, "close": {1}, "amount": {50}}, // x = 0
		"C": {"open": {e}, "close": {1}, "amount": {4}},  // x = -4
		"D": {"open": {1}, "close": {e}, "amount": {2}},  // x = 2
	})

	f, err := NewLiquidityDeviation("liq", nil).Compute(context.Background(), p)
	require.NoError(t, err)

	// median of {10, 0, -4, 2} is 1
	assert.InDelta(t, 81.0, value(t, f, 0, "A"), 1e-9)
	assert.InDelta(t, 1.0, value(t, f, 0, "B"), 1e-9)
	assert.InDelta(t, 25.0, value(t, f, 0, "C"), 1e-9)
	assert.InDelta(t, 1.0, value(t, f, 0, "D"), 1e-9)
}

func TestMissingFieldIsSchemaError(t *testing.T) {
	p := panelOf(t, map[string]map[string][]float64{"A": {"close": {1, 2}}})

	_, err := NewLiquidityDeviation("liq", nil).Compute(context.Background(), p)
	var serr *contracts.SchemaError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "open", serr.Field)

	vr, _ := NewVolumeRatio("vr", 1, nil)
	_, err = vr.Compute(context.Background(), p)
	assert.ErrorAs(t, err, &serr)
}

func TestCompute_Cancelled(t *testing.T) {
	p := panelOf(t, map[string]map[string][]float64{"A": {"close": {1, 2, 3}}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mom, _ := NewMomentum("m", 1, "close", nil)
	_, err := mom.Compute(ctx, p)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFactory_Build(t *testing.T) {
	f := NewFactory(logger.NewNop())

	tests := []struct {
		spec    contracts.FactorSpec
		wantErr bool
	}{
		{contracts.FactorSpec{Name: "mom_20", Provider: KindMomentum, Params: map[string]float64{"window": 20}}, false},
		{contracts.FactorSpec{Name: "rev", Provider: KindReversal}, false},
		{contracts.FactorSpec{Name: "vol", Provider: KindVolatility, Params: map[string]float64{"window": 10}}, false},
		{contracts.FactorSpec{Name: "vr", Provider: KindVolumeRatio}, false},
		{contracts.FactorSpec{Name: "liq", Provider: KindLiquidityDeviation}, false},
		{contracts.FactorSpec{Name: "frac", Provider: KindMomentum, Params: map[string]float64{"window": 2.5}}, true},
		{contracts.FactorSpec{Name: "neg", Provider: KindMomentum, Params: map[string]float64{"window": -1}}, true},
		{contracts.FactorSpec{Name: "x", Provider: "alpha101"}, true},
		{contracts.FactorSpec{Provider: KindMomentum}, true},
	}

	for _, tt := range tests {
		t.Run(tt.spec.Name+"/"+tt.spec.Provider, func(t *testing.T) {
			p, err := f.Build(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.spec.Name, p.Name())
		})
	}
}

func TestFactory_Register(t *testing.T) {
	f := NewFactory(nil)
	ctor := func(s contracts.FactorSpec, l *logger.Logger) (contracts.SignalProvider, error) {
		return NewMomentum(s.Name, 3, "close", l)
	}

	require.NoError(t, f.Register("custom", ctor))
	assert.Error(t, f.Register(KindMomentum, ctor))
	assert.Contains(t, f.Kinds(), "custom")

	p, err := f.Build(contracts.FactorSpec{Name: "c", Provider: "custom"})
	require.NoError(t, err)
	assert.Equal(t, "c", p.Name())
}

func TestRegistry(t *testing.T) {
	a, _ := NewMomentum("a", 1, "close", nil)
	b, _ := NewReversal("b", 1, "close", nil)

	r, err := NewRegistry(b, a)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, r.Names())
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, "a", r.Providers()[0].Name())

	got, ok := r.Get("b")
	require.True(t, ok)
	assert.Equal(t, "b", got.Name())

	_, err = NewRegistry(a, a)
	assert.ErrorContains(t, err, "duplicate")

	built, err := NewFactory(nil).BuildAll([]contracts.FactorSpec{
		{Name: "m", Provider: KindMomentum},
		{Name: "m", Provider: KindReversal},
	})
	assert.Error(t, err)
	assert.Nil(t, built)
}
