package library

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xb1002/FactorFrameworkV2/internal/admission"
	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/internal/evalconfig"
	"github.com/xb1002/FactorFrameworkV2/internal/evaluation"
	"github.com/xb1002/FactorFrameworkV2/internal/factors"
	"github.com/xb1002/FactorFrameworkV2/pkg/redis"
)

func day(d int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

// walkPanel is a random-walk close panel of n entities over d days.
func walkPanel(t *testing.T, n, d int) *contracts.Panel {
	t.Helper()
	rng := rand.New(rand.NewSource(11))
	var rows []contracts.Row
	for e := 0; e < n; e++ {
		price := 50.0
		for i := 0; i < d; i++ {
			rows = append(rows, contracts.Row{
				Date:   day(i),
				Entity: string(rune('A' + e)),
				Fields: map[string]float64{"close": price},
			})
			price *= 1 + rng.NormFloat64()*0.02
		}
	}
	p, err := contracts.NewPanel(rows)
	require.NoError(t, err)
	return p
}

// oracle peeks at the next close and adds a little noise.
type oracle struct{}

func (oracle) Name() string             { return "oracle" }
func (oracle) RequiredFields() []string { return []string{"close"} }
func (oracle) Compute(_ context.Context, panel *contracts.Panel) (contracts.FactorSeries, error) {
	rng := rand.New(rand.NewSource(3))
	out := contracts.NewFactorSeries("oracle")
	byEntity := panel.ByEntity()
	for _, e := range panel.Entities() {
		idx := byEntity[e]
		for k := 0; k+1 < len(idx); k++ {
			cur, next := panel.Row(idx[k]), panel.Row(idx[k+1])
			out.Set(cur.Date, e, next.Fields["close"]/cur.Fields["close"]-1+rng.NormFloat64()*0.005)
		}
	}
	return out, nil
}

// flat assigns every key the same value, so no correlation is defined.
type flat struct{}

func (flat) Name() string             { return "flat" }
func (flat) RequiredFields() []string { return []string{"close"} }
func (flat) Compute(_ context.Context, panel *contracts.Panel) (contracts.FactorSeries, error) {
	out := contracts.NewFactorSeries("flat")
	for i := 0; i < panel.Len(); i++ {
		r := panel.Row(i)
		out.Set(r.Date, r.Entity, 1)
	}
	return out, nil
}

type staticSource struct {
	panel *contracts.Panel
	calls int
}

func (s *staticSource) Load(context.Context, contracts.PanelQuery) (*contracts.Panel, error) {
	s.calls++
	return s.panel, nil
}

type countingObserver struct {
	admissions map[string]int
	hits       int
	misses     int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{admissions: make(map[string]int)}
}

func (o *countingObserver) ObserveAdmission(state string) { o.admissions[state]++ }
func (o *countingObserver) ObserveCache(hit bool) {
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

func testProfile() *evalconfig.Config {
	cfg := evalconfig.Default()
	cfg.Evaluation.Horizons = []int{1, 3}
	cfg.Evaluation.BucketCount = 5
	cfg.Admission = admission.Rule{
		MinAbsRankIC:          0.02,
		MinAbsRankICIR:        0.4,
		MaxTurnoverPerHorizon: 1.0,
		MinAbsMonotonicity:    0.1,
	}
	cfg.Candidates = []contracts.FactorSpec{
		{Name: "oracle", Provider: "oracle", Version: "v2", Tags: []string{"test"}},
		{Name: "flat", Provider: "flat"},
	}
	return &cfg
}

func newTestService(t *testing.T, cache *redis.Cache, obs Observer) (*Service, *MemoryStore) {
	t.Helper()
	profile := testProfile()

	registry, err := factors.NewRegistry(oracle{}, flat{})
	require.NoError(t, err)

	ev := evaluation.NewCommonEvaluator(profile.Evaluation.BucketCount, profile.Evaluation.MinCrossSection, 2, nil)
	engine := evaluation.NewEngine(map[string]evaluation.Evaluator{ev.Name(): ev}, nil, nil)

	store := NewMemoryStore()
	svc, err := NewService(Deps{
		Store:       store,
		Engine:      engine,
		Providers:   registry,
		Panels:      &staticSource{panel: walkPanel(t, 12, 40)},
		Profile:     profile,
		ProfileHash: "hash",
		Cache:       cache,
		Metrics:     obs,
	})
	require.NoError(t, err)
	return svc, store
}
