package evalconfig

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/internal/evaluation"
)

func TestLoad_ShippedProfile(t *testing.T) {
	path := "../../config/evaluation.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, data, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	assert.Equal(t, "daily_equity", cfg.Meta.ProfileID)
	assert.Equal(t, []int{1, 5, 10, 20}, cfg.Evaluation.Horizons)
	assert.Equal(t, evaluation.SimpleReturn, cfg.ReturnKind())
	assert.Len(t, cfg.Candidates, 4)

	spec, ok := cfg.Candidate("mom_20")
	require.True(t, ok)
	assert.Equal(t, "momentum", spec.Provider)
	assert.Equal(t, 20.0, spec.Params["window"])

	q, err := cfg.Query()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), q.From)
	assert.True(t, q.To.IsZero())
}

func TestParse_DefaultsFillGaps(t *testing.T) {
	cfg, err := Parse([]byte(`
meta:
  profile_id: minimal
admission:
  min_abs_rank_ic: 0.05
data:
  source: postgres
`))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 5, 10, 20}, cfg.Evaluation.Horizons)
	assert.Equal(t, "close", cfg.Evaluation.PriceField)
	assert.Equal(t, 10, cfg.Evaluation.BucketCount)
	assert.Equal(t, 0.05, cfg.Admission.MinAbsRankIC)
	assert.Equal(t, 0.4, cfg.Admission.MinAbsRankICIR, "unset thresholds keep defaults")
	assert.Equal(t, SourcePostgres, cfg.Data.Source)
	assert.True(t, cfg.Evaluation.LongHigh, "long the high values unless told otherwise")
}

func TestParse_ShortHighProfile(t *testing.T) {
	cfg, err := Parse([]byte(`
meta:
  profile_id: low_vol
evaluation:
  bucket_count: 2
  long_high: false
`))
	require.NoError(t, err)
	assert.False(t, cfg.Evaluation.LongHigh)
	assert.Equal(t, 2, cfg.Evaluation.BucketCount)
}

func TestParse_UnknownFieldFails(t *testing.T) {
	_, err := Parse([]byte(`
meta:
  profile_id: typo
evaluation:
  horizon: [1, 5]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "horizon")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"missing profile id", func(c *Config) { c.Meta.ProfileID = "" }, "meta.profile_id"},
		{"duplicate horizons", func(c *Config) { c.Evaluation.Horizons = []int{5, 5} }, "evaluation.horizons"},
		{"empty horizons", func(c *Config) { c.Evaluation.Horizons = nil }, "evaluation.horizons"},
		{"bad return kind", func(c *Config) { c.Evaluation.ReturnKind = "pct" }, "evaluation.return_kind"},
		{"one bucket", func(c *Config) { c.Evaluation.BucketCount = 1 }, "evaluation.bucket_count"},
		{"tiny cross-section", func(c *Config) { c.Evaluation.MinCrossSection = 2 }, "evaluation.min_cross_section"},
		{"negative threshold", func(c *Config) { c.Admission.MinAbsMonotonicity = -0.1 }, "admission"},
		{"csv without path", func(c *Config) { c.Data.CSVPath = "" }, "data.csv_path"},
		{"unknown source", func(c *Config) { c.Data.Source = "s3" }, "data.source"},
		{"bad date", func(c *Config) { c.Data.From = "01/02/2020" }, "data"},
		{"inverted range", func(c *Config) { c.Data.From, c.Data.To = "2021-01-01", "2020-01-01" }, "data"},
		{"unnamed candidate", func(c *Config) { c.Candidates = append(c.Candidates, c.Candidates[0]); c.Candidates[1].Name = "" }, "candidates[1].name"},
		{"duplicate candidate", func(c *Config) { c.Candidates = append(c.Candidates, c.Candidates[0]) }, "candidates[1].name"},
		{"bad cron", func(c *Config) { c.Schedule = Schedule{Enabled: true, Cron: "every day"} }, "schedule.cron"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Candidates = append(cfg.Candidates, sampleCandidate())
			tt.mutate(&cfg)

			err := Validate(&cfg)
			var verr ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, Validate(&cfg))
	assert.NotEmpty(t, Warn(&cfg), "no candidates is worth a warning")
}

func TestHash(t *testing.T) {
	a := Default()
	a.Candidates = append(a.Candidates, sampleCandidate())
	b := Default()
	b.Candidates = append(b.Candidates, sampleCandidate())

	ha, err := Hash(&a)
	require.NoError(t, err)
	hb, err := Hash(&b)
	require.NoError(t, err)
	assert.Len(t, ha, 64)
	assert.Equal(t, ha, hb)

	b.Admission.MinAbsRankIC = 0.03
	hc, _ := Hash(&b)
	assert.NotEqual(t, ha, hc)
}

func TestRequest(t *testing.T) {
	cfg := Default()
	cfg.Evaluation.ReturnKind = "log"

	req := cfg.Request(nil, contracts.NewFactorSeries("f"))
	assert.Equal(t, evaluation.LogReturn, req.Kind)
	assert.Equal(t, []int{1, 5, 10, 20}, req.Horizons)

	req.Horizons[0] = 99
	assert.Equal(t, 1, cfg.Evaluation.Horizons[0], "request owns its horizon slice")
}

func sampleCandidate() contracts.FactorSpec {
	return contracts.FactorSpec{Name: "mom_20", Provider: "momentum", Version: "v1", Params: map[string]float64{"window": 20}}
}
