package evalconfig

import (
	"fmt"
	"time"

	"github.com/xb1002/FactorFrameworkV2/internal/admission"
	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/internal/evaluation"
)

// Config is an evaluation profile: what to evaluate, on which data, and how to admit.
type Config struct {
	Meta       Meta                   `yaml:"meta" json:"meta"`
	Evaluation Evaluation             `yaml:"evaluation" json:"evaluation"`
	Admission  admission.Rule         `yaml:"admission" json:"admission"`
	Data       Data                   `yaml:"data" json:"data"`
	Candidates []contracts.FactorSpec `yaml:"candidates" json:"candidates"`
	Schedule   Schedule               `yaml:"schedule" json:"schedule"`
}

// Meta identifies the profile
type Meta struct {
	ProfileID   string `yaml:"profile_id" json:"profile_id"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description" json:"description"`
}

// Evaluation holds the pipeline settings
type Evaluation struct {
	Horizons        []int  `yaml:"horizons" json:"horizons"`
	PriceField      string `yaml:"price_field" json:"price_field"`
	ReturnKind      string `yaml:"return_kind" json:"return_kind"` // simple | log
	BucketCount     int    `yaml:"bucket_count" json:"bucket_count"`
	Evaluator       string `yaml:"evaluator" json:"evaluator"`
	MinCrossSection int    `yaml:"min_cross_section" json:"min_cross_section"`
	LongHigh        bool   `yaml:"long_high" json:"long_high"` // false: top bucket = lowest values
}

// Data selects the panel source
type Data struct {
	Source   string   `yaml:"source" json:"source"` // csv | postgres
	CSVPath  string   `yaml:"csv_path" json:"csv_path"`
	From     string   `yaml:"from" json:"from"` // YYYY-MM-DD, optional
	To       string   `yaml:"to" json:"to"`     // YYYY-MM-DD, optional
	Entities []string `yaml:"entities" json:"entities"`
}

// Schedule configures the periodic admission run
type Schedule struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Cron    string `yaml:"cron" json:"cron"` // standard 5-field spec
}

const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"

	dateLayout = "2006-01-02"
)

// Default returns a profile with every optional setting filled in.
func Default() Config {
	return Config{
		Meta: Meta{ProfileID: "default", Version: "v1"},
		Evaluation: Evaluation{
			Horizons:        []int{1, 5, 10, 20},
			PriceField:      "close",
			ReturnKind:      string(evaluation.SimpleReturn),
			BucketCount:     evaluation.DefaultBuckets,
			Evaluator:       evaluation.CommonEvaluatorName,
			MinCrossSection: evaluation.MinCrossSection,
			LongHigh:        true,
		},
		Admission: admission.DefaultRule(),
		Data:      Data{Source: SourceCSV, CSVPath: "data/prices.csv"},
		Schedule:  Schedule{Cron: "30 18 * * 1-5"},
	}
}

// ReturnKind returns the parsed return kind. Validate guarantees it parses.
func (c *Config) ReturnKind() evaluation.ReturnKind {
	kind, err := evaluation.ParseReturnKind(c.Evaluation.ReturnKind)
	if err != nil {
		return evaluation.SimpleReturn
	}
	return kind
}

// Query builds the panel query from the data section.
func (c *Config) Query() (contracts.PanelQuery, error) {
	q := contracts.PanelQuery{Entities: c.Data.Entities}
	var err error
	if c.Data.From != "" {
		if q.From, err = time.Parse(dateLayout, c.Data.From); err != nil {
			return q, fmt.Errorf("data.from: %w", err)
		}
	}
	if c.Data.To != "" {
		if q.To, err = time.Parse(dateLayout, c.Data.To); err != nil {
			return q, fmt.Errorf("data.to: %w", err)
		}
	}
	return q, nil
}

// Request builds an engine request for a computed factor.
func (c *Config) Request(panel *contracts.Panel, factor contracts.FactorSeries) evaluation.Request {
	return evaluation.Request{
		Panel:      panel,
		Factor:     factor,
		Horizons:   append([]int(nil), c.Evaluation.Horizons...),
		PriceField: c.Evaluation.PriceField,
		Kind:       c.ReturnKind(),
		Evaluator:  c.Evaluation.Evaluator,
	}
}

// Candidate finds a candidate by name.
func (c *Config) Candidate(name string) (contracts.FactorSpec, bool) {
	for _, spec := range c.Candidates {
		if spec.Name == name {
			return spec, true
		}
	}
	return contracts.FactorSpec{}, false
}
