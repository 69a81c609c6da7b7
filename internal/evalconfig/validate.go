package evalconfig

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/xb1002/FactorFrameworkV2/internal/evaluation"
)

// ValidationError is a fatal profile error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning is a non-fatal recommendation
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.ProfileID == "" {
		return ValidationError{"meta.profile_id", "required"}
	}

	// === Evaluation ===
	ev := cfg.Evaluation
	if err := evaluation.ValidateHorizons(ev.Horizons); err != nil {
		return ValidationError{"evaluation.horizons", err.Error()}
	}
	if ev.PriceField == "" {
		return ValidationError{"evaluation.price_field", "required"}
	}
	if _, err := evaluation.ParseReturnKind(ev.ReturnKind); err != nil {
		return ValidationError{"evaluation.return_kind", err.Error()}
	}
	if ev.BucketCount < 2 {
		return ValidationError{"evaluation.bucket_count", "must be >= 2"}
	}
	if ev.MinCrossSection < evaluation.MinCrossSection {
		return ValidationError{"evaluation.min_cross_section", fmt.Sprintf("must be >= %d", evaluation.MinCrossSection)}
	}
	if ev.Evaluator == "" {
		return ValidationError{"evaluation.evaluator", "required"}
	}

	// === Admission ===
	if err := cfg.Admission.Validate(); err != nil {
		return ValidationError{"admission", err.Error()}
	}

	// === Data ===
	switch cfg.Data.Source {
	case SourceCSV:
		if cfg.Data.CSVPath == "" {
			return ValidationError{"data.csv_path", "required when source is csv"}
		}
	case SourcePostgres:
	default:
		return ValidationError{"data.source", "must be csv or postgres"}
	}
	q, err := cfg.Query()
	if err != nil {
		return ValidationError{"data", err.Error()}
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return ValidationError{"data", "from must not be after to"}
	}

	// === Candidates ===
	seen := make(map[string]struct{}, len(cfg.Candidates))
	for i, c := range cfg.Candidates {
		field := fmt.Sprintf("candidates[%d]", i)
		if c.Name == "" {
			return ValidationError{field + ".name", "required"}
		}
		if c.Provider == "" {
			return ValidationError{field + ".provider", "required"}
		}
		if _, dup := seen[c.Name]; dup {
			return ValidationError{field + ".name", fmt.Sprintf("duplicate candidate %q", c.Name)}
		}
		seen[c.Name] = struct{}{}
	}

	// === Schedule ===
	if cfg.Schedule.Enabled {
		if _, err := cron.ParseStandard(cfg.Schedule.Cron); err != nil {
			return ValidationError{"schedule.cron", err.Error()}
		}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Evaluation.BucketCount > 20 {
		warnings = append(warnings, Warning{
			Code:    "MANY_BUCKETS",
			Message: "bucket_count > 20: most dates need a very wide cross-section",
		})
	}

	if cfg.Admission.MaxTurnoverPerHorizon >= 1 {
		warnings = append(warnings, Warning{
			Code:    "TURNOVER_UNBOUNDED",
			Message: "max_turnover_per_horizon >= 1 never rejects on turnover",
		})
	}

	if len(cfg.Candidates) == 0 {
		warnings = append(warnings, Warning{
			Code:    "NO_CANDIDATES",
			Message: "profile lists no candidates; batch runs will be empty",
		})
	}

	return warnings
}
