package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xb1002/FactorFrameworkV2/internal/admission"
	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/internal/evalconfig"
	"github.com/xb1002/FactorFrameworkV2/internal/evaluation"
	"github.com/xb1002/FactorFrameworkV2/internal/factors"
	"github.com/xb1002/FactorFrameworkV2/pkg/logger"
	"github.com/xb1002/FactorFrameworkV2/pkg/redis"
)

// ErrUnknownFactor is returned for names that are not profile candidates.
var ErrUnknownFactor = errors.New("unknown factor")

// Observer receives library telemetry. observability.Metrics implements it.
type Observer interface {
	ObserveAdmission(state string)
	ObserveCache(hit bool)
}

type nopObserver struct{}

func (nopObserver) ObserveAdmission(string) {}
func (nopObserver) ObserveCache(bool)       {}

// Deps wires a Service. Cache, Metrics and Logger are optional.
type Deps struct {
	Store       Store
	Engine      *evaluation.Engine
	Providers   *factors.Registry
	Panels      contracts.PanelSource
	Profile     *evalconfig.Config
	ProfileHash string
	Cache       *redis.Cache
	CacheTTL    time.Duration
	Metrics     Observer
	Logger      *logger.Logger
}

// Service evaluates profile candidates and maintains the factor library.
type Service struct {
	store       Store
	engine      *evaluation.Engine
	providers   *factors.Registry
	panels      contracts.PanelSource
	profile     *evalconfig.Config
	profileHash string
	cache       *redis.Cache
	cacheTTL    time.Duration
	metrics     Observer
	logger      *logger.Logger
}

// Outcome is the evaluation and admission decision of one candidate.
// Entry is set only when the candidate was saved to the library.
type Outcome struct {
	Factor   string
	Results  map[int]*contracts.EvalResult
	Decision admission.Decision
	Entry    *FactorEntry
}

// NewService creates a library service
func NewService(d Deps) (*Service, error) {
	switch {
	case d.Store == nil:
		return nil, fmt.Errorf("library service: store is required")
	case d.Engine == nil:
		return nil, fmt.Errorf("library service: engine is required")
	case d.Providers == nil:
		return nil, fmt.Errorf("library service: providers are required")
	case d.Profile == nil:
		return nil, fmt.Errorf("library service: profile is required")
	}

	s := &Service{
		store:       d.Store,
		engine:      d.Engine,
		providers:   d.Providers,
		panels:      d.Panels,
		profile:     d.Profile,
		profileHash: d.ProfileHash,
		cache:       d.Cache,
		cacheTTL:    d.CacheTTL,
		metrics:     d.Metrics,
		logger:      d.Logger,
	}
	if s.cache == nil {
		s.cache = redis.NewCache(nil, "factorlab")
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = redis.TTLDaily
	}
	if s.metrics == nil {
		s.metrics = nopObserver{}
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	s.logger = s.logger.WithComponent("library")
	return s, nil
}

// Profile returns the evaluation profile the service runs with
func (s *Service) Profile() *evalconfig.Config {
	return s.profile
}

// Candidates returns the names of the evaluable factors
func (s *Service) Candidates() []string {
	return s.providers.Names()
}

// Evaluators returns the engine's evaluator names
func (s *Service) Evaluators() []string {
	return s.engine.Evaluators()
}

// LoadPanel loads the panel selected by the profile's data section
func (s *Service) LoadPanel(ctx context.Context) (*contracts.Panel, error) {
	if s.panels == nil {
		return nil, fmt.Errorf("no panel source configured")
	}
	q, err := s.profile.Query()
	if err != nil {
		return nil, err
	}
	panel, err := s.panels.Load(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load panel: %w", err)
	}
	return panel, nil
}

// Compute runs the named provider over the panel
func (s *Service) Compute(ctx context.Context, name string, panel *contracts.Panel) (contracts.FactorSeries, error) {
	p, ok := s.providers.Get(name)
	if !ok {
		return contracts.FactorSeries{}, fmt.Errorf("%w: %s", ErrUnknownFactor, name)
	}
	fs, err := p.Compute(ctx, panel)
	if err != nil {
		return contracts.FactorSeries{}, fmt.Errorf("compute %s: %w", name, err)
	}
	return fs, nil
}

// Report evaluates a candidate on every requested horizon (profile horizons when none
// are given). Per-horizon results are cached by factor, version, profile hash and the
// panel's fingerprint, so a different panel never reuses another panel's results.
func (s *Service) Report(ctx context.Context, name string, panel *contracts.Panel, horizons []int) (map[int]*contracts.EvalResult, error) {
	spec, ok := s.profile.Candidate(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFactor, name)
	}
	if len(horizons) == 0 {
		horizons = s.profile.Evaluation.Horizons
	}
	if err := evaluation.ValidateHorizons(horizons); err != nil {
		return nil, err
	}

	results := make(map[int]*contracts.EvalResult, len(horizons))
	var missing []int
	for _, h := range horizons {
		var rec contracts.EvalRecord
		found, err := s.cache.Get(ctx, s.cacheKey(spec, panel, h), &rec)
		if err != nil {
			s.logger.WithError(err).Warn("report cache read failed")
		}
		if found {
			results[h] = rec.Result()
			continue
		}
		missing = append(missing, h)
	}
	s.metrics.ObserveCache(len(missing) == 0)
	if len(missing) == 0 {
		return results, nil
	}

	fs, err := s.Compute(ctx, name, panel)
	if err != nil {
		return nil, err
	}
	req := s.profile.Request(panel, fs)
	req.Horizons = missing

	fresh, evalErr := s.engine.EvaluateHorizons(ctx, req)
	if fresh == nil {
		return nil, evalErr
	}
	for h, res := range fresh {
		results[h] = res
		if err := s.cache.Set(ctx, s.cacheKey(spec, panel, h), res.Record(true), s.cacheTTL); err != nil {
			s.logger.WithError(err).Warn("report cache write failed")
		}
	}
	return results, evalErr
}

// Evaluate reports a candidate and decides admission without touching the library
func (s *Service) Evaluate(ctx context.Context, name string, panel *contracts.Panel, horizons []int) (*Outcome, error) {
	results, err := s.Report(ctx, name, panel, horizons)
	if err != nil {
		return nil, err
	}
	decision := admission.Decide(s.profile.Admission, results)
	s.metrics.ObserveAdmission(string(decision.State))

	s.logger.WithFields(map[string]interface{}{
		"factor":   name,
		"horizons": evaluation.SortedHorizons(results),
		"decision": decision.String(),
	}).Info("Factor evaluated")

	return &Outcome{Factor: name, Results: results, Decision: decision}, nil
}

// AutoAdmit evaluates a candidate and saves it only when it is admitted, together with
// the admitted horizon and that horizon's metrics.
func (s *Service) AutoAdmit(ctx context.Context, name string, panel *contracts.Panel) (*Outcome, error) {
	out, err := s.Evaluate(ctx, name, panel, nil)
	if err != nil {
		return nil, err
	}
	if !out.Decision.Admitted() {
		return out, nil
	}

	spec, _ := s.profile.Candidate(name)
	entry := NewEntry(spec, SourceAuto, out.Decision.Horizon, out.Results[out.Decision.Horizon].Metrics())
	if err := s.save(ctx, entry); err != nil {
		return nil, err
	}
	out.Entry = &entry
	return out, nil
}

// ManualAdmit saves a factor without running any checks
func (s *Service) ManualAdmit(ctx context.Context, spec contracts.FactorSpec) (*FactorEntry, error) {
	if spec.Name == "" || spec.Provider == "" {
		return nil, fmt.Errorf("manual admission needs a name and a provider")
	}
	entry := NewEntry(spec, SourceManual, 0, nil)
	if err := s.save(ctx, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Entries lists the library, served from cache when available
func (s *Service) Entries(ctx context.Context) ([]FactorEntry, error) {
	var entries []FactorEntry
	err := s.cache.GetOrSet(ctx, redis.LibraryReportKey(), &entries, redis.TTLShort, func() (interface{}, error) {
		return s.store.List(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list library: %w", err)
	}
	return entries, nil
}

// Entry returns one library entry; an empty version selects the newest
func (s *Service) Entry(ctx context.Context, name, version string) (*FactorEntry, error) {
	return s.store.Load(ctx, name, version)
}

// Remove deletes one library entry
func (s *Service) Remove(ctx context.Context, name, version string) error {
	if err := s.store.Delete(ctx, name, version); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) save(ctx context.Context, entry FactorEntry) error {
	if err := s.store.Save(ctx, entry); err != nil {
		return fmt.Errorf("save %s: %w", entry.Name, err)
	}
	s.invalidate(ctx)

	s.logger.WithFields(map[string]interface{}{
		"factor":  entry.Name,
		"version": entry.Version,
		"source":  entry.Source,
		"horizon": entry.AdmittedHorizon,
	}).Info("Factor saved to library")
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, redis.LibraryReportKey()); err != nil {
		s.logger.WithError(err).Warn("library cache invalidation failed")
	}
}

func (s *Service) cacheKey(spec contracts.FactorSpec, panel *contracts.Panel, horizon int) string {
	return redis.EvalResultKey(spec.Name, versionOf(spec), s.profileHash, panel.Fingerprint(), horizon)
}
