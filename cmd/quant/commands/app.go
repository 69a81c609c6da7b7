package commands

import (
	"context"
	"fmt"

	"github.com/xb1002/FactorFrameworkV2/internal/batch"
	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/internal/data"
	"github.com/xb1002/FactorFrameworkV2/internal/evalconfig"
	"github.com/xb1002/FactorFrameworkV2/internal/evaluation"
	"github.com/xb1002/FactorFrameworkV2/internal/factors"
	"github.com/xb1002/FactorFrameworkV2/internal/library"
	"github.com/xb1002/FactorFrameworkV2/internal/observability"
	"github.com/xb1002/FactorFrameworkV2/pkg/config"
	"github.com/xb1002/FactorFrameworkV2/pkg/database"
	"github.com/xb1002/FactorFrameworkV2/pkg/logger"
	"github.com/xb1002/FactorFrameworkV2/pkg/redis"
)

// app holds the wired components shared by the commands
type app struct {
	cfg         *config.Config
	log         *logger.Logger
	profile     *evalconfig.Config
	profileHash string
	db          *database.DB
	redis       *redis.Client
	metrics     *observability.Metrics
	service     *library.Service
	runner      *batch.Runner
}

// newApp loads configuration and wires every component.
// Postgres and Redis are used only when configured.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if profilePath != "" {
		cfg.Eval.ProfilePath = profilePath
	}

	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log, metrics: observability.NewMetrics()}

	a.profile, _, err = evalconfig.Load(cfg.Eval.ProfilePath)
	if err != nil {
		return nil, err
	}
	for _, w := range evalconfig.Warn(a.profile) {
		log.WithField("code", w.Code).Warn(w.Message)
	}
	a.profileHash, err = evalconfig.Hash(a.profile)
	if err != nil {
		return nil, err
	}

	if cfg.Database.Enabled() {
		a.db, err = database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := a.db.Exec(ctx, library.Schema...); err != nil {
			a.close()
			return nil, err
		}
	}

	a.redis, err = redis.New(ctx, cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	providers, err := factors.NewFactory(log).BuildAll(a.profile.Candidates)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("build candidates: %w", err)
	}

	panels, err := a.panelSource()
	if err != nil {
		a.close()
		return nil, err
	}

	var store library.Store = library.NewMemoryStore()
	if a.db != nil {
		store = library.NewPostgresStore(a.db.Pool)
	}

	ev := evaluation.NewCommonEvaluator(
		a.profile.Evaluation.BucketCount,
		a.profile.Evaluation.MinCrossSection,
		cfg.Eval.Workers,
		log,
	)
	ev.LongHigh = a.profile.Evaluation.LongHigh
	engine := evaluation.NewEngine(map[string]evaluation.Evaluator{ev.Name(): ev}, log, a.metrics)

	a.service, err = library.NewService(library.Deps{
		Store:       store,
		Engine:      engine,
		Providers:   providers,
		Panels:      panels,
		Profile:     a.profile,
		ProfileHash: a.profileHash,
		Cache:       redis.NewCache(a.redis, "factorlab"),
		CacheTTL:    cfg.Eval.CacheTTL,
		Metrics:     a.metrics,
		Logger:      log,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	a.runner = batch.NewRunner(a.service, cfg.Eval.Workers, a.metrics, log)

	log.WithFields(map[string]interface{}{
		"profile":    a.profile.Meta.ProfileID,
		"hash":       a.profileHash[:12],
		"candidates": providers.Len(),
		"store":      fmt.Sprintf("%T", store),
		"cache":      a.redis.Enabled(),
	}).Debug("Application wired")

	return a, nil
}

func (a *app) panelSource() (contracts.PanelSource, error) {
	switch a.profile.Data.Source {
	case evalconfig.SourcePostgres:
		if a.db == nil {
			return nil, fmt.Errorf("data.source is postgres but DATABASE_URL is not set")
		}
		return data.NewPriceRepository(a.db.Pool), nil
	default:
		return data.NewCSVSource(a.profile.Data.CSVPath, a.log), nil
	}
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
