package evaluation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/pkg/logger"
)

// Recorder receives evaluation telemetry. observability.Metrics implements it.
type Recorder interface {
	ObserveEvaluation(evaluator, status string, elapsed time.Duration)
	AddExcludedDates(stage string, n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveEvaluation(string, string, time.Duration) {}
func (nopRecorder) AddExcludedDates(string, int)                    {}

// Request describes one multi-horizon evaluation.
type Request struct {
	Panel      *contracts.Panel
	Factor     contracts.FactorSeries
	Horizons   []int
	PriceField string     // default "close"
	Kind       ReturnKind // default simple
	Evaluator  string     // default common_eval
}

func (r Request) withDefaults() Request {
	if r.PriceField == "" {
		r.PriceField = "close"
	}
	if r.Kind == "" {
		r.Kind = SimpleReturn
	}
	if r.Evaluator == "" {
		r.Evaluator = CommonEvaluatorName
	}
	return r
}

// Engine runs evaluators across horizons. The evaluator map is fixed at construction.
type Engine struct {
	evaluators map[string]Evaluator
	log        *logger.Logger
	metrics    Recorder
}

// NewEngine copies the evaluator map; nil log and metrics are allowed.
func NewEngine(evaluators map[string]Evaluator, log *logger.Logger, metrics Recorder) *Engine {
	own := make(map[string]Evaluator, len(evaluators))
	for name, ev := range evaluators {
		own[name] = ev
	}
	if log == nil {
		log = logger.NewNop()
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Engine{
		evaluators: own,
		log:        log.WithComponent("engine"),
		metrics:    metrics,
	}
}

// Evaluators returns the registered evaluator names, sorted.
func (e *Engine) Evaluators() []string {
	names := make([]string, 0, len(e.evaluators))
	for name := range e.evaluators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateHorizons rejects empty lists and non-positive or duplicate horizons.
func ValidateHorizons(horizons []int) error {
	if len(horizons) == 0 {
		return &contracts.InvalidHorizonError{Horizons: horizons, Reason: "no horizons requested"}
	}
	seen := make(map[int]struct{}, len(horizons))
	for _, h := range horizons {
		if h <= 0 {
			return &contracts.InvalidHorizonError{Horizons: horizons, Reason: fmt.Sprintf("horizon %d is not positive", h)}
		}
		if _, dup := seen[h]; dup {
			return &contracts.InvalidHorizonError{Horizons: horizons, Reason: fmt.Sprintf("horizon %d is repeated", h)}
		}
		seen[h] = struct{}{}
	}
	return nil
}

// SortedHorizons returns the keys of a result map in ascending order.
func SortedHorizons(results map[int]*contracts.EvalResult) []int {
	out := make([]int, 0, len(results))
	for h := range results {
		out = append(out, h)
	}
	sort.Ints(out)
	return out
}

// EvaluateHorizons evaluates every horizon independently and concurrently.
// Schema and horizon errors fail the whole request with no results. When ctx is
// cancelled, horizons not yet started are skipped and the finished ones are returned
// together with the context error.
func (e *Engine) EvaluateHorizons(ctx context.Context, req Request) (map[int]*contracts.EvalResult, error) {
	req = req.withDefaults()
	if err := ValidateHorizons(req.Horizons); err != nil {
		return nil, err
	}
	ev, err := e.evaluator(req.Evaluator)
	if err != nil {
		return nil, err
	}
	if req.Panel == nil {
		return nil, fmt.Errorf("evaluate %s: nil panel", req.Factor.Name)
	}
	if !req.Panel.HasField(req.PriceField) {
		return nil, &contracts.SchemaError{Field: req.PriceField}
	}

	start := time.Now()
	var (
		mu      sync.Mutex
		results = make(map[int]*contracts.EvalResult, len(req.Horizons))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, h := range req.Horizons {
		h := h
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.run(gctx, ev, req, h)
			if err != nil {
				return fmt.Errorf("horizon %d: %w", h, err)
			}
			mu.Lock()
			results[h] = res
			mu.Unlock()
			return nil
		})
	}

	err = g.Wait()
	log := e.log.WithFields(map[string]interface{}{
		"factor":    req.Factor.Name,
		"evaluator": ev.Name(),
		"horizons":  req.Horizons,
		"done":      len(results),
		"elapsed":   time.Since(start).String(),
	})
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			log.WithError(err).Warn("evaluation cancelled, returning finished horizons")
			return results, err
		}
		log.WithError(err).Error("evaluation failed")
		return nil, err
	}
	log.Info("evaluation finished")
	return results, nil
}

// EvaluateOne evaluates a single horizon.
func (e *Engine) EvaluateOne(ctx context.Context, req Request, horizon int) (*contracts.EvalResult, error) {
	req.Horizons = []int{horizon}
	results, err := e.EvaluateHorizons(ctx, req)
	if err != nil {
		return nil, err
	}
	return results[horizon], nil
}

func (e *Engine) evaluator(name string) (Evaluator, error) {
	ev, ok := e.evaluators[name]
	if !ok {
		return nil, fmt.Errorf("unknown evaluator %q (registered: %v)", name, e.Evaluators())
	}
	return ev, nil
}

func (e *Engine) run(ctx context.Context, ev Evaluator, req Request, horizon int) (*contracts.EvalResult, error) {
	start := time.Now()
	res, err := ev.Evaluate(ctx, HorizonInput{
		Panel:      req.Panel,
		Factor:     req.Factor,
		Horizon:    horizon,
		PriceField: req.PriceField,
		Kind:       req.Kind,
	})
	if err != nil {
		e.metrics.ObserveEvaluation(ev.Name(), "error", time.Since(start))
		return nil, err
	}
	e.metrics.ObserveEvaluation(ev.Name(), "ok", time.Since(start))
	if n, ok := res.Metric("excluded_ic_dates"); ok {
		e.metrics.AddExcludedDates("rank_ic", int(n))
	}
	if n, ok := res.Metric("excluded_group_dates"); ok {
		e.metrics.AddExcludedDates("buckets", int(n))
	}
	return res, nil
}
