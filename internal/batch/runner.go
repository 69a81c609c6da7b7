package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/xb1002/FactorFrameworkV2/internal/admission"
	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/internal/library"
	"github.com/xb1002/FactorFrameworkV2/pkg/logger"
)

// Admitter is the part of library.Service the runner needs.
type Admitter interface {
	Candidates() []string
	LoadPanel(ctx context.Context) (*contracts.Panel, error)
	AutoAdmit(ctx context.Context, name string, panel *contracts.Panel) (*library.Outcome, error)
}

// Observer counts batch items by outcome. observability.Metrics implements it.
type Observer interface {
	ObserveBatchItem(outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveBatchItem(string) {}

// Item outcomes
const (
	OutcomeAdmitted = "admitted"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
)

// Item is the result of one candidate. Err is set when evaluation failed; Skipped when
// the run was cancelled before the candidate started.
type Item struct {
	Factor   string             `json:"factor"`
	Decision admission.Decision `json:"decision"`
	Skipped  bool               `json:"skipped,omitempty"`
	Err      error              `json:"-"`
	Error    string             `json:"error,omitempty"`
}

// Outcome classifies the item
func (i Item) Outcome() string {
	switch {
	case i.Skipped:
		return OutcomeSkipped
	case i.Err != nil:
		return OutcomeError
	case i.Decision.Admitted():
		return OutcomeAdmitted
	default:
		return OutcomeRejected
	}
}

// Report summarizes one batch run. Items follow the candidate order.
type Report struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Items      []Item        `json:"items"`
	Duration   time.Duration `json:"duration"`
}

// Count returns the number of items with the given outcome
func (r *Report) Count(outcome string) int {
	n := 0
	for _, it := range r.Items {
		if it.Outcome() == outcome {
			n++
		}
	}
	return n
}

// Runner evaluates candidates on a bounded worker pool.
type Runner struct {
	admitter Admitter
	workers  int
	metrics  Observer
	logger   *logger.Logger
}

// NewRunner creates a batch runner; workers < 1 means one worker.
func NewRunner(admitter Admitter, workers int, metrics Observer, log *logger.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if metrics == nil {
		metrics = nopObserver{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{
		admitter: admitter,
		workers:  workers,
		metrics:  metrics,
		logger:   log.WithComponent("batch"),
	}
}

// RunAll loads the profile panel and runs every candidate
func (r *Runner) RunAll(ctx context.Context) (*Report, error) {
	panel, err := r.admitter.LoadPanel(ctx)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, panel, r.admitter.Candidates())
}

// Run evaluates the named candidates against one panel. A failing candidate is recorded
// in its item and does not stop the others; only context cancellation aborts the run.
func (r *Runner) Run(ctx context.Context, panel *contracts.Panel, names []string) (*Report, error) {
	report := &Report{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Items:     make([]Item, len(names)),
	}
	for i, name := range names {
		report.Items[i] = Item{Factor: name, Skipped: true}
	}
	log := r.logger.WithField("run_id", report.RunID)
	log.WithFields(map[string]interface{}{
		"candidates": len(names),
		"workers":    r.workers,
	}).Info("Batch run started")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item := Item{Factor: name}
			out, err := r.admitter.AutoAdmit(gctx, name, panel)
			if err != nil {
				item.Err = err
				item.Error = err.Error()
				if gctx.Err() != nil {
					report.Items[i] = item
					return gctx.Err()
				}
				log.WithError(err).WithField("factor", name).Warn("Candidate failed")
			} else {
				item.Decision = out.Decision
			}
			report.Items[i] = item
			r.metrics.ObserveBatchItem(item.Outcome())
			return nil
		})
	}

	err := g.Wait()
	report.FinishedAt = time.Now().UTC()
	report.Duration = report.FinishedAt.Sub(report.StartedAt)

	if err != nil {
		log.WithError(err).WithField("skipped", report.Count(OutcomeSkipped)).Warn("Batch run cancelled")
		return report, fmt.Errorf("batch %s: %w", report.RunID, err)
	}

	log.WithFields(map[string]interface{}{
		"admitted": report.Count(OutcomeAdmitted),
		"rejected": report.Count(OutcomeRejected),
		"errors":   report.Count(OutcomeError),
		"duration": report.Duration.String(),
	}).Info("Batch run finished")
	return report, nil
}
