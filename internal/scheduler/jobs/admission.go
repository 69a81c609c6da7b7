package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/xb1002/FactorFrameworkV2/internal/batch"
	"github.com/xb1002/FactorFrameworkV2/pkg/logger"
)

// BatchRunner is satisfied by *batch.Runner
type BatchRunner interface {
	RunAll(ctx context.Context) (*batch.Report, error)
}

// AdmissionJob re-evaluates every profile candidate and auto-admits the passing ones
type AdmissionJob struct {
	runner   BatchRunner
	schedule string
	logger   *logger.Logger

	mu   sync.Mutex
	last map[string]int
}

// NewAdmissionJob creates the factor admission job
func NewAdmissionJob(runner BatchRunner, schedule string, log *logger.Logger) *AdmissionJob {
	if log == nil {
		log = logger.NewNop()
	}
	return &AdmissionJob{
		runner:   runner,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *AdmissionJob) Name() string {
	return "factor_admission"
}

// Schedule returns the cron schedule from the evaluation profile
func (j *AdmissionJob) Schedule() string {
	return j.schedule
}

// Run executes one batch. It fails when the batch is aborted or when every
// candidate errored, so the scheduler retries it.
func (j *AdmissionJob) Run(ctx context.Context) error {
	report, err := j.runner.RunAll(ctx)
	if err != nil {
		return fmt.Errorf("admission batch: %w", err)
	}

	counts := map[string]int{
		batch.OutcomeAdmitted: report.Count(batch.OutcomeAdmitted),
		batch.OutcomeRejected: report.Count(batch.OutcomeRejected),
		batch.OutcomeError:    report.Count(batch.OutcomeError),
	}
	j.mu.Lock()
	j.last = counts
	j.mu.Unlock()

	errs := counts[batch.OutcomeError]
	j.logger.WithFields(map[string]interface{}{
		"run_id":   report.RunID,
		"admitted": counts[batch.OutcomeAdmitted],
		"rejected": counts[batch.OutcomeRejected],
		"errors":   errs,
	}).Info("Scheduled admission finished")

	if len(report.Items) > 0 && errs == len(report.Items) {
		return fmt.Errorf("admission batch %s: all %d candidates failed", report.RunID, errs)
	}
	return nil
}

// Summary returns the outcome counts of the last completed batch
func (j *AdmissionJob) Summary() map[string]int {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make(map[string]int, len(j.last))
	for k, v := range j.last {
		out[k] = v
	}
	return out
}
