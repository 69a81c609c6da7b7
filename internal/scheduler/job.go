package scheduler

import (
	"context"
	"time"
)

// Job is a unit of scheduled work, in practice a batch admission run.
type Job interface {
	Name() string
	Run(ctx context.Context) error

	// Schedule returns a standard 5-field cron expression ("30 18 * * 1-5")
	// or a descriptor such as "@daily".
	Schedule() string
}

// Summarizer is implemented by jobs that count what their last run produced,
// e.g. admitted / rejected / error candidates of an admission batch.
type Summarizer interface {
	Summary() map[string]int
}

// JobResult is one run of a job, retries included.
type JobResult struct {
	JobName   string         `json:"job_name"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
	Duration  time.Duration  `json:"duration"`
	Attempts  int            `json:"attempts"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Summary   map[string]int `json:"summary,omitempty"`
}

const historyLimit = 100

// JobHistory keeps the last historyLimit runs of one job, oldest first.
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a run and drops the oldest beyond historyLimit
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if over := len(h.Results) - historyLimit; over > 0 {
		h.Results = h.Results[over:]
	}
}

// Latest returns up to n most recent runs
func (h *JobHistory) Latest(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n <= 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// Failures counts runs that failed after all retries
func (h *JobHistory) Failures() int {
	n := 0
	for _, r := range h.Results {
		if !r.Success {
			n++
		}
	}
	return n
}

// SuccessRate is the share of successful runs, 0 without history
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0
	}
	return float64(len(h.Results)-h.Failures()) / float64(len(h.Results))
}

// Totals adds up the summaries of successful runs, e.g. how many candidates the
// retained admission runs admitted in total.
func (h *JobHistory) Totals() map[string]int {
	out := make(map[string]int)
	for _, r := range h.Results {
		if !r.Success {
			continue
		}
		for k, v := range r.Summary {
			out[k] += v
		}
	}
	return out
}
