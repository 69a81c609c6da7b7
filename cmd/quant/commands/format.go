package commands

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/xb1002/FactorFrameworkV2/internal/admission"
	"github.com/xb1002/FactorFrameworkV2/internal/batch"
	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/internal/evaluation"
	"github.com/xb1002/FactorFrameworkV2/internal/library"
)

// Metrics shown in the per-horizon report, in display order.
var reportMetrics = []string{
	"rank_ic_mean",
	"rank_ic_ir",
	"rank_ic_t",
	"ic_mean",
	"group_ls_mean",
	"group_ls_ir",
	"top_turnover_mean",
	"top_turnover_per_horizon",
	"monotonic_mean",
	"rank_ic_dates",
	"excluded_ic_dates",
}

// printHeader prints a section header
func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("═", 60))
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, strings.Repeat("─", 60))
}

// newTable returns a light-style table writer that keeps header case
func newTable(w io.Writer) table.Writer {
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(style)
	return t
}

// formatMetric renders undefined values as "n/a"
func formatMetric(v float64, ok bool) string {
	if !ok || math.IsNaN(v) {
		return "n/a"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e9 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.4f", v)
}

// renderReport prints one row per metric and one column per horizon
func renderReport(w io.Writer, results map[int]*contracts.EvalResult) {
	horizons := evaluation.SortedHorizons(results)

	t := newTable(w)

	header := table.Row{"metric"}
	for _, h := range horizons {
		header = append(header, fmt.Sprintf("h=%d", h))
	}
	t.AppendHeader(header)

	for _, name := range reportMetrics {
		row := table.Row{name}
		for _, h := range horizons {
			v, ok := results[h].Metric(name)
			row = append(row, formatMetric(v, ok))
		}
		t.AppendRow(row)
	}
	t.Render()

	for _, h := range horizons {
		for key, note := range results[h].Notes() {
			fmt.Fprintf(w, "  note h=%d %s: %s\n", h, key, note)
		}
	}
}

// renderDecision prints the admission checklist
func renderDecision(w io.Writer, d admission.Decision) {
	t := newTable(w)
	t.AppendHeader(table.Row{"horizon", "criterion", "actual", "op", "threshold", "pass"})
	for _, check := range d.Checks {
		for _, c := range check.Criteria {
			t.AppendRow(table.Row{check.Horizon, c.Name, formatMetric(c.Actual, true), c.Op, c.Threshold, mark(c.Pass)})
		}
		t.AppendSeparator()
	}
	t.Render()
	fmt.Fprintf(w, "\nDecision: %s\n", d)
}

// renderBatch prints one row per candidate
func renderBatch(w io.Writer, r *batch.Report) {
	fmt.Fprintf(w, "Run %s started %s (%s)\n", r.RunID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Duration.Round(time.Millisecond))

	t := newTable(w)
	t.AppendHeader(table.Row{"factor", "outcome", "decision", "error"})
	for _, it := range r.Items {
		t.AppendRow(table.Row{it.Factor, it.Outcome(), it.Decision.String(), it.Error})
	}
	errs := fmt.Sprintf("%d errors", r.Count(batch.OutcomeError))
	if n := r.Count(batch.OutcomeSkipped); n > 0 {
		errs += fmt.Sprintf(", %d skipped", n)
	}
	t.AppendFooter(table.Row{
		"total",
		fmt.Sprintf("%d admitted", r.Count(batch.OutcomeAdmitted)),
		fmt.Sprintf("%d rejected", r.Count(batch.OutcomeRejected)),
		errs,
	})
	t.Render()
}

// renderEntries prints the library listing
func renderEntries(w io.Writer, entries []library.FactorEntry) {
	t := newTable(w)
	t.AppendHeader(table.Row{"name", "version", "provider", "source", "horizon", "rank_ic_mean", "created"})
	for _, e := range entries {
		ic, ok := e.Metrics["rank_ic_mean"]
		t.AppendRow(table.Row{
			e.Name, e.Version, e.Provider, e.Source,
			e.AdmittedHorizon, formatMetric(ic, ok), e.CreatedAt.Format("2006-01-02"),
		})
	}
	t.Render()
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}
