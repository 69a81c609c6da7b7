package evaluation

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/pkg/logger"
)

// CommonEvaluatorName is the registry name of the built-in evaluator.
const CommonEvaluatorName = "common_eval"

// HorizonInput is everything an evaluator needs for one horizon.
type HorizonInput struct {
	Panel      *contracts.Panel
	Factor     contracts.FactorSeries
	Horizon    int
	PriceField string
	Kind       ReturnKind
}

// Evaluator turns a factor and a panel into one EvalResult per horizon.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, in HorizonInput) (*contracts.EvalResult, error)
}

// CommonEvaluator computes rank IC, IC, quantile buckets, long-short, top-bucket
// turnover and monotonicity. Per-date work runs on up to Workers goroutines.
// With LongHigh false the factor is negated for bucketing and turnover, so the top
// bucket holds the lowest values; IC and rank IC always use the factor as given.
type CommonEvaluator struct {
	Buckets         int
	MinCrossSection int
	Workers         int
	LongHigh        bool

	log *logger.Logger
}

// NewCommonEvaluator fills zero settings with defaults (10 buckets, 3 entities, 1 worker)
// and goes long the highest factor values.
func NewCommonEvaluator(buckets, minCrossSection, workers int, log *logger.Logger) *CommonEvaluator {
	if buckets <= 0 {
		buckets = DefaultBuckets
	}
	if minCrossSection < MinCrossSection {
		minCrossSection = MinCrossSection
	}
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &CommonEvaluator{
		Buckets:         buckets,
		MinCrossSection: minCrossSection,
		Workers:         workers,
		LongHigh:        true,
		log:             log.WithComponent("evaluator"),
	}
}

// Name returns "common_eval".
func (e *CommonEvaluator) Name() string {
	return CommonEvaluatorName
}

// dayResult holds everything computed from one date's cross-section.
type dayResult struct {
	date time.Time

	rankIC, ic       float64
	hasRankIC, hasIC bool

	buckets *BucketDay
	mono    float64
	hasMono bool
}

// Evaluate runs the pipeline for a single horizon.
func (e *CommonEvaluator) Evaluate(ctx context.Context, in HorizonInput) (*contracts.EvalResult, error) {
	aligned, err := Align(in.Panel, in.Factor, []string{in.PriceField})
	if err != nil {
		return nil, err
	}
	fwd, err := ForwardReturns(in.Panel, in.PriceField, in.Horizon, in.Kind)
	if err != nil {
		return nil, err
	}

	sections := BuildCrossSections(aligned, fwd)
	days, err := e.computeDays(ctx, sections)
	if err != nil {
		return nil, err
	}

	res := e.assemble(in, days)
	e.log.WithFields(map[string]interface{}{
		"factor":  in.Factor.Name,
		"horizon": in.Horizon,
		"dates":   len(sections),
	}).Debug("horizon evaluated")
	return res, nil
}

// computeDays evaluates every date independently and stores results by index,
// so the output order is chronological whatever order the workers finish in.
func (e *CommonEvaluator) computeDays(ctx context.Context, sections []CrossSection) ([]dayResult, error) {
	days := make([]dayResult, len(sections))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Workers)
	for i := range sections {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			days[i] = e.computeDay(sections[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return days, nil
}

// computeDay never fails: a date that is too small for a statistic simply lacks it.
func (e *CommonEvaluator) computeDay(cs CrossSection) dayResult {
	day := dayResult{date: cs.Date}

	if cs.Len() >= e.MinCrossSection {
		day.rankIC, day.hasRankIC = Spearman(cs.Factor, cs.Returns)
		day.ic, day.hasIC = Pearson(cs.Factor, cs.Returns)
	}

	grouped := cs
	if !e.LongHigh {
		grouped = cs.Negated()
	}
	b, err := Buckets(grouped, e.Buckets)
	if err != nil {
		return day
	}
	day.buckets = &b
	day.mono, day.hasMono = Monotonicity(b.Means)
	return day
}

func (e *CommonEvaluator) assemble(in HorizonInput, days []dayResult) *contracts.EvalResult {
	var (
		rankIC, ic, ls, mono, turnover contracts.Series
		groupDates                     []time.Time
		prevTop                        []string
		prevIdx                        int
	)
	groupRets := make([][]float64, e.Buckets)

	// turnover pairs must be adjacent panel dates
	dateIndex := make(map[int64]int)
	for i, d := range in.Panel.Dates() {
		dateIndex[d.UnixNano()] = i
	}

	for _, d := range days {
		if d.hasRankIC {
			rankIC = append(rankIC, contracts.Point{Date: d.date, Value: d.rankIC})
		}
		if d.hasIC {
			ic = append(ic, contracts.Point{Date: d.date, Value: d.ic})
		}
		if d.buckets == nil {
			prevTop = nil
			continue
		}
		groupDates = append(groupDates, d.date)
		for b, m := range d.buckets.Means {
			groupRets[b] = append(groupRets[b], m)
		}
		ls = append(ls, contracts.Point{Date: d.date, Value: d.buckets.LongShort()})
		if d.hasMono {
			mono = append(mono, contracts.Point{Date: d.date, Value: d.mono})
		}
		idx := dateIndex[d.date.UnixNano()]
		if prevTop != nil && idx == prevIdx+1 {
			turnover = append(turnover, contracts.Point{Date: d.date, Value: Turnover(prevTop, d.buckets.Top)})
		}
		prevTop, prevIdx = d.buckets.Top, idx
	}

	rankSum := Summarize(rankIC.Values())
	icSum := Summarize(ic.Values())
	lsSum := Summarize(ls.Values())
	turnoverMean := meanOrNaN(turnover.Values())

	metrics := map[string]float64{
		"rank_ic_mean": rankSum.Mean,
		"rank_ic_std":  rankSum.Std,
		"rank_ic_ir":   rankSum.IR,
		"rank_ic_t":    rankSum.T,
		"ic_mean":      icSum.Mean,
		"ic_std":       icSum.Std,
		"ic_ir":        icSum.IR,
		"ic_t":         icSum.T,

		"group_ls_mean": lsSum.Mean,
		"group_ls_std":  lsSum.Std,
		"group_ls_ir":   lsSum.IR,
		"group_ls_t":    lsSum.T,

		"top_turnover_mean":        turnoverMean,
		"top_turnover_per_horizon": turnoverMean / float64(in.Horizon),
		"monotonic_mean":           meanOrNaN(mono.Values()),

		"rank_ic_dates":        float64(len(rankIC)),
		"group_dates":          float64(len(groupDates)),
		"excluded_ic_dates":    float64(len(days) - len(rankIC)),
		"excluded_group_dates": float64(len(days) - len(groupDates)),
	}

	artifacts := map[string]contracts.Series{
		"rank_ic_series":      rankIC,
		"ic_series":           ic,
		"ls_series":           ls,
		"ls_cumret":           compoundSeries(ls, in.Kind),
		"top_turnover_series": turnover,
		"monotonic_series":    mono,
	}
	for b, rets := range groupRets {
		daily := make(contracts.Series, len(rets))
		for i, r := range rets {
			daily[i] = contracts.Point{Date: groupDates[i], Value: r}
		}
		metrics[fmt.Sprintf("group_%d_mean_ret", b+1)] = meanOrNaN(rets)
		artifacts[fmt.Sprintf("group_ret_%d", b+1)] = daily
		artifacts[fmt.Sprintf("group_cumret_%d", b+1)] = compoundSeries(daily, in.Kind)
	}

	notes := map[string]string{}
	if len(rankIC) == 0 {
		notes["rank_ic"] = fmt.Sprintf("no date with at least %d comparable entities", e.MinCrossSection)
	}
	if len(groupDates) == 0 {
		notes["buckets"] = fmt.Sprintf("no date with at least %d entities for %d buckets", e.Buckets, e.Buckets)
	}

	return contracts.NewEvalResult(in.Factor.Name, e.Name(), in.Horizon, metrics, artifacts, notes)
}

func compoundSeries(s contracts.Series, kind ReturnKind) contracts.Series {
	cum := Compound(s.Values(), kind)
	out := make(contracts.Series, len(s))
	for i, p := range s {
		out[i] = contracts.Point{Date: p.Date, Value: cum[i]}
	}
	return out
}

func meanOrNaN(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return Summarize(values).Mean
}
