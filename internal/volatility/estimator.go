package volatility

import (
	"context"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/entity"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/infrastructure"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/returns"
)

// Estimator computes sigma_E for every ticker-year of a panel
type Estimator struct {
	policy  Policy
	meta    *entity.Metadata
	workers int
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
}

// Option configures an Estimator
type Option func(*Estimator)

// WithWorkers bounds the number of tickers estimated concurrently
func WithWorkers(n int) Option {
	return func(e *Estimator) { e.workers = n }
}

// WithLogger sets the estimator logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Estimator) { e.logger = logger }
}

// WithMetrics records the chosen methods on m
func WithMetrics(m *infrastructure.PipelineMetrics) Option {
	return func(e *Estimator) { e.metrics = m }
}

// NewEstimator creates an estimator. meta may be nil, in which case every
// row is bucketed small.
func NewEstimator(policy Policy, meta *entity.Metadata, opts ...Option) *Estimator {
	e := &Estimator{policy: policy, meta: meta, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers <= 0 {
		e.workers = runtime.NumCPU()
	}
	return e
}

// EstimateAll fans out one task per ticker and returns one estimate per
// (ticker, year) sorted by ticker then year. Tickers are independent so the
// only shared state is the result slot of each task.
func (e *Estimator) EstimateAll(ctx context.Context, panel *returns.Panel, years []int) ([]Estimate, error) {
	tickers := panel.Tickers()
	results := make([][]Estimate, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, ticker := range tickers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			series := panel.Series(ticker)
			out := make([]Estimate, 0, len(years))
			for _, year := range years {
				est := e.policy.Estimate(ticker, series, year)
				est.SizeBucket, _ = e.meta.Size(ticker, year)
				out = append(out, est)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Estimate
	missingSize := 0
	counts := make(map[MethodKind]int)
	for _, rows := range results {
		for _, est := range rows {
			if _, ok := e.meta.Size(est.Ticker, est.Year); !ok {
				missingSize++
			}
			counts[est.Method.Kind()]++
			e.metrics.RecordMethod(ctx, est.Method.Kind().String())
			all = append(all, est)
		}
	}
	sortEstimates(all)

	e.logger.InfoContext(ctx, "Volatility estimation complete",
		"variant", e.policy.Frequency.String(),
		"tickers", len(tickers),
		"estimates", len(all),
		"primary", counts[KindPrimaryWindow],
		"ewma", counts[KindEwmaFallback],
		"partial", counts[KindPartialWindow],
		"peer_median", counts[KindPeerMedian],
		"no_data", counts[KindNone],
		"missing_size", missingSize)
	return all, nil
}

// TargetYears returns the years to estimate for a panel: from the first
// observed year plus one through the last observed year plus one, narrowed
// to [start, end] when those are non-zero
func TargetYears(panel *returns.Panel, start, end int) []int {
	observed := panel.Years()
	if len(observed) == 0 {
		return nil
	}
	lo, hi := observed[0]+1, observed[len(observed)-1]+1
	if start > 0 && start > lo {
		lo = start
	}
	if end > 0 && end < hi {
		hi = end
	}
	var years []int
	for y := lo; y <= hi; y++ {
		years = append(years, y)
	}
	return years
}

func sortEstimates(rows []Estimate) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Ticker != rows[j].Ticker {
			return rows[i].Ticker < rows[j].Ticker
		}
		return rows[i].Year < rows[j].Year
	})
}
