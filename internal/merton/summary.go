package merton

import (
	"math"
	"sort"
	"strconv"

	apperrors "github.com/GuillaumeBld/Bank-Risk-Analytics/internal/errors"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/stats"
)

// QuantileRow describes the distribution of one metric in one period
type QuantileRow struct {
	Period string // year or "overall"
	Metric string
	N      int
	Min    float64
	P10    float64
	P25    float64
	Median float64
	P75    float64
	P90    float64
	Max    float64
}

// Summary holds the convergence diagnostics and DD/PD distribution of a batch
type Summary struct {
	Rows                int
	Converged           int
	StatusCounts        map[Status]int
	ConvergenceRate     float64
	MedianAbsResidPrice float64
	MedianAbsResidVol   float64
	Quantiles           []QuantileRow
}

// Summarize computes diagnostics over converged rows only. It fails when no
// row converged.
func Summarize(results []Result) (Summary, error) {
	s := Summary{Rows: len(results), StatusCounts: make(map[Status]int)}
	var residP, residV []float64
	ddByYear := make(map[int][]float64)
	pdByYear := make(map[int][]float64)
	var ddAll, pdAll []float64

	for _, r := range results {
		s.StatusCounts[r.Status]++
		if !r.Converged() {
			continue
		}
		s.Converged++
		residP = append(residP, math.Abs(r.ResidPrice))
		residV = append(residV, math.Abs(r.ResidVol))
		ddByYear[r.Year] = append(ddByYear[r.Year], r.DD)
		pdByYear[r.Year] = append(pdByYear[r.Year], r.PD)
		ddAll = append(ddAll, r.DD)
		pdAll = append(pdAll, r.PD)
	}
	if s.Converged == 0 {
		return s, apperrors.NewNumericalError("no rows converged; cannot summarize market results")
	}

	s.ConvergenceRate = float64(s.Converged) / float64(s.Rows)
	s.MedianAbsResidPrice = stats.Median(residP)
	s.MedianAbsResidVol = stats.Median(residV)

	years := make([]int, 0, len(ddByYear))
	for y := range ddByYear {
		years = append(years, y)
	}
	sort.Ints(years)
	for _, y := range years {
		label := strconv.Itoa(y)
		s.Quantiles = append(s.Quantiles, quantiles(label, "DD_m", ddByYear[y]), quantiles(label, "PD_m", pdByYear[y]))
	}
	s.Quantiles = append(s.Quantiles, quantiles("overall", "DD_m", ddAll), quantiles("overall", "PD_m", pdAll))
	return s, nil
}

func quantiles(period, metric string, xs []float64) QuantileRow {
	sorted := stats.Sorted(xs)
	return QuantileRow{
		Period: period,
		Metric: metric,
		N:      len(sorted),
		Min:    stats.Quantile(sorted, 0),
		P10:    stats.Quantile(sorted, 0.10),
		P25:    stats.Quantile(sorted, 0.25),
		Median: stats.Quantile(sorted, 0.50),
		P75:    stats.Quantile(sorted, 0.75),
		P90:    stats.Quantile(sorted, 0.90),
		Max:    stats.Quantile(sorted, 1),
	}
}
