package volatility

import (
	"fmt"
	"math"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/config"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/returns"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/stats"
)

// Policy holds the window and tier thresholds of one estimator variant.
// FallbackMin of zero disables fallback A.
type Policy struct {
	Frequency   returns.Frequency
	Window      int
	PrimaryMin  int
	FallbackMin int
	Lambda      float64
	Annualize   float64
}

// PolicyFromConfig returns the policy of the configured variant
func PolicyFromConfig(cfg config.VolatilityConfig) (Policy, error) {
	freq, err := returns.ParseFrequency(cfg.Variant)
	if err != nil {
		return Policy{}, err
	}
	switch freq {
	case returns.Monthly:
		return Policy{
			Frequency:   freq,
			Window:      cfg.MonthlyWindow,
			PrimaryMin:  cfg.MonthlyPrimaryMin,
			FallbackMin: cfg.MonthlyFallbackMin,
			Lambda:      cfg.EWMALambda,
			Annualize:   math.Sqrt(returns.Monthly.PeriodsPerYear()),
		}, nil
	case returns.Daily:
		return Policy{
			Frequency:   freq,
			Window:      cfg.DailyWindow,
			PrimaryMin:  cfg.DailyPrimaryMin,
			FallbackMin: cfg.DailyFallbackMin,
			Annualize:   math.Sqrt(returns.Daily.PeriodsPerYear()),
		}, nil
	case returns.Annual:
		return Policy{
			Frequency:  freq,
			Window:     cfg.AnnualWindow,
			PrimaryMin: cfg.AnnualPrimaryMin,
			Annualize:  1,
		}, nil
	}
	return Policy{}, fmt.Errorf("unsupported volatility variant %q", cfg.Variant)
}

// Lookback returns the observations behind year's estimate. Only points dated
// before January 1 of year are eligible.
//   - monthly: the last Window points
//   - daily: the last Window points dated in year-1
//   - annual: points from years year-Window through year-1
func (p Policy) Lookback(s returns.Series, year int) returns.Series {
	cutoff := returns.YearStart(year)
	var w returns.Series
	switch p.Frequency {
	case returns.Daily:
		w = s.Between(returns.YearStart(year-1), cutoff)
	case returns.Annual:
		w = s.Between(returns.YearStart(year-p.Window), cutoff)
	default:
		w = s.Before(cutoff)
	}
	if len(w) > p.Window {
		w = w[len(w)-p.Window:]
	}
	return w
}

// Estimate applies the tier cascade to one ticker-year. Size bucket is left
// for the caller.
func (p Policy) Estimate(ticker string, s returns.Series, year int) Estimate {
	w := p.Lookback(s, year)
	n := len(w)
	est := Estimate{
		Ticker:   ticker,
		Year:     year,
		ObsCount: n,
	}
	if n > 0 {
		est.Provenance = &Provenance{WindowStartYear: w[0].Date.Year(), WindowEndYear: year - 1}
	}

	values := w.Values()
	switch {
	case n == 0:
		est.Method = NoData{}
		est.Flag = FlagNoData
	case n >= p.PrimaryMin:
		est.SigmaE = floatPtr(stats.StdDev(values) * p.Annualize)
		est.Method = PrimaryWindow{Window: n}
	case p.FallbackMin > 0 && n >= p.FallbackMin && p.Frequency == returns.Monthly:
		est.SigmaE = floatPtr(EWMA(values, p.Lambda) * p.Annualize)
		est.Method = EwmaFallback{Window: n, Lambda: p.Lambda}
	case p.FallbackMin > 0 && n >= p.FallbackMin:
		est.SigmaE = floatPtr(stats.StdDev(values) * p.Annualize)
		est.Method = PartialWindow{Window: n}
		est.Flag = FlagInsufficientData
	default:
		est.Method = PeerMedian{Window: n}
		est.Flag = FlagInsufficientData
	}
	return est
}

// EWMA returns the exponentially weighted volatility of a chronological
// series. Lag i from the most recent value has weight (1-lambda)*lambda^i,
// weights are normalized to sum to one and the variance is the weighted mean
// of squared returns.
func EWMA(values []float64, lambda float64) float64 {
	var variance, total float64
	w := 1 - lambda
	for i := len(values) - 1; i >= 0; i-- {
		variance += w * values[i] * values[i]
		total += w
		w *= lambda
	}
	if total == 0 {
		return math.NaN()
	}
	return math.Sqrt(variance / total)
}
