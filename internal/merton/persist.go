package merton

import (
	"strconv"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/exporter"
)

var inputTail = []string{
	"wacc_debt_cost", "wacc_debt_weight", "de_ratio",
	"sigma_E_method", "sigmaE_window_start_year", "sigmaE_window_end_year",
}

func inputTailRecord(in Input) []string {
	return []string{
		exporter.FormatOptionalFloat(in.WaccDebtCost),
		exporter.FormatOptionalFloat(in.WaccDebtWeight),
		exporter.FormatOptionalFloat(in.DebtToEquity),
		in.SigmaEMethod,
		exporter.FormatOptionalInt(in.WindowStartYear),
		exporter.FormatOptionalInt(in.WindowEndYear),
	}
}

// MarketHeader is the column layout of the market results file
var MarketHeader = append([]string{
	"instrument", "year", "size_bucket", "E", "sigma_E", "debt_total", "F", "rf", "T",
	"V", "sigma_V", "d1", "d2", "DD", "PD", "solver_status",
	"resid_price", "resid_vol", "iterations", "reasons",
}, inputTail...)

// MarketRecords renders results in MarketHeader order
func MarketRecords(results []Result) [][]string {
	out := make([][]string, 0, len(results))
	for _, r := range results {
		rec := []string{
			r.Ticker,
			strconv.Itoa(r.Year),
			string(r.Size),
			exporter.FormatOptionalFloat(r.E),
			exporter.FormatOptionalFloat(r.SigmaE),
			exporter.FormatOptionalFloat(r.DebtTotal),
			exporter.FormatFloat(r.Barrier),
			exporter.FormatOptionalFloat(r.Rf),
			exporter.FormatOptionalFloat(r.T),
			exporter.FormatFloat(r.V),
			exporter.FormatFloat(r.SigmaV),
			exporter.FormatFloat(r.D1),
			exporter.FormatFloat(r.D2),
			exporter.FormatFloat(r.DD),
			exporter.FormatFloat(r.PD),
			string(r.Status),
			exporter.FormatFloat(r.ResidPrice),
			exporter.FormatFloat(r.ResidVol),
			strconv.Itoa(r.Iterations),
			exporter.FormatList(r.Reasons),
		}
		out = append(out, append(rec, inputTailRecord(r.Input)...))
	}
	return out
}

// AccountingHeader is the column layout of the accounting results file
var AccountingHeader = append([]string{
	"instrument", "year", "size_bucket", "E", "sigma_E", "debt_total", "F", "total_assets",
	"V_proxy", "mu_hat", "mu_hat_from", "mu_source_year", "DD_a", "PD_a", "valid", "reasons",
}, inputTail...)

// AccountingRecords renders results in AccountingHeader order
func AccountingRecords(results []AccountingResult) [][]string {
	out := make([][]string, 0, len(results))
	for _, r := range results {
		rec := []string{
			r.Ticker,
			strconv.Itoa(r.Year),
			string(r.Size),
			exporter.FormatOptionalFloat(r.E),
			exporter.FormatOptionalFloat(r.SigmaE),
			exporter.FormatOptionalFloat(r.DebtTotal),
			exporter.FormatFloat(r.Barrier),
			exporter.FormatOptionalFloat(r.TotalAssets),
			exporter.FormatFloat(r.VProxy),
			exporter.FormatOptionalFloat(r.MuHat),
			r.MuHatFrom,
			exporter.FormatOptionalInt(r.MuSourceYear),
			exporter.FormatFloat(r.DD),
			exporter.FormatFloat(r.PD),
			exporter.FormatBool(r.Valid),
			exporter.FormatList(r.Reasons),
		}
		out = append(out, append(rec, inputTailRecord(r.Input)...))
	}
	return out
}

// SummaryHeader is the column layout of the market summary file
var SummaryHeader = []string{"period", "metric", "n", "min", "p10", "p25", "median", "p75", "p90", "max"}

// SummaryRecords renders the quantile rows followed by the diagnostics as
// metric rows of the "diagnostics" period
func SummaryRecords(s Summary) [][]string {
	out := make([][]string, 0, len(s.Quantiles)+4)
	for _, q := range s.Quantiles {
		out = append(out, []string{
			q.Period, q.Metric, strconv.Itoa(q.N),
			exporter.FormatFloat(q.Min), exporter.FormatFloat(q.P10), exporter.FormatFloat(q.P25),
			exporter.FormatFloat(q.Median), exporter.FormatFloat(q.P75), exporter.FormatFloat(q.P90),
			exporter.FormatFloat(q.Max),
		})
	}
	diag := func(metric string, v float64) []string {
		return []string{"diagnostics", metric, strconv.Itoa(s.Rows), "", "", "", exporter.FormatFloat(v), "", "", ""}
	}
	out = append(out,
		diag("convergence_rate", s.ConvergenceRate),
		diag("median_abs_resid_price", s.MedianAbsResidPrice),
		diag("median_abs_resid_vol", s.MedianAbsResidVol),
	)
	return out
}
