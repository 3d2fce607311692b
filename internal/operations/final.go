package operations

import (
	"fmt"
	"strconv"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/config"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/exporter"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/merton"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/stats"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/timeintegrity"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/winsorize"
)

// Winsorizable metric names
const (
	MetricSigmaE = "sigma_E"
	MetricDDa    = "DD_a"
	MetricPDa    = "PD_a"
	MetricDDm    = "DD_m"
	MetricPDm    = "PD_m"
)

// FinalRow is one bank-year of the combined panel: both DD approaches side
// by side plus the winsorized copy of each configured metric
type FinalRow struct {
	merton.Input
	DDa, PDa *float64
	DDm, PDm *float64
	Status   merton.Status

	Winsorized map[string]*float64
	Trimmed    []string
}

// TimeRow exposes the row's provenance to the time-integrity validator
func (r FinalRow) TimeRow() timeintegrity.Row {
	return r.Input.TimeRow()
}

// Metric returns the raw value of a named metric, nil when unknown
func (r FinalRow) Metric(name string) *float64 {
	switch name {
	case MetricSigmaE:
		return r.SigmaE
	case MetricDDa:
		return r.DDa
	case MetricPDa:
		return r.PDa
	case MetricDDm:
		return r.DDm
	case MetricPDm:
		return r.PDm
	}
	return nil
}

// BuildFinal joins market and accounting results of the same merged rows
func BuildFinal(inputs []merton.Input, market []merton.Result, acct []merton.AccountingResult) []FinalRow {
	marketByRef := make(map[string]merton.Result, len(market))
	for _, m := range market {
		marketByRef[m.Ref()] = m
	}
	acctByRef := make(map[string]merton.AccountingResult, len(acct))
	for _, a := range acct {
		acctByRef[a.Ref()] = a
	}

	out := make([]FinalRow, 0, len(inputs))
	for _, in := range inputs {
		row := FinalRow{Input: in, Status: merton.StatusPending, Winsorized: make(map[string]*float64)}
		if m, ok := marketByRef[in.Ref()]; ok {
			row.Status = m.Status
			if m.Converged() {
				row.DDm, row.PDm = finite(m.DD), finite(m.PD)
			}
		}
		if a, ok := acctByRef[in.Ref()]; ok && a.Valid {
			row.DDa, row.PDa = finite(a.DD), finite(a.PD)
		}
		out = append(out, row)
	}
	return out
}

// WinsorizeFinal winsorizes each metric across rows and returns one report
// per metric. Bounds of every metric come from the full input. In trim mode
// a row outside the bounds of any metric is removed from kept and returned
// in trimmed with the offending metric names in Trimmed.
func WinsorizeFinal(rows []FinalRow, metrics []string, opts winsorize.Options) (kept, trimmed []FinalRow, reports []winsorize.Report) {
	reports = make([]winsorize.Report, 0, len(metrics))
	for _, metric := range metrics {
		in := make([]winsorize.Row, len(rows))
		for i, r := range rows {
			in[i] = winsorize.Row{Ticker: r.Ticker, Year: r.Year, Size: r.Size, Value: r.Metric(metric)}
		}
		res, rep := winsorize.Apply(in, metric, opts)
		for i := range rows {
			if rows[i].Winsorized == nil {
				rows[i].Winsorized = make(map[string]*float64)
			}
			if !res.Keep[i] {
				rows[i].Winsorized[metric] = nil
				rows[i].Trimmed = append(rows[i].Trimmed, metric)
				continue
			}
			rows[i].Winsorized[metric] = res.Values[i]
		}
		reports = append(reports, rep)
	}

	kept = make([]FinalRow, 0, len(rows))
	for _, r := range rows {
		if len(r.Trimmed) > 0 {
			trimmed = append(trimmed, r)
			continue
		}
		kept = append(kept, r)
	}
	return kept, trimmed, reports
}

// WinsorOptions converts the winsorize section of the configuration
func WinsorOptions(cfg config.WinsorizeConfig) (winsorize.Options, error) {
	grouping, err := winsorize.ParseGrouping(cfg.Grouping)
	if err != nil {
		return winsorize.Options{}, err
	}
	mode, err := winsorize.ParseMode(cfg.Mode)
	if err != nil {
		return winsorize.Options{}, err
	}
	return winsorize.Options{
		Percentile:   cfg.Percentile,
		MinGroupSize: cfg.MinGroupSize,
		Grouping:     grouping,
		Mode:         mode,
	}, nil
}

// PanelHeader returns the column layout of the combined panel file
func PanelHeader(metrics []string) []string {
	h := []string{
		"instrument", "year", "size_bucket", "sigma_E", "sigma_E_method",
		"DD_a", "PD_a", "DD_m", "PD_m", "solver_status",
	}
	for _, m := range metrics {
		h = append(h, m+"_w")
	}
	return append(h,
		"sigmaE_window_start_year", "sigmaE_window_end_year", "window_years", "lag_years",
		"mu_hat_from", "mu_source_year")
}

// PanelRecords renders rows in PanelHeader order
func PanelRecords(rows []FinalRow, metrics []string) [][]string {
	summaries := timeintegrity.AddSummary(timeintegrity.Rows(rows))
	out := make([][]string, 0, len(rows))
	for i, r := range rows {
		rec := []string{
			r.Ticker,
			strconv.Itoa(r.Year),
			string(r.Size),
			exporter.FormatOptionalFloat(r.SigmaE),
			r.SigmaEMethod,
			exporter.FormatOptionalFloat(r.DDa),
			exporter.FormatOptionalFloat(r.PDa),
			exporter.FormatOptionalFloat(r.DDm),
			exporter.FormatOptionalFloat(r.PDm),
			string(r.Status),
		}
		for _, m := range metrics {
			rec = append(rec, exporter.FormatOptionalFloat(r.Winsorized[m]))
		}
		rec = append(rec,
			exporter.FormatOptionalInt(r.WindowStartYear),
			exporter.FormatOptionalInt(r.WindowEndYear),
			exporter.FormatOptionalInt(summaries[i].WindowYears),
			exporter.FormatOptionalInt(summaries[i].LagYears),
			r.MuHatFrom,
			exporter.FormatOptionalInt(r.MuSourceYear),
		)
		out = append(out, rec)
	}
	return out
}

func finite(v float64) *float64 {
	if !stats.IsFinite(v) {
		return nil
	}
	return &v
}

func checkMetrics(metrics []string) error {
	for _, m := range metrics {
		switch m {
		case MetricSigmaE, MetricDDa, MetricPDa, MetricDDm, MetricPDm:
		default:
			return fmt.Errorf("unknown winsorization metric %q", m)
		}
	}
	return nil
}
