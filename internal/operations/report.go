package operations

import (
	"context"
	"sort"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/config"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/entity"
	apperrors "github.com/GuillaumeBld/Bank-Risk-Analytics/internal/errors"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/exporter"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/outlier"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/stats"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/volatility"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/winsorize"
)

// ReportStage writes the outlier report and the summary workbook
type ReportStage struct {
	BaseStage
	deps StageDeps
}

// NewReportStage creates the reporting stage
func NewReportStage(deps StageDeps) *ReportStage {
	return &ReportStage{BaseStage: NewBaseStage(StageReport, "Reports"), deps: deps}
}

// Execute implements Step
func (s *ReportStage) Execute(ctx context.Context, state *RunState) error {
	records := outlier.FromResults(state.Accounting, state.Market)
	state.Outliers = outlier.Build(records, outlier.ThresholdsFromConfig(state.Config.Outlier))

	path, err := state.Writer.WriteText(config.OutlierReportFile, state.Outliers.Markdown())
	if err != nil {
		return apperrors.NewStorageError("failed to write outlier report", err)
	}
	state.RecordOutput(config.OutlierReportFile, path)

	wbPath := state.Config.Paths.OutputPath(config.SummaryWorkbookFile)
	if err := exporter.NewWorkbookWriter(s.deps.logger()).Write(wbPath, SummarySheets(state)); err != nil {
		return apperrors.NewStorageError("failed to write summary workbook", err)
	}
	state.RecordOutput(config.SummaryWorkbookFile, wbPath)

	flagged := 0
	for _, sec := range state.Outliers.Sections {
		flagged += sec.Total()
		state.RowCounts["outliers_"+sec.Dataset.String()] = sec.Total()
	}
	state.RowCounts[StageReport] = flagged
	s.deps.logger().InfoContext(ctx, "Reports written", "outliers", flagged, "workbook", wbPath)
	return nil
}

// SummarySheets assembles the worksheets of the summary workbook from
// whatever the run produced
func SummarySheets(state *RunState) []exporter.Sheet {
	sheets := []exporter.Sheet{runSheet(state)}
	if len(state.Quality.Years) > 0 {
		sheets = append(sheets, volatilitySheet(state.Quality))
	}
	if len(state.Summary.Quantiles) > 0 {
		sheets = append(sheets, quantileSheet(state))
	}
	if len(state.Winsor) > 0 {
		sheets = append(sheets, exporter.Sheet{
			Name:    "Winsorization",
			Headers: winsorize.GroupHeader,
			Rows:    winsorize.GroupRows(state.Winsor),
		})
	}
	if len(state.Outliers.Sections) > 0 {
		sheets = append(sheets, outlierSheet(state.Outliers, state.Metadata))
	}
	if state.Dropped.Len() > 0 {
		sheets = append(sheets, droppedSheet(state.Dropped))
	}
	return sheets
}

func runSheet(state *RunState) exporter.Sheet {
	rows := [][]interface{}{
		{"run_id", state.ID},
		{"variant", state.Config.Volatility.Variant},
		{"started_at", state.StartTime.UTC().Format("2006-01-02T15:04:05Z")},
	}
	if state.Summary.Rows > 0 {
		rows = append(rows,
			[]interface{}{"convergence_rate", state.Summary.ConvergenceRate},
			[]interface{}{"median_abs_resid_price", cell(state.Summary.MedianAbsResidPrice)},
			[]interface{}{"median_abs_resid_vol", cell(state.Summary.MedianAbsResidVol)},
		)
	}
	if state.Barrier.Checked > 0 {
		rows = append(rows, []interface{}{"barrier_pass_rate", state.Barrier.PassRate()})
	}

	keys := make([]string, 0, len(state.RowCounts))
	for k := range state.RowCounts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, []interface{}{"rows_" + k, state.RowCounts[k]})
	}
	return exporter.Sheet{Name: "Run", Headers: []string{"key", "value"}, Rows: rows}
}

var methodKinds = []volatility.MethodKind{
	volatility.KindPrimaryWindow,
	volatility.KindEwmaFallback,
	volatility.KindPartialWindow,
	volatility.KindPeerMedian,
	volatility.KindNone,
}

func volatilitySheet(q volatility.QualityReport) exporter.Sheet {
	headers := []string{"year", "rows", "with_sigma", "coverage", "in_range_share"}
	for _, k := range methodKinds {
		headers = append(headers, k.String())
	}
	row := func(label interface{}, y volatility.YearQuality) []interface{} {
		r := []interface{}{label, y.Total, y.WithSigma, y.Coverage(), y.InRangeShare()}
		for _, k := range methodKinds {
			r = append(r, y.Methods[k])
		}
		return r
	}
	var rows [][]interface{}
	for _, y := range q.Years {
		rows = append(rows, row(y.Year, y))
	}
	rows = append(rows, row("overall", q.Overall))
	return exporter.Sheet{Name: "Volatility", Headers: headers, Rows: rows}
}

func quantileSheet(state *RunState) exporter.Sheet {
	var rows [][]interface{}
	for _, q := range state.Summary.Quantiles {
		rows = append(rows, []interface{}{
			q.Period, q.Metric, q.N,
			cell(q.Min), cell(q.P10), cell(q.P25), cell(q.Median), cell(q.P75), cell(q.P90), cell(q.Max),
		})
	}
	return exporter.Sheet{Name: "Market quantiles", Headers: []string{"period", "metric", "n", "min", "p10", "p25", "median", "p75", "p90", "max"}, Rows: rows}
}

func outlierSheet(rep outlier.Report, meta *entity.Metadata) exporter.Sheet {
	opt := func(v *float64) interface{} {
		if v == nil {
			return nil
		}
		return *v
	}
	var rows [][]interface{}
	for _, sec := range rep.Sections {
		for _, b := range outlier.Buckets {
			for _, r := range sec.Rows[b] {
				rows = append(rows, []interface{}{
					sec.Dataset.String(), b.String(), r.Instrument, meta.Company(r.Instrument), r.Year,
					opt(r.DDa), opt(r.DDm), opt(r.PDa), opt(r.PDm),
				})
			}
		}
	}
	return exporter.Sheet{
		Name:    "Outliers",
		Headers: []string{"dataset", "bucket", "instrument", "company", "year", "DD_a", "DD_m", "PD_a", "PD_m"},
		Rows:    rows,
	}
}

func droppedSheet(d *DroppedRows) exporter.Sheet {
	counts := d.Counts()
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]interface{}, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []interface{}{k, counts[k]})
	}
	return exporter.Sheet{Name: "Dropped", Headers: []string{"stage/reason", "rows"}, Rows: rows}
}

func cell(v float64) interface{} {
	if !stats.IsFinite(v) {
		return nil
	}
	return v
}
