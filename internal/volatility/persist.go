package volatility

import (
	"fmt"
	"strconv"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/dataprocessing"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/entity"
	apperrors "github.com/GuillaumeBld/Bank-Risk-Analytics/internal/errors"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/exporter"
)

// Header is the column layout of the volatility output file
var Header = []string{
	"ticker", "year", "sigma_E", "method", "window", "obs_count", "flag",
	"size_bucket", "window_start_year", "window_end_year", "window_years", "lag_years",
}

// Records renders estimates in Header order
func Records(estimates []Estimate) [][]string {
	out := make([][]string, 0, len(estimates))
	for _, e := range estimates {
		var start, end, span, lag string
		if p := e.Provenance; p != nil {
			start, end = strconv.Itoa(p.WindowStartYear), strconv.Itoa(p.WindowEndYear)
			span, lag = strconv.Itoa(p.WindowYears()), strconv.Itoa(p.LagYears(e.Year))
		}
		out = append(out, []string{
			e.Ticker,
			strconv.Itoa(e.Year),
			exporter.FormatOptionalFloat(e.SigmaE),
			e.Method.Kind().String(),
			strconv.Itoa(e.Method.WindowLen()),
			strconv.Itoa(e.ObsCount),
			e.Flag.String(),
			string(e.SizeBucket),
			start,
			end,
			span,
			lag,
		})
	}
	return out
}

// QualityHeader is the column layout of the quality file
var QualityHeader = []string{
	"year", "rows", "with_sigma", "coverage", "in_range", "in_range_share",
	"primary_window", "ewma_fallback", "partial_window", "peer_median", "none",
}

// QualityRecords renders a quality report, one row per year plus "overall"
func QualityRecords(q QualityReport) [][]string {
	row := func(label string, y YearQuality) []string {
		return []string{
			label,
			strconv.Itoa(y.Total),
			strconv.Itoa(y.WithSigma),
			exporter.FormatFloat(y.Coverage()),
			strconv.Itoa(y.InRange),
			exporter.FormatFloat(y.InRangeShare()),
			strconv.Itoa(y.Methods[KindPrimaryWindow]),
			strconv.Itoa(y.Methods[KindEwmaFallback]),
			strconv.Itoa(y.Methods[KindPartialWindow]),
			strconv.Itoa(y.Methods[KindPeerMedian]),
			strconv.Itoa(y.Methods[KindNone]),
		}
	}
	out := make([][]string, 0, len(q.Years)+1)
	for _, y := range q.Years {
		out = append(out, row(strconv.Itoa(y.Year), y))
	}
	return append(out, row("overall", q.Overall))
}

// Load reads a volatility file written with Header. lambda restores the
// decay of ewma_fallback rows.
func Load(path string, lambda float64) ([]Estimate, error) {
	tbl, err := dataprocessing.ReadTable(path, "ticker", "year", "sigma_e", "method", "obs_count")
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read volatility file", err).WithContext("source", path)
	}
	out := make([]Estimate, 0, len(tbl.Rows))
	for i, row := range tbl.Rows {
		e, err := parseRecord(tbl, row, lambda)
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("%s line %d", path, tbl.Line(i)), err)
		}
		out = append(out, e)
	}
	return out, nil
}

func parseRecord(tbl *dataprocessing.Table, row []string, lambda float64) (Estimate, error) {
	year, ok := dataprocessing.ParseInt(tbl.Value(row, "year"))
	if !ok {
		return Estimate{}, fmt.Errorf("invalid year %q", tbl.Value(row, "year"))
	}
	obs, _ := dataprocessing.ParseInt(tbl.Value(row, "obs_count"))
	window, ok := dataprocessing.ParseInt(tbl.Value(row, "window"))
	if !ok {
		window = obs
	}
	method, err := ParseMethod(tbl.Value(row, "method"), window, lambda)
	if err != nil {
		return Estimate{}, err
	}
	flag, err := ParseFlag(tbl.Value(row, "flag"))
	if err != nil {
		return Estimate{}, err
	}
	size := entity.SizeSmall
	if s := tbl.Value(row, "size_bucket"); s != "" {
		if size, err = entity.ParseSizeBucket(s); err != nil {
			return Estimate{}, err
		}
	}

	e := Estimate{
		Ticker:     tbl.Value(row, "ticker"),
		Year:       year,
		SigmaE:     dataprocessing.ParseOptionalFloat(tbl.Value(row, "sigma_e")),
		Method:     method,
		ObsCount:   obs,
		Flag:       flag,
		SizeBucket: size,
	}
	start, okStart := dataprocessing.ParseInt(tbl.Value(row, "window_start_year"))
	end, okEnd := dataprocessing.ParseInt(tbl.Value(row, "window_end_year"))
	if okStart && okEnd {
		e.Provenance = &Provenance{WindowStartYear: start, WindowEndYear: end}
	}
	return e, nil
}
