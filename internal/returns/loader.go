package returns

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/dataprocessing"
	apperrors "github.com/GuillaumeBld/Bank-Risk-Analytics/internal/errors"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/validation"
)

// LoadStats counts what happened to the rows of one return file
type LoadStats struct {
	Source  string
	Rows    int
	Loaded  int
	Skipped int
}

// Loader reads raw return files and standardizes their instruments
type Loader struct {
	standardizer *Standardizer
	logger       *slog.Logger
}

// NewLoader creates a return file loader
func NewLoader(standardizer *Standardizer, logger *slog.Logger) *Loader {
	if standardizer == nil {
		standardizer = NewStandardizer(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{standardizer: standardizer, logger: logger}
}

// Load reads a CSV or XLSX file of percent returns. Rows with an unusable
// instrument, date or return are skipped and logged; the file itself fails
// only when it cannot be read or lacks the required columns.
func (l *Loader) Load(path string) ([]Observation, LoadStats, error) {
	stats := LoadStats{Source: path}

	tbl, err := dataprocessing.ReadTable(path, "date")
	if err != nil {
		return nil, stats, apperrors.NewParsingError("failed to read returns", err).
			WithContext("source", path)
	}
	instCol, ok := tbl.FirstOf("instrument", "ric", "ticker")
	if !ok {
		return nil, stats, apperrors.NewParsingError(fmt.Sprintf("%s: missing instrument column", path), nil)
	}
	retCol, ok := tbl.FirstOf("total_return", "return", "monthly_return", "daily_return", "ret")
	if !ok {
		return nil, stats, apperrors.NewParsingError(fmt.Sprintf("%s: missing return column", path), nil)
	}

	stats.Rows = len(tbl.Rows)
	out := make([]Observation, 0, len(tbl.Rows))
	for i, row := range tbl.Rows {
		line := tbl.Line(i)
		inst := tbl.Value(row, instCol)
		date, dateErr := dataprocessing.ParseDate(tbl.Value(row, "date"))
		pct, okRet := dataprocessing.ParseFloat(tbl.Value(row, retCol))
		if dateErr != nil || !okRet {
			stats.Skipped++
			l.logger.Debug("Skipping return row", "source", path, "line", line, "instrument", inst)
			continue
		}

		obs := Observation{
			Instrument: inst,
			Ticker:     l.standardizer.Standardize(inst),
			Date:       date,
			ReturnPct:  pct,
			Line:       line,
		}
		if err := validation.Struct(obs); err != nil {
			stats.Skipped++
			l.logger.Warn("Rejected return row", "source", path, "line", line, "error", err)
			continue
		}
		out = append(out, obs)
	}
	stats.Loaded = len(out)

	l.logger.Info("Loaded returns",
		"source", path,
		"rows", stats.Rows,
		"loaded", stats.Loaded,
		"skipped", stats.Skipped)
	return out, stats, nil
}

// DirectAnnual is a directly reported annual return in decimal form
type DirectAnnual struct {
	Ticker string  `csv:"ticker" validate:"ticker"`
	Year   int     `csv:"year" validate:"year"`
	Return float64 `csv:"annual_return" validate:"finite"`
}

// LoadDirectAnnual reads a table of directly reported annual returns with an
// instrument (or ticker), year and annual return column. Values are decimal.
func (l *Loader) LoadDirectAnnual(path string) ([]DirectAnnual, error) {
	tbl, err := dataprocessing.ReadTable(path, "year")
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read annual returns", err).
			WithContext("source", path)
	}
	idCol, ok := tbl.FirstOf("instrument", "ticker", "ticker_base")
	if !ok {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s: missing instrument column", path), nil)
	}
	retCol, ok := tbl.FirstOf("annual_return", "total_return", "rit", "return")
	if !ok {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s: missing annual return column", path), nil)
	}

	var out []DirectAnnual
	skipped := 0
	for _, row := range tbl.Rows {
		year, okYear := dataprocessing.ParseInt(tbl.Value(row, "year"))
		ret, okRet := dataprocessing.ParseFloat(tbl.Value(row, retCol))
		rec := DirectAnnual{
			Ticker: l.standardizer.Standardize(tbl.Value(row, idCol)),
			Year:   year,
			Return: ret,
		}
		if !okYear || !okRet || validation.Struct(rec) != nil {
			skipped++
			continue
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Ticker != out[j].Ticker {
			return out[i].Ticker < out[j].Ticker
		}
		return out[i].Year < out[j].Year
	})
	l.logger.Info("Loaded direct annual returns", "source", path, "records", len(out), "skipped", skipped)
	return out, nil
}
