package operations

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/dataprocessing"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/entity"
	apperrors "github.com/GuillaumeBld/Bank-Risk-Analytics/internal/errors"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/merton"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/returns"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/timeintegrity"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/validation"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/volatility"
)

// PanelRow is one bank-year of the balance-sheet file
type PanelRow struct {
	Ticker string            `csv:"instrument" validate:"ticker"`
	Year   int               `csv:"year" validate:"year"`
	Size   entity.SizeBucket `csv:"size_bucket" validate:"omitempty,oneof=large mid small"`

	E           *float64 `csv:"market_cap" validate:"omitempty,finite"`
	DebtTotal   *float64 `csv:"debt_total" validate:"omitempty,finite"`
	F           *float64 `csv:"F" validate:"omitempty,finite"`
	Rf          *float64 `csv:"rf" validate:"omitempty,finite"`
	T           *float64 `csv:"T" validate:"omitempty,finite"`
	TotalAssets *float64 `csv:"total_assets" validate:"omitempty,finite"`

	WaccDebtCost   *float64 `csv:"wacc_debt_cost"`
	WaccDebtWeight *float64 `csv:"wacc_debt_weight"`
	DebtToEquity   *float64 `csv:"de_ratio"`

	Line int `csv:"-"`
}

// PanelStats counts what happened to the rows of the balance-sheet file
type PanelStats struct {
	Rows       int
	Loaded     int
	Invalid    int
	Duplicates int
}

var (
	panelIDCols     = []string{"instrument", "ticker", "ric"}
	panelEquityCols = []string{"market_cap", "e", "mkt_cap", "equity_value"}
	panelRfCols     = []string{"rf", "risk_free", "risk_free_rate"}
	panelWaccCost   = []string{"wacc_debt_cost", "wacc_cost_of_debt,_(%)", "wacc_cost_of_debt"}
	panelWaccWeight = []string{"wacc_debt_weight", "wacc_debt_weight,_(%)"}
	panelDERatio    = []string{"de_ratio", "d/e", "debt_to_equity"}
)

// LoadPanel reads the balance-sheet panel. Instruments pass through std,
// a missing horizon T defaults to horizon, and rows failing the schema or
// repeating an earlier (ticker, year) are skipped and reported in dropped.
func LoadPanel(path string, std *returns.Standardizer, horizon float64, dropped *DroppedRows, logger *slog.Logger) ([]PanelRow, PanelStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if std == nil {
		std = returns.NewStandardizer(nil)
	}
	var stats PanelStats

	tbl, err := dataprocessing.ReadTable(path, "year")
	if err != nil {
		return nil, stats, apperrors.NewParsingError("failed to read panel", err).WithContext("source", path)
	}
	idCol, ok := tbl.FirstOf(panelIDCols...)
	if !ok {
		return nil, stats, apperrors.NewParsingError(fmt.Sprintf("%s: missing instrument column", path), nil)
	}
	eCol, ok := tbl.FirstOf(panelEquityCols...)
	if !ok {
		return nil, stats, apperrors.NewParsingError(fmt.Sprintf("%s: missing market_cap column", path), nil)
	}
	if err := tbl.Require("debt_total"); err != nil {
		return nil, stats, apperrors.NewParsingError("invalid panel", err)
	}

	optional := func(row []string, cols ...string) *float64 {
		col, ok := tbl.FirstOf(cols...)
		if !ok {
			return nil
		}
		return dataprocessing.ParseOptionalFloat(tbl.Value(row, col))
	}

	stats.Rows = len(tbl.Rows)
	seen := make(map[string]bool)
	out := make([]PanelRow, 0, len(tbl.Rows))
	for i, row := range tbl.Rows {
		year, _ := dataprocessing.ParseInt(tbl.Value(row, "year"))
		rec := PanelRow{
			Ticker:         std.Standardize(tbl.Value(row, idCol)),
			Year:           year,
			E:              dataprocessing.ParseOptionalFloat(tbl.Value(row, eCol)),
			DebtTotal:      optional(row, "debt_total"),
			F:              optional(row, "f", "barrier"),
			Rf:             optional(row, panelRfCols...),
			T:              optional(row, "t", "horizon"),
			TotalAssets:    optional(row, "total_assets"),
			WaccDebtCost:   optional(row, panelWaccCost...),
			WaccDebtWeight: optional(row, panelWaccWeight...),
			DebtToEquity:   optional(row, panelDERatio...),
			Line:           tbl.Line(i),
		}
		if raw := tbl.Value(row, "size_bucket"); raw != "" {
			if b, err := entity.ParseSizeBucket(raw); err == nil {
				rec.Size = b
			}
		}
		if rec.T == nil {
			t := horizon
			rec.T = &t
		}

		if err := validation.Struct(rec); err != nil {
			stats.Invalid++
			dropped.Add(StageMerge, rec.Ticker, rec.Year, DropInvalidPanelRow)
			logger.Warn("Skipping panel row", "source", path, "line", rec.Line, "error", err)
			continue
		}
		key := fmt.Sprintf("%s/%d", rec.Ticker, rec.Year)
		if seen[key] {
			stats.Duplicates++
			dropped.Add(StageMerge, rec.Ticker, rec.Year, DropDuplicate)
			continue
		}
		seen[key] = true
		out = append(out, rec)
	}
	stats.Loaded = len(out)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Ticker != out[j].Ticker {
			return out[i].Ticker < out[j].Ticker
		}
		return out[i].Year < out[j].Year
	})

	logger.Info("Loaded balance-sheet panel",
		"source", path,
		"rows", stats.Rows,
		"loaded", stats.Loaded,
		"invalid", stats.Invalid,
		"duplicates", stats.Duplicates)
	return out, stats, nil
}

// MergeStats counts how the panel was matched against sigma_E and mu_hat
type MergeStats struct {
	Rows         int
	WithSigma    int
	WithMuHat    int
	MissingSigma int
	MissingMuHat int
}

// Merge attaches sigma_E with its window provenance and the lagged annual
// return mu_hat to every panel row. mu_hat for year t is the realized
// return of t-1 only; a gap leaves it empty. The size bucket comes from the
// panel, then the volatility frame, then meta.
func Merge(rows []PanelRow, estimates []volatility.Estimate, annual *returns.AnnualIndex, meta *entity.Metadata, dropped *DroppedRows) ([]merton.Input, MergeStats) {
	type key struct {
		ticker string
		year   int
	}
	byKey := make(map[key]volatility.Estimate, len(estimates))
	for _, e := range estimates {
		byKey[key{e.Ticker, e.Year}] = e
	}

	stats := MergeStats{Rows: len(rows)}
	out := make([]merton.Input, 0, len(rows))
	for _, r := range rows {
		in := merton.Input{
			Ticker:         r.Ticker,
			Year:           r.Year,
			Size:           r.Size,
			E:              r.E,
			DebtTotal:      r.DebtTotal,
			F:              r.F,
			Rf:             r.Rf,
			T:              r.T,
			TotalAssets:    r.TotalAssets,
			WaccDebtCost:   r.WaccDebtCost,
			WaccDebtWeight: r.WaccDebtWeight,
			DebtToEquity:   r.DebtToEquity,
		}

		if est, ok := byKey[key{r.Ticker, r.Year}]; ok {
			in.SigmaE = est.SigmaE
			in.SigmaEMethod = est.Method.Kind().String()
			if p := est.Provenance; p != nil {
				start, end := p.WindowStartYear, p.WindowEndYear
				in.WindowStartYear, in.WindowEndYear = &start, &end
			}
			if in.Size == "" {
				in.Size = est.SizeBucket
			}
		}
		if in.Size == "" {
			in.Size, _ = meta.Size(r.Ticker, r.Year)
		}
		if in.SigmaE != nil {
			stats.WithSigma++
		} else {
			stats.MissingSigma++
			dropped.Add(StageMerge, r.Ticker, r.Year, DropMissingSigma)
		}

		if annual != nil {
			if mu, src, ok := annual.Lagged(r.Ticker, r.Year); ok {
				in.MuHat = &mu
				in.MuHatFrom = timeintegrity.MuFromLaggedReturn
				in.MuSourceYear = &src
			}
		}
		if in.MuHat != nil {
			stats.WithMuHat++
		} else {
			stats.MissingMuHat++
			dropped.Add(StageMerge, r.Ticker, r.Year, DropMissingMuHat)
		}
		out = append(out, in)
	}
	return out, stats
}
