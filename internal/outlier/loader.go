package outlier

import (
	"fmt"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/dataprocessing"
	apperrors "github.com/GuillaumeBld/Bank-Risk-Analytics/internal/errors"
)

var (
	instrumentCols = []string{"instrument", "ticker"}
	waccCostCols   = []string{"wacc_debt_cost", "wacc_cost_of_debt,_(%)", "wacc_cost_of_debt"}
	waccWeightCols = []string{"wacc_debt_weight", "wacc_debt_weight,_(%)"}
	debtTotalCols  = []string{"debt_total"}
	deRatioCols    = []string{"de_ratio", "d/e", "debt_to_equity"}
)

// Load joins an accounting results file and a market results file by
// instrument and year. Either path may be empty.
func Load(accountingPath, marketPath string) ([]Record, error) {
	var records []Record
	index := make(map[string]int)
	get := func(inst string, year int) *Record {
		k := fmt.Sprintf("%s/%d", inst, year)
		if i, ok := index[k]; ok {
			return &records[i]
		}
		index[k] = len(records)
		records = append(records, Record{Instrument: inst, Year: year})
		return &records[len(records)-1]
	}

	if accountingPath != "" {
		err := readResults(accountingPath, []string{"dd_a", "dda"}, []string{"pd_a", "pda"},
			func(inst string, year int, dd, pd *float64, diag Diagnostics) {
				r := get(inst, year)
				r.DDa, r.PDa, r.Acct = dd, pd, diag
			})
		if err != nil {
			return nil, err
		}
	}
	if marketPath != "" {
		err := readResults(marketPath, []string{"dd_m", "ddm", "dd"}, []string{"pd_m", "pdm", "pd"},
			func(inst string, year int, dd, pd *float64, diag Diagnostics) {
				r := get(inst, year)
				r.DDm, r.PDm, r.Mkt = dd, pd, diag
			})
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

func readResults(path string, ddCols, pdCols []string, apply func(string, int, *float64, *float64, Diagnostics)) error {
	tbl, err := dataprocessing.ReadTable(path, "year")
	if err != nil {
		return apperrors.NewParsingError("failed to read results", err).WithContext("source", path)
	}
	instCol, ok := tbl.FirstOf(instrumentCols...)
	if !ok {
		return apperrors.NewParsingError(fmt.Sprintf("%s: missing instrument column", path), nil)
	}
	ddCol, ok := tbl.FirstOf(ddCols...)
	if !ok {
		return apperrors.NewParsingError(fmt.Sprintf("%s: missing DD column", path), nil)
	}
	pdCol, _ := tbl.FirstOf(pdCols...)

	optional := func(row []string, cols []string) *float64 {
		col, ok := tbl.FirstOf(cols...)
		if !ok {
			return nil
		}
		return dataprocessing.ParseOptionalFloat(tbl.Value(row, col))
	}

	for _, row := range tbl.Rows {
		year, ok := dataprocessing.ParseInt(tbl.Value(row, "year"))
		inst := tbl.Value(row, instCol)
		if !ok || inst == "" {
			continue
		}
		apply(inst, year,
			dataprocessing.ParseOptionalFloat(tbl.Value(row, ddCol)),
			dataprocessing.ParseOptionalFloat(tbl.Value(row, pdCol)),
			Diagnostics{
				WaccCost:   optional(row, waccCostCols),
				WaccWeight: optional(row, waccWeightCols),
				DebtTotal:  optional(row, debtTotalCols),
				DebtEquity: optional(row, deRatioCols),
			})
	}
	return nil
}
