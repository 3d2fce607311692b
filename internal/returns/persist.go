package returns

import (
	"strconv"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/exporter"
)

// AnnualHeader is the column layout of the annual returns file
var AnnualHeader = []string{"ticker", "year", "rit", "tier", "valid_months"}

// AnnualRecords renders the index rows in AnnualHeader order
func AnnualRecords(idx *AnnualIndex) [][]string {
	rows := idx.Rows()
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Ticker,
			strconv.Itoa(r.Year),
			exporter.FormatFloat(r.Rit),
			r.Tier.String(),
			strconv.Itoa(r.Months),
		})
	}
	return out
}
