package volatility

import (
	"fmt"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/entity"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/timeintegrity"
)

// Provenance is the calendar span of the returns behind a sigma_E value
type Provenance struct {
	WindowStartYear int
	WindowEndYear   int
}

// WindowYears returns the number of calendar years spanned
func (p Provenance) WindowYears() int {
	return p.WindowEndYear - p.WindowStartYear + 1
}

// LagYears returns how many years the window ends before year
func (p Provenance) LagYears(year int) int {
	return year - p.WindowEndYear
}

// Estimate is the equity volatility of one bank-year
type Estimate struct {
	Ticker     string
	Year       int
	SigmaE     *float64
	Method     Method
	ObsCount   int
	Flag       Flag
	SizeBucket entity.SizeBucket
	// Provenance is nil when the window held no observations
	Provenance *Provenance
}

// Value returns sigma_E and whether it is known
func (e Estimate) Value() (float64, bool) {
	if e.SigmaE == nil {
		return 0, false
	}
	return *e.SigmaE, true
}

// Ref identifies the row in diagnostics
func (e Estimate) Ref() string {
	return fmt.Sprintf("%s/%d", e.Ticker, e.Year)
}

// TimeRow exposes the row's provenance to the time-integrity validator
func (e Estimate) TimeRow() timeintegrity.Row {
	row := timeintegrity.Row{Year: e.Year, Ref: e.Ref()}
	if e.Provenance != nil {
		start, end := e.Provenance.WindowStartYear, e.Provenance.WindowEndYear
		row.WindowStartYear, row.WindowEndYear = &start, &end
	}
	return row
}

func floatPtr(v float64) *float64 { return &v }
