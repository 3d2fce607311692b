package merton

import (
	"fmt"
	"math"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/entity"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/timeintegrity"
)

// Status is the solver state of a row
type Status string

const (
	StatusPending       Status = "pending"
	StatusValidating    Status = "validating"
	StatusConverged     Status = "converged"
	StatusInvalidInputs Status = "invalid_inputs"
	StatusNoConvergence Status = "no_convergence"
)

// Input is one merged bank-year. Optional numbers are nil when the source
// cell was empty.
type Input struct {
	Ticker string            `csv:"instrument" validate:"ticker"`
	Year   int               `csv:"year" validate:"year"`
	Size   entity.SizeBucket `csv:"size_bucket" validate:"omitempty,oneof=large mid small"`

	E           *float64 `csv:"E"`
	SigmaE      *float64 `csv:"sigma_E"`
	DebtTotal   *float64 `csv:"debt_total"`
	F           *float64 `csv:"F"`
	Rf          *float64 `csv:"rf"`
	T           *float64 `csv:"T"`
	TotalAssets *float64 `csv:"total_assets"`
	MuHat       *float64 `csv:"mu_hat"`

	WaccDebtCost   *float64 `csv:"wacc_debt_cost"`
	WaccDebtWeight *float64 `csv:"wacc_debt_weight"`
	DebtToEquity   *float64 `csv:"de_ratio"`

	SigmaEMethod    string `csv:"sigma_E_method"`
	WindowStartYear *int   `csv:"sigmaE_window_start_year"`
	WindowEndYear   *int   `csv:"sigmaE_window_end_year"`
	MuHatFrom       string `csv:"mu_hat_from"`
	MuSourceYear    *int   `csv:"mu_source_year"`
}

// Ref identifies the row in diagnostics
func (in Input) Ref() string {
	return fmt.Sprintf("%s/%d", in.Ticker, in.Year)
}

// TimeRow exposes the row's provenance to the time-integrity validator
func (in Input) TimeRow() timeintegrity.Row {
	return timeintegrity.Row{
		Year:            in.Year,
		WindowStartYear: in.WindowStartYear,
		WindowEndYear:   in.WindowEndYear,
		MuHatFrom:       in.MuHatFrom,
		MuSourceYear:    in.MuSourceYear,
		Ref:             in.Ref(),
	}
}

// Barrier returns the debt barrier: the explicit F when present, otherwise
// debt_total scaled to the units of E
func (in Input) Barrier(scale float64) (float64, bool) {
	if in.F != nil {
		return *in.F, true
	}
	if in.DebtTotal != nil {
		return *in.DebtTotal * scale, true
	}
	return math.NaN(), false
}

// Result is the market-approach outcome of one row. Numeric outputs are NaN
// unless Status is converged.
type Result struct {
	Input
	Barrier    float64
	V          float64
	SigmaV     float64
	D1         float64
	D2         float64
	DD         float64
	PD         float64
	Status     Status
	ResidPrice float64
	ResidVol   float64
	Iterations int
	Reasons    []string
}

// Converged reports whether the solve succeeded
func (r Result) Converged() bool {
	return r.Status == StatusConverged
}

func newResult(in Input) Result {
	nan := math.NaN()
	return Result{
		Input:      in,
		Barrier:    nan,
		V:          nan,
		SigmaV:     nan,
		D1:         nan,
		D2:         nan,
		DD:         nan,
		PD:         nan,
		Status:     StatusPending,
		ResidPrice: nan,
		ResidVol:   nan,
	}
}

// AccountingResult is the closed-form accounting DD of one row. DD and PD are
// NaN when Valid is false.
type AccountingResult struct {
	Input
	Barrier float64
	VProxy  float64
	DD      float64
	PD      float64
	Valid   bool
	Reasons []string
}

func value(p *float64) (float64, bool) {
	if p == nil {
		return math.NaN(), false
	}
	return *p, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
