package merton

import (
	"fmt"
	"math"

	apperrors "github.com/GuillaumeBld/Bank-Risk-Analytics/internal/errors"
)

// BarrierCheck is the outcome of the debt-scale consistency check
type BarrierCheck struct {
	Checked  int
	Passed   int
	Skipped  int
	Failures []string
}

// PassRate is Passed/Checked, 1 when nothing could be checked
func (b BarrierCheck) PassRate() float64 {
	if b.Checked == 0 {
		return 1
	}
	return float64(b.Passed) / float64(b.Checked)
}

// CheckBarrierConvention verifies that the barrier of each row equals
// debt_total x scale within relTol (relative, with an absolute floor of
// relTol x max(1, |expected|)). Rows with neither debt_total nor F are
// skipped. A pass rate below minRate is a fatal BARRIER_CONVENTION error.
func CheckBarrierConvention(inputs []Input, scale, minRate, relTol float64) (BarrierCheck, error) {
	var check BarrierCheck
	for _, in := range inputs {
		if in.DebtTotal == nil && in.F == nil {
			check.Skipped++
			continue
		}
		check.Checked++
		f, _ := in.Barrier(scale)
		if in.DebtTotal != nil && barrierMatches(f, *in.DebtTotal*scale, relTol) {
			check.Passed++
			continue
		}
		check.Failures = append(check.Failures, in.Ref())
	}

	if rate := check.PassRate(); rate < minRate {
		return check, apperrors.NewBarrierConventionError(fmt.Sprintf(
			"only %.2f%% of %d rows satisfy F == debt_total x %g (minimum %.2f%%)",
			100*rate, check.Checked, scale, 100*minRate)).
			WithContext("failures", len(check.Failures))
	}
	return check, nil
}

func barrierMatches(f, expected, relTol float64) bool {
	if !finite(f) || !finite(expected) {
		return false
	}
	absTol := relTol * math.Max(1, math.Abs(expected))
	return math.Abs(f-expected) <= math.Max(relTol*math.Max(math.Abs(f), math.Abs(expected)), absTol)
}
