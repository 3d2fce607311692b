package merton

import (
	"fmt"
	"math"
	"strings"

	apperrors "github.com/GuillaumeBld/Bank-Risk-Analytics/internal/errors"
)

// VerifyRoundTrip recomputes DD from the stored V, sigma_V, F, rf and T of
// every converged row and fails with a NUMERICAL error when any row differs
// by more than absTol + relTol*|DD| or has a non-positive solved input.
func VerifyRoundTrip(results []Result, absTol, relTol float64) error {
	var bad []string
	for _, r := range results {
		if !r.Converged() {
			continue
		}
		e, _ := value(r.E)
		s, _ := value(r.SigmaE)
		positives := []float64{e, s, r.Barrier, r.V, r.SigmaV}
		ok := true
		for _, v := range positives {
			if !finite(v) || v <= 0 {
				ok = false
			}
		}
		if ok {
			dd := DistanceToDefault(r.V, r.SigmaV, r.Barrier, *r.Rf, *r.T)
			ok = finite(dd) && math.Abs(dd-r.DD) <= absTol+relTol*math.Abs(r.DD)
		}
		if !ok {
			bad = append(bad, r.Ref())
		}
	}
	if len(bad) == 0 {
		return nil
	}
	sample := bad
	if len(sample) > 10 {
		sample = sample[:10]
	}
	return apperrors.NewNumericalError(fmt.Sprintf("DD round-trip failed for %d converged row(s): %s",
		len(bad), strings.Join(sample, ", "))).WithContext("rows", len(bad))
}
