package merton

import (
	"math"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/stats"
)

// AccountingDD computes the closed-form accounting distance to default
//
//	DD_a = [ln(V_proxy/F) + (mu_hat - sigma_E^2/2)] / sigma_E
//
// with V_proxy the reported total assets when positive, otherwise E + F.
// The drift is the realized return of year t-1, not the risk-free rate.
func AccountingDD(in Input, scale float64) AccountingResult {
	res := AccountingResult{Input: in, Barrier: math.NaN(), VProxy: math.NaN(), DD: math.NaN(), PD: math.NaN()}

	var reasons []string
	sigma, ok := value(in.SigmaE)
	if !ok {
		reasons = append(reasons, "missing_sigma_E")
	} else if !finite(sigma) || sigma <= 0 {
		reasons = append(reasons, "nonpositive_sigma_E")
	}
	f, ok := in.Barrier(scale)
	if !ok {
		reasons = append(reasons, "missing_F")
	} else if !finite(f) || f <= 0 {
		reasons = append(reasons, "nonpositive_F")
	}
	mu, ok := value(in.MuHat)
	if !ok || !finite(mu) {
		reasons = append(reasons, "missing_mu_hat")
	}

	vProxy := math.NaN()
	if ta, ok := value(in.TotalAssets); ok && finite(ta) && ta > 0 {
		vProxy = ta
	} else if e, ok := value(in.E); ok && finite(e) && e > 0 {
		vProxy = e + f
	}
	if !finite(vProxy) || vProxy <= 0 {
		reasons = append(reasons, "missing_v_proxy")
	}

	res.Barrier, res.VProxy = f, vProxy
	if len(reasons) > 0 {
		res.Reasons = reasons
		return res
	}

	res.DD = (math.Log(vProxy/f) + (mu - 0.5*sigma*sigma)) / sigma
	res.PD = stats.NormCDF(-res.DD)
	res.Valid = finite(res.DD)
	if !res.Valid {
		res.Reasons = []string{"nonfinite_dd"}
	}
	return res
}

// AccountingAll applies AccountingDD to every row
func AccountingAll(inputs []Input, scale float64) []AccountingResult {
	out := make([]AccountingResult, len(inputs))
	for i, in := range inputs {
		out[i] = AccountingDD(in, scale)
	}
	return out
}
