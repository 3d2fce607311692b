// Package merton computes distance to default (DD) and probability of
// default (PD) under the Merton structural model, two ways.
//
// The market approach solves
//
//	E       = V N(d1) - F e^{-rT} N(d2)
//	sigma_E = (V/E) N(d1) sigma_V
//
// for asset value V and asset volatility sigma_V with a damped Newton
// iteration in log space, then sets DD_m = [ln(V/F) + (r - sigma_V^2/2)T] /
// (sigma_V sqrt(T)) with the risk-free rate as drift. Each row moves through
// pending, validating and one of converged, invalid_inputs or
// no_convergence; no row-level failure stops a batch.
//
// The accounting approach skips the inversion: DD_a uses a book asset proxy,
// the realized equity volatility and the lagged realized return as drift.
// The two drift conventions differ on purpose.
//
// Batch checks are fatal: CheckBarrierConvention guards the debt unit scale
// before solving and VerifyRoundTrip recomputes every converged DD.
package merton
