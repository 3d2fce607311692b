// Package volatility estimates annualized equity volatility (sigma_E) per
// bank-year using only returns dated before the target year.
//
// A Policy selects the look-back window and applies a tier cascade: a full
// window gives a sample standard deviation, a short monthly window falls
// back to EWMA and a short daily window to a flagged partial estimate.
// Anything thinner becomes a placeholder that ImputePeerMedian fills from
// same-year same-size peers once the whole cross-section is known.
//
// Every Estimate records the calendar span of its window so the
// timeintegrity gate can reject lookahead.
package volatility
