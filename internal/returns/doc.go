// Package returns loads raw equity return files and turns them into the
// inputs of the volatility and accounting models.
//
// Raw files carry percent returns keyed by a vendor instrument code. The
// Standardizer maps instruments to canonical bank tickers using an exception
// table first and exchange-suffix stripping second. BuildLogPanel converts
// percent returns to log returns, drops unusable rows by reason and collapses
// duplicate (ticker, date) pairs to their first occurrence.
//
// AnnualIndex holds the tiered annual return rit used as the lagged drift:
// compounded from monthly returns when enough months exist, otherwise taken
// from a directly reported value, otherwise excluded.
package returns
