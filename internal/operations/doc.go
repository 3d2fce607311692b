// Package operations runs the DD/PD batch as an ordered list of steps over a
// shared RunState.
//
// The full pipeline is:
//
//	load_inputs    returns, ticker exceptions, size metadata, direct annual returns
//	volatility     log returns, sigma_E per bank-year, peer-median imputation, gate #1
//	merge          balance-sheet panel joined with sigma_E and lagged mu_hat, gate #2
//	barrier_check  F = debt_total x scale on at least the configured share of rows
//	market_solve   Merton system per row, round-trip DD check, quantile summary
//	accounting     closed-form accounting DD
//	winsorize      combined panel, winsorized metrics, gate #3
//	report         outlier markdown and summary workbook
//
// Every gate is the time-integrity validator: a single violation fails the run.
// Row-level problems never fail a run; they are collected in DroppedRows and
// written to dropped_rows.csv. The Manager writes the run manifest and the
// metrics textfile whether the run succeeds or not.
package operations
