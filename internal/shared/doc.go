// Package shared holds helpers used across packages that belong to no
// single domain.
//
// testutil provides a recording slog handler for asserting on structured
// log events and generators for the CSV fixtures the pipeline tests read.
// It is imported from _test.go files only.
package shared
