// Package exporter writes pipeline outputs to disk.
//
// CSVWriter resolves relative names against the run's output directory and
// writes whole tables and plain text reports. The Format
// helpers render optional values as empty cells so missing numbers never
// appear as zeros. WorkbookWriter assembles the multi-sheet summary
// workbook with excelize.
package exporter
