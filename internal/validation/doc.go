// Package validation checks pipeline inputs at stage entry.
//
// Struct applies go-playground/validator tags (plus the finite, ticker and
// year rules registered by Schema) to one typed row, and FileValidator
// checks input files and output directories before any stage runs.
package validation
