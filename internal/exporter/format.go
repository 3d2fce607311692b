package exporter

import (
	"math"
	"strconv"
	"strings"
)

// FormatFloat renders a float with the shortest exact representation, in
// plain decimal notation unless the magnitude is tiny or huge. NaN and
// infinities render as an empty cell.
func FormatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	if abs := math.Abs(f); f == 0 || (abs >= 1e-4 && abs < 1e15) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// FormatOptionalFloat renders nil as an empty cell
func FormatOptionalFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return FormatFloat(*f)
}

// FormatOptionalInt renders nil as an empty cell
func FormatOptionalInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

// FormatBool formats a boolean value for CSV output
func FormatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// FormatList joins values with a semicolon
func FormatList(values []string) string {
	return strings.Join(values, ";")
}
