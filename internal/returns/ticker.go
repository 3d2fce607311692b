package returns

import (
	"fmt"
	"strings"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/dataprocessing"
)

// DefaultSuffixes are the exchange suffixes stripped from raw instruments
var DefaultSuffixes = []string{".N", ".O", ".OQ", ".K", ".PK", ".A", ".AS"}

// Standardizer maps raw instrument codes to canonical tickers
type Standardizer struct {
	exceptions map[string]string
	suffixes   []string
}

// NewStandardizer creates a standardizer. Exceptions take precedence over
// suffix stripping.
func NewStandardizer(exceptions map[string]string) *Standardizer {
	if exceptions == nil {
		exceptions = map[string]string{}
	}
	return &Standardizer{exceptions: exceptions, suffixes: DefaultSuffixes}
}

// Standardize returns the canonical ticker for a raw instrument
func (s *Standardizer) Standardize(instrument string) string {
	inst := strings.TrimSpace(instrument)
	if inst == "" {
		return ""
	}
	if mapped, ok := s.exceptions[inst]; ok {
		return mapped
	}
	for _, suffix := range s.suffixes {
		if strings.HasSuffix(inst, suffix) && len(inst) > len(suffix) {
			return inst[:len(inst)-len(suffix)]
		}
	}
	return inst
}

// Exceptions returns the number of exception entries
func (s *Standardizer) Exceptions() int {
	return len(s.exceptions)
}

// LoadExceptions reads a ticker exception table. The raw column is
// return_instrument (or raw_instrument, instrument) and the canonical column
// is list_bank_ticker (or canonical_ticker, ticker).
func LoadExceptions(path string) (map[string]string, error) {
	tbl, err := dataprocessing.ReadTable(path)
	if err != nil {
		return nil, err
	}
	rawCol, ok := tbl.FirstOf("return_instrument", "raw_instrument", "instrument")
	if !ok {
		return nil, fmt.Errorf("%s: missing raw instrument column", path)
	}
	canonCol, ok := tbl.FirstOf("list_bank_ticker", "canonical_ticker", "ticker")
	if !ok {
		return nil, fmt.Errorf("%s: missing canonical ticker column", path)
	}

	out := make(map[string]string, len(tbl.Rows))
	for _, row := range tbl.Rows {
		raw := tbl.Value(row, rawCol)
		canon := tbl.Value(row, canonCol)
		if raw != "" && canon != "" {
			out[raw] = canon
		}
	}
	return out, nil
}
