package returns

import (
	"math"
	"sort"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/stats"
)

// Tier records how an annual return was obtained
type Tier int

const (
	// TierExcluded means neither enough months nor a direct value existed
	TierExcluded Tier = iota
	TierCompounded
	TierDirect
)

// String returns the label written to output files
func (t Tier) String() string {
	switch t {
	case TierCompounded:
		return "tier1_compounded"
	case TierDirect:
		return "tier2_direct"
	default:
		return "tier3_excluded"
	}
}

// AnnualReturn is the realized annual return rit of one bank-year
type AnnualReturn struct {
	Ticker string
	Year   int
	Rit    float64 // NaN when excluded
	Tier   Tier
	Months int
}

// Valid reports whether the row carries a usable return
func (a AnnualReturn) Valid() bool {
	return a.Tier != TierExcluded && stats.IsFinite(a.Rit)
}

// CompoundAnnual compounds percent monthly returns into a decimal annual
// return. Non-finite entries are ignored; ok is false when fewer than
// minMonths valid entries remain.
func CompoundAnnual(pcts []float64, minMonths int) (float64, int, bool) {
	growth := 1.0
	n := 0
	for _, p := range pcts {
		if !stats.IsFinite(p) {
			continue
		}
		growth *= 1 + p/100
		n++
	}
	if n == 0 || n < minMonths {
		return math.NaN(), n, false
	}
	return growth - 1, n, true
}

// AnnualIndex maps (ticker, year) to its tiered annual return
type AnnualIndex struct {
	rows map[string]map[int]AnnualReturn
}

// BuildAnnualIndex combines monthly observations and direct annual returns.
// The key set is the union of both sources. A year with at least minMonths
// valid months is compounded, otherwise the direct value is used if present.
func BuildAnnualIndex(monthly []Observation, direct []DirectAnnual, minMonths int) *AnnualIndex {
	type monthKey struct {
		year  int
		month int
	}
	months := make(map[string]map[monthKey]float64)
	for _, o := range monthly {
		byMonth, ok := months[o.Ticker]
		if !ok {
			byMonth = make(map[monthKey]float64)
			months[o.Ticker] = byMonth
		}
		k := monthKey{o.Date.Year(), int(o.Date.Month())}
		if _, dup := byMonth[k]; !dup {
			byMonth[k] = o.ReturnPct
		}
	}

	idx := &AnnualIndex{rows: make(map[string]map[int]AnnualReturn)}
	perYear := make(map[string]map[int][]float64)
	for ticker, byMonth := range months {
		perYear[ticker] = make(map[int][]float64)
		for k, v := range byMonth {
			perYear[ticker][k.year] = append(perYear[ticker][k.year], v)
		}
	}

	directMap := make(map[string]map[int]float64)
	for _, d := range direct {
		if directMap[d.Ticker] == nil {
			directMap[d.Ticker] = make(map[int]float64)
		}
		if _, dup := directMap[d.Ticker][d.Year]; !dup {
			directMap[d.Ticker][d.Year] = d.Return
		}
	}

	keys := make(map[string]map[int]bool)
	mark := func(t string, y int) {
		if keys[t] == nil {
			keys[t] = make(map[int]bool)
		}
		keys[t][y] = true
	}
	for t, ys := range perYear {
		for y := range ys {
			mark(t, y)
		}
	}
	for t, ys := range directMap {
		for y := range ys {
			mark(t, y)
		}
	}

	for t, ys := range keys {
		for y := range ys {
			row := AnnualReturn{Ticker: t, Year: y, Rit: math.NaN(), Tier: TierExcluded}
			rit, n, ok := CompoundAnnual(perYear[t][y], minMonths)
			row.Months = n
			if ok {
				row.Rit, row.Tier = rit, TierCompounded
			} else if d, has := directMap[t][y]; has && stats.IsFinite(d) {
				row.Rit, row.Tier = d, TierDirect
			}
			idx.put(row)
		}
	}
	return idx
}

func (idx *AnnualIndex) put(row AnnualReturn) {
	if idx.rows[row.Ticker] == nil {
		idx.rows[row.Ticker] = make(map[int]AnnualReturn)
	}
	idx.rows[row.Ticker][row.Year] = row
}

// Get returns the annual return of a bank-year
func (idx *AnnualIndex) Get(ticker string, year int) (AnnualReturn, bool) {
	row, ok := idx.rows[ticker][year]
	return row, ok
}

// Lagged returns rit for year-1 exactly. A gap in the history is never
// filled with an older year.
func (idx *AnnualIndex) Lagged(ticker string, year int) (float64, int, bool) {
	row, ok := idx.Get(ticker, year-1)
	if !ok || !row.Valid() {
		return math.NaN(), 0, false
	}
	return row.Rit, row.Year, true
}

// Rows returns every indexed row sorted by ticker and year
func (idx *AnnualIndex) Rows() []AnnualReturn {
	var out []AnnualReturn
	for _, ys := range idx.rows {
		for _, row := range ys {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ticker != out[j].Ticker {
			return out[i].Ticker < out[j].Ticker
		}
		return out[i].Year < out[j].Year
	})
	return out
}

// TierCounts tallies rows per tier
func (idx *AnnualIndex) TierCounts() map[Tier]int {
	out := make(map[Tier]int)
	for _, ys := range idx.rows {
		for _, row := range ys {
			out[row.Tier]++
		}
	}
	return out
}

// Panel returns the valid annual returns as an annual-frequency panel with
// each value dated January 1 of its year
func (idx *AnnualIndex) Panel() *Panel {
	panel := NewPanel(Annual)
	for ticker, ys := range idx.rows {
		var s Series
		for _, row := range ys {
			if row.Valid() {
				s = append(s, Point{Date: YearStart(row.Year), Value: row.Rit})
			}
		}
		if len(s) > 0 {
			panel.Set(ticker, s)
		}
	}
	return panel
}
