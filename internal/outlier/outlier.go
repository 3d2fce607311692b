package outlier

import (
	"math"
	"sort"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/config"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/merton"
)

// Dataset selects which DD a section classifies
type Dataset int

const (
	Accounting Dataset = iota
	Market
)

// String returns the section label
func (d Dataset) String() string {
	if d == Market {
		return "Market"
	}
	return "Accounting"
}

// Bucket is the likely cause of an extreme DD, in priority order
type Bucket int

const (
	ZeroCostDebt Bucket = iota
	LowDebt
	LowLeverage
	Divergence
	AdditionalReview
)

var bucketNames = [...]string{"zero_cost_debt", "low_debt", "low_leverage", "divergence", "additional_review"}

// String returns the bucket label used in tabular outputs
func (b Bucket) String() string {
	if b < 0 || int(b) >= len(bucketNames) {
		return "unknown"
	}
	return bucketNames[b]
}

// Buckets lists every bucket in priority order
var Buckets = []Bucket{ZeroCostDebt, LowDebt, LowLeverage, Divergence, AdditionalReview}

// Diagnostics are the debt inputs reported alongside one dataset's DD
type Diagnostics struct {
	WaccCost   *float64
	WaccWeight *float64
	DebtTotal  *float64
	DebtEquity *float64
}

// Record joins the accounting and market results of one bank-year
type Record struct {
	Instrument string
	Year       int
	DDa, PDa   *float64
	DDm, PDm   *float64
	Acct       Diagnostics
	Mkt        Diagnostics
}

// DD returns the distance to default of a dataset
func (r Record) DD(d Dataset) *float64 {
	if d == Market {
		return r.DDm
	}
	return r.DDa
}

// Diagnostics returns the debt inputs of a dataset
func (r Record) Diagnostics(d Dataset) Diagnostics {
	if d == Market {
		return r.Mkt
	}
	return r.Acct
}

// Thresholds configure the classifier
type Thresholds struct {
	Threshold      float64
	DivergenceGap  float64
	ZeroTolerance  float64
	LowDebtMax     float64
	LowLeverageMax float64
}

// ThresholdsFromConfig copies the outlier section of the configuration
func ThresholdsFromConfig(cfg config.OutlierConfig) Thresholds {
	return Thresholds{
		Threshold:      cfg.Threshold,
		DivergenceGap:  cfg.DivergenceGap,
		ZeroTolerance:  cfg.ZeroTolerance,
		LowDebtMax:     cfg.LowDebtMax,
		LowLeverageMax: cfg.LowLeverageMax,
	}
}

// IsOutlier reports whether the dataset's DD is known and below threshold
func (t Thresholds) IsOutlier(r Record, d Dataset) bool {
	dd := r.DD(d)
	return dd != nil && *dd < t.Threshold
}

// ZeroCost reports a WACC debt cost and weight both within tolerance of zero
func (t Thresholds) ZeroCost(diag Diagnostics) bool {
	return t.nearZero(diag.WaccCost) && t.nearZero(diag.WaccWeight)
}

// LowDebt reports recorded debt at or below LowDebtMax
func (t Thresholds) LowDebt(diag Diagnostics) bool {
	return diag.DebtTotal != nil && *diag.DebtTotal <= t.LowDebtMax
}

// LowLeverage reports a debt-to-equity ratio at or below LowLeverageMax
func (t Thresholds) LowLeverage(diag Diagnostics) bool {
	return diag.DebtEquity != nil && *diag.DebtEquity <= t.LowLeverageMax
}

// Diverges reports |DDa - DDm| above DivergenceGap when both exist
func (t Thresholds) Diverges(r Record) bool {
	if r.DDa == nil || r.DDm == nil {
		return false
	}
	return math.Abs(*r.DDa-*r.DDm) > t.DivergenceGap
}

func (t Thresholds) nearZero(v *float64) bool {
	return v != nil && math.Abs(*v) <= t.ZeroTolerance
}

// Classify returns the first bucket a record falls in
func (t Thresholds) Classify(r Record, d Dataset) Bucket {
	diag := r.Diagnostics(d)
	switch {
	case t.ZeroCost(diag):
		return ZeroCostDebt
	case t.LowDebt(diag):
		return LowDebt
	case t.LowLeverage(diag):
		return LowLeverage
	case t.Diverges(r):
		return Divergence
	default:
		return AdditionalReview
	}
}

// Section holds the classified outliers of one dataset
type Section struct {
	Dataset Dataset
	Rows    map[Bucket][]Record
}

// Total returns the number of outliers in the section
func (s Section) Total() int {
	n := 0
	for _, rows := range s.Rows {
		n += len(rows)
	}
	return n
}

// Report is the outlier classification of both datasets
type Report struct {
	Thresholds Thresholds
	Sections   []Section
}

// Build classifies records. Rows within a bucket are sorted by instrument
// and year.
func Build(records []Record, t Thresholds) Report {
	sorted := append([]Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Instrument != sorted[j].Instrument {
			return sorted[i].Instrument < sorted[j].Instrument
		}
		return sorted[i].Year < sorted[j].Year
	})

	rep := Report{Thresholds: t}
	for _, d := range []Dataset{Accounting, Market} {
		sec := Section{Dataset: d, Rows: make(map[Bucket][]Record)}
		for _, r := range sorted {
			if !t.IsOutlier(r, d) {
				continue
			}
			b := t.Classify(r, d)
			sec.Rows[b] = append(sec.Rows[b], r)
		}
		rep.Sections = append(rep.Sections, sec)
	}
	return rep
}

// FromResults joins in-memory accounting and market results by bank-year
func FromResults(acct []merton.AccountingResult, market []merton.Result) []Record {
	type key struct {
		ticker string
		year   int
	}
	index := make(map[key]int)
	var out []Record
	get := func(ticker string, year int) *Record {
		k := key{ticker, year}
		if i, ok := index[k]; ok {
			return &out[i]
		}
		index[k] = len(out)
		out = append(out, Record{Instrument: ticker, Year: year})
		return &out[len(out)-1]
	}
	diagnostics := func(in merton.Input) Diagnostics {
		return Diagnostics{WaccCost: in.WaccDebtCost, WaccWeight: in.WaccDebtWeight, DebtTotal: in.DebtTotal, DebtEquity: in.DebtToEquity}
	}

	for _, a := range acct {
		r := get(a.Ticker, a.Year)
		r.DDa, r.PDa = finitePtr(a.DD), finitePtr(a.PD)
		r.Acct = diagnostics(a.Input)
	}
	for _, m := range market {
		r := get(m.Ticker, m.Year)
		r.DDm, r.PDm = finitePtr(m.DD), finitePtr(m.PD)
		r.Mkt = diagnostics(m.Input)
	}
	return out
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
