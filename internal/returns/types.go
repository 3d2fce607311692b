package returns

import (
	"fmt"
	"sort"
	"time"
)

// Frequency is the sampling period of a return panel
type Frequency int

const (
	Monthly Frequency = iota
	Daily
	Annual
)

// String returns the configuration name of the frequency
func (f Frequency) String() string {
	switch f {
	case Monthly:
		return "monthly"
	case Daily:
		return "daily"
	case Annual:
		return "annual"
	default:
		return fmt.Sprintf("frequency(%d)", int(f))
	}
}

// PeriodsPerYear returns the annualization count of the frequency
func (f Frequency) PeriodsPerYear() float64 {
	switch f {
	case Monthly:
		return 12
	case Daily:
		return 252
	default:
		return 1
	}
}

// ParseFrequency parses "monthly", "daily" or "annual"
func ParseFrequency(s string) (Frequency, error) {
	switch s {
	case "monthly":
		return Monthly, nil
	case "daily":
		return Daily, nil
	case "annual":
		return Annual, nil
	}
	return 0, fmt.Errorf("unknown frequency %q", s)
}

// Observation is one raw row of a return file. ReturnPct is in percent.
type Observation struct {
	Instrument string    `csv:"instrument"`
	Ticker     string    `csv:"ticker" validate:"ticker"`
	Date       time.Time `csv:"date" validate:"required"`
	ReturnPct  float64   `csv:"total_return" validate:"finite"`
	Line       int       `csv:"-"`
}

// Point is one dated value of a series
type Point struct {
	Date  time.Time
	Value float64
}

// Series is a date-ordered sequence of points for one ticker
type Series []Point

// Before returns the prefix of s dated strictly before cutoff
func (s Series) Before(cutoff time.Time) Series {
	i := sort.Search(len(s), func(i int) bool { return !s[i].Date.Before(cutoff) })
	return s[:i]
}

// Between returns the points with from <= date < to
func (s Series) Between(from, to time.Time) Series {
	lo := sort.Search(len(s), func(i int) bool { return !s[i].Date.Before(from) })
	hi := sort.Search(len(s), func(i int) bool { return !s[i].Date.Before(to) })
	if lo > hi {
		return nil
	}
	return s[lo:hi]
}

// Values returns the point values in order
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// Panel holds one series per ticker. Series are sorted ascending with no
// duplicate dates.
type Panel struct {
	Frequency Frequency
	series    map[string]Series
}

// NewPanel creates an empty panel
func NewPanel(freq Frequency) *Panel {
	return &Panel{Frequency: freq, series: make(map[string]Series)}
}

// Set replaces the series of a ticker, sorting it by date
func (p *Panel) Set(ticker string, s Series) {
	sorted := make(Series, len(s))
	copy(sorted, s)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	p.series[ticker] = sorted
}

// Series returns the series of a ticker
func (p *Panel) Series(ticker string) Series {
	return p.series[ticker]
}

// Tickers returns the panel tickers in sorted order
func (p *Panel) Tickers() []string {
	out := make([]string, 0, len(p.series))
	for t := range p.series {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Len returns the total number of points
func (p *Panel) Len() int {
	n := 0
	for _, s := range p.series {
		n += len(s)
	}
	return n
}

// Years returns the sorted set of calendar years covered by the panel
func (p *Panel) Years() []int {
	seen := make(map[int]bool)
	for _, s := range p.series {
		for _, pt := range s {
			seen[pt.Date.Year()] = true
		}
	}
	out := make([]int, 0, len(seen))
	for y := range seen {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

// YearStart returns midnight UTC on January 1 of year
func YearStart(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}
