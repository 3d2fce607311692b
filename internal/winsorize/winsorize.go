package winsorize

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/entity"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/stats"
)

// Grouping selects the comparison groups bounds are computed in
type Grouping string

const (
	Overall  Grouping = "overall"
	Year     Grouping = "year"
	YearSize Grouping = "year_size"
)

// Mode selects what happens to values outside the bounds
type Mode string

const (
	ModeClip Mode = "clip"
	ModeTrim Mode = "trim"
)

// ParseGrouping validates a grouping name
func ParseGrouping(s string) (Grouping, error) {
	switch g := Grouping(s); g {
	case Overall, Year, YearSize:
		return g, nil
	}
	return "", fmt.Errorf("unknown winsorization grouping %q", s)
}

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeClip, ModeTrim:
		return m, nil
	}
	return "", fmt.Errorf("unknown winsorization mode %q", s)
}

// Options configures one winsorization pass
type Options struct {
	Percentile   float64
	MinGroupSize int
	Grouping     Grouping
	Mode         Mode
}

// DefaultOptions clips at the 1st and 99th percentile within year x size
func DefaultOptions() Options {
	return Options{Percentile: 0.01, MinGroupSize: 10, Grouping: YearSize, Mode: ModeClip}
}

// Row is one metric value to winsorize. A nil Value passes through.
type Row struct {
	Ticker string
	Year   int
	Size   entity.SizeBucket
	Value  *float64
}

// Result is aligned with the input rows. Values holds the winsorized value
// of each row (the input value when untouched) and Keep is false for rows a
// trim removed.
type Result struct {
	Metric string
	Values []*float64
	Keep   []bool
}

// GroupKey returns the label of the group a row belongs to
func GroupKey(g Grouping, year int, size entity.SizeBucket) string {
	switch g {
	case Year:
		return strconv.Itoa(year)
	case YearSize:
		return fmt.Sprintf("%d/%s", year, size)
	default:
		return "all"
	}
}

// TrimBounds returns the linearly interpolated p and 1-p quantiles of a
// sorted sample
func TrimBounds(sorted []float64, p float64) (float64, float64) {
	return stats.Quantile(sorted, p), stats.Quantile(sorted, 1-p)
}

// ClipBounds returns the order statistics at or inside the interpolated p
// and 1-p positions of a sorted sample. They equal TrimBounds whenever
// p*(n-1) is integral. Clipping to them leaves both in place, so a second
// pass over clipped values finds the same bounds.
func ClipBounds(sorted []float64, p float64) (float64, float64) {
	lower, upper := stats.QuantileHigher(sorted, p), stats.QuantileLower(sorted, 1-p)
	if lower > upper {
		return TrimBounds(sorted, p)
	}
	return lower, upper
}

// Bounds returns the bounds mode m applies to a sorted sample
func Bounds(m Mode, sorted []float64, p float64) (float64, float64) {
	if m == ModeTrim {
		return TrimBounds(sorted, p)
	}
	return ClipBounds(sorted, p)
}

// Apply winsorizes rows in opts.Mode
func Apply(rows []Row, metric string, opts Options) (Result, Report) {
	if opts.Mode == ModeTrim {
		return Trim(rows, metric, opts)
	}
	return Clip(rows, metric, opts)
}

// Clip bounds each non-exempt group's values to [lower, upper]. Inputs
// are never modified.
func Clip(rows []Row, metric string, opts Options) (Result, Report) {
	opts.Mode = ModeClip
	return run(rows, metric, opts)
}

// Trim drops rows outside [lower, upper] in each non-exempt group
func Trim(rows []Row, metric string, opts Options) (Result, Report) {
	opts.Mode = ModeTrim
	return run(rows, metric, opts)
}

func run(rows []Row, metric string, opts Options) (Result, Report) {
	res := Result{Metric: metric, Values: make([]*float64, len(rows)), Keep: make([]bool, len(rows))}
	rep := Report{Metric: metric, Options: opts}

	groups := make(map[string][]int)
	var order []string
	for i, r := range rows {
		res.Values[i] = r.Value
		res.Keep[i] = true
		if r.Value == nil || !stats.IsFinite(*r.Value) {
			continue
		}
		k := GroupKey(opts.Grouping, r.Year, r.Size)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}
	sort.Strings(order)

	for _, k := range order {
		idx := groups[k]
		before := make([]float64, len(idx))
		for j, i := range idx {
			before[j] = *rows[i].Value
		}
		g := GroupReport{Group: k, N: len(idx), Before: stats.Describe(before)}

		if len(idx) < opts.MinGroupSize {
			g.Exempt = true
			g.After = g.Before
			rep.Groups = append(rep.Groups, g)
			continue
		}

		lower, upper := Bounds(opts.Mode, stats.Sorted(before), opts.Percentile)
		g.Lower, g.Upper = &lower, &upper

		var after []float64
		for _, i := range idx {
			v := *rows[i].Value
			dir := ""
			switch {
			case v < lower:
				dir = DirectionLower
				g.NLower++
			case v > upper:
				dir = DirectionUpper
				g.NUpper++
			}
			if dir == "" {
				after = append(after, v)
				continue
			}

			change := Change{Ticker: rows[i].Ticker, Year: rows[i].Year, Group: k, Before: v, Direction: dir}
			if opts.Mode == ModeTrim {
				res.Keep[i] = false
				change.Removed = true
			} else {
				bound := lower
				if dir == DirectionUpper {
					bound = upper
				}
				res.Values[i] = &bound
				change.After = bound
				after = append(after, bound)
			}
			rep.Affected = append(rep.Affected, change)
		}
		g.After = stats.Describe(after)
		rep.Groups = append(rep.Groups, g)
	}
	return res, rep
}
