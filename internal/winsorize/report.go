package winsorize

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/exporter"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/stats"
)

// Change directions
const (
	DirectionLower = "lower"
	DirectionUpper = "upper"
)

// Change is one clipped or trimmed row
type Change struct {
	Ticker    string
	Year      int
	Group     string
	Before    float64
	After     float64
	Removed   bool
	Direction string
}

// GroupReport describes one comparison group
type GroupReport struct {
	Group  string
	N      int
	NLower int
	NUpper int
	Exempt bool
	Lower  *float64
	Upper  *float64
	Before stats.Summary
	After  stats.Summary
}

// Report documents one winsorization pass for audit
type Report struct {
	Metric   string
	Options  Options
	Groups   []GroupReport
	Affected []Change
}

// Exempt returns the number of groups too small to winsorize
func (r Report) Exempt() int {
	n := 0
	for _, g := range r.Groups {
		if g.Exempt {
			n++
		}
	}
	return n
}

// Text renders the report as a plain-text table
func (r Report) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Metric: %s\n", r.Metric)
	fmt.Fprintf(&b, "Mode: %s, grouping: %s, p=%g, min group size=%d\n",
		r.Options.Mode, r.Options.Grouping, r.Options.Percentile, r.Options.MinGroupSize)
	fmt.Fprintf(&b, "Groups: %d (%d exempt), rows affected: %d\n\n", len(r.Groups), r.Exempt(), len(r.Affected))

	fmt.Fprintf(&b, "%-14s %5s %7s %7s %12s %12s %12s %12s %12s %12s\n",
		"group", "n", "n_lower", "n_upper", "lower", "upper", "mean_before", "mean_after", "std_before", "std_after")
	for _, g := range r.Groups {
		lower, upper := "exempt", "exempt"
		if !g.Exempt {
			lower, upper = num(*g.Lower), num(*g.Upper)
		}
		fmt.Fprintf(&b, "%-14s %5d %7d %7d %12s %12s %12s %12s %12s %12s\n",
			g.Group, g.N, g.NLower, g.NUpper, lower, upper,
			num(g.Before.Mean), num(g.After.Mean), num(g.Before.Std), num(g.After.Std))
	}
	return b.String()
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// RenderText joins the text of several reports
func RenderText(reports []Report) string {
	parts := make([]string, len(reports))
	for i, r := range reports {
		parts[i] = r.Text()
	}
	return strings.Join(parts, "\n")
}

// ChangeHeader is the column layout of the changes file
var ChangeHeader = []string{"metric", "mode", "ticker", "year", "group", "before", "after", "direction"}

// ChangeRecords renders the affected rows of reports. Trimmed rows have an
// empty after value.
func ChangeRecords(reports []Report) [][]string {
	var out [][]string
	for _, r := range reports {
		for _, c := range r.Affected {
			after := exporter.FormatFloat(c.After)
			if c.Removed {
				after = ""
			}
			out = append(out, []string{
				r.Metric, string(r.Options.Mode), c.Ticker, strconv.Itoa(c.Year), c.Group,
				exporter.FormatFloat(c.Before), after, c.Direction,
			})
		}
	}
	return out
}

// GroupHeader is the column layout of the per-group summary sheet
var GroupHeader = []string{
	"metric", "group", "n", "n_lower", "n_upper", "exempt", "lower", "upper",
	"mean_before", "mean_after", "std_before", "std_after", "min_before", "min_after", "max_before", "max_after",
}

// GroupRows renders group reports for the summary workbook
func GroupRows(reports []Report) [][]interface{} {
	var out [][]interface{}
	opt := func(v *float64) interface{} {
		if v == nil {
			return nil
		}
		return *v
	}
	val := func(v float64) interface{} {
		if !stats.IsFinite(v) {
			return nil
		}
		return v
	}
	for _, r := range reports {
		for _, g := range r.Groups {
			out = append(out, []interface{}{
				r.Metric, g.Group, g.N, g.NLower, g.NUpper, g.Exempt, opt(g.Lower), opt(g.Upper),
				val(g.Before.Mean), val(g.After.Mean), val(g.Before.Std), val(g.After.Std),
				val(g.Before.Min), val(g.After.Min), val(g.Before.Max), val(g.After.Max),
			})
		}
	}
	return out
}
