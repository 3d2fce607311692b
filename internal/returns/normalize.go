package returns

import (
	"math"
	"sort"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/stats"
)

// Drop reasons reported by BuildLogPanel
const (
	DropNonFinite     = "non_finite"
	DropTotalLoss     = "total_loss"
	DropSevereOutlier = "severe_outlier"
	DropDuplicate     = "duplicate"
)

// DropCounts tallies dropped observations by reason
type DropCounts map[string]int

// Total returns the number of dropped observations
func (d DropCounts) Total() int {
	n := 0
	for _, c := range d {
		n += c
	}
	return n
}

// Reasons returns the reasons present in sorted order
func (d DropCounts) Reasons() []string {
	out := make([]string, 0, len(d))
	for r := range d {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// LogReturn converts a percent return to a log return. ok is false when
// 1+r is not positive or the input is not finite.
func LogReturn(pct float64) (float64, bool) {
	if !stats.IsFinite(pct) {
		return 0, false
	}
	r := pct / 100
	if 1+r <= 0 {
		return 0, false
	}
	return math.Log1p(r), true
}

// BuildLogPanel normalizes percent observations into a log-return panel.
// Each ticker keeps the first observation seen for a date; later duplicates,
// non-finite values, total losses and moves with |log return| > maxAbs are
// dropped and counted. maxAbs <= 0 disables the outlier screen.
func BuildLogPanel(obs []Observation, freq Frequency, maxAbs float64) (*Panel, DropCounts) {
	drops := DropCounts{}
	type key struct {
		ticker string
		day    int64
	}
	seen := make(map[key]bool, len(obs))
	byTicker := make(map[string]Series)

	for _, o := range obs {
		k := key{o.Ticker, o.Date.Unix()}
		if seen[k] {
			drops[DropDuplicate]++
			continue
		}
		seen[k] = true

		if !stats.IsFinite(o.ReturnPct) {
			drops[DropNonFinite]++
			continue
		}
		lr, ok := LogReturn(o.ReturnPct)
		if !ok {
			drops[DropTotalLoss]++
			continue
		}
		if maxAbs > 0 && math.Abs(lr) > maxAbs {
			drops[DropSevereOutlier]++
			continue
		}
		byTicker[o.Ticker] = append(byTicker[o.Ticker], Point{Date: o.Date, Value: lr})
	}

	panel := NewPanel(freq)
	for t, s := range byTicker {
		panel.Set(t, s)
	}
	return panel, drops
}
