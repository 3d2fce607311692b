package volatility

import (
	"sort"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/entity"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/stats"
)

// GroupImputation describes the peer median of one (year, size) group
type GroupImputation struct {
	Year     int
	Size     entity.SizeBucket
	Peers    int
	Median   *float64
	Filled   int
	Unfilled int
}

// ImputationReport summarizes a peer-median pass
type ImputationReport struct {
	Groups   []GroupImputation
	Filled   int
	Unfilled int
}

type groupKey struct {
	year int
	size entity.SizeBucket
}

// ImputePeerMedian fills placeholder rows (PeerMedian or NoData) with the
// median sigma_E of same-year same-size rows estimated from their own
// returns. It needs the full cross-section and returns a new slice; the
// input is not modified. Placeholders in a group without peers stay nil.
func ImputePeerMedian(estimates []Estimate) ([]Estimate, ImputationReport) {
	peers := make(map[groupKey][]float64)
	placeholders := make(map[groupKey]int)
	for _, e := range estimates {
		k := groupKey{e.Year, e.SizeBucket}
		if v, ok := e.Value(); ok && IsEstimated(e.Method) {
			peers[k] = append(peers[k], v)
		} else if IsPlaceholder(e.Method) {
			placeholders[k]++
		}
	}

	medians := make(map[groupKey]float64, len(peers))
	for k, vs := range peers {
		medians[k] = stats.Median(vs)
	}

	out := make([]Estimate, len(estimates))
	filled := make(map[groupKey]int)
	for i, e := range estimates {
		out[i] = e
		if !IsPlaceholder(e.Method) {
			continue
		}
		k := groupKey{e.Year, e.SizeBucket}
		m, ok := medians[k]
		if !ok {
			continue
		}
		out[i].SigmaE = floatPtr(m)
		out[i].Method = PeerMedian{Window: e.ObsCount}
		filled[k]++
	}

	var report ImputationReport
	for k, n := range placeholders {
		g := GroupImputation{Year: k.year, Size: k.size, Peers: len(peers[k]), Filled: filled[k], Unfilled: n - filled[k]}
		if m, ok := medians[k]; ok {
			g.Median = floatPtr(m)
		}
		report.Groups = append(report.Groups, g)
		report.Filled += g.Filled
		report.Unfilled += g.Unfilled
	}
	sort.Slice(report.Groups, func(i, j int) bool {
		if report.Groups[i].Year != report.Groups[j].Year {
			return report.Groups[i].Year < report.Groups[j].Year
		}
		return report.Groups[i].Size < report.Groups[j].Size
	})
	return out, report
}
