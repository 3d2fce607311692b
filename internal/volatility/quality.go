package volatility

import "sort"

// Plausible sigma_E range used by the quality checks
const (
	PlausibleLower = 0.10
	PlausibleUpper = 1.0
)

// YearQuality holds the quality checks of one target year
type YearQuality struct {
	Year      int
	Total     int
	WithSigma int
	InRange   int
	Methods   map[MethodKind]int
}

// Coverage is the share of rows with a sigma_E value
func (y YearQuality) Coverage() float64 {
	if y.Total == 0 {
		return 0
	}
	return float64(y.WithSigma) / float64(y.Total)
}

// InRangeShare is the share of known values inside the plausible range
func (y YearQuality) InRangeShare() float64 {
	if y.WithSigma == 0 {
		return 0
	}
	return float64(y.InRange) / float64(y.WithSigma)
}

// QualityReport aggregates YearQuality over a frame
type QualityReport struct {
	Lower, Upper float64
	Years        []YearQuality
	Overall      YearQuality
}

// CheckQuality computes coverage, method distribution and the share of
// sigma_E inside [lower, upper] per year and overall
func CheckQuality(estimates []Estimate, lower, upper float64) QualityReport {
	byYear := make(map[int]*YearQuality)
	overall := YearQuality{Methods: make(map[MethodKind]int)}
	for _, e := range estimates {
		yq, ok := byYear[e.Year]
		if !ok {
			yq = &YearQuality{Year: e.Year, Methods: make(map[MethodKind]int)}
			byYear[e.Year] = yq
		}
		for _, q := range []*YearQuality{yq, &overall} {
			q.Total++
			q.Methods[e.Method.Kind()]++
			if v, ok := e.Value(); ok {
				q.WithSigma++
				if v >= lower && v <= upper {
					q.InRange++
				}
			}
		}
	}

	report := QualityReport{Lower: lower, Upper: upper, Overall: overall}
	for _, yq := range byYear {
		report.Years = append(report.Years, *yq)
	}
	sort.Slice(report.Years, func(i, j int) bool { return report.Years[i].Year < report.Years[j].Year })
	return report
}
