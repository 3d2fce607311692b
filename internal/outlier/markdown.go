package outlier

import (
	"fmt"
	"strconv"
	"strings"
)

const missing = "—"

var bucketHeadings = map[Bucket]string{
	ZeroCostDebt:     "### Zero-Cost Debt Assumptions",
	LowDebt:          "### Recorded Debt ≤ %g",
	LowLeverage:      "### Debt-to-Equity Ratio ≤ %g",
	Divergence:       "### Cross-Model Divergence (|DDa − DDm| > %g)",
	AdditionalReview: "### Additional Review Required",
}

func (t Thresholds) heading(b Bucket) string {
	switch b {
	case LowDebt:
		return fmt.Sprintf(bucketHeadings[b], t.LowDebtMax)
	case LowLeverage:
		return fmt.Sprintf(bucketHeadings[b], t.LowLeverageMax)
	case Divergence:
		return fmt.Sprintf(bucketHeadings[b], t.DivergenceGap)
	}
	return bucketHeadings[b]
}

// FormatDD renders a DD with two decimals, "—" when missing
func FormatDD(v *float64) string {
	if v == nil {
		return missing
	}
	return fmt.Sprintf("%.2f", *v)
}

// FormatPD renders a PD as "0", two decimals from 0.01 up, or scientific
// notation below, "—" when missing
func FormatPD(v *float64) string {
	switch {
	case v == nil:
		return missing
	case *v == 0:
		return "0"
	case *v >= 0.01:
		return fmt.Sprintf("%.2f", *v)
	default:
		return fmt.Sprintf("%.2e", *v)
	}
}

func flag(b bool) string {
	if b {
		return "✓"
	}
	return ""
}

// Markdown renders the report
func (rep Report) Markdown() string {
	t := rep.Thresholds
	lines := []string{
		fmt.Sprintf("# Distance-to-Default Outliers (<%g)", t.Threshold),
		"",
		fmt.Sprintf("This document lists bank-year combinations with accounting (DDa) or market (DDm) distance-to-default scores below %g.", t.Threshold),
		"Entries are grouped by the data issues most often behind extreme scores: zero-cost debt assumptions, negligible recorded debt, very low leverage, or a large gap between the two models.",
		"Remaining outliers are listed separately for review.",
		"",
		"A dash (" + missing + ") marks a metric that was unavailable, for example when the market solver did not converge.",
		"",
	}
	for _, sec := range rep.Sections {
		lines = append(lines, rep.section(sec)...)
	}
	return strings.Join(lines, "\n") + "\n"
}

func (rep Report) section(sec Section) []string {
	t := rep.Thresholds
	out := []string{
		fmt.Sprintf("## %s DD Outliers", sec.Dataset),
		"",
		fmt.Sprintf("* Total flagged outliers (<%g): **%d**", t.Threshold, sec.Total()),
		fmt.Sprintf("* Zero-cost debt inputs: **%d**", len(sec.Rows[ZeroCostDebt])),
		fmt.Sprintf("* Recorded debt ≤ %g: **%d**", t.LowDebtMax, len(sec.Rows[LowDebt])),
		fmt.Sprintf("* Debt-to-equity ratio ≤ %g: **%d**", t.LowLeverageMax, len(sec.Rows[LowLeverage])),
		fmt.Sprintf("* Cross-model divergence > %g: **%d**", t.DivergenceGap, len(sec.Rows[Divergence])),
		fmt.Sprintf("* Additional review required: **%d**", len(sec.Rows[AdditionalReview])),
		"",
	}
	for _, b := range Buckets {
		rows := sec.Rows[b]
		if len(rows) == 0 {
			continue
		}
		out = append(out, t.heading(b), "")
		out = append(out, t.table(rows, sec.Dataset, b == AdditionalReview)...)
		out = append(out, "")
	}
	return out
}

func (t Thresholds) table(rows []Record, d Dataset, review bool) []string {
	header := []string{"Instrument", "Year", "DDa", "DDm", "PDa", "PDm", "Zero-Cost Debt",
		fmt.Sprintf("Debt ≤ %g", t.LowDebtMax), fmt.Sprintf("D/E ≤ %g", t.LowLeverageMax)}
	if review {
		header = append(header, "Needs Investigation")
	}
	divider := make([]string, len(header))
	for i := range divider {
		divider[i] = "---"
	}

	lines := []string{
		"| " + strings.Join(header, " | ") + " |",
		"| " + strings.Join(divider, " | ") + " |",
	}
	for _, r := range rows {
		diag := r.Diagnostics(d)
		cells := []string{
			r.Instrument,
			strconv.Itoa(r.Year),
			FormatDD(r.DDa),
			FormatDD(r.DDm),
			FormatPD(r.PDa),
			FormatPD(r.PDm),
			flag(t.ZeroCost(diag)),
			flag(t.LowDebt(diag)),
			flag(t.LowLeverage(diag)),
		}
		if review {
			cells = append(cells, "⚠")
		}
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
	}
	return lines
}
