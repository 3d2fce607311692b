package timeintegrity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	apperrors "github.com/GuillaumeBld/Bank-Risk-Analytics/internal/errors"
)

// MuFromLaggedReturn is the mu_hat_from value of rows whose drift is rit(t-1)
const MuFromLaggedReturn = "lagged_return"

// Category names a class of lookahead violation
type Category string

const (
	WindowEnd   Category = "window_end"
	MuSource    Category = "mu_source"
	WindowOrder Category = "window_order"
	FutureLeak  Category = "future_leak"
)

// Categories lists every category in report order
var Categories = []Category{WindowEnd, MuSource, WindowOrder, FutureLeak}

// Message returns the human-readable rule of the category
func (c Category) Message() string {
	switch c {
	case WindowEnd:
		return "σ_E window end must be t-1"
	case MuSource:
		return "μ̂ source year must be t-1 when using lagged return"
	case WindowOrder:
		return "σ_E window start must be <= window end"
	case FutureLeak:
		return "σ_E window cannot include current or future years"
	}
	return string(c)
}

// Row is the provenance of one derived row. Nil fields are not checked.
type Row struct {
	Year            int
	WindowStartYear *int
	WindowEndYear   *int
	MuHatFrom       string
	MuSourceYear    *int
	Ref             string
}

// Provider is implemented by derived rows that carry provenance
type Provider interface {
	TimeRow() Row
}

// Rows collects the provenance of a slice of providers
func Rows[T Provider](items []T) []Row {
	out := make([]Row, len(items))
	for i, it := range items {
		out[i] = it.TimeRow()
	}
	return out
}

// Violation is one failed rule on one row
type Violation struct {
	Ref      string
	Year     int
	Category Category
}

// ViolationError aggregates every violation found in a frame
type ViolationError struct {
	Violations []Violation
	Counts     map[Category]int
}

// Error lists the count and rule of each violated category, followed by a
// sample of offending rows
func (e *ViolationError) Error() string {
	var parts []string
	for _, c := range Categories {
		if n := e.Counts[c]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d row(s) (%s)", c, n, c.Message()))
		}
	}
	const sample = 10
	refs := make([]string, 0, sample)
	for i, v := range e.Violations {
		if i == sample {
			refs = append(refs, fmt.Sprintf("... %d more", len(e.Violations)-sample))
			break
		}
		refs = append(refs, fmt.Sprintf("%s[%s]", v.Ref, v.Category))
	}
	return fmt.Sprintf("%d time integrity violation(s): %s; rows: %s",
		len(e.Violations), strings.Join(parts, "; "), strings.Join(refs, ", "))
}

// Check returns every violation in rows without failing fast
func Check(rows []Row) []Violation {
	var out []Violation
	add := func(r Row, c Category) {
		out = append(out, Violation{Ref: r.Ref, Year: r.Year, Category: c})
	}
	for _, r := range rows {
		if r.WindowEndYear != nil {
			if *r.WindowEndYear != r.Year-1 {
				add(r, WindowEnd)
			}
			if *r.WindowEndYear >= r.Year {
				add(r, FutureLeak)
			}
		}
		if r.MuHatFrom == MuFromLaggedReturn && (r.MuSourceYear == nil || *r.MuSourceYear != r.Year-1) {
			add(r, MuSource)
		}
		if r.WindowStartYear != nil && r.WindowEndYear != nil && *r.WindowStartYear > *r.WindowEndYear {
			add(r, WindowOrder)
		}
	}
	return out
}

// Assert fails with a TIME_INTEGRITY error wrapping a *ViolationError when any
// row violates a rule
func Assert(rows []Row) error {
	violations := Check(rows)
	if len(violations) == 0 {
		return nil
	}
	counts := make(map[Category]int)
	for _, v := range violations {
		counts[v.Category]++
	}
	verr := &ViolationError{Violations: violations, Counts: counts}
	return apperrors.NewTimeIntegrityError("lookahead detected", verr).
		WithContext("violations", len(violations))
}

// Validate is the non-failing variant of Assert. It logs the outcome and
// reports whether every row passed.
func Validate(ctx context.Context, rows []Row, logger *slog.Logger) bool {
	if logger == nil {
		logger = slog.Default()
	}
	violations := Check(rows)
	if len(violations) == 0 {
		logger.InfoContext(ctx, "Time integrity validation passed", "rows", len(rows))
		return true
	}
	counts := make(map[Category]int)
	for _, v := range violations {
		counts[v.Category]++
	}
	attrs := []any{"rows", len(rows), "violations", len(violations)}
	for _, c := range Categories {
		if counts[c] > 0 {
			attrs = append(attrs, string(c), counts[c])
		}
	}
	logger.WarnContext(ctx, "Time integrity validation failed", attrs...)
	return false
}

// Summary is the derived provenance of one row
type Summary struct {
	Ref         string
	Year        int
	WindowYears *int
	LagYears    *int
}

// AddSummary derives window_years (end-start+1) and lag_years (year-end) for
// each row; fields stay nil when the window is unknown
func AddSummary(rows []Row) []Summary {
	out := make([]Summary, len(rows))
	for i, r := range rows {
		s := Summary{Ref: r.Ref, Year: r.Year}
		if r.WindowEndYear != nil {
			lag := r.Year - *r.WindowEndYear
			s.LagYears = &lag
			if r.WindowStartYear != nil {
				span := *r.WindowEndYear - *r.WindowStartYear + 1
				s.WindowYears = &span
			}
		}
		out[i] = s
	}
	return out
}

// CountsByCategory returns the violation counts of err, or nil when err does
// not carry a *ViolationError
func CountsByCategory(err error) map[Category]int {
	var verr *ViolationError
	if !errors.As(err, &verr) {
		return nil
	}
	out := make(map[Category]int, len(verr.Counts))
	for k, v := range verr.Counts {
		out[k] = v
	}
	return out
}

// SortedRefs returns the distinct refs of violating rows
func SortedRefs(violations []Violation) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range violations {
		if !seen[v.Ref] {
			seen[v.Ref] = true
			out = append(out, v.Ref)
		}
	}
	sort.Strings(out)
	return out
}
