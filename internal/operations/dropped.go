package operations

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Stage identifiers used as Step IDs and in the dropped-rows file
const (
	StageLoadInputs = "load_inputs"
	StageVolatility = "volatility"
	StageMerge      = "merge"
	StageBarrier    = "barrier_check"
	StageMarket     = "market_solve"
	StageAccounting = "accounting"
	StageWinsorize  = "winsorize"
	StageReport     = "report"
)

// Reasons a bank-year is missing from a result set
const (
	DropMissingSigma    = "missing_sigma"
	DropMissingMuHat    = "missing_mu_hat"
	DropInvalidPanelRow = "invalid_panel_row"
	DropDuplicate       = "duplicate"
	DropInvalidInputs   = "invalid_inputs"
	DropNoConvergence   = "no_convergence"
	DropTrimmed         = "trimmed"
)

// DroppedRow is one bank-year excluded at a stage
type DroppedRow struct {
	Stage   string
	Ticker  string
	Year    int
	Reason  string
	Details []string
}

// DroppedRows collects row-local exclusions. Row-level problems never
// fail a run; they end up here.
type DroppedRows struct {
	mu   sync.Mutex
	rows []DroppedRow
}

// Add records an exclusion. A nil receiver records nothing.
func (d *DroppedRows) Add(stage, ticker string, year int, reason string, details ...string) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rows = append(d.rows, DroppedRow{Stage: stage, Ticker: ticker, Year: year, Reason: reason, Details: details})
}

// Len returns the number of recorded exclusions
func (d *DroppedRows) Len() int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rows)
}

// Rows returns the exclusions sorted by stage, ticker, year and reason
func (d *DroppedRows) Rows() []DroppedRow {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	out := append([]DroppedRow(nil), d.rows...)
	d.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Stage != b.Stage {
			return stageRank(a.Stage) < stageRank(b.Stage)
		}
		if a.Ticker != b.Ticker {
			return a.Ticker < b.Ticker
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Reason < b.Reason
	})
	return out
}

// Counts returns the number of exclusions per "stage/reason"
func (d *DroppedRows) Counts() map[string]int {
	counts := make(map[string]int)
	for _, r := range d.Rows() {
		counts[r.Stage+"/"+r.Reason]++
	}
	return counts
}

// DroppedHeader is the column layout of the dropped-rows file
var DroppedHeader = []string{"stage", "instrument", "year", "reason", "details"}

// Records renders the exclusions in DroppedHeader order
func (d *DroppedRows) Records() [][]string {
	rows := d.Rows()
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.Stage, r.Ticker, strconv.Itoa(r.Year), r.Reason, strings.Join(r.Details, ";")})
	}
	return out
}

var stageOrder = []string{
	StageLoadInputs, StageVolatility, StageMerge, StageBarrier,
	StageMarket, StageAccounting, StageWinsorize, StageReport,
}

func stageRank(stage string) int {
	for i, s := range stageOrder {
		if s == stage {
			return i
		}
	}
	return len(stageOrder)
}
