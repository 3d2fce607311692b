package testutil

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// WriteTable writes lines as a file named name under dir and returns its path
func WriteTable(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// MonthlyReturns renders a returns table with one month-end percent return
// per instrument and month from January of firstYear to December of
// lastYear. Returns oscillate around 1% with a 4 point amplitude and a
// phase offset per instrument, so every series has non-zero volatility.
func MonthlyReturns(firstYear, lastYear int, instruments ...string) []string {
	lines := []string{"Date,Instrument,Total Return"}
	for k, inst := range instruments {
		i := 0
		for y := firstYear; y <= lastYear; y++ {
			for m := time.January; m <= time.December; m++ {
				d := time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
				pct := 1 + 4*math.Sin(0.7*float64(i)+float64(k))
				lines = append(lines, fmt.Sprintf("%s,%s,%.4f", d.Format("2006-01-02"), inst, pct))
				i++
			}
		}
	}
	return lines
}
