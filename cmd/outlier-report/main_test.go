package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	acct := filepath.Join(dir, "acct.csv")
	mkt := filepath.Join(dir, "mkt.csv")
	out := filepath.Join(dir, "report", "outliers.md")

	writeCSV(t, acct,
		"instrument,year,DD_a,PD_a,debt_total,wacc_debt_cost,wacc_debt_weight,de_ratio",
		"JPM,2020,25.5,0,0,0,0,0",
		"BAC,2020,3.1,0.001,500,3,40,2",
	)
	writeCSV(t, mkt,
		"instrument,year,DD_m,PD_m,debt_total,wacc_debt_cost,wacc_debt_weight,de_ratio",
		"JPM,2020,14.2,0,0,0,0,0",
		"BAC,2020,4.0,0.0005,500,3,40,2",
	)

	require.NoError(t, run([]string{"-accounting", acct, "-market", mkt, "-out", out}, io.Discard))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	md := string(data)
	assert.Contains(t, md, "# Distance-to-Default Outliers")
	assert.Contains(t, md, "## Accounting DD Outliers")
	assert.Contains(t, md, "| BAC | 2020 |")
	assert.NotContains(t, md, "| JPM |")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no inputs", args: nil},
		{name: "missing file", args: []string{"-accounting", filepath.Join(t.TempDir(), "none.csv")}},
		{name: "unknown flag", args: []string{"-bogus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, run(tt.args, io.Discard))
		})
	}
}
