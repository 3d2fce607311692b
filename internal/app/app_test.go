package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/config"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/files"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/operations"
)

func writeMonthlyReturns(t *testing.T, path string) {
	t.Helper()
	lines := []string{"Date,Instrument,Total Return"}
	i := 0
	for y := 2016; y <= 2020; y++ {
		for m := 1; m <= 12; m++ {
			lines = append(lines, fmt.Sprintf("%04d-%02d-28,JPM.N,%.3f", y, m, 1+3*math.Cos(0.9*float64(i))))
			i++
		}
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		withPanel bool
		want      Options
		wantErr   error
	}{
		{
			name:      "full pipeline flags",
			args:      []string{"-returns", "r.csv", "-panel", "p.csv", "-variant", "daily", "-out", "/tmp/out"},
			withPanel: true,
			want: Options{OutputDir: "/tmp/out", Variant: "daily",
				Inputs: operations.Inputs{Returns: "r.csv", Panel: "p.csv"}},
		},
		{
			name: "volatility flags",
			args: []string{"-returns", "r.csv", "-meta", "m.csv", "-exceptions", "e.csv", "-annual", "a.csv"},
			want: Options{Inputs: operations.Inputs{Returns: "r.csv", Metadata: "m.csv", Exceptions: "e.csv", AnnualReturns: "a.csv"}},
		},
		{name: "help", args: []string{"-h"}, wantErr: flag.ErrHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFlags("test", tt.args, io.Discard, tt.withPanel)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFlags("volatility", []string{"-panel", "p.csv"}, io.Discard, false)
	assert.Error(t, err, "the volatility command has no panel flag")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("solver:\n  debt_scale: 1000\nvolatility:\n  variant: annual\n"), 0644))

	cfg, err := LoadConfig(Options{ConfigPath: cfgPath, OutputDir: "out"})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, cfg.Solver.DebtScale)
	assert.Equal(t, "annual", cfg.Volatility.Variant)
	assert.True(t, filepath.IsAbs(cfg.Paths.OutputDir))
	assert.Equal(t, "out", filepath.Base(cfg.Paths.OutputDir))

	cfg, err = LoadConfig(Options{ConfigPath: cfgPath, Variant: "daily"})
	require.NoError(t, err)
	assert.Equal(t, "daily", cfg.Volatility.Variant, "flags override the file")

	_, err = LoadConfig(Options{Variant: "weekly"})
	assert.Error(t, err)
}

func TestResolveInputs(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "returns.csv")
	require.NoError(t, os.WriteFile(existing, []byte("x\n"), 0644))

	paths := config.PathsConfig{DataDir: filepath.Join(dir, "missing")}
	got, discovered := ResolveInputs(paths, operations.Inputs{Returns: existing, Panel: "panel.csv"})
	assert.Equal(t, existing, got.Returns)
	assert.Equal(t, filepath.Join(dir, "missing", "panel.csv"), got.Panel)
	assert.Empty(t, got.Metadata)
	assert.Empty(t, discovered)
}

func TestResolveInputs_Discovery(t *testing.T) {
	dataDir := t.TempDir()
	for _, name := range []string{"bank_panel.csv", "monthly_returns.csv", "size_meta.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, name), []byte("x\n"), 0644))
	}

	got, discovered := ResolveInputs(config.PathsConfig{DataDir: dataDir}, operations.Inputs{Metadata: "size_meta.csv"})
	assert.Equal(t, filepath.Join(dataDir, "monthly_returns.csv"), got.Returns)
	assert.Equal(t, filepath.Join(dataDir, "bank_panel.csv"), got.Panel)
	assert.Equal(t, filepath.Join(dataDir, "size_meta.csv"), got.Metadata)
	assert.Equal(t, map[files.Role]string{
		files.RoleReturns: got.Returns,
		files.RolePanel:   got.Panel,
	}, discovered, "explicit inputs are not reported as discovered")
}

func TestMain_VolatilityPipeline(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	t.Setenv("BRA_PATHS_LOGS_DIR", filepath.Join(dir, "logs"))
	returnsPath := filepath.Join(dir, "returns.csv")
	writeMonthlyReturns(t, returnsPath)

	code := Main("volatility", []string{"-returns", returnsPath, "-out", out}, io.Discard, false, operations.VolatilityPipeline)
	require.Equal(t, 0, code)

	for _, name := range []string{config.VolatilityFile, config.AnnualReturnsFile, config.ManifestFile} {
		assert.FileExists(t, filepath.Join(out, name))
	}
	manifest, err := operations.ReadManifest(filepath.Join(out, config.ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, operations.RunStatusCompleted, manifest.Status)
}

func TestMain_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BRA_PATHS_LOGS_DIR", filepath.Join(dir, "logs"))

	assert.Equal(t, 0, Main("ddpd", []string{"-h"}, io.Discard, true, operations.FullPipeline))
	assert.Equal(t, 2, Main("ddpd", []string{"-nope"}, io.Discard, true, operations.FullPipeline))
	assert.Equal(t, 1, Main("ddpd", []string{"-variant", "weekly"}, io.Discard, true, operations.FullPipeline))

	// no returns file: the first stage fails and the manifest records it
	out := filepath.Join(dir, "out")
	assert.Equal(t, 1, Main("ddpd", []string{"-out", out}, io.Discard, true, operations.FullPipeline))
	manifest, err := operations.ReadManifest(filepath.Join(out, config.ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, operations.RunStatusFailed, manifest.Status)
}

func TestApplication_Stop(t *testing.T) {
	t.Setenv("BRA_PATHS_LOGS_DIR", filepath.Join(t.TempDir(), "logs"))
	a, err := NewApplication(Options{OutputDir: t.TempDir()})
	require.NoError(t, err)
	require.NotNil(t, a.Manager)
	assert.NoError(t, a.Stop(context.Background()))
}
