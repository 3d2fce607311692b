// Command outlier-report classifies extreme distance-to-default values from
// previously written accounting and market result tables and renders the
// markdown outlier report.
//
//	outlier-report -accounting dd_pd_accounting.csv -market dd_pd_market.csv [-out outliers.md] [-threshold 13]
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/config"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/exporter"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/infrastructure"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/outlier"
)

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		if err == flag.ErrHelp {
			return
		}
		slog.Error("Outlier report failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("outlier-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML configuration file")
	accountingPath := fs.String("accounting", "", "accounting results (instrument, year, DD_a, PD_a)")
	marketPath := fs.String("market", "", "market results (instrument, year, DD_m, PD_m)")
	outPath := fs.String("out", "", "report path (defaults to outliers.md in the output directory)")
	threshold := fs.Float64("threshold", 0, "flag rows with DD below this value (overrides outlier.threshold)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *accountingPath == "" && *marketPath == "" {
		return fmt.Errorf("at least one of -accounting and -market is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *threshold > 0 {
		cfg.Outlier.Threshold = *threshold
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	records, err := outlier.Load(*accountingPath, *marketPath)
	if err != nil {
		return err
	}
	report := outlier.Build(records, outlier.ThresholdsFromConfig(cfg.Outlier))

	target := *outPath
	if target == "" {
		target = cfg.Paths.OutputPath(config.OutlierReportFile)
	}
	path, err := exporter.NewCSVWriter("", logger).WriteText(target, report.Markdown())
	if err != nil {
		return err
	}

	attrs := []any{slog.String("path", path), slog.Int("records", len(records))}
	for _, sec := range report.Sections {
		attrs = append(attrs, slog.Int(sec.Dataset.String(), sec.Total()))
	}
	logger.Info("Outlier report written", attrs...)
	return nil
}
