// Package config provides configuration for the DD/PD pipeline.
// It loads settings from struct defaults, environment variables and an
// optional YAML file, and validates the result before any stage runs.
//
// # Configuration Sources
//
// Sources are applied in this order, later ones overriding earlier ones:
//
//	1. Default values from the `default` struct tags
//	2. Environment variables prefixed with BRA_
//	3. The YAML file passed to Load (only the keys it contains)
//
// A checked-in YAML file therefore pins a run regardless of the shell
// environment it is started from.
//
// # Environment Variables
//
//	BRA_LOGGING_LEVEL=debug
//	BRA_PATHS_OUTPUT_DIR=/tmp/out
//	BRA_VOLATILITY_VARIANT=daily
//	BRA_SOLVER_DEBT_SCALE=1000000
//	BRA_WINSORIZE_GROUPING=year
//	BRA_PIPELINE_WORKERS=8
//
// # Usage
//
//	cfg, err := config.Load("configs/ddpd.yaml")
//	if err != nil {
//	    slog.Error("failed to load config", "error", err)
//	    os.Exit(1)
//	}
package config
