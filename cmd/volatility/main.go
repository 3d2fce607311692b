// Command volatility estimates the equity volatility frame only and writes
// volatility.csv, volatility_quality.csv and annual_returns.csv.
//
//	volatility -returns returns.csv [-variant monthly|daily|annual] [-meta meta.csv] [-out output]
package main

import (
	"os"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/app"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/operations"
)

func main() {
	os.Exit(app.Main("volatility", os.Args[1:], os.Stderr, false, operations.VolatilityPipeline))
}
