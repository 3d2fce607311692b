// Command ddpd runs the full distance-to-default pipeline: sigma_E
// estimation, panel merge, barrier check, Merton market and accounting
// DD/PD, winsorization and the outlier report.
//
//	ddpd -returns returns.csv -panel panel.csv [-meta meta.csv] [-exceptions exceptions.csv] [-out output] [-config config.yaml]
package main

import (
	"os"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/app"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/operations"
)

func main() {
	os.Exit(app.Main("ddpd", os.Args[1:], os.Stderr, true, operations.FullPipeline))
}
