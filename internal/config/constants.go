package config

// Application constants for the DD/PD pipeline
const (
	AppName    = "bank-risk-analytics"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable, e.g. BRA_SOLVER_DEBT_SCALE
	EnvPrefix = "BRA"

	// Annualization
	MonthsPerYear      = 12
	TradingDaysPerYear = 252

	DefaultEWMALambda       = 0.94
	DefaultHorizon          = 1.0
	DefaultDebtScale        = 1_000_000.0
	DefaultOutlierThreshold = 13.0
)

// Output file names written under PathsConfig.OutputDir
const (
	VolatilityFile        = "volatility.csv"
	VolatilityQualityFile = "volatility_quality.csv"
	AnnualReturnsFile     = "annual_returns.csv"
	MarketResultsFile     = "dd_pd_market.csv"
	AccountingResultsFile = "dd_pd_accounting.csv"
	MarketSummaryFile     = "dd_pd_market_summary.csv"
	PanelFile             = "dd_pd_panel.csv"
	WinsorReportFile      = "winsorization.txt"
	WinsorChangesFile     = "winsorization_changes.csv"
	DroppedRowsFile       = "dropped_rows.csv"
	OutlierReportFile     = "outliers.md"
	SummaryWorkbookFile   = "summary.xlsx"
	ManifestFile          = "manifest.yaml"
)
