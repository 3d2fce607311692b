package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete pipeline configuration
type Config struct {
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	Volatility VolatilityConfig `yaml:"volatility" envconfig:"VOLATILITY"`
	Solver     SolverConfig     `yaml:"solver" envconfig:"SOLVER"`
	Winsorize  WinsorizeConfig  `yaml:"winsorize" envconfig:"WINSORIZE"`
	Outlier    OutlierConfig    `yaml:"outlier" envconfig:"OUTLIER"`
	Pipeline   PipelineConfig   `yaml:"pipeline" envconfig:"PIPELINE"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/pipeline.log"`
}

// PathsConfig contains file system locations for inputs and outputs
type PathsConfig struct {
	DataDir   string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"output" validate:"required"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// VolatilityConfig holds the window lengths and tier thresholds of each estimator variant
type VolatilityConfig struct {
	Variant string `yaml:"variant" envconfig:"VARIANT" default:"monthly" validate:"oneof=monthly daily annual"`

	MonthlyWindow      int     `yaml:"monthly_window" envconfig:"MONTHLY_WINDOW" default:"36" validate:"gt=0"`
	MonthlyPrimaryMin  int     `yaml:"monthly_primary_min" envconfig:"MONTHLY_PRIMARY_MIN" default:"24" validate:"gt=1,ltefield=MonthlyWindow"`
	MonthlyFallbackMin int     `yaml:"monthly_fallback_min" envconfig:"MONTHLY_FALLBACK_MIN" default:"12" validate:"gt=0,ltefield=MonthlyPrimaryMin"`
	EWMALambda         float64 `yaml:"ewma_lambda" envconfig:"EWMA_LAMBDA" default:"0.94" validate:"gt=0,lt=1"`

	DailyWindow      int `yaml:"daily_window" envconfig:"DAILY_WINDOW" default:"252" validate:"gt=0"`
	DailyPrimaryMin  int `yaml:"daily_primary_min" envconfig:"DAILY_PRIMARY_MIN" default:"180" validate:"gt=1,ltefield=DailyWindow"`
	DailyFallbackMin int `yaml:"daily_fallback_min" envconfig:"DAILY_FALLBACK_MIN" default:"90" validate:"gt=1,ltefield=DailyPrimaryMin"`

	AnnualWindow     int `yaml:"annual_window" envconfig:"ANNUAL_WINDOW" default:"3" validate:"gt=0"`
	AnnualPrimaryMin int `yaml:"annual_primary_min" envconfig:"ANNUAL_PRIMARY_MIN" default:"2" validate:"gt=1,ltefield=AnnualWindow"`

	// MaxAbsLogReturn drops single-period moves larger than this before any window is built.
	MaxAbsLogReturn float64 `yaml:"max_abs_log_return" envconfig:"MAX_ABS_LOG_RETURN" default:"1.0" validate:"gt=0"`
	// AnnualTierMinMonths is the number of valid months needed to compound an annual return.
	AnnualTierMinMonths int `yaml:"annual_tier_min_months" envconfig:"ANNUAL_TIER_MIN_MONTHS" default:"9" validate:"gte=1,lte=12"`
}

// SolverConfig contains Merton solver and barrier settings
type SolverConfig struct {
	Tolerance     float64 `yaml:"tolerance" envconfig:"TOLERANCE" default:"1e-6" validate:"gt=0"`
	MaxIterations int     `yaml:"max_iterations" envconfig:"MAX_ITERATIONS" default:"100" validate:"gt=0"`
	Horizon       float64 `yaml:"horizon" envconfig:"HORIZON" default:"1.0" validate:"gt=0"`

	DebtScale          float64 `yaml:"debt_scale" envconfig:"DEBT_SCALE" default:"1000000" validate:"gt=0"`
	BarrierMinPassRate float64 `yaml:"barrier_min_pass_rate" envconfig:"BARRIER_MIN_PASS_RATE" default:"0.99" validate:"gt=0,lte=1"`
	BarrierRelTol      float64 `yaml:"barrier_rel_tol" envconfig:"BARRIER_REL_TOL" default:"1e-9" validate:"gt=0"`

	RoundTripAbsTol float64 `yaml:"round_trip_abs_tol" envconfig:"ROUND_TRIP_ABS_TOL" default:"1e-8" validate:"gt=0"`
	RoundTripRelTol float64 `yaml:"round_trip_rel_tol" envconfig:"ROUND_TRIP_REL_TOL" default:"1e-8" validate:"gte=0"`
}

// WinsorizeConfig contains winsorization settings
type WinsorizeConfig struct {
	Percentile   float64  `yaml:"percentile" envconfig:"PERCENTILE" default:"0.01" validate:"gt=0,lt=0.5"`
	MinGroupSize int      `yaml:"min_group_size" envconfig:"MIN_GROUP_SIZE" default:"10" validate:"gte=2"`
	Mode         string   `yaml:"mode" envconfig:"MODE" default:"clip" validate:"oneof=clip trim"`
	Grouping     string   `yaml:"grouping" envconfig:"GROUPING" default:"year_size" validate:"oneof=overall year year_size"`
	Metrics      []string `yaml:"metrics" envconfig:"METRICS" default:"sigma_E,DD_a,DD_m" validate:"dive,oneof=sigma_E DD_a DD_m PD_a PD_m"`
}

// OutlierConfig contains the thresholds of the DD outlier classifier
type OutlierConfig struct {
	Threshold      float64 `yaml:"threshold" envconfig:"THRESHOLD" default:"13"`
	DivergenceGap  float64 `yaml:"divergence_gap" envconfig:"DIVERGENCE_GAP" default:"5" validate:"gt=0"`
	ZeroTolerance  float64 `yaml:"zero_tolerance" envconfig:"ZERO_TOLERANCE" default:"1e-6" validate:"gte=0"`
	LowDebtMax     float64 `yaml:"low_debt_max" envconfig:"LOW_DEBT_MAX" default:"1"`
	LowLeverageMax float64 `yaml:"low_leverage_max" envconfig:"LOW_LEVERAGE_MAX" default:"0.05"`
}

// PipelineConfig contains batch execution settings
type PipelineConfig struct {
	// Workers bounds per-entity parallelism; 0 means one per CPU.
	Workers   int `yaml:"workers" envconfig:"WORKERS" default:"0" validate:"gte=0"`
	StartYear int `yaml:"start_year" envconfig:"START_YEAR" default:"0" validate:"gte=0"`
	EndYear   int `yaml:"end_year" envconfig:"END_YEAR" default:"0" validate:"gte=0"`
}

// TelemetryConfig contains tracing and metrics output settings
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME" default:"bank-risk-analytics"`
	TraceFile   string `yaml:"trace_file" envconfig:"TRACE_FILE" default:""`
	MetricsFile string `yaml:"metrics_file" envconfig:"METRICS_FILE" default:"metrics.prom"`
}

// Load builds the configuration from defaults and BRA_* environment variables,
// then applies the YAML file at path (if any) on top.
func Load(path string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile overlays the keys present in a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct constraints and cross-field rules
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Pipeline.EndYear != 0 && c.Pipeline.StartYear > c.Pipeline.EndYear {
		return fmt.Errorf("pipeline start year %d is after end year %d", c.Pipeline.StartYear, c.Pipeline.EndYear)
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		return fmt.Errorf("logging output %q requires a file path", c.Logging.Output)
	}
	return nil
}

// Default returns the configuration produced by the struct defaults alone
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/pipeline.log",
		},
		Paths: PathsConfig{
			DataDir:   "data",
			OutputDir: "output",
			LogsDir:   "logs",
		},
		Volatility: VolatilityConfig{
			Variant:             "monthly",
			MonthlyWindow:       36,
			MonthlyPrimaryMin:   24,
			MonthlyFallbackMin:  12,
			EWMALambda:          DefaultEWMALambda,
			DailyWindow:         TradingDaysPerYear,
			DailyPrimaryMin:     180,
			DailyFallbackMin:    90,
			AnnualWindow:        3,
			AnnualPrimaryMin:    2,
			MaxAbsLogReturn:     1.0,
			AnnualTierMinMonths: 9,
		},
		Solver: SolverConfig{
			Tolerance:          1e-6,
			MaxIterations:      100,
			Horizon:            DefaultHorizon,
			DebtScale:          DefaultDebtScale,
			BarrierMinPassRate: 0.99,
			BarrierRelTol:      1e-9,
			RoundTripAbsTol:    1e-8,
			RoundTripRelTol:    1e-8,
		},
		Winsorize: WinsorizeConfig{
			Percentile:   0.01,
			MinGroupSize: 10,
			Mode:         "clip",
			Grouping:     "year_size",
			Metrics:      []string{"sigma_E", "DD_a", "DD_m"},
		},
		Outlier: OutlierConfig{
			Threshold:      DefaultOutlierThreshold,
			DivergenceGap:  5,
			ZeroTolerance:  1e-6,
			LowDebtMax:     1,
			LowLeverageMax: 0.05,
		},
		Telemetry: TelemetryConfig{
			Enabled:     true,
			ServiceName: AppName,
			MetricsFile: "metrics.prom",
		},
	}
}
