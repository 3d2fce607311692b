package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/config"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/files"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/infrastructure"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/operations"
)

// shutdownTimeout bounds the telemetry flush on exit
const shutdownTimeout = 10 * time.Second

// Pipeline builds the ordered steps a command runs
type Pipeline func(operations.StageDeps) []operations.Step

// Options are the command line settings shared by the pipeline commands
type Options struct {
	ConfigPath string
	OutputDir  string
	Variant    string
	Inputs     operations.Inputs
}

// ParseFlags parses args into Options. -h yields flag.ErrHelp.
func ParseFlags(name string, args []string, stderr io.Writer, withPanel bool) (Options, error) {
	var o Options
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.ConfigPath, "config", "", "YAML configuration file (BRA_* environment variables apply underneath)")
	fs.StringVar(&o.OutputDir, "out", "", "output directory (overrides paths.output_dir)")
	fs.StringVar(&o.Variant, "variant", "", "volatility variant: monthly, daily or annual")
	fs.StringVar(&o.Inputs.Returns, "returns", "", "returns file with Date, Instrument and Total Return columns")
	fs.StringVar(&o.Inputs.AnnualReturns, "annual", "", "optional directly reported annual returns")
	fs.StringVar(&o.Inputs.Metadata, "meta", "", "optional size metadata with dummylarge and dummymid columns")
	fs.StringVar(&o.Inputs.Exceptions, "exceptions", "", "optional ticker exception table")
	if withPanel {
		fs.StringVar(&o.Inputs.Panel, "panel", "", "balance-sheet panel with instrument, year, market_cap and debt_total")
	}
	err := fs.Parse(args)
	return o, err
}

// Application wires configuration, logging, telemetry and the pipeline
// manager for one command invocation
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Telemetry *infrastructure.Telemetry
	Manager   *operations.Manager
}

// NewApplication loads the configuration, applies the flag overrides and
// initializes the ambient stack. Stop releases what it opened.
func NewApplication(o Options) (*Application, error) {
	cfg, err := LoadConfig(o)
	if err != nil {
		return nil, err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("output_dir", cfg.Paths.OutputDir))

	telemetry, err := infrastructure.InitializeTelemetry(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	manager, err := operations.NewManager(cfg, logger, telemetry)
	if err != nil {
		telemetry.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create pipeline manager: %w", err)
	}

	return &Application{Config: cfg, Logger: logger, Telemetry: telemetry, Manager: manager}, nil
}

// LoadConfig builds the configuration for o: defaults, then BRA_*
// environment, then the YAML file, then flags. Paths are made absolute.
func LoadConfig(o Options) (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.OutputDir != "" {
		cfg.Paths.OutputDir = o.OutputDir
	}
	if o.Variant != "" {
		cfg.Volatility.Variant = o.Variant
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	paths, err := cfg.Paths.Resolve("")
	if err != nil {
		return nil, err
	}
	cfg.Paths = paths
	return cfg, nil
}

// ResolveInputs locates each input file: a path that exists as given is
// used directly, anything else is looked up under the data directory. An
// omitted input is filled from the tables discovered in the data directory;
// those are returned by role.
func ResolveInputs(paths config.PathsConfig, in operations.Inputs) (operations.Inputs, map[files.Role]string) {
	discovered := make(map[files.Role]string)
	// an unreadable data directory leaves omitted inputs empty
	found, _ := files.NewDiscovery("").Discover(paths.DataDir)
	resolve := func(name string, role files.Role) string {
		if name == "" {
			if f, ok := found[role]; ok {
				discovered[role] = f.Path
				return f.Path
			}
			return ""
		}
		if config.FileExists(name) {
			return name
		}
		return paths.DataPath(name)
	}
	return operations.Inputs{
		Returns:       resolve(in.Returns, files.RoleReturns),
		AnnualReturns: resolve(in.AnnualReturns, files.RoleAnnualReturns),
		Metadata:      resolve(in.Metadata, files.RoleMetadata),
		Exceptions:    resolve(in.Exceptions, files.RoleExceptions),
		Panel:         resolve(in.Panel, files.RolePanel),
	}, discovered
}

// Execute runs pipeline over inputs and logs every output written
func (a *Application) Execute(ctx context.Context, inputs operations.Inputs, pipeline Pipeline) (*operations.RunState, error) {
	deps := operations.StageDeps{Logger: a.Logger, Metrics: a.Manager.Metrics()}
	resolved, discovered := ResolveInputs(a.Config.Paths, inputs)
	for role, path := range discovered {
		a.Logger.InfoContext(ctx, "Input discovered", slog.String("role", string(role)), slog.String("path", path))
	}
	state, err := a.Manager.Execute(ctx, resolved, pipeline(deps))
	if err != nil {
		return state, err
	}
	for _, name := range state.OutputNames() {
		a.Logger.InfoContext(ctx, "Output written", slog.String("name", name), slog.String("path", state.Outputs[name]))
	}
	return state, nil
}

// Stop flushes telemetry and closes the log file
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var firstErr error
	if a.Telemetry != nil {
		if err := a.Telemetry.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down telemetry", slog.String("error", err.Error()))
			firstErr = err
		}
	}
	if err := infrastructure.CloseLogFile(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Run executes pipeline until it finishes or SIGINT/SIGTERM cancels it
func (a *Application) Run(o Options, pipeline Pipeline) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, runErr := a.Execute(ctx, o.Inputs, pipeline)
	if ctx.Err() != nil {
		a.Logger.Info("Received interrupt signal")
	}
	if err := a.Stop(context.Background()); err != nil && runErr == nil {
		return err
	}
	return runErr
}

// Main is the body of a pipeline command. It returns the process exit code.
func Main(name string, args []string, stderr io.Writer, withPanel bool, pipeline Pipeline) int {
	o, err := ParseFlags(name, args, stderr, withPanel)
	if err == flag.ErrHelp {
		return 0
	}
	if err != nil {
		return 2
	}
	a, err := NewApplication(o)
	if err != nil {
		slog.Error("Failed to start", "command", name, "error", err)
		return 1
	}
	if err := a.Run(o, pipeline); err != nil {
		a.Logger.Error("Pipeline failed", "command", name, "error", err)
		return 1
	}
	return 0
}
