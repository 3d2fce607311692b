package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/config"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/entity"
	apperrors "github.com/GuillaumeBld/Bank-Risk-Analytics/internal/errors"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/infrastructure"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/merton"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/returns"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/timeintegrity"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/validation"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/volatility"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/winsorize"
)

// StageDeps are the collaborators shared by every stage
type StageDeps struct {
	Logger  *slog.Logger
	Metrics *infrastructure.PipelineMetrics
}

func (d StageDeps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// VolatilityPipeline returns the steps that produce the volatility frame
func VolatilityPipeline(deps StageDeps) []Step {
	return []Step{
		NewLoadInputsStage(deps),
		NewVolatilityStage(deps),
	}
}

// FullPipeline returns every step from raw returns to the outlier report
func FullPipeline(deps StageDeps) []Step {
	return append(VolatilityPipeline(deps),
		NewMergeStage(deps),
		NewBarrierStage(deps),
		NewMarketStage(deps),
		NewAccountingStage(deps),
		NewWinsorizeStage(deps),
		NewReportStage(deps),
	)
}

// gate runs the time-integrity validator and fails on any violation
func gate(ctx context.Context, deps StageDeps, name string, rows []timeintegrity.Row) error {
	err := timeintegrity.Assert(rows)
	if err == nil {
		deps.logger().InfoContext(ctx, "Time integrity gate passed", "gate", name, "rows", len(rows))
		return nil
	}
	for c, n := range timeintegrity.CountsByCategory(err) {
		deps.Metrics.RecordViolations(ctx, string(c), n)
	}
	var verr *timeintegrity.ViolationError
	if errors.As(err, &verr) {
		refs := timeintegrity.SortedRefs(verr.Violations)
		if len(refs) > 10 {
			refs = refs[:10]
		}
		deps.logger().ErrorContext(ctx, "Time integrity gate failed",
			"gate", name,
			"violations", len(verr.Violations),
			"rows", strings.Join(refs, ","))
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		appErr.WithContext("gate", name)
	}
	return err
}

// LoadInputsStage reads the ticker exceptions, size metadata, returns and
// optional direct annual returns
type LoadInputsStage struct {
	BaseStage
	deps StageDeps
}

// NewLoadInputsStage creates the input loading stage
func NewLoadInputsStage(deps StageDeps) *LoadInputsStage {
	return &LoadInputsStage{BaseStage: NewBaseStage(StageLoadInputs, "Load inputs"), deps: deps}
}

// Validate requires a readable returns file and checks the optional inputs
func (s *LoadInputsStage) Validate(state *RunState) error {
	in := state.Inputs
	if in.Returns == "" {
		return apperrors.NewConfigError("no returns file given", nil)
	}
	files := validation.NewFileValidator(s.deps.logger())
	if err := files.ValidateInputFile(in.Returns); err != nil {
		return apperrors.NewConfigError("invalid returns file", err)
	}
	for _, path := range []string{in.AnnualReturns, in.Metadata, in.Exceptions} {
		if err := files.ValidateOptionalInputFile(path); err != nil {
			return apperrors.NewConfigError("invalid input file", err)
		}
	}
	return nil
}

// Execute implements Step
func (s *LoadInputsStage) Execute(ctx context.Context, state *RunState) error {
	logger := s.deps.logger()

	var exceptions map[string]string
	if path := state.Inputs.Exceptions; path != "" {
		m, err := returns.LoadExceptions(path)
		if err != nil {
			return err
		}
		exceptions = m
	}
	state.Standardizer = returns.NewStandardizer(exceptions)

	state.Metadata = entity.NewMetadata()
	if path := state.Inputs.Metadata; path != "" {
		loader := entity.NewLoader(state.Standardizer.Standardize, logger)
		if err := loader.LoadSizes(path, state.Metadata); err != nil {
			return apperrors.NewParsingError("failed to read size metadata", err).WithContext("source", path)
		}
		if err := loader.LoadCompanies(path, state.Metadata); err != nil {
			logger.DebugContext(ctx, "No company names in metadata", "source", path, "error", err)
		}
	}

	loader := returns.NewLoader(state.Standardizer, logger)
	obs, stats, err := loader.Load(state.Inputs.Returns)
	if err != nil {
		return err
	}
	state.Observations = obs
	s.deps.Metrics.RecordDropped(ctx, StageLoadInputs, "unparseable", stats.Skipped)

	if path := state.Inputs.AnnualReturns; path != "" {
		direct, err := loader.LoadDirectAnnual(path)
		if err != nil {
			return err
		}
		state.Direct = direct
	}

	state.RowCounts[StageLoadInputs] = len(obs)
	state.RowCounts["returns_rows_read"] = stats.Rows
	state.RowCounts["returns_rows_skipped"] = stats.Skipped
	state.RowCounts["direct_annual_returns"] = len(state.Direct)
	logger.InfoContext(ctx, "Inputs loaded",
		"observations", len(obs),
		"skipped", stats.Skipped,
		"exceptions", state.Standardizer.Exceptions(),
		"size_rows", state.Metadata.Len(),
		"direct_annual", len(state.Direct))
	return nil
}

// VolatilityStage normalizes returns, estimates sigma_E, imputes peer
// medians and runs the first time-integrity gate
type VolatilityStage struct {
	BaseStage
	deps StageDeps
}

// NewVolatilityStage creates the volatility stage
func NewVolatilityStage(deps StageDeps) *VolatilityStage {
	return &VolatilityStage{BaseStage: NewBaseStage(StageVolatility, "Equity volatility"), deps: deps}
}

// Validate requires loaded observations
func (s *VolatilityStage) Validate(state *RunState) error {
	if state.Observations == nil {
		return apperrors.NewAppError(apperrors.ErrTypeInternal, "volatility stage needs loaded returns", nil)
	}
	return nil
}

// Execute implements Step
func (s *VolatilityStage) Execute(ctx context.Context, state *RunState) error {
	cfg := state.Config
	logger := s.deps.logger()

	policy, err := volatility.PolicyFromConfig(cfg.Volatility)
	if err != nil {
		return apperrors.NewConfigError("invalid volatility settings", err)
	}

	minMonths := cfg.Volatility.AnnualTierMinMonths
	var drops returns.DropCounts
	switch policy.Frequency {
	case returns.Daily:
		state.LogPanel, drops = returns.BuildLogPanel(state.Observations, returns.Daily, cfg.Volatility.MaxAbsLogReturn)
		state.Annual = returns.BuildAnnualIndex(nil, state.Direct, minMonths)
	case returns.Annual:
		state.Annual = returns.BuildAnnualIndex(state.Observations, state.Direct, minMonths)
		state.LogPanel = state.Annual.Panel()
	default:
		state.LogPanel, drops = returns.BuildLogPanel(state.Observations, returns.Monthly, cfg.Volatility.MaxAbsLogReturn)
		state.Annual = returns.BuildAnnualIndex(state.Observations, state.Direct, minMonths)
	}
	for _, reason := range drops.Reasons() {
		s.deps.Metrics.RecordDropped(ctx, StageVolatility, reason, drops[reason])
	}

	years := volatility.TargetYears(state.LogPanel, cfg.Pipeline.StartYear, cfg.Pipeline.EndYear)
	estimator := volatility.NewEstimator(policy, state.Metadata,
		volatility.WithWorkers(cfg.Pipeline.Workers),
		volatility.WithLogger(logger),
		volatility.WithMetrics(s.deps.Metrics))
	estimates, err := estimator.EstimateAll(ctx, state.LogPanel, years)
	if err != nil {
		return err
	}

	imputed, report := volatility.ImputePeerMedian(estimates)
	state.Estimates, state.Imputation = imputed, report
	state.Quality = volatility.CheckQuality(imputed, volatility.PlausibleLower, volatility.PlausibleUpper)

	if err := gate(ctx, s.deps, "volatility", timeintegrity.Rows(imputed)); err != nil {
		return err
	}

	for _, e := range imputed {
		if e.SigmaE == nil {
			state.Dropped.Add(StageVolatility, e.Ticker, e.Year, DropMissingSigma, e.Method.Kind().String())
		}
	}

	if err := writeTable(state, config.VolatilityFile, volatility.Header, volatility.Records(imputed)); err != nil {
		return err
	}
	if err := writeTable(state, config.VolatilityQualityFile, volatility.QualityHeader, volatility.QualityRecords(state.Quality)); err != nil {
		return err
	}
	if err := writeTable(state, config.AnnualReturnsFile, returns.AnnualHeader, returns.AnnualRecords(state.Annual)); err != nil {
		return err
	}

	state.RowCounts[StageVolatility] = len(imputed)
	state.RowCounts["log_returns_dropped"] = drops.Total()
	state.RowCounts["peer_median_filled"] = report.Filled
	state.RowCounts["peer_median_unfilled"] = report.Unfilled
	logger.InfoContext(ctx, "Volatility frame ready",
		"variant", policy.Frequency.String(),
		"estimates", len(imputed),
		"dropped_returns", drops.Total(),
		"imputed", report.Filled,
		"annual_tiers", tierSummary(state.Annual),
		"unfilled", report.Unfilled,
		"coverage", state.Quality.Overall.Coverage(),
		"in_range", state.Quality.Overall.InRangeShare())
	return nil
}

// MergeStage loads the balance-sheet panel, attaches sigma_E and mu_hat,
// and runs the second time-integrity gate
type MergeStage struct {
	BaseStage
	deps StageDeps
}

// NewMergeStage creates the merge stage
func NewMergeStage(deps StageDeps) *MergeStage {
	return &MergeStage{BaseStage: NewBaseStage(StageMerge, "Merge panel"), deps: deps}
}

// Validate requires a panel file and the volatility frame
func (s *MergeStage) Validate(state *RunState) error {
	if state.Inputs.Panel == "" {
		return apperrors.NewConfigError("no panel file given", nil)
	}
	if err := validation.NewFileValidator(s.deps.logger()).ValidateInputFile(state.Inputs.Panel); err != nil {
		return apperrors.NewConfigError("invalid panel file", err)
	}
	if state.Estimates == nil {
		return apperrors.NewAppError(apperrors.ErrTypeInternal, "merge stage needs the volatility frame", nil)
	}
	return nil
}

// Execute implements Step
func (s *MergeStage) Execute(ctx context.Context, state *RunState) error {
	logger := s.deps.logger()
	rows, pstats, err := LoadPanel(state.Inputs.Panel, state.Standardizer, state.Config.Solver.Horizon, state.Dropped, logger)
	if err != nil {
		return err
	}
	s.deps.Metrics.RecordDropped(ctx, StageMerge, DropInvalidPanelRow, pstats.Invalid)
	s.deps.Metrics.RecordDropped(ctx, StageMerge, DropDuplicate, pstats.Duplicates)

	merged, mstats := Merge(rows, state.Estimates, state.Annual, state.Metadata, state.Dropped)
	if err := gate(ctx, s.deps, "merged_panel", timeintegrity.Rows(merged)); err != nil {
		return err
	}
	state.Panel, state.Merged = rows, merged

	state.RowCounts[StageMerge] = len(merged)
	state.RowCounts["panel_rows_read"] = pstats.Rows
	logger.InfoContext(ctx, "Panel merged",
		"rows", mstats.Rows,
		"with_sigma", mstats.WithSigma,
		"with_mu_hat", mstats.WithMuHat,
		"missing_sigma", mstats.MissingSigma,
		"missing_mu_hat", mstats.MissingMuHat)
	return nil
}

// BarrierStage verifies that F equals debt_total times the debt scale
type BarrierStage struct {
	BaseStage
	deps StageDeps
}

// NewBarrierStage creates the barrier convention check
func NewBarrierStage(deps StageDeps) *BarrierStage {
	return &BarrierStage{BaseStage: NewBaseStage(StageBarrier, "Barrier convention"), deps: deps}
}

// Execute implements Step
func (s *BarrierStage) Execute(ctx context.Context, state *RunState) error {
	sc := state.Config.Solver
	check, err := merton.CheckBarrierConvention(state.Merged, sc.DebtScale, sc.BarrierMinPassRate, sc.BarrierRelTol)
	state.Barrier = check
	if err != nil {
		return err
	}
	state.RowCounts[StageBarrier] = check.Checked
	s.deps.logger().InfoContext(ctx, "Barrier convention verified",
		"checked", check.Checked,
		"skipped", check.Skipped,
		"pass_rate", check.PassRate())
	return nil
}

// MarketStage solves the Merton system for every merged row, verifies the
// stored DD and writes the market results and summary
type MarketStage struct {
	BaseStage
	deps StageDeps
}

// NewMarketStage creates the market solver stage
func NewMarketStage(deps StageDeps) *MarketStage {
	return &MarketStage{BaseStage: NewBaseStage(StageMarket, "Market DD/PD"), deps: deps}
}

// Execute implements Step
func (s *MarketStage) Execute(ctx context.Context, state *RunState) error {
	cfg := state.Config
	solver := merton.NewSolver(cfg.Solver, cfg.Pipeline.Workers, s.deps.logger(), s.deps.Metrics)
	results, err := solver.SolveAll(ctx, state.Merged)
	if err != nil {
		return err
	}
	if err := merton.VerifyRoundTrip(results, cfg.Solver.RoundTripAbsTol, cfg.Solver.RoundTripRelTol); err != nil {
		return err
	}
	summary, err := merton.Summarize(results)
	if err != nil {
		return err
	}
	state.Market, state.Summary = results, summary

	for _, r := range results {
		switch r.Status {
		case merton.StatusInvalidInputs:
			state.Dropped.Add(StageMarket, r.Ticker, r.Year, DropInvalidInputs, r.Reasons...)
		case merton.StatusNoConvergence:
			state.Dropped.Add(StageMarket, r.Ticker, r.Year, DropNoConvergence, r.Reasons...)
		}
	}

	if err := writeTable(state, config.MarketResultsFile, merton.MarketHeader, merton.MarketRecords(results)); err != nil {
		return err
	}
	if err := writeTable(state, config.MarketSummaryFile, merton.SummaryHeader, merton.SummaryRecords(summary)); err != nil {
		return err
	}
	state.RowCounts[StageMarket] = len(results)
	state.RowCounts["market_converged"] = summary.Converged
	return nil
}

// AccountingStage computes the closed-form accounting DD
type AccountingStage struct {
	BaseStage
	deps StageDeps
}

// NewAccountingStage creates the accounting DD stage
func NewAccountingStage(deps StageDeps) *AccountingStage {
	return &AccountingStage{BaseStage: NewBaseStage(StageAccounting, "Accounting DD/PD"), deps: deps}
}

// Execute implements Step
func (s *AccountingStage) Execute(ctx context.Context, state *RunState) error {
	results := merton.AccountingAll(state.Merged, state.Config.Solver.DebtScale)
	state.Accounting = results

	valid := 0
	for _, r := range results {
		if r.Valid {
			valid++
			continue
		}
		state.Dropped.Add(StageAccounting, r.Ticker, r.Year, DropInvalidInputs, r.Reasons...)
	}
	s.deps.Metrics.RecordDropped(ctx, StageAccounting, DropInvalidInputs, len(results)-valid)

	if err := writeTable(state, config.AccountingResultsFile, merton.AccountingHeader, merton.AccountingRecords(results)); err != nil {
		return err
	}
	state.RowCounts[StageAccounting] = len(results)
	state.RowCounts["accounting_valid"] = valid
	s.deps.logger().InfoContext(ctx, "Accounting DD computed", "rows", len(results), "valid", valid)
	return nil
}

// WinsorizeStage builds the combined panel, winsorizes the configured
// metrics and runs the final time-integrity gate
type WinsorizeStage struct {
	BaseStage
	deps StageDeps
}

// NewWinsorizeStage creates the winsorization stage
func NewWinsorizeStage(deps StageDeps) *WinsorizeStage {
	return &WinsorizeStage{BaseStage: NewBaseStage(StageWinsorize, "Winsorize"), deps: deps}
}

// Validate checks the configured metric names
func (s *WinsorizeStage) Validate(state *RunState) error {
	if err := checkMetrics(state.Config.Winsorize.Metrics); err != nil {
		return apperrors.NewConfigError("invalid winsorization metrics", err)
	}
	return nil
}

// Execute implements Step
func (s *WinsorizeStage) Execute(ctx context.Context, state *RunState) error {
	wc := state.Config.Winsorize
	opts, err := WinsorOptions(wc)
	if err != nil {
		return apperrors.NewConfigError("invalid winsorization settings", err)
	}

	final := BuildFinal(state.Merged, state.Market, state.Accounting)
	final, trimmed, reports := WinsorizeFinal(final, wc.Metrics, opts)
	if err := gate(ctx, s.deps, "final_panel", timeintegrity.Rows(final)); err != nil {
		return err
	}
	state.Final, state.Winsor = final, reports

	for _, rep := range reports {
		s.deps.Metrics.RecordWinsorized(ctx, rep.Metric, string(opts.Mode), len(rep.Affected))
	}
	for _, r := range trimmed {
		state.Dropped.Add(StageWinsorize, r.Ticker, r.Year, DropTrimmed, r.Trimmed...)
	}

	if err := writeTable(state, config.PanelFile, PanelHeader(wc.Metrics), PanelRecords(final, wc.Metrics)); err != nil {
		return err
	}
	path, err := state.Writer.WriteText(config.WinsorReportFile, winsorize.RenderText(reports))
	if err != nil {
		return apperrors.NewStorageError("failed to write winsorization report", err)
	}
	state.RecordOutput(config.WinsorReportFile, path)
	if err := writeTable(state, config.WinsorChangesFile, winsorize.ChangeHeader, winsorize.ChangeRecords(reports)); err != nil {
		return err
	}

	state.RowCounts[StageWinsorize] = len(final)
	s.deps.logger().InfoContext(ctx, "Winsorization applied",
		"rows", len(final),
		"metrics", strings.Join(wc.Metrics, ","),
		"mode", string(opts.Mode),
		"grouping", string(opts.Grouping))
	return nil
}

func writeTable(state *RunState, name string, header []string, records [][]string) error {
	path, err := state.Writer.WriteTable(name, header, records)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to write %s", name), err)
	}
	state.RecordOutput(name, path)
	return nil
}

// tierSummary renders the annual return tier counts as tier=count pairs
func tierSummary(idx *returns.AnnualIndex) string {
	if idx == nil {
		return ""
	}
	counts := idx.TierCounts()
	tiers := make([]returns.Tier, 0, len(counts))
	for t := range counts {
		tiers = append(tiers, t)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i] < tiers[j] })
	parts := make([]string, 0, len(tiers))
	for _, t := range tiers {
		parts = append(parts, fmt.Sprintf("%s=%d", t, counts[t]))
	}
	return strings.Join(parts, " ")
}
