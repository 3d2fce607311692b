package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/config"
	apperrors "github.com/GuillaumeBld/Bank-Risk-Analytics/internal/errors"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/exporter"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/infrastructure"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/validation"
)

// Manager runs pipeline steps in order against one RunState and writes the
// run manifest and metrics textfile when the run ends, whatever its outcome
type Manager struct {
	config    *config.Config
	logger    *slog.Logger
	telemetry *infrastructure.Telemetry
	metrics   *infrastructure.PipelineMetrics
	tracer    *StageTracer
}

// NewManager creates a manager. telemetry may be nil, in which case no
// spans or metrics are recorded.
func NewManager(cfg *config.Config, logger *slog.Logger, telemetry *infrastructure.Telemetry) (*Manager, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		config:    cfg,
		logger:    infrastructure.WithComponent(logger, "pipeline"),
		telemetry: telemetry,
		tracer:    NewStageTracer(nil),
	}
	if telemetry != nil {
		metrics, err := infrastructure.NewPipelineMetrics(telemetry.Meter)
		if err != nil {
			return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
		}
		m.metrics = metrics
		m.tracer = NewStageTracer(telemetry.Tracer)
	}
	return m, nil
}

// Metrics returns the instruments steps record on; nil without telemetry
func (m *Manager) Metrics() *infrastructure.PipelineMetrics {
	return m.metrics
}

// Execute runs steps sequentially. The first failing step stops the run and
// the remaining steps are marked skipped. The returned state is never nil.
func (m *Manager) Execute(ctx context.Context, inputs Inputs, steps []Step) (*RunState, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	runID := infrastructure.GetRunID(ctx)

	state := NewRunState(runID, m.config, inputs)
	state.Writer = exporter.NewCSVWriter(m.config.Paths.OutputDir, m.logger)
	for _, step := range steps {
		state.AddStep(step)
	}

	ctx, span := m.tracer.TraceRun(ctx, runID, m.config.Volatility.Variant)
	defer span.End()

	state.Status = RunStatusRunning
	m.logger.InfoContext(ctx, "run_start",
		slog.String("variant", m.config.Volatility.Variant),
		slog.Int("stage_count", len(steps)),
		slog.String("output_dir", m.config.Paths.OutputDir))

	var runErr error
	if err := m.config.Paths.EnsureDirectories(); err != nil {
		runErr = fmt.Errorf("failed to prepare output directories: %w", err)
	} else if err := validation.NewFileValidator(m.logger).ValidateOutputDirectory(m.config.Paths.OutputDir); err != nil {
		runErr = apperrors.NewStorageError("output directory not usable", err)
	}

	for i, step := range steps {
		if runErr != nil {
			state.GetStage(step.ID()).Skip("previous stage failed")
			continue
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			state.GetStage(step.ID()).Skip("run cancelled")
			continue
		}

		m.logger.InfoContext(ctx, "executing_stage",
			slog.String("stage", step.ID()),
			slog.Int("stage_number", i+1),
			slog.Int("total_stages", len(steps)))
		if err := m.executeStage(ctx, state, step); err != nil {
			infrastructure.WithError(m.logger, err).ErrorContext(ctx, "stage_failed",
				slog.String("stage", step.ID()),
				slog.String("error_type", string(apperrors.TypeOf(err))),
				slog.Bool("fatal", apperrors.IsFatal(err)))
			runErr = err
		}
	}

	if runErr != nil {
		state.Fail(runErr)
		infrastructure.RecordError(ctx, runErr)
	} else {
		state.Complete()
	}
	m.finish(ctx, state)
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"run.status":       string(state.Status),
		"run.dropped_rows": state.Dropped.Len(),
		"run.outputs":      len(state.Outputs),
	})

	m.logger.InfoContext(ctx, "run_finished",
		slog.String("status", string(state.Status)),
		slog.Duration("duration", state.EndTime.Sub(state.StartTime)),
		slog.Int("dropped_rows", state.Dropped.Len()))
	return state, runErr
}

func (m *Manager) executeStage(ctx context.Context, state *RunState, step Step) error {
	st := state.GetStage(step.ID())
	ctx = infrastructure.ContextWithTraceID(ctx)
	ctx, span := m.tracer.TraceStage(ctx, state.ID, step)

	st.Start()
	err := step.Validate(state)
	if err == nil {
		err = step.Execute(ctx, state)
	}
	rows := state.RowCounts[step.ID()]

	m.tracer.EndStage(span, rows, err)
	m.metrics.RecordStage(ctx, step.ID(), st.Duration(), err)
	if err != nil {
		st.Fail(err)
		return err
	}
	st.Complete(rows)
	m.metrics.RecordRows(ctx, step.ID(), rows)

	m.logger.InfoContext(ctx, "stage_completed",
		slog.String("stage", step.ID()),
		slog.Int("rows", rows),
		slog.Duration("duration", st.Duration()))
	return nil
}

// finish writes the metrics textfile and the run manifest. Failures here
// are logged and never replace the run outcome.
func (m *Manager) finish(ctx context.Context, state *RunState) {
	if path, err := state.Writer.WriteTable(config.DroppedRowsFile, DroppedHeader, state.Dropped.Records()); err != nil {
		m.logger.WarnContext(ctx, "dropped_rows_write_failed", slog.String("error", err.Error()))
	} else {
		state.RecordOutput(config.DroppedRowsFile, path)
	}

	if m.telemetry != nil && m.config.Telemetry.MetricsFile != "" {
		path := m.config.Paths.OutputPath(m.config.Telemetry.MetricsFile)
		if err := m.telemetry.WriteMetrics(path); err != nil {
			m.logger.WarnContext(ctx, "metrics_write_failed", slog.String("error", err.Error()))
		} else {
			state.RecordOutput("metrics", path)
		}
	}

	if state.EndTime == nil {
		now := time.Now()
		state.EndTime = &now
	}
	path := m.config.Paths.OutputPath(config.ManifestFile)
	if err := NewRunManifest(state).Write(path); err != nil {
		m.logger.WarnContext(ctx, "manifest_write_failed", slog.String("error", err.Error()))
		return
	}
	m.logger.InfoContext(ctx, "manifest_written", slog.String("path", path))
}
