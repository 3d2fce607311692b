package operations

import (
	"sort"
	"time"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/config"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/entity"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/exporter"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/merton"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/outlier"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/returns"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/volatility"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/winsorize"
)

// RunStatus represents the overall run status
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Inputs names the files of one run. Only Returns is required; Panel is
// needed by the DD/PD steps.
type Inputs struct {
	Returns       string
	AnnualReturns string
	Metadata      string
	Exceptions    string
	Panel         string
}

// RunState is the complete state of one pipeline execution. Steps run
// sequentially, so data fields are written by one step and read by later
// ones without locking.
type RunState struct {
	ID        string
	Status    RunStatus
	StartTime time.Time
	EndTime   *time.Time
	Error     error

	Config *config.Config
	Inputs Inputs
	Writer *exporter.CSVWriter

	Steps map[string]*StepState
	order []string

	// load_inputs
	Standardizer *returns.Standardizer
	Metadata     *entity.Metadata
	Observations []returns.Observation
	Direct       []returns.DirectAnnual

	// volatility
	LogPanel   *returns.Panel
	Annual     *returns.AnnualIndex
	Estimates  []volatility.Estimate
	Imputation volatility.ImputationReport
	Quality    volatility.QualityReport

	// merge
	Panel  []PanelRow
	Merged []merton.Input

	// barrier_check, market_solve, accounting
	Barrier    merton.BarrierCheck
	Market     []merton.Result
	Summary    merton.Summary
	Accounting []merton.AccountingResult

	// winsorize
	Final  []FinalRow
	Winsor []winsorize.Report

	// report
	Outliers outlier.Report

	Dropped   *DroppedRows
	RowCounts map[string]int
	Outputs   map[string]string
}

// NewRunState creates the state of a run writing under cfg.Paths.OutputDir
func NewRunState(id string, cfg *config.Config, inputs Inputs) *RunState {
	return &RunState{
		ID:        id,
		Status:    RunStatusPending,
		StartTime: time.Now(),
		Config:    cfg,
		Inputs:    inputs,
		Steps:     make(map[string]*StepState),
		Dropped:   &DroppedRows{},
		RowCounts: make(map[string]int),
		Outputs:   make(map[string]string),
	}
}

// AddStep registers the state of a Step
func (s *RunState) AddStep(step Step) *StepState {
	st := NewStepState(step.ID(), step.Name())
	s.Steps[step.ID()] = st
	s.order = append(s.order, step.ID())
	return st
}

// GetStage returns the state of a Step, or nil
func (s *RunState) GetStage(id string) *StepState {
	return s.Steps[id]
}

// StepStates returns Step states in execution order
func (s *RunState) StepStates() []*StepState {
	out := make([]*StepState, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.Steps[id])
	}
	return out
}

// RecordOutput remembers a written file under its output name
func (s *RunState) RecordOutput(name, path string) {
	s.Outputs[name] = path
}

// OutputNames returns the recorded output names sorted
func (s *RunState) OutputNames() []string {
	names := make([]string, 0, len(s.Outputs))
	for n := range s.Outputs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Complete marks the run as completed
func (s *RunState) Complete() {
	now := time.Now()
	s.EndTime = &now
	s.Status = RunStatusCompleted
}

// Fail marks the run as failed
func (s *RunState) Fail(err error) {
	now := time.Now()
	s.EndTime = &now
	s.Status = RunStatusFailed
	s.Error = err
}
