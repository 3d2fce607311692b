package operations

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/GuillaumeBld/Bank-Risk-Analytics/internal/errors"
)

// Step is one stage of a pipeline run. Steps run in order and share a
// RunState; a step reads what earlier steps left there.
type Step interface {
	// ID returns the unique identifier for this Step
	ID() string

	// Name returns the human-readable name for this Step
	Name() string

	// Execute runs the Step against the run state
	Execute(ctx context.Context, state *RunState) error

	// Validate checks that earlier steps produced what this Step needs
	Validate(state *RunState) error
}

// StepStatus represents the current status of a Step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState is the runtime record of one step. The manager writes it; the
// manifest reads it through Snapshot.
type StepState struct {
	mu        sync.RWMutex
	ID        string
	Name      string
	Status    StepStatus
	StartTime *time.Time
	EndTime   *time.Time
	Rows      int
	Message   string
	Error     error
	ErrorType apperrors.ErrorType
}

// NewStepState creates a pending step record
func NewStepState(id, name string) *StepState {
	return &StepState{ID: id, Name: name, Status: StepStatusPending}
}

func (s *StepState) transition(status StepStatus, update func(now time.Time)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = status
	update(time.Now())
}

// Start marks the step active
func (s *StepState) Start() {
	s.transition(StepStatusActive, func(now time.Time) { s.StartTime = &now })
}

// Complete records the rows the step emitted
func (s *StepState) Complete(rows int) {
	s.transition(StepStatusCompleted, func(now time.Time) {
		s.EndTime = &now
		s.Rows = rows
	})
}

// Fail records err and its category, empty for errors outside the taxonomy
func (s *StepState) Fail(err error) {
	s.transition(StepStatusFailed, func(now time.Time) {
		s.EndTime = &now
		s.Error = err
		s.ErrorType = apperrors.TypeOf(err)
	})
}

// Skip marks a step that never ran
func (s *StepState) Skip(reason string) {
	s.transition(StepStatusSkipped, func(time.Time) { s.Message = reason })
}

// Snapshot returns status, rows and error under the lock
func (s *StepState) Snapshot() (StepStatus, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status, s.Rows, s.Error
}

// Duration is the wall time of the step, running time while still active
func (s *StepState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.StartTime == nil:
		return 0
	case s.EndTime == nil:
		return time.Since(*s.StartTime)
	default:
		return s.EndTime.Sub(*s.StartTime)
	}
}

// BaseStage carries the identity of a step. Embedding it gives a step ID,
// Name and a Validate that accepts any state.
type BaseStage struct {
	id   string
	name string
}

// NewBaseStage creates a base with the given identity
func NewBaseStage(id, name string) BaseStage {
	return BaseStage{id: id, name: name}
}

// ID returns the step ID
func (b *BaseStage) ID() string {
	if b == nil {
		return ""
	}
	return b.id
}

// Name returns the display name
func (b *BaseStage) Name() string {
	if b == nil {
		return ""
	}
	return b.name
}

// Validate accepts any state
func (b *BaseStage) Validate(state *RunState) error {
	if b == nil {
		return fmt.Errorf("BaseStage is nil")
	}
	return nil
}
