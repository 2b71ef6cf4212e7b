package operations

import (
	"sync"
	"time"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	"github.com/Simon3728/Data-Analysis-Election/internal/features"
	"github.com/Simon3728/Data-Analysis-Election/internal/selection"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// RunState carries everything the steps of one run hand to each other.
// Steps run one at a time; the mutex guards the fields read by observers
// while the run is in progress.
type RunState struct {
	mu         sync.RWMutex
	ID         string
	Status     domain.RunStatus
	StartedAt  time.Time
	FinishedAt time.Time
	Error      error

	steps map[string]*StepState
	order []string

	// Tables are the loaded indicator tables.
	Tables []*domain.IndicatorTable
	// Verification is the verifier report over Tables.
	Verification *domain.VerificationReport
	// Features is the built feature table before scaling.
	Features *features.Result
	// Table is the model input: Features.Table, standardized when configured.
	Table   *domain.FeatureTable
	Scaling *features.Scaling
	// Models holds one report per evaluated family, in configured order.
	Models   []domain.ModelReport
	Holdouts map[domain.ModelFamily]*selection.Holdout

	artifacts []string
}

// NewRunState creates the state of a run about to execute steps.
func NewRunState(id string, steps []Step) *RunState {
	s := &RunState{
		ID:       id,
		Status:   domain.RunStatusRunning,
		steps:    make(map[string]*StepState, len(steps)),
		Holdouts: make(map[domain.ModelFamily]*selection.Holdout),
	}
	for _, step := range steps {
		s.steps[step.ID()] = NewStepState(step.ID(), step.Name())
		s.order = append(s.order, step.ID())
	}
	return s
}

// Start marks the run as started
func (s *RunState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StartedAt = time.Now().UTC()
	s.Status = domain.RunStatusRunning
}

// Complete marks the run as completed
func (s *RunState) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FinishedAt = time.Now().UTC()
	s.Status = domain.RunStatusCompleted
}

// Fail marks the run as failed
func (s *RunState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FinishedAt = time.Now().UTC()
	s.Status = domain.RunStatusFailed
	s.Error = err
}

// GetStep returns the state of one step, or nil.
func (s *RunState) GetStep(id string) *StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.steps[id]
}

// Steps returns the step states in execution order.
func (s *RunState) Steps() []*StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*StepState, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.steps[id])
	}
	return out
}

// AddArtifact records a file the run wrote.
func (s *RunState) AddArtifact(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paths {
		if p != "" {
			s.artifacts = append(s.artifacts, p)
		}
	}
}

// Indicator returns a loaded or derived indicator table by name.
func (s *RunState) Indicator(name string) (*domain.IndicatorTable, bool) {
	tables := s.Tables
	if s.Features != nil && len(s.Features.Indicators) > 0 {
		tables = s.Features.Indicators
	}
	for _, t := range tables {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Report assembles the run report from whatever the steps produced. A
// failed run reports the parts that completed.
func (s *RunState) Report(analysis config.AnalysisConfig) *domain.RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := &domain.RunReport{
		ID:         s.ID,
		Status:     s.Status,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Label:      analysis.Label,
		Task:       domain.Task(analysis.Task),
		Candidates: append([]string(nil), analysis.Candidates...),
		Folds:      analysis.Folds,
		Models:     make([]domain.ModelReport, 0, len(s.Models)),
		Artifacts:  append([]string(nil), s.artifacts...),
	}
	if report.Task == "" {
		report.Task = domain.TaskRegression
	}
	if s.Table != nil {
		report.Task = s.Table.Task
		report.Rows = s.Table.Len()
	}
	report.Models = append(report.Models, s.Models...)
	if s.Verification != nil {
		report.Verification = domain.VerificationSummary{
			Gaps:     len(s.Verification.Gaps),
			Findings: len(s.Verification.Findings),
		}
	}
	if s.Features != nil {
		report.Exclusions = append([]domain.Exclusion(nil), s.Features.Exclusions...)
	}
	if s.Error != nil {
		report.Error = s.Error.Error()
	}
	return report
}
