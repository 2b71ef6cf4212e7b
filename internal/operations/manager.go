package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	"github.com/Simon3728/Data-Analysis-Election/internal/infrastructure"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// ReportWriter persists finished run reports.
type ReportWriter interface {
	ExportRunReport(report *domain.RunReport) ([]string, error)
}

// Manager executes the registered steps of a run in order.
type Manager struct {
	registry *Registry
	analysis config.AnalysisConfig
	reports  ReportWriter
	tracer   *OperationTracer
	logger   *slog.Logger
}

// NewManager creates a manager. reports and tracer may be nil.
func NewManager(registry *Registry, analysis config.AnalysisConfig, reports ReportWriter, tracer *OperationTracer, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = NewOperationTracer(nil, nil)
	}
	return &Manager{
		registry: registry,
		analysis: analysis,
		reports:  reports,
		tracer:   tracer,
		logger:   infrastructure.WithComponent(logger, "operations"),
	}
}

// Execute runs every step once. The run report is built and written even
// when a step fails; the returned error is the failing step's.
func (m *Manager) Execute(ctx context.Context) (*RunState, *domain.RunReport, error) {
	ctx, runID := infrastructure.StartRun(ctx)
	steps := m.registry.List()
	state := NewRunState(runID, steps)

	ctx, span := m.tracer.TraceRun(ctx, runID, m.analysis.Label, m.analysis.Models.Families)
	logger := m.logger.With(slog.String("run_id", runID))

	state.Start()
	logger.InfoContext(ctx, "run started", slog.Int("steps", len(steps)))

	err := m.executeSequential(ctx, logger, state, steps)
	if err != nil {
		state.Fail(err)
	} else {
		state.Complete()
	}

	report := state.Report(m.analysis)
	if m.reports != nil {
		paths, werr := m.reports.ExportRunReport(report)
		if werr != nil {
			logger.ErrorContext(ctx, "failed to write run report", slog.String("error", werr.Error()))
			if err == nil {
				err = fmt.Errorf("write run report: %w", werr)
				state.Fail(err)
				report.Status = domain.RunStatusFailed
				report.Error = err.Error()
			}
		} else {
			report.Artifacts = append(report.Artifacts, paths...)
		}
	}

	duration := state.FinishedAt.Sub(state.StartedAt)
	m.tracer.RecordRunCompletion(ctx, span, string(report.Status), duration, err)
	if err != nil {
		logger.ErrorContext(ctx, "run failed",
			slog.String("step", FailedStep(err)),
			slog.String("error", err.Error()),
			slog.Duration("duration", duration))
	} else {
		logger.InfoContext(ctx, "run completed",
			slog.Int("models", len(report.Models)),
			slog.Duration("duration", duration))
	}
	return state, report, err
}

// executeSequential executes steps one by one. After a failure or
// cancellation the remaining steps are skipped.
func (m *Manager) executeSequential(ctx context.Context, logger *slog.Logger, state *RunState, steps []Step) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			logger.WarnContext(ctx, "run cancelled", slog.String("step", step.ID()))
			m.skipRemaining(ctx, state, steps[i:], "run cancelled")
			return NewCancellationError(step.ID(), err)
		}

		logger.InfoContext(ctx, "executing step",
			slog.String("step", step.ID()),
			slog.Int("step_number", i+1),
			slog.Int("total_steps", len(steps)))

		if err := m.executeStep(ctx, state, step); err != nil {
			m.skipRemaining(ctx, state, steps[i+1:], fmt.Sprintf("previous step %s failed", step.ID()))
			return err
		}
	}
	return nil
}

// executeStep runs one step under its own span
func (m *Manager) executeStep(ctx context.Context, state *RunState, step Step) error {
	stepState := state.GetStep(step.ID())
	if stepState == nil {
		return NewInvalidStateError(step.ID(), "step state not found")
	}

	stepCtx, span := m.tracer.TraceStep(ctx, state.ID, step.ID())
	stepState.Start()
	start := time.Now()

	err := step.Execute(stepCtx, state)
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			err = NewCancellationError(step.ID(), err)
		} else if _, ok := err.(*OperationError); !ok {
			err = NewExecutionError(step.ID(), err)
		}
		stepState.Fail(err)
		m.tracer.RecordStepCompletion(stepCtx, span, step.ID(), duration, err)
		return err
	}

	stepState.Complete("")
	m.tracer.RecordStepCompletion(stepCtx, span, step.ID(), duration, nil)
	m.logger.DebugContext(ctx, "step completed",
		slog.String("step", step.ID()),
		slog.Duration("duration", duration))
	return nil
}

func (m *Manager) skipRemaining(ctx context.Context, state *RunState, steps []Step, reason string) {
	for _, step := range steps {
		if s := state.GetStep(step.ID()); s != nil && s.GetStatus() == StepStatusPending {
			s.Skip(reason)
			m.tracer.RecordStepSkipped(ctx, step.ID())
		}
	}
}
