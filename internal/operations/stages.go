package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	"github.com/Simon3728/Data-Analysis-Election/internal/exporter"
	"github.com/Simon3728/Data-Analysis-Election/internal/features"
	"github.com/Simon3728/Data-Analysis-Election/internal/infrastructure"
	"github.com/Simon3728/Data-Analysis-Election/internal/loader"
	"github.com/Simon3728/Data-Analysis-Election/internal/plotting"
	"github.com/Simon3728/Data-Analysis-Election/internal/selection"
	"github.com/Simon3728/Data-Analysis-Election/internal/verify"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// Step IDs
const (
	StepIDLoad   = "load"
	StepIDVerify = "verify"
	StepIDBuild  = "build"
	StepIDSelect = "select"
	StepIDPlot   = "plot"
)

// TableSource supplies the indicator tables a run starts from.
type TableSource interface {
	LoadTables(ctx context.Context) ([]*domain.IndicatorTable, error)
}

// SourceFunc adapts a function to TableSource.
type SourceFunc func(ctx context.Context) ([]*domain.IndicatorTable, error)

// LoadTables calls f.
func (f SourceFunc) LoadTables(ctx context.Context) ([]*domain.IndicatorTable, error) {
	return f(ctx)
}

// FileSource reads the declared source files.
func FileSource(l *loader.Loader, paths *config.Paths, sources []config.SourceConfig) TableSource {
	return SourceFunc(func(ctx context.Context) ([]*domain.IndicatorTable, error) {
		return l.LoadAll(ctx, paths, sources)
	})
}

// IndicatorStore is the read side of the indicator database.
type IndicatorStore interface {
	Indicators(ctx context.Context) ([]string, error)
	LoadTables(ctx context.Context, names []string) ([]*domain.IndicatorTable, error)
}

// StoreSource reads every indicator previously imported into the database.
func StoreSource(s IndicatorStore) TableSource {
	return SourceFunc(func(ctx context.Context) ([]*domain.IndicatorTable, error) {
		names, err := s.Indicators(ctx)
		if err != nil {
			return nil, err
		}
		return s.LoadTables(ctx, names)
	})
}

// LoadStep loads the indicator tables.
type LoadStep struct {
	BaseStep
	source TableSource
	logger *slog.Logger
}

// NewLoadStep creates the load step
func NewLoadStep(source TableSource, logger *slog.Logger) *LoadStep {
	return &LoadStep{
		BaseStep: NewBaseStep(StepIDLoad, "Load indicators"),
		source:   source,
		logger:   infrastructure.WithComponent(logger, "step.load"),
	}
}

// Execute loads the tables into the run state
func (s *LoadStep) Execute(ctx context.Context, state *RunState) error {
	tables, err := s.source.LoadTables(ctx)
	if err != nil {
		return NewExecutionError(s.ID(), err)
	}
	if len(tables) == 0 {
		return NewValidationError(s.ID(), "no indicator tables loaded")
	}
	state.Tables = tables
	s.logger.InfoContext(ctx, "indicators loaded", slog.Int("tables", len(tables)))
	return nil
}

// VerifyStep checks coverage and values, and writes the verification report.
type VerifyStep struct {
	BaseStep
	verifier    *verify.Verifier
	requireFull bool
	reports     *exporter.ReportExporter
	logger      *slog.Logger
}

// NewVerifyStep creates the verify step. reports may be nil.
func NewVerifyStep(verifier *verify.Verifier, requireFull bool, reports *exporter.ReportExporter, logger *slog.Logger) *VerifyStep {
	return &VerifyStep{
		BaseStep:    NewBaseStep(StepIDVerify, "Verify coverage"),
		verifier:    verifier,
		requireFull: requireFull,
		reports:     reports,
		logger:      infrastructure.WithComponent(logger, "step.verify"),
	}
}

// Execute verifies the loaded tables
func (s *VerifyStep) Execute(ctx context.Context, state *RunState) error {
	if len(state.Tables) == 0 {
		return NewInvalidStateError(s.ID(), "no tables to verify")
	}
	report, err := s.verifier.Verify(ctx, state.Tables)
	if err != nil {
		return NewExecutionError(s.ID(), err)
	}
	state.Verification = report

	if s.reports != nil {
		path, err := s.reports.ExportVerification(state.ID, report)
		if err != nil {
			return NewExecutionError(s.ID(), err)
		}
		state.AddArtifact(path)
	}

	if report.HasGaps() {
		s.logger.WarnContext(ctx, "coverage gaps found", slog.Int("gaps", len(report.Gaps)))
	}
	if s.requireFull {
		if err := verify.RequireCoverage(report); err != nil {
			return NewExecutionError(s.ID(), err)
		}
	}
	return nil
}

// BuildStep builds the feature table and writes it with its exclusions.
type BuildStep struct {
	BaseStep
	builder     *features.Builder
	standardize bool
	exporter    *exporter.FeatureExporter
	logger      *slog.Logger
}

// NewBuildStep creates the build step. exp may be nil.
func NewBuildStep(builder *features.Builder, standardize bool, exp *exporter.FeatureExporter, logger *slog.Logger) *BuildStep {
	return &BuildStep{
		BaseStep:    NewBaseStep(StepIDBuild, "Build feature table"),
		builder:     builder,
		standardize: standardize,
		exporter:    exp,
		logger:      infrastructure.WithComponent(logger, "step.build"),
	}
}

// Execute builds the model input
func (s *BuildStep) Execute(ctx context.Context, state *RunState) error {
	if len(state.Tables) == 0 {
		return NewInvalidStateError(s.ID(), "no tables to build from")
	}
	res, err := s.builder.Build(ctx, state.Tables)
	if err != nil {
		return NewExecutionError(s.ID(), err)
	}
	if res.Table.Len() == 0 {
		return NewValidationError(s.ID(), "feature table has no rows")
	}
	state.Features = res
	state.Table = res.Table
	if s.standardize {
		state.Table, state.Scaling = features.Standardize(res.Table)
	}

	if s.exporter != nil {
		dir := filepath.Join("runs", state.ID)
		path, err := s.exporter.ExportFeatureTable(res.Table, filepath.Join(dir, config.FeatureTableFile))
		if err != nil {
			return NewExecutionError(s.ID(), err)
		}
		state.AddArtifact(path)
		path, err = s.exporter.ExportExclusions(res.Exclusions, filepath.Join(dir, config.ExclusionsFile))
		if err != nil {
			return NewExecutionError(s.ID(), err)
		}
		state.AddArtifact(path)
	}

	s.logger.InfoContext(ctx, "feature table built",
		slog.Int("rows", res.Table.Len()),
		slog.Int("columns", len(res.Table.Columns)),
		slog.Int("exclusions", len(res.Exclusions)),
		slog.Bool("standardized", s.standardize))
	return nil
}

// SelectStep splits the feature table once, runs forward selection and the
// final grid search on the training rows, and scores the held-out rows for
// every configured model family.
type SelectStep struct {
	BaseStep
	analysis config.AnalysisConfig
	logger   *slog.Logger
	metrics  *infrastructure.AnalysisMetrics
}

// NewSelectStep creates the selection step
func NewSelectStep(analysis config.AnalysisConfig, logger *slog.Logger, metrics *infrastructure.AnalysisMetrics) *SelectStep {
	return &SelectStep{
		BaseStep: NewBaseStep(StepIDSelect, "Select features and evaluate models"),
		analysis: analysis,
		logger:   infrastructure.WithComponent(logger, "step.select"),
		metrics:  metrics,
	}
}

// Execute evaluates every family on the model input
func (s *SelectStep) Execute(ctx context.Context, state *RunState) error {
	if state.Table == nil {
		return NewInvalidStateError(s.ID(), "no feature table")
	}
	split, err := selection.SplitTable(state.Table, s.analysis.TestFraction, s.analysis.Seed)
	if err != nil {
		return NewExecutionError(s.ID(), fmt.Errorf("train/test split: %w", err))
	}
	evaluator := selection.NewEvaluator(split.Train, s.analysis, s.logger, s.metrics)

	for _, name := range s.analysis.Models.Families {
		family := domain.ModelFamily(name)
		report, holdout, err := s.evaluate(ctx, evaluator, split, family)
		if err != nil {
			return NewExecutionError(s.ID(), fmt.Errorf("%s: %w", family, err))
		}
		state.Models = append(state.Models, *report)
		if holdout != nil {
			state.Holdouts[family] = holdout
		}
	}
	return nil
}

func (s *SelectStep) evaluate(ctx context.Context, evaluator *selection.Evaluator, split *selection.Split, family domain.ModelFamily) (*domain.ModelReport, *selection.Holdout, error) {
	grid, err := selection.NewGrid(family, s.analysis.Models)
	if err != nil {
		return nil, nil, err
	}
	selector := selection.NewSelector(family, s.analysis, s.logger, s.metrics)
	sel, err := selector.Select(ctx, split.Train.Columns, evaluator.GridScorer(grid))
	if err != nil {
		return nil, nil, err
	}

	report := &domain.ModelReport{
		Family:    family,
		Selection: *sel,
		Metrics:   map[string]domain.Score{},
	}
	if len(sel.Subset) == 0 {
		s.logger.WarnContext(ctx, "no candidate reached a finite score", slog.String("family", string(family)))
		return report, nil, nil
	}

	eval, err := evaluator.GridSearch(ctx, sel.Subset, grid)
	if err != nil {
		return nil, nil, err
	}
	report.Evaluation = *eval

	holdout, err := evaluator.Holdout(ctx, split.Test, sel.Subset, eval.Best)
	if err != nil {
		return nil, nil, err
	}
	report.Metrics = holdout.Metrics

	s.logger.InfoContext(ctx, "model evaluated",
		slog.String("family", string(family)),
		slog.Any("subset", sel.Subset),
		slog.Float64("cv_score", float64(eval.Best.Score)))
	return report, holdout, nil
}

// PlotStep draws the model result charts, and the indicator charts when
// enabled.
type PlotStep struct {
	BaseStep
	renderer *plotting.Renderer
	paths    *config.Paths
	cfg      config.PlotsConfig
	label    string
	years    []int
	logger   *slog.Logger
}

// NewPlotStep creates the plot step
func NewPlotStep(renderer *plotting.Renderer, paths *config.Paths, cfg config.PlotsConfig, analysis config.AnalysisConfig, logger *slog.Logger) *PlotStep {
	years := append([]int(nil), analysis.Years...)
	if len(years) == 0 {
		years = append(years, config.ElectionYears...)
	}
	sort.Ints(years)
	return &PlotStep{
		BaseStep: NewBaseStep(StepIDPlot, "Draw charts"),
		renderer: renderer,
		paths:    paths,
		cfg:      cfg,
		label:    analysis.Label,
		years:    years,
		logger:   infrastructure.WithComponent(logger, "step.plot"),
	}
}

// Execute writes the charts of the run
func (s *PlotStep) Execute(ctx context.Context, state *RunState) error {
	dir := filepath.Join(s.paths.RunDir(state.ID), "plots")

	families := make([]string, 0, len(state.Holdouts))
	for f := range state.Holdouts {
		families = append(families, string(f))
	}
	sort.Strings(families)
	for _, f := range families {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := plotting.ModelResult(state.Holdouts[domain.ModelFamily(f)], 0, s.label)
		if err != nil {
			if errors.Is(err, plotting.ErrNoData) {
				continue
			}
			return NewExecutionError(s.ID(), err)
		}
		if err := s.savePNG(state, p, filepath.Join(dir, f+"_result.png")); err != nil {
			return err
		}
	}

	if !s.cfg.Enabled {
		return nil
	}
	labelTable, ok := state.Indicator(s.label)
	if !ok {
		s.logger.WarnContext(ctx, "label indicator not found, indicator charts skipped", slog.String("label", s.label))
		return nil
	}
	return s.indicatorCharts(ctx, state, labelTable, dir)
}

func (s *PlotStep) indicatorCharts(ctx context.Context, state *RunState, t *domain.IndicatorTable, dir string) error {
	latest := s.years[len(s.years)-1]
	if p, err := plotting.IndicatorBars(t, latest, nil, 0); err == nil {
		if err := s.savePNG(state, p, filepath.Join(dir, fmt.Sprintf("%s_%d.png", t.Name(), latest))); err != nil {
			return err
		}
	} else if !errors.Is(err, plotting.ErrNoData) {
		return NewExecutionError(s.ID(), err)
	}

	frames, err := plotting.AnimatedBars(t, s.years, nil)
	switch {
	case err == nil:
		path := filepath.Join(dir, t.Name()+"_animation.gif")
		if err := s.renderer.SaveGIF(frames, path); err != nil {
			return NewExecutionError(s.ID(), err)
		}
		state.AddArtifact(path)
	case !errors.Is(err, plotting.ErrNoData):
		return NewExecutionError(s.ID(), err)
	}

	if len(s.cfg.TrendStates) > 0 {
		p, err := plotting.Trend(t, s.cfg.TrendStates)
		switch {
		case err == nil:
			if err := s.savePNG(state, p, filepath.Join(dir, t.Name()+"_trend.png")); err != nil {
				return err
			}
		case !errors.Is(err, plotting.ErrNoData):
			return NewExecutionError(s.ID(), err)
		}
	}

	rep, okRep := state.Indicator("republican_percent")
	dem, okDem := state.Indicator("democratic_percent")
	if okRep && okDem {
		p, err := plotting.Margin(rep, dem, latest, nil)
		switch {
		case err == nil:
			if err := s.savePNG(state, p, filepath.Join(dir, fmt.Sprintf("margin_%d.png", latest))); err != nil {
				return err
			}
		case !errors.Is(err, plotting.ErrNoData):
			return NewExecutionError(s.ID(), err)
		}
	}

	s.logger.InfoContext(ctx, "indicator charts written", slog.String("dir", dir))
	return nil
}

func (s *PlotStep) savePNG(state *RunState, p *plot.Plot, path string) error {
	if err := s.renderer.SavePNG(p, path); err != nil {
		return NewExecutionError(s.ID(), err)
	}
	state.AddArtifact(path)
	return nil
}
