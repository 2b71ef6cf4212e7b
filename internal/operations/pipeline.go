package operations

import (
	"log/slog"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	"github.com/Simon3728/Data-Analysis-Election/internal/exporter"
	"github.com/Simon3728/Data-Analysis-Election/internal/features"
	"github.com/Simon3728/Data-Analysis-Election/internal/infrastructure"
	"github.com/Simon3728/Data-Analysis-Election/internal/plotting"
	"github.com/Simon3728/Data-Analysis-Election/internal/verify"
)

// PipelineOptions select the optional steps of a run.
type PipelineOptions struct {
	// SkipPlots leaves out the chart step.
	SkipPlots bool
}

// NewAnalysisRegistry wires the standard run: load, verify, build, select
// and plot.
func NewAnalysisRegistry(cfg *config.Config, paths *config.Paths, source TableSource, opts PipelineOptions, logger *slog.Logger, metrics *infrastructure.AnalysisMetrics) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	states := cfg.Verify.States
	if len(states) == 0 {
		states = config.ValidStates
	}

	reports := exporter.NewReportExporter(paths, logger)
	registry := NewRegistry().MustRegister(
		NewLoadStep(source, logger),
		NewVerifyStep(verify.NewVerifier(cfg.Verify, logger, metrics), cfg.Analysis.RequireFull, reports, logger),
		NewBuildStep(
			features.NewBuilder(cfg.Features, cfg.Analysis, states, logger, metrics),
			cfg.Analysis.Standardize,
			exporter.NewFeatureExporter(paths, logger),
			logger,
		),
		NewSelectStep(cfg.Analysis, logger, metrics),
	)
	if !opts.SkipPlots {
		registry.MustRegister(NewPlotStep(plotting.NewRenderer(cfg.Plots, logger), paths, cfg.Plots, cfg.Analysis, logger))
	}
	return registry
}

// NewAnalysisManager wires the standard run with report output under paths.
func NewAnalysisManager(cfg *config.Config, paths *config.Paths, source TableSource, opts PipelineOptions, logger *slog.Logger, providers *infrastructure.OTelProviders, metrics *infrastructure.AnalysisMetrics) *Manager {
	registry := NewAnalysisRegistry(cfg, paths, source, opts, logger, metrics)
	return NewManager(
		registry,
		cfg.Analysis,
		exporter.NewReportExporter(paths, logger),
		NewOperationTracer(providers, metrics),
		logger,
	)
}
