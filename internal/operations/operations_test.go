package operations

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/internal/exporter"
	"github.com/Simon3728/Data-Analysis-Election/internal/infrastructure"
	"github.com/Simon3728/Data-Analysis-Election/internal/plotting"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

func quietLogger() *slog.Logger { return infrastructure.NewLogger(io.Discard, "error") }

func table(t *testing.T, name string, values map[domain.Key]float64) *domain.IndicatorTable {
	t.Helper()
	records := make([]domain.IndicatorRecord, 0, len(values))
	for k, v := range values {
		records = append(records, domain.IndicatorRecord{Key: k, Value: v})
	}
	tbl, err := domain.NewIndicatorTable(name, name+".csv", records)
	require.NoError(t, err)
	return tbl
}

var (
	testStates = []string{"Alabama", "Alaska", "Arizona", "Arkansas"}
	testYears  = []int{2000, 2004, 2008, 2012, 2016}
	ak2004     = domain.Key{State: "Alaska", Year: 2004}
)

// separable returns 20 rows where x1 alone separates the two classes by a
// wide margin and x2 is small noise. drop removes x2 cells.
func separable(t *testing.T, drop ...domain.Key) []*domain.IndicatorTable {
	label := map[domain.Key]float64{}
	x1 := map[domain.Key]float64{}
	x2 := map[domain.Key]float64{}
	i := 0
	for si, state := range testStates {
		for yi, year := range testYears {
			k := domain.Key{State: state, Year: year}
			label[k], x1[k] = 40, 0.1*float64(i)
			if (si+yi)%2 == 0 {
				label[k], x1[k] = 60, 10+0.1*float64(i)
			}
			x2[k] = 0.1 * float64(i%3)
			i++
		}
	}
	for _, k := range drop {
		delete(x2, k)
	}
	return []*domain.IndicatorTable{
		table(t, "label", label),
		table(t, "x1", x1),
		table(t, "x2", x2),
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Analysis.Label = "label"
	cfg.Analysis.Task = string(domain.TaskClassification)
	cfg.Analysis.ClassThreshold = 50
	cfg.Analysis.Candidates = []string{"x1", "x2"}
	cfg.Analysis.Years = testYears
	cfg.Analysis.Folds = 4
	cfg.Analysis.Standardize = false
	cfg.Analysis.TestFraction = 0.25
	cfg.Analysis.Models = config.ModelsConfig{
		Families: []string{"knn"},
		K:        config.GridRange{Values: []int{1, 3}},
	}
	cfg.Verify = config.VerifyConfig{States: testStates}
	cfg.Plots.Enabled = false
	return cfg
}

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	paths, err := config.GetPaths(config.PathsConfig{RootDir: t.TempDir()})
	require.NoError(t, err)
	return paths
}

func staticSource(tables []*domain.IndicatorTable) TableSource {
	return SourceFunc(func(ctx context.Context) ([]*domain.IndicatorTable, error) {
		return tables, nil
	})
}

func TestSeparableRun(t *testing.T) {
	cfg := testConfig()
	cfg.Plots.Enabled = true
	cfg.Plots.TrendStates = testStates[:2]
	paths := testPaths(t)

	m := NewAnalysisManager(cfg, paths, staticSource(separable(t)), PipelineOptions{}, quietLogger(), nil, nil)
	state, report, err := m.Execute(context.Background())
	require.NoError(t, err)

	assert.True(t, infrastructure.IsRunID(report.ID))
	assert.Equal(t, domain.RunStatusCompleted, report.Status)
	assert.Equal(t, domain.TaskClassification, report.Task)
	assert.Equal(t, 20, report.Rows)
	assert.Zero(t, report.Verification.Gaps)
	assert.Empty(t, report.Error)

	knn, ok := report.Model(domain.FamilyKNN)
	require.True(t, ok)
	assert.Equal(t, []string{"x1"}, knn.Selection.Subset)
	assert.Equal(t, domain.Score(1), knn.Selection.Score)
	assert.Equal(t, 1, knn.Evaluation.Best.Params.K)
	assert.Equal(t, domain.Score(1), knn.Metrics[domain.MetricAccuracyTest])
	assert.Equal(t, domain.Score(1), knn.Metrics[domain.MetricAccuracyTrain])

	h := state.Holdouts[domain.FamilyKNN]
	require.NotNil(t, h)
	assert.Len(t, h.YTrain, 16)
	assert.Len(t, h.YTest, 4)

	for _, s := range state.Steps() {
		assert.Equal(t, StepStatusCompleted, s.GetStatus(), s.ID)
	}

	runDir := paths.RunDir(report.ID)
	for _, name := range []string{
		config.RunReportFile,
		config.RunSummaryFile,
		config.VerificationFile,
		config.FeatureTableFile,
		config.ExclusionsFile,
		filepath.Join("plots", "knn_result.png"),
		filepath.Join("plots", "label_animation.gif"),
		filepath.Join("plots", "label_2016.png"),
		filepath.Join("plots", "label_trend.png"),
	} {
		_, err := os.Stat(filepath.Join(runDir, name))
		assert.NoError(t, err, name)
	}

	stored, err := exporter.NewReportExporter(paths, quietLogger()).ReadRunReport(report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.ID, stored.ID)
	assert.Equal(t, []string{"x1"}, stored.Models[0].Selection.Subset)
}

func TestSingleGapFailsWhenFullCoverageRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Analysis.RequireFull = true
	paths := testPaths(t)

	m := NewAnalysisManager(cfg, paths, staticSource(separable(t, ak2004)), PipelineOptions{}, quietLogger(), nil, nil)
	state, report, err := m.Execute(context.Background())
	require.Error(t, err)

	var gapErr *apperrors.CoverageGapError
	require.ErrorAs(t, err, &gapErr)
	require.Len(t, gapErr.Gaps, 1)
	assert.Equal(t, apperrors.Gap{Indicator: "x2", State: "Alaska", Year: 2004}, gapErr.Gaps[0])
	assert.Equal(t, StepIDVerify, FailedStep(err))
	assert.Equal(t, ErrorTypeExecution, GetErrorType(err))

	assert.Equal(t, domain.RunStatusFailed, report.Status)
	assert.Equal(t, 1, report.Verification.Gaps)
	assert.NotEmpty(t, report.Error)
	assert.Empty(t, report.Models)

	assert.Equal(t, StepStatusCompleted, state.GetStep(StepIDLoad).GetStatus())
	assert.Equal(t, StepStatusFailed, state.GetStep(StepIDVerify).GetStatus())
	for _, id := range []string{StepIDBuild, StepIDSelect, StepIDPlot} {
		assert.Equal(t, StepStatusSkipped, state.GetStep(id).GetStatus(), id)
	}

	_, err = os.Stat(paths.RunReportPath(report.ID))
	assert.NoError(t, err, "failed runs still write a report")
}

func TestSingleGapExcludesRow(t *testing.T) {
	cfg := testConfig()
	cfg.Analysis.Folds = 3
	cfg.Analysis.Models.K = config.GridRange{Values: []int{1}}

	m := NewAnalysisManager(cfg, testPaths(t), staticSource(separable(t, ak2004)), PipelineOptions{SkipPlots: true}, quietLogger(), nil, nil)
	_, report, err := m.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusCompleted, report.Status)
	assert.Equal(t, 1, report.Verification.Gaps)
	assert.Equal(t, 19, report.Rows)
	assert.Equal(t, []domain.Exclusion{{
		State: "Alaska", Year: 2004, Indicator: "x2",
		Reason: domain.ReasonMissingValue, Value: domain.Unattainable,
	}}, report.Exclusions)
	require.Len(t, report.Models, 1)
	assert.Equal(t, []string{"x1"}, report.Models[0].Selection.Subset)
}

func TestSelectStepRejectsTinyTable(t *testing.T) {
	cfg := testConfig()
	step := NewSelectStep(cfg.Analysis, quietLogger(), nil)
	state := NewRunState("id", []Step{step})
	state.Table = &domain.FeatureTable{
		Columns: []string{"x1"},
		Label:   "label",
		Task:    domain.TaskClassification,
		Rows:    []domain.FeatureRow{{State: "Alabama", Year: 2000, Values: map[string]float64{"x1": 1}, Label: 1}},
	}

	err := step.Execute(context.Background(), state)
	require.Error(t, err)
	assert.True(t, apperrors.IsDegenerateFold(err))
	assert.Empty(t, state.Models)
}

func TestManagerSkipsAfterFailure(t *testing.T) {
	var ran []string
	step := func(id string, err error) Step {
		return NewStepFunc(id, id, func(ctx context.Context, state *RunState) error {
			ran = append(ran, id)
			state.AddArtifact(id + ".out")
			return err
		})
	}
	boom := errors.New("boom")
	registry := NewRegistry().MustRegister(step("a", nil), step("b", boom), step("c", nil))

	writer := &recordingWriter{}
	state, report, err := NewManager(registry, config.AnalysisConfig{Label: "y"}, writer, nil, quietLogger()).
		Execute(context.Background())
	require.ErrorIs(t, err, boom)

	assert.Equal(t, []string{"a", "b"}, ran)
	assert.Equal(t, "b", FailedStep(err))
	assert.Equal(t, StepStatusSkipped, state.GetStep("c").GetStatus())
	assert.Equal(t, domain.RunStatusFailed, report.Status)
	assert.Equal(t, []string{"a.out", "b.out", "written"}, report.Artifacts)
	require.Len(t, writer.reports, 1)
	assert.Equal(t, domain.RunStatusFailed, writer.reports[0].Status)
}

func TestManagerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	registry := NewRegistry().MustRegister(
		NewStepFunc("first", "first", func(context.Context, *RunState) error {
			cancel()
			return nil
		}),
		NewStepFunc("second", "second", func(context.Context, *RunState) error {
			t.Fatal("second step must not run")
			return nil
		}),
	)

	state, report, err := NewManager(registry, config.AnalysisConfig{}, nil, nil, quietLogger()).Execute(ctx)
	require.Error(t, err)
	assert.Equal(t, ErrorTypeCancellation, GetErrorType(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StepStatusSkipped, state.GetStep("second").GetStatus())
	assert.Equal(t, domain.RunStatusFailed, report.Status)
}

func TestWriteFailureFailsRun(t *testing.T) {
	registry := NewRegistry().MustRegister(NewStepFunc("only", "only", func(context.Context, *RunState) error { return nil }))
	writer := &recordingWriter{err: errors.New("disk full")}

	_, report, err := NewManager(registry, config.AnalysisConfig{}, writer, nil, quietLogger()).Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, domain.RunStatusFailed, report.Status)
}

func TestLoadStepRejectsEmptySource(t *testing.T) {
	step := NewLoadStep(staticSource(nil), quietLogger())
	err := step.Execute(context.Background(), NewRunState("id", []Step{step}))
	require.Error(t, err)
	assert.Equal(t, ErrorTypeValidation, GetErrorType(err))
}

func TestStoreSource(t *testing.T) {
	tables := separable(t)
	src := StoreSource(&fakeStore{tables: tables})
	got, err := src.LoadTables(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := NewStepFunc("a", "A", nil)
	require.NoError(t, r.Register(a))
	assert.Error(t, r.Register(a), "duplicate")
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(NewStepFunc("", "", nil)))
	require.NoError(t, r.Register(NewStepFunc("b", "B", nil)))

	assert.Equal(t, []string{"a", "b"}, r.ListIDs())
	assert.Equal(t, 2, r.Count())
	assert.True(t, r.Has("b"))
	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name())
	_, err = r.Get("zzz")
	assert.Error(t, err)
}

func TestStepState(t *testing.T) {
	s := NewStepState("x", "X")
	assert.Equal(t, StepStatusPending, s.GetStatus())
	assert.Zero(t, s.Duration())
	s.Start()
	assert.Equal(t, StepStatusActive, s.GetStatus())
	s.Fail(errors.New("bad"))
	assert.Equal(t, StepStatusFailed, s.GetStatus())
	assert.Equal(t, "bad", s.Message)
	assert.GreaterOrEqual(t, s.Duration().Nanoseconds(), int64(0))
}

type recordingWriter struct {
	reports []*domain.RunReport
	err     error
}

func (w *recordingWriter) ExportRunReport(report *domain.RunReport) ([]string, error) {
	if w.err != nil {
		return nil, w.err
	}
	w.reports = append(w.reports, report)
	return []string{"written"}, nil
}

type fakeStore struct {
	tables []*domain.IndicatorTable
}

func (f *fakeStore) Indicators(context.Context) ([]string, error) {
	names := make([]string, len(f.tables))
	for i, t := range f.tables {
		names[i] = t.Name()
	}
	return names, nil
}

func (f *fakeStore) LoadTables(_ context.Context, names []string) ([]*domain.IndicatorTable, error) {
	out := make([]*domain.IndicatorTable, 0, len(names))
	for _, n := range names {
		for _, t := range f.tables {
			if t.Name() == n {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func TestPlotStepUsesLatestYear(t *testing.T) {
	cfg := testConfig()
	cfg.Plots.Enabled = true
	cfg.Analysis.Years = []int{2016, 2000, 2008}
	paths := testPaths(t)

	step := NewPlotStep(plotting.NewRenderer(cfg.Plots, quietLogger()), paths, cfg.Plots, cfg.Analysis, quietLogger())
	state := NewRunState("run", []Step{step})
	state.Tables = separable(t)
	require.NoError(t, step.Execute(context.Background(), state))

	dir := filepath.Join(paths.RunDir("run"), "plots")
	assert.FileExists(t, filepath.Join(dir, "label_2016.png"))
	assert.NoFileExists(t, filepath.Join(dir, "label_2008.png"))
	assert.Equal(t, []int{2016, 2000, 2008}, cfg.Analysis.Years, "configured years are not reordered")
}
