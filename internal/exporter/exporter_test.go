package exporter

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/internal/infrastructure"
	"github.com/Simon3728/Data-Analysis-Election/internal/loader"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

func setupTestEnv(t *testing.T) *config.Paths {
	t.Helper()
	paths, err := config.GetPaths(config.PathsConfig{RootDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	return paths
}

func sampleTable() *domain.FeatureTable {
	return &domain.FeatureTable{
		Columns: []string{"gdp_per_capita", "unemployment_rate"},
		Label:   "republican_percent",
		Task:    domain.TaskRegression,
		Rows: []domain.FeatureRow{
			{State: "Alabama", Year: 2000, Values: map[string]float64{"gdp_per_capita": 26984, "unemployment_rate": 0.041}, Label: 56.48},
			{State: "New Hampshire", Year: 2004, Values: map[string]float64{"gdp_per_capita": 1e-7, "unemployment_rate": 123456.789}, Label: 48.87},
		},
	}
}

func TestFeatureTableRoundTrip(t *testing.T) {
	paths := setupTestEnv(t)
	exp := NewFeatureExporter(paths, infrastructure.NewLogger(io.Discard, "error"))

	table := sampleTable()
	path, err := exp.ExportFeatureTable(table, config.FeatureTableFile)
	require.NoError(t, err)
	assert.Equal(t, paths.FeatureTableCSV, path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, string(raw), "state,year,gdp_per_capita,unemployment_rate,republican_percent\n")

	loaded, err := loader.LoadFeatureTable(path, table.Label, table.Task)
	require.NoError(t, err)
	assert.Equal(t, table, loaded)
}

func TestFeatureTableMissingCells(t *testing.T) {
	paths := setupTestEnv(t)
	exp := NewFeatureExporter(paths, infrastructure.NewLogger(io.Discard, "error"))

	table := sampleTable()
	table.Rows[0].Values["gdp_per_capita"] = math.NaN()
	path, err := exp.ExportFeatureTable(table, "nested/features.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.ReportsDir, "nested", "features.csv"), path)

	loaded, err := loader.LoadFeatureTable(path, table.Label, table.Task)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(loaded.Rows[0].Values["gdp_per_capita"]))
}

func TestExportExclusions(t *testing.T) {
	paths := setupTestEnv(t)
	exp := NewFeatureExporter(paths, infrastructure.NewLogger(io.Discard, "error"))

	path, err := exp.ExportExclusions([]domain.Exclusion{
		{State: "Alaska", Year: 2004, Indicator: "republican_percent", Reason: domain.ReasonMissingLabel, Value: domain.Unattainable},
		{State: "Alabama", Year: 2004, Indicator: "urban", Reason: domain.ReasonImputed, Value: 10.5},
	}, config.ExclusionsFile)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(string(raw), "\ufeff")), "\n")
	assert.Equal(t, []string{
		"state,year,indicator,reason,value",
		"Alabama,2004,urban,imputed,10.5",
		"Alaska,2004,republican_percent,missing_label,",
	}, lines)
}

func sampleReport(id string, started time.Time) *domain.RunReport {
	return &domain.RunReport{
		ID:         id,
		Status:     domain.RunStatusCompleted,
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Label:      "winner",
		Task:       domain.TaskClassification,
		Candidates: []string{"x1", "x2"},
		Folds:      4,
		Rows:       4,
		Models: []domain.ModelReport{{
			Family: domain.FamilyKNN,
			Selection: domain.SelectionResult{
				Subset: []string{"x1", "x2"},
				Score:  1,
				Steps: []domain.SelectionStep{{
					Iteration: 1,
					Feature:   "x1",
					Subset:    []string{"x1"},
					Score:     0.5,
					Candidates: []domain.CandidateScore{
						{Feature: "x1", Score: 0.5},
						{Feature: "x2", Score: domain.Unattainable, Skipped: true, Reason: "single label class"},
					},
				}},
			},
			Evaluation: domain.EvaluationResult{
				Subset: []string{"x1", "x2"},
				Best:   domain.ModelConfiguration{Family: domain.FamilyKNN, Params: domain.Hyperparameters{K: 1}, Score: 1},
				Grid: []domain.ModelConfiguration{
					{Family: domain.FamilyKNN, Params: domain.Hyperparameters{K: 1}, Score: 1},
					{Family: domain.FamilyKNN, Params: domain.Hyperparameters{K: 3}, Score: 0},
				},
			},
			Metrics: map[string]domain.Score{domain.MetricAccuracyTest: 1, domain.MetricAccuracyTrain: 1},
		}},
		Verification: domain.VerificationSummary{Gaps: 1},
	}
}

func TestRunReportRoundTrip(t *testing.T) {
	paths := setupTestEnv(t)
	exp := NewReportExporter(paths, infrastructure.NewLogger(io.Discard, "error"))

	id := infrastructure.NewRunID()
	report := sampleReport(id, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	written, err := exp.ExportRunReport(report)
	require.NoError(t, err)
	require.Len(t, written, 2)

	loaded, err := exp.ReadRunReport(id)
	require.NoError(t, err)
	assert.Equal(t, report, loaded)

	summary, err := os.ReadFile(written[1])
	require.NoError(t, err)
	assert.Contains(t, string(summary), "k=1")
	assert.Contains(t, string(summary), "x1, x2")
	assert.Contains(t, string(summary), "accuracy_test=1.0000")

	_, err = exp.ReadRunReport("missing")
	assert.Equal(t, apperrors.ErrTypeNotFound, apperrors.TypeOf(err))

	_, err = exp.ExportRunReport(&domain.RunReport{})
	assert.Error(t, err)
}

func TestListRunsNewestFirst(t *testing.T) {
	paths := setupTestEnv(t)
	exp := NewReportExporter(paths, infrastructure.NewLogger(io.Discard, "error"))

	runs, err := exp.ListRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)

	older := sampleReport("run-a", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := sampleReport("run-b", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	for _, r := range []*domain.RunReport{older, newer} {
		_, err := exp.ExportRunReport(r)
		require.NoError(t, err)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(paths.RunsDir, "broken"), 0755))

	runs, err = exp.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].ID)
	assert.Equal(t, "run-a", runs[1].ID)
}

func TestVerificationExport(t *testing.T) {
	paths := setupTestEnv(t)
	exp := NewReportExporter(paths, infrastructure.NewLogger(io.Discard, "error"))

	report := &domain.VerificationReport{
		Gaps:     []domain.CoverageGap{{Indicator: "income", State: "Alaska", Year: 2004}},
		Findings: []domain.ValueFinding{{Indicator: "share", State: "Arizona", Year: 2000, Value: domain.Unattainable, Kind: domain.FindingNull, Message: "value is missing"}},
		Coverage: []domain.IndicatorCoverage{{Indicator: "income", Records: 3, Expected: 4}},
	}

	shared, err := exp.ExportVerification("", report)
	require.NoError(t, err)
	assert.Equal(t, paths.VerificationJSON, shared)

	_, err = exp.ExportVerification("run-x", report)
	require.NoError(t, err)
	loaded, err := exp.ReadVerification("run-x")
	require.NoError(t, err)
	assert.Equal(t, report, loaded)

	var out bytes.Buffer
	PrintVerification(&out, report)
	assert.Contains(t, out.String(), "1 coverage gaps")
	assert.Contains(t, out.String(), "null")
}

func TestPrintRunReport(t *testing.T) {
	var out bytes.Buffer
	report := sampleReport("run-a", time.Now())
	report.Artifacts = []string{"reports/plots/knn.png"}
	PrintRunReport(&out, report)

	assert.Contains(t, out.String(), "run-a")
	assert.Contains(t, out.String(), "reports/plots/knn.png")
	assert.Contains(t, out.String(), "k=1")
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "", formatFloat(math.NaN()))
	assert.Equal(t, "0.1", formatFloat(0.1))
	assert.Equal(t, "n/a", formatScore(domain.Unattainable))
	assert.Equal(t, "0.5000", formatScore(0.5))
	assert.Equal(t, "k=7", formatParams(domain.Hyperparameters{K: 7}))
	assert.Equal(t, "-", formatParams(domain.Hyperparameters{}))
}

func TestCSVWriterAppend(t *testing.T) {
	paths := setupTestEnv(t)
	w := NewCSVWriter(paths, infrastructure.NewLogger(io.Discard, "error"))

	path, err := w.WriteSimpleCSV("scores.csv", []string{"family", "score"}, [][]string{{"knn", "0.5"}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.ReportsDir, "scores.csv"), path)

	_, err = w.AppendToCSV("scores.csv", [][]string{{"linear", "0.25"}})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\ufefffamily,score\nknn,0.5\nlinear,0.25\n", string(data))

	path, err = w.WriteSimpleCSV("runs/abc/scores.csv", []string{"family"}, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.RunsDir, "abc", "scores.csv"), path)
}
