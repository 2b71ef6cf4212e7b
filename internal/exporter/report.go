package exporter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// ReportExporter persists run and verification reports as JSON plus a text
// summary, one directory per run.
type ReportExporter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewReportExporter creates a report exporter
func NewReportExporter(paths *config.Paths, logger *slog.Logger) *ReportExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportExporter{paths: paths, logger: logger}
}

// ExportRunReport writes report.json and summary.txt into the run directory
// and returns both paths.
func (r *ReportExporter) ExportRunReport(report *domain.RunReport) ([]string, error) {
	if report.ID == "" {
		return nil, apperrors.NewAppValidationError("run report has no id")
	}
	jsonPath := r.paths.RunReportPath(report.ID)
	if err := WriteJSON(jsonPath, report); err != nil {
		return nil, fmt.Errorf("failed to write run report: %w", err)
	}

	summaryPath := filepath.Join(r.paths.RunDir(report.ID), config.RunSummaryFile)
	if err := writeFileAtomic(summaryPath, func(f *os.File) error { return WriteSummary(f, report) }); err != nil {
		return nil, fmt.Errorf("failed to write run summary: %w", err)
	}

	r.logger.Info("Run report written",
		slog.String("run_id", report.ID),
		slog.String("report", jsonPath),
		slog.String("summary", summaryPath))
	return []string{jsonPath, summaryPath}, nil
}

// ExportVerification writes the verification report. With an empty run id
// it goes to the shared reports directory.
func (r *ReportExporter) ExportVerification(runID string, report *domain.VerificationReport) (string, error) {
	path := r.paths.VerificationJSON
	if runID != "" {
		path = r.paths.RunVerificationPath(runID)
	}
	if err := WriteJSON(path, report); err != nil {
		return "", fmt.Errorf("failed to write verification report: %w", err)
	}
	r.logger.Info("Verification report written",
		slog.String("path", path),
		slog.Int("gaps", len(report.Gaps)),
		slog.Int("findings", len(report.Findings)))
	return path, nil
}

// ReadRunReport loads one run's report.json.
func (r *ReportExporter) ReadRunReport(runID string) (*domain.RunReport, error) {
	var report domain.RunReport
	if err := readJSON(r.paths.RunReportPath(runID), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ReadVerification loads one run's verification.json.
func (r *ReportExporter) ReadVerification(runID string) (*domain.VerificationReport, error) {
	var report domain.VerificationReport
	if err := readJSON(r.paths.RunVerificationPath(runID), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListRuns returns the summaries of all stored runs, newest first. Run
// directories without a readable report are skipped.
func (r *ReportExporter) ListRuns() ([]domain.RunSummary, error) {
	entries, err := os.ReadDir(r.paths.RunsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.RunSummary{}, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list runs", err)
	}

	runs := make([]domain.RunSummary, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		report, err := r.ReadRunReport(e.Name())
		if err != nil {
			r.logger.Warn("Skipping unreadable run", slog.String("run_id", e.Name()), slog.String("error", err.Error()))
			continue
		}
		runs = append(runs, report.Summary())
	}
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

// WriteJSON writes v as indented JSON, replacing path atomically.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return writeFileAtomic(path, func(f *os.File) error {
		_, err := f.Write(append(data, '\n'))
		return err
	})
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return apperrors.NewNotFoundError("run " + filepath.Base(filepath.Dir(path)))
	}
	if err != nil {
		return apperrors.NewStorageError("failed to read "+path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.NewParsingError("failed to decode "+path, err)
	}
	return nil
}

func writeFileAtomic(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
