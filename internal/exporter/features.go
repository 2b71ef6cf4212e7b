package exporter

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// FeatureExporter writes the feature table and the exclusion report.
type FeatureExporter struct {
	csvWriter *CSVWriter
}

// NewFeatureExporter creates a feature table exporter
func NewFeatureExporter(paths *config.Paths, logger *slog.Logger) *FeatureExporter {
	return &FeatureExporter{csvWriter: NewCSVWriter(paths, logger)}
}

// ExportFeatureTable writes one row per (state, year): state, year, the
// feature columns in table order, then the label. Returns the written path.
func (f *FeatureExporter) ExportFeatureTable(table *domain.FeatureTable, filePath string) (string, error) {
	headers := make([]string, 0, len(table.Columns)+3)
	headers = append(headers, "state", "year")
	headers = append(headers, table.Columns...)
	headers = append(headers, table.Label)

	records := make([][]string, 0, table.Len())
	for _, row := range table.Rows {
		records = append(records, featureRow(table.Columns, row))
	}

	path, err := f.csvWriter.WriteSimpleCSV(filePath, headers, records)
	if err != nil {
		return "", fmt.Errorf("failed to write feature table: %w", err)
	}
	return path, nil
}

// ExportExclusions writes the exclusion report sorted by state, year and
// indicator.
func (f *FeatureExporter) ExportExclusions(exclusions []domain.Exclusion, filePath string) (string, error) {
	sorted := append([]domain.Exclusion(nil), exclusions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.State != b.State {
			return a.State < b.State
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Indicator < b.Indicator
	})

	records := make([][]string, 0, len(sorted))
	for _, e := range sorted {
		records = append(records, []string{
			e.State,
			formatInt(e.Year),
			e.Indicator,
			string(e.Reason),
			formatFloat(float64(e.Value)),
		})
	}

	path, err := f.csvWriter.WriteSimpleCSV(filePath, exclusionHeaders(), records)
	if err != nil {
		return "", fmt.Errorf("failed to write exclusion report: %w", err)
	}
	return path, nil
}

func featureRow(columns []string, row domain.FeatureRow) []string {
	out := make([]string, 0, len(columns)+3)
	out = append(out, row.State, formatInt(row.Year))
	for _, c := range columns {
		out = append(out, formatFloat(row.Values[c]))
	}
	return append(out, formatFloat(row.Label))
}

func exclusionHeaders() []string {
	return []string{"state", "year", "indicator", "reason", "value"}
}
