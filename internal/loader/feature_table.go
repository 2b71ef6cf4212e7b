package loader

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// LoadFeatureTable reads a feature table CSV as written by the exporter:
// a state and a year column, the feature columns, and the label column.
func LoadFeatureTable(path, label string, task domain.Task) (*domain.FeatureTable, error) {
	rows, err := readDelimited(path, ',')
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewFormatError(path, 0, "", "", "empty feature table")
	}

	header := trimAll(rows[0].cells)
	if len(header) < 3 || !strings.EqualFold(header[0], "state") || !strings.EqualFold(header[1], "year") {
		return nil, apperrors.NewFormatError(path, rows[0].line, "", strings.Join(header, ","), "expected state, year and feature columns")
	}

	labelIdx := -1
	var columns []string
	for i, h := range header[2:] {
		if h == label {
			labelIdx = i + 2
			continue
		}
		columns = append(columns, h)
	}
	if labelIdx < 0 {
		return nil, apperrors.NewFormatError(path, rows[0].line, label, "", "required column missing")
	}

	table := &domain.FeatureTable{Columns: columns, Label: label, Task: task}
	for _, r := range rows[1:] {
		if blank(r.cells) {
			continue
		}
		rawYear := r.cell(1)
		year, ok := parseYear(rawYear, false)
		if !ok {
			return nil, apperrors.NewFormatError(path, r.line, header[1], rawYear, "cannot parse year")
		}

		row := domain.FeatureRow{State: r.cell(0), Year: year, Values: make(map[string]float64, len(columns))}
		for i := 2; i < len(header); i++ {
			raw := r.cell(i)
			v := math.NaN()
			if !isMissing(raw) {
				v, err = strconv.ParseFloat(raw, 64)
				if err != nil {
					return nil, apperrors.NewFormatError(path, r.line, header[i], raw, "cannot parse as float").WithCause(errors.Unwrap(err))
				}
			}
			if i == labelIdx {
				row.Label = v
				continue
			}
			row.Values[header[i]] = v
		}
		if math.IsNaN(row.Label) {
			return nil, apperrors.NewFormatError(path, r.line, label, "", fmt.Sprintf("row %s has no label", row.Key()))
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
