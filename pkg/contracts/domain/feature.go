package domain

import (
	"fmt"
	"math"
)

// Task says whether the label is continuous or a class.
type Task string

const (
	TaskRegression     Task = "regression"
	TaskClassification Task = "classification"
)

// Valid reports whether the task is known.
func (t Task) Valid() bool {
	return t == TaskRegression || t == TaskClassification
}

// FeatureRow is one (state, year) row of the joined table.
type FeatureRow struct {
	State  string             `json:"state"`
	Year   int                `json:"year"`
	Values map[string]float64 `json:"values"`
	Label  float64            `json:"label"`
}

// Key returns the row key.
func (r FeatureRow) Key() Key {
	return Key{State: r.State, Year: r.Year}
}

// FeatureTable is the wide table fed to the models: one column per
// indicator plus the election label.
type FeatureTable struct {
	Columns []string     `json:"columns"`
	Label   string       `json:"label"`
	Task    Task         `json:"task"`
	Rows    []FeatureRow `json:"rows"`
}

// Len returns the row count.
func (t *FeatureTable) Len() int { return len(t.Rows) }

// HasColumn reports whether name is a feature column.
func (t *FeatureTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Column returns the values of one feature column in row order.
func (t *FeatureTable) Column(name string) ([]float64, error) {
	if !t.HasColumn(name) {
		return nil, fmt.Errorf("unknown feature column %q", name)
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		v, ok := row.Values[name]
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out, nil
}

// Matrix returns rows × len(subset) values for the requested columns.
func (t *FeatureTable) Matrix(subset []string) ([][]float64, error) {
	for _, name := range subset {
		if !t.HasColumn(name) {
			return nil, fmt.Errorf("unknown feature column %q", name)
		}
	}
	out := make([][]float64, len(t.Rows))
	for i, row := range t.Rows {
		vec := make([]float64, len(subset))
		for j, name := range subset {
			v, ok := row.Values[name]
			if !ok {
				v = math.NaN()
			}
			vec[j] = v
		}
		out[i] = vec
	}
	return out, nil
}

// Labels returns the label column in row order.
func (t *FeatureTable) Labels() []float64 {
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row.Label
	}
	return out
}

// Clone returns a deep copy.
func (t *FeatureTable) Clone() *FeatureTable {
	cp := &FeatureTable{
		Columns: append([]string(nil), t.Columns...),
		Label:   t.Label,
		Task:    t.Task,
		Rows:    make([]FeatureRow, len(t.Rows)),
	}
	for i, row := range t.Rows {
		values := make(map[string]float64, len(row.Values))
		for k, v := range row.Values {
			values[k] = v
		}
		cp.Rows[i] = FeatureRow{State: row.State, Year: row.Year, Values: values, Label: row.Label}
	}
	return cp
}
