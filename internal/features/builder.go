package features

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/internal/infrastructure"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// Missing-value policies.
const (
	PolicyExclude    = "exclude"
	PolicyImputeMean = "impute_mean"
)

// Result is a built feature table with its diagnostics.
type Result struct {
	Table      *domain.FeatureTable
	Exclusions []domain.Exclusion
	// Indicators are the inputs after derivation and year alignment.
	Indicators []*domain.IndicatorTable
}

// Builder joins indicator tables into the feature table.
type Builder struct {
	features config.FeaturesConfig
	analysis config.AnalysisConfig
	universe map[string]bool
	logger   *slog.Logger
	metrics  *infrastructure.AnalysisMetrics
}

// NewBuilder creates a builder. Rows outside states are left out; an empty
// list keeps every state the label covers.
func NewBuilder(features config.FeaturesConfig, analysis config.AnalysisConfig, states []string, logger *slog.Logger, metrics *infrastructure.AnalysisMetrics) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Builder{
		features: features,
		analysis: analysis,
		logger:   infrastructure.WithComponent(logger, "features"),
		metrics:  metrics,
	}
	if len(states) > 0 {
		b.universe = make(map[string]bool, len(states))
		for _, s := range states {
			b.universe[s] = true
		}
	}
	return b
}

// Build derives, aligns and joins tables into one row per labelled
// (state, year), applying the missing-value policy.
func (b *Builder) Build(ctx context.Context, tables []*domain.IndicatorTable) (*Result, error) {
	all, err := Derive(tables, b.features.Derived)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*domain.IndicatorTable, len(all))
	for _, t := range all {
		byName[t.Name()] = t
	}

	label, ok := byName[b.analysis.Label]
	if !ok {
		return nil, apperrors.NewConfigError(fmt.Sprintf("label indicator %q not loaded", b.analysis.Label), nil)
	}

	years := b.analysis.Years
	if len(years) == 0 {
		years = label.Years()
	}
	inYears := make(map[int]bool, len(years))
	for _, y := range years {
		inYears[y] = true
	}

	for _, a := range b.features.Alignment {
		t, ok := byName[a.Indicator]
		if !ok {
			return nil, apperrors.NewConfigError(fmt.Sprintf("alignment for unknown indicator %q", a.Indicator), nil)
		}
		aligned, err := Align(t, years, a.Mode, a.MaxGap)
		if err != nil {
			return nil, err
		}
		byName[a.Indicator] = aligned
		for i := range all {
			if all[i].Name() == a.Indicator {
				all[i] = aligned
			}
		}
	}

	candidates := b.analysis.Candidates
	columns := make([]*domain.IndicatorTable, 0, len(candidates))
	for _, c := range candidates {
		if c == b.analysis.Label {
			return nil, apperrors.NewConfigError(fmt.Sprintf("candidate %q is the label", c), nil)
		}
		t, ok := byName[c]
		if !ok {
			return nil, apperrors.NewConfigError(fmt.Sprintf("candidate indicator %q not loaded", c), nil)
		}
		columns = append(columns, t)
	}

	task := domain.Task(b.analysis.Task)
	if task == "" {
		task = domain.TaskRegression
	}
	table := &domain.FeatureTable{
		Columns: append([]string(nil), candidates...),
		Label:   b.analysis.Label,
		Task:    task,
	}

	var (
		exclusions []domain.Exclusion
		pending    [][]int
	)
	for _, rec := range label.Records() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !inYears[rec.Year] || (b.universe != nil && !b.universe[rec.State]) {
			continue
		}
		if rec.IsMissing() {
			exclusions = append(exclusions, domain.Exclusion{
				State: rec.State, Year: rec.Year, Indicator: label.Name(),
				Reason: domain.ReasonMissingLabel, Value: domain.Unattainable,
			})
			continue
		}

		row := domain.FeatureRow{
			State:  rec.State,
			Year:   rec.Year,
			Values: make(map[string]float64, len(columns)),
			Label:  b.labelValue(rec.Value),
		}
		var missing []int
		for j, col := range columns {
			v := math.NaN()
			if cell, ok := col.Lookup(rec.Key); ok {
				v = cell.Value
			}
			if math.IsNaN(v) {
				missing = append(missing, j)
			}
			row.Values[col.Name()] = v
		}

		if len(missing) > 0 && b.analysis.MissingValues != PolicyImputeMean {
			for _, j := range missing {
				exclusions = append(exclusions, domain.Exclusion{
					State: rec.State, Year: rec.Year, Indicator: candidates[j],
					Reason: domain.ReasonMissingValue, Value: domain.Unattainable,
				})
			}
			continue
		}
		table.Rows = append(table.Rows, row)
		pending = append(pending, missing)
	}

	if b.analysis.MissingValues == PolicyImputeMean {
		imputed, err := imputeMeans(table, pending)
		if err != nil {
			return nil, err
		}
		exclusions = append(exclusions, imputed...)
	}

	b.recordExclusions(ctx, exclusions)
	b.logger.InfoContext(ctx, "feature table built",
		slog.Int("rows", table.Len()),
		slog.Int("columns", len(table.Columns)),
		slog.Int("exclusions", len(exclusions)),
		slog.String("policy", b.policy()))

	return &Result{Table: table, Exclusions: exclusions, Indicators: all}, nil
}

func (b *Builder) labelValue(v float64) float64 {
	if b.analysis.Task != string(domain.TaskClassification) {
		return v
	}
	if v > b.analysis.ClassThreshold {
		return 1
	}
	return 0
}

func (b *Builder) policy() string {
	if b.analysis.MissingValues == "" {
		return PolicyExclude
	}
	return b.analysis.MissingValues
}

func (b *Builder) recordExclusions(ctx context.Context, exclusions []domain.Exclusion) {
	counts := make(map[domain.ExclusionReason]int)
	for _, e := range exclusions {
		counts[e.Reason]++
	}
	for reason, n := range counts {
		b.metrics.RecordExclusions(ctx, string(reason), n)
	}
}

// imputeMeans fills missing cells with the column mean of the observed
// rows. missing[i] lists the column indexes to fill in row i.
func imputeMeans(table *domain.FeatureTable, missing [][]int) ([]domain.Exclusion, error) {
	means := make([]float64, len(table.Columns))
	for j, col := range table.Columns {
		sum, n := 0.0, 0
		for _, row := range table.Rows {
			if v := row.Values[col]; !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 {
			means[j] = math.NaN()
			continue
		}
		means[j] = sum / float64(n)
	}

	var out []domain.Exclusion
	for i, cols := range missing {
		row := table.Rows[i]
		for _, j := range cols {
			if math.IsNaN(means[j]) {
				return nil, fmt.Errorf("cannot impute %q: no observed values", table.Columns[j])
			}
			row.Values[table.Columns[j]] = means[j]
			out = append(out, domain.Exclusion{
				State: row.State, Year: row.Year, Indicator: table.Columns[j],
				Reason: domain.ReasonImputed, Value: domain.Score(means[j]),
			})
		}
	}
	return out, nil
}
