package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/internal/infrastructure"
	"github.com/Simon3728/Data-Analysis-Election/internal/models"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// Degenerate-fold policies.
const (
	PolicySkip = "skip"
	PolicyFail = "fail"
)

// Grid is the ordered hyperparameter grid of one model family.
type Grid struct {
	Family domain.ModelFamily
	Points []domain.Hyperparameters
}

// NewGrid expands the configured range for family.
func NewGrid(family domain.ModelFamily, cfg config.ModelsConfig) (Grid, error) {
	g := Grid{Family: family}
	switch family {
	case domain.FamilyKNN:
		for _, k := range cfg.K.Expand() {
			g.Points = append(g.Points, domain.Hyperparameters{K: k})
		}
	case domain.FamilyPolynomial:
		for _, d := range cfg.Degree.Expand() {
			g.Points = append(g.Points, domain.Hyperparameters{Degree: d})
		}
	case domain.FamilyLinear:
		g.Points = []domain.Hyperparameters{{}}
	default:
		return Grid{}, apperrors.NewConfigError(fmt.Sprintf("unknown model family %q", family), nil)
	}
	if len(g.Points) == 0 {
		return Grid{}, apperrors.NewConfigError(fmt.Sprintf("empty grid for %s", family), nil)
	}
	return g, nil
}

// Evaluator runs grid searches and holdout evaluation over one feature
// table.
type Evaluator struct {
	table        *domain.FeatureTable
	cv           CVOptions
	onDegenerate string
	logger       *slog.Logger
	metrics      *infrastructure.AnalysisMetrics
}

// NewEvaluator creates an evaluator. The task is taken from the table.
func NewEvaluator(table *domain.FeatureTable, analysis config.AnalysisConfig, logger *slog.Logger, metrics *infrastructure.AnalysisMetrics) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	onDegenerate := analysis.OnDegenerate
	if onDegenerate == "" {
		onDegenerate = PolicySkip
	}
	return &Evaluator{
		table: table,
		cv: CVOptions{
			Folds:   analysis.Folds,
			Shuffle: analysis.Shuffle,
			Seed:    analysis.Seed,
			Task:    table.Task,
		},
		onDegenerate: onDegenerate,
		logger:       infrastructure.WithComponent(logger, "evaluator"),
		metrics:      metrics,
	}
}

// GridSearch cross-validates every grid point on subset and returns the
// first point with the highest score. Degenerate points score as
// unattainable under the skip policy; when every point is unattainable the
// search fails with a DegenerateFoldError.
func (e *Evaluator) GridSearch(ctx context.Context, subset []string, grid Grid) (*domain.EvaluationResult, error) {
	x, err := e.table.Matrix(subset)
	if err != nil {
		return nil, apperrors.NewConfigError("grid search", err)
	}
	y := e.table.Labels()

	result := &domain.EvaluationResult{
		Subset: append([]string(nil), subset...),
		Grid:   make([]domain.ModelConfiguration, 0, len(grid.Points)),
	}
	best := -1
	var lastDegenerate *apperrors.DegenerateFoldError
	for _, params := range grid.Points {
		est, err := models.New(grid.Family, params, e.cv.Task)
		if err != nil {
			return nil, apperrors.NewConfigError("grid point", err)
		}
		score, err := CrossValidate(ctx, est, x, y, e.cv)
		if err != nil {
			dfe, ok := asDegenerate(err)
			if !ok || e.onDegenerate == PolicyFail {
				if ok {
					return nil, dfe.ForSubset(subset)
				}
				return nil, err
			}
			lastDegenerate = dfe
			score = domain.Unattainable
		}
		result.Grid = append(result.Grid, domain.ModelConfiguration{Family: grid.Family, Params: params, Score: score})
		if score.Finite() && (best < 0 || score > result.Grid[best].Score) {
			best = len(result.Grid) - 1
		}
	}

	if best < 0 {
		reason := "every grid point is degenerate"
		if lastDegenerate != nil {
			reason += ": " + lastDegenerate.Reason
		}
		return nil, apperrors.NewDegenerateFoldError(-1, reason).ForSubset(subset)
	}
	result.Best = result.Grid[best]

	e.logger.DebugContext(ctx, "grid search finished",
		slog.String("family", string(grid.Family)),
		slog.Any("subset", subset),
		slog.Any("params", result.Best.Params),
		slog.Float64("score", float64(result.Best.Score)))
	return result, nil
}

// ScoreFunc scores one feature subset.
type ScoreFunc func(ctx context.Context, subset []string) (domain.Score, error)

// GridScorer scores a subset by its best grid point.
func (e *Evaluator) GridScorer(grid Grid) ScoreFunc {
	return func(ctx context.Context, subset []string) (domain.Score, error) {
		res, err := e.GridSearch(ctx, subset, grid)
		if err != nil {
			return domain.Unattainable, err
		}
		return res.Best.Score, nil
	}
}

// OnDegenerate returns the active degenerate-fold policy.
func (e *Evaluator) OnDegenerate() string { return e.onDegenerate }

func asDegenerate(err error) (*apperrors.DegenerateFoldError, bool) {
	var dfe *apperrors.DegenerateFoldError
	if errors.As(err, &dfe) {
		return dfe, true
	}
	return nil, false
}
