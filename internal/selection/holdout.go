package selection

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/internal/models"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// Holdout is a configuration refitted on the training split and scored on
// both splits. The matrices and predictions feed the model plots.
type Holdout struct {
	Config    domain.ModelConfiguration
	Subset    []string
	XTrain    [][]float64
	YTrain    []float64
	XTest     [][]float64
	YTest     []float64
	PredTrain []float64
	PredTest  []float64
	Metrics   map[string]domain.Score
}

// Holdout refits cfg on the evaluator's table and scores it on test, the
// rows held out of selection. Metrics undefined on a split are
// unattainable.
func (e *Evaluator) Holdout(ctx context.Context, test *domain.FeatureTable, subset []string, cfg domain.ModelConfiguration) (*Holdout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.table.Len() == 0 || test == nil || test.Len() == 0 {
		return nil, apperrors.NewDegenerateFoldError(-1, "holdout needs training and test rows").ForSubset(subset)
	}
	h := &Holdout{Config: cfg, Subset: append([]string(nil), subset...)}
	var err error
	if h.XTrain, err = e.table.Matrix(subset); err != nil {
		return nil, apperrors.NewConfigError("holdout", err)
	}
	h.YTrain = e.table.Labels()
	if h.XTest, err = test.Matrix(subset); err != nil {
		return nil, apperrors.NewConfigError("holdout", err)
	}
	h.YTest = test.Labels()

	est, err := models.New(cfg.Family, cfg.Params, e.cv.Task)
	if err != nil {
		return nil, apperrors.NewConfigError("holdout", err)
	}
	model, err := est.Fit(h.XTrain, h.YTrain)
	if err != nil {
		if dfe, ok := asDegenerate(err); ok {
			return nil, dfe.ForSubset(subset)
		}
		return nil, err
	}
	h.Config.Model = model

	if h.PredTrain, err = model.Predict(h.XTrain); err != nil {
		return nil, fmt.Errorf("predict train split: %w", err)
	}
	if h.PredTest, err = model.Predict(h.XTest); err != nil {
		return nil, fmt.Errorf("predict test split: %w", err)
	}

	h.Metrics = e.metricsFor(h)
	e.logger.InfoContext(ctx, "holdout evaluated",
		slog.String("family", string(cfg.Family)),
		slog.Any("subset", subset),
		slog.Int("train_rows", len(h.YTrain)),
		slog.Int("test_rows", len(h.YTest)))
	return h, nil
}

func (e *Evaluator) metricsFor(h *Holdout) map[string]domain.Score {
	metric := func(f func(a, b []float64) (float64, error), yTrue, yPred []float64) domain.Score {
		v, err := f(yTrue, yPred)
		if err != nil {
			return domain.Unattainable
		}
		return domain.Score(v)
	}
	if e.cv.Task == domain.TaskClassification {
		return map[string]domain.Score{
			domain.MetricAccuracyTrain: metric(models.Accuracy, h.YTrain, h.PredTrain),
			domain.MetricAccuracyTest:  metric(models.Accuracy, h.YTest, h.PredTest),
		}
	}
	return map[string]domain.Score{
		domain.MetricR2Train: metric(models.R2, h.YTrain, h.PredTrain),
		domain.MetricR2Test:  metric(models.R2, h.YTest, h.PredTest),
		domain.MetricMSETest: metric(models.MSE, h.YTest, h.PredTest),
	}
}
