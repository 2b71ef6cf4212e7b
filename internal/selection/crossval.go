package selection

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/internal/models"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// CVOptions controls k-fold cross-validation.
type CVOptions struct {
	Folds   int
	Shuffle bool
	Seed    int64
	Task    domain.Task
}

// CrossValidate fits est on every training split and returns the mean
// test score: R² for regression, accuracy for classification. A fold that
// cannot be fitted or scored fails the whole run with a DegenerateFoldError
// naming the fold.
func CrossValidate(ctx context.Context, est models.Estimator, x [][]float64, y []float64, opts CVOptions) (domain.Score, error) {
	folds, err := models.KFold(len(x), opts.Folds, opts.Shuffle, opts.Seed)
	if err != nil {
		return domain.Unattainable, apperrors.NewDegenerateFoldError(-1, err.Error())
	}

	total := 0.0
	for i, fold := range folds {
		if err := ctx.Err(); err != nil {
			return domain.Unattainable, err
		}
		xTrain, yTrain := models.Rows(x, y, fold.Train)
		xTest, yTest := models.Rows(x, y, fold.Test)

		model, err := est.Fit(xTrain, yTrain)
		if err != nil {
			return domain.Unattainable, atFold(err, i)
		}
		pred, err := model.Predict(xTest)
		if err != nil {
			return domain.Unattainable, fmt.Errorf("fold %d: %w", i, err)
		}
		s, err := Score(opts.Task, yTest, pred)
		if err != nil {
			return domain.Unattainable, atFold(err, i)
		}
		total += s
	}
	return domain.Score(total / float64(len(folds))), nil
}

// Score applies the task's metric.
func Score(task domain.Task, yTrue, yPred []float64) (float64, error) {
	if task == domain.TaskClassification {
		return models.Accuracy(yTrue, yPred)
	}
	return models.R2(yTrue, yPred)
}

func atFold(err error, fold int) error {
	var dfe *apperrors.DegenerateFoldError
	if errors.As(err, &dfe) && dfe.Fold < 0 {
		cp := *dfe
		cp.Fold = fold
		return &cp
	}
	return err
}
