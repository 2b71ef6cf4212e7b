package models

import (
	"fmt"

	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// Estimator fits a model to training rows.
type Estimator interface {
	Fit(x [][]float64, y []float64) (domain.Predictor, error)
}

// New returns the estimator for one grid point of a family.
func New(family domain.ModelFamily, params domain.Hyperparameters, task domain.Task) (Estimator, error) {
	switch family {
	case domain.FamilyKNN:
		if params.K < 1 {
			return nil, fmt.Errorf("knn: k must be positive, got %d", params.K)
		}
		return &KNN{K: params.K, Classify: task == domain.TaskClassification}, nil
	case domain.FamilyLinear:
		return &LinearRegression{Classify: task == domain.TaskClassification}, nil
	case domain.FamilyPolynomial:
		if params.Degree < 1 {
			return nil, fmt.Errorf("polynomial: degree must be positive, got %d", params.Degree)
		}
		return &PolynomialRegression{Degree: params.Degree, Classify: task == domain.TaskClassification}, nil
	default:
		return nil, fmt.Errorf("unknown model family %q", family)
	}
}

func checkTraining(x [][]float64, y []float64, minRows int) error {
	if len(x) != len(y) {
		return fmt.Errorf("training set has %d rows but %d labels", len(x), len(y))
	}
	if len(x) < minRows {
		return apperrors.NewDegenerateFoldError(-1, fmt.Sprintf("%d training rows, need at least %d", len(x), minRows))
	}
	return nil
}

// checkClasses rejects a classification training set with one label class.
func checkClasses(y []float64) error {
	for _, v := range y[1:] {
		if v != y[0] {
			return nil
		}
	}
	return apperrors.NewDegenerateFoldError(-1, "training split holds a single label class")
}

func checkWidth(x [][]float64, width int) error {
	for i, row := range x {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, model expects %d", i, len(row), width)
		}
	}
	return nil
}
