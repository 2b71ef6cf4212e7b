package models

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
)

// R2 is the coefficient of determination. Constant true values leave it
// undefined, which is reported as a degenerate fold.
func R2(yTrue, yPred []float64) (float64, error) {
	if err := sameLength(yTrue, yPred); err != nil {
		return 0, err
	}
	if len(yTrue) < 2 || stat.Variance(yTrue, nil) == 0 {
		return 0, apperrors.NewDegenerateFoldError(-1, "test labels have zero variance")
	}
	return stat.RSquaredFrom(yPred, yTrue, nil), nil
}

// MSE is the mean squared error.
func MSE(yTrue, yPred []float64) (float64, error) {
	if err := sameLength(yTrue, yPred); err != nil {
		return 0, err
	}
	sum := 0.0
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		sum += d * d
	}
	return sum / float64(len(yTrue)), nil
}

// Accuracy is the share of exact matches.
func Accuracy(yTrue, yPred []float64) (float64, error) {
	if err := sameLength(yTrue, yPred); err != nil {
		return 0, err
	}
	hits := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(yTrue)), nil
}

func sameLength(yTrue, yPred []float64) error {
	if len(yTrue) == 0 {
		return apperrors.NewDegenerateFoldError(-1, "empty evaluation set")
	}
	if len(yTrue) != len(yPred) {
		return fmt.Errorf("metric over %d labels and %d predictions", len(yTrue), len(yPred))
	}
	return nil
}
