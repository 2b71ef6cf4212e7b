package domain

import (
	"encoding/json"
	"math"
	"strconv"
)

// Score is a cross-validated goodness of fit. Non-finite scores (an
// unattainable candidate, an undefined metric) encode as JSON null and
// decode back as negative infinity.
type Score float64

// Unattainable is the score of a candidate that could not be evaluated.
var Unattainable = Score(math.Inf(-1))

// Finite reports whether the score is a real number.
func (s Score) Finite() bool {
	f := float64(s)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// MarshalJSON implements json.Marshaler.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Finite() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(s), 'g', -1, 64)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Score) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Unattainable
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*s = Score(f)
	return nil
}

// ModelFamily names a supported estimator.
type ModelFamily string

const (
	FamilyKNN        ModelFamily = "knn"
	FamilyLinear     ModelFamily = "linear"
	FamilyPolynomial ModelFamily = "polynomial"
)

// Valid reports whether the family is known.
func (f ModelFamily) Valid() bool {
	switch f {
	case FamilyKNN, FamilyLinear, FamilyPolynomial:
		return true
	}
	return false
}

// Hyperparameters of one grid point. Zero means "not used by this family".
type Hyperparameters struct {
	K      int `json:"k,omitempty"`
	Degree int `json:"degree,omitempty"`
}

// Predictor is a fitted model.
type Predictor interface {
	Predict(x [][]float64) ([]float64, error)
}

// ModelConfiguration pairs hyperparameters with their cross-validated score
// and, once refitted, the model itself.
type ModelConfiguration struct {
	Family ModelFamily     `json:"family"`
	Params Hyperparameters `json:"params"`
	Score  Score           `json:"score"`
	Model  Predictor       `json:"-"`
}

// CandidateScore is the score one candidate feature reached in one
// selection iteration.
type CandidateScore struct {
	Feature string `json:"feature"`
	Score   Score  `json:"score"`
	Skipped bool   `json:"skipped,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// SelectionStep records one accepted addition to the subset.
type SelectionStep struct {
	Iteration  int              `json:"iteration"`
	Feature    string           `json:"feature"`
	Subset     []string         `json:"subset"`
	Score      Score            `json:"score"`
	Candidates []CandidateScore `json:"candidates"`
}

// SelectionResult is the outcome of greedy forward selection.
type SelectionResult struct {
	Subset []string        `json:"subset"`
	Score  Score           `json:"score"`
	Steps  []SelectionStep `json:"steps"`
	// Final holds the candidate scores of the iteration that stopped the search.
	Final []CandidateScore `json:"final,omitempty"`
}

// EvaluationResult is a grid search outcome for one subset.
type EvaluationResult struct {
	Subset []string             `json:"subset"`
	Best   ModelConfiguration   `json:"best"`
	Grid   []ModelConfiguration `json:"grid"`
}

// Metric names.
const (
	MetricR2Train       = "r2_train"
	MetricR2Test        = "r2_test"
	MetricMSETest       = "mse_test"
	MetricAccuracyTrain = "accuracy_train"
	MetricAccuracyTest  = "accuracy_test"
)
