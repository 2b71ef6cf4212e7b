package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// rcond is the relative singular value cutoff for the least squares rank.
const rcond = 1e-10

// LinearRegression is ordinary least squares with an intercept. Rank
// deficient designs get the minimum-norm solution. Classify rounds
// predictions to the nearest of the training labels.
type LinearRegression struct {
	Classify bool
}

// Fit implements Estimator.
func (l *LinearRegression) Fit(x [][]float64, y []float64) (domain.Predictor, error) {
	model, err := fitOLS(x, y)
	if err != nil {
		return nil, err
	}
	if l.Classify {
		if err := checkClasses(y); err != nil {
			return nil, err
		}
		model.classes = distinct(y)
	}
	return model, nil
}

// LinearModel is a fitted least squares model.
type LinearModel struct {
	Intercept float64
	Coef      []float64
	classes   []float64
}

// Predict implements domain.Predictor.
func (m *LinearModel) Predict(x [][]float64) ([]float64, error) {
	if err := checkWidth(x, len(m.Coef)); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for i, row := range x {
		v := m.Intercept
		for j, c := range m.Coef {
			v += c * row[j]
		}
		if m.classes != nil {
			v = nearest(m.classes, v)
		}
		out[i] = v
	}
	return out, nil
}

func fitOLS(x [][]float64, y []float64) (*LinearModel, error) {
	if err := checkTraining(x, y, 2); err != nil {
		return nil, err
	}
	n, p := len(x), len(x[0])
	if err := checkWidth(x, p); err != nil {
		return nil, err
	}

	xMean := make([]float64, p)
	yMean := 0.0
	for i, row := range x {
		for j, v := range row {
			xMean[j] += v
		}
		yMean += y[i]
	}
	for j := range xMean {
		xMean[j] /= float64(n)
	}
	yMean /= float64(n)

	a := mat.NewDense(n, p, nil)
	b := mat.NewDense(n, 1, nil)
	for i, row := range x {
		for j, v := range row {
			a.Set(i, j, v-xMean[j])
		}
		b.Set(i, 0, y[i]-yMean)
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, apperrors.NewDegenerateFoldError(-1, "least squares factorization failed")
	}
	rank := svd.Rank(rcond)
	coef := make([]float64, p)
	if rank > 0 {
		var beta mat.Dense
		svd.SolveTo(&beta, b, rank)
		for j := range coef {
			coef[j] = beta.At(j, 0)
		}
	}

	intercept := yMean
	for j, c := range coef {
		intercept -= c * xMean[j]
	}
	for _, c := range coef {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("least squares produced a non-finite coefficient")
		}
	}
	return &LinearModel{Intercept: intercept, Coef: coef}, nil
}

func distinct(y []float64) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, v := range y {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// nearest returns the class closest to v; ties go to the smaller class.
func nearest(classes []float64, v float64) float64 {
	best := classes[0]
	for _, c := range classes[1:] {
		d, bd := math.Abs(v-c), math.Abs(v-best)
		if d < bd || (d == bd && c < best) {
			best = c
		}
	}
	return best
}
