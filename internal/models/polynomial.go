package models

import (
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// PolynomialFeatures expands rows into every monomial of total degree 1..Degree,
// interactions included, in graded lexicographic order.
type PolynomialFeatures struct {
	Degree int
	terms  [][]int
}

// NewPolynomialFeatures prepares the expansion for inputs of the given width.
func NewPolynomialFeatures(degree, width int) *PolynomialFeatures {
	pf := &PolynomialFeatures{Degree: degree}
	for d := 1; d <= degree; d++ {
		combinations(width, d, 0, nil, func(c []int) {
			pf.terms = append(pf.terms, append([]int(nil), c...))
		})
	}
	return pf
}

// combinations enumerates multisets of size d over [start, width) in order.
func combinations(width, d, start int, prefix []int, emit func([]int)) {
	if d == 0 {
		emit(prefix)
		return
	}
	for i := start; i < width; i++ {
		combinations(width, d-1, i, append(prefix, i), emit)
	}
}

// Len returns the number of output features.
func (pf *PolynomialFeatures) Len() int { return len(pf.terms) }

// Transform expands x.
func (pf *PolynomialFeatures) Transform(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		expanded := make([]float64, len(pf.terms))
		for t, term := range pf.terms {
			v := 1.0
			for _, j := range term {
				v *= row[j]
			}
			expanded[t] = v
		}
		out[i] = expanded
	}
	return out
}

// PolynomialRegression fits least squares on the polynomial expansion.
type PolynomialRegression struct {
	Degree   int
	Classify bool
}

// Fit implements Estimator.
func (p *PolynomialRegression) Fit(x [][]float64, y []float64) (domain.Predictor, error) {
	if err := checkTraining(x, y, 2); err != nil {
		return nil, err
	}
	pf := NewPolynomialFeatures(p.Degree, len(x[0]))
	if err := checkWidth(x, len(x[0])); err != nil {
		return nil, err
	}
	linear, err := (&LinearRegression{Classify: p.Classify}).Fit(pf.Transform(x), y)
	if err != nil {
		return nil, err
	}
	return &PolynomialModel{Features: pf, Linear: linear.(*LinearModel)}, nil
}

// PolynomialModel is a fitted polynomial regression.
type PolynomialModel struct {
	Features *PolynomialFeatures
	Linear   *LinearModel
}

// Predict implements domain.Predictor.
func (m *PolynomialModel) Predict(x [][]float64) ([]float64, error) {
	if err := checkWidth(x, m.inputWidth()); err != nil {
		return nil, err
	}
	return m.Linear.Predict(m.Features.Transform(x))
}

func (m *PolynomialModel) inputWidth() int {
	width := 0
	for _, term := range m.Features.terms {
		if len(term) == 1 {
			width++
		}
	}
	return width
}
