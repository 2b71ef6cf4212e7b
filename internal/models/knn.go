package models

import (
	"fmt"
	"math"
	"sort"

	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// KNN is a brute-force k-nearest-neighbours estimator with uniform weights
// and Euclidean distance. Classify switches from the neighbour mean to a
// majority vote; vote ties go to the smallest label.
type KNN struct {
	K        int
	Classify bool
}

// Fit implements Estimator.
func (k *KNN) Fit(x [][]float64, y []float64) (domain.Predictor, error) {
	if err := checkTraining(x, y, 1); err != nil {
		return nil, err
	}
	if k.K > len(x) {
		return nil, apperrors.NewDegenerateFoldError(-1, fmt.Sprintf("k=%d exceeds %d training rows", k.K, len(x)))
	}
	if k.Classify {
		if err := checkClasses(y); err != nil {
			return nil, err
		}
	}
	if err := checkWidth(x, len(x[0])); err != nil {
		return nil, err
	}
	return &knnModel{k: k.K, classify: k.Classify, x: copyMatrix(x), y: append([]float64(nil), y...)}, nil
}

type knnModel struct {
	k        int
	classify bool
	x        [][]float64
	y        []float64
}

type neighbour struct {
	dist  float64
	index int
}

func (m *knnModel) Predict(x [][]float64) ([]float64, error) {
	if err := checkWidth(x, len(m.x[0])); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	near := make([]neighbour, len(m.x))
	for i, q := range x {
		for j, p := range m.x {
			near[j] = neighbour{dist: sqDist(q, p), index: j}
		}
		sort.SliceStable(near, func(a, b int) bool { return near[a].dist < near[b].dist })
		if m.classify {
			out[i] = m.vote(near[:m.k])
		} else {
			sum := 0.0
			for _, n := range near[:m.k] {
				sum += m.y[n.index]
			}
			out[i] = sum / float64(m.k)
		}
	}
	return out, nil
}

func (m *knnModel) vote(near []neighbour) float64 {
	counts := make(map[float64]int, len(near))
	for _, n := range near {
		counts[m.y[n.index]]++
	}
	best, bestCount := math.Inf(1), -1
	for label, c := range counts {
		if c > bestCount || (c == bestCount && label < best) {
			best, bestCount = label, c
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	d := 0.0
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return d
}

func copyMatrix(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
