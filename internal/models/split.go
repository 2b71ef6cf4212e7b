package models

import (
	"fmt"
	"math"
	"math/rand"
)

// Fold is one cross-validation split of row indexes.
type Fold struct {
	Train []int
	Test  []int
}

// KFold splits n rows into k contiguous folds. The first n%k folds hold one
// extra row. With shuffle the rows are permuted first using seed.
func KFold(n, k int, shuffle bool, seed int64) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("k-fold needs at least 2 folds, got %d", k)
	}
	if n < k {
		return nil, fmt.Errorf("cannot split %d rows into %d folds", n, k)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if shuffle {
		rand.New(rand.NewSource(seed)).Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	folds := make([]Fold, 0, k)
	start := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		test := append([]int(nil), order[start:start+size]...)
		train := make([]int, 0, n-size)
		train = append(train, order[:start]...)
		train = append(train, order[start+size:]...)
		folds = append(folds, Fold{Train: train, Test: test})
		start += size
	}
	return folds, nil
}

// TrainTestSplit shuffles n rows with seed and holds out ceil(n*testFraction)
// of them for testing.
func TrainTestSplit(n int, testFraction float64, seed int64) (train, test []int, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction must be in (0, 1), got %g", testFraction)
	}
	nTest := int(math.Ceil(float64(n)*testFraction - 1e-9))
	if nTest < 1 || nTest >= n {
		return nil, nil, fmt.Errorf("cannot hold out %d of %d rows", nTest, n)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// Rows selects rows of x and y by index.
func Rows(x [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for i, j := range idx {
		xs[i] = x[j]
		ys[i] = y[j]
	}
	return xs, ys
}
