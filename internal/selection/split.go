package selection

import (
	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/internal/models"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// Split is a seeded train/test partition of a feature table. Selection and
// grid search run on Train only; Test is scored once, by Holdout.
type Split struct {
	Train *domain.FeatureTable
	Test  *domain.FeatureTable
}

// SplitTable partitions the rows of table. The partition depends only on
// the row count, testFraction and seed.
func SplitTable(table *domain.FeatureTable, testFraction float64, seed int64) (*Split, error) {
	trainIdx, testIdx, err := models.TrainTestSplit(table.Len(), testFraction, seed)
	if err != nil {
		return nil, apperrors.NewDegenerateFoldError(-1, err.Error())
	}
	return &Split{Train: subTable(table, trainIdx), Test: subTable(table, testIdx)}, nil
}

func subTable(t *domain.FeatureTable, idx []int) *domain.FeatureTable {
	out := &domain.FeatureTable{
		Columns: append([]string(nil), t.Columns...),
		Label:   t.Label,
		Task:    t.Task,
		Rows:    make([]domain.FeatureRow, len(idx)),
	}
	for i, j := range idx {
		out.Rows[i] = t.Rows[j]
	}
	return out
}
