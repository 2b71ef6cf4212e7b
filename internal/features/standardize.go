package features

import (
	"github.com/Simon3728/Data-Analysis-Election/internal/models"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// Scaling records the z-score parameters applied to a feature table.
type Scaling struct {
	Mean        map[string]float64 `json:"mean"`
	Std         map[string]float64 `json:"std"`
	LabelScaled bool               `json:"label_scaled"`
	LabelMean   float64            `json:"label_mean,omitempty"`
	LabelStd    float64            `json:"label_std,omitempty"`
}

// Standardize returns a copy of t with every feature column z-scored over
// all rows. Regression labels are scaled too; class labels are kept.
func Standardize(t *domain.FeatureTable) (*domain.FeatureTable, *Scaling) {
	out := t.Clone()
	scaling := &Scaling{
		Mean: make(map[string]float64, len(t.Columns)),
		Std:  make(map[string]float64, len(t.Columns)),
	}
	if out.Len() == 0 {
		return out, scaling
	}

	for _, col := range out.Columns {
		values, _ := out.Column(col)
		scaled, mean, std := models.ScaleVector(values)
		for i := range out.Rows {
			out.Rows[i].Values[col] = scaled[i]
		}
		scaling.Mean[col] = mean
		scaling.Std[col] = std
	}

	if out.Task != domain.TaskClassification {
		scaled, mean, std := models.ScaleVector(out.Labels())
		for i := range out.Rows {
			out.Rows[i].Label = scaled[i]
		}
		scaling.LabelScaled = true
		scaling.LabelMean, scaling.LabelStd = mean, std
	}
	return out, scaling
}
