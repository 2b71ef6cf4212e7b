package features

import (
	"fmt"
	"math"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// Derive appends the derived indicators to tables, in declaration order,
// so a derivation may use an earlier one. Keys are those present in every
// input; a missing input value yields a missing result.
func Derive(tables []*domain.IndicatorTable, derived []config.DerivedConfig) ([]*domain.IndicatorTable, error) {
	out := append([]*domain.IndicatorTable(nil), tables...)
	byName := make(map[string]*domain.IndicatorTable, len(tables)+len(derived))
	for _, t := range tables {
		byName[t.Name()] = t
	}

	for _, d := range derived {
		if _, exists := byName[d.Name]; exists {
			return nil, apperrors.NewConfigError(fmt.Sprintf("derived indicator %q already exists", d.Name), nil)
		}
		inputs := make([]*domain.IndicatorTable, 0, len(d.Inputs))
		for _, name := range d.Inputs {
			t, ok := byName[name]
			if !ok {
				return nil, apperrors.NewConfigError(fmt.Sprintf("derived indicator %q needs unknown input %q", d.Name, name), nil)
			}
			inputs = append(inputs, t)
		}
		if (d.Op == "ratio" || d.Op == "difference") && len(inputs) != 2 {
			return nil, apperrors.NewConfigError(fmt.Sprintf("derived indicator %q: %s takes two inputs", d.Name, d.Op), nil)
		}

		table, err := derive(d, inputs)
		if err != nil {
			return nil, err
		}
		byName[d.Name] = table
		out = append(out, table)
	}
	return out, nil
}

func derive(d config.DerivedConfig, inputs []*domain.IndicatorTable) (*domain.IndicatorTable, error) {
	scale := d.Scale
	if scale == 0 {
		scale = 1
	}

	var records []domain.IndicatorRecord
	for _, base := range inputs[0].Records() {
		values := make([]float64, 0, len(inputs))
		values = append(values, base.Value)
		present := true
		for _, other := range inputs[1:] {
			rec, ok := other.Lookup(base.Key)
			if !ok {
				present = false
				break
			}
			values = append(values, rec.Value)
		}
		if !present {
			continue
		}

		v := apply(d.Op, values) * scale
		if d.Round != nil && !math.IsNaN(v) {
			v = roundTo(v, *d.Round)
		}
		records = append(records, domain.IndicatorRecord{Key: base.Key, Value: v})
	}
	return domain.NewIndicatorTable(d.Name, "derived:"+d.Op, records)
}

func apply(op string, values []float64) float64 {
	for _, v := range values {
		if math.IsNaN(v) {
			return math.NaN()
		}
	}
	switch op {
	case "ratio":
		if values[1] == 0 {
			return math.NaN()
		}
		return values[0] / values[1]
	case "difference":
		return values[0] - values[1]
	case "sum":
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum
	default:
		return values[0]
	}
}

// roundTo rounds half to even at the given number of decimals.
func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.RoundToEven(v*p) / p
}
