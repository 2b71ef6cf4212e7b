package features

import (
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// Align re-keys a sparsely observed indicator onto the target years. In
// nearest mode each target year takes the closest observed year of the
// same state, the earlier one on a tie, and at most maxGap years away
// (0 means unbounded). Exact mode keeps only records already on a target
// year.
func Align(t *domain.IndicatorTable, years []int, mode string, maxGap int) (*domain.IndicatorTable, error) {
	var records []domain.IndicatorRecord
	for _, state := range t.States() {
		observed := t.YearsFor(state)
		for _, target := range years {
			src, ok := pickYear(observed, target, mode, maxGap)
			if !ok {
				continue
			}
			rec, _ := t.Lookup(domain.Key{State: state, Year: src})
			records = append(records, domain.IndicatorRecord{
				Key:   domain.Key{State: state, Year: target},
				Value: rec.Value,
			})
		}
	}
	return domain.NewIndicatorTable(t.Name(), t.Source(), records)
}

// pickYear chooses the source year for target. observed is ascending.
func pickYear(observed []int, target int, mode string, maxGap int) (int, bool) {
	best, bestGap := 0, -1
	for _, y := range observed {
		gap := y - target
		if gap < 0 {
			gap = -gap
		}
		if mode != "nearest" && gap != 0 {
			continue
		}
		if bestGap < 0 || gap < bestGap {
			best, bestGap = y, gap
		}
	}
	if bestGap < 0 || (maxGap > 0 && bestGap > maxGap) {
		return 0, false
	}
	return best, true
}
