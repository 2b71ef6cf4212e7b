package exporter

import (
	"math"
	"strconv"

	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// formatFloat writes the shortest representation that parses back to f.
// Missing values are written as empty cells.
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatScore formats a score for human-facing output with 4 decimals.
func formatScore(s domain.Score) string {
	if !s.Finite() {
		return "n/a"
	}
	return strconv.FormatFloat(float64(s), 'f', 4, 64)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}
