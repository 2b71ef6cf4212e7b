package loader

import (
	"math"
	"strconv"
	"strings"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
)

// missingTokens are cell contents that mean "no value" in the sources,
// including the BEA suppression markers.
var missingTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	".":    true,
	"-":    true,
	"--":   true,
	"none": true,
	"(na)": true,
	"(d)":  true,
	"(x)":  true,
	"(l)":  true,
	"(nm)": true,
	"#n/a": true,
}

// isMissing reports whether raw is an empty or placeholder cell.
func isMissing(raw string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(raw))]
}

// coerce parses raw according to the column declaration. ok is false when
// the text cannot be read as the declared type. A missing cell yields NaN
// with ok true; callers check Required separately.
func coerce(raw string, col config.ColumnConfig) (float64, bool) {
	if isMissing(raw) {
		return math.NaN(), true
	}

	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	if col.Thousands != "" {
		s = strings.ReplaceAll(s, col.Thousands, "")
	}
	if col.DecimalComma {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	s = strings.ReplaceAll(s, " ", "")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	if col.Type == "int" && v != math.Trunc(v) {
		return 0, false
	}
	if col.Scale != 0 {
		v *= col.Scale
	}
	return v, true
}

// parseYear reads a four digit year, optionally from the start of a date.
func parseYear(raw string, datePrefix bool) (int, bool) {
	s := strings.TrimSpace(raw)
	if datePrefix {
		if len(s) < 4 {
			return 0, false
		}
		s = s[:4]
	} else if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) {
		s = strconv.Itoa(int(f))
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < 1000 || y > 9999 {
		return 0, false
	}
	return y, true
}
