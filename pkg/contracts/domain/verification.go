package domain

import "sort"

// CoverageGap is an expected (indicator, state, year) combination absent
// from the loaded data.
type CoverageGap struct {
	Indicator string `json:"indicator"`
	State     string `json:"state"`
	Year      int    `json:"year"`
}

// FindingKind classifies a value finding.
type FindingKind string

const (
	FindingNull         FindingKind = "null"
	FindingRange        FindingKind = "range"
	FindingNegative     FindingKind = "negative"
	FindingSum          FindingKind = "sum_mismatch"
	FindingAggregate    FindingKind = "aggregate_mismatch"
	FindingUnknownState FindingKind = "unknown_state"
)

// ValueFinding is a value that failed a declared check.
type ValueFinding struct {
	Indicator string      `json:"indicator"`
	State     string      `json:"state"`
	Year      int         `json:"year"`
	Value     Score       `json:"value"`
	Kind      FindingKind `json:"kind"`
	Message   string      `json:"message"`
}

// YearRange summarizes which years a state covers for one indicator.
type YearRange struct {
	State        string `json:"state"`
	MinYear      int    `json:"min_year"`
	MaxYear      int    `json:"max_year"`
	MissingYears []int  `json:"missing_years,omitempty"`
}

// IndicatorCoverage is the per-indicator coverage summary.
type IndicatorCoverage struct {
	Indicator     string      `json:"indicator"`
	Records       int         `json:"records"`
	Expected      int         `json:"expected"`
	MissingStates []string    `json:"missing_states,omitempty"`
	Ranges        []YearRange `json:"ranges,omitempty"`
}

// VerificationReport is the verifier output. It never drives control flow
// by itself; callers decide whether findings are fatal.
type VerificationReport struct {
	Gaps     []CoverageGap       `json:"gaps"`
	Findings []ValueFinding      `json:"findings"`
	Coverage []IndicatorCoverage `json:"coverage"`
}

// HasGaps reports whether any coverage gap was found.
func (r *VerificationReport) HasGaps() bool { return len(r.Gaps) > 0 }

// Sort orders gaps and findings by indicator, state, then year.
func (r *VerificationReport) Sort() {
	sort.SliceStable(r.Gaps, func(i, j int) bool {
		a, b := r.Gaps[i], r.Gaps[j]
		if a.Indicator != b.Indicator {
			return a.Indicator < b.Indicator
		}
		if a.State != b.State {
			return a.State < b.State
		}
		return a.Year < b.Year
	})
	sort.SliceStable(r.Findings, func(i, j int) bool {
		a, b := r.Findings[i], r.Findings[j]
		if a.Indicator != b.Indicator {
			return a.Indicator < b.Indicator
		}
		if a.State != b.State {
			return a.State < b.State
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Kind < b.Kind
	})
	sort.SliceStable(r.Coverage, func(i, j int) bool {
		return r.Coverage[i].Indicator < r.Coverage[j].Indicator
	})
}

// ExclusionReason says why a row or cell left the analysis unchanged.
type ExclusionReason string

const (
	ReasonMissingValue ExclusionReason = "missing_value"
	ReasonMissingLabel ExclusionReason = "missing_label"
	ReasonImputed      ExclusionReason = "imputed"
)

// Exclusion is one diagnostic entry: a dropped row or an imputed cell.
type Exclusion struct {
	State     string          `json:"state"`
	Year      int             `json:"year"`
	Indicator string          `json:"indicator,omitempty"`
	Reason    ExclusionReason `json:"reason"`
	Value     Score           `json:"value,omitempty"`
}
