package verify

import (
	"fmt"
	"math"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

func (v *Verifier) applyRule(rule config.RuleConfig, tables map[string]*domain.IndicatorTable, out *collector) error {
	lookup := func(name string) (*domain.IndicatorTable, error) {
		t, ok := tables[name]
		if !ok {
			return nil, apperrors.NewConfigError(fmt.Sprintf("rule %q references unknown indicator %q", ruleName(rule), name), nil)
		}
		return t, nil
	}

	switch rule.Kind {
	case "range":
		t, err := lookup(rule.Indicator)
		if err != nil {
			return err
		}
		for _, rec := range t.Records() {
			if rec.IsMissing() {
				continue
			}
			if (rule.Min != nil && rec.Value < *rule.Min) || (rule.Max != nil && rec.Value > *rule.Max) {
				out.add(finding(t.Name(), rec, domain.FindingRange,
					fmt.Sprintf("value %g outside %s", rec.Value, bounds(rule))))
			}
		}

	case "non_negative":
		t, err := lookup(rule.Indicator)
		if err != nil {
			return err
		}
		for _, rec := range t.Records() {
			if !rec.IsMissing() && rec.Value < 0 {
				out.add(finding(t.Name(), rec, domain.FindingNegative, fmt.Sprintf("value %g is negative", rec.Value)))
			}
		}

	case "not_null":
		t, err := lookup(rule.Indicator)
		if err != nil {
			return err
		}
		for _, rec := range t.Records() {
			if rec.IsMissing() {
				out.add(nullFinding(t.Name(), rec))
			}
		}

	case "sum_matches":
		total, err := lookup(rule.Total)
		if err != nil {
			return err
		}
		parts := make([]*domain.IndicatorTable, 0, len(rule.Parts))
		for _, name := range rule.Parts {
			p, err := lookup(name)
			if err != nil {
				return err
			}
			parts = append(parts, p)
		}
		for _, rec := range total.Records() {
			if rec.IsMissing() {
				continue
			}
			sum, complete := 0.0, true
			for _, p := range parts {
				part, ok := p.Lookup(rec.Key)
				if !ok || part.IsMissing() {
					complete = false
					break
				}
				sum += part.Value
			}
			if !complete {
				continue
			}
			if !roughlyEqual(sum, rec.Value, rule.Tolerance) {
				f := finding(total.Name(), rec, domain.FindingSum,
					fmt.Sprintf("parts sum %g differs from %s %g by more than %g%%", sum, total.Name(), rec.Value, rule.Tolerance*100))
				f.Value = domain.Score(sum)
				out.add(f)
			}
		}

	case "aggregate_matches":
		t, err := lookup(rule.Indicator)
		if err != nil {
			return err
		}
		if v.aggregate == "" {
			return apperrors.NewConfigError(fmt.Sprintf("rule %q needs an aggregate state", ruleName(rule)), nil)
		}
		sums := make(map[int]float64)
		for _, rec := range t.Records() {
			if v.known[rec.State] && !rec.IsMissing() {
				sums[rec.Year] += rec.Value
			}
		}
		for _, rec := range t.Records() {
			if rec.State != v.aggregate || rec.IsMissing() {
				continue
			}
			sum := sums[rec.Year]
			lo, hi := rec.Value*(1-rule.Tolerance), rec.Value*(1+rule.Tolerance)
			if sum < math.Min(lo, hi) || sum > math.Max(lo, hi) {
				f := finding(t.Name(), rec, domain.FindingAggregate,
					fmt.Sprintf("state sum %g not within %g%% of %s %g", sum, rule.Tolerance*100, v.aggregate, rec.Value))
				f.Value = domain.Score(sum)
				out.add(f)
			}
		}

	default:
		return apperrors.NewConfigError(fmt.Sprintf("unknown rule kind %q", rule.Kind), nil)
	}
	return nil
}

func finding(indicator string, rec domain.IndicatorRecord, kind domain.FindingKind, msg string) domain.ValueFinding {
	return domain.ValueFinding{
		Indicator: indicator,
		State:     rec.State,
		Year:      rec.Year,
		Value:     domain.Score(rec.Value),
		Kind:      kind,
		Message:   msg,
	}
}

// roughlyEqual reports |a-b| <= tol * max(|a|, |b|).
func roughlyEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(math.Abs(a), math.Abs(b))
}

func bounds(rule config.RuleConfig) string {
	lo, hi := "-inf", "+inf"
	if rule.Min != nil {
		lo = fmt.Sprintf("%g", *rule.Min)
	}
	if rule.Max != nil {
		hi = fmt.Sprintf("%g", *rule.Max)
	}
	return "[" + lo + ", " + hi + "]"
}

func ruleName(rule config.RuleConfig) string {
	if rule.Name != "" {
		return rule.Name
	}
	return rule.Kind
}
