// Package verify checks loaded indicator tables for coverage and value
// sanity. It reports; it never rejects data on its own.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/internal/infrastructure"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// Verifier builds verification reports against a configured universe.
type Verifier struct {
	states    []string
	known     map[string]bool
	aggregate string
	expect    map[string][]int
	rules     []config.RuleConfig
	logger    *slog.Logger
	metrics   *infrastructure.AnalysisMetrics
}

// NewVerifier creates a verifier. An empty state list means the 50 states.
func NewVerifier(cfg config.VerifyConfig, logger *slog.Logger, metrics *infrastructure.AnalysisMetrics) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	states := cfg.States
	if len(states) == 0 {
		states = config.ValidStates
	}
	states = append([]string(nil), states...)
	sort.Strings(states)

	v := &Verifier{
		states:    states,
		known:     make(map[string]bool, len(states)),
		aggregate: cfg.Aggregate,
		expect:    make(map[string][]int, len(cfg.Expect)),
		rules:     cfg.Rules,
		logger:    infrastructure.WithComponent(logger, "verifier"),
		metrics:   metrics,
	}
	for _, s := range states {
		v.known[s] = true
	}
	for _, e := range cfg.Expect {
		if years := e.ExpectedYears(); years != nil {
			sort.Ints(years)
			v.expect[e.Indicator] = years
		}
	}
	return v
}

// Verify produces the coverage and value report for tables. Inputs are not
// modified. An error is returned only for a rule naming an indicator that
// was not loaded.
func (v *Verifier) Verify(ctx context.Context, tables []*domain.IndicatorTable) (*domain.VerificationReport, error) {
	byName := make(map[string]*domain.IndicatorTable, len(tables))
	for _, t := range tables {
		byName[t.Name()] = t
	}

	report := &domain.VerificationReport{
		Gaps:     []domain.CoverageGap{},
		Findings: []domain.ValueFinding{},
	}
	findings := newCollector()

	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		gaps, coverage := v.coverage(t)
		report.Gaps = append(report.Gaps, gaps...)
		report.Coverage = append(report.Coverage, coverage)
		v.metrics.RecordCoverageGaps(ctx, t.Name(), len(gaps))

		for _, rec := range t.Records() {
			switch {
			case rec.IsMissing():
				findings.add(nullFinding(t.Name(), rec))
			case !v.known[rec.State] && rec.State != v.aggregate:
				findings.add(domain.ValueFinding{
					Indicator: t.Name(),
					State:     rec.State,
					Year:      rec.Year,
					Value:     domain.Score(rec.Value),
					Kind:      domain.FindingUnknownState,
					Message:   fmt.Sprintf("state %q is not part of the configured universe", rec.State),
				})
			}
		}
	}

	for _, rule := range v.rules {
		if err := v.applyRule(rule, byName, findings); err != nil {
			return nil, err
		}
	}

	report.Findings = findings.list()
	report.Sort()

	v.logger.InfoContext(ctx, "verification finished",
		slog.Int("indicators", len(tables)),
		slog.Int("gaps", len(report.Gaps)),
		slog.Int("findings", len(report.Findings)))
	return report, nil
}

// ExpectedYears returns the years an indicator is checked against: the
// configured ones, or the years the table itself covers.
func (v *Verifier) ExpectedYears(t *domain.IndicatorTable) []int {
	if years, ok := v.expect[t.Name()]; ok {
		return append([]int(nil), years...)
	}
	seen := make(map[int]bool)
	var years []int
	for _, rec := range t.Records() {
		if v.known[rec.State] && !seen[rec.Year] {
			seen[rec.Year] = true
			years = append(years, rec.Year)
		}
	}
	sort.Ints(years)
	return years
}

func (v *Verifier) coverage(t *domain.IndicatorTable) ([]domain.CoverageGap, domain.IndicatorCoverage) {
	years := v.ExpectedYears(t)
	cov := domain.IndicatorCoverage{
		Indicator: t.Name(),
		Records:   t.Len(),
		Expected:  len(years) * len(v.states),
	}

	var gaps []domain.CoverageGap
	for _, state := range v.states {
		present := t.YearsFor(state)
		if len(present) == 0 {
			cov.MissingStates = append(cov.MissingStates, state)
		} else {
			cov.Ranges = append(cov.Ranges, yearRange(state, present, years))
		}
		for _, year := range years {
			if !t.Has(domain.Key{State: state, Year: year}) {
				gaps = append(gaps, domain.CoverageGap{Indicator: t.Name(), State: state, Year: year})
			}
		}
	}
	return gaps, cov
}

// yearRange summarizes present years of one state; missing years are the
// expected years inside [min, max] without a record.
func yearRange(state string, present, expected []int) domain.YearRange {
	has := make(map[int]bool, len(present))
	r := domain.YearRange{State: state, MinYear: present[0], MaxYear: present[0]}
	for _, y := range present {
		has[y] = true
		if y < r.MinYear {
			r.MinYear = y
		}
		if y > r.MaxYear {
			r.MaxYear = y
		}
	}
	for _, y := range expected {
		if y >= r.MinYear && y <= r.MaxYear && !has[y] {
			r.MissingYears = append(r.MissingYears, y)
		}
	}
	return r
}

// RequireCoverage turns a report with gaps into a CoverageGapError.
func RequireCoverage(report *domain.VerificationReport) error {
	if report == nil || !report.HasGaps() {
		return nil
	}
	gaps := make([]apperrors.Gap, len(report.Gaps))
	for i, g := range report.Gaps {
		gaps[i] = apperrors.Gap{Indicator: g.Indicator, State: g.State, Year: g.Year}
	}
	return &apperrors.CoverageGapError{Gaps: gaps}
}

func nullFinding(indicator string, rec domain.IndicatorRecord) domain.ValueFinding {
	return domain.ValueFinding{
		Indicator: indicator,
		State:     rec.State,
		Year:      rec.Year,
		Value:     domain.Score(math.NaN()),
		Kind:      domain.FindingNull,
		Message:   "value is missing",
	}
}

// collector keeps findings unique per indicator, key and kind.
type collector struct {
	seen  map[string]bool
	items []domain.ValueFinding
}

func newCollector() *collector {
	return &collector{seen: make(map[string]bool)}
}

func (c *collector) add(f domain.ValueFinding) {
	id := fmt.Sprintf("%s|%s|%d|%s", f.Indicator, f.State, f.Year, f.Kind)
	if c.seen[id] {
		return
	}
	c.seen[id] = true
	c.items = append(c.items, f)
}

func (c *collector) list() []domain.ValueFinding {
	if c.items == nil {
		return []domain.ValueFinding{}
	}
	return c.items
}
