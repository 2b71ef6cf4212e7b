package verify

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/internal/infrastructure"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

func table(t *testing.T, name string, records ...domain.IndicatorRecord) *domain.IndicatorTable {
	t.Helper()
	tbl, err := domain.NewIndicatorTable(name, name+".csv", records)
	require.NoError(t, err)
	return tbl
}

func rec(state string, year int, value float64) domain.IndicatorRecord {
	return domain.IndicatorRecord{Key: domain.Key{State: state, Year: year}, Value: value}
}

func newVerifier(cfg config.VerifyConfig) *Verifier {
	return NewVerifier(cfg, infrastructure.NewLogger(io.Discard, "error"), nil)
}

func floatPtr(f float64) *float64 { return &f }

func TestSingleMissingCombinationYieldsOneGap(t *testing.T) {
	income := table(t, "income",
		rec("Alabama", 2000, 1),
		rec("Alabama", 2004, 2),
		rec("Alaska", 2000, 3),
	)
	turnout := table(t, "turnout",
		rec("Alabama", 2000, 1),
		rec("Alabama", 2004, 1),
		rec("Alaska", 2000, 1),
		rec("Alaska", 2004, 1),
	)

	v := newVerifier(config.VerifyConfig{States: []string{"Alaska", "Alabama"}})
	report, err := v.Verify(context.Background(), []*domain.IndicatorTable{turnout, income})
	require.NoError(t, err)

	require.Len(t, report.Gaps, 1)
	assert.Equal(t, domain.CoverageGap{Indicator: "income", State: "Alaska", Year: 2004}, report.Gaps[0])
	assert.Empty(t, report.Findings)

	require.Len(t, report.Coverage, 2)
	assert.Equal(t, "income", report.Coverage[0].Indicator)
	assert.Equal(t, 4, report.Coverage[0].Expected)
	assert.Equal(t, 3, report.Coverage[0].Records)

	err = RequireCoverage(report)
	require.Error(t, err)
	var gapErr *apperrors.CoverageGapError
	require.ErrorAs(t, err, &gapErr)
	assert.Len(t, gapErr.Gaps, 1)
	assert.Equal(t, apperrors.ErrTypeCoverage, apperrors.TypeOf(err))
}

func TestCoverageEachGapOnce(t *testing.T) {
	gdp := table(t, "gdp", rec("Alabama", 2000, 1))

	v := newVerifier(config.VerifyConfig{
		States: []string{"Alabama", "Alaska", "Arizona"},
		Expect: []config.ExpectConfig{{Indicator: "gdp", YearFrom: 2000, YearTo: 2002}},
	})
	report, err := v.Verify(context.Background(), []*domain.IndicatorTable{gdp})
	require.NoError(t, err)

	assert.Len(t, report.Gaps, 8)
	seen := map[domain.CoverageGap]bool{}
	for _, g := range report.Gaps {
		assert.False(t, seen[g], "duplicate gap %v", g)
		seen[g] = true
	}
	assert.Equal(t, []string{"Alaska", "Arizona"}, report.Coverage[0].MissingStates)
	assert.Equal(t, domain.CoverageGap{Indicator: "gdp", State: "Alabama", Year: 2001}, report.Gaps[0])
	assert.NoError(t, RequireCoverage(&domain.VerificationReport{}))
}

func TestYearRanges(t *testing.T) {
	edu := table(t, "education",
		rec("Alabama", 2000, 1),
		rec("Alabama", 2008, 1),
		rec("Alaska", 2004, 1),
	)
	v := newVerifier(config.VerifyConfig{
		States: []string{"Alabama", "Alaska"},
		Expect: []config.ExpectConfig{{Indicator: "education", Years: []int{2008, 2000, 2004}}},
	})
	report, err := v.Verify(context.Background(), []*domain.IndicatorTable{edu})
	require.NoError(t, err)

	ranges := report.Coverage[0].Ranges
	require.Len(t, ranges, 2)
	assert.Equal(t, domain.YearRange{State: "Alabama", MinYear: 2000, MaxYear: 2008, MissingYears: []int{2004}}, ranges[0])
	assert.Equal(t, domain.YearRange{State: "Alaska", MinYear: 2004, MaxYear: 2004}, ranges[1])
	assert.Equal(t, []int{2000, 2004, 2008}, v.ExpectedYears(edu))
}

func TestValueFindings(t *testing.T) {
	share := table(t, "share",
		rec("Alabama", 2000, 0.4),
		rec("Alaska", 2000, 1.2),
		rec("Atlantis", 2000, 0.5),
		rec("Arizona", 2000, math.NaN()),
	)
	v := newVerifier(config.VerifyConfig{
		States: []string{"Alabama", "Alaska", "Arizona"},
		Rules: []config.RuleConfig{
			{Kind: "range", Indicator: "share", Min: floatPtr(0), Max: floatPtr(1)},
			{Kind: "not_null", Indicator: "share"},
		},
	})

	report, err := v.Verify(context.Background(), []*domain.IndicatorTable{share})
	require.NoError(t, err)

	require.Len(t, report.Findings, 3)
	assert.Equal(t, "Alaska", report.Findings[0].State)
	assert.Equal(t, domain.FindingRange, report.Findings[0].Kind)
	assert.Equal(t, "Arizona", report.Findings[1].State)
	assert.Equal(t, domain.FindingNull, report.Findings[1].Kind, "null finding is reported once")
	assert.Equal(t, domain.FindingUnknownState, report.Findings[2].Kind)
	assert.Empty(t, report.Gaps)

	_, err = newVerifier(config.VerifyConfig{
		Rules: []config.RuleConfig{{Kind: "non_negative", Indicator: "missing"}},
	}).Verify(context.Background(), []*domain.IndicatorTable{share})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeConfig, apperrors.TypeOf(err))
}

func TestConsistencyRules(t *testing.T) {
	states := []string{"Alabama", "Alaska"}
	rep := table(t, "republican", rec("Alabama", 2000, 60), rec("Alaska", 2000, 50))
	dem := table(t, "democratic", rec("Alabama", 2000, 40), rec("Alaska", 2000, 40))
	total := table(t, "total", rec("Alabama", 2000, 100), rec("Alaska", 2000, 100))
	gdp := table(t, "gdp",
		rec("Alabama", 2000, 100),
		rec("Alaska", 2000, 50),
		rec("United States", 2000, 150),
		rec("Alabama", 2004, 100),
		rec("Alaska", 2004, 60),
		rec("United States", 2004, 200),
		rec("Alaska", 2008, -1),
	)

	v := newVerifier(config.VerifyConfig{
		States:    states,
		Aggregate: "United States",
		Rules: []config.RuleConfig{
			{Name: "votes", Kind: "sum_matches", Parts: []string{"republican", "democratic"}, Total: "total", Tolerance: 0.0001},
			{Kind: "aggregate_matches", Indicator: "gdp", Tolerance: 0.02},
			{Kind: "non_negative", Indicator: "gdp"},
		},
	})

	report, err := v.Verify(context.Background(), []*domain.IndicatorTable{rep, dem, total, gdp})
	require.NoError(t, err)

	kinds := map[domain.FindingKind][]domain.ValueFinding{}
	for _, f := range report.Findings {
		kinds[f.Kind] = append(kinds[f.Kind], f)
	}

	require.Len(t, kinds[domain.FindingSum], 1)
	assert.Equal(t, "Alaska", kinds[domain.FindingSum][0].State)
	assert.Equal(t, domain.Score(90), kinds[domain.FindingSum][0].Value)

	require.Len(t, kinds[domain.FindingAggregate], 1)
	assert.Equal(t, 2004, kinds[domain.FindingAggregate][0].Year)
	assert.Equal(t, "United States", kinds[domain.FindingAggregate][0].State)

	require.Len(t, kinds[domain.FindingNegative], 1)
	assert.Empty(t, kinds[domain.FindingUnknownState], "aggregate row is not an unknown state")
}

func TestRoughlyEqual(t *testing.T) {
	assert.True(t, roughlyEqual(100, 100.4, 0.005))
	assert.False(t, roughlyEqual(100, 101, 0.005))
	assert.True(t, roughlyEqual(0, 0, 0))
}
