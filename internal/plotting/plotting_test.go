package plotting

import (
	"bytes"
	"context"
	"image/gif"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	"github.com/Simon3728/Data-Analysis-Election/internal/infrastructure"
	"github.com/Simon3728/Data-Analysis-Election/internal/selection"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

func newRenderer() *Renderer {
	return NewRenderer(config.PlotsConfig{Width: 10, Height: 8, DPI: 50, FrameDelay: 50}, infrastructure.NewLogger(io.Discard, "error"))
}

func gdpTable(t *testing.T) *domain.IndicatorTable {
	t.Helper()
	var records []domain.IndicatorRecord
	for i, state := range []string{"Alabama", "Alaska", "Arizona"} {
		for j, year := range []int{2000, 2004} {
			records = append(records, domain.IndicatorRecord{
				Key:   domain.Key{State: state, Year: year},
				Value: float64(30000 + 1000*i + 500*j),
			})
		}
	}
	tbl, err := domain.NewIndicatorTable("gdp_per_capita", "derived", records)
	require.NoError(t, err)
	return tbl
}

func TestIndicatorBarsAndAnimation(t *testing.T) {
	tbl := gdpTable(t)
	r := newRenderer()
	dir := t.TempDir()

	p, err := IndicatorBars(tbl, 2000, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "gdp_per_capita by State in 2000", p.Title.Text)
	png := filepath.Join(dir, "bars.png")
	require.NoError(t, r.SavePNG(p, png))
	raw, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("\x89PNG")))

	_, err = IndicatorBars(tbl, 1990, nil, 0)
	assert.ErrorIs(t, err, ErrNoData)

	frames, err := AnimatedBars(tbl, []int{2000, 1990, 2004}, []string{"Alabama", "Alaska"})
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.InDelta(t, 31500*1.1, frames[0].X.Max, 1e-9)
	assert.Equal(t, frames[0].X.Max, frames[1].X.Max)

	anim := filepath.Join(dir, "sub", "bars.gif")
	require.NoError(t, r.SaveGIF(frames, anim))
	f, err := os.Open(anim)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.Len(t, decoded.Image, 2)
	assert.Equal(t, []int{50, 50}, decoded.Delay)

	assert.ErrorIs(t, r.SaveGIF(nil, anim), ErrNoData)
}

func TestTrendAndMargin(t *testing.T) {
	tbl := gdpTable(t)
	p, err := Trend(tbl, []string{"Alabama", "Atlantis", "Arizona"})
	require.NoError(t, err)
	require.NoError(t, newRenderer().SavePNG(p, filepath.Join(t.TempDir(), "trend.png")))

	_, err = Trend(tbl, []string{"Atlantis"})
	assert.ErrorIs(t, err, ErrNoData)

	rep, err := domain.NewIndicatorTable("republican_share", "", []domain.IndicatorRecord{
		{Key: domain.Key{State: "Alabama", Year: 2000}, Value: 0.56},
		{Key: domain.Key{State: "Alaska", Year: 2000}, Value: 0.40},
	})
	require.NoError(t, err)
	dem, err := domain.NewIndicatorTable("democratic_share", "", []domain.IndicatorRecord{
		{Key: domain.Key{State: "Alabama", Year: 2000}, Value: 0.42},
		{Key: domain.Key{State: "Alaska", Year: 2000}, Value: 0.55},
	})
	require.NoError(t, err)

	p, err = Margin(rep, dem, 2000, nil)
	require.NoError(t, err)
	require.NoError(t, newRenderer().SavePNG(p, filepath.Join(t.TempDir(), "margin.png")))

	_, err = Margin(rep, dem, 2004, nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func holdout(t *testing.T, family domain.ModelFamily, params domain.Hyperparameters) *selection.Holdout {
	t.Helper()
	rows := make([]domain.FeatureRow, 12)
	for i := range rows {
		x := float64(i)
		rows[i] = domain.FeatureRow{
			State:  "Alabama",
			Year:   2000 + i,
			Values: map[string]float64{"a": x, "b": float64(i % 3)},
			Label:  x*x/10 + float64(i%3),
		}
	}
	table := &domain.FeatureTable{Columns: []string{"a", "b"}, Label: "y", Task: domain.TaskRegression, Rows: rows}
	split, err := selection.SplitTable(table, 0.25, 42)
	require.NoError(t, err)
	ev := selection.NewEvaluator(split.Train, config.AnalysisConfig{Folds: 3, Seed: 42}, infrastructure.NewLogger(io.Discard, "error"), nil)
	h, err := ev.Holdout(context.Background(), split.Test, []string{"a", "b"}, domain.ModelConfiguration{Family: family, Params: params})
	require.NoError(t, err)
	return h
}

func TestModelResult(t *testing.T) {
	r := newRenderer()
	dir := t.TempDir()
	for _, tc := range []struct {
		family domain.ModelFamily
		params domain.Hyperparameters
		prefix string
	}{
		{domain.FamilyKNN, domain.Hyperparameters{K: 2}, "KNN with k = 2"},
		{domain.FamilyLinear, domain.Hyperparameters{}, "Linear Regression, features: a, b"},
		{domain.FamilyPolynomial, domain.Hyperparameters{Degree: 2}, "Polynomial Regression (degree 2)"},
	} {
		t.Run(string(tc.family), func(t *testing.T) {
			h := holdout(t, tc.family, tc.params)
			p, err := ModelResult(h, 0, "y")
			require.NoError(t, err)
			assert.Contains(t, p.Title.Text, tc.prefix)
			assert.Contains(t, p.Title.Text, "Train R²")
			require.NoError(t, r.SavePNG(p, filepath.Join(dir, string(tc.family)+".png")))
		})
	}

	_, err := ModelResult(holdout(t, domain.FamilyLinear, domain.Hyperparameters{}), 5, "y")
	assert.Error(t, err)
}
