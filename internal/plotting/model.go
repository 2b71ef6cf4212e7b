package plotting

import (
	"fmt"
	"image/color"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/Simon3728/Data-Analysis-Election/internal/selection"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

const sweepPoints = 100

var (
	trainColor = color.Black
	testColor  = color.RGBA{R: 220, A: 255}
	fitColors  = map[domain.ModelFamily]color.Color{
		domain.FamilyKNN:        color.RGBA{B: 220, A: 255},
		domain.FamilyLinear:     color.RGBA{G: 150, A: 255},
		domain.FamilyPolynomial: color.RGBA{R: 130, B: 160, A: 255},
	}
)

// ModelResult plots a holdout evaluation against one selected feature:
// training points black, test points red, and the fitted model as a line.
// KNN draws its test predictions sorted by the feature; linear and
// polynomial models are swept across the feature range with the other
// features held at their mean.
func ModelResult(h *selection.Holdout, feature int, label string) (*plot.Plot, error) {
	if feature < 0 || feature >= len(h.Subset) {
		return nil, fmt.Errorf("feature index %d outside subset of %d", feature, len(h.Subset))
	}
	if len(h.XTrain) == 0 || len(h.XTest) == 0 {
		return nil, ErrNoData
	}

	p := plot.New()
	p.Title.Text = modelTitle(h)
	p.X.Label.Text = h.Subset[feature]
	p.Y.Label.Text = label
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for _, s := range []struct {
		name string
		x    [][]float64
		y    []float64
		c    color.Color
	}{
		{"Training Data", h.XTrain, h.YTrain, trainColor},
		{"Test Data", h.XTest, h.YTest, testColor},
	} {
		sc, err := plotter.NewScatter(column(s.x, s.y, feature))
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = s.c
		sc.GlyphStyle.Radius = vg.Points(3)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
		p.Legend.Add(s.name, sc)
	}

	fit, name, err := fitLine(h, feature)
	if err != nil {
		return nil, err
	}
	line, err := plotter.NewLine(fit)
	if err != nil {
		return nil, err
	}
	line.Color = fitColors[h.Config.Family]
	line.Width = vg.Points(2)
	p.Add(line)
	p.Legend.Add(name, line)
	return p, nil
}

func fitLine(h *selection.Holdout, feature int) (plotter.XYs, string, error) {
	switch h.Config.Family {
	case domain.FamilyKNN:
		pts := column(h.XTest, h.PredTest, feature)
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].X < pts[j].X })
		return pts, fmt.Sprintf("k=%d", h.Config.Params.K), nil
	case domain.FamilyLinear:
		pts, err := sweep(h, h.XTest, feature)
		return pts, "Linear Regression", err
	default:
		pts, err := sweep(h, h.XTrain, feature)
		return pts, fmt.Sprintf("Polynomial Regression (degree=%d)", h.Config.Params.Degree), err
	}
}

// sweep predicts along the feature's range in x with the other columns at
// their mean over x.
func sweep(h *selection.Holdout, x [][]float64, feature int) (plotter.XYs, error) {
	if h.Config.Model == nil {
		return nil, fmt.Errorf("holdout has no fitted model")
	}
	width := len(x[0])
	mean := make([]float64, width)
	lo, hi := x[0][feature], x[0][feature]
	for _, row := range x {
		for j, v := range row {
			mean[j] += v / float64(len(x))
		}
		if row[feature] < lo {
			lo = row[feature]
		}
		if row[feature] > hi {
			hi = row[feature]
		}
	}

	grid := make([][]float64, sweepPoints)
	for i := range grid {
		row := append([]float64(nil), mean...)
		row[feature] = lo + (hi-lo)*float64(i)/float64(sweepPoints-1)
		grid[i] = row
	}
	pred, err := h.Config.Model.Predict(grid)
	if err != nil {
		return nil, err
	}
	pts := make(plotter.XYs, sweepPoints)
	for i := range grid {
		pts[i] = plotter.XY{X: grid[i][feature], Y: pred[i]}
	}
	return pts, nil
}

func column(x [][]float64, y []float64, feature int) plotter.XYs {
	pts := make(plotter.XYs, len(x))
	for i, row := range x {
		pts[i] = plotter.XY{X: row[feature], Y: y[i]}
	}
	return pts
}

func modelTitle(h *selection.Holdout) string {
	var params string
	switch h.Config.Family {
	case domain.FamilyKNN:
		params = fmt.Sprintf(" with k = %d", h.Config.Params.K)
	case domain.FamilyPolynomial:
		params = fmt.Sprintf(" (degree %d)", h.Config.Params.Degree)
	}
	train, test := domain.MetricR2Train, domain.MetricR2Test
	metric := "R²"
	if _, ok := h.Metrics[domain.MetricAccuracyTest]; ok {
		train, test, metric = domain.MetricAccuracyTrain, domain.MetricAccuracyTest, "accuracy"
	}
	return fmt.Sprintf("%s%s, features: %s | Train %s: %s, Test %s: %s",
		familyTitle(h.Config.Family), params, strings.Join(h.Subset, ", "),
		metric, score(h.Metrics[train]), metric, score(h.Metrics[test]))
}

func familyTitle(f domain.ModelFamily) string {
	switch f {
	case domain.FamilyKNN:
		return "KNN"
	case domain.FamilyLinear:
		return "Linear Regression"
	case domain.FamilyPolynomial:
		return "Polynomial Regression"
	}
	return string(f)
}

func score(s domain.Score) string {
	if !s.Finite() {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", float64(s))
}
