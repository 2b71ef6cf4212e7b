package plotting

import (
	"errors"
	"fmt"
	"image/color"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// ErrNoData is returned when nothing in the input can be drawn.
var ErrNoData = errors.New("no data to plot")

var (
	republicanRed = color.RGBA{R: 200, G: 30, B: 45, A: 255}
	democratBlue  = color.RGBA{R: 25, G: 70, B: 185, A: 255}
)

type bar struct {
	state string
	value float64
}

// yearValues returns the observed values of year for states (all states
// when empty), sorted ascending by value.
func yearValues(t *domain.IndicatorTable, year int, states []string) []bar {
	allowed := make(map[string]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	var out []bar
	for _, rec := range t.Records() {
		if rec.Year != year || rec.IsMissing() || (len(states) > 0 && !allowed[rec.State]) {
			continue
		}
		out = append(out, bar{state: rec.State, value: rec.Value})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].value < out[j].value })
	return out
}

// IndicatorBars ranks states by one indicator in one year as horizontal
// bars, smallest at the bottom. A positive xMax fixes the value axis.
func IndicatorBars(t *domain.IndicatorTable, year int, states []string, xMax float64) (*plot.Plot, error) {
	bars := yearValues(t, year, states)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s %d: %w", t.Name(), year, ErrNoData)
	}

	values := make(plotter.Values, len(bars))
	names := make([]string, len(bars))
	for i, b := range bars {
		values[i] = b.value
		names[i] = b.state
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s by State in %d", t.Name(), year)
	p.X.Label.Text = t.Name()
	p.X.Min = 0
	if xMax > 0 {
		p.X.Max = xMax
	}

	chart, err := plotter.NewBarChart(values, vg.Points(8))
	if err != nil {
		return nil, err
	}
	chart.Horizontal = true
	chart.LineStyle.Width = vg.Length(0)
	chart.Color = plotutil.Color(0)
	p.Add(chart)
	p.NominalY(names...)
	return p, nil
}

// AnimatedBars builds one IndicatorBars frame per year with a shared value
// axis, 10% above the largest value shown. Years without data are skipped.
func AnimatedBars(t *domain.IndicatorTable, years []int, states []string) ([]*plot.Plot, error) {
	top := 0.0
	for _, y := range years {
		for _, b := range yearValues(t, y, states) {
			if b.value > top {
				top = b.value
			}
		}
	}

	var frames []*plot.Plot
	for _, y := range years {
		p, err := IndicatorBars(t, y, states, top*1.1)
		if errors.Is(err, ErrNoData) {
			continue
		}
		if err != nil {
			return nil, err
		}
		frames = append(frames, p)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%s: %w", t.Name(), ErrNoData)
	}
	return frames, nil
}

// Trend draws one line per state over the years the indicator covers.
func Trend(t *domain.IndicatorTable, states []string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s over time", t.Name())
	p.X.Label.Text = "Year"
	p.Y.Label.Text = t.Name()
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	drawn := 0
	for i, state := range states {
		var pts plotter.XYs
		for _, year := range t.YearsFor(state) {
			rec, ok := t.Lookup(domain.Key{State: state, Year: year})
			if !ok || rec.IsMissing() {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(year), Y: rec.Value})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add(state, line)
		drawn++
	}
	if drawn == 0 {
		return nil, fmt.Errorf("%s: %w", t.Name(), ErrNoData)
	}
	return p, nil
}

// Margin charts the Republican minus Democratic share per state for one
// year, red where Republicans won and blue where Democrats won.
func Margin(rep, dem *domain.IndicatorTable, year int, states []string) (*plot.Plot, error) {
	var margins []bar
	for _, r := range yearValues(rep, year, states) {
		d, ok := dem.Lookup(domain.Key{State: r.state, Year: year})
		if !ok || d.IsMissing() {
			continue
		}
		margins = append(margins, bar{state: r.state, value: r.value - d.Value})
	}
	if len(margins) == 0 {
		return nil, fmt.Errorf("margin %d: %w", year, ErrNoData)
	}
	sort.SliceStable(margins, func(i, j int) bool { return margins[i].value < margins[j].value })

	won := make(plotter.Values, len(margins))
	lost := make(plotter.Values, len(margins))
	names := make([]string, len(margins))
	for i, m := range margins {
		names[i] = m.state
		if m.value > 0 {
			won[i] = m.value
		} else {
			lost[i] = m.value
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Election margin by State in %d", year)
	p.X.Label.Text = "Republican minus Democratic share"
	p.Legend.Top = true

	for _, series := range []struct {
		name   string
		values plotter.Values
		color  color.Color
	}{
		{"Republican", won, republicanRed},
		{"Democratic", lost, democratBlue},
	} {
		chart, err := plotter.NewBarChart(series.values, vg.Points(8))
		if err != nil {
			return nil, err
		}
		chart.Horizontal = true
		chart.LineStyle.Width = vg.Length(0)
		chart.Color = series.color
		p.Add(chart)
		p.Legend.Add(series.name, chart)
	}
	p.NominalY(names...)
	return p, nil
}
