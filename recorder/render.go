package recorder

import (
	"fmt"
	"image/color"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	pf "github.com/jhoydich/range-localizer"
)

// Snapshot is what the renderers draw: the map, the latest particle cloud
// and the estimate (and truth) tracks so far. Any part may be empty.
type Snapshot struct {
	Map       *pf.Map
	Particles []pf.Particle
	Results   []Result
}

type series struct {
	name string
	pts  plotter.XYs
}

func (s Snapshot) layers() (obstacles, particles, estimates, truth series) {
	obstacles.name, particles.name, estimates.name, truth.name = "obstacles", "particles", "estimate", "truth"
	if s.Map != nil {
		for _, p := range s.Map.Obstacles() {
			obstacles.pts = append(obstacles.pts, plotter.XY{X: p.X, Y: p.Y})
		}
	}
	for _, p := range s.Particles {
		particles.pts = append(particles.pts, plotter.XY{X: p.X, Y: p.Y})
	}
	for _, r := range s.Results {
		estimates.pts = append(estimates.pts, plotter.XY{X: r.Estimate.X, Y: r.Estimate.Y})
		if r.Truth != nil {
			truth.pts = append(truth.pts, plotter.XY{X: r.Truth.X, Y: r.Truth.Y})
		}
	}
	return
}

var (
	obstacleColor = color.RGBA{A: 255}
	particleColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	estimateColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	truthColor    = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// Plot builds a gonum plot of the snapshot.
func (s Snapshot) Plot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Particle filter localization"
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	p.Add(plotter.NewGrid())

	obstacles, particles, estimates, truth := s.layers()

	addScatter := func(sr series, c color.Color, radius vg.Length) error {
		if len(sr.pts) == 0 {
			return nil
		}
		sc, err := plotter.NewScatter(sr.pts)
		if err != nil {
			return fmt.Errorf("%s: %w", sr.name, err)
		}
		sc.GlyphStyle.Color = c
		sc.GlyphStyle.Radius = radius
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
		p.Legend.Add(sr.name, sc)
		return nil
	}
	addLine := func(sr series, c color.Color) error {
		if len(sr.pts) == 0 {
			return nil
		}
		l, err := plotter.NewLine(sr.pts)
		if err != nil {
			return fmt.Errorf("%s: %w", sr.name, err)
		}
		l.Color = c
		l.Width = vg.Points(1.5)
		p.Add(l)
		p.Legend.Add(sr.name, l)
		return nil
	}

	if err := addScatter(obstacles, obstacleColor, vg.Points(3)); err != nil {
		return nil, err
	}
	if err := addScatter(particles, particleColor, vg.Points(1)); err != nil {
		return nil, err
	}
	if err := addLine(truth, truthColor); err != nil {
		return nil, err
	}
	if err := addLine(estimates, estimateColor); err != nil {
		return nil, err
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WritePNG renders the snapshot as a PNG image.
func (s Snapshot) WritePNG(w io.Writer) error {
	p, err := s.Plot()
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(8*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render png: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}

// SavePNG renders the snapshot into path; the extension picks the format.
func (s Snapshot) SavePNG(path string) error {
	p, err := s.Plot()
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}

func scatterData(pts plotter.XYs) []opts.ScatterData {
	data := make([]opts.ScatterData, 0, len(pts))
	for _, p := range pts {
		data = append(data, opts.ScatterData{Value: []interface{}{p.X, p.Y}})
	}
	return data
}

// WriteHTML renders an interactive page: the map with particles and tracks,
// and the localization error per step when truth was recorded.
func (s Snapshot) WriteHTML(w io.Writer) error {
	obstacles, particles, estimates, truth := s.layers()

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Particle filter localization", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Localization", Subtitle: fmt.Sprintf("particles=%d steps=%d", len(s.Particles), len(s.Results))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries(obstacles.name, scatterData(obstacles.pts), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))
	scatter.AddSeries(particles.name, scatterData(particles.pts), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	scatter.AddSeries(estimates.name, scatterData(estimates.pts), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	scatter.AddSeries(truth.name, scatterData(truth.pts), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	page := components.NewPage()
	page.PageTitle = "Particle filter localization"
	page.AddCharts(scatter)

	if sum := Summarize(s.Results); sum.WithTruth > 0 {
		steps := make([]string, 0, sum.WithTruth)
		errs := make([]opts.LineData, 0, sum.WithTruth)
		for _, r := range s.Results {
			if r.Truth == nil {
				continue
			}
			steps = append(steps, strconv.Itoa(r.Step))
			errs = append(errs, opts.LineData{Value: r.Error})
		}
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
			charts.WithTitleOpts(opts.Title{Title: "Localization error", Subtitle: fmt.Sprintf("mean=%.3fm max=%.3fm", sum.MeanError, sum.MaxError)}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithYAxisOpts(opts.YAxis{Name: "error (m)"}),
		)
		line.SetXAxis(steps).AddSeries("error", errs)
		page.AddCharts(line)
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render html: %w", err)
	}
	return nil
}
