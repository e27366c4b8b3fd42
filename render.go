package occplot

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Style carries everything a renderer needs to know about presentation.
type Style struct {
	Title          string
	XLabel, YLabel string
	Width, Height  vg.Length

	// ZMin and ZMax fix the colour range of heat maps; when ZMax <= ZMin
	// the range follows the data.
	ZMin, ZMax  float64
	PaletteSize int
	ColorBar    bool

	// YMin and YMax fix the y range of 1-D plots when YMax > YMin.
	YMin, YMax float64
	LogY       bool
}

// HeatMapStyle is the style of occupancy and ratio maps in cm.
func HeatMapStyle(title string) Style {
	return Style{
		Title:       title,
		XLabel:      "x [cm]",
		YLabel:      "y [cm]",
		Width:       800,
		Height:      600,
		PaletteSize: 1000,
		ColorBar:    true,
	}
}

// HistStyle is the style of 1-D distributions.
func HistStyle(title, xLabel, yLabel string) Style {
	return Style{
		Title:  title,
		XLabel: xLabel,
		YLabel: yLabel,
		Width:  800,
		Height: 600,
	}
}

// Colors used for successive series.
var seriesColors = []color.Color{
	color.RGBA{A: 255},
	color.RGBA{R: 255, A: 255},
	color.RGBA{B: 255, A: 255},
	color.RGBA{G: 160, A: 255},
	color.RGBA{R: 255, B: 255, A: 255},
	color.RGBA{R: 255, G: 127, B: 127, A: 255},
}

// SeriesColor cycles through the plot colours.
func SeriesColor(i int) color.Color {
	return seriesColors[i%len(seriesColors)]
}

// CircleOverlay outlines a circle on a heat map.
type CircleOverlay struct {
	Circle Circle
	Color  color.Color
	Label  string
}

const colorBarWidth = 70

func zRange(g plotter.GridXYZ, st Style) (lo, hi float64) {
	if st.ZMax > st.ZMin {
		return st.ZMin, st.ZMax
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	nx, ny := g.Dims()
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			z := g.Z(ix, iy)
			lo = math.Min(lo, z)
			hi = math.Max(hi, z)
		}
	}
	if lo > 0 {
		lo = 0
	}
	if !(hi > lo) {
		hi = lo + 1
	}
	return lo, hi
}

func circleLine(o CircleOverlay) (*plotter.Line, error) {
	const segments = 360
	pts := make(plotter.XYs, segments+1)
	for i := range pts {
		phi := 2 * math.Pi * float64(i) / segments
		pts[i].X = o.Circle.X + o.Circle.R*math.Cos(phi)
		pts[i].Y = o.Circle.Y + o.Circle.R*math.Sin(phi)
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	l.LineStyle.Width = vg.Points(2)
	l.LineStyle.Color = o.Color
	if l.LineStyle.Color == nil {
		l.LineStyle.Color = color.White
	}
	return l, nil
}

// RenderHeatMap draws g as a PNG heat map with an optional vertical colour
// bar on the right.
func RenderHeatMap(w io.Writer, g plotter.GridXYZ, st Style, overlays ...CircleOverlay) error {
	p := plot.New()
	p.Title.Text = st.Title
	p.X.Label.Text = st.XLabel
	p.Y.Label.Text = st.YLabel
	p.X.Tick.Marker = PreciseTicks{NSuggestedTicks: 5}
	p.Y.Tick.Marker = PreciseTicks{NSuggestedTicks: 5}

	img := vgimg.New(st.Width, st.Height)
	dc := draw.New(img)
	dc0 := dc
	if st.ColorBar {
		dc0 = draw.Crop(dc, 0, -colorBarWidth, 0, 0)
	}

	lo, hi := zRange(g, st)
	colorMap := moreland.ExtendedBlackBody()
	colorMap.SetMin(lo)
	colorMap.SetMax(hi)
	n := st.PaletteSize
	if n < 2 {
		n = 255
	}
	heatMap := plotter.NewHeatMap(g, colorMap.Palette(n))
	heatMap.Min = lo
	heatMap.Max = hi
	p.Add(heatMap)

	for _, o := range overlays {
		l, err := circleLine(o)
		if err != nil {
			return fmt.Errorf("occplot: circle overlay: %w", err)
		}
		p.Add(l)
		if o.Label != "" {
			p.Legend.Add(o.Label, l)
		}
	}
	p.Legend.Top = true

	p.Draw(dc0)

	if st.ColorBar {
		bar := plot.New()
		colorBar := &plotter.ColorBar{ColorMap: colorMap}
		colorBar.Vertical = true
		bar.Add(colorBar)
		bar.HideX()
		bar.Y.Padding = 0
		bar.Draw(draw.Crop(dc, st.Width-colorBarWidth+20, 0, 0, 0))
	}

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("occplot: write png: %w", err)
	}
	return nil
}

// SaveHeatMap writes RenderHeatMap output to path.
func SaveHeatMap(path string, g plotter.GridXYZ, st Style, overlays ...CircleOverlay) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("occplot: create %s: %w", path, err)
	}
	if err := RenderHeatMap(f, g, st, overlays...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Series is one histogram drawn on a 1-D plot.
type Series struct {
	Hist  *hbook.H1D
	Label string
	Color color.Color
}

func newPlot(st Style) *hplot.Plot {
	p := hplot.New()
	p.Title.Text = st.Title
	p.X.Label.Text = st.XLabel
	p.Y.Label.Text = st.YLabel
	p.X.Tick.Marker = PreciseTicks{NSuggestedTicks: 5}
	if st.LogY {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	p.Legend.Top = true
	return p
}

func savePlot(p *hplot.Plot, st Style, path string) error {
	if st.YMax > st.YMin {
		p.Y.Min = st.YMin
		p.Y.Max = st.YMax
	}
	if err := p.Save(st.Width, st.Height, path); err != nil {
		return fmt.Errorf("occplot: save %s: %w", path, err)
	}
	return nil
}

// SaveHists draws the series as outlined histograms.
func SaveHists(path string, st Style, series ...Series) error {
	p := newPlot(st)
	for i, s := range series {
		h := hplot.NewH1D(s.Hist, hplot.WithLogY(st.LogY))
		h.FillColor = nil
		h.LineStyle.Color = s.Color
		if h.LineStyle.Color == nil {
			h.LineStyle.Color = SeriesColor(i)
		}
		h.LineStyle.Width = vg.Points(2)
		h.Infos.Style = hplot.HInfoNone
		p.Add(h)
		if s.Label != "" {
			p.Legend.Add(s.Label, h)
		}
	}
	return savePlot(p, st, path)
}

// PointSeries is a set of (x, y) markers with optional symmetric y errors.
type PointSeries struct {
	X, Y, YErr []float64
	Label      string
	Color      color.Color
}

// RadialSeries turns cell ratios into markers.
func RadialSeries(pts []RadialPoint, label string) PointSeries {
	s := PointSeries{Label: label}
	for _, p := range pts {
		s.X = append(s.X, p.Distance)
		s.Y = append(s.Y, p.Ratio)
	}
	return s
}

// ProfileSeries turns a radial profile into markers with error bars. Empty
// bins are left out.
func ProfileSeries(prof []ProfileBin, label string) PointSeries {
	s := PointSeries{Label: label}
	for _, b := range prof {
		if b.N == 0 {
			continue
		}
		s.X = append(s.X, b.Center)
		s.Y = append(s.Y, b.Mean)
		s.YErr = append(s.YErr, b.StdErr)
	}
	return s
}

func (s PointSeries) s2d() *hbook.S2D {
	pts := make([]hbook.Point2D, len(s.X))
	for i := range pts {
		pts[i] = hbook.Point2D{X: s.X[i], Y: s.Y[i]}
		if i < len(s.YErr) {
			pts[i].ErrY = hbook.Range{Min: s.YErr[i], Max: s.YErr[i]}
		}
	}
	return hbook.NewS2D(pts...)
}

// SavePoints draws the series as markers, with y error bars where given.
func SavePoints(path string, st Style, series ...PointSeries) error {
	p := newPlot(st)
	p.Y.Tick.Marker = PreciseTicks{NSuggestedTicks: 5}
	for i, s := range series {
		if len(s.X) == 0 {
			continue
		}
		c := s.Color
		if c == nil {
			c = SeriesColor(i)
		}
		var pl *hplot.S2D
		if len(s.YErr) > 0 {
			pl = hplot.NewS2D(s.s2d(), hplot.WithYErrBars(true))
			pl.YErrs.LineStyle.Color = c
		} else {
			pl = hplot.NewS2D(s.s2d())
		}
		pl.GlyphStyle.Color = c
		pl.GlyphStyle.Shape = draw.CircleGlyph{}
		pl.GlyphStyle.Radius = vg.Points(2)
		p.Add(pl)
		if s.Label != "" {
			p.Legend.Add(s.Label, pl)
		}
	}
	return savePlot(p, st, path)
}

var htmlPalette = []string{"#000000", "#3b0f70", "#8c2981", "#de4968", "#fe9f6d", "#fcfdbf"}

// RenderHTML writes an interactive heat map page. Empty cells are omitted.
func RenderHTML(w io.Writer, g plotter.GridXYZ, st Style) error {
	lo, hi := zRange(g, st)
	nx, ny := g.Dims()

	var points []opts.ScatterData
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			z := g.Z(ix, iy)
			if z == 0 {
				continue
			}
			points = append(points, opts.ScatterData{Value: []interface{}{g.X(ix), g.Y(iy), z}})
		}
	}

	xMin, xMax := g.X(0), g.X(nx-1)
	yMin, yMax := g.Y(0), g.Y(ny-1)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: st.Title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: st.Title, Subtitle: fmt.Sprintf("%dx%d bins, %d filled", nx, ny, len(points))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: xMin, Max: xMax, Name: st.XLabel, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: yMin, Max: yMax, Name: st.YLabel, NameLocation: "middle", NameGap: 40}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: htmlPalette},
		}),
	)
	scatter.AddSeries("occupancy", points, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("occplot: render html: %w", err)
	}
	return nil
}

// SaveHTML writes RenderHTML output to path.
func SaveHTML(path string, g plotter.GridXYZ, st Style) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("occplot: create %s: %w", path, err)
	}
	if err := RenderHTML(f, g, st); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
