// Package panels composes per-operation benchmark panels into one figure.
//
// A Composer owns layout and color assignment for a single invocation. Series
// are accumulated with the Add* methods and drawn by exactly one Render, Save,
// RenderImage or Finish call.
package panels

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// DefaultMarkerScale turns size_bytes into a marker area in points squared.
const DefaultMarkerScale = 1024 * 1024 * 20

// Marker radius bounds in points.
const (
	minMarkerRadius = 1.0
	maxMarkerRadius = 12.0
)

var (
	// ErrRendered is returned when a composer is used after its single render.
	ErrRendered = errors.New("panels: figure already rendered")
	// ErrUnknownRow is returned when adding to an operation that has no row.
	ErrUnknownRow = errors.New("panels: unknown operation row")
)

// ColorBy selects how scatter points are filled.
type ColorBy int

const (
	// ColorByIdentity fills every point with its source's identity color.
	ColorByIdentity ColorBy = iota
	// ColorByExtents shades points by extent count on the source's colormap.
	ColorByExtents
)

func (c ColorBy) String() string {
	if c == ColorByExtents {
		return "extents"
	}
	return "identity"
}

// ParseColorBy accepts "identity" or "extents".
func ParseColorBy(s string) (ColorBy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "identity", "source":
		return ColorByIdentity, nil
	case "extents", "extent", "extent_count":
		return ColorByExtents, nil
	}
	return ColorByIdentity, fmt.Errorf("unknown color scheme %q (want identity or extents)", s)
}

// Options controls layout of the composed figure.
type Options struct {
	Operations   []string // one row each, in order
	ExtentsRow   bool     // trailing row with total extents
	Distribution bool     // second column with per-source box plots
	ColorBy      ColorBy
	MarkerScale  float64 // bytes per point^2 of marker area
	Width        vg.Length
	RowHeight    vg.Length
	YLabel       string
}

type scatterLayer struct {
	source int
	xys    plotter.XYs
	radii  []vg.Length
	fills  []float64 // extent counts, used with ColorByExtents
	small  bool
	alpha  uint8
	name   string
}

type curveLayer struct {
	source int
	xys    plotter.XYs
	name   string
	dashed bool
}

type panelRow struct {
	title   string
	ylabel  string
	points  []scatterLayer
	curves  []curveLayer
	boxes   map[int]plotter.Values
	boxName string
}

// Composer accumulates series for all rows and renders them once.
type Composer struct {
	opts     Options
	colors   ColorAssignment
	rows     []*panelRow
	rowIndex map[string]int
	extents  *panelRow
	rendered bool
}

// NewComposer assigns colors to sources (in the given order) and prepares the layout.
func NewComposer(sources []string, opts Options) (*Composer, error) {
	if opts.MarkerScale <= 0 {
		opts.MarkerScale = DefaultMarkerScale
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.RowHeight <= 0 {
		opts.RowHeight = DefaultRowHeight
	}
	if opts.YLabel == "" {
		opts.YLabel = "Speed MB/s"
	}
	ca, err := AssignColors(sources)
	if err != nil {
		return nil, err
	}
	c := &Composer{opts: opts, colors: ca, rowIndex: map[string]int{}}
	for _, op := range opts.Operations {
		if _, dup := c.rowIndex[op]; dup {
			continue
		}
		c.rowIndex[op] = len(c.rows)
		c.rows = append(c.rows, &panelRow{
			title:   op + " Speed Analysis",
			ylabel:  opts.YLabel,
			boxes:   map[int]plotter.Values{},
			boxName: op + " speed distribution",
		})
	}
	if opts.ExtentsRow {
		c.extents = &panelRow{title: "extent count", ylabel: "extent count", boxes: map[int]plotter.Values{}, boxName: "extent count distribution"}
	}
	return c, nil
}

// Colors returns the run's color assignment.
func (c *Composer) Colors() ColorAssignment { return c.colors }

func (c *Composer) row(op string) (*panelRow, error) {
	if c.rendered {
		return nil, ErrRendered
	}
	i, ok := c.rowIndex[op]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRow, op)
	}
	return c.rows[i], nil
}

func (c *Composer) checkSource(source int) error {
	if source < 0 || source >= c.colors.Len() {
		return fmt.Errorf("panels: source index %d out of range [0,%d)", source, c.colors.Len())
	}
	return nil
}

// markerRadius converts a payload size into a glyph radius. The size is read as
// a marker area (points^2) after dividing by the marker scale.
func (c *Composer) markerRadius(size float64) vg.Length {
	area := size / c.opts.MarkerScale
	r := math.Sqrt(math.Max(area, 0)) / 2
	if math.IsNaN(r) || r < minMarkerRadius {
		r = minMarkerRadius
	}
	if r > maxMarkerRadius {
		r = maxMarkerRadius
	}
	return vg.Points(r)
}

// AddScatter adds the (iteration, value) points of one source to an operation row.
// sizes drive marker radius; extents feed the colormap when ColorByExtents is set.
// Either may be nil. Non-finite points are dropped.
func (c *Composer) AddScatter(op string, source int, xs, ys, sizes, extents []float64) error {
	r, err := c.row(op)
	if err != nil {
		return err
	}
	if err := c.checkSource(source); err != nil {
		return err
	}
	layer := scatterLayer{source: source, alpha: 128, name: c.colors.For(source).Name + " - " + op}
	for i := range xs {
		if i >= len(ys) || !finite(xs[i]) || !finite(ys[i]) {
			continue
		}
		layer.xys = append(layer.xys, plotter.XY{X: xs[i], Y: ys[i]})
		size := 0.0
		if i < len(sizes) {
			size = sizes[i]
		}
		layer.radii = append(layer.radii, c.markerRadius(size))
		fill := math.NaN()
		if i < len(extents) {
			fill = extents[i]
		}
		layer.fills = append(layer.fills, fill)
	}
	if len(layer.xys) == 0 {
		return nil
	}
	r.points = append(r.points, layer)
	return nil
}

// AddCurve adds a fitted trend line for one source to an operation row.
func (c *Composer) AddCurve(op string, source int, xs, ys []float64) error {
	r, err := c.row(op)
	if err != nil {
		return err
	}
	if err := c.checkSource(source); err != nil {
		return err
	}
	xys := finiteXYs(xs, ys)
	if len(xys) < 2 {
		return nil
	}
	r.curves = append(r.curves, curveLayer{source: source, xys: xys, name: c.colors.For(source).Name + " - " + op + " Fitted Curve"})
	return nil
}

// AddDistribution records the values shown in the source's box of an operation row.
func (c *Composer) AddDistribution(op string, source int, values []float64) error {
	r, err := c.row(op)
	if err != nil {
		return err
	}
	if err := c.checkSource(source); err != nil {
		return err
	}
	r.boxes[source] = append(r.boxes[source], finiteValues(values)...)
	return nil
}

// AddExtentPoints adds raw total-extent samples of one source to the extents row.
func (c *Composer) AddExtentPoints(source int, xs, ys []float64, label string) error {
	if err := c.extentsReady(source); err != nil {
		return err
	}
	xys := finiteXYs(xs, ys)
	if len(xys) == 0 {
		return nil
	}
	c.extents.points = append(c.extents.points, scatterLayer{source: source, xys: xys, small: true, alpha: 128, name: c.colors.For(source).Name + " - " + label})
	c.extents.boxes[source] = append(c.extents.boxes[source], finiteValues(ys)...)
	return nil
}

// AddExtentTrend adds a smoothed or fitted extent trend line to the extents row.
// Smoothed trends are drawn dashed.
func (c *Composer) AddExtentTrend(source int, xs, ys []float64, label string, smoothed bool) error {
	if err := c.extentsReady(source); err != nil {
		return err
	}
	xys := finiteXYs(xs, ys)
	if len(xys) < 2 {
		return nil
	}
	c.extents.curves = append(c.extents.curves, curveLayer{source: source, xys: xys, dashed: smoothed, name: c.colors.For(source).Name + " - " + label})
	return nil
}

func (c *Composer) extentsReady(source int) error {
	if c.rendered {
		return ErrRendered
	}
	if c.extents == nil {
		return fmt.Errorf("%w: extents row disabled", ErrUnknownRow)
	}
	return c.checkSource(source)
}

// RowCount returns the number of rows the figure will have.
func (c *Composer) RowCount() int {
	n := len(c.rows)
	if c.extents != nil {
		n++
	}
	return n
}

// ColumnCount returns 2 when the distribution column is enabled, else 1.
func (c *Composer) ColumnCount() int {
	if c.opts.Distribution {
		return 2
	}
	return 1
}

// Plots builds the plot grid without consuming the composer.
func (c *Composer) Plots() ([][]*plot.Plot, error) {
	all := append([]*panelRow{}, c.rows...)
	if c.extents != nil {
		all = append(all, c.extents)
	}
	if len(all) == 0 {
		return nil, errEmptyGrid
	}
	grid := make([][]*plot.Plot, 0, len(all))
	for _, r := range all {
		colorBy := c.opts.ColorBy
		if r == c.extents {
			colorBy = ColorByIdentity
		}
		main, err := c.buildScatterPanel(r, colorBy)
		if err != nil {
			return nil, err
		}
		cells := []*plot.Plot{main}
		if c.opts.Distribution {
			dist, err := c.buildDistributionPanel(r)
			if err != nil {
				return nil, err
			}
			cells = append(cells, dist)
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

func (c *Composer) buildScatterPanel(r *panelRow, colorBy ColorBy) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = r.title
	p.X.Label.Text = "Iterations"
	p.Y.Label.Text = r.ylabel
	p.X.Tick.Marker = niceTicker{n: 6}
	p.Y.Tick.Marker = niceTicker{n: 5}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.TextStyle.Font.Size = vg.Points(7)

	for _, layer := range r.points {
		id := c.colors.For(layer.source)
		sc, err := plotter.NewScatter(layer.xys)
		if err != nil {
			return nil, fmt.Errorf("scatter %s: %w", layer.name, err)
		}
		base := draw.GlyphStyle{Color: withAlpha(id.Color, layer.alpha), Shape: id.Shape, Radius: vg.Points(minMarkerRadius)}
		if layer.small {
			base.Radius = vg.Points(0.8)
		}
		sc.GlyphStyle = base
		if !layer.small {
			lo, hi := fillRange(layer.fills)
			l, idn, mode := layer, id, colorBy
			sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
				gs := base
				gs.Radius = l.radii[i]
				if mode == ColorByExtents {
					gs.Color = withAlpha(idn.Shade(l.fills[i], lo, hi), l.alpha)
				}
				return gs
			}
		}
		p.Add(sc)
		p.Legend.Add(layer.name, sc)
	}
	for _, cl := range r.curves {
		id := c.colors.For(cl.source)
		line, err := plotter.NewLine(cl.xys)
		if err != nil {
			return nil, fmt.Errorf("curve %s: %w", cl.name, err)
		}
		line.LineStyle.Color = id.Color
		line.LineStyle.Width = vg.Points(1.5)
		if cl.dashed {
			line.LineStyle.Color = id.Shades[len(id.Shades)-1]
			line.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		}
		p.Add(line)
		p.Legend.Add(cl.name, line)
	}
	if len(r.points) == 0 && len(r.curves) == 0 {
		p.Title.Text += " (no records)"
	}
	return p, nil
}

func (c *Composer) buildDistributionPanel(r *panelRow) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = r.boxName
	p.Y.Label.Text = r.ylabel
	p.Y.Tick.Marker = niceTicker{n: 5}
	names := make([]string, c.colors.Len())
	for i := 0; i < c.colors.Len(); i++ {
		id := c.colors.For(i)
		names[i] = id.Name
		vals := r.boxes[i]
		if len(vals) == 0 {
			continue
		}
		box, err := plotter.NewBoxPlot(vg.Points(20), float64(i), vals)
		if err != nil {
			return nil, fmt.Errorf("box %s: %w", id.Name, err)
		}
		box.FillColor = withAlpha(id.Color, 128)
		box.BoxStyle.Color = id.Shades[len(id.Shades)-1]
		box.MedianStyle.Color = id.Shades[len(id.Shades)-1]
		box.GlyphStyle.Radius = vg.Points(1)
		p.Add(box)
	}
	if len(names) > 0 {
		p.NominalX(names...)
	}
	return p, nil
}

// Finish ends accumulation and returns the plot grid. It counts as the single
// render: later Add*, Render or Finish calls fail with ErrRendered.
func (c *Composer) Finish() ([][]*plot.Plot, error) {
	if c.rendered {
		return nil, ErrRendered
	}
	c.rendered = true
	return c.Plots()
}

// Render draws the full figure once and writes it in the given format.
func (c *Composer) Render(w io.Writer, format string) error {
	grid, err := c.Finish()
	if err != nil {
		return err
	}
	return RenderGrid(w, format, grid, c.opts.Width, c.opts.RowHeight)
}

// Save renders the figure to path; the extension picks the format.
func (c *Composer) Save(path string) error {
	grid, err := c.Finish()
	if err != nil {
		return err
	}
	return SaveGrid(path, grid, c.opts.Width, c.opts.RowHeight)
}

// RenderImage renders the figure once into a raster image for a display window.
func (c *Composer) RenderImage() (image.Image, error) {
	grid, err := c.Finish()
	if err != nil {
		return nil, err
	}
	return GridImage(grid, c.opts.Width, c.opts.RowHeight)
}

// Series reports how many scatter and curve layers an operation row holds.
func (c *Composer) Series(op string) (scatters, curves int) {
	i, ok := c.rowIndex[op]
	if !ok {
		return 0, 0
	}
	return len(c.rows[i].points), len(c.rows[i].curves)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func finiteXYs(xs, ys []float64) plotter.XYs {
	var out plotter.XYs
	for i := range xs {
		if i < len(ys) && finite(xs[i]) && finite(ys[i]) {
			out = append(out, plotter.XY{X: xs[i], Y: ys[i]})
		}
	}
	return out
}

func finiteValues(vs []float64) plotter.Values {
	out := make(plotter.Values, 0, len(vs))
	for _, v := range vs {
		if finite(v) {
			out = append(out, v)
		}
	}
	return out
}

func fillRange(vs []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		if finite(v) {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	return lo, hi
}
