package iostat

import (
	"fmt"
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/iafilius/FragScope/src/logging"
)

// Input is one statistics file with its panel title.
type Input struct {
	Path  string
	Title string // file base name when empty
}

// Panel builds the log-scaled panel of one table. Non-positive and non-finite
// samples cannot be shown on a log axis and are dropped.
func Panel(t *Table, title string, columns []string) (*plot.Plot, error) {
	if len(columns) == 0 {
		columns = DefaultColumns
	}
	pal, err := brewer.GetPalette(brewer.TypeQualitative, "Dark2", 8)
	if err != nil {
		return nil, err
	}
	colors := pal.Colors()

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Value"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.Padding = 1 * vg.Millimeter

	plotted := 0
	for i, name := range columns {
		vals, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		var xys plotter.XYs
		for j, v := range vals {
			if v > 0 && !math.IsInf(v, 1) {
				xys = append(xys, plotter.XY{X: float64(j), Y: v})
			}
		}
		if dropped := len(vals) - len(xys); dropped > 0 {
			logging.Debugf("[iostat] %s %s: %d samples not positive, not plotted", t.Path, name, dropped)
		}
		if len(xys) == 0 {
			continue
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", t.Path, name, err)
		}
		line.LineStyle.Color = colors[i%len(colors)]
		line.LineStyle.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(name, line)
		plotted++
	}
	// a log axis needs a positive range
	if plotted > 0 {
		if p.Y.Min == p.Y.Max {
			p.Y.Min /= 2
			p.Y.Max *= 2
		}
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	} else {
		p.Title.Text += " (no positive samples)"
	}
	return p, nil
}

// Plots reads every input and returns a single-column grid, one row per file.
func Plots(inputs []Input, columns []string) ([][]*plot.Plot, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("iostat: no input files")
	}
	grid := make([][]*plot.Plot, 0, len(inputs))
	for _, in := range inputs {
		t, err := ReadFile(in.Path)
		if err != nil {
			return nil, err
		}
		title := in.Title
		if title == "" {
			title = filepath.Base(in.Path)
		}
		p, err := Panel(t, title, columns)
		if err != nil {
			return nil, err
		}
		grid = append(grid, []*plot.Plot{p})
	}
	return grid, nil
}
