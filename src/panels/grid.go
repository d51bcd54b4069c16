package panels

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	// output formats for NewFormattedCanvas
	_ "gonum.org/v1/plot/vg/vgeps"
	_ "gonum.org/v1/plot/vg/vgpdf"
	_ "gonum.org/v1/plot/vg/vgsvg"
)

// Default figure geometry; a row of panels is RowHeight tall.
const (
	DefaultWidth     = 10 * vg.Inch
	DefaultRowHeight = 4 * vg.Inch
)

var errEmptyGrid = errors.New("panels: nothing to render")

func gridTiles(rows, cols int) draw.Tiles {
	return draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter * 6,
		PadY:      vg.Millimeter * 6,
		PadTop:    vg.Millimeter * 3,
		PadBottom: vg.Millimeter * 3,
		PadLeft:   vg.Millimeter * 3,
		PadRight:  vg.Millimeter * 3,
	}
}

func gridSize(plots [][]*plot.Plot) (int, int, error) {
	if len(plots) == 0 || len(plots[0]) == 0 {
		return 0, 0, errEmptyGrid
	}
	cols := len(plots[0])
	for i, row := range plots {
		if len(row) != cols {
			return 0, 0, fmt.Errorf("panels: row %d has %d columns, want %d", i, len(row), cols)
		}
	}
	return len(plots), cols, nil
}

func drawGrid(dc draw.Canvas, plots [][]*plot.Plot) {
	rows, cols := len(plots), len(plots[0])
	canvases := plot.Align(plots, gridTiles(rows, cols), dc)
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			plots[j][i].Draw(canvases[j][i])
		}
	}
}

// RenderGrid draws a rows x cols grid of plots onto one canvas and writes it in
// the given format (png, svg, pdf, eps, jpg, tif).
func RenderGrid(w io.Writer, format string, plots [][]*plot.Plot, width, rowHeight vg.Length) error {
	rows, _, err := gridSize(plots)
	if err != nil {
		return err
	}
	c, err := draw.NewFormattedCanvas(width, rowHeight*vg.Length(rows), format)
	if err != nil {
		return err
	}
	drawGrid(draw.New(c), plots)
	_, err = c.WriteTo(w)
	return err
}

// GridImage rasterizes the grid, for display windows.
func GridImage(plots [][]*plot.Plot, width, rowHeight vg.Length) (image.Image, error) {
	rows, _, err := gridSize(plots)
	if err != nil {
		return nil, err
	}
	c := vgimg.New(width, rowHeight*vg.Length(rows))
	drawGrid(draw.New(c), plots)
	return c.Image(), nil
}

// FormatFromPath derives the output format from the file extension (png when absent).
func FormatFromPath(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return "png"
	}
	return ext
}

// SaveGrid writes the grid to path, picking the format from the extension.
func SaveGrid(path string, plots [][]*plot.Plot, width, rowHeight vg.Length) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := RenderGrid(f, FormatFromPath(path), plots, width, rowHeight); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}
