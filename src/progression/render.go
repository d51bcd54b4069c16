package progression

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/iafilius/FragScope/src/curvefit"
	"github.com/iafilius/FragScope/src/logging"
	"github.com/iafilius/FragScope/src/panels"
)

// pointStyle renders points only (no connecting line)
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: 0,
		DotWidth:    4,
		DotColor:    col,
	}
}

func lineStyle(col drawing.Color, width float64) chart.Style {
	return chart.Style{StrokeWidth: width, StrokeColor: col}
}

func axisTicks(min, max float64) []chart.Tick {
	if max <= min {
		max = min + 1
	}
	vals := panels.BuildNumericTicks(min, max, 6)
	ticks := make([]chart.Tick, len(vals))
	for i, v := range vals {
		ticks[i] = chart.Tick{Value: v, Label: panels.FormatNumericTick(v)}
	}
	return ticks
}

func yBounds(f *Frame) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range f.Y {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	return lo, hi
}

func renderFrame(f *Frame, opts Options, top float64) (image.Image, error) {
	dataStyle := lineStyle(chart.ColorBlue, 2)
	if len(f.X) == 1 {
		dataStyle = pointStyle(chart.ColorBlue)
	}
	series := []chart.Series{
		chart.ContinuousSeries{Name: "Data Points", XValues: f.X, YValues: f.Y, Style: dataStyle},
	}
	if f.Curve != nil {
		sx := curvefit.Linspace(0, top, SmoothSamples)
		series = append(series, chart.ContinuousSeries{
			Name:    "Fit",
			XValues: sx,
			YValues: f.Curve.Evaluate(sx),
			Style:   lineStyle(chart.ColorRed, 1.5),
		})
	}
	lo, hi := yBounds(f)
	ch := chart.Chart{
		Title:      opts.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 28}},
		XAxis:      chart.XAxis{Name: "x", Ticks: axisTicks(0, top)},
		YAxis:      chart.YAxis{Name: "value", Ticks: axisTicks(lo, hi)},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		logging.Warnf("[progression] frame %d render error: %v; showing blank fallback", f.Index, err)
		return blank(opts.Width, opts.Height), nil
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, err
	}
	return drawAnnotation(img, f.Annotation()), nil
}

// drawAnnotation writes text near the top-left corner of the plot area.
func drawAnnotation(img image.Image, text string) image.Image {
	if img == nil || strings.TrimSpace(text) == "" {
		return img
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	face := basicfont.Face7x13
	x := b.Min.X + 70
	y := b.Min.Y + 60
	dr := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(color.RGBA{A: 255}),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	tw := dr.MeasureString(text).Ceil()
	pad := 4
	bg := image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 220})
	rect := image.Rect(x-pad, y-face.Metrics().Ascent.Ceil()-pad, x+tw+pad, y+pad)
	draw.Draw(rgba, rect, bg, image.Point{}, draw.Over)
	dr.DrawString(text)
	return rgba
}

func blank(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}
