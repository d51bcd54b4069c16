package panels

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"
)

func sameColor(a, b color.Color) bool {
	r1, g1, b1, a1 := a.RGBA()
	r2, g2, b2, a2 := b.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}

func TestAssignColorsStableAcrossRuns(t *testing.T) {
	files := []string{"ext4.json", "xfs.json", "btrfs.json"}
	first, err := AssignColors(files)
	require.NoError(t, err)
	second, err := AssignColors(files)
	require.NoError(t, err)
	for i := range files {
		require.True(t, sameColor(first.For(i).Color, second.For(i).Color), "source %d color differs between runs", i)
		require.Equal(t, files[i], first.For(i).Name)
	}
	// identity depends on position, not on the name
	swapped, err := AssignColors([]string{"xfs.json", "ext4.json"})
	require.NoError(t, err)
	require.True(t, sameColor(first.For(0).Color, swapped.For(0).Color))
	// distinct sources get distinct colors
	require.False(t, sameColor(first.For(0).Color, first.For(1).Color))
	require.False(t, sameColor(first.For(1).Color, first.For(2).Color))
}

func TestAssignColorsCyclesWithDifferentGlyphs(t *testing.T) {
	names := make([]string, 8)
	for i := range names {
		names[i] = filepathName(i)
	}
	ca, err := AssignColors(names)
	require.NoError(t, err)
	require.Equal(t, 8, ca.Len())
	require.True(t, sameColor(ca.For(0).Color, ca.For(6).Color))
	require.NotEqual(t, ca.For(0).Shape, ca.For(6).Shape)
}

func filepathName(i int) string { return filepath.Join("runs", string(rune('a'+i))+".json") }

func TestShadeRange(t *testing.T) {
	ca, err := AssignColors([]string{"a"})
	require.NoError(t, err)
	id := ca.For(0)
	lo := id.Shade(0, 0, 10)
	hi := id.Shade(10, 0, 10)
	require.True(t, sameColor(lo, id.Shades[2]))
	require.True(t, sameColor(hi, id.Shades[len(id.Shades)-1]))
	require.True(t, sameColor(id.Shade(math.NaN(), 0, 10), id.Color))
	// identity color is the darkest class of the colormap
	require.True(t, sameColor(id.Color, id.Shades[len(id.Shades)-1]))
	// degenerate range picks the middle class without panicking
	require.NotNil(t, id.Shade(5, 5, 5))
}

func TestParseColorBy(t *testing.T) {
	c, err := ParseColorBy("Extents")
	require.NoError(t, err)
	require.Equal(t, ColorByExtents, c)
	c, err = ParseColorBy("")
	require.NoError(t, err)
	require.Equal(t, ColorByIdentity, c)
	_, err = ParseColorBy("rainbow")
	require.Error(t, err)
}

func TestMarkerRadiusClamp(t *testing.T) {
	c, err := NewComposer([]string{"a"}, Options{Operations: []string{"CREATE_FILE"}})
	require.NoError(t, err)
	require.Equal(t, vg.Points(minMarkerRadius), c.markerRadius(65536))
	require.Equal(t, vg.Points(maxMarkerRadius), c.markerRadius(1e15))
	mid := c.markerRadius(DefaultMarkerScale * 16) // area 16 -> radius 2
	require.InDelta(t, float64(vg.Points(2)), float64(mid), 1e-9)
}

func ramp(n int, f func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

func TestComposerRenderLayout(t *testing.T) {
	c, err := NewComposer([]string{"a.json", "b.json"}, Options{
		Operations:   []string{"CREATE_FILE", "DELETE_FILE"},
		ExtentsRow:   true,
		Distribution: true,
		ColorBy:      ColorByExtents,
	})
	require.NoError(t, err)
	require.Equal(t, 3, c.RowCount())
	require.Equal(t, 2, c.ColumnCount())

	xs := ramp(50, func(i int) float64 { return float64(i) })
	ys := ramp(50, func(i int) float64 { return 20 + float64(i%7) })
	sizes := ramp(50, func(int) float64 { return 65536 })
	ext := ramp(50, func(i int) float64 { return float64(i % 4) })
	ys[3] = math.NaN()

	for src := 0; src < 2; src++ {
		require.NoError(t, c.AddScatter("CREATE_FILE", src, xs, ys, sizes, ext))
		require.NoError(t, c.AddCurve("CREATE_FILE", src, xs, ys))
		require.NoError(t, c.AddDistribution("CREATE_FILE", src, ys))
		require.NoError(t, c.AddExtentPoints(src, xs, ext, "extent counts"))
		require.NoError(t, c.AddExtentTrend(src, xs, ext, "smoothed", true))
	}
	scatters, curves := c.Series("CREATE_FILE")
	require.Equal(t, 2, scatters)
	require.Equal(t, 2, curves)
	// DELETE_FILE stays empty
	scatters, curves = c.Series("DELETE_FILE")
	require.Zero(t, scatters)
	require.Zero(t, curves)

	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf, "png"))
	img, format, err := image.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, "png", format)
	b := img.Bounds()
	require.InDelta(t, 960, b.Dx(), 1)
	require.InDelta(t, 3*384, b.Dy(), 1)

	require.ErrorIs(t, c.Render(&buf, "png"), ErrRendered)
	require.ErrorIs(t, c.AddScatter("CREATE_FILE", 0, xs, ys, nil, nil), ErrRendered)
}

func TestComposerRejectsUnknownRowAndSource(t *testing.T) {
	c, err := NewComposer([]string{"a"}, Options{Operations: []string{"CREATE_FILE"}})
	require.NoError(t, err)
	err = c.AddScatter("ALTER_BIGGER", 0, []float64{1}, []float64{1}, nil, nil)
	require.True(t, errors.Is(err, ErrUnknownRow))
	require.Error(t, c.AddCurve("CREATE_FILE", 3, []float64{1, 2}, []float64{1, 2}))
	require.True(t, errors.Is(c.AddExtentPoints(0, []float64{1}, []float64{1}, "x"), ErrUnknownRow))
}

func TestComposerEmptyRowsStillRender(t *testing.T) {
	c, err := NewComposer([]string{"a", "b"}, Options{Operations: []string{"CREATE_FILE"}, Distribution: true})
	require.NoError(t, err)
	// all points non-finite: nothing is added, the panel stays empty
	require.NoError(t, c.AddScatter("CREATE_FILE", 0, []float64{1, 2}, []float64{math.NaN(), math.Inf(1)}, nil, nil))
	require.NoError(t, c.AddCurve("CREATE_FILE", 0, []float64{1}, []float64{1}))
	img, err := c.RenderImage()
	require.NoError(t, err)
	require.Greater(t, img.Bounds().Dx(), 0)
	_, err = c.RenderImage()
	require.ErrorIs(t, err, ErrRendered)
}

func TestComposerWithoutRowsFails(t *testing.T) {
	c, err := NewComposer([]string{"a"}, Options{})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.Error(t, c.Render(&buf, "png"))
}

func TestSaveFormats(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"fig.png", "fig.svg"} {
		c, err := NewComposer([]string{"a"}, Options{Operations: []string{"CREATE_FILE"}})
		require.NoError(t, err)
		require.NoError(t, c.AddScatter("CREATE_FILE", 0, []float64{1, 2, 3}, []float64{3, 2, 1}, nil, nil))
		path := filepath.Join(dir, name)
		require.NoError(t, c.Save(path))
		st, err := os.Stat(path)
		require.NoError(t, err)
		require.Greater(t, st.Size(), int64(0))
	}
	require.Equal(t, "png", FormatFromPath("out"))
	require.Equal(t, "svg", FormatFromPath("out.SVG"))
}

func TestBuildNumericTicks(t *testing.T) {
	ticks := BuildNumericTicks(0, 70000, 6)
	require.GreaterOrEqual(t, len(ticks), 2)
	require.Equal(t, 0.0, ticks[0])
	require.GreaterOrEqual(t, ticks[len(ticks)-1], 70000.0)
	require.Nil(t, BuildNumericTicks(0, 1, 1))
	require.Nil(t, BuildNumericTicks(math.NaN(), 1, 5))
	require.Equal(t, []float64{0, 20000, 40000, 60000, 80000}, ticks)
	require.Equal(t, []float64{0, 0.1, 0.2, 0.3, 0.4}, BuildNumericTicks(0, 0.4, 5))
	require.Equal(t, "70k", FormatNumericTick(70000))
	require.Equal(t, "7M", FormatNumericTick(7_000_000))
	require.Equal(t, "250", FormatNumericTick(250))
	require.Equal(t, "12.5", FormatNumericTick(12.5))
	require.Equal(t, "0", FormatNumericTick(0))

	// step below the float spacing at 1e16: no grid, just the bounds
	huge := BuildNumericTicks(1e16, 1e16+2, 5)
	require.Equal(t, []float64{1e16, 1e16 + 2}, huge)

	nt := niceTicker{n: 5}.Ticks(0, 100)
	for _, tk := range nt {
		require.True(t, tk.Value >= 0 && tk.Value <= 100)
	}
}
