package panels

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/vg/draw"
)

// Sequential colormap per input file, in --file order.
var colormapNames = []string{"Reds", "Blues", "Greens", "Purples", "Oranges", "Greys"}

var glyphs = []draw.GlyphDrawer{
	draw.CircleGlyph{},
	draw.BoxGlyph{},
	draw.PyramidGlyph{},
	draw.RingGlyph{},
	draw.SquareGlyph{},
	draw.TriangleGlyph{},
}

const shadeClasses = 9

// Identity is the visual identity of one source file.
type Identity struct {
	Index  int
	Name   string
	Color  color.Color // darkest shade; used for scatters, curves and boxes
	Shape  draw.GlyphDrawer
	Shades []color.Color // sequential colormap, light to dark
}

// ColorAssignment maps source index to identity. Built once, read-only afterwards.
type ColorAssignment struct {
	ids []Identity
}

// AssignColors assigns identities in input order: source i always gets
// colormap i mod 6, so the same --file order yields the same colors.
func AssignColors(sources []string) (ColorAssignment, error) {
	ca := ColorAssignment{ids: make([]Identity, len(sources))}
	for i, name := range sources {
		cmap := colormapNames[i%len(colormapNames)]
		pal, err := brewer.GetPalette(brewer.TypeSequential, cmap, shadeClasses)
		if err != nil {
			return ColorAssignment{}, fmt.Errorf("palette %s: %w", cmap, err)
		}
		shades := pal.Colors()
		ca.ids[i] = Identity{
			Index:  i,
			Name:   name,
			Color:  shades[len(shades)-1],
			Shape:  glyphs[(i/len(colormapNames))%len(glyphs)],
			Shades: shades,
		}
	}
	return ca, nil
}

// Len returns the number of assigned sources.
func (c ColorAssignment) Len() int { return len(c.ids) }

// For returns the identity of source i.
func (c ColorAssignment) For(i int) Identity { return c.ids[i] }

// Shade maps v within [lo, hi] onto the identity's colormap. The two lightest
// classes are skipped; they vanish on a white background.
func (id Identity) Shade(v, lo, hi float64) color.Color {
	usable := id.Shades[2:]
	if math.IsNaN(v) {
		return id.Color
	}
	t := 0.5
	if hi > lo {
		t = (v - lo) / (hi - lo)
	}
	idx := int(math.Round(t * float64(len(usable)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(usable) {
		idx = len(usable) - 1
	}
	return usable[idx]
}

func withAlpha(c color.Color, a uint8) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = a
	return n
}
