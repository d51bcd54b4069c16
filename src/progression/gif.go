package progression

import (
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"
	"os"
)

// DefaultDelay is the GIF frame delay in 100ths of a second.
const DefaultDelay = 5

// holdFactor stretches the delay of the final frame.
const holdFactor = 40

// GIFWriter collects frames as paletted images, so the full-color render of a
// frame can be released as soon as it is added.
type GIFWriter struct {
	delay  int
	frames []*image.Paletted
}

// NewGIFWriter returns a writer using delay (100ths of a second) between frames.
func NewGIFWriter(delay int) *GIFWriter {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &GIFWriter{delay: delay}
}

// Add quantizes img to the Plan9 palette and appends it.
func (g *GIFWriter) Add(img image.Image) error {
	if img == nil {
		return errors.New("progression: frame without image")
	}
	b := img.Bounds()
	pm := image.NewPaletted(b, palette.Plan9)
	draw.FloydSteinberg.Draw(pm, b, img, b.Min)
	g.frames = append(g.frames, pm)
	return nil
}

// Len returns the number of frames added so far.
func (g *GIFWriter) Len() int { return len(g.frames) }

// Encode writes an animation that plays once and holds the final frame.
func (g *GIFWriter) Encode(w io.Writer) error {
	if len(g.frames) == 0 {
		return errors.New("progression: no frames to encode")
	}
	delays := make([]int, len(g.frames))
	for i := range delays {
		delays[i] = g.delay
	}
	delays[len(delays)-1] = g.delay * holdFactor
	return gif.EncodeAll(w, &gif.GIF{Image: g.frames, Delay: delays, LoopCount: -1})
}

// Save encodes to path.
func (g *GIFWriter) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := g.Encode(f); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
