// Package progression animates how a fragmentation metric evolves: raw samples
// are averaged in fixed-size blocks, each frame adds one block mean, re-fits a
// polynomial over all means so far and draws the result.
package progression

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/iafilius/FragScope/src/curvefit"
	"github.com/iafilius/FragScope/src/logging"
	"github.com/iafilius/FragScope/src/metrics"
	"github.com/iafilius/FragScope/src/smooth"
)

// DefaultStep is the number of raw samples averaged into one frame.
const DefaultStep = 100

// SmoothSamples is the number of points the fitted curve is drawn with.
const SmoothSamples = 200

// ErrExhausted is returned by Next once every frame has been produced.
var ErrExhausted = errors.New("progression: no frames left")

// Options controls aggregation, fitting and frame geometry.
type Options struct {
	Degree int // 1 fits a line
	Step   int
	Width  int
	Height int
	Title  string
}

func (o Options) withDefaults() Options {
	if o.Step < 1 {
		o.Step = DefaultStep
	}
	if o.Degree < 0 {
		o.Degree = 1
	}
	if o.Width <= 0 {
		o.Width = 800
	}
	if o.Height <= 0 {
		o.Height = 480
	}
	if o.Title == "" {
		o.Title = "Animated Value Progression with Fit"
	}
	return o
}

// Frame is one step of the animation.
type Frame struct {
	Index int
	X, Y  []float64       // aggregated points so far
	Curve *curvefit.Curve // nil until enough points for the degree
	Slope float64         // leading coefficient, NaN without a curve
	Angle float64         // atan(slope) in degrees, NaN without a curve
	// Tangent is the angle between the curve's tangent at the newest point
	// and the y-axis, in degrees. NaN without a curve.
	Tangent float64
	Image   image.Image
}

// Annotation is the text drawn onto the frame.
func (f *Frame) Annotation() string {
	if f.Curve == nil {
		return ""
	}
	return fmt.Sprintf("Angle: %.2f deg slope: %s tangent: %.2f deg",
		f.Angle, strconv.FormatFloat(f.Slope, 'g', 4, 64), f.Tangent)
}

// Animator is a single-use frame generator. It is not safe for concurrent use.
type Animator struct {
	blocks []float64 // every block mean, revealed one per frame
	opts   Options
	next   int
	frames int
}

// New prepares an animator over raw values. Trailing values that do not fill a
// whole step are ignored.
func New(values []float64, opts Options) (*Animator, error) {
	opts = opts.withDefaults()
	if len(values) == 0 {
		return nil, errors.New("progression: no data")
	}
	blocks := smooth.Aggregate(values, opts.Step)
	a := &Animator{blocks: blocks, opts: opts, frames: len(blocks)}
	if a.frames == 0 {
		return nil, fmt.Errorf("progression: %d values are fewer than one step of %d", len(values), opts.Step)
	}
	return a, nil
}

// Frames returns the total number of frames.
func (a *Animator) Frames() int { return a.frames }

// Remaining returns how many frames Next can still produce.
func (a *Animator) Remaining() int { return a.frames - a.next }

// Next reveals the next block mean, re-fits and renders one frame.
func (a *Animator) Next() (*Frame, error) {
	if a.next >= a.frames {
		return nil, ErrExhausted
	}
	f := &Frame{Index: a.next, Slope: math.NaN(), Angle: math.NaN(), Tangent: math.NaN()}
	a.next++
	means := a.blocks[:a.next]

	n := len(means)
	top := metrics.Max(means)
	if n > 1 {
		f.X = curvefit.Linspace(0, top, n)
	} else {
		f.X = []float64{0}
	}
	f.Y = append([]float64(nil), means...)

	if n >= 2 {
		curve, err := curvefit.FitFinite(f.X, f.Y, a.opts.Degree)
		if err != nil {
			logging.Debugf("[progression] frame %d: no fit: %v", f.Index, err)
		} else {
			f.Curve = curve
			f.Slope = curve.Slope()
			f.Angle = curve.SlopeAngle()
			f.Tangent = curve.TangentAngle(f.X[n-1])
		}
	}
	img, err := renderFrame(f, a.opts, top)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", f.Index, err)
	}
	f.Image = img
	return f, nil
}

// All drains the animator and keeps every frame. Long inputs should call Next
// and release each frame instead.
func (a *Animator) All() ([]*Frame, error) {
	out := make([]*Frame, 0, a.Remaining())
	for {
		f, err := a.Next()
		if errors.Is(err, ErrExhausted) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, f)
	}
}

// ReadValues reads one number per line; blank lines are skipped.
func ReadValues(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []float64
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}
