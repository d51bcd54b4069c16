package panels

import (
	"math"
	"strconv"

	"gonum.org/v1/plot"
)

// niceTicker places about n major ticks on 1, 2, 2.5, 5 x 10^k steps.
type niceTicker struct {
	n int
}

var _ plot.Ticker = niceTicker{}

func (t niceTicker) Ticks(min, max float64) []plot.Tick {
	var out []plot.Tick
	for _, v := range BuildNumericTicks(min, max, t.n) {
		if v < min || v > max {
			continue
		}
		out = append(out, plot.Tick{Value: v, Label: FormatNumericTick(v)})
	}
	if len(out) < 2 {
		return plot.DefaultTicks{}.Ticks(min, max)
	}
	return out
}

// niceSteps are the mantissas tried for a tick step.
var niceSteps = [...]float64{1, 2, 2.5, 5, 10}

// niceStep picks the step whose tick count over span is closest to n.
func niceStep(span float64, n int) float64 {
	mag := math.Pow(10, math.Floor(math.Log10(span/float64(n-1))))
	best, bestDiff := mag, math.Inf(1)
	for _, m := range niceSteps {
		step := m * mag
		count := math.Max(math.Ceil(span/step)+1, 2)
		if d := math.Abs(count - float64(n)); d < bestDiff {
			best, bestDiff = step, d
		}
	}
	return best
}

// BuildNumericTicks returns about n tick positions on a 1, 2, 2.5, 5 x 10^k
// grid covering [min,max]. When the grid cannot be represented (the step is
// below the float spacing of the bounds) it returns {min, max}.
func BuildNumericTicks(min, max float64, n int) []float64 {
	if n < 2 || math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return nil
	}
	if max <= min {
		max = min + 1
	}
	step := niceStep(max-min, n)
	start := math.Floor(min/step) * step
	end := math.Ceil(max/step) * step
	count := int(math.Round((end-start)/step)) + 1
	if start+step == start || count < 2 || count > 4*n {
		return []float64{min, max}
	}
	// round to one digit below the step so 0.1 steps give 0.3, not 0.30000000000000004
	scale := math.Pow(10, math.Max(0, 1-math.Floor(math.Log10(step))))
	out := make([]float64, count)
	for i := range out {
		out[i] = math.Round((start+float64(i)*step)*scale) / scale
	}
	return out
}

// FormatNumericTick renders a compact label; iteration counts get k/M suffixes.
func FormatNumericTick(v float64) string {
	av := math.Abs(v)
	switch {
	case av >= 1_000_000:
		return strconv.FormatFloat(v/1_000_000, 'f', -1, 64) + "M"
	case av >= 10_000:
		return strconv.FormatFloat(v/1_000, 'f', -1, 64) + "k"
	case av >= 100:
		return strconv.FormatInt(int64(math.Round(v)), 10)
	case av >= 10:
		return strconv.FormatFloat(v, 'f', 1, 64)
	case av >= 1:
		return strconv.FormatFloat(v, 'f', 2, 64)
	case av == 0:
		return "0"
	case av >= 0.01:
		return strconv.FormatFloat(v, 'f', 3, 64)
	default:
		return strconv.FormatFloat(v, 'g', 3, 64)
	}
}
