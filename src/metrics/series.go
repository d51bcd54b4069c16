package metrics

import (
	"math"

	"github.com/iafilius/FragScope/src/results"
)

// Series is the column view of one (source, operation) record set.
type Series struct {
	Iterations      []float64
	SpeedMBs        []float64
	DurationPerSize []float64
	Sizes           []float64
	Extents         []float64 // NaN where the selector yields nothing
	TotalExtents    []float64
}

// Len returns the number of records in the series.
func (s Series) Len() int { return len(s.Iterations) }

// BuildSeries derives metrics for every record.
func BuildSeries(records []results.Record, sel FieldSelector) Series {
	n := len(records)
	s := Series{
		Iterations:      make([]float64, n),
		SpeedMBs:        make([]float64, n),
		DurationPerSize: make([]float64, n),
		Sizes:           make([]float64, n),
		Extents:         make([]float64, n),
		TotalExtents:    make([]float64, n),
	}
	for i, r := range records {
		d := Derive(r)
		s.Iterations[i] = float64(r.Iteration)
		s.SpeedMBs[i] = d.SpeedMBs
		s.DurationPerSize[i] = d.DurationPerSize
		s.Sizes[i] = r.Size
		s.Extents[i], _ = ExtentCount(r, sel)
		s.TotalExtents[i] = float64(r.TotalExtentsCount)
	}
	return s
}

// FiniteXY drops pairs where either value is non-finite.
func FiniteXY(xs, ys []float64) ([]float64, []float64) {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	ox := make([]float64, 0, n)
	oy := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if IsFinite(xs[i]) && IsFinite(ys[i]) {
			ox = append(ox, xs[i])
			oy = append(oy, ys[i])
		}
	}
	return ox, oy
}

// Finite returns the finite values of vs.
func Finite(vs []float64) []float64 {
	out := make([]float64, 0, len(vs))
	for _, v := range vs {
		if IsFinite(v) {
			out = append(out, v)
		}
	}
	return out
}

// Max returns the largest finite value, or NaN when there is none.
func Max(vs []float64) float64 {
	m := math.Inf(-1)
	for _, v := range vs {
		if IsFinite(v) && v > m {
			m = v
		}
	}
	if math.IsInf(m, -1) {
		return math.NaN()
	}
	return m
}
