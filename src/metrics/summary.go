package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary aggregates one metric column.
type Summary struct {
	Count  int
	Finite int
	Mean   float64
	StdDev float64
	Min    float64
	P50    float64
	P95    float64
	Max    float64
}

// Summarize computes statistics over the finite values; the rest stay NaN when none are finite.
func Summarize(values []float64) Summary {
	s := Summary{Count: len(values), Mean: math.NaN(), StdDev: math.NaN(), Min: math.NaN(), P50: math.NaN(), P95: math.NaN(), Max: math.NaN()}
	fin := Finite(values)
	s.Finite = len(fin)
	if len(fin) == 0 {
		return s
	}
	sort.Float64s(fin)
	s.Mean, s.StdDev = stat.MeanStdDev(fin, nil)
	if len(fin) == 1 {
		s.StdDev = 0
	}
	s.Min = fin[0]
	s.Max = fin[len(fin)-1]
	s.P50 = stat.Quantile(0.5, stat.Empirical, fin, nil)
	s.P95 = stat.Quantile(0.95, stat.Empirical, fin, nil)
	return s
}
