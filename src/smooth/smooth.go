// Package smooth isolates trends in noisy benchmark series.
package smooth

import (
	"fmt"
	"math"
	"sort"
)

// DefaultWindow is the rolling window used for extent-count trends.
const DefaultWindow = 10000

// RollingMedian returns, for every position i, the median of the trailing
// window series[i-window+1 .. i]. NaN inputs are ignored; positions whose
// window holds fewer than minPeriods values are NaN. minPeriods < 1 means 1.
func RollingMedian(series []float64, window, minPeriods int) ([]float64, error) {
	if window < 1 {
		return nil, fmt.Errorf("rolling median: window %d < 1", window)
	}
	if minPeriods < 1 {
		minPeriods = 1
	}
	if minPeriods > window {
		return nil, fmt.Errorf("rolling median: min periods %d exceeds window %d", minPeriods, window)
	}
	out := make([]float64, len(series))
	// sorted holds the non-NaN values of the current window.
	sorted := make([]float64, 0, min(window, len(series)))
	for i, v := range series {
		if !math.IsNaN(v) {
			sorted = insertSorted(sorted, v)
		}
		if old := i - window; old >= 0 && !math.IsNaN(series[old]) {
			sorted = removeSorted(sorted, series[old])
		}
		if len(sorted) < minPeriods {
			out[i] = math.NaN()
			continue
		}
		out[i] = median(sorted)
	}
	return out, nil
}

func insertSorted(s []float64, v float64) []float64 {
	i := sort.SearchFloat64s(s, v)
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeSorted(s []float64, v float64) []float64 {
	i := sort.SearchFloat64s(s, v)
	if i >= len(s) || s[i] != v {
		return s
	}
	return append(s[:i], s[i+1:]...)
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Aggregate averages consecutive blocks of step values. A trailing partial block is dropped.
func Aggregate(values []float64, step int) []float64 {
	if step < 1 {
		step = 1
	}
	n := len(values) / step
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for _, v := range values[i*step : (i+1)*step] {
			sum += v
		}
		out[i] = sum / float64(step)
	}
	return out
}
