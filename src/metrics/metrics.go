// Package metrics derives throughput and fragmentation figures from benchmark records.
//
// Division by zero never panics: the affected field is set to NaN and callers
// drop non-finite values (FiniteXY) before fitting or plotting.
package metrics

import (
	"fmt"
	"math"
	"strings"

	"github.com/iafilius/FragScope/src/results"
)

// FieldSelector names the extent-count field resolved for one source.
type FieldSelector int

const (
	FieldNone FieldSelector = iota
	FieldFileExtentCount
	FieldUnderscoreExtentCount
)

func (f FieldSelector) String() string {
	switch f {
	case FieldFileExtentCount:
		return results.FieldFileExtentCount
	case FieldUnderscoreExtentCount:
		return results.FieldUnderscoreExtentCount
	}
	return "none"
}

// SchemaError is returned when extent counts are required but the source has neither field.
type SchemaError struct {
	Source string
	Fields []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s: missing extent count field (expected one of %s)", e.Source, strings.Join(e.Fields, ", "))
}

// ResolveExtentField inspects the first record of a source. file_extent_count wins
// over _file_extent_count when both are present. An empty record set resolves to
// FieldNone without error since nothing needs coloring.
func ResolveExtentField(source string, records []results.Record, required bool) (FieldSelector, error) {
	if len(records) == 0 {
		return FieldNone, nil
	}
	first := records[0]
	switch {
	case first.FileExtentCount != nil:
		return FieldFileExtentCount, nil
	case first.UnderscoreFileExtentCount != nil:
		return FieldUnderscoreExtentCount, nil
	}
	if required {
		return FieldNone, &SchemaError{Source: source, Fields: []string{results.FieldFileExtentCount, results.FieldUnderscoreExtentCount}}
	}
	return FieldNone, nil
}

// ExtentCount reads the extent count through the resolved selector.
func ExtentCount(r results.Record, sel FieldSelector) (float64, bool) {
	var p *int64
	switch sel {
	case FieldFileExtentCount:
		p = r.FileExtentCount
	case FieldUnderscoreExtentCount:
		p = r.UnderscoreFileExtentCount
	}
	if p == nil {
		return math.NaN(), false
	}
	return float64(*p), true
}

// Derived holds the per-record computed fields.
type Derived struct {
	DurationSeconds float64
	DurationPerSize float64 // ns per byte, NaN when size is 0
	SpeedMBs        float64 // MiB/s, NaN when duration is 0
}

// Derive computes the derived fields of one record.
func Derive(r results.Record) Derived {
	d := Derived{DurationSeconds: r.Duration / 1e9}
	d.DurationPerSize = safeDiv(r.Duration, r.Size)
	d.SpeedMBs = safeDiv(r.Size, d.DurationSeconds) / 1024 / 1024
	return d
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return math.NaN()
	}
	return a / b
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
