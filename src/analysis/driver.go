// Package analysis orchestrates the N sources x M operations pipeline: load and
// filter records, derive metrics, fit curves and hand the series to a composer.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"github.com/iafilius/FragScope/src/curvefit"
	"github.com/iafilius/FragScope/src/logging"
	"github.com/iafilius/FragScope/src/metrics"
	"github.com/iafilius/FragScope/src/panels"
	"github.com/iafilius/FragScope/src/results"
	"github.com/iafilius/FragScope/src/smooth"
)

// CurveSamples is the number of points a fitted curve is drawn with.
const CurveSamples = 200

// FallocateAction is always sampled into the extents row next to the last operation.
const FallocateAction = "CREATE_FILE_FALLOCATE"

// ErrNoMatches is returned in strict mode when an operation matches no record in any source.
var ErrNoMatches = errors.New("analysis: operation matched no records")

// Options configures Run.
type Options struct {
	Files          []string
	Labels         []string // display labels; file base names when empty
	Operations     []string
	IterationBound int64 // <= 0 selects results.DefaultIterationBound
	Degree         int   // < 0 selects curvefit.DefaultDegree
	ColorBy        panels.ColorBy
	Distribution   bool
	ExtentsRow     bool
	SmoothWindow   int
	Strict         bool
}

func (o Options) withDefaults() Options {
	if o.IterationBound <= 0 {
		o.IterationBound = results.DefaultIterationBound
	}
	if o.Degree < 0 {
		o.Degree = curvefit.DefaultDegree
	}
	if o.SmoothWindow < 1 {
		o.SmoothWindow = smooth.DefaultWindow
	}
	return o
}

// ComposerOptions returns the panel layout matching these options.
func (o Options) ComposerOptions() panels.Options {
	return panels.Options{
		Operations:   o.Operations,
		ExtentsRow:   o.ExtentsRow,
		Distribution: o.Distribution,
		ColorBy:      o.ColorBy,
	}
}

// SourceLabels returns the display label of every file, in input order.
func SourceLabels(files, labels []string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		if i < len(labels) && labels[i] != "" {
			out[i] = labels[i]
			continue
		}
		out[i] = filepath.Base(f)
	}
	return out
}

// loadSources reads every file once and applies the iteration bound. All
// failures are collected so the user sees every bad file in one run.
func loadSources(ctx context.Context, files, labels []string, bound int64) ([]*results.Source, error) {
	if len(files) == 0 {
		return nil, errors.New("analysis: no input files")
	}
	names := SourceLabels(files, labels)
	var (
		out  = make([]*results.Source, 0, len(files))
		errs error
	)
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		src, err := results.LoadSource(path, names[i])
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		total := len(src.Records)
		src = src.WithIterationBound(bound)
		logging.Debugf("[analysis] loaded %s: %d records, %d within iteration bound %d (%s)", path, total, len(src.Records), bound, time.Since(start))
		out = append(out, src)
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

func checkComposer(comp *panels.Composer, sources int) error {
	if comp == nil {
		return errors.New("analysis: nil composer")
	}
	if n := comp.Colors().Len(); n != sources {
		return fmt.Errorf("analysis: composer has %d sources, run has %d", n, sources)
	}
	return nil
}

// Run analyzes every (source, operation) cell and feeds the composer. It does not
// render; the caller owns the single render call.
func Run(ctx context.Context, opts Options, comp *panels.Composer) (*Report, error) {
	defer logging.TimeTrack(time.Now(), "analysis")
	opts = opts.withDefaults()
	if len(opts.Operations) == 0 {
		return nil, errors.New("analysis: no operations requested")
	}
	sources, err := loadSources(ctx, opts.Files, opts.Labels, opts.IterationBound)
	if err != nil {
		return nil, err
	}
	if err := checkComposer(comp, len(sources)); err != nil {
		return nil, err
	}
	required := opts.ColorBy == panels.ColorByExtents
	selectors := make([]metrics.FieldSelector, len(sources))
	for i, src := range sources {
		sel, err := metrics.ResolveExtentField(src.Path, src.Records, required)
		if err != nil {
			return nil, err
		}
		logging.Debugf("[analysis] %s: extent field %s", src.Label, sel)
		selectors[i] = sel
	}

	rep := newReport(sources)
	for _, op := range opts.Operations {
		matched := 0
		for i, src := range sources {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			cell, err := analyzeCell(comp, i, src, op, selectors[i], opts.Degree)
			if err != nil {
				return nil, err
			}
			matched += cell.Points
			rep.Cells = append(rep.Cells, cell)
		}
		if matched == 0 {
			rep.Empty = append(rep.Empty, op)
			if opts.Strict {
				return rep, fmt.Errorf("%w: %s", ErrNoMatches, op)
			}
			logging.Warnf("[analysis] operation %s matched no records in any source; panel left empty", op)
		}
	}

	if opts.ExtentsRow {
		ops := extentActions(opts.Operations[len(opts.Operations)-1])
		for i, src := range sources {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for _, op := range ops {
				recs := results.FilterByAction(src.Records, op)
				if len(recs) == 0 {
					continue
				}
				if err := addExtents(comp, i, recs, op+" extent counts", opts.SmoothWindow, opts.Degree); err != nil {
					return nil, err
				}
			}
		}
	}
	return rep, nil
}

func extentActions(last string) []string {
	if last == FallocateAction {
		return []string{last}
	}
	return []string{last, FallocateAction}
}

func analyzeCell(comp *panels.Composer, idx int, src *results.Source, op string, sel metrics.FieldSelector, degree int) (Cell, error) {
	recs := results.FilterByAction(src.Records, op)
	cell := Cell{Source: src.Label, Operation: op, Points: len(recs)}
	if len(recs) == 0 {
		cell.SkipReason = "no records"
		logging.Debugf("[analysis] %s: no %s records", src.Label, op)
		return cell, nil
	}
	s := metrics.BuildSeries(recs, sel)
	xs, ys := metrics.FiniteXY(s.Iterations, s.SpeedMBs)
	cell.Finite = len(xs)
	cell.Speed = metrics.Summarize(s.SpeedMBs)
	if dropped := cell.Points - cell.Finite; dropped > 0 {
		logging.Debugf("[analysis] %s %s: dropped %d non-finite speed values", src.Label, op, dropped)
	}
	if err := comp.AddScatter(op, idx, s.Iterations, s.SpeedMBs, s.Sizes, s.Extents); err != nil {
		return cell, err
	}
	if err := comp.AddDistribution(op, idx, s.SpeedMBs); err != nil {
		return cell, err
	}

	curve, err := curvefit.Fit(xs, ys, degree)
	if err != nil {
		cell.SkipReason = err.Error()
		var ide *curvefit.InsufficientDataError
		if errors.As(err, &ide) {
			logging.Warnf("[analysis] %s %s: curve skipped: %v", src.Label, op, err)
		} else {
			logging.Warnf("[analysis] %s %s: fit failed: %v", src.Label, op, err)
		}
		return cell, nil
	}
	cell.Curve = curve
	cx := curvefit.Linspace(0, metrics.Max(xs), CurveSamples)
	if err := comp.AddCurve(op, idx, cx, curve.Evaluate(cx)); err != nil {
		return cell, err
	}
	logging.Debugf("[analysis] %s %s: %d points, fit degree %d over [%.0f, %.0f]", src.Label, op, cell.Finite, curve.Degree, curve.DomainMin, curve.DomainMax)
	return cell, nil
}

// addExtents draws raw total extents, their trailing rolling median and a fitted
// trend for one source.
func addExtents(comp *panels.Composer, idx int, recs []results.Record, label string, window, degree int) error {
	s := metrics.BuildSeries(recs, metrics.FieldNone)
	if err := comp.AddExtentPoints(idx, s.Iterations, s.TotalExtents, label); err != nil {
		return err
	}
	smoothed, err := smooth.RollingMedian(s.TotalExtents, window, 1)
	if err != nil {
		return err
	}
	if err := comp.AddExtentTrend(idx, s.Iterations, smoothed, label+" (rolling median)", true); err != nil {
		return err
	}
	xs, ys := metrics.FiniteXY(s.Iterations, s.TotalExtents)
	curve, err := curvefit.Fit(xs, ys, degree)
	if err != nil {
		logging.Warnf("[analysis] %s: extents curve skipped: %v", label, err)
		return nil
	}
	cx := curvefit.Linspace(0, metrics.Max(xs), CurveSamples)
	return comp.AddExtentTrend(idx, cx, curve.Evaluate(cx), label+" Fitted Curve", false)
}

// ExtentsOptions configures RunExtents.
type ExtentsOptions struct {
	Files          []string
	Labels         []string
	IterationBound int64 // <= 0 keeps every record
	Degree         int
	SmoothWindow   int
}

// RunExtents draws the extents progression of every source: raw total extent
// counts, their rolling median and a fitted curve. The composer needs an
// extents row.
func RunExtents(ctx context.Context, opts ExtentsOptions, comp *panels.Composer) error {
	defer logging.TimeTrack(time.Now(), "extents progression")
	bound := opts.IterationBound
	if bound <= 0 {
		bound = math.MaxInt64
	}
	if opts.Degree < 0 {
		opts.Degree = curvefit.DefaultDegree
	}
	if opts.SmoothWindow < 1 {
		opts.SmoothWindow = smooth.DefaultWindow
	}
	sources, err := loadSources(ctx, opts.Files, opts.Labels, bound)
	if err != nil {
		return err
	}
	if err := checkComposer(comp, len(sources)); err != nil {
		return err
	}
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(src.Records) == 0 {
			logging.Warnf("[analysis] %s: no records", src.Label)
			continue
		}
		if err := addExtents(comp, i, src.Records, "extent counts", opts.SmoothWindow, opts.Degree); err != nil {
			return err
		}
	}
	return nil
}
