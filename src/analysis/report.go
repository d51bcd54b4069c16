package analysis

import (
	"context"
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/iafilius/FragScope/src/curvefit"
	"github.com/iafilius/FragScope/src/metrics"
	"github.com/iafilius/FragScope/src/results"
)

// Cell is the outcome of one (source, operation) analysis.
type Cell struct {
	Source     string
	Operation  string
	Points     int // records matching the operation
	Finite     int // points with a finite speed
	Curve      *curvefit.Curve
	SkipReason string // why no curve was drawn
	Speed      metrics.Summary
}

// Fitted reports whether a curve was drawn for the cell.
func (c Cell) Fitted() bool { return c.Curve != nil }

// Report collects the cells of one run in operation-major order.
type Report struct {
	Sources []string
	Cells   []Cell
	Empty   []string // operations with no records in any source
}

func newReport(sources []*results.Source) *Report {
	r := &Report{Sources: make([]string, len(sources))}
	for i, s := range sources {
		r.Sources[i] = s.Label
	}
	return r
}

// Cell returns the cell for a source label and operation.
func (r *Report) Cell(source, op string) (Cell, bool) {
	for _, c := range r.Cells {
		if c.Source == source && c.Operation == op {
			return c, true
		}
	}
	return Cell{}, false
}

// WriteTable prints one line per cell.
func (r *Report) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tOPERATION\tPOINTS\tFINITE\tMEAN MB/s\tP50\tP95\tCURVE")
	for _, c := range r.Cells {
		curve := "skipped: " + c.SkipReason
		if c.Curve != nil {
			curve = fmt.Sprintf("degree %d", c.Curve.Degree)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\n", c.Source, c.Operation, c.Points, c.Finite,
			fmtStat(c.Speed.Mean), fmtStat(c.Speed.P50), fmtStat(c.Speed.P95), curve)
	}
	return tw.Flush()
}

func fmtStat(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

// ActionSummary is the per-action line of the summary command.
type ActionSummary struct {
	Action string
	Count  int
	Speed  metrics.Summary
	// DeltaPct is the mean speed change against the first source, NaN when not comparable.
	DeltaPct float64
}

// SourceSummary lists the actions of one source in first-seen order.
type SourceSummary struct {
	Source  string
	Path    string
	Records int
	Actions []ActionSummary
}

// Summarize counts records per action and summarizes their speed for every file.
func Summarize(ctx context.Context, files, labels []string, bound int64) ([]SourceSummary, error) {
	if bound <= 0 {
		bound = results.DefaultIterationBound
	}
	sources, err := loadSources(ctx, files, labels, bound)
	if err != nil {
		return nil, err
	}
	out := make([]SourceSummary, 0, len(sources))
	for _, src := range sources {
		ss := SourceSummary{Source: src.Label, Path: src.Path, Records: len(src.Records)}
		counts := results.CountByAction(src.Records)
		for _, action := range results.Actions(src.Records) {
			s := metrics.BuildSeries(results.FilterByAction(src.Records, action), metrics.FieldNone)
			ss.Actions = append(ss.Actions, ActionSummary{
				Action:   action,
				Count:    counts[action],
				Speed:    metrics.Summarize(s.SpeedMBs),
				DeltaPct: math.NaN(),
			})
		}
		out = append(out, ss)
	}
	CompareToBaseline(out)
	return out, nil
}

// CompareToBaseline fills DeltaPct of every action with the mean speed change
// against the same action of the first source.
func CompareToBaseline(sums []SourceSummary) {
	if len(sums) < 2 {
		return
	}
	base := map[string]float64{}
	for _, a := range sums[0].Actions {
		base[a.Action] = a.Speed.Mean
	}
	for i := 1; i < len(sums); i++ {
		for j, a := range sums[i].Actions {
			prev, ok := base[a.Action]
			if !ok || !(prev > 0) || math.IsNaN(a.Speed.Mean) {
				continue
			}
			sums[i].Actions[j].DeltaPct = (a.Speed.Mean - prev) / prev * 100
		}
	}
}

// WriteSummaries prints summaries as an aligned table.
func WriteSummaries(w io.Writer, sums []SourceSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, s := range sums {
		fmt.Fprintf(tw, "%s (%s): %d records\n", s.Source, s.Path, s.Records)
		fmt.Fprintln(tw, "  ACTION\tCOUNT\tMEAN MB/s\tSTDDEV\tMIN\tP50\tP95\tMAX\tVS FIRST")
		for _, a := range s.Actions {
			delta := "-"
			if !math.IsNaN(a.DeltaPct) {
				delta = fmt.Sprintf("%+.1f%%", a.DeltaPct)
			}
			fmt.Fprintf(tw, "  %s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", a.Action, a.Count,
				fmtStat(a.Speed.Mean), fmtStat(a.Speed.StdDev), fmtStat(a.Speed.Min),
				fmtStat(a.Speed.P50), fmtStat(a.Speed.P95), fmtStat(a.Speed.Max), delta)
		}
	}
	return tw.Flush()
}
