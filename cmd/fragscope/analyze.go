package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/iafilius/FragScope/src/analysis"
	"github.com/iafilius/FragScope/src/logging"
	"github.com/iafilius/FragScope/src/panels"
)

type analyzeFlags struct {
	files        []string
	labels       []string
	operations   []string
	iterations   int64
	degree       int
	colorBy      string
	distribution bool
	extentsRow   bool
	window       int
	strict       bool
	output       outputFlags
}

func newAnalyzeCmd(g *globals) *cobra.Command {
	f := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Speed per operation across result files, with fitted trends",
		Example: `  fragscope analyze --file ext4.json --file xfs.json --operations CREATE_FILE --operations DELETE_FILE
  fragscope analyze -f run.jsonl.zst -o CREATE_FILE --color-by extents --distribution --extents-row --show`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromConfig(cmd, "iterations", &f.iterations, g.cfg.Iterations)
			fromConfig(cmd, "degree", &f.degree, g.cfg.Degree)
			fromConfig(cmd, "color-by", &f.colorBy, g.cfg.ColorBy)
			fromConfig(cmd, "window", &f.window, g.cfg.SmoothWindow)
			f.output.resolve(g.cfg.Output)
			return runAnalyze(cmd, g, f)
		},
	}
	fl := cmd.Flags()
	fl.StringArrayVarP(&f.files, "file", "f", nil, "result file (JSON array or JSONL, .gz/.zst ok); repeat for more sources")
	fl.StringArrayVar(&f.labels, "label", nil, "display label per --file, in order")
	fl.StringArrayVarP(&f.operations, "operations", "o", nil, "action to plot, one row each; repeatable")
	fl.Int64Var(&f.iterations, "iterations", 0, "ignore records above this iteration")
	fl.IntVar(&f.degree, "degree", 0, "polynomial degree of the fitted curves")
	fl.StringVar(&f.colorBy, "color-by", "", "point coloring: identity or extents")
	fl.BoolVar(&f.distribution, "distribution", false, "add a box-plot column per operation")
	fl.BoolVar(&f.extentsRow, "extents-row", false, "add a row with total extent counts")
	fl.IntVar(&f.window, "window", 0, "rolling median window of the extents row")
	fl.BoolVar(&f.strict, "strict", false, "fail when an operation matches no record in any file")
	f.output.register(fl, "output image; extension picks png, svg, pdf, eps or jpg", "open the figure in a window")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("operations")
	return cmd
}

func runAnalyze(cmd *cobra.Command, g *globals, f *analyzeFlags) error {
	colorBy, err := panels.ParseColorBy(f.colorBy)
	if err != nil {
		return err
	}
	opts := analysis.Options{
		Files:          f.files,
		Labels:         f.labels,
		Operations:     f.operations,
		IterationBound: f.iterations,
		Degree:         f.degree,
		ColorBy:        colorBy,
		Distribution:   f.distribution,
		ExtentsRow:     f.extentsRow,
		SmoothWindow:   f.window,
		Strict:         f.strict,
	}
	width, rowHeight := figureSize(g)
	popts := opts.ComposerOptions()
	popts.MarkerScale = g.cfg.MarkerScale
	popts.Width = width
	popts.RowHeight = rowHeight
	comp, err := panels.NewComposer(analysis.SourceLabels(f.files, f.labels), popts)
	if err != nil {
		return err
	}
	rep, err := analysis.Run(cmd.Context(), opts, comp)
	if err != nil {
		return err
	}
	if logging.GetLogLevel() == logging.LevelDebug {
		_ = rep.WriteTable(os.Stderr)
	}
	grid, err := comp.Finish()
	if err != nil {
		return err
	}
	return emitGrid("FragScope: speed analysis", grid, width, rowHeight, f.output)
}
