package main

import (
	"github.com/spf13/cobra"

	"github.com/iafilius/FragScope/src/analysis"
	"github.com/iafilius/FragScope/src/panels"
)

type extentsFlags struct {
	files      []string
	labels     []string
	iterations int64
	degree     int
	window     int
	output     outputFlags
}

func newExtentsCmd(g *globals) *cobra.Command {
	f := &extentsFlags{}
	cmd := &cobra.Command{
		Use:   "extents",
		Short: "Total extent count progression: raw, rolling median and fitted trend",
		RunE: func(cmd *cobra.Command, args []string) error {
			fromConfig(cmd, "degree", &f.degree, g.cfg.Degree)
			fromConfig(cmd, "window", &f.window, g.cfg.SmoothWindow)
			f.output.resolve("extents.png")
			width, rowHeight := figureSize(g)
			comp, err := panels.NewComposer(analysis.SourceLabels(f.files, f.labels), panels.Options{
				ExtentsRow: true,
				Width:      width,
				RowHeight:  rowHeight,
			})
			if err != nil {
				return err
			}
			err = analysis.RunExtents(cmd.Context(), analysis.ExtentsOptions{
				Files:          f.files,
				Labels:         f.labels,
				IterationBound: f.iterations,
				Degree:         f.degree,
				SmoothWindow:   f.window,
			}, comp)
			if err != nil {
				return err
			}
			grid, err := comp.Finish()
			if err != nil {
				return err
			}
			return emitGrid("FragScope: extents progression", grid, width, rowHeight, f.output)
		},
	}
	fl := cmd.Flags()
	fl.StringArrayVarP(&f.files, "file", "f", nil, "result file; repeatable")
	fl.StringArrayVar(&f.labels, "label", nil, "display label per --file, in order")
	fl.Int64Var(&f.iterations, "iterations", 0, "ignore records above this iteration (0 keeps all)")
	fl.IntVar(&f.degree, "degree", 0, "polynomial degree of the fitted curve")
	fl.IntVar(&f.window, "window", 0, "rolling median window")
	f.output.register(fl, "output image (default extents.png)", "open the figure in a window")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
