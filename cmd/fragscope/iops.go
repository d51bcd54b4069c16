package main

import (
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/iafilius/FragScope/src/iostat"
)

type iopsFlags struct {
	files   []string
	titles  []string
	columns []string
	output  outputFlags
}

func newIOPSCmd(g *globals) *cobra.Command {
	f := &iopsFlags{}
	cmd := &cobra.Command{
		Use:     "iops",
		Short:   "Plot iostat-style device tables, one log-scaled panel per file",
		Example: `  fragscope iops --file before.txt --title before --file after.txt --title after --columns r/s --columns w/s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromConfig(cmd, "columns", &f.columns, g.cfg.IOPS.Columns)
			f.output.resolve("iops.png")
			inputs := make([]iostat.Input, len(f.files))
			for i, path := range f.files {
				inputs[i].Path = path
				if i < len(f.titles) {
					inputs[i].Title = f.titles[i]
				}
			}
			grid, err := iostat.Plots(inputs, f.columns)
			if err != nil {
				return err
			}
			width, _ := figureSize(g)
			return emitGrid("FragScope: iops", grid, width, 3*vg.Inch, f.output)
		},
	}
	fl := cmd.Flags()
	fl.StringArrayVarP(&f.files, "file", "f", nil, "whitespace-delimited statistics file; repeatable")
	fl.StringArrayVar(&f.titles, "title", nil, "panel title per --file, in order")
	fl.StringArrayVar(&f.columns, "columns", nil, "column to plot; repeatable (default r/s, w/s, %util)")
	f.output.register(fl, "output image (default iops.png)", "open the figure in a window")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
