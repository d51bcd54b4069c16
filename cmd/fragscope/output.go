package main

import (
	"fmt"

	"github.com/spf13/pflag"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/iafilius/FragScope/src/logging"
	"github.com/iafilius/FragScope/src/panels"
	"github.com/iafilius/FragScope/src/viewer"
)

// outputFlags are shared by the commands that produce a figure.
type outputFlags struct {
	out  string
	show bool
}

func (o *outputFlags) register(fl *pflag.FlagSet, outUsage, showUsage string) {
	fl.StringVar(&o.out, "out", "", outUsage)
	fl.BoolVar(&o.show, "show", false, showUsage)
}

// resolve picks the configured output when neither a file nor a window was asked for.
func (o *outputFlags) resolve(def string) {
	if o.out == "" && !o.show {
		o.out = def
	}
}

func figureSize(g *globals) (vg.Length, vg.Length) {
	return vg.Length(g.cfg.WidthInches) * vg.Inch, vg.Length(g.cfg.RowInches) * vg.Inch
}

// emitGrid writes the grid to the output file and/or shows it in a window.
func emitGrid(title string, grid [][]*plot.Plot, width, rowHeight vg.Length, o outputFlags) error {
	if o.out != "" {
		if err := panels.SaveGrid(o.out, grid, width, rowHeight); err != nil {
			return err
		}
		logging.Infof("wrote %s", o.out)
	}
	if o.show {
		img, err := panels.GridImage(grid, width, rowHeight)
		if err != nil {
			return fmt.Errorf("render for display: %w", err)
		}
		viewer.Show(title, img)
	}
	return nil
}
