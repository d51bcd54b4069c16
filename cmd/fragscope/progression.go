package main

import (
	"errors"
	"image"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/iafilius/FragScope/src/logging"
	"github.com/iafilius/FragScope/src/progression"
	"github.com/iafilius/FragScope/src/viewer"
)

type progressionFlags struct {
	file    string
	degree  int
	step    int
	delayMs int
	output  outputFlags
}

func newProgressionCmd(g *globals) *cobra.Command {
	f := &progressionFlags{}
	cmd := &cobra.Command{
		Use:   "progression",
		Short: "Animate block means of a value sequence with a re-fitted trend",
		RunE: func(cmd *cobra.Command, args []string) error {
			fromConfig(cmd, "degree", &f.degree, g.cfg.Progression.Degree)
			fromConfig(cmd, "step", &f.step, g.cfg.Progression.Step)
			fromConfig(cmd, "delay-ms", &f.delayMs, g.cfg.Progression.DelayMs)
			f.output.resolve(g.cfg.Progression.Output)
			return runProgression(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.file, "file", "f", "extents.txt", "one value per line")
	fl.IntVar(&f.degree, "degree", 1, "polynomial degree re-fitted every frame")
	fl.IntVar(&f.step, "step", progression.DefaultStep, "values averaged into one frame")
	fl.IntVar(&f.delayMs, "delay-ms", progression.DefaultDelay*10, "frame delay in milliseconds")
	f.output.register(fl, "animated GIF output (default progression.gif)", "play the animation in a window")
	return cmd
}

func runProgression(cmd *cobra.Command, f *progressionFlags) error {
	defer logging.TimeTrack(time.Now(), "progression")
	ctx := cmd.Context()
	values, err := progression.ReadValues(f.file)
	if err != nil {
		return err
	}
	anim, err := progression.New(values, progression.Options{Degree: f.degree, Step: f.step})
	if err != nil {
		return err
	}
	logging.Infof("%s: %d values, %d frames", f.file, len(values), anim.Frames())

	var gw *progression.GIFWriter
	if f.output.out != "" {
		gw = progression.NewGIFWriter(f.delayMs / 10)
	}
	// next renders one frame; the full-color image lives only until the
	// window replaces it.
	next := func() (image.Image, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fr, err := anim.Next()
		if errors.Is(err, progression.ErrExhausted) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		if gw != nil {
			if err := gw.Add(fr.Image); err != nil {
				return nil, err
			}
		}
		return fr.Image, nil
	}

	if f.output.show {
		if _, err := viewer.Play("FragScope: progression", anim.Frames(), next, time.Duration(f.delayMs)*time.Millisecond); err != nil {
			return err
		}
	}
	if gw == nil {
		return nil
	}
	// frames the window did not reach still go into the GIF
	for {
		_, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}
	if err := gw.Save(f.output.out); err != nil {
		return err
	}
	logging.Infof("wrote %s (%d frames)", f.output.out, gw.Len())
	return nil
}
