package main

import (
	"github.com/spf13/cobra"

	"github.com/iafilius/FragScope/src/analysis"
)

func newSummaryCmd(g *globals) *cobra.Command {
	var (
		files      []string
		labels     []string
		iterations int64
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Per file, per action record counts and speed statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			fromConfig(cmd, "iterations", &iterations, g.cfg.Iterations)
			sums, err := analysis.Summarize(cmd.Context(), files, labels, iterations)
			if err != nil {
				return err
			}
			return analysis.WriteSummaries(cmd.OutOrStdout(), sums)
		},
	}
	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "result file; repeatable")
	cmd.Flags().StringArrayVar(&labels, "label", nil, "display label per --file, in order")
	cmd.Flags().Int64Var(&iterations, "iterations", 0, "ignore records above this iteration")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
