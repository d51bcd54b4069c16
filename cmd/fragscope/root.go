package main

import (
	"github.com/spf13/cobra"

	"github.com/iafilius/FragScope/src/config"
	"github.com/iafilius/FragScope/src/logging"
)

// globals shared by every subcommand
type globals struct {
	configPath string
	logLevel   string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	g := &globals{cfg: config.Default()}
	root := &cobra.Command{
		Use:           "fragscope",
		Short:         "Analyze filesystem benchmark results: speed, extents and fragmentation trends",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			g.cfg = cfg
			level := cfg.LogLevel
			if cmd.Flags().Changed("log-level") {
				level = g.logLevel
			}
			logging.SetLogLevel(level)
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "YAML defaults file (default ./"+config.DefaultFile+" when present)")
	pf.StringVar(&g.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		newAnalyzeCmd(g),
		newExtentsCmd(g),
		newIOPSCmd(g),
		newProgressionCmd(g),
		newSummaryCmd(g),
	)
	return root
}

// fromConfig applies a config value unless the flag was set explicitly.
func fromConfig[T any](cmd *cobra.Command, flag string, dst *T, v T) {
	if !cmd.Flags().Changed(flag) {
		*dst = v
	}
}
