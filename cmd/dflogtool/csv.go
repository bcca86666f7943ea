package main

import (
	"github.com/spf13/cobra"

	"github.com/HoverflyHampton/DFLogTool/config"
	"github.com/HoverflyHampton/DFLogTool/csvexport"
	"github.com/HoverflyHampton/DFLogTool/dflog"
)

func newCSVCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "csv OUTPUT INPUT",
		Short: "Export a flight-track CSV (GPS fixes with attitude) from a log",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configFile)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			log, err := dflog.Parse(args[1], dflog.WithLogger(logger))
			if err != nil {
				return err
			}

			return csvexport.WriteTrackFile(log, args[0])
		},
	}
}
