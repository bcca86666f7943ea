package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/HoverflyHampton/DFLogTool/config"
	"github.com/HoverflyHampton/DFLogTool/dflog"
)

type rootFlags struct {
	configFile string
	files      []string
	drop       []string
	timeShift  float64
	autoShift  string
	droppable  string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "dflogtool OUTPUT BASE",
		Short: "Merge DataFlash flight logs into a single sorted text log",
		Long: `dflogtool parses DataFlash logs (binary or text), merges additional
logs into the base log with type-ID renumbering and time-base alignment,
and writes the result as a single text log sorted by timestamp.`,
		Version:       fmt.Sprintf("%s - %s", version, gitCommit),
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(flags, args[0], args[1])
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "path to configuration file")
	cmd.Flags().StringSliceVarP(&flags.files, "files", "f", nil, "paths of files to merge")
	cmd.Flags().StringSliceVarP(&flags.drop, "drop", "d", nil, "names of tables to drop from incoming files")
	cmd.Flags().Float64VarP(&flags.timeShift, "time-shift", "t", 0, "seconds to shift incoming files by")
	cmd.Flags().StringVarP(&flags.autoShift, "auto-shift", "a", "", "file to merge with automatic time shifting")
	cmd.Flags().StringVar(&flags.droppable, "droppable", "", "file listing tables droppable on type-ID exhaustion")

	cmd.AddCommand(newCSVCommand(flags))

	return cmd
}

func runRoot(flags *rootFlags, output, basePath string) error {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	opts := []dflog.Option{dflog.WithLogger(logger)}
	droppable := flags.droppable
	if droppable == "" {
		droppable = cfg.DroppableTablesFile
	}
	if droppable != "" {
		opts = append(opts, dflog.WithDroppableTablesFile(droppable))
	}

	base, err := dflog.Parse(basePath, opts...)
	if err != nil {
		return err
	}

	thresholds := dflog.OffsetThresholds{
		BGUCurrent:   cfg.Offsets.BGUCurrent,
		CraftCurrent: cfg.Offsets.CraftCurrent,
		RCOUChannel:  cfg.Offsets.RCOUChannel,
		IPSCurrent:   cfg.Offsets.IPSCurrent,
	}

	shift := flags.timeShift
	if flags.autoShift != "" {
		donor, err := dflog.Parse(flags.autoShift, dflog.WithLogger(logger))
		if err != nil {
			return err
		}
		shift += base.FindOffset(donor, thresholds)
		base.Merge(donor, dflog.MergeOptions{
			DropTables: flags.drop,
			TimeShift:  shift,
		})
	}

	for _, path := range flags.files {
		donor, err := dflog.Parse(path, dflog.WithLogger(logger))
		if err != nil {
			return err
		}
		base.Merge(donor, dflog.MergeOptions{
			DropTables:   flags.drop,
			TimeShift:    shift,
			GPSTimeShift: true,
		})
	}

	return base.WriteFile(output)
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var logger *slog.Logger
	switch cfg.Logging.Level {
	case "debug":
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelDebug}))
	case "warn", "warning":
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn}))
	case "error":
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelError}))
	default:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo}))
	}
	slog.SetDefault(logger)

	return logger
}
