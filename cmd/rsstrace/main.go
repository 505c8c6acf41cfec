//go:build linux

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ja7ad/rsstrace/internal/config"
	"github.com/ja7ad/rsstrace/internal/report"
	"github.com/ja7ad/rsstrace/internal/tracer"
)

const version = "0.1.0"

func main() {
	var cfg config.Config

	root := &cobra.Command{
		Use:     "rsstrace [flags] -- command [args...]",
		Version: version,
		Short:   "Measure the peak resident set size of a command and its whole process tree",
		Long: `rsstrace launches a command under ptrace, follows every process it forks,
clones, or spawns threads from, and reads each one's resident set size from
/proc/<pid>/smaps_rollup in the narrow window just before it exits. It emits
a structured JSON report of the aggregate and the full process tree.

* GitHub: https://github.com/ja7ad/rsstrace

Examples:
  rsstrace -- make -j8
  rsstrace -o build.json --return-result -- ./run-tests.sh`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return config.ErrUsage
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Command = args
			return run(cfg)
		},
	}
	root.Flags().SetInterspersed(false)

	root.Flags().StringVarP(&cfg.Output, "output", "o", config.DefaultOutput(), "path to write the JSON report to")
	config.BindReturnResult(root.Flags(), &cfg.ReturnResult)
	root.Flags().BoolVar(&cfg.Debug, "debug", false, "emit debug-level trace logging to stderr")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	outcome, err := tracer.Run(cfg.Command, cfg.ReturnResult, logger)
	if err != nil {
		return err
	}

	result := report.Build(outcome.Table.Snapshot(), outcome.RootID, outcome.ExitCode)

	if err := report.Write(cfg.Output, result); err != nil {
		return err
	}

	if cfg.ReturnResult && outcome.ExitCode != nil {
		os.Exit(int(*outcome.ExitCode))
	}
	return nil
}
