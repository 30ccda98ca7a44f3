package cmd

import (
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"blocksync/internal/cli"
)

var (
	watchLogFile    string
	watchLogMaxSize int
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep feeds in sync as their files change",
		Long: `Syncs every configured feed once, then watches the feed files and syncs a
feed again whenever its file changes. Failing passes are retried with
exponential backoff as configured under watch: in config.yaml.

Stops on SIGINT or SIGTERM and prints the final state of every feed. When
run as a systemd service of Type=notify it reports readiness to systemd.

Use --log-file to write logs to a size-rotated file instead of stderr.`,
		Example: `  blocksync watch
  blocksync watch --log-file ~/.local/state/blocksync/watch.log`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}

	cmd.Flags().StringVar(&watchLogFile, "log-file", "", "Write logs to this file, rotating it by size")
	cmd.Flags().IntVar(&watchLogMaxSize, "log-max-size", 10, "Size in megabytes at which the log file is rotated")
	registerOutputFlags(cmd)
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	options, err := executorOptions(cmd)
	if err != nil {
		return err
	}

	if watchLogFile != "" {
		logFile := &lumberjack.Logger{
			Filename:   watchLogFile,
			MaxSize:    watchLogMaxSize,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		defer logFile.Close()
		options.LogOutput = logFile
	}

	executor, err := cli.NewExecutor(options)
	if err != nil {
		return err
	}
	defer executor.Close()

	return executor.Watch(cmd.Context())
}
