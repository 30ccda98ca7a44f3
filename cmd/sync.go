package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var syncDryRun bool

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [feed...]",
		Short: "Reconcile feeds into the backend once",
		Long: `Runs one reconciliation pass for each named feed, or for every configured
feed when none is named. Feeds are synced one after another; a failing feed
is reported and the remaining feeds still run.

With --dry-run the pass runs against a copy of the current blocks and
reports what would change without writing anything.`,
		Example: `  blocksync sync
  blocksync sync tasks --dry-run
  blocksync sync tasks notes -o json`,
		RunE: runSync,
	}

	cmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Show what would change without writing")
	registerOutputFlags(cmd)
	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	executor, err := newExecutor(cmd)
	if err != nil {
		return err
	}
	defer executor.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return executor.Sync(ctx, args, syncDryRun)
}
