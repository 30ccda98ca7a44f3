package cmd

import (
	"github.com/spf13/cobra"
)

func newFeedsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feeds",
		Short: "List the configured feeds",
		Long:  `Prints each configured feed as name, parent and feed file, tab separated.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			executor, err := newExecutor(cmd)
			if err != nil {
				return err
			}
			defer executor.Close()

			executor.Feeds()
			return nil
		},
	}
}
