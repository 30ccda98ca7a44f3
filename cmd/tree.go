package cmd

import (
	"github.com/spf13/cobra"
)

func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree <parent>",
		Short: "Show the blocks under a page or block",
		Long: `Prints the block tree stored under a parent: a page name, or the uid of a
block. Useful to inspect what a sync produced.`,
		Example: `  blocksync tree Tasks
  blocksync tree Tasks -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			executor, err := newExecutor(cmd)
			if err != nil {
				return err
			}
			defer executor.Close()

			return executor.Tree(cmd.Context(), args[0])
		},
	}

	registerOutputFlags(cmd)
	return cmd
}
