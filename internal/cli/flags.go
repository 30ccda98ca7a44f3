package cli

import (
	"github.com/spf13/cobra"

	"blocksync/internal/formatting"
)

// CommandFlags holds the flag values shared by blocksync commands.
type CommandFlags struct {
	// OutputFormat specifies the desired output format (table, console, json, yaml)
	OutputFormat string
	// Quiet suppresses progress indicators and informational logging
	Quiet bool
	// Debug enables debug logging, including every reconciler event
	Debug bool
	// ConfigPath specifies the configuration directory
	ConfigPath string
	// NoColor disables colored table output
	NoColor bool
}

// RegisterGlobalFlags registers the flags every command understands on the
// root command:
//   - --config-path: Configuration directory (default ~/.config/blocksync)
//   - --debug: Enable debug logging
//   - --quiet/-q: Suppress progress and informational output
func RegisterGlobalFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config-path", "", "Configuration directory (default ~/.config/blocksync)")
	cmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress progress and informational output")
}

// RegisterOutputFlags registers the flags of commands that print results:
//   - --output/-o: Output format (table, console, json, yaml), default: "table"
//   - --no-color: Disable colored table output
func RegisterOutputFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", string(formatting.FormatTable), "Output format (table, console, json, yaml)")
	cmd.Flags().BoolVar(&flags.NoColor, "no-color", false, "Disable colored output")
}

// ToExecutorOptions converts CommandFlags to ExecutorOptions, validating the
// output format.
func (f *CommandFlags) ToExecutorOptions() (ExecutorOptions, error) {
	format, err := formatting.ParseFormat(f.OutputFormat)
	if err != nil {
		return ExecutorOptions{}, err
	}

	return ExecutorOptions{
		Format:     format,
		Quiet:      f.Quiet,
		Debug:      f.Debug,
		Color:      !f.NoColor,
		ConfigPath: f.ConfigPath,
	}, nil
}
