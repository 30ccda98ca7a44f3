package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"blocksync/internal/cli"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfigError indicates config.yaml is malformed or invalid.
	ExitCodeConfigError = 2
	// ExitCodeSyncFailed indicates at least one feed failed to sync.
	ExitCodeSyncFailed = 3
	// ExitCodeBackendUnavailable indicates the Logseq API could not be used.
	ExitCodeBackendUnavailable = 4
)

// globalFlags holds the values of the persistent root flags.
var globalFlags cli.CommandFlags

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "blocksync",
	Short: "Keep outliner pages in sync with structured feeds",
	Long: `blocksync renders items of YAML or JSON feeds into blocks and reconciles
them into an outliner graph: new items become blocks, changed items update
their block in place, and items that disappeared are removed. Blocks nobody
synced are never touched.

Feeds and the target backend (in-memory, SQLite or the Logseq HTTP API) are
configured in config.yaml inside the configuration directory, which defaults
to ~/.config/blocksync.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// It is called from the main package with the version injected at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with a code describing the
// failure, if any.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "blocksync version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var configErr *cli.ConfigError
	if errors.As(err, &configErr) {
		return ExitCodeConfigError
	}

	var connErr *cli.ConnectionError
	if errors.As(err, &connErr) {
		return ExitCodeBackendUnavailable
	}

	var syncErr *cli.SyncFailedError
	if errors.As(err, &syncErr) {
		return ExitCodeSyncFailed
	}

	return ExitCodeError
}

// executorOptions builds executor options from the flags, sending output
// to the command's streams.
func executorOptions(cmd *cobra.Command) (cli.ExecutorOptions, error) {
	options, err := globalFlags.ToExecutorOptions()
	if err != nil {
		return cli.ExecutorOptions{}, err
	}
	options.Out = cmd.OutOrStdout()
	options.Progress = cmd.ErrOrStderr()
	return options, nil
}

// newExecutor bootstraps the application for a command.
func newExecutor(cmd *cobra.Command) (*cli.Executor, error) {
	options, err := executorOptions(cmd)
	if err != nil {
		return nil, err
	}
	return cli.NewExecutor(options)
}

func registerOutputFlags(cmd *cobra.Command) {
	cli.RegisterOutputFlags(cmd, &globalFlags)
}

func init() {
	cli.RegisterGlobalFlags(rootCmd, &globalFlags)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newTreeCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newFeedsCmd())
}
