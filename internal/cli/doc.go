// Package cli connects the blocksync commands to the application.
//
// Executor bootstraps an app.Application from ExecutorOptions and prints
// command results through a formatting.Formatter. While a sync runs it shows
// a spinner on stderr with the live counts of the current feed, unless quiet
// mode is enabled.
//
// Errors are typed so the root command can pick an exit code:
//   - *ConfigError: config.yaml is malformed or invalid
//   - *ConnectionError: the Logseq API is unreachable or rejected the token
//   - *SyncFailedError: at least one feed failed; results were printed
//
// CommandFlags and the Register*Flags helpers keep flag names and defaults
// consistent across commands.
package cli
