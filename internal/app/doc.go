// Package app bootstraps blocksync and runs its commands.
//
// NewApplication configures logging, loads config.yaml from the
// configuration directory and opens the configured backend. The resulting
// Application offers the operations behind the CLI:
//
//   - Sync runs one pass per selected feed and reports a
//     formatting.SyncResult for each, optionally as a dry run against a
//     scratch copy of the current tree
//   - Tree reads the block tree under a parent
//   - Watch keeps feeds in sync with a reconciler.Manager until interrupted
//
// # Services
//
// InitializeServices selects the backend from the configuration:
//
//   - memory: an in-process store, discarded on exit
//   - sqlite: a database file, blocks.db by default
//   - logseq: the Logseq HTTP API, authenticated with the token found in
//     the environment variable named by backend.tokenEnv
//
// The Syncer wires a feed.Strategy into a reconciler.TreeReconciler and
// its PropertyReconciler for every pass, using the pacing settings of the
// configuration.
//
// # Watch Mode
//
// Watch registers every feed's file with the manager's filesystem detector,
// queues an initial pass per feed and then syncs on change. SIGINT and
// SIGTERM stop it gracefully. When run as a systemd notify service it
// reports readiness and shutdown through sd_notify.
package app
