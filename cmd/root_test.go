package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blocksync/internal/cli"
)

func TestSetVersion(t *testing.T) {
	original := rootCmd.Version
	defer SetVersion(original)

	SetVersion("1.2.3-test")
	assert.Equal(t, "1.2.3-test", GetVersion())
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "blocksync", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)

	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"version", "sync", "tree", "watch", "feeds"})

	for _, flag := range []string{"config-path", "debug", "quiet"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"generic", errors.New("boom"), ExitCodeError},
		{"config", &cli.ConfigError{Path: "/cfg", Reason: errors.New("bad")}, ExitCodeConfigError},
		{"connection", fmt.Errorf("tree: %w", &cli.ConnectionError{Endpoint: "http://x", Reason: errors.New("refused")}), ExitCodeBackendUnavailable},
		{"sync", &cli.SyncFailedError{Failed: 1, Total: 2}, ExitCodeSyncFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getExitCode(tt.err))
		})
	}
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
backend:
  type: sqlite
pacing:
  mutationDelay: 0s
feeds:
  - name: tasks
    file: tasks.yaml
    parent: Tasks
`), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "feeds"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feeds", "tasks.yaml"),
		[]byte("- id: t1\n  title: Write report\n"), 0644))
	return dir
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	globalFlags = cli.CommandFlags{}
	syncDryRun = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), err
}

func TestSyncAndTreeCommands(t *testing.T) {
	dir := writeTestConfig(t)

	out, err := executeRoot(t, "sync", "--config-path", dir, "-q", "-o", "console")
	require.NoError(t, err)
	assert.Contains(t, out, "tasks: 1 items, 1 created")

	out, err = executeRoot(t, "sync", "tasks", "--dry-run", "--config-path", dir, "-q", "-o", "console")
	require.NoError(t, err)
	assert.Contains(t, out, "[dry-run] tasks: 1 items, 0 created, 0 updated, 0 deleted, 1 unchanged")

	out, err = executeRoot(t, "tree", "Tasks", "--config-path", dir, "-q", "-o", "console")
	require.NoError(t, err)
	assert.Contains(t, out, "- Write report [sync:t1]")

	assert.FileExists(t, filepath.Join(dir, "blocks.db"))
}

func TestFeedsCommand(t *testing.T) {
	dir := writeTestConfig(t)

	out, err := executeRoot(t, "feeds", "--config-path", dir, "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "tasks\tTasks\t"+filepath.Join(dir, "feeds", "tasks.yaml"))
}

func TestSyncCommand_InvalidOutput(t *testing.T) {
	dir := writeTestConfig(t)

	_, err := executeRoot(t, "sync", "--config-path", dir, "-q", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestTreeCommand_RequiresParent(t *testing.T) {
	_, err := executeRoot(t, "tree")
	assert.Error(t, err)
}
