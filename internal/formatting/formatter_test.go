package formatting

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"blocksync/internal/blocktree"
	"blocksync/internal/reconciler"
)

var sampleResults = []SyncResult{
	{
		Feed:     "tasks",
		Parent:   "Tasks",
		Stats:    reconciler.SyncStats{Total: 4, Skipped: 1, Created: 2, Updated: 1, Deleted: 3},
		Duration: 1500 * time.Millisecond,
	},
	{
		Feed:   "events",
		Parent: "Calendar",
		Stats:  reconciler.SyncStats{Total: 2, Created: 1},
		Error:  "connection refused",
	},
}

var sampleTree = []blocktree.Node{
	{UID: "6650d4ad-2d7c", Text: "Write report [sync:1]", Children: []blocktree.Node{
		{UID: "u2", Text: "status:: open"},
	}},
	{UID: "u3", Text: "Ship [sync:2]"},
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"table", "JSON", " yaml ", "console"} {
		_, err := ParseFormat(in)
		assert.NoError(t, err, in)
	}

	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestFactory(t *testing.T) {
	factory := NewFactory()

	assert.IsType(t, &JSONFormatter{}, factory.CreateFormatter(Options{Format: FormatJSON}))
	assert.IsType(t, &YAMLFormatter{}, factory.CreateFormatter(Options{Format: FormatYAML}))
	assert.IsType(t, &TableFormatter{}, factory.CreateFormatter(Options{Format: FormatTable}))
	assert.IsType(t, &ConsoleFormatter{}, factory.CreateFormatter(Options{}))

	f := factory.CreateFormatter(Options{Format: FormatTable})
	f.SetOptions(Options{Format: FormatTable, Quiet: true})
	assert.True(t, f.GetOptions().Quiet)
}

func TestTableFormatter_SyncResults(t *testing.T) {
	out := NewTableFormatter(Options{Format: FormatTable}).FormatSyncResults(sampleResults)

	assert.Contains(t, out, "FEED")
	assert.Contains(t, out, "tasks")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, strings.ToLower(out), "1/2 ok")
	assert.NotContains(t, out, "\x1b[", "no color codes unless enabled")
	assert.NotContains(t, out, "Dry run")
}

func TestTableFormatter_DryRunTitle(t *testing.T) {
	out := NewTableFormatter(Options{}).FormatSyncResults([]SyncResult{{Feed: "tasks", DryRun: true}})
	assert.Contains(t, out, "Dry run: no changes were written")
	assert.NotContains(t, strings.ToLower(out), "1/1 ok", "no footer for a single feed")
}

func TestTableFormatter_Tree(t *testing.T) {
	f := NewTableFormatter(Options{})

	out := f.FormatTree("Tasks", sampleTree)
	assert.Contains(t, out, "Tasks")
	assert.Contains(t, out, "Write report [sync:1] (6650d4ad)")
	assert.Contains(t, out, "status:: open (u2)")
	assert.Contains(t, out, "Total: 3 blocks")

	quiet := NewTableFormatter(Options{Quiet: true}).FormatTree("Tasks", sampleTree)
	assert.NotContains(t, quiet, "(u2)")
	assert.NotContains(t, quiet, "Total:")

	assert.Contains(t, f.FormatTree("Empty", nil), "No blocks under Empty")
}

func TestTableFormatter_StatusesAndMetrics(t *testing.T) {
	f := NewTableFormatter(Options{})
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	out := f.FormatStatuses([]reconciler.SyncStatus{
		{Feed: "tasks", State: reconciler.StateSynced, LastSyncTime: &now, LastStats: reconciler.SyncStats{Created: 2}},
		{Feed: "events", State: reconciler.StateError, LastError: "boom", RetryCount: 2},
	})
	assert.Contains(t, out, "2024-05-01T12:00:00Z")
	assert.Contains(t, out, "Synced")
	assert.Contains(t, out, "boom")

	assert.Contains(t, f.FormatStatuses(nil), "No feeds registered")

	metrics := f.FormatMetrics(reconciler.SyncMetricsSummary{
		TotalAttempts:  4,
		TotalSuccesses: 3,
		TotalFailures:  1,
		FailureRate:    0.25,
		Feeds:          []reconciler.FeedMetricView{{Feed: "tasks", Attempts: 4, Created: 7}},
	})
	assert.Contains(t, strings.ToLower(metrics), "25% failed")
	assert.Contains(t, metrics, "tasks")
}

func TestConsoleFormatter(t *testing.T) {
	f := NewConsoleFormatter(Options{})

	out := f.FormatSyncResults(sampleResults)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "tasks: 4 items, 2 created, 1 updated, 3 deleted, 1 unchanged", lines[0])
	assert.Equal(t, "events: failed after 0s: connection refused", lines[1])

	dry := f.FormatSyncResults([]SyncResult{{Feed: "tasks", DryRun: true}})
	assert.True(t, strings.HasPrefix(dry, "[dry-run] tasks:"))

	tree := f.FormatTree("Tasks", sampleTree)
	assert.Equal(t, "Tasks\n- Write report [sync:1]\n  - status:: open\n- Ship [sync:2]\n", tree)

	status := f.FormatStatuses([]reconciler.SyncStatus{{Feed: "tasks", State: reconciler.StateFailed, LastError: "boom"}})
	assert.Contains(t, status, "Failed")
	assert.Contains(t, status, "error: boom")

	metrics := f.FormatMetrics(reconciler.SyncMetricsSummary{TotalAttempts: 2, TotalSuccesses: 2})
	assert.Contains(t, metrics, "2 attempts, 2 succeeded, 0 failed")
}

func TestJSONFormatter(t *testing.T) {
	f := NewJSONFormatter(Options{})

	var report struct {
		Results []SyncResult         `json:"results"`
		Totals  reconciler.SyncStats `json:"totals"`
	}
	require.NoError(t, json.Unmarshal([]byte(f.FormatSyncResults(sampleResults)), &report))
	assert.Len(t, report.Results, 2)
	assert.Equal(t, reconciler.SyncStats{Total: 6, Skipped: 1, Created: 3, Updated: 1, Deleted: 3}, report.Totals)

	var tree struct {
		Parent string           `json:"parent"`
		Count  int              `json:"count"`
		Blocks []blocktree.Node `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal([]byte(f.FormatTree("Tasks", sampleTree)), &tree))
	assert.Equal(t, "Tasks", tree.Parent)
	assert.Equal(t, 3, tree.Count)
	assert.Equal(t, sampleTree, tree.Blocks)

	assert.Equal(t, "[]\n", f.FormatStatuses(nil))
	assert.Contains(t, f.FormatTree("Empty", nil), `"blocks": []`)
}

func TestYAMLFormatter(t *testing.T) {
	f := NewYAMLFormatter(Options{})

	var report struct {
		Results []struct {
			Feed     string `yaml:"feed"`
			Duration string `yaml:"duration"`
		} `yaml:"results"`
		Totals reconciler.SyncStats `yaml:"totals"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(f.FormatSyncResults(sampleResults)), &report))
	require.Len(t, report.Results, 2)
	assert.Equal(t, "1.5s", report.Results[0].Duration)
	assert.Equal(t, 3, report.Totals.Created)

	tree := f.FormatTree("Tasks", sampleTree)
	assert.Contains(t, tree, "parent: Tasks")
	assert.Contains(t, tree, "status:: open")
}
