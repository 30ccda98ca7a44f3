package formatting

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"blocksync/internal/blocktree"
	"blocksync/internal/reconciler"
	strs "blocksync/pkg/strings"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{
		options: options,
	}
}

// SetOptions updates the formatter options
func (f *TableFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *TableFormatter) GetOptions() Options {
	return f.options
}

// FormatSyncResults renders one row per feed with a totals footer.
func (f *TableFormatter) FormatSyncResults(results []SyncResult) string {
	if len(results) == 0 {
		return f.formatEmptyMessage("📋", "No feeds synced")
	}

	t := f.createTable()
	if !f.options.Quiet && results[0].DryRun {
		t.SetTitle("Dry run: no changes were written")
	}
	t.AppendHeader(f.header("FEED", "PARENT", "TOTAL", "SKIPPED", "CREATED", "UPDATED", "DELETED", "DURATION", "RESULT"))

	failed := 0
	for _, r := range results {
		result := f.color(text.FgGreen, "ok")
		if r.Failed() {
			failed++
			result = f.color(text.FgRed, strs.Truncate(r.Error, strs.DefaultMaxLen))
		}
		t.AppendRow(table.Row{
			r.Feed, r.Parent,
			r.Stats.Total, r.Stats.Skipped, r.Stats.Created, r.Stats.Updated, r.Stats.Deleted,
			r.Duration.Round(time.Millisecond), result,
		})
	}

	if len(results) > 1 {
		sum := totals(results)
		status := fmt.Sprintf("%d/%d ok", len(results)-failed, len(results))
		t.AppendFooter(table.Row{"TOTAL", "", sum.Total, sum.Skipped, sum.Created, sum.Updated, sum.Deleted, "", status})
	}

	return t.Render() + "\n"
}

// FormatTree renders the blocks under parent as a connected list.
func (f *TableFormatter) FormatTree(parent string, nodes []blocktree.Node) string {
	if len(nodes) == 0 {
		return f.formatEmptyMessage("📋", fmt.Sprintf("No blocks under %s", parent))
	}

	l := list.NewWriter()
	l.SetStyle(list.StyleConnectedRounded)
	l.AppendItem(f.color(text.FgHiCyan, parent))
	l.Indent()
	f.appendNodes(l, nodes)

	out := l.Render() + "\n"
	if !f.options.Quiet {
		out += fmt.Sprintf("\n%s %d blocks\n", f.color(text.FgHiBlue, "Total:"), blocktree.Count(nodes))
	}
	return out
}

func (f *TableFormatter) appendNodes(l list.Writer, nodes []blocktree.Node) {
	for _, n := range nodes {
		item := n.Text
		if !f.options.Quiet {
			item = fmt.Sprintf("%s %s", n.Text, f.color(text.FgHiBlack, "("+shortUID(n.UID)+")"))
		}
		l.AppendItem(item)
		if len(n.Children) > 0 {
			l.Indent()
			f.appendNodes(l, n.Children)
			l.UnIndent()
		}
	}
}

// FormatStatuses renders the sync manager's per-feed state.
func (f *TableFormatter) FormatStatuses(statuses []reconciler.SyncStatus) string {
	if len(statuses) == 0 {
		return f.formatEmptyMessage("📋", "No feeds registered")
	}

	t := f.createTable()
	t.AppendHeader(f.header("FEED", "STATE", "LAST SYNC", "CREATED", "UPDATED", "DELETED", "RETRIES", "ERROR"))

	for _, s := range statuses {
		lastSync := "-"
		if s.LastSyncTime != nil {
			lastSync = s.LastSyncTime.Format(time.RFC3339)
		}
		t.AppendRow(table.Row{
			s.Feed, f.stateColor(s.State), lastSync,
			s.LastStats.Created, s.LastStats.Updated, s.LastStats.Deleted,
			s.RetryCount, strs.Truncate(s.LastError, strs.DefaultMaxLen),
		})
	}
	return t.Render() + "\n"
}

// FormatMetrics renders cumulative per-feed counters.
func (f *TableFormatter) FormatMetrics(summary reconciler.SyncMetricsSummary) string {
	if len(summary.Feeds) == 0 {
		return f.formatEmptyMessage("📋", "No sync attempts recorded")
	}

	t := f.createTable()
	t.AppendHeader(f.header("FEED", "ATTEMPTS", "SUCCESSES", "FAILURES", "CREATED", "UPDATED", "DELETED", "SKIPPED", "LAST DURATION"))
	for _, m := range summary.Feeds {
		t.AppendRow(table.Row{
			m.Feed, m.Attempts, m.Successes, m.Failures,
			m.Created, m.Updated, m.Deleted, m.Skipped,
			m.LastDuration.Round(time.Millisecond),
		})
	}
	t.AppendFooter(table.Row{
		"TOTAL", summary.TotalAttempts, summary.TotalSuccesses, summary.TotalFailures,
		"", "", "", "", fmt.Sprintf("%.0f%% failed", summary.FailureRate*100),
	})
	return t.Render() + "\n"
}

// Helper methods

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) header(columns ...string) table.Row {
	row := make(table.Row, len(columns))
	for i, c := range columns {
		row[i] = f.color(text.FgHiCyan, c)
	}
	return row
}

func (f *TableFormatter) stateColor(state reconciler.SyncState) string {
	switch state {
	case reconciler.StateSynced:
		return f.color(text.FgGreen, string(state))
	case reconciler.StateError, reconciler.StateFailed:
		return f.color(text.FgRed, string(state))
	default:
		return f.color(text.FgYellow, string(state))
	}
}

func (f *TableFormatter) color(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}

// formatEmptyMessage formats empty result messages
func (f *TableFormatter) formatEmptyMessage(icon, message string) string {
	if f.options.Quiet {
		return message + "\n"
	}
	return fmt.Sprintf("%s %s\n", f.color(text.FgYellow, icon), f.color(text.FgYellow, message))
}

func shortUID(uid string) string {
	if len(uid) > 8 {
		return uid[:8]
	}
	return uid
}
