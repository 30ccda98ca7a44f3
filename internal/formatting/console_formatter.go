package formatting

import (
	"fmt"
	"strings"
	"time"

	"blocksync/internal/blocktree"
	"blocksync/internal/reconciler"
)

// ConsoleFormatter provides simple console output formatting
type ConsoleFormatter struct {
	options Options
}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter(options Options) Formatter {
	return &ConsoleFormatter{
		options: options,
	}
}

// SetOptions updates the formatter options
func (f *ConsoleFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *ConsoleFormatter) GetOptions() Options {
	return f.options
}

// FormatSyncResults prints one line per feed.
func (f *ConsoleFormatter) FormatSyncResults(results []SyncResult) string {
	if len(results) == 0 {
		return "No feeds synced.\n"
	}

	var b strings.Builder
	for _, r := range results {
		prefix := ""
		if r.DryRun {
			prefix = "[dry-run] "
		}
		if r.Failed() {
			fmt.Fprintf(&b, "%s%s: failed after %s: %s\n", prefix, r.Feed, r.Duration.Round(time.Millisecond), r.Error)
			continue
		}
		fmt.Fprintf(&b, "%s%s: %s\n", prefix, r.Feed, statsLine(r.Stats))
	}
	return b.String()
}

func statsLine(s reconciler.SyncStats) string {
	return fmt.Sprintf("%d items, %d created, %d updated, %d deleted, %d unchanged",
		s.Total, s.Created, s.Updated, s.Deleted, s.Skipped)
}

// FormatTree prints the blocks as an indented outline.
func (f *ConsoleFormatter) FormatTree(parent string, nodes []blocktree.Node) string {
	if len(nodes) == 0 {
		return fmt.Sprintf("No blocks under %s.\n", parent)
	}

	var b strings.Builder
	if !f.options.Quiet {
		fmt.Fprintf(&b, "%s\n", parent)
	}
	writeOutline(&b, nodes, 0)
	return b.String()
}

func writeOutline(b *strings.Builder, nodes []blocktree.Node, depth int) {
	for _, n := range nodes {
		fmt.Fprintf(b, "%s- %s\n", strings.Repeat("  ", depth), n.Text)
		writeOutline(b, n.Children, depth+1)
	}
}

// FormatStatuses prints one line per feed.
func (f *ConsoleFormatter) FormatStatuses(statuses []reconciler.SyncStatus) string {
	if len(statuses) == 0 {
		return "No feeds registered.\n"
	}

	var b strings.Builder
	for _, s := range statuses {
		fmt.Fprintf(&b, "%-20s %-8s", s.Feed, s.State)
		if s.LastSyncTime != nil {
			fmt.Fprintf(&b, " last sync %s", s.LastSyncTime.Format(time.RFC3339))
		}
		if s.LastError != "" {
			fmt.Fprintf(&b, " error: %s", s.LastError)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatMetrics prints the totals and one line per feed.
func (f *ConsoleFormatter) FormatMetrics(summary reconciler.SyncMetricsSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d attempts, %d succeeded, %d failed\n",
		summary.TotalAttempts, summary.TotalSuccesses, summary.TotalFailures)
	for _, m := range summary.Feeds {
		fmt.Fprintf(&b, "  %s: %d created, %d updated, %d deleted, %d unchanged\n",
			m.Feed, m.Created, m.Updated, m.Deleted, m.Skipped)
	}
	return b.String()
}
