package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"

	"blocksync/internal/reconciler"
)

// FormatError formats an error message for CLI output
func FormatError(err error) string {
	return text.FgRed.Sprintf("Error: %v", err)
}

// FormatSuccess formats a success message for CLI output
func FormatSuccess(msg string) string {
	return text.FgGreen.Sprintf("✓ %s", msg)
}

// FormatWarning formats a warning message for CLI output
func FormatWarning(msg string) string {
	return text.FgYellow.Sprintf("⚠ %s", msg)
}

// progressSuffix is the spinner text for a running pass.
func progressSuffix(feed string, stats reconciler.SyncStats) string {
	done := stats.Skipped + stats.Created + stats.Updated
	return fmt.Sprintf(" Syncing %s: %d/%d (%d created, %d updated, %d deleted)",
		feed, done, stats.Total, stats.Created, stats.Updated, stats.Deleted)
}
