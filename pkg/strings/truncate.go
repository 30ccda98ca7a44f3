// Package strings holds text helpers shared by output code.
package strings

import (
	"strings"
)

// DefaultMaxLen is the width error and block text columns are cut to.
const DefaultMaxLen = 60

// MinTruncateLen is the smallest maxLen Truncate honours, leaving room for
// one rune plus "...".
const MinTruncateLen = 4

// Truncate flattens s to one line and cuts it to at most maxLen runes,
// ending in "..." when cut. Runs of whitespace, including newlines, become
// a single space.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
