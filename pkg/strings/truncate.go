// Package strings holds text helpers shared by the output formatters.
package strings

import (
	"strings"
)

// MinTruncateLen is the smallest useful maxLen of Truncate: one character
// plus "...".
const MinTruncateLen = 4

// Truncate collapses all whitespace of s into single spaces and cuts the
// result to maxLen runes, ending it with "..." when something was cut.
// maxLen below MinTruncateLen is raised to MinTruncateLen.
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

// FirstLine returns s up to its first line break.
func FirstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}
