// Package util holds small string helpers shared across packages.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "..."

// TruncateString caps s at maxLen runes, replacing the tail with "..."
// when it does not fit. Counts runes, not display columns, and is blind
// to ANSI escapes; use TruncateANSI for styled terminal output.
func TruncateString(s string, maxLen int) string {
	if maxLen <= len(ellipsis) {
		return ellipsis
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-len(ellipsis)]) + ellipsis
}

// TruncateANSI caps s at maxWidth display columns, replacing the tail
// with "..." when it does not fit. Escape sequences survive truncation
// and wide runes count by their rendered width.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= len(ellipsis) {
		return ellipsis
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	// ansi.Truncate counts the tail against maxWidth.
	return ansi.Truncate(s, maxWidth, ellipsis)
}

// FirstLine returns the first non-empty line of s with surrounding whitespace
// removed. Useful for squeezing multi-line daemon output into a single log
// field or event message. Returns an empty string if s has no content.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// Indent prefixes every non-empty line of s with the given prefix.
// Empty lines are preserved without the prefix so indented blocks
// keep their paragraph breaks.
func Indent(s, prefix string) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
