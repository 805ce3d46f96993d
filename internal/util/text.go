package util

import "strings"

// TruncateString truncates a string to maxLen runes (Unicode-safe)
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// Preview collapses whitespace runs, newlines included, and truncates to maxLen runes
func Preview(s string, maxLen int) string {
	return TruncateString(strings.Join(strings.Fields(s), " "), maxLen)
}
