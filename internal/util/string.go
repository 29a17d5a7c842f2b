// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

package util

import "strings"

// TruncateRunes truncates a string to a maximum number of runes, appending
// "..." when truncation happens. Rune-based so multi-byte characters are
// never split.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// CollapseWhitespace replaces newlines with spaces and squeezes runs of
// whitespace down to a single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
