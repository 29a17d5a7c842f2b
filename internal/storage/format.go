// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

package storage

import (
	"strconv"
	"strings"

	"github.com/hariharen9/localseek/internal/util"
)

// =============================================================================
// CONVERSATION LIST FORMATTING
// =============================================================================

// FormatConversationList renders conversations as a table for terminal
// display: title, relative age, and message count.
func FormatConversationList(conversations []*Conversation) string {
	if len(conversations) == 0 {
		return "No conversations found."
	}

	var sb strings.Builder
	sb.WriteString("Conversations:\n")
	sb.WriteString("--------------------------------------------------------------\n")
	sb.WriteString(pad("Title", 40) + " " + pad("Modified", 14) + " Messages\n")
	sb.WriteString("--------------------------------------------------------------\n")

	for _, conv := range conversations {
		title := util.TruncateRunes(conv.Title, 40)
		sb.WriteString(pad(title, 40) + " " +
			pad(FormatRelativeTime(conv.LastModified), 14) + " " +
			strconv.Itoa(conv.MessageCount) + "\n")
	}
	return sb.String()
}

// pad pads a string to the given width with spaces.
func pad(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(runes))
}
