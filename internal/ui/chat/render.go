// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer renders completed assistant messages. Streaming chunks are
// shown raw; only the finished message is re-rendered as markdown, so partial
// syntax never flickers through the formatter.
type markdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
}

func newMarkdownRenderer(width int) *markdownRenderer {
	style := "light"
	if termenv.HasDarkBackground() {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		// Raw text fallback keeps the chat usable.
		return &markdownRenderer{width: width}
	}
	return &markdownRenderer{renderer: r, width: width}
}

// render formats markdown, falling back to the raw text on failure.
func (m *markdownRenderer) render(text string) string {
	if m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// truncate shortens a string to the given display width, ellipsis included.
func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}
