// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

package chat

import (
	"fmt"
	"strings"

	"github.com/hariharen9/localseek/internal/ui/styles"
)

// =============================================================================
// VIEW
// =============================================================================

func (m Model) View() string {
	if !m.ready {
		return "Starting LocalSeek..."
	}

	var b strings.Builder
	b.WriteString(styles.Header.Render("LocalSeek"))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")

	switch m.state {
	case statePickConversation:
		b.WriteString(m.conversationPicker())
	case statePickModel:
		b.WriteString(m.modelPicker())
	default:
		b.WriteString(m.viewport.View())
	}
	b.WriteString("\n")

	if m.toast != "" {
		b.WriteString(m.toastStyle.Render(m.toast))
		b.WriteString("\n")
	}

	b.WriteString(styles.InputBox.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(styles.Help.Render(m.helpLine()))
	return b.String()
}

func (m Model) statusLine() string {
	kb := "off"
	if m.useKnowledge {
		kb = "on"
	}
	status := fmt.Sprintf("model: %s  |  knowledge base: %s", m.modelName, kb)
	if m.busy {
		status = m.spin.View() + " " + status
	}
	return styles.StatusBar.Render(status)
}

func (m Model) helpLine() string {
	switch m.state {
	case statePickConversation:
		return "enter load • d delete • esc back"
	case statePickModel:
		return "enter select • esc back"
	default:
		return "enter send • ctrl+n new chat • ctrl+h history • ctrl+p models • ctrl+k knowledge • ctrl+c quit"
	}
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refreshViewport rebuilds the viewport content from the transcript and any
// in-flight streaming text.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for _, entry := range m.transcript {
		if entry.role == "user" {
			b.WriteString(styles.UserLabel.Render("You"))
		} else {
			b.WriteString(styles.AssistantLabel.Render("Assistant"))
		}
		b.WriteString("\n")
		b.WriteString(entry.rendered)
		b.WriteString("\n\n")
	}
	if m.streaming != "" {
		b.WriteString(styles.AssistantLabel.Render("Assistant"))
		b.WriteString("\n")
		b.WriteString(m.streaming)
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
}

// =============================================================================
// PICKERS
// =============================================================================

func (m Model) conversationPicker() string {
	if len(m.conversations) == 0 {
		return styles.PickerItem.Render("No conversations yet.")
	}
	var b strings.Builder
	titleWidth := m.viewport.Width - 30
	if titleWidth < 10 {
		titleWidth = 10
	}
	for i, conv := range m.conversations {
		row := fmt.Sprintf("%s  %s",
			truncate(conv.Title, titleWidth),
			styles.PickerMeta.Render(fmt.Sprintf("%s, %d messages", conv.LastModified, conv.MessageCount)))
		if i == m.cursor {
			b.WriteString(styles.PickerSelected.String() + row)
		} else {
			b.WriteString(styles.PickerItem.Render(row))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) modelPicker() string {
	if len(m.models) == 0 {
		return styles.PickerItem.Render("No models found. Is Ollama running?")
	}
	var b strings.Builder
	for i, name := range m.models {
		marker := ""
		if name == m.modelName {
			marker = styles.PickerMeta.Render("  (current)")
		}
		if i == m.cursor {
			b.WriteString(styles.PickerSelected.String() + name + marker)
		} else {
			b.WriteString(styles.PickerItem.Render(name + marker))
		}
		b.WriteString("\n")
	}
	return b.String()
}
