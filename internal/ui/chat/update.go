// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hariharen9/localseek/internal/protocol"
	"github.com/hariharen9/localseek/internal/ui/styles"
)

// toastWindow is how long a toast stays on screen.
const toastWindow = 4 * time.Second

// =============================================================================
// UPDATE
// =============================================================================

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case NotificationMsg:
		return m.handleNotification(msg.Notification)

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil

	case dispatchDoneMsg:
		// Errors already surfaced as toasts through the notifier.
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) resize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height

	contentWidth := msg.Width - 2
	if contentWidth < 20 {
		contentWidth = 20
	}
	viewportHeight := msg.Height - m.input.Height() - 6
	if viewportHeight < 3 {
		viewportHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(contentWidth, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = viewportHeight
	}
	m.input.SetWidth(contentWidth)
	m.renderer = newMarkdownRenderer(contentWidth)

	// Re-render finished messages at the new width.
	for i := range m.transcript {
		if m.transcript[i].role == "assistant" {
			m.transcript[i].rendered = m.renderer.render(m.transcript[i].text)
		}
	}
	m.refreshViewport()
	return m
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.state != stateChat {
		return m.handlePickerKey(msg)
	}

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "enter":
		return m.submit()

	case "ctrl+n":
		return m, m.dispatchCmd(protocol.Command{Kind: protocol.CmdNewConversation})

	case "ctrl+h":
		return m, m.dispatchCmd(protocol.Command{Kind: protocol.CmdListConversations})

	case "ctrl+p":
		m.state = statePickModel
		m.cursor = 0
		return m, m.dispatchCmd(protocol.Command{Kind: protocol.CmdListModels})

	case "ctrl+k":
		m.useKnowledge = !m.useKnowledge
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if m.busy {
		return m.showToast(protocol.ToastWarning, "Still generating. Hang on."), nil
	}

	m.transcript = append(m.transcript, transcriptEntry{role: "user", text: text, rendered: text})
	m.streaming = ""
	m.streamFailed = false
	m.busy = true
	m.input.Reset()
	m.refreshViewport()
	m.viewport.GotoBottom()

	return m, tea.Batch(
		m.spin.Tick,
		m.dispatchCmd(protocol.Command{
			Kind:             protocol.CmdSendMessage,
			Text:             text,
			Model:            m.modelName,
			UseKnowledgeBase: m.useKnowledge,
		}),
	)
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc", "q":
		m.state = stateChat
		return m, nil

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < m.pickerLen()-1 {
			m.cursor++
		}
		return m, nil

	case "enter":
		return m.pickerSelect()

	case "d":
		if m.state == statePickConversation && m.cursor < len(m.conversations) {
			id := m.conversations[m.cursor].ID
			return m, m.dispatchCmd(protocol.Command{
				Kind:           protocol.CmdDeleteConversation,
				ConversationID: id,
			})
		}
		return m, nil
	}
	return m, nil
}

func (m Model) pickerLen() int {
	if m.state == statePickModel {
		return len(m.models)
	}
	return len(m.conversations)
}

func (m Model) pickerSelect() (tea.Model, tea.Cmd) {
	switch m.state {
	case statePickModel:
		if m.cursor < len(m.models) {
			m.modelName = m.models[m.cursor]
		}
		m.state = stateChat
		return m, nil

	case statePickConversation:
		if m.cursor < len(m.conversations) {
			id := m.conversations[m.cursor].ID
			m.state = stateChat
			return m, m.dispatchCmd(protocol.Command{
				Kind:           protocol.CmdLoadConversation,
				ConversationID: id,
			})
		}
		m.state = stateChat
	}
	return m, nil
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func (m Model) handleNotification(n protocol.Notification) (tea.Model, tea.Cmd) {
	switch n.Kind {
	case protocol.NoteResponseChunk:
		if n.IsComplete {
			full := m.streaming
			m.streaming = ""
			m.busy = false
			if m.streamFailed {
				// The turn failed; the partial text was never persisted
				// and does not belong in the transcript either.
				m.streamFailed = false
				full = ""
			}
			if full != "" {
				rendered := full
				if m.renderer != nil {
					rendered = m.renderer.render(full)
				}
				m.transcript = append(m.transcript, transcriptEntry{
					role: "assistant", text: full, rendered: rendered,
				})
			}
		} else {
			m.streaming += n.Text
		}
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	case protocol.NoteChatCleared:
		m.transcript = nil
		m.streaming = ""
		m.refreshViewport()
		return m, nil

	case protocol.NoteConversationList:
		m.conversations = n.Conversations
		m.state = statePickConversation
		if m.cursor >= len(m.conversations) {
			m.cursor = 0
		}
		return m, nil

	case protocol.NoteConversationLoaded:
		m.transcript = nil
		for _, msg := range n.Messages {
			entry := transcriptEntry{role: msg.Role, text: msg.Content, rendered: msg.Content}
			if msg.Role == "assistant" && m.renderer != nil {
				entry.rendered = m.renderer.render(msg.Content)
			}
			m.transcript = append(m.transcript, entry)
		}
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	case protocol.NoteToast:
		if n.Level == protocol.ToastError && m.busy {
			m.streamFailed = true
		}
		next := m.showToast(n.Level, n.Message)
		return next, expireToast(next.toastSeq, toastWindow)

	case protocol.NoteModelList:
		m.models = n.Models
		if m.modelName == "" && len(n.Models) > 0 {
			m.modelName = n.Models[0]
		}
		if m.cursor >= len(m.models) {
			m.cursor = 0
		}
		return m, nil

	case protocol.NotePullProgress:
		next := m.showToast(protocol.ToastInfo,
			fmt.Sprintf("Pulling %s: %s %.0f%%", n.ModelName, n.Status, n.Percent))
		return next, expireToast(next.toastSeq, toastWindow)
	}
	return m, nil
}

func (m Model) showToast(level protocol.ToastLevel, message string) Model {
	m.toast = message
	m.toastSeq++
	switch level {
	case protocol.ToastError:
		m.toastStyle = styles.ToastError
	case protocol.ToastWarning:
		m.toastStyle = styles.ToastWarning
	default:
		m.toastStyle = styles.ToastInfo
	}
	return m
}

// =============================================================================
// COMMANDS
// =============================================================================

// dispatchCmd runs a protocol command off the Update loop. Notifications
// come back through the Forwarder.
func (m Model) dispatchCmd(cmd protocol.Command) tea.Cmd {
	d := m.dispatcher
	return func() tea.Msg {
		return dispatchDoneMsg{err: d.Dispatch(context.Background(), cmd)}
	}
}
