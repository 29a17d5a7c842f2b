// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hariharen9/localseek/internal/bridge"
	"github.com/hariharen9/localseek/internal/protocol"
	"github.com/hariharen9/localseek/internal/ui/styles"
)

// =============================================================================
// VIEW STATE
// =============================================================================

// viewState selects which surface is on screen.
type viewState int

const (
	stateChat viewState = iota
	statePickConversation
	statePickModel
)

// transcriptEntry is one finished message in the on-screen transcript.
type transcriptEntry struct {
	role     string
	text     string
	rendered string
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat surface.
type Model struct {
	dispatcher *bridge.Dispatcher

	// Chat settings
	modelName    string
	useKnowledge bool

	// State
	state        viewState
	busy         bool
	streamFailed bool
	width        int
	height       int
	ready        bool

	// Transcript. The model is copied on every Update, so streaming is a
	// plain string rather than a Builder.
	transcript []transcriptEntry
	streaming  string

	// Components
	viewport viewport.Model
	input    textarea.Model
	spin     spinner.Model
	renderer *markdownRenderer

	// Pickers
	conversations []protocol.ConversationSummary
	models        []string
	cursor        int

	// Transient toast
	toast      string
	toastStyle lipgloss.Style
	toastSeq   int
}

// New creates the chat model. The dispatcher must share the Forwarder this
// model's program is attached to.
func New(dispatcher *bridge.Dispatcher, defaultModel string, useKnowledge bool) Model {
	input := textarea.New()
	input.Placeholder = "Ask anything..."
	input.CharLimit = 0
	input.SetHeight(3)
	input.ShowLineNumbers = false
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(styles.Accent)

	return Model{
		dispatcher:   dispatcher,
		modelName:    defaultModel,
		useKnowledge: useKnowledge,
		input:        input,
		spin:         spin,
	}
}

// Init requests the model list so the picker is warm.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.dispatchCmd(protocol.Command{Kind: protocol.CmdListModels}),
	)
}

// ModelName returns the active model, for tests and the status line.
func (m Model) ModelName() string {
	return m.modelName
}
