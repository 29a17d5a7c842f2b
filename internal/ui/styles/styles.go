// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

// Package styles provides the visual styling for the LocalSeek TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// COLORS
// =============================================================================

// Accent - primary accent, assistant labels, selections
var Accent = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Cyan - user labels, highlights
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald - success states, knowledge base indicator
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose - errors
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - warnings
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// Overlay - borders, separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

// TextPrimary - main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}

// TextMuted - hints, timestamps
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// =============================================================================
// STYLES
// =============================================================================

var (
	// Header is the title bar across the top.
	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Accent).
		Padding(0, 1)

	// StatusBar shows the model name and knowledge base state.
	StatusBar = lipgloss.NewStyle().
			Foreground(TextMuted).
			Padding(0, 1)

	// UserLabel prefixes user messages in the transcript.
	UserLabel = lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan)

	// AssistantLabel prefixes assistant messages in the transcript.
	AssistantLabel = lipgloss.NewStyle().
			Bold(true).
			Foreground(Accent)

	// InputBox frames the textarea.
	InputBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Overlay).
			Padding(0, 1)

	// ToastInfo, ToastWarning, ToastError style transient notices.
	ToastInfo = lipgloss.NewStyle().
			Foreground(Emerald).
			Padding(0, 1)

	ToastWarning = lipgloss.NewStyle().
			Foreground(Amber).
			Padding(0, 1)

	ToastError = lipgloss.NewStyle().
			Foreground(Rose).
			Padding(0, 1)

	// PickerItem and PickerSelected render conversation and model lists.
	PickerItem = lipgloss.NewStyle().
			Foreground(TextPrimary).
			Padding(0, 2)

	PickerSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan).
			Padding(0, 1).
			SetString("> ")

	// PickerMeta renders timestamps and counts inside list rows.
	PickerMeta = lipgloss.NewStyle().
			Foreground(TextMuted)

	// Help styles the key hints along the bottom.
	Help = lipgloss.NewStyle().
		Foreground(TextMuted).
		Padding(0, 1)
)
