// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// COMMAND KINDS
// =============================================================================

// CommandKind identifies a presentation-layer command. The set is closed:
// ParseCommand rejects anything else.
type CommandKind string

const (
	CmdSendMessage        CommandKind = "sendMessage"
	CmdNewConversation    CommandKind = "newConversation"
	CmdListConversations  CommandKind = "listConversations"
	CmdLoadConversation   CommandKind = "loadConversation"
	CmdDeleteConversation CommandKind = "deleteConversation"
	CmdClearHistory       CommandKind = "clearHistory"
	CmdListModels         CommandKind = "listModels"
	CmdPullModel          CommandKind = "pullModel"
	CmdDeleteModel        CommandKind = "deleteModel"
	CmdInsertText         CommandKind = "insertText"
)

// Command is the inbound envelope from the presentation layer. Fields beyond
// Kind are populated per kind; ParseCommand enforces which are required.
type Command struct {
	Kind CommandKind `json:"command"`

	// sendMessage
	Text             string `json:"text,omitempty"`
	Model            string `json:"model,omitempty"`
	UseKnowledgeBase bool   `json:"useKnowledgeBase,omitempty"`

	// loadConversation / deleteConversation
	ConversationID string `json:"conversationId,omitempty"`

	// pullModel / deleteModel
	ModelName string `json:"modelName,omitempty"`
}

// =============================================================================
// NOTIFICATION KINDS
// =============================================================================

// NotificationKind identifies an outbound notification to the presentation
// layer.
type NotificationKind string

const (
	NoteResponseChunk      NotificationKind = "responseChunk"
	NoteChatCleared        NotificationKind = "chatCleared"
	NoteConversationList   NotificationKind = "conversationList"
	NoteConversationLoaded NotificationKind = "conversationLoaded"
	NoteToast              NotificationKind = "toast"
	NoteModelList          NotificationKind = "modelList"
	NotePullProgress       NotificationKind = "pullProgress"
)

// ToastLevel grades a toast notification.
type ToastLevel string

const (
	ToastInfo    ToastLevel = "info"
	ToastWarning ToastLevel = "warning"
	ToastError   ToastLevel = "error"
)

// ConversationSummary is one row of a conversationList notification.
type ConversationSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	LastModified string `json:"lastModified"`
	MessageCount int    `json:"messageCount"`
}

// TranscriptMessage is one message of a conversationLoaded notification.
type TranscriptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Notification is the outbound envelope. Fields beyond Kind are populated
// per kind.
type Notification struct {
	Kind NotificationKind `json:"type"`

	// responseChunk
	Text       string `json:"text,omitempty"`
	IsComplete bool   `json:"isComplete,omitempty"`

	// toast
	Level   ToastLevel `json:"level,omitempty"`
	Message string     `json:"message,omitempty"`

	// conversationList
	Conversations []ConversationSummary `json:"conversations,omitempty"`

	// conversationLoaded
	ConversationID string              `json:"conversationId,omitempty"`
	Messages       []TranscriptMessage `json:"messages,omitempty"`

	// modelList
	Models []string `json:"models,omitempty"`

	// pullProgress
	ModelName string  `json:"modelName,omitempty"`
	Status    string  `json:"status,omitempty"`
	Percent   float64 `json:"percent,omitempty"`
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// Chunk builds a responseChunk notification.
func Chunk(text string, complete bool) Notification {
	return Notification{Kind: NoteResponseChunk, Text: text, IsComplete: complete}
}

// Toast builds a toast notification.
func Toast(level ToastLevel, message string) Notification {
	return Notification{Kind: NoteToast, Level: level, Message: message}
}

// =============================================================================
// BOUNDARY VALIDATION
// =============================================================================

// ParseCommand decodes and validates one command envelope. Unknown kinds and
// missing required fields are rejected here so handlers never see them.
func ParseCommand(raw []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return Command{}, fmt.Errorf("malformed command: %w", err)
	}
	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// Validate checks that the command's kind is known and its required fields
// are present.
func (c Command) Validate() error {
	switch c.Kind {
	case CmdSendMessage:
		if strings.TrimSpace(c.Text) == "" {
			return fmt.Errorf("sendMessage requires text")
		}
		if strings.TrimSpace(c.Model) == "" {
			return fmt.Errorf("sendMessage requires model")
		}
	case CmdLoadConversation, CmdDeleteConversation:
		if strings.TrimSpace(c.ConversationID) == "" {
			return fmt.Errorf("%s requires conversationId", c.Kind)
		}
	case CmdPullModel, CmdDeleteModel:
		if strings.TrimSpace(c.ModelName) == "" {
			return fmt.Errorf("%s requires modelName", c.Kind)
		}
	case CmdInsertText:
		if c.Text == "" {
			return fmt.Errorf("insertText requires text")
		}
	case CmdNewConversation, CmdListConversations, CmdClearHistory, CmdListModels:
		// No payload.
	case "":
		return fmt.Errorf("missing command kind")
	default:
		return fmt.Errorf("unknown command kind %q", c.Kind)
	}
	return nil
}
