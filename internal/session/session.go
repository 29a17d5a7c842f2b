// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hariharen9/localseek/internal/knowledge"
	"github.com/hariharen9/localseek/internal/ollama"
	"github.com/hariharen9/localseek/internal/protocol"
	"github.com/hariharen9/localseek/internal/storage"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrBusy means a turn is already in flight.
	ErrBusy = errors.New("a response is already being generated")

	// ErrClosed means the session has been closed.
	ErrClosed = errors.New("session is closed")
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Notifier receives outbound notifications for the presentation layer.
type Notifier interface {
	Notify(n protocol.Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(n protocol.Notification)

func (f NotifierFunc) Notify(n protocol.Notification) { f(n) }

// UsageRecorder records per-turn usage. Implementations must never fail a
// turn; errors are theirs to log.
type UsageRecorder interface {
	RecordTurn(conversationID, model string, promptTokens, completionTokens int, duration, timeToFirstToken time.Duration)
}

// =============================================================================
// SESSION
// =============================================================================

// Options configures a Session.
type Options struct {
	Store         *storage.Store
	Knowledge     *knowledge.Manager
	Client        *ollama.Client
	Notifier      Notifier
	Usage         UsageRecorder // optional
	KnowledgePath string        // empty disables augmentation
}

// Session orchestrates one chat surface: a working message history, busy
// admission control, optional retrieval augmentation, and the streamed relay
// of model output. Create one per surface; it is not a singleton.
type Session struct {
	store         *storage.Store
	knowledge     *knowledge.Manager
	client        *ollama.Client
	notifier      Notifier
	usage         UsageRecorder
	knowledgePath string

	mu       sync.Mutex
	history  []ollama.Message
	busy     bool
	disposed bool
}

// New creates a Session. Store, Client, and Notifier are required.
func New(opts Options) *Session {
	return &Session{
		store:         opts.Store,
		knowledge:     opts.Knowledge,
		client:        opts.Client,
		notifier:      opts.Notifier,
		usage:         opts.Usage,
		knowledgePath: opts.KnowledgePath,
	}
}

func (s *Session) notify(n protocol.Notification) {
	s.mu.Lock()
	gone := s.disposed
	s.mu.Unlock()
	if gone {
		return
	}
	s.notifier.Notify(n)
}

// =============================================================================
// TURN SUBMISSION
// =============================================================================

// Submit runs one chat turn: persists the user message, streams the model's
// reply through the relay buffer, and persists the assistant message at the
// stream boundary. Returns ErrBusy without side effects when a turn is
// already in flight. Blocks until the turn completes; callers wanting
// concurrency run it in a goroutine.
//
// When useAugmentation is set and the knowledge base is ready, only the
// outgoing copy of the message is wrapped with context; the stored message
// and working history keep the raw text.
func (s *Session) Submit(ctx context.Context, text, model string, useAugmentation bool) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.busy = true

	conversationID := s.store.CurrentID()
	if conversationID == "" {
		conversationID = s.store.NewConversationID()
	}

	s.history = append(s.history, ollama.Message{Role: "user", Content: text})
	outgoing := make([]ollama.Message, len(s.history))
	copy(outgoing, s.history)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	s.store.AppendMessage(conversationID, storage.Message{Role: "user", Content: text})
	if useAugmentation {
		outgoing[len(outgoing)-1].Content = s.augment(text)
	}

	relay := NewRelayBuffer()
	var (
		reply      strings.Builder
		started    = time.Now()
		firstToken time.Duration
		usage      ollama.StreamChunk
	)

	err := s.client.ChatStream(ctx, model, outgoing, func(chunk ollama.StreamChunk) {
		if chunk.Done {
			usage = chunk
			return
		}
		if chunk.Content == "" {
			return
		}
		if reply.Len() == 0 {
			firstToken = time.Since(started)
		}
		reply.WriteString(chunk.Content)
		if out, ok := relay.Add(chunk.Content); ok {
			s.notify(protocol.Chunk(out, false))
		}
	})

	if err != nil {
		// The user turn stays; the assistant turn is never partially
		// persisted. The completion signal keeps the UI from wedging.
		log.Error().Err(err).Str("model", model).Msg("chat stream failed")
		s.notify(protocol.Toast(protocol.ToastError, errorMessage(err)))
		s.notify(protocol.Chunk("", true))
		return err
	}

	if out, ok := relay.Flush(); ok {
		s.notify(protocol.Chunk(out, false))
	}

	if full := reply.String(); full != "" {
		s.mu.Lock()
		s.history = append(s.history, ollama.Message{Role: "assistant", Content: full})
		s.mu.Unlock()
		s.store.AppendMessage(conversationID, storage.Message{Role: "assistant", Content: full})
	}

	if s.usage != nil {
		s.usage.RecordTurn(conversationID, model, usage.PromptTokens, usage.CompletionTokens, time.Since(started), firstToken)
	}

	s.notify(protocol.Chunk("", true))
	return nil
}

// augment wraps the outgoing text with the knowledge base blob. Misconfigured
// or unindexed knowledge bases degrade to the raw text with a warning toast.
func (s *Session) augment(text string) string {
	if strings.TrimSpace(s.knowledgePath) == "" {
		s.notify(protocol.Toast(protocol.ToastWarning, "Knowledge base path is not configured."))
		return text
	}
	results := s.knowledge.Search(text, s.knowledgePath)
	if len(results) == 0 {
		s.notify(protocol.Toast(protocol.ToastWarning, "Knowledge base is not indexed yet. Run indexing first."))
		return text
	}
	return "Context:\n" + results[0].Content + "\n---\nUser Query:\n" + text
}

func errorMessage(err error) string {
	switch {
	case ollama.IsNotRunning(err):
		return "Cannot reach Ollama. Is the server running?"
	case ollama.IsModelNotFound(err):
		return "Model not found. Pull it first."
	case errors.Is(err, context.Canceled):
		return "Generation cancelled."
	default:
		return "Chat failed: " + err.Error()
	}
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

// NewConversation clears the working history and reserves a fresh
// conversation id. Rejected while a turn is in flight.
func (s *Session) NewConversation() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.history = nil
	s.mu.Unlock()

	s.store.NewConversationID()
	s.notify(protocol.Notification{Kind: protocol.NoteChatCleared})
	return nil
}

// Load replaces the working history with a stored conversation. Unknown ids
// are a no-op. Rejected while a turn is in flight so an in-flight reply can
// never be appended onto a freshly loaded transcript.
func (s *Session) Load(id string) error {
	stored := s.store.History(id)
	if stored == nil {
		return nil
	}
	loaded := make([]ollama.Message, 0, len(stored))
	messages := make([]protocol.TranscriptMessage, 0, len(stored))
	for _, m := range stored {
		loaded = append(loaded, ollama.Message{Role: m.Role, Content: m.Content})
		messages = append(messages, protocol.TranscriptMessage{Role: m.Role, Content: m.Content})
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.history = loaded
	s.mu.Unlock()

	s.store.SetCurrent(id)
	s.notify(protocol.Notification{
		Kind:           protocol.NoteConversationLoaded,
		ConversationID: id,
		Messages:       messages,
	})
	return nil
}

// Conversations lists this workspace's conversations, most recent first,
// with human-readable modification times.
func (s *Session) Conversations() []protocol.ConversationSummary {
	list := s.store.List()
	out := make([]protocol.ConversationSummary, 0, len(list))
	for _, conv := range list {
		out = append(out, protocol.ConversationSummary{
			ID:           conv.ID,
			Title:        conv.Title,
			LastModified: storage.FormatRelativeTime(conv.LastModified),
			MessageCount: conv.MessageCount,
		})
	}
	return out
}

// History returns a copy of the working message history.
func (s *Session) History() []ollama.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ollama.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Busy reports whether a turn is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Close marks the session disposed. No notification is delivered after this
// returns; an in-flight stream may keep running but talks to no one.
func (s *Session) Close() {
	s.mu.Lock()
	s.disposed = true
	s.mu.Unlock()
}
