// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hariharen9/localseek/internal/util"
)

const (
	// MaxConversations bounds the number of retained conversations; the
	// oldest record (by LastModified) is evicted one at a time as inserts
	// exceed the cap.
	MaxConversations = 50

	// HistoryFile is the single JSON document holding all conversations.
	HistoryFile = "localseek-chat-history.json"
)

// =============================================================================
// TYPES
// =============================================================================

// Message is one turn within a conversation.
type Message struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is a persisted conversation record.
type Conversation struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Messages        []Message `json:"messages"`
	Created         time.Time `json:"created"`
	LastModified    time.Time `json:"lastModified"`
	WorkspaceFolder string    `json:"workspaceScope,omitempty"`
	MessageCount    int       `json:"messageCount"`
}

// historyDocument is the on-disk layout of the history file.
type historyDocument struct {
	Conversations []*Conversation `json:"conversations"`
}

// =============================================================================
// STORE
// =============================================================================

// Store owns all conversation records. Every mutating call rewrites the
// history document in full; a failed write is logged and swallowed, leaving
// the in-memory state authoritative for the rest of the process.
type Store struct {
	mu            sync.Mutex
	path          string
	workspace     string
	conversations map[string]*Conversation
	currentID     string
}

// NewStore creates a store backed by dataDir/localseek-chat-history.json,
// scoped to the given workspace identity. A missing or corrupted history
// file is not an error; the store starts fresh.
func NewStore(dataDir, workspace string) *Store {
	s := &Store{
		path:          filepath.Join(dataDir, HistoryFile),
		workspace:     workspace,
		conversations: make(map[string]*Conversation),
	}
	s.load()
	return s
}

// load reads the history document from disk. Failures start fresh.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", s.path).Msg("could not read chat history, starting fresh")
		}
		return
	}

	var doc historyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("chat history corrupted, starting fresh")
		return
	}

	for _, conv := range doc.Conversations {
		if conv != nil && conv.ID != "" {
			s.conversations[conv.ID] = conv
		}
	}
}

// persist writes the full history document. Called with the lock held.
// Write errors are logged, never returned: memory stays authoritative.
func (s *Store) persist() {
	doc := historyDocument{Conversations: make([]*Conversation, 0, len(s.conversations))}
	for _, conv := range s.conversations {
		doc.Conversations = append(doc.Conversations, conv)
	}
	// Stable file contents regardless of map iteration order.
	sort.Slice(doc.Conversations, func(i, j int) bool {
		return doc.Conversations[i].ID < doc.Conversations[j].ID
	})

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal chat history")
		return
	}
	if err := util.AtomicWriteFile(s.path, data, 0644); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("failed to save chat history")
	}
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

// NewConversationID reserves a fresh conversation id and makes it current.
// No record is created until the first message is appended.
func (s *Store) NewConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := generateConversationID()
	s.currentID = id
	return id
}

// CurrentID returns the current conversation id, or "" when none is set.
func (s *Store) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// SetCurrent updates the current conversation pointer. No-op when the
// conversation does not exist.
func (s *Store) SetCurrent(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; ok {
		s.currentID = id
	}
}

// AppendMessage appends a message to the conversation with the given id,
// creating the record lazily on first append. The message timestamp is
// assigned here; any caller-supplied timestamp is overwritten. When the
// store grows past MaxConversations, the single record with the oldest
// LastModified is evicted. The history document is persisted before
// returning.
func (s *Store) AppendMessage(id string, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	conv, ok := s.conversations[id]
	if !ok {
		title := "New Conversation"
		if msg.Role == "user" {
			title = generateTitle(msg.Content)
		}
		conv = &Conversation{
			ID:              id,
			Title:           title,
			Created:         now,
			WorkspaceFolder: s.workspace,
		}
		s.conversations[id] = conv
	}

	msg.Timestamp = now
	conv.Messages = append(conv.Messages, msg)
	conv.LastModified = now
	conv.MessageCount = len(conv.Messages)

	if len(s.conversations) > MaxConversations {
		s.evictOldestLocked()
	}

	s.persist()
}

// evictOldestLocked removes the record with the oldest LastModified.
// Called with the lock held.
func (s *Store) evictOldestLocked() {
	var oldest *Conversation
	for _, conv := range s.conversations {
		if oldest == nil || conv.LastModified.Before(oldest.LastModified) {
			oldest = conv
		}
	}
	if oldest != nil {
		delete(s.conversations, oldest.ID)
		if s.currentID == oldest.ID {
			s.currentID = ""
		}
	}
}

// =============================================================================
// QUERIES
// =============================================================================

// Get returns a snapshot of the conversation with the given id, or nil.
// The snapshot does not alias store state; later appends are not visible
// through it.
func (s *Store) Get(id string) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil
	}
	out := *conv
	out.Messages = make([]Message, len(conv.Messages))
	copy(out.Messages, conv.Messages)
	return &out
}

// History returns the messages of a conversation, or nil when it does not
// exist.
func (s *Store) History(id string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil
	}
	out := make([]Message, len(conv.Messages))
	copy(out, conv.Messages)
	return out
}

// List returns the conversations belonging to the store's workspace,
// most recently modified first.
func (s *Store) List() []*Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Conversation
	for _, conv := range s.conversations {
		if conv.WorkspaceFolder == s.workspace {
			out = append(out, conv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastModified.After(out[j].LastModified)
	})
	return out
}

// Len returns the total number of stored conversations across workspaces.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a conversation. When it was current, the current pointer
// is cleared. Persists.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conversations, id)
	if s.currentID == id {
		s.currentID = ""
	}
	s.persist()
}

// Clear removes all conversations and clears the current pointer. Persists.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = make(map[string]*Conversation)
	s.currentID = ""
	s.persist()
}

// =============================================================================
// TITLE DERIVATION
// =============================================================================

// generateTitle derives a conversation title from the first user message:
// collapse whitespace, keep verbatim up to 50 runes, otherwise cut at 47
// and back up to the last word boundary when that boundary is more than 30
// runes in.
func generateTitle(firstMessage string) string {
	cleaned := util.CollapseWhitespace(firstMessage)

	runes := []rune(cleaned)
	if len(runes) <= 50 {
		return cleaned
	}

	truncated := string(runes[:47])
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > 30 {
		return truncated[:lastSpace] + "..."
	}
	return truncated + "..."
}

// =============================================================================
// RELATIVE TIME
// =============================================================================

// FormatRelativeTime renders an instant relative to now: "Just now",
// "N minutes ago", "N hours ago", "Yesterday", "N days ago", or a calendar
// date once more than a week old.
func FormatRelativeTime(t time.Time) string {
	diff := time.Since(t)
	days := int(diff.Hours() / 24)
	hours := int(diff.Hours())
	minutes := int(diff.Minutes())

	switch {
	case days > 7:
		return t.Format("1/2/2006")
	case days > 1:
		return strconv.Itoa(days) + " days ago"
	case days == 1:
		return "Yesterday"
	case hours > 1:
		return strconv.Itoa(hours) + " hours ago"
	case minutes > 1:
		return strconv.Itoa(minutes) + " minutes ago"
	default:
		return "Just now"
	}
}

// =============================================================================
// ID GENERATION
// =============================================================================

// generateConversationID creates a collision-resistant id: a base36
// timestamp prefix plus a random suffix.
func generateConversationID() string {
	prefix := strconv.FormatInt(time.Now().UnixMilli(), 36)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return prefix + suffix
}
