// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

package session

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hariharen9/localseek/internal/knowledge"
	"github.com/hariharen9/localseek/internal/ollama"
	"github.com/hariharen9/localseek/internal/protocol"
	"github.com/hariharen9/localseek/internal/storage"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

// capturingNotifier records notifications in arrival order.
type capturingNotifier struct {
	mu    sync.Mutex
	notes []protocol.Notification
}

func (c *capturingNotifier) Notify(n protocol.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = append(c.notes, n)
}

func (c *capturingNotifier) all() []protocol.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.Notification, len(c.notes))
	copy(out, c.notes)
	return out
}

func (c *capturingNotifier) streamedText() string {
	var b strings.Builder
	for _, n := range c.all() {
		if n.Kind == protocol.NoteResponseChunk {
			b.WriteString(n.Text)
		}
	}
	return b.String()
}

func (c *capturingNotifier) toasts(level protocol.ToastLevel) []string {
	var out []string
	for _, n := range c.all() {
		if n.Kind == protocol.NoteToast && n.Level == level {
			out = append(out, n.Message)
		}
	}
	return out
}

// chatServer streams the given deltas as NDJSON for any chat request and
// records the request bodies it saw.
type chatServer struct {
	srv *httptest.Server

	mu       sync.Mutex
	requests []ollama.ChatRequest
}

func newChatServer(t *testing.T, deltas []string) *chatServer {
	t.Helper()
	cs := &chatServer{}
	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req ollama.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		cs.mu.Lock()
		cs.requests = append(cs.requests, req)
		cs.mu.Unlock()

		w.Header().Set("Content-Type", "application/x-ndjson")
		bw := bufio.NewWriter(w)
		for _, delta := range deltas {
			line, _ := json.Marshal(map[string]any{
				"model":   req.Model,
				"message": map[string]string{"role": "assistant", "content": delta},
				"done":    false,
			})
			bw.Write(line)
			bw.WriteByte('\n')
		}
		final, _ := json.Marshal(map[string]any{
			"model":             req.Model,
			"message":           map[string]string{"role": "assistant", "content": ""},
			"done":              true,
			"done_reason":       "stop",
			"prompt_eval_count": 12,
			"eval_count":        34,
		})
		bw.Write(final)
		bw.WriteByte('\n')
		bw.Flush()
	}))
	t.Cleanup(cs.srv.Close)
	return cs
}

func (cs *chatServer) lastRequest(t *testing.T) ollama.ChatRequest {
	t.Helper()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	require.NotEmpty(t, cs.requests)
	return cs.requests[len(cs.requests)-1]
}

type fixture struct {
	session  *Session
	store    *storage.Store
	notifier *capturingNotifier
	server   *chatServer
	dataDir  string
}

func newFixture(t *testing.T, deltas []string, knowledgePath string) *fixture {
	t.Helper()
	dataDir := t.TempDir()
	store := storage.NewStore(dataDir, "ws")
	notifier := &capturingNotifier{}
	server := newChatServer(t, deltas)
	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: server.srv.URL})

	sess := New(Options{
		Store:         store,
		Knowledge:     knowledge.NewManager(dataDir),
		Client:        client,
		Notifier:      notifier,
		KnowledgePath: knowledgePath,
	})
	return &fixture{session: sess, store: store, notifier: notifier, server: server, dataDir: dataDir}
}

// =============================================================================
// TURN TESTS
// =============================================================================

func TestSubmitEndToEnd(t *testing.T) {
	f := newFixture(t, []string{"4"}, "")

	err := f.session.Submit(context.Background(), "What is 2+2?", "llama3.2", false)
	require.NoError(t, err)

	assert.Equal(t, "4", f.notifier.streamedText())

	notes := f.notifier.all()
	require.NotEmpty(t, notes)
	last := notes[len(notes)-1]
	assert.Equal(t, protocol.NoteResponseChunk, last.Kind)
	assert.True(t, last.IsComplete)

	// Both turns persisted at the boundary.
	id := f.store.CurrentID()
	conv := f.store.Get(id)
	require.NotNil(t, conv)
	require.Equal(t, 2, conv.MessageCount)
	assert.Equal(t, "user", conv.Messages[0].Role)
	assert.Equal(t, "What is 2+2?", conv.Messages[0].Content)
	assert.Equal(t, "assistant", conv.Messages[1].Role)
	assert.Equal(t, "4", conv.Messages[1].Content)
	assert.Equal(t, "What is 2+2?", conv.Title)
}

func TestSubmitRelaysChunksInOrder(t *testing.T) {
	deltas := []string{"The answer", " is", " four.\n", "Because", " arithmetic."}
	f := newFixture(t, deltas, "")

	require.NoError(t, f.session.Submit(context.Background(), "why", "llama3.2", false))
	assert.Equal(t, strings.Join(deltas, ""), f.notifier.streamedText())
}

func TestSubmitBusyRejection(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	dataDir := t.TempDir()
	store := storage.NewStore(dataDir, "ws")
	notifier := &capturingNotifier{}
	sess := New(Options{
		Store:     store,
		Knowledge: knowledge.NewManager(dataDir),
		Client:    ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: srv.URL}),
		Notifier:  notifier,
	})

	done := make(chan error, 1)
	go func() {
		done <- sess.Submit(context.Background(), "first", "llama3.2", false)
	}()

	// Wait for the first submission to take the busy flag.
	require.Eventually(t, sess.Busy, time.Second, time.Millisecond)

	err := sess.Submit(context.Background(), "second", "llama3.2", false)
	assert.ErrorIs(t, err, ErrBusy)

	// The rejected turn changed nothing: only the first user message exists.
	conv := store.Get(store.CurrentID())
	require.NotNil(t, conv)
	assert.Equal(t, 1, conv.MessageCount)
	assert.Equal(t, "first", conv.Messages[0].Content)

	close(release)
	<-done
}

func TestSubmitStreamErrorKeepsUserTurn(t *testing.T) {
	f := newFixture(t, nil, "")
	f.server.srv.Close()

	err := f.session.Submit(context.Background(), "hello", "llama3.2", false)
	require.Error(t, err)

	// Error toast plus completion signal so the UI never wedges.
	assert.NotEmpty(t, f.notifier.toasts(protocol.ToastError))
	notes := f.notifier.all()
	last := notes[len(notes)-1]
	assert.Equal(t, protocol.NoteResponseChunk, last.Kind)
	assert.True(t, last.IsComplete)

	conv := f.store.Get(f.store.CurrentID())
	require.NotNil(t, conv)
	require.Equal(t, 1, conv.MessageCount)
	assert.Equal(t, "user", conv.Messages[0].Role)

	// Session is idle again.
	assert.False(t, f.session.Busy())
}

// =============================================================================
// AUGMENTATION TESTS
// =============================================================================

func TestAugmentationWrapsOutgoingOnly(t *testing.T) {
	kbDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(kbDir, "facts.md"), []byte("water boils at 100C"), 0644))

	f := newFixture(t, []string{"ok"}, kbDir)
	mgr := knowledge.NewManager(f.dataDir)
	_, err := mgr.Index(context.Background(), kbDir, nil)
	require.NoError(t, err)

	require.NoError(t, f.session.Submit(context.Background(), "boiling point?", "llama3.2", true))

	sent := f.server.lastRequest(t)
	require.NotEmpty(t, sent.Messages)
	outgoing := sent.Messages[len(sent.Messages)-1].Content
	assert.True(t, strings.HasPrefix(outgoing, "Context:\n"))
	assert.Contains(t, outgoing, "water boils at 100C")
	assert.True(t, strings.HasSuffix(outgoing, "User Query:\nboiling point?"))

	// The stored message and working history keep the raw text.
	conv := f.store.Get(f.store.CurrentID())
	assert.Equal(t, "boiling point?", conv.Messages[0].Content)
	assert.Equal(t, "boiling point?", f.session.History()[0].Content)
}

func TestAugmentationUnsetPathDegrades(t *testing.T) {
	f := newFixture(t, []string{"ok"}, "")

	require.NoError(t, f.session.Submit(context.Background(), "hi", "llama3.2", true))

	assert.NotEmpty(t, f.notifier.toasts(protocol.ToastWarning))
	sent := f.server.lastRequest(t)
	assert.Equal(t, "hi", sent.Messages[len(sent.Messages)-1].Content)
}

func TestAugmentationUnindexedDegrades(t *testing.T) {
	f := newFixture(t, []string{"ok"}, t.TempDir())

	require.NoError(t, f.session.Submit(context.Background(), "hi", "llama3.2", true))

	warnings := f.notifier.toasts(protocol.ToastWarning)
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0], "not indexed")
	sent := f.server.lastRequest(t)
	assert.Equal(t, "hi", sent.Messages[len(sent.Messages)-1].Content)
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestNewConversationResetsHistory(t *testing.T) {
	f := newFixture(t, []string{"pong"}, "")

	require.NoError(t, f.session.Submit(context.Background(), "ping", "llama3.2", false))
	firstID := f.store.CurrentID()
	require.Len(t, f.session.History(), 2)

	require.NoError(t, f.session.NewConversation())
	assert.Empty(t, f.session.History())
	assert.NotEqual(t, firstID, f.store.CurrentID())

	notes := f.notifier.all()
	assert.Equal(t, protocol.NoteChatCleared, notes[len(notes)-1].Kind)

	// The next turn lands in a fresh conversation.
	require.NoError(t, f.session.Submit(context.Background(), "again", "llama3.2", false))
	assert.NotEqual(t, firstID, f.store.CurrentID())
	assert.Equal(t, 2, f.store.Len())
}

func TestLoadRestoresTranscript(t *testing.T) {
	f := newFixture(t, []string{"pong"}, "")
	require.NoError(t, f.session.Submit(context.Background(), "ping", "llama3.2", false))
	id := f.store.CurrentID()

	require.NoError(t, f.session.NewConversation())
	require.Empty(t, f.session.History())

	require.NoError(t, f.session.Load(id))
	history := f.session.History()
	require.Len(t, history, 2)
	assert.Equal(t, "ping", history[0].Content)
	assert.Equal(t, "pong", history[1].Content)
	assert.Equal(t, id, f.store.CurrentID())

	notes := f.notifier.all()
	last := notes[len(notes)-1]
	assert.Equal(t, protocol.NoteConversationLoaded, last.Kind)
	assert.Equal(t, id, last.ConversationID)
	require.Len(t, last.Messages, 2)
}

func TestLoadUnknownIDIsNoop(t *testing.T) {
	f := newFixture(t, []string{"pong"}, "")
	require.NoError(t, f.session.Submit(context.Background(), "ping", "llama3.2", false))

	before := len(f.notifier.all())
	require.NoError(t, f.session.Load("no-such-id"))
	assert.Len(t, f.notifier.all(), before)
	assert.Len(t, f.session.History(), 2)
}

func TestLoadRejectedWhileStreaming(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		line, _ := json.Marshal(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "slow answer"},
			"done":    false,
		})
		w.Write(append(line, '\n'))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-release
		final, _ := json.Marshal(map[string]any{
			"message":     map[string]string{"role": "assistant", "content": ""},
			"done":        true,
			"done_reason": "stop",
		})
		w.Write(append(final, '\n'))
	}))
	t.Cleanup(srv.Close)

	dataDir := t.TempDir()
	store := storage.NewStore(dataDir, "ws")
	notifier := &capturingNotifier{}
	sess := New(Options{
		Store:     store,
		Knowledge: knowledge.NewManager(dataDir),
		Client:    ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: srv.URL}),
		Notifier:  notifier,
	})

	oldID := store.NewConversationID()
	store.AppendMessage(oldID, storage.Message{Role: "user", Content: "old question"})
	store.AppendMessage(oldID, storage.Message{Role: "assistant", Content: "old answer"})
	require.NoError(t, sess.NewConversation())

	done := make(chan error, 1)
	go func() {
		done <- sess.Submit(context.Background(), "new question", "llama3.2", false)
	}()
	require.Eventually(t, sess.Busy, time.Second, time.Millisecond)

	assert.ErrorIs(t, sess.Load(oldID), ErrBusy)

	close(release)
	require.NoError(t, <-done)

	// The in-flight turn finished on its own history, nothing interleaved.
	history := sess.History()
	require.Len(t, history, 2)
	assert.Equal(t, "new question", history[0].Content)
	assert.Equal(t, "slow answer", history[1].Content)
	assert.NotEqual(t, oldID, store.CurrentID())

	// Once idle the load goes through.
	require.NoError(t, sess.Load(oldID))
	assert.Equal(t, oldID, store.CurrentID())
	loaded := sess.History()
	require.Len(t, loaded, 2)
	assert.Equal(t, "old question", loaded[0].Content)
}

func TestConversations(t *testing.T) {
	f := newFixture(t, []string{"pong"}, "")
	require.NoError(t, f.session.Submit(context.Background(), "ping", "llama3.2", false))

	list := f.session.Conversations()
	require.Len(t, list, 1)
	assert.Equal(t, "ping", list[0].Title)
	assert.Equal(t, 2, list[0].MessageCount)
	assert.Equal(t, "Just now", list[0].LastModified)
}

func TestCloseSilencesNotifications(t *testing.T) {
	f := newFixture(t, []string{"pong"}, "")
	f.session.Close()

	err := f.session.Submit(context.Background(), "ping", "llama3.2", false)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, f.session.NewConversation(), ErrClosed)
	assert.Empty(t, f.notifier.all())
}

// =============================================================================
// RELAY BUFFER TESTS
// =============================================================================

func TestRelayBufferHoldsSmallChunks(t *testing.T) {
	rb := NewRelayBuffer()
	for i := 0; i < 5; i++ {
		if out, ok := rb.Add("ab"); ok {
			t.Fatalf("unexpected flush: %q", out)
		}
	}
	if rb.Len() != 10 {
		t.Errorf("Len = %d, want 10", rb.Len())
	}
}

func TestRelayBufferFlushesOverThreshold(t *testing.T) {
	rb := NewRelayBuffer()
	big := strings.Repeat("x", relayFlushSize+1)
	out, ok := rb.Add(big)
	if !ok || out != big {
		t.Errorf("Add(big) = %q, %v", out, ok)
	}
	if rb.Len() != 0 {
		t.Error("buffer should be empty after flush")
	}
}

func TestRelayBufferFlushesOnNewline(t *testing.T) {
	rb := NewRelayBuffer()
	rb.Add("hi")
	out, ok := rb.Add(" there\n")
	if !ok || out != "hi there\n" {
		t.Errorf("Add = %q, %v", out, ok)
	}
}

func TestRelayBufferFinalFlush(t *testing.T) {
	rb := NewRelayBuffer()
	rb.Add("tail")
	out, ok := rb.Flush()
	if !ok || out != "tail" {
		t.Errorf("Flush = %q, %v", out, ok)
	}
	if _, ok := rb.Flush(); ok {
		t.Error("second flush should release nothing")
	}
}

func TestRelayBufferPreservesTotalText(t *testing.T) {
	rb := NewRelayBuffer()
	chunks := []string{"one ", "two\n", "three ", strings.Repeat("x", 60), " tail"}
	var emitted strings.Builder
	for _, c := range chunks {
		if out, ok := rb.Add(c); ok {
			emitted.WriteString(out)
		}
	}
	if out, ok := rb.Flush(); ok {
		emitted.WriteString(out)
	}
	want := strings.Join(chunks, "")
	if emitted.String() != want {
		t.Errorf("emitted %q, want %q", emitted.String(), want)
	}
}

