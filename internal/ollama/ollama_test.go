// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("Hello")

	if msg.Role != "user" {
		t.Errorf("Role = %q, want 'user'", msg.Role)
	}
	if msg.Content != "Hello" {
		t.Errorf("Content = %q, want 'Hello'", msg.Content)
	}
}

func TestNewAssistantMessage(t *testing.T) {
	msg := NewAssistantMessage("Response")

	if msg.Role != "assistant" {
		t.Errorf("Role = %q, want 'assistant'", msg.Role)
	}
	if msg.Content != "Response" {
		t.Errorf("Content = %q, want 'Response'", msg.Content)
	}
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestClientErrorIs(t *testing.T) {
	err := &ClientError{Type: ErrTypeNotRunning, Message: "connection refused"}
	if !errors.Is(err, ErrNotRunning) {
		t.Error("expected errors.Is to match ErrNotRunning by type")
	}
	if errors.Is(err, ErrModelNotFound) {
		t.Error("errors.Is should not match a different type")
	}
	if !IsNotRunning(err) {
		t.Error("IsNotRunning should be true")
	}
}

// =============================================================================
// MODEL OPERATION TESTS
// =============================================================================

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(ListModelsResponse{
			Models: []ModelInfo{
				{Name: "llama3.1:8b", Size: 4 * 1024 * 1024 * 1024},
				{Name: "qwen2.5:7b", Size: 5 * 1024 * 1024 * 1024},
			},
		})
	}))
	defer server.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: server.URL})
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("got %d models, want 2", len(models))
	}
	if models[0].Name != "llama3.1:8b" {
		t.Errorf("first model = %q", models[0].Name)
	}
}

func TestListModelsNotRunning(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{BaseURL: "http://127.0.0.1:1"})
	_, err := client.ListModels(context.Background())
	if !IsNotRunning(err) {
		t.Errorf("expected not-running error, got %v", err)
	}
}

func TestDeleteModel(t *testing.T) {
	var gotName string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %q, want DELETE", r.Method)
		}
		var req DeleteRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotName = req.Name
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: server.URL})
	if err := client.DeleteModel(context.Background(), "old-model:7b"); err != nil {
		t.Fatalf("DeleteModel failed: %v", err)
	}
	if gotName != "old-model:7b" {
		t.Errorf("deleted name = %q", gotName)
	}
}

func TestDeleteModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: server.URL})
	err := client.DeleteModel(context.Background(), "missing")
	if !IsModelNotFound(err) {
		t.Errorf("expected model-not-found, got %v", err)
	}
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

// chatStreamServer returns a test server that streams the given deltas as
// NDJSON chat chunks followed by a done line.
func chatStreamServer(t *testing.T, deltas ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		for _, d := range deltas {
			line, _ := json.Marshal(map[string]any{
				"model":   "test-model",
				"message": map[string]string{"role": "assistant", "content": d},
				"done":    false,
			})
			w.Write(append(line, '\n'))
		}
		done, _ := json.Marshal(map[string]any{
			"model":             "test-model",
			"message":           map[string]string{"role": "assistant", "content": ""},
			"done":              true,
			"done_reason":       "stop",
			"prompt_eval_count": 12,
			"eval_count":        7,
		})
		w.Write(append(done, '\n'))
	}))
}

func TestChatStream(t *testing.T) {
	server := chatStreamServer(t, "Hel", "lo", " world")
	defer server.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: server.URL})

	var got strings.Builder
	var final StreamChunk
	err := client.ChatStream(context.Background(), "test-model", []Message{NewUserMessage("hi")}, func(chunk StreamChunk) {
		got.WriteString(chunk.Content)
		if chunk.Done {
			final = chunk
		}
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if got.String() != "Hello world" {
		t.Errorf("accumulated = %q, want %q", got.String(), "Hello world")
	}
	if !final.Done || final.DoneReason != "stop" {
		t.Errorf("final chunk = %+v", final)
	}
	if final.PromptTokens != 12 || final.CompletionTokens != 7 {
		t.Errorf("token counts = %d/%d", final.PromptTokens, final.CompletionTokens)
	}
}

func TestChatStreamServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "model requires more system memory"})
	}))
	defer server.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: server.URL})
	err := client.ChatStream(context.Background(), "big-model", nil, func(StreamChunk) {})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "system memory") {
		t.Errorf("error should carry the server message, got %v", err)
	}
}

func TestChatStreamChanDeliversError(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{BaseURL: "http://127.0.0.1:1"})
	ch := client.ChatStreamChan(context.Background(), "m", nil)

	var last StreamChunk
	for chunk := range ch {
		last = chunk
	}
	if last.Error == nil {
		t.Error("expected terminal chunk with Error set")
	}
}

// =============================================================================
// PULL TESTS
// =============================================================================

func TestPullModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pull" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		lines := []PullProgress{
			{Status: "pulling manifest"},
			{Status: "downloading", Total: 100, Completed: 40},
			{Status: "downloading", Total: 100, Completed: 100},
			{Status: "success"},
		}
		enc := json.NewEncoder(w)
		for _, l := range lines {
			enc.Encode(l)
		}
	}))
	defer server.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: server.URL})

	var statuses []string
	err := client.PullModel(context.Background(), "llama3.1:8b", func(p PullProgress) {
		statuses = append(statuses, p.Status)
	})
	if err != nil {
		t.Fatalf("PullModel failed: %v", err)
	}
	if len(statuses) != 4 || statuses[len(statuses)-1] != "success" {
		t.Errorf("statuses = %v", statuses)
	}
}

func TestPullModelError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "pull model manifest: file does not exist"})
	}))
	defer server.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: server.URL})
	err := client.PullModel(context.Background(), "nope", nil)
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("expected manifest error, got %v", err)
	}
}

func TestPullProgressPercent(t *testing.T) {
	p := PullProgress{Total: 200, Completed: 50}
	if p.Percent() != 25 {
		t.Errorf("Percent = %v, want 25", p.Percent())
	}
	unknown := PullProgress{Status: "verifying"}
	if unknown.Percent() != -1 {
		t.Errorf("Percent without total = %v, want -1", unknown.Percent())
	}
}

// =============================================================================
// FORMATTING TESTS
// =============================================================================

func TestFormatSize(t *testing.T) {
	m := ModelInfo{Size: 4 * 1024 * 1024 * 1024}
	if m.FormatSize() != "4.0 GB" {
		t.Errorf("FormatSize = %q, want %q", m.FormatSize(), "4.0 GB")
	}
	small := ModelInfo{Size: 512}
	if small.FormatSize() != "512.0 B" {
		t.Errorf("FormatSize = %q", small.FormatSize())
	}
}
