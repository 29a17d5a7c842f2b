// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

package session

import (
	"strings"
	"sync"
)

// =============================================================================
// RELAY BUFFER
// =============================================================================

// relayFlushSize is the buffered-character threshold above which a flush
// happens even without a newline in the incoming chunk.
const relayFlushSize = 50

// RelayBuffer batches streamed tokens before they reach the presentation
// layer. A flush happens when the accumulated text exceeds relayFlushSize
// characters or the incoming chunk contains a newline; Flush drains whatever
// remains at end of stream.
//
// Thread-safety: guarded by a mutex since streaming runs in its own goroutine.
type RelayBuffer struct {
	mu     sync.Mutex
	buffer strings.Builder
}

// NewRelayBuffer creates an empty relay buffer.
func NewRelayBuffer() *RelayBuffer {
	return &RelayBuffer{}
}

// Add appends a chunk and returns the batched text when a flush is due, with
// ok reporting whether anything was released.
func (rb *RelayBuffer) Add(chunk string) (string, bool) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.buffer.WriteString(chunk)
	if rb.buffer.Len() > relayFlushSize || strings.Contains(chunk, "\n") {
		out := rb.buffer.String()
		rb.buffer.Reset()
		return out, true
	}
	return "", false
}

// Flush drains the remaining text unconditionally.
func (rb *RelayBuffer) Flush() (string, bool) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.buffer.Len() == 0 {
		return "", false
	}
	out := rb.buffer.String()
	rb.buffer.Reset()
	return out, true
}

// Len reports the currently buffered character count.
func (rb *RelayBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.buffer.Len()
}
