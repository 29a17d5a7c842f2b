// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

package chat

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hariharen9/localseek/internal/protocol"
)

// =============================================================================
// MESSAGES
// =============================================================================

// NotificationMsg wraps a protocol notification for the Bubble Tea loop.
type NotificationMsg struct {
	Notification protocol.Notification
}

// toastExpiredMsg clears a transient toast after its display window.
type toastExpiredMsg struct {
	seq int
}

// dispatchDoneMsg reports a finished dispatcher call. Errors already reached
// the user as toasts; the message only releases UI state.
type dispatchDoneMsg struct {
	err error
}

// =============================================================================
// NOTIFICATION FORWARDER
// =============================================================================

// Forwarder bridges session notifications into the Bubble Tea program. It is
// created before the program exists and attached once the program runs;
// notifications sent before Attach are dropped, matching a UI that is not
// yet on screen.
type Forwarder struct {
	mu      sync.Mutex
	program *tea.Program
}

// NewForwarder creates a detached Forwarder.
func NewForwarder() *Forwarder {
	return &Forwarder{}
}

// Attach connects the running program.
func (f *Forwarder) Attach(p *tea.Program) {
	f.mu.Lock()
	f.program = p
	f.mu.Unlock()
}

// Notify implements session.Notifier.
func (f *Forwarder) Notify(n protocol.Notification) {
	f.mu.Lock()
	p := f.program
	f.mu.Unlock()
	if p != nil {
		p.Send(NotificationMsg{Notification: n})
	}
}

// expireToast schedules a toast teardown.
func expireToast(seq int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}
