// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

// Package chat provides the Bubble Tea chat surface. It speaks the
// command/notification protocol through the bridge dispatcher: key presses
// become commands, and notifications arrive as Bubble Tea messages through
// the Forwarder.
package chat
