// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

// Package bridge dispatches validated presentation-layer commands to the
// chat session, conversation store, and model client.
package bridge
