// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

// Package storage provides conversation persistence for localseek.
//
// All conversations live in a single JSON history document that is rewritten
// in full on every mutation via an atomic file write. The store keeps at most
// MaxConversations records, evicting the least recently modified one as
// inserts exceed the cap. Conversation records are created lazily: reserving
// an id costs nothing until the first message is appended.
//
// Persistence failures are logged and swallowed; the in-memory state remains
// the source of truth for the process lifetime.
package storage
