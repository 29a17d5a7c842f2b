// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

// Package session orchestrates chat turns: busy admission control, optional
// knowledge base augmentation of the outgoing message, streamed relay of
// model output through a batching buffer, and persistence of both turns at
// the stream boundary.
package session
