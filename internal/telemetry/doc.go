// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

// Package telemetry records per-turn token and latency usage in a local
// SQLite database. Everything here is best effort: a failed write logs a
// warning and the chat turn proceeds untouched.
package telemetry
