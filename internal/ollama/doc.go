// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

// Package ollama provides the HTTP client for communicating with the Ollama API.
//
// The client covers the four operations localseek consumes: model listing,
// streaming chat completion, model download with progress, and model
// deletion. Streaming responses are NDJSON; StreamReader parses them line by
// line and delivers typed chunks through a callback or channel.
//
// Errors are categorized through ClientError; use the sentinel values
// (ErrNotRunning, ErrTimeout, ErrModelNotFound) with errors.Is, or the
// IsNotRunning / IsModelNotFound helpers.
package ollama
