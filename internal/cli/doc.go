// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

// Package cli parses command line arguments and implements the non-TUI
// subcommands: indexing, session listing, model management, and usage stats.
package cli
