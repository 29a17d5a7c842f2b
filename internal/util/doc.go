// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

// Package util provides small helpers shared across localseek.
//
// It contains the crash-safe file writer used by every persistence path
// (AtomicWriteFile) and the rune-safe string helpers used for titles and
// list rendering.
package util
