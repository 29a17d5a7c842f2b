// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

// Package protocol defines the closed command and notification envelopes
// exchanged with the presentation layer, and validates inbound commands at
// the boundary.
package protocol
