// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

// Package knowledge flattens a directory of text files into a single
// persisted blob and serves it back as chat context. One record per source
// path, keyed by an md5 of the path, replaced wholesale on every re-index.
package knowledge
