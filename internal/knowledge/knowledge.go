// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

package knowledge

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/hariharen9/localseek/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured means no knowledge base path has been set.
	ErrNotConfigured = errors.New("knowledge base path not configured")

	// ErrPathNotFound means the configured path does not exist.
	ErrPathNotFound = errors.New("knowledge base path not found")

	// ErrEmptyIndex means indexing found no usable files.
	ErrEmptyIndex = errors.New("no indexable files found")
)

// =============================================================================
// TYPES
// =============================================================================

// fileDelimiter separates file sections inside the flattened blob. Each
// indexed file contributes "\n\n--- <relpath> ---\n<content>".
const fileDelimiter = "\n\n--- "

// KnowledgeBase is the persisted index record for one source path.
type KnowledgeBase struct {
	Content           string    `json:"content"`
	LastUpdated       time.Time `json:"lastUpdated"`
	KnowledgeBasePath string    `json:"knowledgeBasePath"`

	// Files lists the relative paths that went into Content. Records written
	// by older builds lack it; Stats falls back to counting delimiters.
	Files []string `json:"files,omitempty"`
}

// SearchResult is a retrieval hit returned by Search.
type SearchResult struct {
	Content string
	Source  string
}

// Stats summarizes an index record.
type Stats struct {
	FileCount     int
	ContentLength int
	LastUpdated   time.Time
}

// ProgressFunc reports indexing progress: file current of total, by name.
type ProgressFunc func(current, total int, name string)

// indexableExtensions is the allow-list of file types worth flattening.
var indexableExtensions = map[string]bool{
	".md": true, ".txt": true, ".js": true, ".ts": true, ".py": true,
	".java": true, ".cpp": true, ".c": true, ".h": true, ".css": true,
	".html": true, ".json": true, ".xml": true, ".yml": true, ".yaml": true,
}

// skippedDirs are directory names never descended into.
var skippedDirs = map[string]bool{
	"node_modules": true,
	"__pycache__":  true,
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the persisted knowledge base records under a data directory.
type Manager struct {
	dataDir string
}

// NewManager creates a Manager persisting under dataDir.
func NewManager(dataDir string) *Manager {
	return &Manager{dataDir: dataDir}
}

// storageKey derives the record filename for a source path.
func storageKey(sourcePath string) string {
	sum := md5.Sum([]byte(sourcePath))
	return "knowledge_base_" + hex.EncodeToString(sum[:]) + ".json"
}

func (m *Manager) recordPath(sourcePath string) string {
	return filepath.Join(m.dataDir, storageKey(sourcePath))
}

// =============================================================================
// INDEXING
// =============================================================================

// Index flattens every indexable file under sourcePath into a single blob and
// persists it, replacing any previous record for that path wholesale. Returns
// the number of files indexed.
func (m *Manager) Index(ctx context.Context, sourcePath string, progress ProgressFunc) (int, error) {
	if strings.TrimSpace(sourcePath) == "" {
		return 0, ErrNotConfigured
	}

	info, err := os.Stat(sourcePath)
	if err != nil || !info.IsDir() {
		return 0, fmt.Errorf("%w: %s", ErrPathNotFound, sourcePath)
	}

	files, err := collectFiles(sourcePath)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, ErrEmptyIndex
	}

	var blob strings.Builder
	var indexed []string
	for i, relPath := range files {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if progress != nil {
			progress(i+1, len(files), relPath)
		}

		data, err := os.ReadFile(filepath.Join(sourcePath, relPath))
		if err != nil {
			log.Warn().Err(err).Str("file", relPath).Msg("skipping unreadable file")
			continue
		}
		content := string(data)
		if !utf8.ValidString(content) {
			log.Warn().Str("file", relPath).Msg("skipping non-UTF-8 file")
			continue
		}
		if strings.TrimSpace(content) == "" {
			continue
		}

		blob.WriteString(fileDelimiter)
		blob.WriteString(relPath)
		blob.WriteString(" ---\n")
		blob.WriteString(content)
		indexed = append(indexed, relPath)
	}

	if len(indexed) == 0 {
		return 0, ErrEmptyIndex
	}

	kb := KnowledgeBase{
		Content:           blob.String(),
		LastUpdated:       time.Now(),
		KnowledgeBasePath: sourcePath,
		Files:             indexed,
	}
	data, err := json.MarshalIndent(&kb, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encoding knowledge base: %w", err)
	}
	if err := os.MkdirAll(m.dataDir, 0755); err != nil {
		return 0, fmt.Errorf("creating data directory: %w", err)
	}
	if err := util.AtomicWriteFile(m.recordPath(sourcePath), data, 0644); err != nil {
		return 0, fmt.Errorf("persisting knowledge base: %w", err)
	}

	log.Info().Int("files", len(indexed)).Str("path", sourcePath).Msg("knowledge base indexed")
	return len(indexed), nil
}

// collectFiles walks the tree and returns relative paths of indexable files,
// in walk order. Hidden entries and well-known junk directories are skipped.
func collectFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping unwalkable entry")
			return nil
		}
		name := d.Name()
		if path != root && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if skippedDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}
		if !indexableExtensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	return files, err
}

// =============================================================================
// RETRIEVAL
// =============================================================================

// Search returns the whole indexed blob as a single result. The query only
// matters to the caller; retrieval granularity is the full knowledge base.
// Missing or unreadable records return an empty slice, never an error.
func (m *Manager) Search(query, sourcePath string) []SearchResult {
	kb, err := m.load(sourcePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Msg("knowledge base unreadable")
		}
		return nil
	}
	if kb.Content == "" {
		return nil
	}
	return []SearchResult{{Content: kb.Content, Source: "Knowledge Base"}}
}

// IsIndexed reports whether a usable record exists for sourcePath.
func (m *Manager) IsIndexed(sourcePath string) bool {
	kb, err := m.load(sourcePath)
	return err == nil && kb.Content != ""
}

// Stats returns a summary of the record for sourcePath, and whether one exists.
func (m *Manager) Stats(sourcePath string) (Stats, bool) {
	kb, err := m.load(sourcePath)
	if err != nil {
		return Stats{}, false
	}
	count := len(kb.Files)
	if count == 0 {
		count = strings.Count(kb.Content, fileDelimiter)
	}
	return Stats{
		FileCount:     count,
		ContentLength: len(kb.Content),
		LastUpdated:   kb.LastUpdated,
	}, true
}

func (m *Manager) load(sourcePath string) (*KnowledgeBase, error) {
	if strings.TrimSpace(sourcePath) == "" {
		return nil, ErrNotConfigured
	}
	data, err := os.ReadFile(m.recordPath(sourcePath))
	if err != nil {
		return nil, err
	}
	var kb KnowledgeBase
	if err := json.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("decoding knowledge base: %w", err)
	}
	return &kb, nil
}
