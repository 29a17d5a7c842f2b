// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// SCHEMA
// =============================================================================

// DatabaseFile is the usage database filename under the data directory.
const DatabaseFile = "usage.db"

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at         TEXT    NOT NULL,
	conversation_id     TEXT    NOT NULL,
	model               TEXT    NOT NULL,
	prompt_tokens       INTEGER NOT NULL,
	completion_tokens   INTEGER NOT NULL,
	duration_ms         INTEGER NOT NULL,
	first_token_ms      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_turns_model ON turns(model);
CREATE INDEX IF NOT EXISTS idx_turns_conversation ON turns(conversation_id);
`

// =============================================================================
// RECORDER
// =============================================================================

// Recorder persists per-turn usage rows in a local SQLite database. Recording
// failures are logged and never surface to the caller; a broken usage
// database must not break chat.
type Recorder struct {
	db *sql.DB
}

// Open creates or opens the usage database under dataDir.
func Open(dataDir string) (*Recorder, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, DatabaseFile))
	if err != nil {
		return nil, fmt.Errorf("opening usage database: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Recorder{db: db}, nil
}

// Close releases the database handle.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// RecordTurn writes one usage row. Failures are logged, never returned.
func (r *Recorder) RecordTurn(conversationID, model string, promptTokens, completionTokens int, duration, timeToFirstToken time.Duration) {
	_, err := r.db.Exec(
		`INSERT INTO turns (recorded_at, conversation_id, model, prompt_tokens, completion_tokens, duration_ms, first_token_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		conversationID,
		model,
		promptTokens,
		completionTokens,
		duration.Milliseconds(),
		timeToFirstToken.Milliseconds(),
	)
	if err != nil {
		log.Warn().Err(err).Msg("recording usage failed")
	}
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Totals summarizes overall usage.
type Totals struct {
	Turns            int
	PromptTokens     int
	CompletionTokens int
	TotalDuration    time.Duration
}

// ModelUsage summarizes usage for one model.
type ModelUsage struct {
	Model            string
	Turns            int
	PromptTokens     int
	CompletionTokens int
}

// Totals aggregates across all recorded turns.
func (r *Recorder) Totals() (Totals, error) {
	row := r.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(prompt_tokens), 0),
		        COALESCE(SUM(completion_tokens), 0),
		        COALESCE(SUM(duration_ms), 0)
		 FROM turns`)

	var t Totals
	var durationMS int64
	if err := row.Scan(&t.Turns, &t.PromptTokens, &t.CompletionTokens, &durationMS); err != nil {
		return Totals{}, fmt.Errorf("aggregating usage: %w", err)
	}
	t.TotalDuration = time.Duration(durationMS) * time.Millisecond
	return t, nil
}

// ByModel aggregates per model, most used first.
func (r *Recorder) ByModel() ([]ModelUsage, error) {
	rows, err := r.db.Query(
		`SELECT model,
		        COUNT(*),
		        COALESCE(SUM(prompt_tokens), 0),
		        COALESCE(SUM(completion_tokens), 0)
		 FROM turns
		 GROUP BY model
		 ORDER BY COUNT(*) DESC, model`)
	if err != nil {
		return nil, fmt.Errorf("aggregating usage by model: %w", err)
	}
	defer rows.Close()

	var out []ModelUsage
	for rows.Next() {
		var m ModelUsage
		if err := rows.Scan(&m.Model, &m.Turns, &m.PromptTokens, &m.CompletionTokens); err != nil {
			return nil, fmt.Errorf("scanning usage row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
