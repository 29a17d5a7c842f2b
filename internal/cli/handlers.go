// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

// handlers.go - non-TUI command handlers.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/hariharen9/localseek/internal/config"
	"github.com/hariharen9/localseek/internal/knowledge"
	"github.com/hariharen9/localseek/internal/ollama"
	"github.com/hariharen9/localseek/internal/storage"
	"github.com/hariharen9/localseek/internal/telemetry"
)

// =============================================================================
// INDEX
// =============================================================================

// HandleIndex indexes a knowledge base folder, preferring the path argument
// over the configured one. Returns a process exit code.
func HandleIndex(cfg *config.Config, args Args) int {
	path := args.Path
	if path == "" {
		path = cfg.Knowledge.Path
	}

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Resolving data directory failed: %v\n", err)
		return 1
	}

	mgr := knowledge.NewManager(dataDir)
	count, err := mgr.Index(context.Background(), path, func(current, total int, name string) {
		fmt.Fprintf(os.Stderr, "\r[%d/%d] %s\033[K", current, total, name)
	})
	fmt.Fprintln(os.Stderr)

	switch {
	case errors.Is(err, knowledge.ErrNotConfigured):
		fmt.Fprintln(os.Stderr, "No knowledge base path. Pass one: localseek index <path>")
		return 1
	case errors.Is(err, knowledge.ErrPathNotFound):
		fmt.Fprintf(os.Stderr, "Path not found: %s\n", path)
		return 1
	case errors.Is(err, knowledge.ErrEmptyIndex):
		fmt.Fprintf(os.Stderr, "Nothing indexable under %s\n", path)
		return 1
	case err != nil:
		fmt.Fprintf(os.Stderr, "Indexing failed: %v\n", err)
		return 1
	}

	fmt.Printf("Indexed %d files from %s\n", count, path)
	return 0
}

// =============================================================================
// SESSIONS
// =============================================================================

// HandleSessions prints the saved conversations for this workspace.
func HandleSessions(cfg *config.Config) int {
	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Resolving data directory failed: %v\n", err)
		return 1
	}
	store := storage.NewStore(dataDir, cfg.ResolveWorkspace())
	fmt.Println(storage.FormatConversationList(store.List()))
	return 0
}

// =============================================================================
// MODELS
// =============================================================================

// HandleModels lists the models the Ollama server has installed.
func HandleModels(cfg *config.Config) int {
	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: cfg.OllamaURL})
	models, err := client.ListModels(context.Background())
	if err != nil {
		if ollama.IsNotRunning(err) {
			fmt.Fprintln(os.Stderr, "Cannot reach Ollama. Is the server running?")
		} else {
			fmt.Fprintf(os.Stderr, "Listing models failed: %v\n", err)
		}
		return 1
	}
	if len(models) == 0 {
		fmt.Println("No models installed. Try: localseek pull llama3.2")
		return 0
	}
	for _, m := range models {
		fmt.Printf("%-40s %10s\n", m.Name, m.FormatSize())
	}
	return 0
}

// HandlePull downloads a model, streaming progress to stderr.
func HandlePull(cfg *config.Config, args Args) int {
	if args.ModelName == "" {
		fmt.Fprintln(os.Stderr, "Usage: localseek pull <model>")
		return 1
	}

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: cfg.OllamaURL})
	err := client.PullModel(context.Background(), args.ModelName, func(p ollama.PullProgress) {
		if p.Total > 0 {
			fmt.Fprintf(os.Stderr, "\r%s: %.1f%%\033[K", p.Status, p.Percent())
		} else {
			fmt.Fprintf(os.Stderr, "\r%s\033[K", p.Status)
		}
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pulling %s failed: %v\n", args.ModelName, err)
		return 1
	}
	fmt.Printf("Model %s is ready.\n", args.ModelName)
	return 0
}

// =============================================================================
// STATS
// =============================================================================

// HandleStats prints usage totals from the telemetry database.
func HandleStats(cfg *config.Config) int {
	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Resolving data directory failed: %v\n", err)
		return 1
	}
	rec, err := telemetry.Open(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Opening usage database failed: %v\n", err)
		return 1
	}
	defer rec.Close()

	totals, err := rec.Totals()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reading usage failed: %v\n", err)
		return 1
	}
	fmt.Printf("Turns:             %d\n", totals.Turns)
	fmt.Printf("Prompt tokens:     %d\n", totals.PromptTokens)
	fmt.Printf("Completion tokens: %d\n", totals.CompletionTokens)
	fmt.Printf("Time generating:   %s\n", totals.TotalDuration.Round(time.Second))

	byModel, err := rec.ByModel()
	if err != nil || len(byModel) == 0 {
		return 0
	}
	fmt.Println("\nBy model:")
	for _, m := range byModel {
		fmt.Printf("  %-30s %5d turns  %8d tokens\n",
			m.Model, m.Turns, m.PromptTokens+m.CompletionTokens)
	}
	return 0
}

// =============================================================================
// VERSION
// =============================================================================

// HandleVersion prints build information.
func HandleVersion() int {
	fmt.Printf("localseek %s (%s, built %s, %s/%s)\n",
		Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH)
	return 0
}
