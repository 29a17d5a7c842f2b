// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

// LocalSeek is a local AI chat with conversation history and a knowledge base.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hariharen9/localseek/internal/bridge"
	"github.com/hariharen9/localseek/internal/cli"
	"github.com/hariharen9/localseek/internal/config"
	"github.com/hariharen9/localseek/internal/knowledge"
	"github.com/hariharen9/localseek/internal/ollama"
	"github.com/hariharen9/localseek/internal/session"
	"github.com/hariharen9/localseek/internal/storage"
	"github.com/hariharen9/localseek/internal/telemetry"
	"github.com/hariharen9/localseek/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// watchDebounce batches bursts of file saves into one re-index.
const watchDebounce = 2 * time.Second

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	cfg, err := loadConfig(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "localseek: %v\n", err)
		os.Exit(1)
	}

	switch cmd {
	case cli.CmdTUI:
		os.Exit(runTUI(cfg))
	case cli.CmdIndex:
		os.Exit(cli.HandleIndex(cfg, args))
	case cli.CmdSessions:
		os.Exit(cli.HandleSessions(cfg))
	case cli.CmdModels:
		os.Exit(cli.HandleModels(cfg))
	case cli.CmdPull:
		os.Exit(cli.HandlePull(cfg, args))
	case cli.CmdStats:
		os.Exit(cli.HandleStats(cfg))
	case cli.CmdVersion:
		os.Exit(cli.HandleVersion())
	default:
		cli.Usage()
		os.Exit(0)
	}
}

// loadConfig loads the config file, applies env overrides and CLI flags, and
// validates the result.
func loadConfig(args cli.Args) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	if args.Model != "" {
		cfg.DefaultModel = args.Model
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// =============================================================================
// TUI
// =============================================================================

func runTUI(cfg *config.Config) int {
	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "localseek: %v\n", err)
		return 1
	}

	closeLog, err := setupLogging(cfg, dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "localseek: %v\n", err)
		return 1
	}
	defer closeLog()

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: cfg.OllamaURL})
	store := storage.NewStore(dataDir, cfg.ResolveWorkspace())
	knowledgeMgr := knowledge.NewManager(dataDir)

	// Usage recording is best effort; the chat works without it.
	var usage session.UsageRecorder
	if rec, err := telemetry.Open(dataDir); err != nil {
		log.Warn().Err(err).Msg("usage database unavailable")
	} else {
		usage = rec
		defer rec.Close()
	}

	forwarder := chat.NewForwarder()
	sess := session.New(session.Options{
		Store:         store,
		Knowledge:     knowledgeMgr,
		Client:        client,
		Notifier:      forwarder,
		Usage:         usage,
		KnowledgePath: cfg.Knowledge.Path,
	})
	defer sess.Close()

	dispatcher := bridge.New(bridge.Options{
		Session:  sess,
		Store:    store,
		Client:   client,
		Notifier: forwarder,
	})

	if cfg.Knowledge.Watch && cfg.Knowledge.Path != "" {
		watcher, err := knowledge.NewWatcher(knowledgeMgr, cfg.Knowledge.Path, watchDebounce)
		if err != nil {
			log.Warn().Err(err).Msg("knowledge watcher unavailable")
		} else if err := watcher.Watch(); err != nil {
			log.Warn().Err(err).Msg("knowledge watcher failed to start")
			watcher.Close()
		} else {
			defer watcher.Close()
		}
	}

	model := chat.New(dispatcher, cfg.DefaultModel, cfg.Knowledge.Path != "")
	program := tea.NewProgram(model, tea.WithAltScreen())
	forwarder.Attach(program)

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "localseek: %v\n", err)
		return 1
	}
	return 0
}

// setupLogging sends zerolog to a file under the data directory; the TUI
// owns stdout and stderr.
func setupLogging(cfg *config.Config, dataDir string) (func(), error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	logPath := filepath.Join(dataDir, "localseek.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	log.Logger = zerolog.New(f).Level(level).With().Timestamp().Logger()
	return func() { f.Close() }, nil
}
