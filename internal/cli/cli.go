// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

// cli.go - argument parsing for the localseek binary.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdIndex
	CmdSessions
	CmdModels
	CmdPull
	CmdStats
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Model      string
	ConfigPath string

	// Command-specific
	Path      string // index
	ModelName string // pull

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `localseek - local AI chat with your own knowledge base

LocalSeek talks to a local Ollama server, keeps your conversation history
on disk, and can fold a folder of notes into every question you ask.

Usage:
  localseek                  Start the chat TUI (default)
  localseek index [path]     Index a knowledge base folder
  localseek sessions         List saved conversations
  localseek models           List installed Ollama models
  localseek pull <model>     Download a model
  localseek stats            Show usage statistics
  localseek version          Show version information

Flags:
  --model NAME               Override the default model
  --config PATH              Use an alternate config file

Examples:
  localseek
  localseek index ~/notes
  localseek pull llama3.2
  localseek --model mistral
`

// Usage prints the help text.
func Usage() {
	fmt.Print(usageText)
}

// Parse reads os.Args and returns the command to run with its arguments.
func Parse() (Command, Args) {
	return parse(os.Args[1:])
}

func parse(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, args
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, args

	case "index":
		if len(remaining) > 0 {
			args.Path = remaining[0]
		}
		return CmdIndex, args

	case "sessions", "session", "history":
		return CmdSessions, args

	case "models", "model":
		return CmdModels, args

	case "pull":
		if len(remaining) > 0 {
			args.ModelName = remaining[0]
		}
		return CmdPull, args

	case "stats", "usage":
		return CmdStats, args

	case "version", "-v", "--version":
		return CmdVersion, args

	case "help", "-h", "--help":
		return CmdHelp, args

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		return CmdHelp, args
	}
}

// parseGlobalFlags strips global flags off the front of argv, returning what
// remains plus the parsed values.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	var remaining []string

	for i := 0; i < len(argv); i++ {
		switch argv[i] {
		case "--model", "-m":
			if i+1 < len(argv) {
				i++
				args.Model = argv[i]
			}
		case "--config":
			if i+1 < len(argv) {
				i++
				args.ConfigPath = argv[i]
			}
		default:
			remaining = append(remaining, argv[i])
		}
	}
	return remaining, args
}
