// hatzchat TUI - a terminal chat client for the HatzAI API.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jamesbabiak/hatzchat-tui/internal/api"
	"github.com/jamesbabiak/hatzchat-tui/internal/config"
	"github.com/jamesbabiak/hatzchat-tui/internal/creds"
	"github.com/jamesbabiak/hatzchat-tui/internal/send"
	"github.com/jamesbabiak/hatzchat-tui/internal/store"
	"github.com/jamesbabiak/hatzchat-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			fmt.Printf("hatzchat %s (%s, built %s)\n", Version, GitCommit, BuildDate)
			return
		case "set-key":
			if err := handleSetKey(os.Args[2:]); err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
				os.Exit(1)
			}
			return
		case "help", "--help", "-h":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", os.Args[1])
			printUsage()
			os.Exit(1)
		}
	}

	if err := runTUI(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`hatzchat - terminal chat client for the HatzAI API

Usage:
  hatzchat            start the chat interface
  hatzchat set-key    store the API key (reads from HATZCHAT_API_KEY or prompts)
  hatzchat version    print version information`)
}

// handleSetKey persists the API key in the credential store.
func handleSetKey(args []string) error {
	key := os.Getenv("HATZCHAT_API_KEY")
	if len(args) > 0 {
		key = args[0]
	}
	if key == "" {
		fmt.Print("API key: ")
		if _, err := fmt.Scanln(&key); err != nil {
			return fmt.Errorf("could not read key: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dir, err := cfg.DataDir()
	if err != nil {
		return err
	}
	credStore := creds.NewFileStore(dir)
	if err := credStore.Save(creds.Service, creds.Account, key); err != nil {
		return fmt.Errorf("could not store key: %w", err)
	}
	fmt.Println("API key stored.")
	return nil
}

// runTUI wires config, credentials, storage and the orchestrator, then
// hands control to Bubble Tea.
func runTUI() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	dataDir, err := cfg.DataDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("could not create data directory: %w", err)
	}

	closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	// First run: write out a config file for the user to edit.
	if tomlPath, err := config.ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); os.IsNotExist(statErr) {
			if err := config.Save(cfg); err != nil {
				log.Printf("could not write default config: %v", err)
			}
		}
	}

	// Credential: env override first, then the on-disk store. A missing
	// key is not fatal; the UI reports it on the first send attempt.
	apiKey := os.Getenv("HATZCHAT_API_KEY")
	if apiKey == "" {
		var credStore creds.CredentialStore = creds.NewFileStore(dataDir)
		key, err := credStore.Load(creds.Service, creds.Account)
		if err != nil && !errors.Is(err, creds.ErrNotFound) {
			log.Printf("credential load failed: %v", err)
		}
		apiKey = key
	}

	client := api.NewClient(apiKey).
		WithBaseURL(cfg.API.BaseURL).
		WithFilesPath(cfg.API.FilesPath).
		WithTimeout(time.Duration(cfg.API.TimeoutSecs) * time.Second)

	convPath, err := cfg.ConversationsPath()
	if err != nil {
		return err
	}
	st := store.New(store.NewFileStore(convPath))
	st.Load()
	if cfg.DefaultModel != "" && st.LastModel() == "" {
		st.SetLastModel(cfg.DefaultModel)
	}
	if st.Count() == 0 {
		st.Create()
	}

	orch := send.New(client, st, time.Duration(cfg.Chat.FlushIntervalMs)*time.Millisecond)
	orch.SetSystemPrompt(cfg.Chat.SystemPrompt)

	program := tea.NewProgram(
		chat.New(st, orch, client, chat.Options{
			Theme:          cfg.UI.Theme,
			CompactMode:    cfg.UI.CompactMode,
			ShowTimestamps: cfg.UI.ShowTimestamps,
		}),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	// Flush any in-memory state before exit.
	orch.Stop()
	if err := st.Save(); err != nil {
		log.Printf("final save failed: %v", err)
	}
	return nil
}

// setupLogging redirects the standard logger to the application log file
// so Bubble Tea's alternate screen stays clean.
func setupLogging(cfg *config.Config) (func(), error) {
	path, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}
	log.SetOutput(file)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("hatzchat %s starting", Version)
	return func() { file.Close() }, nil
}
