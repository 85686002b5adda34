// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines the top-level Bubble Tea model and its construction.
package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesbabiak/hatzchat-tui/internal/api"
	"github.com/jamesbabiak/hatzchat-tui/internal/send"
	"github.com/jamesbabiak/hatzchat-tui/internal/store"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("45"))

	assistantLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("213"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	attachmentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// Options carries presentation settings from the user's config.
type Options struct {
	Theme          string
	CompactMode    bool
	ShowTimestamps bool
}

// styleSet holds the theme-dependent styles. The package-level styles
// above are the dark palette.
type styleSet struct {
	header         lipgloss.Style
	userLabel      lipgloss.Style
	assistantLabel lipgloss.Style
}

func stylesFor(theme string) styleSet {
	if strings.ToLower(theme) == "light" {
		return styleSet{
			header:         headerStyle.Background(lipgloss.Color("33")),
			userLabel:      userLabelStyle.Foreground(lipgloss.Color("25")),
			assistantLabel: assistantLabelStyle.Foreground(lipgloss.Color("90")),
		}
	}
	return styleSet{
		header:         headerStyle,
		userLabel:      userLabelStyle,
		assistantLabel: assistantLabelStyle,
	}
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the root Bubble Tea model for the chat interface.
type Model struct {
	store *store.Store
	orch  *send.Orchestrator

	client *api.Client
	models []api.Model

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	keys     KeyMap
	opts     Options
	styles   styleSet

	width  int
	height int
	ready  bool

	status    string
	statusSeq int
	showHelp  bool
}

// New creates the chat model wired to the store and orchestrator.
func New(st *store.Store, orch *send.Orchestrator, client *api.Client, opts Options) Model {
	input := textarea.New()
	input.Placeholder = "Type a message, or / for commands..."
	input.CharLimit = 0
	input.SetHeight(3)
	input.ShowLineNumbers = false
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))

	return Model{
		store:   st,
		orch:    orch,
		client:  client,
		input:   input,
		spinner: sp,
		keys:    DefaultKeyMap(),
		opts:    opts,
		styles:  stylesFor(opts.Theme),
	}
}

// Init starts the background commands: the orchestrator event pump and
// the model catalog fetch.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.orch.Events()),
		loadModels(m.client),
		m.spinner.Tick,
	)
}

// setStatus replaces the transient status line notice.
func (m *Model) setStatus(text string) {
	m.status = text
	m.statusSeq++
}

// statusCmd schedules expiry of the current status notice.
func (m *Model) statusCmd() tea.Cmd {
	return expireStatus(m.statusSeq)
}
