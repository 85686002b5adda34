// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file implements the Bubble Tea update loop.
package chat

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jamesbabiak/hatzchat-tui/internal/send"
)

// Update routes messages to the appropriate handler.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case orchestratorEventMsg:
		return m.handleOrchestratorEvent(msg.Event)

	case modelsLoadedMsg:
		if msg.Err != nil {
			m.setStatus("could not load models: " + msg.Err.Error())
			return m, m.statusCmd()
		}
		m.models = msg.Models
		if m.store.LastModel() == "" && len(msg.Models) > 0 {
			m.store.SetLastModel(msg.Models[0].Name)
		}
		return m, nil

	case filesLoadedMsg:
		if msg.Err != nil {
			m.setStatus("file listing failed: " + msg.Err.Error())
			return m, m.statusCmd()
		}
		if len(msg.Files) == 0 {
			m.setStatus("no remote files")
			return m, m.statusCmd()
		}
		var names []string
		for _, f := range msg.Files {
			names = append(names, f.FileName)
		}
		m.setStatus("files: " + strings.Join(names, ", "))
		return m, m.statusCmd()

	case titleGeneratedMsg:
		if msg.Err != nil {
			m.setStatus("title generation failed: " + msg.Err.Error())
			return m, m.statusCmd()
		}
		if msg.Title != "" && m.store.Rename(msg.ConversationID, msg.Title) {
			m.setStatus("renamed to " + msg.Title)
		} else {
			m.setStatus("no usable title suggested")
		}
		m.refreshTranscript()
		return m, m.statusCmd()

	case attachmentDoneMsg:
		return m.handleAttachmentDone(msg)

	case statusExpiredMsg:
		if msg.Seq == m.statusSeq {
			m.status = ""
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// handleResize lays out the viewport, input and chrome for a new size.
func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height

	inputHeight := m.input.Height() + 1
	chromeHeight := 2 // header + status line
	vpHeight := msg.Height - inputHeight - chromeHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
	}
	m.input.SetWidth(msg.Width)
	m.refreshTranscript()
	return m
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.orch.Busy() {
			m.orch.Stop()
			m.setStatus("stopped")
			m.refreshTranscript()
			return m, m.statusCmd()
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.handleSubmit()

	case key.Matches(msg, m.keys.NewChat):
		m.store.Create()
		m.refreshTranscript()
		return m, nil

	case key.Matches(msg, m.keys.CycleChat):
		m.cycleConversation()
		m.refreshTranscript()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSubmit sends the input as a slash command or a prompt.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return m, nil
	}

	if handled, cmd := m.handleCommand(line); handled {
		m.input.Reset()
		return m, cmd
	}

	if m.orch.Busy() {
		// Reentrant submits are rejected, not queued.
		return m, nil
	}
	if !m.orch.Send(m.store.SelectedID(), line) {
		if errText := m.orch.LastError(); errText != "" {
			m.setStatus(errText)
			return m, m.statusCmd()
		}
		return m, nil
	}
	m.input.Reset()
	m.refreshTranscript()
	m.viewport.GotoBottom()
	return m, nil
}

// handleOrchestratorEvent applies a send lifecycle event and re-arms the
// event pump.
func (m Model) handleOrchestratorEvent(ev send.Event) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{waitForEvent(m.orch.Events())}

	switch ev.Kind {
	case send.EventFlushed, send.EventStarted:
		m.refreshTranscript()
		m.viewport.GotoBottom()
	case send.EventFinished:
		m.refreshTranscript()
		m.viewport.GotoBottom()
	case send.EventFailed:
		m.setStatus(ev.Err)
		m.refreshTranscript()
		m.viewport.GotoBottom()
		cmds = append(cmds, m.statusCmd())
	case send.EventCanceled:
		m.refreshTranscript()
	}
	return m, tea.Batch(cmds...)
}

// handleAttachmentDone reports upload completion in the status line.
func (m Model) handleAttachmentDone(msg attachmentDoneMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		if msg.Attachment.Name != "" {
			// The upload succeeded but no file ID could be extracted;
			// the attachment stays visible and is excluded from sends.
			m.setStatus("attached " + msg.Attachment.Name + " (no file id: " + msg.Err.Error() + ")")
		} else {
			m.setStatus("attach failed: " + msg.Err.Error())
		}
		m.refreshTranscript()
		return m, m.statusCmd()
	}
	m.setStatus("attached " + msg.Attachment.Name)
	m.refreshTranscript()
	return m, m.statusCmd()
}

// cycleConversation selects the next conversation, most recently
// updated first.
func (m *Model) cycleConversation() {
	convs := m.store.Conversations()
	if len(convs) < 2 {
		return
	}
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
	current := m.store.SelectedID()
	for i, conv := range convs {
		if conv.ID == current {
			m.store.Select(convs[(i+1)%len(convs)].ID)
			return
		}
	}
	m.store.Select(convs[0].ID)
}
