// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file implements the slash commands typed into the input box and
// the async tea.Cmd constructors backing them.
package chat

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jamesbabiak/hatzchat-tui/internal/api"
	"github.com/jamesbabiak/hatzchat-tui/internal/model"
	"github.com/jamesbabiak/hatzchat-tui/internal/send"
	"github.com/jamesbabiak/hatzchat-tui/internal/util"
)

// =============================================================================
// ASYNC COMMANDS
// =============================================================================

// waitForEvent blocks on the orchestrator's event channel and converts
// the next event into a Bubble Tea message. The update loop re-issues
// this command after consuming each event.
func waitForEvent(events <-chan send.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return orchestratorEventMsg{Event: ev}
	}
}

// loadModels fetches the model catalog in the background.
func loadModels(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		models, err := client.ListModels(ctx)
		return modelsLoadedMsg{Models: models, Err: err}
	}
}

// loadFiles fetches the remote file listing in the background.
func loadFiles(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		files, err := client.ListFiles(ctx)
		return filesLoadedMsg{Files: files, Err: err}
	}
}

// attachFile reads a local file and uploads it via the orchestrator.
func attachFile(orch *send.Orchestrator, convID, path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return attachmentDoneMsg{Err: err}
		}
		mimeType := mime.TypeByExtension(filepath.Ext(path))
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		att, err := orch.AttachFile(ctx, convID, data, filepath.Base(path), mimeType)
		return attachmentDoneMsg{Attachment: att, Err: err}
	}
}

// generateTitle asks the model for a short conversation title with a
// single non-streaming completion.
func generateTitle(client *api.Client, modelName string, conv model.Conversation) tea.Cmd {
	return func() tea.Msg {
		messages := []api.ChatMessage{
			api.NewSystemMessage("Reply with a short title for the conversation, at most six words. Reply with the title only."),
		}
		for _, msg := range conv.Messages {
			if msg.Content == "" {
				continue
			}
			messages = append(messages, api.ChatMessage{Role: msg.Role.String(), Content: msg.Content})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		title, err := client.ChatComplete(ctx, modelName, messages, nil, false, nil)
		title = util.TruncateRunesNoEllipsis(util.SingleLine(strings.TrimSpace(title)), model.TitleMaxRunes)
		return titleGeneratedMsg{ConversationID: conv.ID, Title: title, Err: err}
	}
}

// expireStatus clears the transient status after a short delay. The
// sequence number discards expirations for statuses already replaced.
func expireStatus(seq int) tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return statusExpiredMsg{Seq: seq}
	})
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand interprets a "/" prefixed input line. Returns false when
// the line is not a recognized command and should be sent as a prompt.
func (m *Model) handleCommand(line string) (bool, tea.Cmd) {
	fields := strings.Fields(line)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return false, nil
	}
	name := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch name {
	case "/new":
		conv := m.store.Create()
		m.setStatus(fmt.Sprintf("started %q", conv.Title))
		m.refreshTranscript()
		return true, m.statusCmd()

	case "/rename":
		if arg == "" {
			m.setStatus("usage: /rename <title>")
			return true, m.statusCmd()
		}
		if m.store.Rename(m.store.SelectedID(), arg) {
			m.setStatus("renamed")
		} else {
			m.setStatus("rename failed")
		}
		m.refreshTranscript()
		return true, m.statusCmd()

	case "/delete":
		m.store.Delete(m.store.SelectedID())
		if m.store.Count() == 0 {
			m.store.Create()
		}
		m.setStatus("conversation deleted")
		m.refreshTranscript()
		return true, m.statusCmd()

	case "/model":
		if arg == "" {
			m.setStatus("usage: /model <name>")
			return true, m.statusCmd()
		}
		if conv, ok := m.store.Selected(); ok {
			conv.Model = arg
			m.store.Update(conv, true)
		}
		m.store.SetLastModel(arg)
		m.setStatus("model set to " + arg)
		return true, m.statusCmd()

	case "/models":
		if len(m.models) == 0 {
			m.setStatus("model catalog not loaded")
			return true, m.statusCmd()
		}
		var names []string
		for _, md := range m.models {
			names = append(names, md.Name)
		}
		m.setStatus("models: " + strings.Join(names, ", "))
		return true, m.statusCmd()

	case "/title":
		conv, ok := m.store.Selected()
		if !ok || len(conv.Messages) == 0 {
			m.setStatus("nothing to title")
			return true, m.statusCmd()
		}
		modelName := conv.Model
		if modelName == "" {
			modelName = m.store.LastModel()
		}
		m.setStatus("generating title...")
		return true, tea.Batch(generateTitle(m.client, modelName, conv), m.statusCmd())

	case "/files":
		m.setStatus("fetching file listing...")
		return true, tea.Batch(loadFiles(m.client), m.statusCmd())

	case "/attach":
		if arg == "" {
			m.setStatus("usage: /attach <path>")
			return true, m.statusCmd()
		}
		m.setStatus("uploading " + filepath.Base(arg) + "...")
		return true, tea.Batch(
			attachFile(m.orch, m.store.SelectedID(), arg),
			m.statusCmd(),
		)

	case "/export":
		conv, ok := m.store.Selected()
		if !ok {
			m.setStatus("nothing to export")
			return true, m.statusCmd()
		}
		path := arg
		if path == "" {
			path = filepath.Join(".", sanitizeFilename(conv.Title)+".md")
		}
		if err := util.AtomicWriteFile(path, []byte(conv.ExportMarkdown()), 0644); err != nil {
			m.setStatus("export failed: " + err.Error())
		} else {
			m.setStatus("exported to " + path)
		}
		return true, m.statusCmd()

	case "/help":
		m.showHelp = !m.showHelp
		return true, nil

	case "/quit":
		return true, tea.Quit
	}

	m.setStatus("unknown command " + name)
	return true, m.statusCmd()
}

// sanitizeFilename makes a conversation title safe as a filename.
func sanitizeFilename(title string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-",
		"?", "", "\"", "", "<", "", ">", "", "|", "-",
	)
	name := strings.TrimSpace(replacer.Replace(title))
	if name == "" {
		name = "conversation"
	}
	return name
}
