// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file renders the header, transcript, status line and input box.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jamesbabiak/hatzchat-tui/internal/model"
)

// View renders the full chat screen.
func (m Model) View() string {
	if !m.ready {
		return "initializing..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.input.View())

	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(m.renderHelp())
	}
	return b.String()
}

// renderHeader shows the conversation title, model keyword, and count.
func (m Model) renderHeader() string {
	title := model.DefaultTitle
	modelName := m.store.LastModel()
	if conv, ok := m.store.Selected(); ok {
		title = conv.Title
		if conv.Model != "" {
			modelName = conv.Model
		}
	}
	if modelName == "" {
		modelName = "(no model)"
	}

	left := runewidth.Truncate(title, maxInt(m.width-30, 10), "…")
	right := fmt.Sprintf("%s · %d chats", modelName, m.store.Count())
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.styles.header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// renderStatus shows the spinner while streaming, transient notices, and
// short help otherwise.
func (m Model) renderStatus() string {
	if m.orch.Busy() {
		return statusStyle.Render(m.spinner.View() + " streaming... (Esc to stop)")
	}
	if m.status != "" {
		if strings.HasPrefix(m.status, "Error") || strings.Contains(m.status, "failed") {
			return errorStyle.Render(m.status)
		}
		return statusStyle.Render(m.status)
	}
	var parts []string
	for _, binding := range m.keys.ShortHelp() {
		parts = append(parts, binding.Help().Key+" "+binding.Help().Desc)
	}
	return helpStyle.Render(strings.Join(parts, "  ·  "))
}

// renderHelp shows the full key binding reference.
func (m Model) renderHelp() string {
	var lines []string
	for _, group := range m.keys.FullHelp() {
		var parts []string
		for _, binding := range group {
			parts = append(parts, binding.Help().Key+": "+binding.Help().Desc)
		}
		lines = append(lines, strings.Join(parts, "   "))
	}
	lines = append(lines, "commands: /new /rename /title /delete /model /models /files /attach /export /help /quit")
	return helpStyle.Render(strings.Join(lines, "\n"))
}

// refreshTranscript re-renders the selected conversation into the viewport.
func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	conv, ok := m.store.Selected()
	if !ok {
		m.viewport.SetContent(statusStyle.Render("No conversation. Press C-n to start one."))
		return
	}

	wrap := lipgloss.NewStyle().Width(m.viewport.Width)
	var b strings.Builder

	if len(conv.Attachments) > 0 {
		var names []string
		for _, att := range conv.Attachments {
			name := att.Name
			if !att.HasFileID() {
				name += " (local only)"
			}
			names = append(names, name)
		}
		b.WriteString(attachmentStyle.Render("Attachments: " + strings.Join(names, ", ")))
		b.WriteString("\n\n")
	}

	separator := "\n\n"
	if m.opts.CompactMode {
		separator = "\n"
	}

	for i, msg := range conv.Messages {
		if i > 0 {
			b.WriteString(separator)
		}
		b.WriteString(m.roleLabel(msg.Role))
		if m.opts.ShowTimestamps {
			b.WriteString(" " + statusStyle.Render(msg.CreatedAt.Format("15:04")))
		}
		b.WriteString("\n")
		content := msg.Content
		if content == "" && msg.Role == model.RoleAssistant {
			content = "..."
		}
		b.WriteString(wrap.Render(content))
	}

	m.viewport.SetContent(b.String())
}

// roleLabel renders the styled speaker label for a message.
func (m *Model) roleLabel(role model.Role) string {
	switch role {
	case model.RoleUser:
		return m.styles.userLabel.Render(role.DisplayName())
	case model.RoleAssistant:
		return m.styles.assistantLabel.Render(role.DisplayName())
	default:
		return statusStyle.Render(role.DisplayName())
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
