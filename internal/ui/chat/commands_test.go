// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jamesbabiak/hatzchat-tui/internal/api"
	"github.com/jamesbabiak/hatzchat-tui/internal/send"
	"github.com/jamesbabiak/hatzchat-tui/internal/store"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	st := store.New(store.NewFileStore(filepath.Join(t.TempDir(), "conversations.json")))
	st.Create()
	client := api.NewClient("test-key")
	orch := send.New(client, st, 10*time.Millisecond)
	m := New(st, orch, client, Options{})
	return &m
}

func TestHandleCommandNonCommandPassesThrough(t *testing.T) {
	m := newTestModel(t)
	if handled, _ := m.handleCommand("just a prompt"); handled {
		t.Error("Plain text must not be treated as a command")
	}
}

func TestHandleCommandNew(t *testing.T) {
	m := newTestModel(t)
	before := m.store.Count()

	handled, _ := m.handleCommand("/new")
	if !handled {
		t.Fatal("/new should be handled")
	}
	if m.store.Count() != before+1 {
		t.Errorf("Expected %d conversations, got %d", before+1, m.store.Count())
	}
}

func TestHandleCommandRename(t *testing.T) {
	m := newTestModel(t)

	handled, _ := m.handleCommand("/rename Project Ideas")
	if !handled {
		t.Fatal("/rename should be handled")
	}
	conv, _ := m.store.Selected()
	if conv.Title != "Project Ideas" {
		t.Errorf("Expected renamed title, got %q", conv.Title)
	}

	// Missing argument reports usage, changes nothing.
	m.handleCommand("/rename")
	conv, _ = m.store.Selected()
	if conv.Title != "Project Ideas" {
		t.Errorf("Title should be unchanged, got %q", conv.Title)
	}
}

func TestHandleCommandDeleteKeepsOneConversation(t *testing.T) {
	m := newTestModel(t)

	handled, _ := m.handleCommand("/delete")
	if !handled {
		t.Fatal("/delete should be handled")
	}
	// Deleting the last conversation creates a fresh one.
	if m.store.Count() != 1 {
		t.Errorf("Expected 1 conversation after delete, got %d", m.store.Count())
	}
}

func TestHandleCommandModel(t *testing.T) {
	m := newTestModel(t)

	m.handleCommand("/model claude-z")
	if m.store.LastModel() != "claude-z" {
		t.Errorf("Expected last model 'claude-z', got %q", m.store.LastModel())
	}
	conv, _ := m.store.Selected()
	if conv.Model != "claude-z" {
		t.Errorf("Expected conversation model 'claude-z', got %q", conv.Model)
	}
}

func TestHandleCommandTitleRequiresMessages(t *testing.T) {
	m := newTestModel(t)

	handled, _ := m.handleCommand("/title")
	if !handled {
		t.Fatal("/title should be handled")
	}
	if m.status != "nothing to title" {
		t.Errorf("Empty conversation should not trigger a title request, got %q", m.status)
	}
}

func TestHandleCommandUnknown(t *testing.T) {
	m := newTestModel(t)
	handled, _ := m.handleCommand("/frobnicate")
	if !handled {
		t.Error("Unknown slash commands are handled (reported), not sent as prompts")
	}
	if m.status == "" {
		t.Error("Expected a status notice for an unknown command")
	}
}

func TestCycleConversation(t *testing.T) {
	m := newTestModel(t)
	first, _ := m.store.Selected()
	second := m.store.Create()

	if m.store.SelectedID() != second.ID {
		t.Fatal("Create should select the new conversation")
	}
	m.cycleConversation()
	if m.store.SelectedID() != first.ID {
		t.Error("Cycle should move to the other conversation")
	}
	m.cycleConversation()
	if m.store.SelectedID() != second.ID {
		t.Error("Cycle should wrap around")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Simple Title", "Simple Title"},
		{"a/b\\c:d", "a-b-c-d"},
		{"what? <why>", "what why"},
		{"   ", "conversation"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
