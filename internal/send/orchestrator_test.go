// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package send

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jamesbabiak/hatzchat-tui/internal/api"
	"github.com/jamesbabiak/hatzchat-tui/internal/model"
	"github.com/jamesbabiak/hatzchat-tui/internal/store"
)

// newTestRig wires an orchestrator against an httptest server and a
// temp-file store with one empty conversation selected.
func newTestRig(t *testing.T, handler http.HandlerFunc) (*Orchestrator, *store.Store, string, string) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	path := filepath.Join(t.TempDir(), "conversations.json")
	st := store.New(store.NewFileStore(path))
	conv := st.Create()

	client := api.NewClient("test-key").WithBaseURL(server.URL + "/v1")
	orch := New(client, st, 10*time.Millisecond)
	return orch, st, conv.ID, path
}

// waitIdle blocks until the orchestrator returns to Idle.
func waitIdle(t *testing.T, orch *Orchestrator) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !orch.Busy() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("orchestrator did not return to idle")
}

func streamHandler(lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, line := range lines {
			w.Write([]byte(line + "\n"))
		}
	}
}

func TestSendSuccess(t *testing.T) {
	orch, st, convID, _ := newTestRig(t, streamHandler(
		`data: {"type":"token","message":"Hello"}`,
		`data: {"type":"token","message":" there"}`,
		`data: [DONE]`,
	))

	if !orch.Send(convID, "  What is Go?  ") {
		t.Fatal("Send was rejected")
	}
	waitIdle(t, orch)

	conv, ok := st.Get(convID)
	if !ok {
		t.Fatal("conversation disappeared")
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(conv.Messages))
	}
	if conv.Messages[0].Role != model.RoleUser || conv.Messages[0].Content != "What is Go?" {
		t.Errorf("Unexpected user message: %+v", conv.Messages[0])
	}
	if conv.Messages[1].Role != model.RoleAssistant || conv.Messages[1].Content != "Hello there" {
		t.Errorf("Unexpected assistant message: %+v", conv.Messages[1])
	}
	if conv.Title != "What is Go?" {
		t.Errorf("Expected title from prompt, got %q", conv.Title)
	}
	if orch.LastError() != "" {
		t.Errorf("Expected no last error, got %q", orch.LastError())
	}
}

func TestSendTitleCutAtRuneLimit(t *testing.T) {
	orch, st, convID, _ := newTestRig(t, streamHandler(`data: [DONE]`))

	prompt := strings.Repeat("é", 60)
	if !orch.Send(convID, prompt) {
		t.Fatal("Send was rejected")
	}
	waitIdle(t, orch)

	conv, _ := st.Get(convID)
	if got := len([]rune(conv.Title)); got != model.TitleMaxRunes {
		t.Errorf("Expected %d-rune title, got %d runes", model.TitleMaxRunes, got)
	}
}

func TestSendRejectsEmptyPrompt(t *testing.T) {
	orch, _, convID, _ := newTestRig(t, streamHandler(`data: [DONE]`))

	if orch.Send(convID, "   \n\t ") {
		t.Error("Whitespace-only prompt should be rejected")
	}
	if orch.Busy() {
		t.Error("Rejected send should leave the orchestrator idle")
	}
}

func TestSendRejectsWithoutCredential(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.json")
	st := store.New(store.NewFileStore(path))
	conv := st.Create()

	orch := New(api.NewClient(""), st, 10*time.Millisecond)
	if orch.Send(conv.ID, "hello") {
		t.Error("Send without a credential should be rejected")
	}
	if orch.LastError() == "" {
		t.Error("Expected last error to be recorded")
	}
}

func TestSendRejectsReentrant(t *testing.T) {
	release := make(chan struct{})
	orch, st, convID, _ := newTestRig(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte("data: [DONE]\n"))
	})

	if !orch.Send(convID, "first") {
		t.Fatal("First send was rejected")
	}
	// A second submit while busy is rejected silently, not queued.
	if orch.Send(convID, "second") {
		t.Error("Reentrant send should be rejected")
	}
	close(release)
	waitIdle(t, orch)

	conv, _ := st.Get(convID)
	for _, msg := range conv.Messages {
		if msg.Content == "second" {
			t.Error("Rejected prompt must not appear in the transcript")
		}
	}
}

func TestSendPersistsBeforeStreaming(t *testing.T) {
	var persisted string
	done := make(chan struct{})
	orch, _, convID, path := newTestRig(t, nil)

	// The handler reads the store file before responding: the user
	// message and placeholder must already be on disk.
	handler := func(w http.ResponseWriter, r *http.Request) {
		data, _ := os.ReadFile(path)
		persisted = string(data)
		close(done)
		w.Write([]byte("data: [DONE]\n"))
	}
	server := httptest.NewServer(http.HandlerFunc(handler))
	defer server.Close()
	orch = New(api.NewClient("test-key").WithBaseURL(server.URL+"/v1"),
		storeFromPath(t, path, convID), 10*time.Millisecond)

	if !orch.Send(convID, "remember me") {
		t.Fatal("Send was rejected")
	}
	<-done
	waitIdle(t, orch)

	if !strings.Contains(persisted, "remember me") {
		t.Error("User message was not persisted before the stream opened")
	}
}

// storeFromPath opens a second store over an existing file and selects
// the given conversation.
func storeFromPath(t *testing.T, path, convID string) *store.Store {
	t.Helper()
	st := store.New(store.NewFileStore(path))
	st.Load()
	st.Select(convID)
	return st
}

func TestSendRequestShape(t *testing.T) {
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Stream            bool     `json:"stream"`
		AutoToolSelection bool     `json:"auto_tool_selection"`
		FileUUIDs         []string `json:"file_uuids"`
	}
	orch, _, convID, _ := newTestRig(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Bad request body: %v", err)
		}
		w.Write([]byte("data: [DONE]\n"))
	})

	if !orch.Send(convID, "shape check") {
		t.Fatal("Send was rejected")
	}
	waitIdle(t, orch)

	if !body.Stream || !body.AutoToolSelection {
		t.Errorf("Expected stream and auto_tool_selection true, got %+v", body)
	}
	if body.FileUUIDs == nil {
		t.Error("Expected file_uuids present (empty array, not null)")
	}
	if len(body.Messages) != 2 {
		t.Fatalf("Expected system + user message, got %d", len(body.Messages))
	}
	if body.Messages[0].Role != "system" {
		t.Errorf("Expected leading system message, got %q", body.Messages[0].Role)
	}
	if body.Messages[1].Role != "user" || body.Messages[1].Content != "shape check" {
		t.Errorf("Unexpected user message: %+v", body.Messages[1])
	}
}

func TestSetSystemPromptOverridesInstruction(t *testing.T) {
	var body struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	orch, _, convID, _ := newTestRig(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Bad request body: %v", err)
		}
		w.Write([]byte("data: [DONE]\n"))
	})
	orch.SetSystemPrompt("Answer in French.")
	orch.SetSystemPrompt("   ") // blank keeps the previous value

	if !orch.Send(convID, "bonjour") {
		t.Fatal("Send was rejected")
	}
	waitIdle(t, orch)

	if len(body.Messages) == 0 || body.Messages[0].Role != "system" {
		t.Fatalf("Expected leading system message, got %+v", body.Messages)
	}
	if body.Messages[0].Content != "Answer in French." {
		t.Errorf("Expected overridden system prompt, got %q", body.Messages[0].Content)
	}
}

func TestSendErrorPath(t *testing.T) {
	orch, st, convID, _ := newTestRig(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	})

	if !orch.Send(convID, "trigger failure") {
		t.Fatal("Send was rejected")
	}
	waitIdle(t, orch)

	if orch.LastError() != "upstream unavailable" {
		t.Errorf("Expected raw error body in last error, got %q", orch.LastError())
	}
	conv, _ := st.Get(convID)
	last := conv.LastMessage()
	if last == nil || last.Role != model.RoleAssistant {
		t.Fatal("Expected assistant message")
	}
	if last.Content != "Error: upstream unavailable" {
		t.Errorf("Expected error text in assistant message, got %q", last.Content)
	}
}

func TestStopRetainsFlushedContent(t *testing.T) {
	firstDelta := make(chan struct{})
	orch, st, convID, _ := newTestRig(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`data: {"message":"partial "}` + "\n"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		close(firstDelta)
		<-r.Context().Done()
	})

	if !orch.Send(convID, "long answer") {
		t.Fatal("Send was rejected")
	}
	<-firstDelta

	// Wait for at least one flush to land in the transcript.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conv, _ := st.Get(convID)
		if last := conv.LastMessage(); last != nil && last.Content != "" {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	orch.Stop()
	if orch.Busy() {
		t.Error("Stop should return the orchestrator to idle")
	}

	conv, _ := st.Get(convID)
	last := conv.LastMessage()
	if last == nil || !strings.HasPrefix(last.Content, "partial") {
		t.Errorf("Flushed content should be retained after stop, got %+v", last)
	}

	// The next send must be accepted.
	time.Sleep(20 * time.Millisecond)
	if orch.Busy() {
		t.Error("Orchestrator should stay idle after stop")
	}
}

func TestSendFilteredStream(t *testing.T) {
	orch, st, convID, _ := newTestRig(t, streamHandler(
		`data: {"message":"Result: "}`,
		`data: {"message":"<details>"}`,
		`data: {"message":"42"}`,
		`data: [DONE]`,
	))

	if !orch.Send(convID, "compute") {
		t.Fatal("Send was rejected")
	}
	waitIdle(t, orch)

	conv, _ := st.Get(convID)
	last := conv.LastMessage()
	if last == nil || last.Content != "Result: 42" {
		t.Errorf("Expected filtered content 'Result: 42', got %+v", last)
	}
}

func TestAttachFileWithoutIDExcludedFromSends(t *testing.T) {
	var fileUUIDs []string
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/files/upload", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`)) // no identifier
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			FileUUIDs []string `json:"file_uuids"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		fileUUIDs = body.FileUUIDs
		w.Write([]byte("data: [DONE]\n"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	path := filepath.Join(t.TempDir(), "conversations.json")
	st := store.New(store.NewFileStore(path))
	conv := st.Create()
	client := api.NewClient("test-key").WithBaseURL(server.URL + "/v1")
	orch := New(client, st, 10*time.Millisecond)

	att, err := orch.AttachFile(t.Context(), conv.ID, []byte("x"), "a.txt", "text/plain")
	if err == nil {
		t.Error("Expected the ambiguous-upload warning")
	}
	if att.HasFileID() {
		t.Error("Attachment should have no file ID")
	}

	got, _ := st.Get(conv.ID)
	if len(got.Attachments) != 1 || got.Attachments[0].Name != "a.txt" {
		t.Fatalf("Attachment not recorded: %+v", got.Attachments)
	}

	if !orch.Send(conv.ID, "use the file") {
		t.Fatal("Send was rejected")
	}
	waitIdle(t, orch)

	if len(fileUUIDs) != 0 {
		t.Errorf("ID-less attachment must not appear in file_uuids, got %v", fileUUIDs)
	}
}

func TestAttachFileWithID(t *testing.T) {
	const id = "123e4567-e89b-12d3-a456-426614174000"
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/files/upload", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"file_uuid":"` + id + `"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	path := filepath.Join(t.TempDir(), "conversations.json")
	st := store.New(store.NewFileStore(path))
	conv := st.Create()
	orch := New(api.NewClient("k").WithBaseURL(server.URL+"/v1"), st, 10*time.Millisecond)

	att, err := orch.AttachFile(t.Context(), conv.ID, []byte("x"), "b.txt", "")
	if err != nil {
		t.Fatalf("AttachFile failed: %v", err)
	}
	if att.FileID != id {
		t.Errorf("Expected file ID %q, got %q", id, att.FileID)
	}

	got, _ := st.Get(conv.ID)
	if ids := got.FileIDs(); len(ids) != 1 || ids[0] != id {
		t.Errorf("Expected file ID recorded on conversation, got %v", ids)
	}
}
