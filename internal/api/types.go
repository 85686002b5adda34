// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

// ChatMessage represents a single message in a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`    // "system", "user" or "assistant"
	Content string `json:"content"` // The message content
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: content}
}

// Model describes a model available from the provider.
type Model struct {
	Name        string `json:"name"` // wire identifier
	Developer   string `json:"developer"`
	DisplayName string `json:"display_name"`
	MaxTokens   int    `json:"max_tokens"`
	Vision      bool   `json:"vision"`
}

// modelsResponse is the wire shape of the model-listing endpoint.
type modelsResponse struct {
	Data []Model `json:"data"`
}

// RemoteFile is a read-only projection of a file known to the provider's
// storage. Never persisted locally; fetched on demand.
type RemoteFile struct {
	FileUUID string `json:"file_uuid"`
	FileName string `json:"file_name"`
	Tokens   int    `json:"tokens,omitempty"`
	Bytes    int64  `json:"bytes,omitempty"`
}

// filesResponse is the wire shape of the file-listing endpoint.
type filesResponse struct {
	Data []RemoteFile `json:"data"`
}

// chatRequest is the body of a chat completion request.
type chatRequest struct {
	Model             string        `json:"model"`
	Messages          []ChatMessage `json:"messages"`
	Stream            bool          `json:"stream"`
	AutoToolSelection bool          `json:"auto_tool_selection"`
	FileUUIDs         []string      `json:"file_uuids"`
}

// chatResponse is the body of a non-streaming chat completion response.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Role    string `json:"role"`
		} `json:"message"`
	} `json:"choices"`
	Model string `json:"model"`
}

// streamEvent is one JSON line of a streaming chat completion response.
// Lines that fail to decode as this shape are passed through raw.
type streamEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// UploadResult is the outcome of a file upload. The response schema is
// unspecified by the provider, so the client keeps the raw body and the
// first UUID-shaped token found in it, if any.
type UploadResult struct {
	RawBody string
	FileID  string // empty when no UUID pattern was found
}
