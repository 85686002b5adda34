// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jamesbabiak/hatzchat-tui/internal/util"
)

// DefaultTitle is the placeholder title given to a new conversation until
// the first user message supplies a real one.
const DefaultTitle = "New Chat"

// TitleMaxRunes is the length the auto-generated title is cut to.
const TitleMaxRunes = 48

// =============================================================================
// ATTACHMENT TYPE
// =============================================================================

// Attachment is a locally-tracked reference to a remote file.
//
// FileID may be empty when the upload response could not be parsed for an
// identifier; such an attachment stays visible in the conversation but is
// never referenced in a chat request.
type Attachment struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	FileID string `json:"fileId,omitempty"`
}

// NewAttachment creates an attachment with a generated ID.
func NewAttachment(name, fileID string) Attachment {
	return Attachment{
		ID:     uuid.NewString(),
		Name:   name,
		FileID: fileID,
	}
}

// HasFileID reports whether the attachment carries a usable remote
// identifier.
func (a Attachment) HasFileID() bool {
	return a.FileID != ""
}

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a complete chat thread with history and metadata.
type Conversation struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Model       string       `json:"model"`
	Messages    []Message    `json:"messages"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// NewConversation creates a new conversation with a generated ID and the
// default placeholder title.
func NewConversation(modelName string) Conversation {
	now := time.Now()
	return Conversation{
		ID:          uuid.NewString(),
		Title:       DefaultTitle,
		Model:       modelName,
		Messages:    []Message{},
		Attachments: []Attachment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Touch refreshes the updated-at timestamp. Every mutation goes through
// this so UpdatedAt never falls behind CreatedAt.
func (c *Conversation) Touch() {
	c.UpdatedAt = time.Now()
}

// AppendMessage appends a message and touches the conversation.
func (c *Conversation) AppendMessage(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.Touch()
}

// AppendAttachment appends an attachment and touches the conversation.
func (c *Conversation) AppendAttachment(att Attachment) {
	c.Attachments = append(c.Attachments, att)
	c.Touch()
}

// LastMessage returns a pointer to the most recent message, or nil.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// MessageByID returns a pointer to the message with the given ID, or nil.
func (c *Conversation) MessageByID(id string) *Message {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return &c.Messages[i]
		}
	}
	return nil
}

// FileIDs returns the remote identifiers of all attachments that carry
// one, in attachment order.
func (c *Conversation) FileIDs() []string {
	ids := make([]string, 0, len(c.Attachments))
	for _, att := range c.Attachments {
		if att.HasFileID() {
			ids = append(ids, att.FileID)
		}
	}
	return ids
}

// HasDefaultTitle reports whether the title is still the placeholder.
func (c *Conversation) HasDefaultTitle() bool {
	return c.Title == DefaultTitle || strings.TrimSpace(c.Title) == ""
}

// TitleFromPrompt sets the title from the first user prompt if the title
// is still the default placeholder.
func (c *Conversation) TitleFromPrompt(prompt string) {
	if !c.HasDefaultTitle() {
		return
	}
	title := util.SingleLine(strings.TrimSpace(prompt))
	title = util.TruncateRunesNoEllipsis(title, TitleMaxRunes)
	if title != "" {
		c.Title = title
	}
}

// Preview returns a short single-line preview from the first user message.
func (c *Conversation) Preview(maxRunes int) string {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser && msg.Content != "" {
			return util.TruncateRunes(util.SingleLine(msg.Content), maxRunes)
		}
	}
	return ""
}

// Clone creates a deep copy of the conversation. Callers mutate the clone
// and submit it back through the store's update entry point.
func (c *Conversation) Clone() Conversation {
	clone := *c
	clone.Messages = make([]Message, len(c.Messages))
	copy(clone.Messages, c.Messages)
	clone.Attachments = make([]Attachment, len(c.Attachments))
	copy(clone.Attachments, c.Attachments)
	return clone
}

// ExportMarkdown renders the conversation as a Markdown document.
func (c *Conversation) ExportMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# " + c.Title + "\n\n")
	sb.WriteString("Created: " + c.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range c.Messages {
		sb.WriteString("**" + msg.Role.DisplayName() + "** (" + msg.CreatedAt.Format("15:04") + "):\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}
