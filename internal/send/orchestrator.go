// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package send

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jamesbabiak/hatzchat-tui/internal/api"
	"github.com/jamesbabiak/hatzchat-tui/internal/model"
	"github.com/jamesbabiak/hatzchat-tui/internal/store"
)

// DefaultFlushInterval is how often pending deltas are flushed into the
// assistant placeholder. UI-visible updates are batched on this cadence
// rather than applied per token.
const DefaultFlushInterval = 80 * time.Millisecond

// SystemInstruction is prepended to every chat request.
const SystemInstruction = "You are a helpful assistant. Structure your answers clearly using short paragraphs and plain text."

// =============================================================================
// STATES AND EVENTS
// =============================================================================

// State is the send state machine's current position.
type State int

const (
	// StateIdle means no send is in flight.
	StateIdle State = iota
	// StateSending means the user and placeholder messages are being
	// committed before the network call opens.
	StateSending
	// StateStreaming means deltas are arriving.
	StateStreaming
	// StateFinalizing means the stream ended and cleanup is running.
	StateFinalizing
)

// EventKind identifies an orchestrator lifecycle event.
type EventKind int

const (
	// EventStarted fires when a send leaves Idle.
	EventStarted EventKind = iota
	// EventFlushed fires after pending deltas were applied to the
	// placeholder message.
	EventFlushed
	// EventFinished fires after successful finalization.
	EventFinished
	// EventFailed fires after an error was recorded and persisted.
	EventFailed
	// EventCanceled fires after a user-initiated stop.
	EventCanceled
)

// Event describes one orchestrator lifecycle change.
type Event struct {
	Kind           EventKind
	ConversationID string
	Err            string
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator coordinates a single send operation at a time.
//
// At most one send is in flight; submits while busy are rejected silently,
// never queued. The stream consumer and the flush ticker are torn down
// together through the send's cancellation scope, and a generation token
// keeps stale task results from mutating the store after a stop.
type Orchestrator struct {
	mu sync.Mutex
	// applyMu serializes every drain-and-apply of buffered deltas so the
	// ticker and the finalizer never mutate the store concurrently.
	applyMu sync.Mutex

	client *api.Client
	store  *store.Store
	buffer *DeltaBuffer

	flushInterval time.Duration
	systemPrompt  string

	state      State
	generation uint64
	cancel     context.CancelFunc
	convID     string
	msgID      string

	lastError string

	events chan Event
}

// New creates an orchestrator bound to an API client and a store.
func New(client *api.Client, st *store.Store, flushInterval time.Duration) *Orchestrator {
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	return &Orchestrator{
		client:        client,
		store:         st,
		buffer:        NewDeltaBuffer(),
		flushInterval: flushInterval,
		systemPrompt:  SystemInstruction,
		events:        make(chan Event, 64),
	}
}

// SetSystemPrompt overrides the built-in system instruction. Blank input
// keeps the default. Call before the first Send.
func (o *Orchestrator) SetSystemPrompt(prompt string) {
	if trimmed := strings.TrimSpace(prompt); trimmed != "" {
		o.systemPrompt = trimmed
	}
}

// Events returns the lifecycle event channel. Listening is optional.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Busy reports whether a send is in flight.
func (o *Orchestrator) Busy() bool {
	return o.State() != StateIdle
}

// LastError returns the most recent send error message, or "".
func (o *Orchestrator) LastError() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastError
}

// emit delivers an event without ever blocking a send.
func (o *Orchestrator) emit(ev Event) {
	select {
	case o.events <- ev:
	default:
	}
}

// =============================================================================
// SEND
// =============================================================================

// Send starts a send operation for the given conversation.
//
// Returns false without side effects when the trimmed prompt is empty,
// no credential is configured, the conversation does not exist, or a send
// is already in flight (rejected, not queued).
//
// On acceptance the user message, the conditional title, and the empty
// assistant placeholder are appended and persisted synchronously before
// any streaming begins, so an interrupted session never loses the
// user's sent message.
func (o *Orchestrator) Send(convID, prompt string) bool {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return false
	}
	if !o.client.IsConfigured() {
		o.mu.Lock()
		o.lastError = api.ErrNotConfigured.Error()
		o.mu.Unlock()
		return false
	}

	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return false
	}
	o.state = StateSending
	o.generation++
	gen := o.generation
	o.mu.Unlock()

	conv, ok := o.store.Get(convID)
	if !ok {
		o.mu.Lock()
		o.state = StateIdle
		o.mu.Unlock()
		return false
	}

	conv.AppendMessage(model.NewUserMessage(trimmed))
	conv.TitleFromPrompt(trimmed)
	placeholder := model.NewAssistantPlaceholder()
	conv.AppendMessage(placeholder)
	o.store.Update(conv, true)

	modelName := conv.Model
	if modelName == "" {
		modelName = o.store.LastModel()
	}
	messages := requestMessages(conv, o.systemPrompt)
	fileIDs := conv.FileIDs()

	ctx, cancel := context.WithCancel(context.Background())

	o.mu.Lock()
	o.cancel = cancel
	o.convID = conv.ID
	o.msgID = placeholder.ID
	o.state = StateStreaming
	o.buffer.Reset()
	o.mu.Unlock()

	go o.runTicker(ctx, gen)
	go o.runStream(ctx, gen, modelName, messages, fileIDs)

	o.emit(Event{Kind: EventStarted, ConversationID: conv.ID})
	return true
}

// requestMessages builds the wire messages: the system instruction, then
// the full prior context excluding the empty placeholder.
func requestMessages(conv model.Conversation, systemPrompt string) []api.ChatMessage {
	messages := make([]api.ChatMessage, 0, len(conv.Messages)+1)
	messages = append(messages, api.NewSystemMessage(systemPrompt))
	for _, msg := range conv.Messages {
		if msg.Role == model.RoleAssistant && msg.Content == "" {
			continue
		}
		messages = append(messages, api.ChatMessage{
			Role:    msg.Role.String(),
			Content: msg.Content,
		})
	}
	return messages
}

// runTicker flushes pending deltas on a fixed cadence until the send's
// context is torn down.
func (o *Orchestrator) runTicker(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(o.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.flush(gen)
		}
	}
}

// runStream consumes the streaming response and hands off to finish.
func (o *Orchestrator) runStream(ctx context.Context, gen uint64, modelName string, messages []api.ChatMessage, fileIDs []string) {
	_, err := o.client.ChatComplete(ctx, modelName, messages, fileIDs, true, func(delta string) {
		if filtered := FilterDelta(delta); filtered != "" {
			o.buffer.Write(filtered)
		}
	})
	o.finish(gen, err)
}

// flush applies pending deltas to the placeholder message in memory.
// Persistence during streaming is explicitly avoided: disk I/O on a fast
// token cadence stalls the render loop.
func (o *Orchestrator) flush(gen uint64) {
	o.applyMu.Lock()
	defer o.applyMu.Unlock()
	o.flushPendingLocked(gen)
}

// flushPendingLocked drains the buffer into the placeholder. Caller holds
// applyMu. Stale generations are discarded without draining.
func (o *Orchestrator) flushPendingLocked(gen uint64) {
	o.mu.Lock()
	if o.generation != gen {
		o.mu.Unlock()
		return
	}
	convID, msgID := o.convID, o.msgID
	o.mu.Unlock()

	content, ok := o.buffer.Drain()
	if !ok {
		return
	}

	conv, ok := o.store.Get(convID)
	if !ok {
		return
	}
	msg := conv.MessageByID(msgID)
	if msg == nil {
		return
	}
	msg.Content += content
	o.store.Update(conv, false)
	o.emit(Event{Kind: EventFlushed, ConversationID: convID})
}

// finish runs once the stream ends, successfully or not.
func (o *Orchestrator) finish(gen uint64, err error) {
	o.mu.Lock()
	if o.generation != gen {
		// A stop already won the race; this result is stale.
		o.mu.Unlock()
		return
	}
	if errors.Is(err, context.Canceled) {
		// Cancellation is a normal terminal state: flushed content is
		// retained, nothing further is applied or persisted.
		o.state = StateIdle
		o.cancel = nil
		o.mu.Unlock()
		o.buffer.Reset()
		return
	}
	o.state = StateFinalizing
	convID, msgID := o.convID, o.msgID
	cancel := o.cancel
	o.cancel = nil
	o.mu.Unlock()

	// Tear down the flush ticker before the final apply.
	if cancel != nil {
		cancel()
	}

	o.applyMu.Lock()
	o.flushPendingLocked(gen)

	conv, ok := o.store.Get(convID)
	if ok {
		if msg := conv.MessageByID(msgID); msg != nil {
			if err == nil {
				msg.Content = CleanFinal(msg.Content)
			} else {
				if msg.Content != "" {
					msg.Content += "\n\n"
				}
				msg.Content += "Error: " + err.Error()
			}
			conv.Touch()
			o.store.Update(conv, true)
		}
	}
	o.applyMu.Unlock()

	o.mu.Lock()
	o.state = StateIdle
	if err != nil {
		o.lastError = err.Error()
	} else {
		o.lastError = ""
	}
	o.mu.Unlock()

	if err != nil {
		o.emit(Event{Kind: EventFailed, ConversationID: convID, Err: err.Error()})
		return
	}
	o.emit(Event{Kind: EventFinished, ConversationID: convID})
}

// Stop cancels the in-flight send.
//
// The flush ticker and the network read stop synchronously through the
// shared cancellation scope; the generation bump discards any buffered
// result a stale task tries to apply afterwards. Content already flushed
// stays in the assistant message and is not persisted.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.state == StateIdle {
		o.mu.Unlock()
		return
	}
	o.generation++
	o.state = StateIdle
	cancel := o.cancel
	o.cancel = nil
	convID := o.convID
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.buffer.Reset()
	o.emit(Event{Kind: EventCanceled, ConversationID: convID})
}

// =============================================================================
// ATTACHMENTS
// =============================================================================

// AttachFile uploads file content and records the attachment on the
// conversation.
//
// When the upload response yields no identifier the attachment is still
// added (locally visible, excluded from future file_uuids) and the
// returned error is the UploadAmbiguousError carrying the raw body for
// display as a warning.
func (o *Orchestrator) AttachFile(ctx context.Context, convID string, data []byte, filename, mimeType string) (model.Attachment, error) {
	result, err := o.client.UploadFile(ctx, data, filename, mimeType)
	var ambiguous *api.UploadAmbiguousError
	if err != nil && !errors.As(err, &ambiguous) {
		return model.Attachment{}, err
	}

	conv, ok := o.store.Get(convID)
	if !ok {
		return model.Attachment{}, errors.New("conversation not found")
	}

	att := model.NewAttachment(filename, result.FileID)
	conv.AppendAttachment(att)
	o.store.Update(conv, true)
	return att, err
}
