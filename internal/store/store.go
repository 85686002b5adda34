// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"log"
	"strings"
	"sync"

	"github.com/jamesbabiak/hatzchat-tui/internal/model"
)

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies what changed in the store.
type EventKind int

const (
	// EventLoaded fires after the persisted collection was read.
	EventLoaded EventKind = iota
	// EventCreated fires after a new conversation was added.
	EventCreated
	// EventUpdated fires after a conversation was replaced.
	EventUpdated
	// EventDeleted fires after a conversation was removed.
	EventDeleted
	// EventSelected fires after the selection changed.
	EventSelected
)

// Event describes a single store change for subscribers.
type Event struct {
	Kind           EventKind
	ConversationID string
}

// =============================================================================
// STORE
// =============================================================================

// Store is the single owner of the conversation collection and selection.
//
// All mutations go through its entry points, guarded by one mutex; the
// flush timer and the stream consumer never touch conversations directly.
// Subscribers are notified outside the lock.
type Store struct {
	mu sync.Mutex

	persist       *FileStore
	conversations []model.Conversation
	selectedID    string
	lastModel     string

	subscribers []func(Event)
}

// New creates a store backed by the given file store.
func New(persist *FileStore) *Store {
	return &Store{
		persist:       persist,
		conversations: []model.Conversation{},
	}
}

// Subscribe registers a change listener. Subscribers are optional; the
// store behaves the same with none.
func (s *Store) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// notify delivers an event to all subscribers. Called outside the lock.
func (s *Store) notify(ev Event) {
	s.mu.Lock()
	subs := make([]func(Event), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the persisted collection, selects the first conversation if
// none is selected, and syncs the last-used model from the selection.
func (s *Store) Load() {
	convs := s.persist.Load()

	s.mu.Lock()
	s.conversations = convs
	if s.selectedID == "" && len(convs) > 0 {
		s.selectedID = convs[0].ID
	}
	if conv, ok := s.findLocked(s.selectedID); ok && conv.Model != "" {
		s.lastModel = conv.Model
	}
	s.mu.Unlock()

	s.notify(Event{Kind: EventLoaded})
}

// Save writes the full collection. Persistence faults are reported to the
// caller; most call sites log and carry on so a storage fault never
// interrupts the user.
func (s *Store) Save() error {
	s.mu.Lock()
	convs := s.cloneAllLocked()
	s.mu.Unlock()
	return s.persist.Save(convs)
}

// saveBestEffort persists and swallows the error.
func (s *Store) saveBestEffort() {
	if err := s.Save(); err != nil {
		log.Printf("store: persist failed: %v", err)
	}
}

// =============================================================================
// READ PROJECTIONS
// =============================================================================

// Conversations returns deep copies of all conversations in stored order.
func (s *Store) Conversations() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloneAllLocked()
}

// Get returns a deep copy of the conversation with the given id.
func (s *Store) Get(id string) (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.findLocked(id); ok {
		return conv.Clone(), true
	}
	return model.Conversation{}, false
}

// Selected returns a deep copy of the selected conversation.
func (s *Store) Selected() (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.findLocked(s.selectedID); ok {
		return conv.Clone(), true
	}
	return model.Conversation{}, false
}

// SelectedID returns the id of the selected conversation, or "".
func (s *Store) SelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// Count returns the number of conversations.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// LastModel returns the most recently used model identifier.
func (s *Store) LastModel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastModel
}

// SetLastModel records the model to use for new conversations.
func (s *Store) SetLastModel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name != "" {
		s.lastModel = name
	}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Create adds a new conversation using the last-used model, selects it,
// and persists.
func (s *Store) Create() model.Conversation {
	s.mu.Lock()
	conv := model.NewConversation(s.lastModel)
	s.conversations = append(s.conversations, conv)
	s.selectedID = conv.ID
	s.mu.Unlock()

	s.saveBestEffort()
	s.notify(Event{Kind: EventCreated, ConversationID: conv.ID})
	return conv.Clone()
}

// Delete removes the conversation with the given id. If it was selected,
// the first remaining conversation (or nothing) becomes selected.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	idx := -1
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.conversations = append(s.conversations[:idx], s.conversations[idx+1:]...)
	if s.selectedID == id {
		s.selectedID = ""
		if len(s.conversations) > 0 {
			s.selectedID = s.conversations[0].ID
		}
	}
	s.mu.Unlock()

	s.saveBestEffort()
	s.notify(Event{Kind: EventDeleted, ConversationID: id})
}

// Update replaces the conversation with a matching id. When the
// replacement names a non-empty model it becomes the last-used model.
// Persisting is optional: flushes during streaming update in memory only.
func (s *Store) Update(conv model.Conversation, persist bool) {
	s.mu.Lock()
	replaced := false
	for i := range s.conversations {
		if s.conversations[i].ID == conv.ID {
			s.conversations[i] = conv.Clone()
			replaced = true
			break
		}
	}
	if replaced && conv.Model != "" {
		s.lastModel = conv.Model
	}
	s.mu.Unlock()

	if !replaced {
		return
	}
	if persist {
		s.saveBestEffort()
	}
	s.notify(Event{Kind: EventUpdated, ConversationID: conv.ID})
}

// Select changes the selection. A nonexistent id simply clears the
// selection; it is never an error.
func (s *Store) Select(id string) {
	s.mu.Lock()
	if _, ok := s.findLocked(id); ok {
		s.selectedID = id
	} else {
		s.selectedID = ""
	}
	selected := s.selectedID
	s.mu.Unlock()

	s.notify(Event{Kind: EventSelected, ConversationID: selected})
}

// Rename sets a conversation's title. Empty or whitespace-only titles are
// rejected and the current title kept.
func (s *Store) Rename(id, title string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}

	s.mu.Lock()
	conv, ok := s.findLocked(id)
	if !ok {
		s.mu.Unlock()
		return false
	}
	conv.Title = title
	conv.Touch()
	s.mu.Unlock()

	s.saveBestEffort()
	s.notify(Event{Kind: EventUpdated, ConversationID: id})
	return true
}

// =============================================================================
// HELPERS
// =============================================================================

// findLocked returns a pointer into the backing slice. Caller holds mu.
func (s *Store) findLocked(id string) (*model.Conversation, bool) {
	if id == "" {
		return nil, false
	}
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			return &s.conversations[i], true
		}
	}
	return nil, false
}

// cloneAllLocked deep-copies the collection. Caller holds mu.
func (s *Store) cloneAllLocked() []model.Conversation {
	out := make([]model.Conversation, len(s.conversations))
	for i := range s.conversations {
		out[i] = s.conversations[i].Clone()
	}
	return out
}
