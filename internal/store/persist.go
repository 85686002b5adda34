// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jamesbabiak/hatzchat-tui/internal/model"
	"github.com/jamesbabiak/hatzchat-tui/internal/util"
)

// FileStore persists the conversation collection as a single
// pretty-printed JSON array file. Timestamps are RFC 3339 text and
// identifiers are canonical UUID strings, both via encoding/json.
type FileStore struct {
	path string
}

// NewFileStore creates a file store writing to the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the target file path.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the persisted collection.
//
// A missing file means a fresh install and a malformed file is recovered
// from by starting empty (lossy but safe); neither is an error. Load
// never fails the caller.
func (f *FileStore) Load() []model.Conversation {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("store: unreadable state file %s: %v", f.path, err)
		}
		return []model.Conversation{}
	}

	var convs []model.Conversation
	if err := json.Unmarshal(data, &convs); err != nil {
		log.Printf("store: corrupt state file %s, starting empty: %v", f.path, err)
		return []model.Conversation{}
	}
	if convs == nil {
		convs = []model.Conversation{}
	}
	return convs
}

// Save writes the full collection with atomic replace semantics: a
// half-written file is never visible at the target path.
func (f *FileStore) Save(convs []model.Conversation) error {
	if convs == nil {
		convs = []model.Conversation{}
	}
	data, err := json.MarshalIndent(convs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode conversations: %w", err)
	}
	if err := util.AtomicWriteFile(f.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write conversations: %w", err)
	}
	return nil
}
