// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package creds provides the credential storage capability.
//
// The core never depends on a concrete secure-storage mechanism; it sees
// only the CredentialStore interface keyed by a fixed service+account
// pair. The file adapter here stores the credential with restricted
// permissions as a portable fallback; platform keychains can be plugged
// in behind the same interface.
package creds

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesbabiak/hatzchat-tui/internal/util"
)

// Fixed service+account pair identifying the stored credential.
const (
	Service = "hatzchat"
	Account = "api-key"
)

// ErrNotFound indicates no credential is stored for the requested pair.
var ErrNotFound = errors.New("credential not found")

// CredentialStore is the opaque secure key-value capability the core
// depends on.
type CredentialStore interface {
	// Save stores the credential for a service+account pair.
	Save(service, account, secret string) error
	// Load retrieves the credential, or ErrNotFound.
	Load(service, account string) (string, error)
	// Delete removes the credential. Deleting a missing credential is
	// not an error.
	Delete(service, account string) error
}

// =============================================================================
// FILE-BACKED STORE
// =============================================================================

// FileStore stores credentials as files with 0600 permissions under a
// 0700 directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed credential store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// path maps a service+account pair to a file path.
func (f *FileStore) path(service, account string) string {
	return filepath.Join(f.dir, service+"."+account+".secret")
}

// Save stores the credential with restricted permissions.
func (f *FileStore) Save(service, account, secret string) error {
	if err := os.MkdirAll(f.dir, 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}
	if err := util.AtomicWriteFile(f.path(service, account), []byte(secret), 0600); err != nil {
		return fmt.Errorf("failed to write credential: %w", err)
	}
	return nil
}

// Load retrieves the stored credential.
func (f *FileStore) Load(service, account string) (string, error) {
	data, err := os.ReadFile(f.path(service, account))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Delete removes the stored credential.
func (f *FileStore) Delete(service, account string) error {
	if err := os.Remove(f.path(service, account)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// =============================================================================
// IN-MEMORY STORE
// =============================================================================

// MemoryStore is an in-memory CredentialStore for tests.
type MemoryStore struct {
	secrets map[string]string
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[string]string)}
}

// Save stores the credential in memory.
func (m *MemoryStore) Save(service, account, secret string) error {
	m.secrets[service+"/"+account] = secret
	return nil
}

// Load retrieves the credential from memory.
func (m *MemoryStore) Load(service, account string) (string, error) {
	secret, ok := m.secrets[service+"/"+account]
	if !ok {
		return "", ErrNotFound
	}
	return secret, nil
}

// Delete removes the credential from memory.
func (m *MemoryStore) Delete(service, account string) error {
	delete(m.secrets, service+"/"+account)
	return nil
}
