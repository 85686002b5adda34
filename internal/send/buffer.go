// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package send

import (
	"strings"
	"sync"
)

// DeltaBuffer accumulates streamed deltas between flushes.
//
// The stream consumer writes from its goroutine while the flush timer
// drains from another, so UI-visible updates stay batched instead of
// arriving per token. A mutex guards the single pending-delta buffer;
// it is the only state the two tasks share.
type DeltaBuffer struct {
	mu      sync.Mutex
	pending strings.Builder
}

// NewDeltaBuffer creates an empty buffer.
func NewDeltaBuffer() *DeltaBuffer {
	return &DeltaBuffer{}
}

// Write appends a delta to the pending buffer.
func (b *DeltaBuffer) Write(delta string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending.WriteString(delta)
}

// Drain returns and clears all pending content. The boolean is false when
// there was nothing to flush.
func (b *DeltaBuffer) Drain() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending.Len() == 0 {
		return "", false
	}
	content := b.pending.String()
	b.pending.Reset()
	return content, true
}

// Len returns the number of pending bytes.
func (b *DeltaBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending.Len()
}

// Reset discards pending content without flushing. Used when a send is
// canceled so uncommitted fragments never reach the transcript.
func (b *DeltaBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending.Reset()
}
