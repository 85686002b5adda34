// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store owns the in-memory conversation collection, the current
// selection, and the persistence round-trip.
//
// # Key Types
//
//   - Store: single owner of all conversation state; every mutation
//     funnels through its create/update/delete entry points
//   - FileStore: JSON-array file persistence with atomic replace
//
// Callers receive read projections (deep copies) and submit
// whole-conversation replacements via Update; nothing outside this
// package edits stored conversations in place.
package store
