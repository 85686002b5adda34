// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages
// and file attachments.
//
// # Key Types
//
//   - Conversation: a persisted chat thread with messages, attachments,
//     model choice and timestamps
//   - Message: a single chat message with a role and content
//   - Attachment: a locally-tracked reference to a remote file
//
// Conversations are value-owned by the store; callers clone before
// mutating and submit whole-conversation replacements.
package model
