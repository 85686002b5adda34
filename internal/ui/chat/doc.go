// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// The view is a Bubble Tea model wrapping a transcript viewport, a
// multi-line input, and a status line. Streaming updates arrive through
// the send orchestrator's event channel and are applied to the viewport
// at the orchestrator's flush cadence, so the render loop never sees
// per-token churn.
package chat
