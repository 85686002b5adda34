// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines the Bubble Tea messages exchanged between the async
// commands and the update loop.
package chat

import (
	"github.com/jamesbabiak/hatzchat-tui/internal/api"
	"github.com/jamesbabiak/hatzchat-tui/internal/model"
	"github.com/jamesbabiak/hatzchat-tui/internal/send"
)

// orchestratorEventMsg wraps a send orchestrator lifecycle event.
type orchestratorEventMsg struct {
	Event send.Event
}

// modelsLoadedMsg carries the model catalog fetched at startup.
type modelsLoadedMsg struct {
	Models []api.Model
	Err    error
}

// filesLoadedMsg carries the remote file listing for the /files command.
type filesLoadedMsg struct {
	Files []api.RemoteFile
	Err   error
}

// titleGeneratedMsg carries a model-suggested conversation title.
type titleGeneratedMsg struct {
	ConversationID string
	Title          string
	Err            error
}

// attachmentDoneMsg reports the outcome of a file upload.
type attachmentDoneMsg struct {
	Attachment model.Attachment
	Err        error
}

// statusExpiredMsg clears a transient status notice.
type statusExpiredMsg struct {
	Seq int
}
