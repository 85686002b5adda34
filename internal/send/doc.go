// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package send coordinates one chat send operation from user input through
// placeholder creation, streaming, throttled flushing, finalization and
// error recovery.
//
// # Key Components
//
//   - Orchestrator: the send state machine
//     (Idle → Sending → Streaming → Finalizing → Idle)
//   - DeltaBuffer: the single pending-delta buffer connecting the stream
//     consumer to the periodic flush timer
//   - FilterDelta / CleanFinal: debug-artifact filtering at the per-token
//     level and over the accumulated text at finalization
//
// The stream consumer and the flush timer run as separate goroutines but
// communicate only through the DeltaBuffer; every conversation mutation
// goes through the store's update entry point. A generation token guards
// against stale tasks applying results after cancellation.
package send
