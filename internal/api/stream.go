// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
)

// dataPrefix is the optional line prefix of the streaming protocol.
// Exactly these five characters are stripped; surrounding whitespace of
// the remainder is trimmed afterwards.
const dataPrefix = "data:"

// doneSentinel terminates a stream successfully with no further
// processing of the body.
const doneSentinel = "[DONE]"

// ReadStream consumes a 2xx streaming response body line by line and
// invokes onDelta for every extracted content delta.
//
// Protocol: UTF-8 text, newline-delimited. Each line may carry a "data:"
// prefix. A cleaned line equal to [DONE] ends the stream; an empty cleaned
// line is ignored. A non-empty line is first tried as JSON {type,message};
// on decode failure the raw cleaned line itself becomes the delta, so no
// data is ever dropped.
//
// Lines are only emitted once a full terminator has been observed;
// bufio buffers partial lines (including split multi-byte characters)
// across transport chunks. On cancellation the partial line at the point
// of cancellation is never committed.
func ReadStream(ctx context.Context, body io.Reader, onDelta func(delta string)) error {
	reader := bufio.NewReader(body)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &TransportError{Err: err}
		}

		if stop := processLine(line, onDelta); stop {
			return nil
		}

		if err == io.EOF {
			return nil
		}
	}
}

// processLine cleans one raw line and dispatches its delta.
// Returns true when the [DONE] sentinel was seen.
func processLine(raw string, onDelta func(delta string)) bool {
	line := strings.TrimRight(raw, "\r\n")
	if strings.HasPrefix(line, dataPrefix) {
		line = line[len(dataPrefix):]
	}
	line = strings.TrimSpace(line)

	if line == "" {
		return false
	}
	if line == doneSentinel {
		return true
	}

	var event streamEvent
	if err := json.Unmarshal([]byte(line), &event); err == nil {
		if event.Message != "" {
			onDelta(event.Message)
		}
		return false
	}

	// Fallback: unparseable lines pass through raw rather than failing
	// the whole stream.
	onDelta(line)
	return false
}
