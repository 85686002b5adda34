// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package send

import (
	"regexp"
	"strings"
)

// Tool/debug wrapper artifacts must never reach the visible transcript.
// The per-token check is a heuristic substring filter, not a parser: a
// details block split across streamed chunks can leak tokens that were
// flushed before the closing tag arrived. CleanFinal repairs any complete
// block in the accumulated text at finalization.

const (
	detailsOpen  = "<details"
	detailsClose = "</details"
	toolResult   = "Tool result"
)

// detailsBlock matches a complete details block, across lines,
// non-greedily so adjacent blocks are removed separately.
var detailsBlock = regexp.MustCompile(`(?s)<details[^>]*>.*?</details>`)

// FilterDelta suppresses a single streamed delta when it carries debug
// artifacts: a details tag, or an exit_code/output JSON fragment pair.
// Suppressed deltas are treated as empty.
func FilterDelta(delta string) string {
	if strings.Contains(delta, detailsOpen) || strings.Contains(delta, detailsClose) {
		return ""
	}
	if strings.Contains(delta, `"exit_code"`) && strings.Contains(delta, `"output"`) {
		return ""
	}
	return delta
}

// CleanFinal cleans the accumulated assistant text at finalization:
// complete details blocks are removed, any line mentioning a tool result
// is dropped, and surrounding whitespace is trimmed.
func CleanFinal(text string) string {
	text = detailsBlock.ReplaceAllString(text, "")

	if strings.Contains(text, toolResult) {
		lines := strings.Split(text, "\n")
		kept := lines[:0]
		for _, line := range lines {
			if strings.Contains(line, toolResult) {
				continue
			}
			kept = append(kept, line)
		}
		text = strings.Join(kept, "\n")
	}

	return strings.TrimSpace(text)
}
