// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
)

// ErrNotConfigured indicates the API key is not set.
var ErrNotConfigured = errors.New("API key not configured")

// TransportError indicates the request produced no usable HTTP response
// (connection refused, DNS failure, broken stream).
type TransportError struct {
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPError represents a non-2xx response. The raw body text doubles as
// the user-visible message, surfaced verbatim.
type HTTPError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// DecodeError indicates a malformed JSON response body.
type DecodeError struct {
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UploadAmbiguousError indicates an upload succeeded but the response
// contained no recognizable file identifier. The raw body is kept for
// user-visible diagnostics. Callers treat this as a warning: the upload
// call itself did not fail.
type UploadAmbiguousError struct {
	RawBody string
}

// Error implements the error interface.
func (e *UploadAmbiguousError) Error() string {
	if e.RawBody != "" {
		return fmt.Sprintf("upload succeeded but no file identifier was found in the response: %s", e.RawBody)
	}
	return "upload succeeded but no file identifier was found in the response"
}
