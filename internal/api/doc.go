// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the client for the HatzAI chat-completion API.
//
// The client covers four operations: listing models, listing remote files,
// uploading a file, and chat completion in both single-shot and streaming
// form. Streaming responses are newline-delimited, optionally prefixed
// with "data:", and terminated by a literal [DONE] sentinel.
//
// # Error Taxonomy
//
//   - TransportError: no usable HTTP response was obtained
//   - HTTPError: a non-2xx response, carrying status code and raw body
//   - DecodeError: a malformed JSON body
//   - UploadAmbiguousError: upload succeeded but no file identifier could
//     be extracted from the response (a warning, not a failure)
package api
