// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"regexp"
	"strings"
)

// uuidPattern matches the first 8-4-4-4-12 hex grouping in a response
// body, case-insensitive. The upload response schema is unspecified by the
// provider, so scanning raw text is the accepted (fragile) heuristic: a
// UUID echoed from request data would be a false positive.
var uuidPattern = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

// ListFiles retrieves the files known to the provider's storage.
//
// The listing endpoint is an absolute path on the API host. Resolving it
// relative to the versioned base URL is a known foot-gun: the base already
// contains a version segment the listing route does not have.
func (c *Client) ListFiles(ctx context.Context) ([]RemoteFile, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	endpoint, err := c.filesURL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var parsed filesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return parsed.Data, nil
}

// UploadFile uploads file content as multipart/form-data under the field
// name "file".
//
// The response schema is unspecified (an empty object is legal), so the
// raw body is scanned for the first UUID-shaped token. When none is found
// the call still succeeds: the result carries the raw body for diagnostics
// and the returned error is an UploadAmbiguousError the caller may surface
// as a warning.
func (c *Client) UploadFile(ctx context.Context, data []byte, filename, mimeType string) (UploadResult, error) {
	if !c.IsConfigured() {
		return UploadResult{}, ErrNotConfigured
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return UploadResult{}, fmt.Errorf("failed to write form data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files/upload", &buf)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(CredentialHeader, c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("User-Agent", "hatzchat-tui/0.1.0")

	body, err := c.do(req)
	if err != nil {
		return UploadResult{}, err
	}

	raw := string(body)
	result := UploadResult{RawBody: strings.TrimSpace(raw)}
	if id := uuidPattern.FindString(raw); id != "" {
		result.FileID = id
		return result, nil
	}
	return result, &UploadAmbiguousError{RawBody: result.RawBody}
}
