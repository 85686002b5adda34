// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Configuration constants for the HatzAI API.
const (
	// DefaultBaseURL is the versioned base for most endpoints.
	DefaultBaseURL = "https://api.hatz.ai/v1"

	// DefaultFilesPath is the absolute path of the file-listing endpoint.
	// It must NOT be resolved relative to the versioned base: the listing
	// endpoint lives outside the /v1 prefix.
	DefaultFilesPath = "/files"

	// CredentialHeader is the header carrying the API key on every request.
	CredentialHeader = "X-API-Key"

	// DefaultTimeout is the timeout for single-shot API requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed single-shot response body size.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

var (
	// Shared HTTP client with connection pooling for single-shot requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests. No timeout:
	// lifetime is controlled via context (user-initiated Stop).
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
)

// Client is a client for the HatzAI chat-completion API.
type Client struct {
	apiKey     string
	baseURL    string
	filesPath  string
	httpClient *http.Client
	streamer   *http.Client
}

// NewClient creates a new API client with the given API key.
//
// If the key is empty the client is still created but requests fail with
// ErrNotConfigured.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultBaseURL,
		filesPath:  DefaultFilesPath,
		httpClient: sharedHTTPClient,
		streamer:   sharedStreamingClient,
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimSuffix(base, "/")
	return c
}

// WithFilesPath sets a custom absolute path for the file-listing endpoint.
func (c *Client) WithFilesPath(path string) *Client {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	c.filesPath = path
	return c
}

// WithTimeout sets the single-shot request timeout. The streaming client
// stays timeout-free; stream lifetime is bounded by context instead.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 && d != DefaultTimeout {
		c.httpClient = &http.Client{
			Transport: sharedHTTPClient.Transport,
			Timeout:   d,
		}
	}
	return c
}

// SetAPIKey replaces the credential used on subsequent requests.
func (c *Client) SetAPIKey(apiKey string) {
	c.apiKey = strings.TrimSpace(apiKey)
}

// IsConfigured returns true if the client has an API key configured.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// setHeaders sets the required headers for API requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set(CredentialHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "hatzchat-tui/0.1.0")
}

// filesURL resolves the file-listing endpoint as an absolute path on the
// API host, deliberately ignoring any version segment in the base URL.
func (c *Client) filesURL() (string, error) {
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	parsed.Path = c.filesPath
	parsed.RawQuery = ""
	return parsed.String(), nil
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, &TransportError{Err: fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)}
	}
	return body, nil
}

// do performs a single-shot request and returns the raw 2xx body.
// Non-2xx responses become HTTPError carrying the raw body text.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// =============================================================================
// MODEL LISTING
// =============================================================================

// ListModels retrieves the available models.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/chat/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var parsed modelsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return parsed.Data, nil
}

// =============================================================================
// CHAT COMPLETION
// =============================================================================

// ChatComplete performs a chat completion request.
//
// With stream=false the first choice's message content is returned. With
// stream=true the call returns an empty string once the stream finishes;
// content arrives incrementally through onDelta. A fixed
// auto_tool_selection flag is always sent, matching the wire contract.
func (c *Client) ChatComplete(ctx context.Context, model string, messages []ChatMessage, fileIDs []string, stream bool, onDelta func(delta string)) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	if fileIDs == nil {
		fileIDs = []string{}
	}
	reqBody := chatRequest{
		Model:             model,
		Messages:          messages,
		Stream:            stream,
		AutoToolSelection: true,
		FileUUIDs:         fileIDs,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	if !stream {
		body, err := c.do(req)
		if err != nil {
			return "", err
		}
		var parsed chatResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", &DecodeError{Err: err}
		}
		if len(parsed.Choices) == 0 {
			return "", nil
		}
		return parsed.Choices[0].Message.Content, nil
	}

	resp, err := c.streamer.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	// Pre-check the status before consuming the body as a stream: on
	// failure the body is an error payload, not token lines.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return "", &HTTPError{Status: resp.StatusCode, Body: string(body)}
	}

	if err := ReadStream(ctx, resp.Body, onDelta); err != nil {
		return "", err
	}
	return "", nil
}
