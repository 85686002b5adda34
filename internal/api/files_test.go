// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUploadFileMultipartShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/files/upload" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("Not a multipart request: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("Missing form field 'file': %v", err)
		}
		defer file.Close()
		if header.Filename != "notes.txt" {
			t.Errorf("Expected filename 'notes.txt', got %q", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "text/plain" {
			t.Errorf("Expected part content type 'text/plain', got %q", ct)
		}
		content, _ := io.ReadAll(file)
		if string(content) != "hello" {
			t.Errorf("Expected file content 'hello', got %q", content)
		}
		w.Write([]byte(`{"file_uuid":"123e4567-e89b-12d3-a456-426614174000"}`))
	}))
	defer server.Close()

	client := NewClient("test-key").WithBaseURL(server.URL + "/v1")
	result, err := client.UploadFile(context.Background(), []byte("hello"), "notes.txt", "text/plain")
	if err != nil {
		t.Fatalf("UploadFile failed: %v", err)
	}
	if result.FileID != "123e4567-e89b-12d3-a456-426614174000" {
		t.Errorf("Unexpected file ID %q", result.FileID)
	}
}

func TestUploadFileExtractsFirstUUID(t *testing.T) {
	// The response schema is unknown; the first UUID-shaped token wins.
	body := `{"id":"AAAAAAAA-BBBB-4CCC-8DDD-EEEEEEEEEEEE","other":"ffffffff-0000-1111-2222-333333333333"}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	client := NewClient("test-key").WithBaseURL(server.URL + "/v1")
	result, err := client.UploadFile(context.Background(), []byte("x"), "a", "")
	if err != nil {
		t.Fatalf("UploadFile failed: %v", err)
	}
	// Case-insensitive match, original casing preserved.
	if result.FileID != "AAAAAAAA-BBBB-4CCC-8DDD-EEEEEEEEEEEE" {
		t.Errorf("Expected first UUID, got %q", result.FileID)
	}
}

func TestUploadFileAmbiguousResponse(t *testing.T) {
	// No UUID in the body: the call still succeeds, with a warning error
	// carrying the raw body.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient("test-key").WithBaseURL(server.URL + "/v1")
	result, err := client.UploadFile(context.Background(), []byte("x"), "a", "")

	var ambiguous *UploadAmbiguousError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("Expected UploadAmbiguousError, got %v", err)
	}
	if result.FileID != "" {
		t.Errorf("Expected empty file ID, got %q", result.FileID)
	}
	if result.RawBody != "{}" {
		t.Errorf("Expected raw body '{}', got %q", result.RawBody)
	}
	if !strings.Contains(ambiguous.Error(), "{}") {
		t.Errorf("Warning should carry the raw body, got %q", ambiguous.Error())
	}
}

func TestUploadFileHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		w.Write([]byte("file too large"))
	}))
	defer server.Close()

	client := NewClient("test-key").WithBaseURL(server.URL + "/v1")
	_, err := client.UploadFile(context.Background(), []byte("x"), "a", "")

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Expected HTTPError, got %v", err)
	}
	if httpErr.Error() != "file too large" {
		t.Errorf("Expected raw body passthrough, got %q", httpErr.Error())
	}
}
