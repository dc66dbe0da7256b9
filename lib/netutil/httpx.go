// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP I/O helpers for the dashboard API.
//
// Response helpers bound every body read at MaxResponseSize so a
// misbehaving server cannot exhaust memory. [ParseErrorBody] extracts
// the human-readable message from the service's error envelopes.
package netutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxResponseSize is the bound on JSON API response body reads: 32 MB.
// Analysis payloads with full technical data are the largest legitimate
// responses and are orders of magnitude smaller.
const MaxResponseSize int64 = 32 << 20

// ErrResponseTooLarge is returned when a response body exceeds
// MaxResponseSize. The body is never silently truncated.
var ErrResponseTooLarge = errors.New("response too large")

// ReadResponse reads a response body of at most MaxResponseSize bytes.
// Use instead of io.ReadAll when reading HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return readBounded(body, MaxResponseSize)
}

func readBounded(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, limit)
	}
	return data, nil
}

// DecodeResponse reads a response body (bounded) and JSON-decodes it
// into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorBody is the error envelope returned by the dashboard API:
//
//	{"error": "Usuario no encontrado", "detail": null, "code": "404"}
//
// Framework-level validation failures use {"detail": ...} instead, where
// detail may be a string or a list of field errors.
type ErrorBody struct {
	Error  string          `json:"error"`
	Detail json.RawMessage `json:"detail"`
	Code   string          `json:"code"`
}

// ParseErrorBody extracts a message and code from an error response
// body. It returns ok=false when the body is not a recognizable JSON
// error envelope, in which case callers fall back to the status text.
func ParseErrorBody(data []byte) (message, code string, ok bool) {
	var body ErrorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return "", "", false
	}

	detail := detailMessage(body.Detail)
	switch {
	case body.Error != "" && detail != "":
		return body.Error + ": " + detail, body.Code, true
	case body.Error != "":
		return body.Error, body.Code, true
	case detail != "":
		return detail, body.Code, true
	}
	return "", body.Code, body.Code != ""
}

// detailMessage renders the detail field, which is either a string or a
// list of {"msg": ...} validation entries.
func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var entries []struct {
		Message string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &entries); err == nil {
		messages := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.Message != "" {
				messages = append(messages, entry.Message)
			}
		}
		return strings.Join(messages, "; ")
	}
	return ""
}
