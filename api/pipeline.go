// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gwdash/gwdash/lib/netutil"
	"github.com/gwdash/gwdash/notify"
	"github.com/gwdash/gwdash/session"
)

// RequestIDHeader carries the client-generated request identifier.
const RequestIDHeader = "X-Request-ID"

// Execute sends request with the current session credential and
// returns the response for 2xx statuses. Any other outcome returns an
// *Error after the kind's side effects have been applied. The
// credential is read once, before dispatch; later session changes do
// not affect a request in flight.
func (c *Client) Execute(ctx context.Context, request Request) (*Response, error) {
	if request.Method == "" {
		request.Method = http.MethodGet
	}

	credential := ""
	if !request.Anonymous {
		credential, _ = c.session.Credential()
	}
	requestID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, request.Method+" "+request.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gwdash.request_id", requestID),
			attribute.Bool("gwdash.authenticated", credential != ""),
		),
	)
	defer span.End()

	dispatchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpRequest, err := c.prepare(dispatchCtx, request, credential, requestID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	start := time.Now()
	result := c.dispatch(httpRequest)
	elapsed := time.Since(start)

	failure := classify(result.statusCode, result.body, result.err)
	outcome := "success"
	if failure != nil {
		failure.RequestID = requestID
		failure.Method = request.Method
		failure.Path = request.Path
		outcome = string(failure.Kind)
		span.SetStatus(codes.Error, failure.Error())
	}
	span.SetAttributes(attribute.String("gwdash.outcome", outcome))
	c.telemetry.record(ctx, request.Method, outcome, elapsed)

	c.logger.Debug("api request",
		"method", request.Method,
		"path", request.Path,
		"status", result.statusCode,
		"outcome", outcome,
		"request_id", requestID,
		"duration", elapsed,
	)

	if failure != nil {
		c.react(context.WithoutCancel(ctx), failure, credential, request.Anonymous)
		return nil, failure
	}
	return &Response{
		StatusCode: result.statusCode,
		Header:     result.header,
		Body:       result.body,
		RequestID:  requestID,
	}, nil
}

// prepare builds the outbound request. It reads nothing but its
// arguments and the client's fixed configuration.
func (c *Client) prepare(ctx context.Context, request Request, credential, requestID string) (*http.Request, error) {
	if !strings.HasPrefix(request.Path, "/") {
		return nil, fmt.Errorf("api: request path %q must start with /", request.Path)
	}
	requestURL := c.baseURL + request.Path
	if len(request.Query) > 0 {
		requestURL += "?" + request.Query.Encode()
	}

	var body io.Reader
	if request.Body != nil {
		encoded, err := json.Marshal(request.Body)
		if err != nil {
			return nil, fmt.Errorf("api: encoding %s %s body: %w", request.Method, request.Path, err)
		}
		body = bytes.NewReader(encoded)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, request.Method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("api: creating %s %s request: %w", request.Method, request.Path, err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "application/json")
	httpRequest.Header.Set("User-Agent", c.userAgent)
	httpRequest.Header.Set(RequestIDHeader, requestID)
	if credential != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+credential)
	}
	return httpRequest, nil
}

type dispatchResult struct {
	statusCode int
	header     http.Header
	body       []byte
	err        error
}

// dispatch sends the request and reads the whole body. The request's
// context carries the timeout, so a slow body counts against it too.
func (c *Client) dispatch(request *http.Request) dispatchResult {
	response, err := c.httpClient.Do(request)
	if err != nil {
		return dispatchResult{err: err}
	}
	defer response.Body.Close()

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return dispatchResult{err: fmt.Errorf("reading response body: %w", err)}
	}
	return dispatchResult{
		statusCode: response.StatusCode,
		header:     response.Header,
		body:       body,
	}
}

// classify maps a dispatch result to an *Error, or nil for 2xx.
func classify(statusCode int, body []byte, transportErr error) *Error {
	if transportErr != nil {
		message := transportErr.Error()
		switch {
		case errors.Is(transportErr, context.DeadlineExceeded):
			message = "request timed out"
		case errors.Is(transportErr, context.Canceled):
			message = "request cancelled"
		}
		return &Error{Kind: KindNetworkError, Message: message, Err: transportErr}
	}
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var kind Kind
	switch {
	case statusCode == http.StatusUnauthorized:
		kind = KindUnauthorized
	case statusCode == http.StatusForbidden:
		kind = KindForbidden
	case statusCode >= 500 && statusCode < 600:
		kind = KindServerError
	default:
		kind = KindClientError
	}

	message, code, _ := netutil.ParseErrorBody(body)
	if message == "" {
		message = http.StatusText(statusCode)
	}
	if message == "" {
		message = fmt.Sprintf("unexpected status %d", statusCode)
	}
	return &Error{Kind: kind, StatusCode: statusCode, Message: message, Code: code}
}

// react applies the side effects of a classified failure. credential
// is the value the request carried, empty when none was.
func (c *Client) react(ctx context.Context, failure *Error, credential string, anonymous bool) {
	switch failure.Kind {
	case KindUnauthorized:
		if anonymous {
			return
		}
		c.reactUnauthorized(ctx, failure, credential)

	case KindForbidden:
		c.notifier.Notify(ctx, notify.Notification{
			Kind:      notify.KindForbidden,
			Level:     notify.LevelError,
			Message:   c.messages.Forbidden,
			RequestID: failure.RequestID,
		})

	case KindServerError:
		c.logger.Warn("server error",
			"method", failure.Method,
			"path", failure.Path,
			"status", failure.StatusCode,
			"request_id", failure.RequestID,
		)
		c.notifier.Notify(ctx, notify.Notification{
			Kind:      notify.KindServerError,
			Level:     notify.LevelError,
			Message:   c.messages.ServerError,
			RequestID: failure.RequestID,
		})
	}
}

// unauthorizedAction is what a 401 does to the session and the UI.
type unauthorizedAction int

const (
	// unauthorizedIgnore: another credential is active, or this one was
	// already expired by an earlier 401.
	unauthorizedIgnore unauthorizedAction = iota
	// unauthorizedExpire: the carried credential was the active one and
	// the session has just been ended.
	unauthorizedExpire
	// unauthorizedNavigate: no session is active (none was carried, or it
	// was ended outside the pipeline while the request was in flight).
	unauthorizedNavigate
)

// resolveUnauthorized decides the reaction to a 401 for a non-anonymous
// request. Exactly one of any number of racing 401s carrying the same
// credential gets unauthorizedExpire; the rest are ignored.
func (c *Client) resolveUnauthorized(credential string) unauthorizedAction {
	c.expireMu.Lock()
	defer c.expireMu.Unlock()

	if credential != "" {
		fingerprint := session.Fingerprint(credential)
		if c.session.Expire(credential) {
			c.lastExpired = fingerprint
			return unauthorizedExpire
		}
		if fingerprint == c.lastExpired {
			return unauthorizedIgnore
		}
	}
	if current, active := c.session.Credential(); active && current != credential {
		return unauthorizedIgnore
	}
	return unauthorizedNavigate
}

func (c *Client) reactUnauthorized(ctx context.Context, failure *Error, credential string) {
	switch c.resolveUnauthorized(credential) {
	case unauthorizedExpire:
		c.telemetry.expirations.Add(ctx, 1)
		c.logger.Warn("session expired by server",
			"method", failure.Method,
			"path", failure.Path,
			"request_id", failure.RequestID,
			"credential", session.Fingerprint(credential),
		)
		c.notifier.Notify(ctx, notify.Notification{
			Kind:      notify.KindSessionExpired,
			Level:     notify.LevelWarning,
			Message:   c.messages.SessionExpired,
			RequestID: failure.RequestID,
		})
		c.navigator.Navigate(ctx, c.entryRoute)

	case unauthorizedNavigate:
		c.logger.Info("request rejected without an active session",
			"method", failure.Method,
			"path", failure.Path,
			"request_id", failure.RequestID,
		)
		c.navigator.Navigate(ctx, c.entryRoute)
	}
}
