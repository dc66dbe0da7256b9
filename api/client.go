// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/gwdash/gwdash/lib/version"
	"github.com/gwdash/gwdash/session"
)

// DefaultTimeout bounds a request when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// DefaultEntryRoute is where the user is sent after session expiry.
const DefaultEntryRoute = "/login"

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the service root, e.g. "http://localhost:8000".
	BaseURL string

	// Session supplies the credential and receives expiries. Required.
	Session *session.Store

	// HTTPClient is used for all requests; its transport is wrapped for
	// tracing. If nil, a client over http.DefaultTransport is used.
	HTTPClient *http.Client

	// Timeout bounds each request from dispatch to the end of the
	// response body. Default: DefaultTimeout.
	Timeout time.Duration

	// Notifier receives session-expired, forbidden, and server-error
	// notifications. If nil, notifications are dropped.
	Notifier Notifier

	// Navigator is invoked once per session expiry. If nil, expiry
	// does not navigate.
	Navigator Navigator

	// EntryRoute is passed to Navigator. Default: DefaultEntryRoute.
	EntryRoute string

	// Messages overrides notification wording. Empty fields keep the
	// defaults.
	Messages Messages

	// Logger is used for structured logging. If nil, slog.Default() is
	// used.
	Logger *slog.Logger

	// TracerProvider and MeterProvider default to the otel globals.
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Client executes authorized requests against the dashboard service.
// Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Store
	timeout    time.Duration
	notifier   Notifier
	navigator  Navigator
	entryRoute string
	messages   Messages
	userAgent  string
	logger     *slog.Logger
	tracer     trace.Tracer
	telemetry  *telemetry

	// expireMu serializes 401 handling. lastExpired is the fingerprint
	// of the credential this client most recently expired, so further
	// 401s for it do not cascade again.
	expireMu    sync.Mutex
	lastExpired string

	// Users is the user administration API (elevated role only).
	Users *UsersService
	// Analyses is the gateway analysis API.
	Analyses *AnalysesService
	// Chat is the per-analysis question-and-answer API.
	Chat *ChatService
	// Stats is the global statistics API (elevated role only).
	Stats *StatsService
}

// NewClient creates a Client.
func NewClient(config Config) (*Client, error) {
	if config.Session == nil {
		return nil, fmt.Errorf("api: Session is required")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("api: BaseURL is required")
	}
	parsed, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("api: invalid BaseURL %q: %w", config.BaseURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("api: BaseURL %q must be absolute", config.BaseURL)
	}

	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Notifier == nil {
		config.Notifier = discardNotifier{}
	}
	if config.Navigator == nil {
		config.Navigator = discardNavigator{}
	}
	if config.EntryRoute == "" {
		config.EntryRoute = DefaultEntryRoute
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.TracerProvider == nil {
		config.TracerProvider = otel.GetTracerProvider()
	}
	if config.MeterProvider == nil {
		config.MeterProvider = otel.GetMeterProvider()
	}

	telemetry, err := newTelemetry(config.MeterProvider)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{}
	if config.HTTPClient != nil {
		copied := *config.HTTPClient
		httpClient = &copied
	}
	transport := httpClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	httpClient.Transport = otelhttp.NewTransport(transport,
		otelhttp.WithTracerProvider(config.TracerProvider),
		otelhttp.WithMeterProvider(config.MeterProvider),
	)

	client := &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		session:    config.Session,
		timeout:    config.Timeout,
		notifier:   config.Notifier,
		navigator:  config.Navigator,
		entryRoute: config.EntryRoute,
		messages:   config.Messages.withDefaults(),
		userAgent:  version.UserAgent(),
		logger:     config.Logger,
		tracer:     config.TracerProvider.Tracer(instrumentationName),
		telemetry:  telemetry,
	}
	client.Users = &UsersService{client: client}
	client.Analyses = &AnalysesService{client: client}
	client.Chat = &ChatService{client: client}
	client.Stats = &StatsService{client: client}
	return client, nil
}

// Session returns the store the client reads credentials from.
func (c *Client) Session() *session.Store {
	return c.session
}

// CloseIdleConnections closes idle connections in the transport pool.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// Request describes one call to the service.
type Request struct {
	// Method defaults to GET.
	Method string

	// Path is appended to the base URL and must start with "/".
	Path string

	// Query is encoded onto the URL when non-empty.
	Query url.Values

	// Body is JSON-encoded when non-nil.
	Body any

	// Anonymous sends the request without the session credential. A 401
	// on an anonymous request never expires the session: the login
	// endpoint answers a wrong password with 401.
	Anonymous bool
}

// Response is a successful (2xx) response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// RequestID is the X-Request-ID sent with the request.
	RequestID string
}

// Decode JSON-decodes the body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("api: empty response body (status %d)", r.StatusCode)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("api: decoding response (request %s): %w", r.RequestID, err)
	}
	return nil
}

// call executes a request and decodes a successful body into out when
// out is non-nil.
func (c *Client) call(ctx context.Context, request Request, out any) error {
	response, err := c.Execute(ctx, request)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return response.Decode(out)
}
