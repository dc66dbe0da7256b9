// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/gwdash/gwdash/lib/kvstore"
	"github.com/gwdash/gwdash/notify"
	"github.com/gwdash/gwdash/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingNotifier collects notifications.
type recordingNotifier struct {
	mu            sync.Mutex
	notifications []notify.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, notification notify.Notification) {
	r.mu.Lock()
	r.notifications = append(r.notifications, notification)
	r.mu.Unlock()
}

func (r *recordingNotifier) all() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.notifications...)
}

// recordingNavigator collects navigation targets.
type recordingNavigator struct {
	mu     sync.Mutex
	routes []string
}

func (r *recordingNavigator) Navigate(_ context.Context, route string) {
	r.mu.Lock()
	r.routes = append(r.routes, route)
	r.mu.Unlock()
}

func (r *recordingNavigator) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.routes...)
}

// harness is a client wired to recorders and an in-memory session.
type harness struct {
	client    *Client
	store     *session.Store
	storage   *kvstore.Memory
	notifier  *recordingNotifier
	navigator *recordingNavigator
	spans     *tracetest.SpanRecorder
	metrics   *sdkmetric.ManualReader
}

type harnessOption func(*Config)

func newHarness(t *testing.T, handler http.Handler, options ...harnessOption) *harness {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return newHarnessAt(t, server.URL, options...)
}

func newHarnessAt(t *testing.T, baseURL string, options ...harnessOption) *harness {
	t.Helper()

	storage := kvstore.NewMemory()
	store := session.NewStore(session.Config{Storage: storage, Logger: discardLogger()})
	t.Cleanup(store.Close)

	spans := tracetest.NewSpanRecorder()
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { tracerProvider.Shutdown(context.Background()) })

	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { meterProvider.Shutdown(context.Background()) })

	h := &harness{
		store:     store,
		storage:   storage,
		notifier:  &recordingNotifier{},
		navigator: &recordingNavigator{},
		spans:     spans,
		metrics:   reader,
	}
	config := Config{
		BaseURL:        baseURL,
		Session:        store,
		Notifier:       h.notifier,
		Navigator:      h.navigator,
		Logger:         discardLogger(),
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
	}
	for _, option := range options {
		option(&config)
	}

	client, err := NewClient(config)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(client.CloseIdleConnections)
	h.client = client
	return h
}

func testIdentity(email string, role session.Role) session.Identity {
	return session.Identity{
		ID:        "b1946ac9-0000-4000-8000-000000000001",
		Email:     email,
		Role:      role,
		Active:    true,
		CreatedAt: session.ParseTimestamp("2024-01-01T10:00:00"),
	}
}

func (h *harness) login(t *testing.T, credential string) {
	t.Helper()
	h.loginAs(t, credential, session.RoleStandard)
}

func (h *harness) loginAs(t *testing.T, credential string, role session.Role) {
	t.Helper()
	if err := h.store.Login(credential, testIdentity("operator@example.com", role)); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

// counter sums an int64 counter's data points, optionally filtered by
// one string attribute.
func (h *harness) counter(t *testing.T, name, attributeKey, attributeValue string) int64 {
	t.Helper()
	var collected metricdata.ResourceMetrics
	if err := h.metrics.Collect(context.Background(), &collected); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var total int64
	for _, scope := range collected.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s has data %T, want Sum[int64]", name, m.Data)
			}
			for _, point := range sum.DataPoints {
				if attributeKey != "" {
					value, ok := point.Attributes.Value(attribute.Key(attributeKey))
					if !ok || value.AsString() != attributeValue {
						continue
					}
				}
				total += point.Value
			}
		}
	}
	return total
}

// pipelineSpan returns the ended span the pipeline opened for name.
func (h *harness) pipelineSpan(t *testing.T, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range h.spans.Ended() {
		if span.Name() == name && span.InstrumentationScope().Name == instrumentationName {
			return span
		}
	}
	t.Fatalf("no pipeline span named %q", name)
	return nil
}

// statusHandler answers every request with status and body.
func statusHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(status)
		io.WriteString(writer, body)
	})
}
