// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/gwdash/gwdash/api"

// Metric names.
const (
	MetricRequests           = "gwdash.api.requests"
	MetricRequestDuration    = "gwdash.api.request.duration"
	MetricSessionExpirations = "gwdash.api.session.expirations"
)

type telemetry struct {
	requests    metric.Int64Counter
	duration    metric.Float64Histogram
	expirations metric.Int64Counter
}

func newTelemetry(provider metric.MeterProvider) (*telemetry, error) {
	meter := provider.Meter(instrumentationName)

	requests, err := meter.Int64Counter(MetricRequests,
		metric.WithDescription("Requests executed, by method and outcome."),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, fmt.Errorf("api: creating %s counter: %w", MetricRequests, err)
	}
	duration, err := meter.Float64Histogram(MetricRequestDuration,
		metric.WithDescription("Time from dispatch to the end of the response body."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("api: creating %s histogram: %w", MetricRequestDuration, err)
	}
	expirations, err := meter.Int64Counter(MetricSessionExpirations,
		metric.WithDescription("Sessions ended by a server 401."),
		metric.WithUnit("{session}"))
	if err != nil {
		return nil, fmt.Errorf("api: creating %s counter: %w", MetricSessionExpirations, err)
	}
	return &telemetry{requests: requests, duration: duration, expirations: expirations}, nil
}

func (t *telemetry) record(ctx context.Context, method, outcome string, elapsed time.Duration) {
	attributes := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("gwdash.outcome", outcome),
	)
	t.requests.Add(ctx, 1, attributes)
	t.duration.Record(ctx, elapsed.Seconds(), attributes)
}
