// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// serviceMetrics are the mock's Prometheus collectors.
type serviceMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

func newServiceMetrics(registerer prometheus.Registerer) *serviceMetrics {
	metrics := &serviceMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gwdash_mockapi",
				Name:      "requests_total",
				Help:      "Requests served, by method and status code",
			},
			[]string{"method", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gwdash_mockapi",
				Name:      "request_duration_seconds",
				Help:      "Time to serve a request",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "gwdash_mockapi",
				Name:      "requests_in_flight",
				Help:      "Requests currently being served",
			},
		),
	}
	registerer.MustRegister(metrics.requests, metrics.duration, metrics.inFlight)
	return metrics
}

// statusRecorder captures the status code written by the wrapped
// handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (m *serviceMetrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}
		next.ServeHTTP(recorder, request)
		m.requests.WithLabelValues(request.Method, strconv.Itoa(recorder.status)).Inc()
		m.duration.WithLabelValues(request.Method).Observe(time.Since(start).Seconds())
	})
}

// newHandler routes /metrics to the Prometheus registry and everything
// else to the service, traced with otelhttp and counted.
func newHandler(service http.Handler, registry *prometheus.Registry) http.Handler {
	metrics := newServiceMetrics(registry)
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	mux.Handle("/", otelhttp.NewHandler(metrics.instrument(service), "gwdash-mockapi",
		otelhttp.WithSpanNameFormatter(func(_ string, request *http.Request) string {
			return request.Method + " " + request.URL.Path
		}),
	))
	return mux
}
