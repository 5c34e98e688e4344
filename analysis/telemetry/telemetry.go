// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry contains the metrics and the tracer of the detectors.
//
// Metrics are Prometheus collectors registered on a registry owned by a [Metrics] value, so that independent runs
// (and tests) do not share counters. Spans are created with the global OpenTelemetry tracer provider, which is a no-op
// unless the program installs an SDK.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const namespace = "wasmati"

// Tracer returns the tracer of the detectors
func Tracer() trace.Tracer {
	return otel.Tracer("github.com/darkmacheken/wasmati/analysis")
}

// Metrics are the collectors of one run of the detectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	detectorDuration *prometheus.HistogramVec
	findings         *prometheus.CounterVec
	inconclusive     *prometheus.CounterVec
	failures         *prometheus.CounterVec
	fixpointRounds   prometheus.Gauge
}

// NewMetrics returns metrics registered on a new registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		detectorDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "duration_seconds",
			Help:      "Time spent running each detector",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"detector"}),
		findings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "findings_total",
			Help:      "Rows reported by each detector",
		}, []string{"detector"}),
		inconclusive: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "inconclusive_total",
			Help:      "Detector runs interrupted by their timeout",
		}, []string{"detector"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "failures_total",
			Help:      "Detector runs that failed with an error",
		}, []string{"detector"}),
		fixpointRounds: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "taint",
			Name:      "fixpoint_rounds",
			Help:      "Rounds of the last interprocedural taint propagation",
		}),
	}
}

// Registry returns the registry of the metrics
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveDetector records the duration and the number of rows of a detector run
func (m *Metrics) ObserveDetector(name string, d time.Duration, rows int) {
	if m == nil {
		return
	}
	m.detectorDuration.WithLabelValues(name).Observe(d.Seconds())
	m.findings.WithLabelValues(name).Add(float64(rows))
}

// Inconclusive records a detector run interrupted by its timeout
func (m *Metrics) Inconclusive(name string) {
	if m == nil {
		return
	}
	m.inconclusive.WithLabelValues(name).Inc()
}

// Failure records a detector run that failed
func (m *Metrics) Failure(name string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(name).Inc()
}

// SetFixpointRounds records the number of rounds of a taint propagation
func (m *Metrics) SetFixpointRounds(rounds int) {
	if m == nil {
		return
	}
	m.fixpointRounds.Set(float64(rounds))
}

// Handler returns the HTTP handler exposing the metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes the metrics on addr at /metrics until ctx is done
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
