// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides metrics and instrumentation for the compiler.
//
// # Description
//
// This package implements Prometheus metrics for monitoring goal compilation.
// Metrics include:
//   - Compile counters (by source and playbook)
//   - Compile latency histograms
//   - Knowledge retrieval failure counters
//   - Scenario counters (by mode)
//   - Active compile gauges
//
// # Integration
//
// Metrics are exposed via /metrics endpoint. Use with Prometheus + Grafana
// for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "dyocense"

// Subsystem for compiler metrics
const compilerSubsystem = "compiler"

// CompilerMetrics holds all Prometheus metrics for goal compilation.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring compilation
// throughput and degradation. Initialize once at startup via InitMetrics().
//
// # Fields
//
//   - CompilesTotal: Counter of compile requests by source and playbook
//   - CompileDurationSeconds: Histogram of end-to-end compile duration
//   - RetrievalFailuresTotal: Counter of knowledge retrieval failures
//   - ScenariosTotal: Counter of scenario creations by mode
//   - ActiveCompiles: Gauge of in-flight compile requests
//
// # Thread Safety
//
// All operations are thread-safe.
type CompilerMetrics struct {
	// CompilesTotal counts compile requests by document source and playbook.
	// Labels: source (llm, stub), playbook_id (none when unmatched)
	CompilesTotal *prometheus.CounterVec

	// CompileDurationSeconds measures end-to-end compile duration.
	// Labels: source (llm, stub)
	CompileDurationSeconds *prometheus.HistogramVec

	// RetrievalFailuresTotal counts knowledge retrieval failures.
	// Labels: backend (memory, weaviate, remote)
	RetrievalFailuresTotal *prometheus.CounterVec

	// ScenariosTotal counts scenario creations by mode.
	// Labels: mode (clone, recompute), status (success, error)
	ScenariosTotal *prometheus.CounterVec

	// ActiveCompiles tracks in-flight compile requests.
	ActiveCompiles prometheus.Gauge
}

// DefaultMetrics is the singleton instance of CompilerMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *CompilerMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup, after Prometheus registry is available.
//
// # Outputs
//
//   - *CompilerMetrics: The initialized metrics instance.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
//
// # Assumptions
//
//   - Prometheus default registry is available.
func InitMetrics() *CompilerMetrics {
	DefaultMetrics = &CompilerMetrics{
		CompilesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: compilerSubsystem,
				Name:      "compiles_total",
				Help:      "Total compile requests by document source and playbook",
			},
			[]string{"source", "playbook_id"},
		),

		CompileDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: compilerSubsystem,
				Name:      "compile_duration_seconds",
				Help:      "End-to-end compile duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 15.0, 60.0},
			},
			[]string{"source"},
		),

		RetrievalFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: compilerSubsystem,
				Name:      "retrieval_failures_total",
				Help:      "Total knowledge retrieval failures by backend",
			},
			[]string{"backend"},
		),

		ScenariosTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: compilerSubsystem,
				Name:      "scenarios_total",
				Help:      "Total scenario creations by mode and status",
			},
			[]string{"mode", "status"},
		),

		ActiveCompiles: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: compilerSubsystem,
				Name:      "active_compiles",
				Help:      "Number of in-flight compile requests",
			},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordCompile records a completed compile request.
//
// # Inputs
//
//   - source: The document source ("llm" or "stub").
//   - playbookID: Matched playbook id, empty when none matched.
//   - seconds: End-to-end duration in seconds.
func (m *CompilerMetrics) RecordCompile(source, playbookID string, seconds float64) {
	if playbookID == "" {
		playbookID = "none"
	}
	m.CompilesTotal.WithLabelValues(source, playbookID).Inc()
	m.CompileDurationSeconds.WithLabelValues(source).Observe(seconds)
}

// RecordRetrievalFailure records a knowledge retrieval failure.
//
// # Inputs
//
//   - backend: The knowledge backend that failed.
func (m *CompilerMetrics) RecordRetrievalFailure(backend string) {
	m.RetrievalFailuresTotal.WithLabelValues(backend).Inc()
}

// RecordScenario records a scenario creation.
//
// # Inputs
//
//   - mode: "clone" or "recompute".
//   - success: Whether the scenario was created.
func (m *CompilerMetrics) RecordScenario(mode string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.ScenariosTotal.WithLabelValues(mode, status).Inc()
}

// CompileStarted increments the active compiles gauge.
func (m *CompilerMetrics) CompileStarted() {
	m.ActiveCompiles.Inc()
}

// CompileEnded decrements the active compiles gauge.
func (m *CompilerMetrics) CompileEnded() {
	m.ActiveCompiles.Dec()
}
