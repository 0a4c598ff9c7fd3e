// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides metrics and instrumentation for the
// glucose prediction service.
//
// # Description
//
// This package implements Prometheus metrics for monitoring prediction
// operations. Metrics include:
//   - Request counters (by endpoint, status)
//   - Prediction latency histograms (by endpoint)
//   - Feature-mode counters (full/fallback/min, for degradation alerts)
//   - Model artifact load counters
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
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
const metricsNamespace = "dialog"

// Subsystem for prediction metrics
const predictionSubsystem = "prediction"

// PredictionMetrics holds all Prometheus metrics for prediction operations.
//
// # Description
//
// Provides counters and histograms for monitoring prediction volume,
// latency, input-coverage degradation, and model loading. Initialize
// once at startup via InitMetrics().
//
// # Fields
//
//   - RequestsTotal: Counter of prediction requests by endpoint and status
//   - DurationSeconds: Histogram of end-to-end prediction latency
//   - FeatureModesTotal: Counter of feature coverage modes per request
//   - ModelLoadsTotal: Counter of artifact loads by outcome
//   - ErrorsTotal: Counter of errors by endpoint and error code
//
// # Thread Safety
//
// All operations are thread-safe.
type PredictionMetrics struct {
	// RequestsTotal counts prediction requests by endpoint and status.
	// Labels: endpoint (predict, meal_response), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// DurationSeconds measures end-to-end prediction latency.
	// Labels: endpoint (predict, meal_response)
	DurationSeconds *prometheus.HistogramVec

	// FeatureModesTotal counts the coverage mode of served predictions.
	// A rising fallback/min share means clients are sending short
	// histories and confidence labels are degrading.
	// Labels: mode (full, fallback, min)
	FeatureModesTotal *prometheus.CounterVec

	// ModelLoadsTotal counts artifact loads by outcome.
	// Labels: outcome (success, error)
	ModelLoadsTotal *prometheus.CounterVec

	// ErrorsTotal counts errors by endpoint and error code.
	// Labels: endpoint, error_code (empty_series, model_not_found,
	// prediction, validation, internal)
	ErrorsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of PredictionMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *PredictionMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup, after the Prometheus registry is available.
//
// # Outputs
//
//   - *PredictionMetrics: The initialized metrics instance.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *PredictionMetrics {
	DefaultMetrics = &PredictionMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: predictionSubsystem,
				Name:      "requests_total",
				Help:      "Total prediction requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		DurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: predictionSubsystem,
				Name:      "duration_seconds",
				Help:      "End-to-end prediction latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"endpoint"},
		),

		FeatureModesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: predictionSubsystem,
				Name:      "feature_modes_total",
				Help:      "Feature coverage mode of served predictions",
			},
			[]string{"mode"},
		),

		ModelLoadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: predictionSubsystem,
				Name:      "model_loads_total",
				Help:      "Model artifact loads by outcome",
			},
			[]string{"outcome"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: predictionSubsystem,
				Name:      "errors_total",
				Help:      "Total prediction errors by endpoint and error code",
			},
			[]string{"endpoint", "error_code"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Error Codes
// =============================================================================

// ErrorCode represents a categorized error type for metrics.
type ErrorCode string

const (
	// ErrorCodeEmptySeries indicates no usable glucose samples in the request.
	ErrorCodeEmptySeries ErrorCode = "empty_series"

	// ErrorCodeValidation indicates request validation failure.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeModelNotFound indicates a missing model artifact.
	ErrorCodeModelNotFound ErrorCode = "model_not_found"

	// ErrorCodePrediction indicates a loaded model failed at inference.
	ErrorCodePrediction ErrorCode = "prediction"

	// ErrorCodeInternal indicates internal server error.
	ErrorCodeInternal ErrorCode = "internal"
)

// =============================================================================
// Endpoint Names
// =============================================================================

// Endpoint represents a prediction endpoint for metrics labeling.
type Endpoint string

const (
	// EndpointPredict is the horizon delta prediction endpoint.
	EndpointPredict Endpoint = "predict"

	// EndpointMealResponse is the meal response curve endpoint.
	EndpointMealResponse Endpoint = "meal_response"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records a completed prediction request.
func (m *PredictionMetrics) RecordRequest(endpoint Endpoint, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(endpoint), status).Inc()
}

// RecordDuration records end-to-end prediction latency.
func (m *PredictionMetrics) RecordDuration(endpoint Endpoint, seconds float64) {
	m.DurationSeconds.WithLabelValues(string(endpoint)).Observe(seconds)
}

// RecordMode records the feature coverage mode of a served prediction.
func (m *PredictionMetrics) RecordMode(mode string) {
	m.FeatureModesTotal.WithLabelValues(mode).Inc()
}

// RecordError records a prediction error.
func (m *PredictionMetrics) RecordError(endpoint Endpoint, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(string(endpoint), string(code)).Inc()
}

// RecordModelLoad records an artifact load attempt.
func (m *PredictionMetrics) RecordModelLoad(success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.ModelLoadsTotal.WithLabelValues(outcome).Inc()
}
