// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// newTestMetrics creates a PredictionMetrics instance with a custom
// registry. This avoids conflicts with the global Prometheus registry
// and allows parallel testing.
func newTestMetrics(t *testing.T) *PredictionMetrics {
	t.Helper()

	reg := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: predictionSubsystem,
			Name:      "requests_total",
			Help:      "Total prediction requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	durationSeconds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: predictionSubsystem,
			Name:      "duration_seconds",
			Help:      "End-to-end prediction latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"endpoint"},
	)

	featureModesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: predictionSubsystem,
			Name:      "feature_modes_total",
			Help:      "Feature coverage mode of served predictions",
		},
		[]string{"mode"},
	)

	modelLoadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: predictionSubsystem,
			Name:      "model_loads_total",
			Help:      "Model artifact loads by outcome",
		},
		[]string{"outcome"},
	)

	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: predictionSubsystem,
			Name:      "errors_total",
			Help:      "Total prediction errors by endpoint and error code",
		},
		[]string{"endpoint", "error_code"},
	)

	reg.MustRegister(
		requestsTotal,
		durationSeconds,
		featureModesTotal,
		modelLoadsTotal,
		errorsTotal,
	)

	return &PredictionMetrics{
		RequestsTotal:     requestsTotal,
		DurationSeconds:   durationSeconds,
		FeatureModesTotal: featureModesTotal,
		ModelLoadsTotal:   modelLoadsTotal,
		ErrorsTotal:       errorsTotal,
	}
}

func TestPredictionMetrics_RecordRequest(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordRequest(EndpointPredict, true)
	m.RecordRequest(EndpointPredict, true)
	m.RecordRequest(EndpointMealResponse, false)

	successVal := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("predict", "success"))
	if successVal != 2 {
		t.Errorf("RequestsTotal[predict,success] = %f, want 2", successVal)
	}

	errorVal := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("meal_response", "error"))
	if errorVal != 1 {
		t.Errorf("RequestsTotal[meal_response,error] = %f, want 1", errorVal)
	}
}

func TestPredictionMetrics_RecordMode(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordMode("full")
	m.RecordMode("full")
	m.RecordMode("min")

	fullVal := testutil.ToFloat64(m.FeatureModesTotal.WithLabelValues("full"))
	if fullVal != 2 {
		t.Errorf("FeatureModesTotal[full] = %f, want 2", fullVal)
	}

	minVal := testutil.ToFloat64(m.FeatureModesTotal.WithLabelValues("min"))
	if minVal != 1 {
		t.Errorf("FeatureModesTotal[min] = %f, want 1", minVal)
	}
}

func TestPredictionMetrics_RecordError(t *testing.T) {
	m := newTestMetrics(t)

	tests := []struct {
		endpoint Endpoint
		code     ErrorCode
	}{
		{EndpointPredict, ErrorCodeEmptySeries},
		{EndpointPredict, ErrorCodeModelNotFound},
		{EndpointMealResponse, ErrorCodePrediction},
		{EndpointMealResponse, ErrorCodeValidation},
		{EndpointPredict, ErrorCodeInternal},
	}

	for _, tt := range tests {
		m.RecordError(tt.endpoint, tt.code)

		val := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues(string(tt.endpoint), string(tt.code)))
		if val != 1 {
			t.Errorf("ErrorsTotal[%s,%s] = %f, want 1", tt.endpoint, tt.code, val)
		}
	}
}

func TestPredictionMetrics_RecordModelLoad(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordModelLoad(true)
	m.RecordModelLoad(true)
	m.RecordModelLoad(false)

	successVal := testutil.ToFloat64(m.ModelLoadsTotal.WithLabelValues("success"))
	if successVal != 2 {
		t.Errorf("ModelLoadsTotal[success] = %f, want 2", successVal)
	}

	errorVal := testutil.ToFloat64(m.ModelLoadsTotal.WithLabelValues("error"))
	if errorVal != 1 {
		t.Errorf("ModelLoadsTotal[error] = %f, want 1", errorVal)
	}
}

func TestPredictionMetrics_RecordDuration(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordDuration(EndpointPredict, 0.002)
	m.RecordDuration(EndpointPredict, 0.08)
	m.RecordDuration(EndpointMealResponse, 0.01)

	count := testutil.CollectAndCount(m.DurationSeconds)
	if count == 0 {
		t.Error("Expected at least one metric to be collected")
	}
}

func TestPredictionMetrics_ConcurrentSafety(t *testing.T) {
	m := newTestMetrics(t)

	done := make(chan bool, 60)

	for i := 0; i < 20; i++ {
		go func() {
			m.RecordRequest(EndpointPredict, true)
			done <- true
		}()
	}
	for i := 0; i < 20; i++ {
		go func() {
			m.RecordMode("fallback")
			done <- true
		}()
	}
	for i := 0; i < 20; i++ {
		go func() {
			m.RecordError(EndpointMealResponse, ErrorCodePrediction)
			done <- true
		}()
	}

	for i := 0; i < 60; i++ {
		<-done
	}

	requestsVal := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("predict", "success"))
	if requestsVal != 20 {
		t.Errorf("RequestsTotal[predict,success] = %f, want 20", requestsVal)
	}

	modeVal := testutil.ToFloat64(m.FeatureModesTotal.WithLabelValues("fallback"))
	if modeVal != 20 {
		t.Errorf("FeatureModesTotal[fallback] = %f, want 20", modeVal)
	}
}
