// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the HTTP endpoints of the glucose
// prediction service.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/dialog-health/dialog-glucose/services/glucose/datatypes"
	"github.com/dialog-health/dialog-glucose/services/glucose/features"
	"github.com/dialog-health/dialog-glucose/services/glucose/model"
	"github.com/dialog-health/dialog-glucose/services/glucose/observability"
	"github.com/dialog-health/dialog-glucose/services/glucose/series"
)

// Create a new tracer
var predictTracer = otel.Tracer("dialog.glucose.handlers")

// defaultHorizonMin is used when the horizon_min query is absent.
const defaultHorizonMin = 30

// Deps bundles what the prediction endpoints need. Built once by the
// service and shared across requests.
type Deps struct {
	Dispatcher *model.Dispatcher
	Metrics    *observability.PredictionMetrics

	// ModePolicy overrides the schema default when non-empty.
	ModePolicy features.ModePolicy
}

// builderFor resolves the feature builder configured for a horizon.
func (d *Deps) builderFor(horizonMin int) (*features.Builder, error) {
	name, err := d.Dispatcher.SchemaName(horizonMin)
	if err != nil {
		return nil, err
	}
	schema, err := features.ByName(name)
	if err != nil {
		return nil, err
	}
	if d.ModePolicy != "" {
		schema.ModePolicy = d.ModePolicy
	}
	return features.NewBuilder(schema), nil
}

// recordError maps a pipeline error onto an HTTP response and metrics.
func (d *Deps) recordError(c *gin.Context, endpoint observability.Endpoint, err error) {
	switch {
	case errors.Is(err, series.ErrEmptySeries):
		d.Metrics.RecordError(endpoint, observability.ErrorCodeEmptySeries)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrHorizonNotConfigured):
		d.Metrics.RecordError(endpoint, observability.ErrorCodeValidation)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrModelNotFound):
		d.Metrics.RecordError(endpoint, observability.ErrorCodeModelNotFound)
		c.JSON(http.StatusNotFound, gin.H{"error": "model artifact not available"})
	default:
		var perr *model.PredictionError
		if errors.As(err, &perr) {
			d.Metrics.RecordError(endpoint, observability.ErrorCodePrediction)
		} else {
			d.Metrics.RecordError(endpoint, observability.ErrorCodeInternal)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction failed"})
	}
}

// featuresUsed flattens a feature vector into the response map, meal
// type included, matching the row the model actually consumed.
func featuresUsed(fv *datatypes.FeatureVector) map[string]any {
	out := make(map[string]any, len(fv.Columns))
	for _, col := range fv.Columns {
		if col == datatypes.MealTypeColumn {
			out[col] = fv.MealType
			continue
		}
		out[col] = fv.Numeric[col]
	}
	return out
}

// HandlePredict serves POST /v1/predict.
//
// # Description
//
// Normalizes the submitted glucose history, derives the feature vector
// for the requested horizon's schema, runs the delta model, and labels
// the result with a confidence derived from input coverage. The
// horizon_min query selects the model (default 30); a horizon with no
// table entry is a 400.
func HandlePredict(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := predictTracer.Start(c.Request.Context(), "HandlePredict")
		defer span.End()
		start := time.Now()

		horizonMin := defaultHorizonMin
		if raw := c.Query("horizon_min"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v <= 0 {
				d.Metrics.RecordError(observability.EndpointPredict, observability.ErrorCodeValidation)
				c.JSON(http.StatusBadRequest, gin.H{"error": "horizon_min must be a positive integer"})
				return
			}
			horizonMin = v
		}

		var req datatypes.PredictRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the predict request", "error", err)
			d.Metrics.RecordError(observability.EndpointPredict, observability.ErrorCodeValidation)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			d.Metrics.RecordError(observability.EndpointPredict, observability.ErrorCodeValidation)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		requestID := uuid.NewString()
		c.Header("X-Request-ID", requestID)

		s, err := series.Normalize(req.Glucose)
		if err != nil {
			slog.Warn("Predict request with no usable samples",
				"request_id", requestID, "points", len(req.Glucose))
			d.Metrics.RecordRequest(observability.EndpointPredict, false)
			d.recordError(c, observability.EndpointPredict, err)
			return
		}

		builder, err := d.builderFor(horizonMin)
		if err != nil {
			span.RecordError(err)
			d.Metrics.RecordRequest(observability.EndpointPredict, false)
			d.recordError(c, observability.EndpointPredict, err)
			return
		}

		fv, mode := builder.Build(s, s.LatestTimestamp(), req.Covariates())

		delta, err := d.Dispatcher.PredictDelta(horizonMin, fv)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Delta prediction failed",
				"request_id", requestID, "horizon_min", horizonMin, "error", err)
			d.Metrics.RecordRequest(observability.EndpointPredict, false)
			d.recordError(c, observability.EndpointPredict, err)
			return
		}

		n := s.Len()
		lastGlucose := s.Last().Value

		d.Metrics.RecordMode(string(mode))
		d.Metrics.RecordRequest(observability.EndpointPredict, true)
		d.Metrics.RecordDuration(observability.EndpointPredict, time.Since(start).Seconds())

		slog.Info("Served delta prediction",
			"request_id", requestID,
			"horizon_min", horizonMin,
			"n", n,
			"mode", mode,
			"delta", delta)

		c.JSON(http.StatusOK, datatypes.PredictResponse{
			RequestID:        requestID,
			Mode:             mode,
			N:                n,
			Prediction:       delta,
			LastGlucose:      lastGlucose,
			Confidence:       datatypes.ConfidenceLabel(mode, n),
			FeaturesUsed:     featuresUsed(fv),
			FeaturesUsedCols: builder.InformativeColumns(mode),
			Delta:            delta,
			PredictedGlucose: lastGlucose + delta,
			ModelOutput:      "delta",
			HorizonMinutes:   horizonMin,
		})
	}
}
