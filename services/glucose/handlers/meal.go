// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	"github.com/dialog-health/dialog-glucose/services/glucose/datatypes"
	"github.com/dialog-health/dialog-glucose/services/glucose/mealresponse"
	"github.com/dialog-health/dialog-glucose/services/glucose/observability"
	"github.com/dialog-health/dialog-glucose/services/glucose/series"
	"github.com/dialog-health/dialog-glucose/services/glucose/stats"
)

// mealFeatureColumns is the input schema of the meal-response model.
// Unlike the delta schemas these are request-level covariates plus two
// series summaries, not lag features.
var mealFeatureColumns = []string{
	"carbs", "protein", "fat", "fiber", "calories", "amount_consumed",
	"meal_type", "baseline_glucose", "premeal_slope", "tod_sin", "tod_cos",
}

// mealSamples pairs glucose values with their timestamps index-for-index.
// A timestamp that fails to parse leaves its sample untimestamped rather
// than dropping it.
func mealSamples(values []float64, timestamps []string) []datatypes.GlucoseSample {
	samples := make([]datatypes.GlucoseSample, len(values))
	for i, v := range values {
		var ts *time.Time
		if i < len(timestamps) {
			ts = series.ParseTimestamp(timestamps[i])
		}
		samples[i] = datatypes.GlucoseSample{Timestamp: ts, Value: v}
	}
	return samples
}

// mealReferenceTime picks the time-of-day reference: an explicit
// latest_ts wins, then the series' last timestamp, then the wall clock.
func mealReferenceTime(req *datatypes.MealResponsePredictRequest, s *datatypes.GlucoseSeries) time.Time {
	if t := series.ParseTimestamp(req.LatestTS); t != nil {
		return *t
	}
	if t := s.LatestTimestamp(); t != nil {
		return *t
	}
	return time.Now()
}

// HandleMealResponse serves POST /v1/predict_meal_response.
//
// # Description
//
// Estimates the pre-meal baseline and trend from the submitted history,
// runs the meal-response model for the four curve parameters, and
// synthesizes the discretized 120-minute trajectory.
func HandleMealResponse(d *Deps, synth *mealresponse.Synthesizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := predictTracer.Start(c.Request.Context(), "HandleMealResponse")
		defer span.End()
		start := time.Now()

		var req datatypes.MealResponsePredictRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the meal response request", "error", err)
			d.Metrics.RecordError(observability.EndpointMealResponse, observability.ErrorCodeValidation)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			d.Metrics.RecordError(observability.EndpointMealResponse, observability.ErrorCodeValidation)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		requestID := uuid.NewString()
		c.Header("X-Request-ID", requestID)

		s, err := series.NormalizeSamples(mealSamples(req.GlucoseValues, req.Timestamps))
		if err != nil {
			d.Metrics.RecordRequest(observability.EndpointMealResponse, false)
			d.recordError(c, observability.EndpointMealResponse, err)
			return
		}

		baseline, slope := mealresponse.BaselineAndSlope(s)
		ref := mealReferenceTime(&req, s)
		sin, cos := stats.TimeOfDaySinCos(ref)

		mealType := req.MealType
		if mealType == "" {
			mealType = datatypes.MealTypeUnknown
		}

		fv := &datatypes.FeatureVector{
			Columns: mealFeatureColumns,
			Numeric: map[string]float64{
				"carbs":            req.Carbs,
				"protein":          req.Protein,
				"fat":              req.Fat,
				"fiber":            req.Fiber,
				"calories":         req.Calories,
				"amount_consumed":  req.AmountConsumed,
				"baseline_glucose": baseline,
				"premeal_slope":    slope,
				"tod_sin":          sin,
				"tod_cos":          cos,
			},
			MealType: mealType,
		}

		params, err := d.Dispatcher.PredictMealResponse(fv)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Meal response prediction failed", "request_id", requestID, "error", err)
			d.Metrics.RecordRequest(observability.EndpointMealResponse, false)
			d.recordError(c, observability.EndpointMealResponse, err)
			return
		}

		curve := synth.Synthesize(params, baseline)

		// predicted_peak_glucose never dips below baseline even when the
		// model predicts a net drop.
		peakRise := params.DeltaPeak
		if peakRise < 0 {
			peakRise = 0
		}

		n := s.Len()
		d.Metrics.RecordRequest(observability.EndpointMealResponse, true)
		d.Metrics.RecordDuration(observability.EndpointMealResponse, time.Since(start).Seconds())

		slog.Info("Served meal response prediction",
			"request_id", requestID,
			"n", n,
			"d_peak", params.DeltaPeak,
			"t_peak", params.TPeakMinutes)

		c.JSON(http.StatusOK, datatypes.MealResponsePrediction{
			RequestID:            requestID,
			Mode:                 "meal_response",
			BaselineGlucose:      baseline,
			PremealSlope:         slope,
			DeltaPeak:            params.DeltaPeak,
			TPeak:                params.TPeakMinutes,
			AUC0to120:            params.AUC0to120,
			DecaySlope:           params.DecaySlope,
			PredictedPeakGlucose: baseline + peakRise,
			Confidence:           datatypes.MealConfidenceLabel(n),
			Curve:                curve,
		})
	}
}
