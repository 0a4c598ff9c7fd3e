// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains the request and response structures of the HTTP
// boundary. Field names and JSON tags are wire-compatible with the
// original Dia-Log prototype API, which the web client still speaks.
package datatypes

import (
	"github.com/go-playground/validator/v10"
)

// requestValidate is the shared validator for request structs. A single
// instance caches struct metadata across requests.
var requestValidate = validator.New()

// =============================================================================
// REQUEST STRUCTURES
// =============================================================================

// GlucosePoint is one glucose reading as it arrives on the wire.
//
// TS is an optional RFC 3339 timestamp (a trailing "Z" is accepted).
// Value is a pointer so that explicit nulls can be detected and dropped
// rather than silently read as 0.
type GlucosePoint struct {
	TS    string   `json:"ts,omitempty"`
	Value *float64 `json:"value"`
}

// PredictRequest is the body of POST /v1/predict.
//
// Description:
//
//	Carries the recent glucose history plus optional activity and meal
//	covariates. Every covariate is optional; absent values map to the
//	neutral default 0.0 ("Unknown" for meal type) during feature
//	derivation.
//
// # Validation
//
// Uses go-playground/validator:
//   - Glucose: required, at least one point (values may be null,
//     filtered during normalization)
//   - Nutrition and activity covariates: non-negative when present
type PredictRequest struct {
	UserID  string         `json:"user_id,omitempty"`
	Glucose []GlucosePoint `json:"glucose" validate:"required,min=1"`

	MealType         *string  `json:"meal_type,omitempty"`
	HR               *float64 `json:"hr,omitempty" validate:"omitempty,gte=0"`
	METs             *float64 `json:"mets,omitempty" validate:"omitempty,gte=0"`
	Steps            *float64 `json:"steps,omitempty" validate:"omitempty,gte=0"`
	CaloriesActivity *float64 `json:"calories_activity,omitempty" validate:"omitempty,gte=0"`

	Calories       *float64 `json:"calories,omitempty" validate:"omitempty,gte=0"`
	Carbs          *float64 `json:"carbs,omitempty" validate:"omitempty,gte=0"`
	Protein        *float64 `json:"protein,omitempty" validate:"omitempty,gte=0"`
	Fat            *float64 `json:"fat,omitempty" validate:"omitempty,gte=0"`
	Fiber          *float64 `json:"fiber,omitempty" validate:"omitempty,gte=0"`
	AmountConsumed *float64 `json:"amount_consumed,omitempty" validate:"omitempty,gte=0"`
}

// Validate validates the PredictRequest fields.
//
// Should be called after binding the JSON request.
func (r *PredictRequest) Validate() error {
	return requestValidate.Struct(r)
}

// Covariates bundles the request's optional fields for the builder.
func (r *PredictRequest) Covariates() Covariates {
	mealType := MealTypeUnknown
	if r.MealType != nil && *r.MealType != "" {
		mealType = *r.MealType
	}
	return Covariates{
		HR:               r.HR,
		METs:             r.METs,
		Steps:            r.Steps,
		CaloriesActivity: r.CaloriesActivity,
		Calories:         r.Calories,
		Carbs:            r.Carbs,
		Protein:          r.Protein,
		Fat:              r.Fat,
		Fiber:            r.Fiber,
		AmountConsumed:   r.AmountConsumed,
		MealType:         mealType,
	}
}

// MealResponsePredictRequest is the body of POST /v1/predict_meal_response.
//
// Timestamps, when present, must align index-for-index with
// GlucoseValues; unparsable entries are ignored pairwise. LatestTS
// overrides the last timestamp for time-of-day encoding.
type MealResponsePredictRequest struct {
	GlucoseValues []float64 `json:"glucose_values" validate:"required,min=1"`
	Timestamps    []string  `json:"timestamps,omitempty"`
	LatestTS      string    `json:"latest_ts,omitempty"`

	Carbs          float64 `json:"carbs" validate:"gte=0"`
	Protein        float64 `json:"protein" validate:"gte=0"`
	Fat            float64 `json:"fat" validate:"gte=0"`
	Fiber          float64 `json:"fiber" validate:"gte=0"`
	Calories       float64 `json:"calories" validate:"gte=0"`
	AmountConsumed float64 `json:"amount_consumed" validate:"gte=0"`
	MealType       string  `json:"meal_type"`
}

// Validate validates the MealResponsePredictRequest fields.
func (r *MealResponsePredictRequest) Validate() error {
	return requestValidate.Struct(r)
}

// =============================================================================
// RESPONSE STRUCTURES
// =============================================================================

// PredictResponse is the body returned by POST /v1/predict.
//
// Fields:
//   - RequestID: Server-generated UUID for tracing
//   - Mode: Feature coverage mode (full/fallback/min)
//   - N: Number of usable glucose samples after normalization
//   - Prediction: Raw model output; equal to Delta for delta models
//   - LastGlucose: Most recent normalized glucose value
//   - Confidence: low/medium/high derived from Mode and N
//   - FeaturesUsed: The complete feature row fed to the model
//   - FeaturesUsedCols: Columns considered genuinely informative for Mode
//   - Delta: Predicted glucose change over the horizon
//   - PredictedGlucose: LastGlucose + Delta
//   - ModelOutput: Always "delta" for this endpoint
type PredictResponse struct {
	RequestID        string             `json:"request_id"`
	Mode             Mode               `json:"mode"`
	N                int                `json:"n"`
	Prediction       float64            `json:"prediction"`
	LastGlucose      float64            `json:"last_glucose"`
	Confidence       Confidence         `json:"confidence"`
	FeaturesUsed     map[string]any     `json:"features_used"`
	FeaturesUsedCols []string           `json:"features_used_cols"`
	Delta            float64            `json:"delta"`
	PredictedGlucose float64            `json:"predicted_glucose"`
	ModelOutput      string             `json:"model_output"`
	HorizonMinutes   int                `json:"horizon_min"`
}

// MealResponsePrediction is the body returned by POST /v1/predict_meal_response.
type MealResponsePrediction struct {
	RequestID            string     `json:"request_id"`
	Mode                 string     `json:"mode"`
	BaselineGlucose      float64    `json:"baseline_glucose"`
	PremealSlope         float64    `json:"premeal_slope"`
	DeltaPeak            float64    `json:"d_peak"`
	TPeak                float64    `json:"t_peak"`
	AUC0to120            float64    `json:"auc_0_120"`
	DecaySlope           float64    `json:"decay_slope"`
	PredictedPeakGlucose float64    `json:"predicted_peak_glucose"`
	Confidence           Confidence `json:"confidence"`
	Curve                Curve      `json:"curve"`
}

// DatasetSummary describes one bundled demo dataset.
type DatasetSummary struct {
	Name    string `json:"name"`
	Samples int    `json:"samples"`
}

// DatasetResponse is one demo dataset, parsed into wire points.
type DatasetResponse struct {
	Name    string         `json:"name"`
	Glucose []GlucosePoint `json:"glucose"`
}
