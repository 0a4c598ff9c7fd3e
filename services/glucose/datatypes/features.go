// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains the feature-vector types exchanged between the
// feature builder and the model dispatch layer.
package datatypes

// =============================================================================
// ENUMS
// =============================================================================

// Mode records how much of the feature schema was derived from genuine
// history rather than neutral defaults.
//
// Description:
//
//	The feature builder never fails on short history; it degrades. Mode
//	makes the degradation observable so the transport layer can label
//	prediction confidence honestly.
//
// Valid Values:
//   - "full": 30 or more samples, every configured feature is genuine
//   - "fallback": 10-29 samples, long lags and wide windows defaulted
//   - "min": fewer than 10 samples, only the shortest features genuine
//
// Assumptions:
//   - Mode describes input coverage only; it never alters the emitted
//     key set, which is identical for all modes
type Mode string

const (
	ModeFull     Mode = "full"
	ModeFallback Mode = "fallback"
	ModeMin      Mode = "min"
)

// validModes contains all valid Mode values for validation.
var validModes = map[Mode]bool{
	ModeFull:     true,
	ModeFallback: true,
	ModeMin:      true,
}

// IsValid checks if the Mode is a valid value.
func (m Mode) IsValid() bool {
	return validModes[m]
}

// Confidence is the coarse confidence label reported at the HTTP
// boundary, derived from Mode and history length.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ConfidenceLabel maps a feature mode and history length to a label.
//
// Description:
//
//	Fallback-kind modes and very short histories are "low" regardless of
//	anything else; otherwise the label grows with history length. The
//	thresholds (10, 20) match the ones the delta models were validated
//	against.
func ConfidenceLabel(mode Mode, n int) Confidence {
	if mode == ModeFallback || mode == ModeMin || n < 10 {
		return ConfidenceLow
	}
	if n < 20 {
		return ConfidenceMedium
	}
	return ConfidenceHigh
}

// MealConfidenceLabel maps a pre-meal history length to a label.
//
// Meal-response models need less context than delta models, so the
// thresholds are lower: 12 points for high, 6 for medium.
func MealConfidenceLabel(n int) Confidence {
	switch {
	case n >= 12:
		return ConfidenceHigh
	case n >= 6:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// =============================================================================
// Feature Vector
// =============================================================================

// MealTypeColumn is the single categorical column every schema carries.
const MealTypeColumn = "Meal Type"

// MealTypeUnknown is the default categorical level when no meal type is
// supplied.
const MealTypeUnknown = "Unknown"

// FeatureVector is the fixed-schema row handed to a regression model.
//
// Description:
//
//	A FeatureVector pairs an ordered column list with the derived numeric
//	values and exactly one categorical meal-type value. The key set of
//	Numeric plus MealTypeColumn is always byte-identical to Columns,
//	regardless of input length: missing derivations are filled with 0.0,
//	never omitted. The trained artifacts depend on that completeness.
//
// Fields:
//   - Columns: Ordered schema columns, including MealTypeColumn
//   - Numeric: Derived numeric values keyed by column name
//   - MealType: Categorical level, "Unknown" when absent
//
// Limitations:
//   - Column order here is the schema's order; the dispatch layer
//     re-orders by the artifact's own column list before predicting
type FeatureVector struct {
	Columns  []string
	Numeric  map[string]float64
	MealType string
}

// Get returns the numeric value for col, or the meal-type level mapped
// through ok=false for the categorical column.
func (fv *FeatureVector) Get(col string) (float64, bool) {
	v, ok := fv.Numeric[col]
	return v, ok
}

// Complete reports whether the vector covers exactly its column list:
// every numeric column present, no extras, and the categorical column
// accounted for.
func (fv *FeatureVector) Complete() bool {
	want := 0
	for _, col := range fv.Columns {
		if col == MealTypeColumn {
			continue
		}
		if _, ok := fv.Numeric[col]; !ok {
			return false
		}
		want++
	}
	return len(fv.Numeric) == want && fv.MealType != ""
}

// =============================================================================
// Exogenous Covariates
// =============================================================================

// Covariates holds the optional activity and meal metadata attached to a
// prediction request.
//
// Nil fields mean "not reported" and map to the neutral default 0.0; a
// reported zero is indistinguishable from absent, which matches the
// convention the models were trained with.
type Covariates struct {
	HR               *float64
	METs             *float64
	Steps            *float64
	CaloriesActivity *float64
	Calories         *float64
	Carbs            *float64
	Protein          *float64
	Fat              *float64
	Fiber            *float64
	AmountConsumed   *float64
	MealType         string
}

// OrDefault returns the pointed-to value or 0.0 when p is nil.
func OrDefault(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
