// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package model loads regression artifacts from disk and runs inference
// over feature vectors.
//
// # Artifact format
//
// Artifacts are JSON files exported by the training pipeline. Each file
// carries its own ordered column list, the standardization parameters,
// the per-output weight rows, and the contribution table for the single
// categorical column. The service treats the artifact as a black box:
// an ordered row goes in, one value per declared output comes out.
// Nothing outside this package depends on the artifact being linear.
package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dialog-health/dialog-glucose/services/glucose/datatypes"
)

// Artifact kinds, matching the "kind" field of the JSON file.
const (
	// KindDelta artifacts emit a single glucose delta in mg/dL.
	KindDelta = "delta"
	// KindMealResponse artifacts emit the four meal-response curve
	// parameters.
	KindMealResponse = "meal_response"
)

// mealResponseOutputs is the required output order of a meal-response
// artifact.
var mealResponseOutputs = []string{"d_peak", "t_peak", "auc_0_120", "decay_slope"}

// Scaler holds the per-column standardization parameters fitted at
// training time.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Categorical describes the one-hot contribution table for the single
// categorical column.
//
// Levels maps a categorical level (e.g. "Lunch") to one additive
// contribution per output. A level absent from the map was never seen
// at training time and must be rejected, not defaulted.
type Categorical struct {
	Column string               `json:"column"`
	Levels map[string][]float64 `json:"levels"`
}

// Artifact is one loaded regression model.
//
// Fields:
//   - Name: Model identifier, used in error messages and logs
//   - Kind: KindDelta or KindMealResponse
//   - Outputs: Output names, one weight row and intercept each
//   - Columns: Ordered input columns, including the categorical column
//   - Categorical: Contribution table, nil when the model has no
//     categorical input
//   - Scaler: Standardization parameters over the numeric columns
//   - Weights: Per-output weight rows over the numeric columns
//   - Intercepts: Per-output intercepts
//
// Thread Safety:
//
//	Immutable after LoadArtifact; safe for concurrent Predict calls.
type Artifact struct {
	Name        string       `json:"name"`
	Kind        string       `json:"kind"`
	Outputs     []string     `json:"outputs"`
	Columns     []string     `json:"columns"`
	Categorical *Categorical `json:"categorical,omitempty"`
	Scaler      Scaler       `json:"scaler"`
	Weights     [][]float64  `json:"weights"`
	Intercepts  []float64    `json:"intercepts"`

	// numericColumns is Columns minus the categorical column, cached at
	// load time because Predict walks it per request.
	numericColumns []string
}

// LoadArtifact reads and validates one artifact file.
//
// A missing file maps to ErrModelNotFound; everything else (unreadable,
// malformed, internally inconsistent) is a plain error, because a
// present-but-broken artifact is a deployment fault, not a lookup miss.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return nil, fmt.Errorf("failed to read model artifact %s: %w", path, err)
	}

	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact %s: %w", path, err)
	}
	if err := art.validate(); err != nil {
		return nil, fmt.Errorf("invalid model artifact %s: %w", path, err)
	}
	return &art, nil
}

// validate checks the internal consistency of a freshly parsed artifact
// and caches the numeric column list.
func (a *Artifact) validate() error {
	if a.Name == "" {
		return fmt.Errorf("missing name")
	}
	if a.Kind != KindDelta && a.Kind != KindMealResponse {
		return fmt.Errorf("unknown kind %q", a.Kind)
	}
	if len(a.Outputs) == 0 {
		return fmt.Errorf("no outputs declared")
	}
	if a.Kind == KindDelta && len(a.Outputs) != 1 {
		return fmt.Errorf("delta model declares %d outputs, want 1", len(a.Outputs))
	}
	if a.Kind == KindMealResponse {
		if len(a.Outputs) != len(mealResponseOutputs) {
			return fmt.Errorf("meal-response model declares %d outputs, want %d",
				len(a.Outputs), len(mealResponseOutputs))
		}
		for i, want := range mealResponseOutputs {
			if a.Outputs[i] != want {
				return fmt.Errorf("meal-response output %d is %q, want %q", i, a.Outputs[i], want)
			}
		}
	}

	catCol := ""
	if a.Categorical != nil {
		catCol = a.Categorical.Column
		for level, contrib := range a.Categorical.Levels {
			if len(contrib) != len(a.Outputs) {
				return fmt.Errorf("categorical level %q has %d contributions, want %d",
					level, len(contrib), len(a.Outputs))
			}
		}
	}

	a.numericColumns = make([]string, 0, len(a.Columns))
	for _, col := range a.Columns {
		if col == catCol {
			continue
		}
		a.numericColumns = append(a.numericColumns, col)
	}
	nc := len(a.numericColumns)
	if nc == 0 {
		return fmt.Errorf("no numeric columns")
	}
	if len(a.Scaler.Mean) != nc || len(a.Scaler.Std) != nc {
		return fmt.Errorf("scaler covers %d/%d columns, want %d",
			len(a.Scaler.Mean), len(a.Scaler.Std), nc)
	}
	for i, s := range a.Scaler.Std {
		if s <= 0 {
			return fmt.Errorf("non-positive scaler std for column %q", a.numericColumns[i])
		}
	}
	if len(a.Weights) != len(a.Outputs) || len(a.Intercepts) != len(a.Outputs) {
		return fmt.Errorf("weights/intercepts cover %d/%d outputs, want %d",
			len(a.Weights), len(a.Intercepts), len(a.Outputs))
	}
	for i, row := range a.Weights {
		if len(row) != nc {
			return fmt.Errorf("weight row for output %q has %d entries, want %d",
				a.Outputs[i], len(row), nc)
		}
	}
	return nil
}

// Predict runs inference over one feature vector.
//
// Description:
//
//	The row is assembled in the artifact's own column order, regardless
//	of the vector's schema order. Numeric values are standardized with
//	the fitted scaler, weighted per output, and the categorical
//	contribution for the vector's meal-type level is added.
//
// Outputs:
//   - []float64: One value per declared output, in Outputs order
//   - error: *PredictionError on a column missing from the vector or an
//     unseen categorical level
func (a *Artifact) Predict(fv *datatypes.FeatureVector) ([]float64, error) {
	out := make([]float64, len(a.Outputs))
	copy(out, a.Intercepts)

	for j, col := range a.numericColumns {
		v, ok := fv.Get(col)
		if !ok {
			return nil, newPredictionError(a.Name, "feature vector missing column %q", col)
		}
		z := (v - a.Scaler.Mean[j]) / a.Scaler.Std[j]
		for o := range out {
			out[o] += a.Weights[o][j] * z
		}
	}

	if a.Categorical != nil {
		contrib, ok := a.Categorical.Levels[fv.MealType]
		if !ok {
			return nil, newPredictionError(a.Name, "unknown %s level %q",
				a.Categorical.Column, fv.MealType)
		}
		for o := range out {
			out[o] += contrib[o]
		}
	}
	return out, nil
}
