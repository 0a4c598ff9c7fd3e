// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package model

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dialog-health/dialog-glucose/services/glucose/datatypes"
)

// testDeltaArtifact is a tiny delta model with hand-checkable weights:
// delta = 1.0 + 2.0*z(gl_lag_1) - 0.5*z(Carbs) + mealContribution.
func testDeltaArtifact() *Artifact {
	return &Artifact{
		Name:    "delta-test",
		Kind:    KindDelta,
		Outputs: []string{"delta"},
		Columns: []string{"gl_lag_1", "Carbs", "Meal Type"},
		Categorical: &Categorical{
			Column: "Meal Type",
			Levels: map[string][]float64{
				"Unknown": {0},
				"Lunch":   {3},
			},
		},
		Scaler: Scaler{
			Mean: []float64{100, 20},
			Std:  []float64{10, 5},
		},
		Weights:    [][]float64{{2.0, -0.5}},
		Intercepts: []float64{1.0},
	}
}

// writeArtifact marshals an artifact to a temp file and returns the path.
func writeArtifact(t *testing.T, art *Artifact) string {
	t.Helper()
	data, err := json.Marshal(art)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func vectorWith(mealType string, values map[string]float64) *datatypes.FeatureVector {
	return &datatypes.FeatureVector{
		Columns:  []string{"gl_lag_1", "Carbs", "Meal Type"},
		Numeric:  values,
		MealType: mealType,
	}
}

func TestArtifactPredict(t *testing.T) {
	art := testDeltaArtifact()
	require.NoError(t, art.validate())

	tests := []struct {
		name     string
		mealType string
		values   map[string]float64
		want     float64
	}{
		{
			// z(gl_lag_1) = (120-100)/10 = 2, z(Carbs) = (30-20)/5 = 2
			// delta = 1 + 2*2 - 0.5*2 + 0 = 4
			name:     "unknown meal",
			mealType: "Unknown",
			values:   map[string]float64{"gl_lag_1": 120, "Carbs": 30},
			want:     4.0,
		},
		{
			// same row plus the Lunch contribution of 3
			name:     "lunch contribution",
			mealType: "Lunch",
			values:   map[string]float64{"gl_lag_1": 120, "Carbs": 30},
			want:     7.0,
		},
		{
			// all-mean row collapses to the intercept
			name:     "intercept only",
			mealType: "Unknown",
			values:   map[string]float64{"gl_lag_1": 100, "Carbs": 20},
			want:     1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := art.Predict(vectorWith(tt.mealType, tt.values))
			require.NoError(t, err)
			require.Len(t, out, 1)
			assert.InDelta(t, tt.want, out[0], 1e-9)
		})
	}
}

func TestArtifactPredictErrors(t *testing.T) {
	art := testDeltaArtifact()
	require.NoError(t, art.validate())

	t.Run("unseen meal level", func(t *testing.T) {
		_, err := art.Predict(vectorWith("Brunch",
			map[string]float64{"gl_lag_1": 120, "Carbs": 30}))
		var perr *PredictionError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "delta-test", perr.Model)
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := art.Predict(vectorWith("Unknown",
			map[string]float64{"gl_lag_1": 120}))
		var perr *PredictionError
		require.ErrorAs(t, err, &perr)
		assert.Contains(t, perr.Reason, "Carbs")
	})
}

func TestArtifactValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Artifact)
	}{
		{name: "bad kind", mutate: func(a *Artifact) { a.Kind = "classifier" }},
		{name: "missing name", mutate: func(a *Artifact) { a.Name = "" }},
		{name: "scaler length", mutate: func(a *Artifact) { a.Scaler.Mean = []float64{100} }},
		{name: "zero std", mutate: func(a *Artifact) { a.Scaler.Std[1] = 0 }},
		{name: "weight row length", mutate: func(a *Artifact) { a.Weights = [][]float64{{2.0}} }},
		{name: "intercept count", mutate: func(a *Artifact) { a.Intercepts = nil }},
		{
			name: "categorical contribution count",
			mutate: func(a *Artifact) {
				a.Categorical.Levels["Lunch"] = []float64{3, 4}
			},
		},
		{
			name: "delta with multiple outputs",
			mutate: func(a *Artifact) {
				a.Outputs = []string{"delta", "extra"}
				a.Weights = append(a.Weights, []float64{0, 0})
				a.Intercepts = append(a.Intercepts, 0)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			art := testDeltaArtifact()
			tt.mutate(art)
			assert.Error(t, art.validate())
		})
	}
}

func TestMealResponseOutputOrder(t *testing.T) {
	art := &Artifact{
		Name:    "meal-test",
		Kind:    KindMealResponse,
		Outputs: []string{"d_peak", "decay_slope", "t_peak", "auc_0_120"},
		Columns: []string{"Carbs"},
		Scaler:  Scaler{Mean: []float64{0}, Std: []float64{1}},
		Weights: [][]float64{{1}, {1}, {1}, {1}},
		Intercepts: []float64{0, 0, 0, 0},
	}
	assert.ErrorContains(t, art.validate(), "output")
}

func TestLoadArtifact(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		path := writeArtifact(t, testDeltaArtifact())
		art, err := LoadArtifact(path)
		require.NoError(t, err)
		assert.Equal(t, "delta-test", art.Name)
		assert.Equal(t, []string{"gl_lag_1", "Carbs"}, art.numericColumns)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadArtifact(filepath.Join(t.TempDir(), "absent.json"))
		assert.True(t, errors.Is(err, ErrModelNotFound))
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
		_, err := LoadArtifact(path)
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrModelNotFound))
	})
}
