// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package model

import (
	"github.com/dialog-health/dialog-glucose/services/glucose/datatypes"
)

// Dispatcher resolves artifacts through a Registry and interprets their
// raw outputs by kind.
//
// The handlers never touch Artifact directly: they hand the dispatcher
// a feature vector and a table entry, and get back either a scalar
// delta or meal-response parameters.
type Dispatcher struct {
	registry *Registry
	table    *Table
}

// NewDispatcher creates a Dispatcher over a registry and model table.
func NewDispatcher(registry *Registry, table *Table) *Dispatcher {
	return &Dispatcher{registry: registry, table: table}
}

// Table returns the dispatcher's model table.
func (d *Dispatcher) Table() *Table { return d.table }

// Registry returns the dispatcher's artifact registry.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// PredictDelta resolves the delta model for a horizon and predicts the
// expected glucose change in mg/dL.
//
// Outputs:
//   - float64: Predicted delta
//   - error: ErrHorizonNotConfigured, ErrModelNotFound, or a
//     *PredictionError
func (d *Dispatcher) PredictDelta(horizonMin int, fv *datatypes.FeatureVector) (float64, error) {
	entry, err := d.table.Entry(horizonMin)
	if err != nil {
		return 0, err
	}
	art, err := d.registry.Resolve(entry.Path)
	if err != nil {
		return 0, err
	}
	if art.Kind != KindDelta {
		return 0, newPredictionError(art.Name, "artifact kind %q bound to delta horizon %d",
			art.Kind, horizonMin)
	}
	out, err := art.Predict(fv)
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// SchemaName returns the feature schema name configured for a horizon.
func (d *Dispatcher) SchemaName(horizonMin int) (string, error) {
	entry, err := d.table.Entry(horizonMin)
	if err != nil {
		return "", err
	}
	return entry.Schema, nil
}

// PredictMealResponse resolves the meal-response model and predicts the
// four curve parameters.
func (d *Dispatcher) PredictMealResponse(fv *datatypes.FeatureVector) (*datatypes.MealResponseParameters, error) {
	path := d.table.MealResponse.Path
	if path == "" {
		return nil, ErrModelNotFound
	}
	art, err := d.registry.Resolve(path)
	if err != nil {
		return nil, err
	}
	if art.Kind != KindMealResponse {
		return nil, newPredictionError(art.Name,
			"artifact kind %q bound to meal-response slot", art.Kind)
	}
	out, err := art.Predict(fv)
	if err != nil {
		return nil, err
	}
	// Output order is validated at load time.
	return &datatypes.MealResponseParameters{
		DeltaPeak:    out[0],
		TPeakMinutes: out[1],
		AUC0to120:    out[2],
		DecaySlope:   out[3],
	}, nil
}
