// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains the meal-response types: the raw regression output
// and the synthesized post-meal curve.
package datatypes

// MealResponseParameters is the raw 4-tuple a meal-response model emits,
// before curve reconstruction.
//
// Fields:
//   - DeltaPeak: Peak glucose rise above baseline in mg/dL
//   - TPeakMinutes: Minutes from meal to peak
//   - AUC0to120: Area under the delta curve over the first 120 minutes
//   - DecaySlope: Post-plateau decay rate; scale is model-dependent and
//     clamped by the synthesizer
type MealResponseParameters struct {
	DeltaPeak    float64 `json:"d_peak"`
	TPeakMinutes float64 `json:"t_peak"`
	AUC0to120    float64 `json:"auc_0_120"`
	DecaySlope   float64 `json:"decay_slope"`
}

// CurvePoint is one sample of a synthesized post-meal trajectory.
type CurvePoint struct {
	TMinutes        int     `json:"t_min"`
	Delta           float64 `json:"delta"`
	AbsoluteGlucose float64 `json:"glucose"`
}

// Curve is a fully materialized, fixed-step post-meal trajectory.
//
// Description:
//
//	Curves are pure functions of their parameters: synthesizing twice
//	with the same inputs yields identical points. They are materialized
//	eagerly (25 points for the standard 120-minute horizon at a 5-minute
//	step) rather than streamed, since the whole curve always ships to
//	the client in one response.
type Curve []CurvePoint

// PeakDelta returns the largest delta in the curve, or 0.0 for an empty
// curve.
func (c Curve) PeakDelta() float64 {
	var peak float64
	for i, p := range c {
		if i == 0 || p.Delta > peak {
			peak = p.Delta
		}
	}
	return peak
}
