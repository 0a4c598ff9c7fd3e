// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package mealresponse reconstructs a discretized post-meal glucose
// trajectory from the four regression parameters the meal-response
// model emits.
//
// # Curve shape
//
// The trajectory is a three-phase piecewise function of minutes since
// the meal: a super-linear rise to the predicted peak, a 15-minute
// plateau at the peak, and an exponential decay back toward baseline.
// The decay rate is clamped because the trained decay-slope scale is
// not guaranteed to stay in a physically sane range, and the curve must
// stay monotonically decaying and bounded whatever the model emits.
package mealresponse

import (
	"math"

	"github.com/dialog-health/dialog-glucose/services/glucose/datatypes"
)

// Curve discretization. 0..120 minutes at 5-minute steps, 25 points.
const (
	HorizonMinutes = 120
	StepMinutes    = 5
)

// Peak-time and decay-rate clamps.
const (
	tPeakMin = 20.0
	tPeakMax = 200.0

	// plateauMinutes is how long the curve holds the peak delta.
	plateauMinutes = 15.0

	decayRateMin = 0.05
	decayRateMax = 1.5

	// riseExponent makes the approach to peak super-linear.
	riseExponent = 1.6
)

// Synthesizer builds curves with a fixed horizon and step. The zero
// configuration is the production one; tests shrink the horizon.
type Synthesizer struct {
	horizonMin int
	stepMin    int
}

// NewSynthesizer returns a synthesizer over the standard 120-minute,
// 5-minute-step grid.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{horizonMin: HorizonMinutes, stepMin: StepMinutes}
}

// Synthesize reconstructs the glucose trajectory for one prediction.
//
// Description:
//
//	delta(t) follows three phases over the clamped peak time
//	tp = clamp(params.TPeakMinutes, 20, 200) and tail = tp + 15:
//
//	  0 <= t <= tp:  DeltaPeak * (t/tp)^1.6
//	  tp < t <= tail: DeltaPeak
//	  t > tail:       DeltaPeak * exp(-k * (t-tail) / 60)
//
//	with k = clamp(|params.DecaySlope|, 0.05, 1.5). A negative DeltaPeak
//	scales the same shape below baseline; the shape factor itself stays
//	in [0, 1], so the delta never changes sign.
//
// Inputs:
//   - params: Regression output; AUC0to120 is reported, not consumed
//   - baseline: Pre-meal baseline glucose in mg/dL
//
// Outputs:
//   - datatypes.Curve: 25 fully materialized points, t = 0,5,...,120
//
// Assumptions:
//   - Pure function of its inputs; safe for concurrent use
func (s *Synthesizer) Synthesize(params *datatypes.MealResponseParameters, baseline float64) datatypes.Curve {
	tp := clamp(params.TPeakMinutes, tPeakMin, tPeakMax)
	tail := tp + plateauMinutes
	k := clamp(math.Abs(params.DecaySlope), decayRateMin, decayRateMax)

	n := s.horizonMin/s.stepMin + 1
	curve := make(datatypes.Curve, 0, n)
	for t := 0; t <= s.horizonMin; t += s.stepMin {
		tm := float64(t)
		var shape float64
		switch {
		case tm <= tp:
			shape = math.Pow(tm/tp, riseExponent)
		case tm <= tail:
			shape = 1.0
		default:
			shape = math.Exp(-k * (tm - tail) / 60.0)
		}
		delta := params.DeltaPeak * shape
		curve = append(curve, datatypes.CurvePoint{
			TMinutes:        t,
			Delta:           delta,
			AbsoluteGlucose: baseline + delta,
		})
	}
	return curve
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
