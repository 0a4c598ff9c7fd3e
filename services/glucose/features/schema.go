// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package features derives fixed-schema feature vectors from normalized
// glucose series.
//
// # Description
//
// A Schema describes everything that varies between the horizon-specific
// builders: which lag offsets to emit, which rolling or exponential
// smoothing windows, whether the series is median-centered first, and
// how the coverage Mode is decided. The two schemas the trained
// artifacts expect are built in (ShortHorizon, LongHorizon), but nothing
// in the builder is hardcoded to either: a schema is plain data.
//
// # The completeness contract
//
// For any input length n, Build emits a vector whose key set is exactly
// Schema.Columns(). Derivations that cannot be computed from n samples
// are filled with the neutral default 0.0. The trained models expect
// that convention; an omitted key would be a schema violation, not a
// degradation.
package features

import (
	"fmt"
)

// =============================================================================
// ENUMS
// =============================================================================

// ModePolicy selects how the coverage Mode is reported.
//
// Valid Values:
//   - "graded": full at n>=30, fallback at n>=10, min below (default)
//   - "always_full": report full regardless of n
//
// The second policy exists for artifacts trained without the
// degradation convention; it changes only the reported mode and the
// informative-column subset, never the emitted values.
type ModePolicy string

const (
	ModePolicyGraded     ModePolicy = "graded"
	ModePolicyAlwaysFull ModePolicy = "always_full"
)

// Mode thresholds for the graded policy.
const (
	fullThreshold     = 30
	fallbackThreshold = 10
)

// fallbackLagLimit is the largest lag/window parameter still counted as
// genuinely informative in fallback mode.
const fallbackLagLimit = 15

// exogenousColumns are the covariate columns shared by every schema, in
// the order the original artifacts were trained with.
var exogenousColumns = []string{
	"HR", "METs",
	"Calories (Activity)", "Calories", "Carbs", "Protein", "Fat", "Fiber",
	"Amount Consumed", "Meal Type", "Steps",
}

// =============================================================================
// Schema
// =============================================================================

// Schema is the descriptor of one feature-vector layout.
//
// Fields:
//   - Name: Identifier used in the model table ("short", "long")
//   - LagOffsets: Lag features, in samples before the most recent
//   - SlopeWindows: Trailing-window sizes for OLS slope features
//   - RollingWindows: Windows emitting rolling mean + population std
//   - EMAWindows: Windows emitting exponential moving averages
//   - MedianCenter: Median-center the series before all derivations
//   - ModePolicy: How the coverage mode is reported
//
// A schema always additionally emits tod_sin/tod_cos and the shared
// exogenous covariate columns.
type Schema struct {
	Name           string
	LagOffsets     []int
	SlopeWindows   []int
	RollingWindows []int
	EMAWindows     []int
	MedianCenter   bool
	ModePolicy     ModePolicy

	columns []string
}

// ShortHorizon returns the 28-column schema the 30-minute delta model
// was trained on: lags {1,2,3,5,10,15,30}, slopes {5,15}, rolling
// mean/std windows {5,15,30}, no centering.
func ShortHorizon() *Schema {
	return &Schema{
		Name:           "short",
		LagOffsets:     []int{1, 2, 3, 5, 10, 15, 30},
		SlopeWindows:   []int{5, 15},
		RollingWindows: []int{5, 15, 30},
		ModePolicy:     ModePolicyGraded,
	}
}

// LongHorizon returns the schema of the 60/120-minute delta models:
// lags extended to {60,90,120}, exponential moving averages {10,30,60}
// in place of rolling mean/std, and median centering of every
// series-derived feature.
func LongHorizon() *Schema {
	return &Schema{
		Name:         "long",
		LagOffsets:   []int{1, 2, 3, 5, 10, 15, 30, 60, 90, 120},
		SlopeWindows: []int{5, 15},
		EMAWindows:   []int{10, 30, 60},
		MedianCenter: true,
		ModePolicy:   ModePolicyGraded,
	}
}

// ByName resolves a schema name from the model table.
func ByName(name string) (*Schema, error) {
	switch name {
	case "", "short":
		return ShortHorizon(), nil
	case "long":
		return LongHorizon(), nil
	default:
		return nil, fmt.Errorf("unknown feature schema: %q", name)
	}
}

// Column name constructors. Kept as functions so tests and the builder
// cannot drift apart on naming.
func lagColumn(offset int) string    { return fmt.Sprintf("gl_lag_%d", offset) }
func slopeColumn(window int) string  { return fmt.Sprintf("gl_slope_%d", window) }
func rollMeanColumn(w int) string    { return fmt.Sprintf("gl_rm_%d", w) }
func rollStdColumn(w int) string     { return fmt.Sprintf("gl_rs_%d", w) }
func emaColumn(window int) string    { return fmt.Sprintf("gl_ema_%d", window) }

// Columns returns the ordered column list of the schema, including the
// categorical Meal Type column. The list is computed once and cached.
func (s *Schema) Columns() []string {
	if s.columns != nil {
		return s.columns
	}
	cols := make([]string, 0,
		len(s.LagOffsets)+len(s.SlopeWindows)+2*len(s.RollingWindows)+
			len(s.EMAWindows)+2+len(exogenousColumns))

	for _, l := range s.LagOffsets {
		cols = append(cols, lagColumn(l))
	}
	for _, k := range s.SlopeWindows {
		cols = append(cols, slopeColumn(k))
	}
	for _, w := range s.RollingWindows {
		cols = append(cols, rollMeanColumn(w), rollStdColumn(w))
	}
	for _, w := range s.EMAWindows {
		cols = append(cols, emaColumn(w))
	}
	cols = append(cols, "tod_sin", "tod_cos")
	cols = append(cols, exogenousColumns...)

	s.columns = cols
	return cols
}
