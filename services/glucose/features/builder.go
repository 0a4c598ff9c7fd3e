// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package features

import (
	"time"

	"github.com/dialog-health/dialog-glucose/services/glucose/datatypes"
	"github.com/dialog-health/dialog-glucose/services/glucose/stats"
)

// =============================================================================
// Builder
// =============================================================================

// Builder derives feature vectors for one Schema. It is stateless and
// safe for concurrent use.
type Builder struct {
	schema *Schema
}

// NewBuilder returns a builder for the given schema.
func NewBuilder(schema *Schema) *Builder {
	return &Builder{schema: schema}
}

// Schema returns the schema this builder emits.
func (b *Builder) Schema() *Schema { return b.schema }

// ModeFor reports the coverage mode the builder's policy assigns to a
// series of n samples.
func (b *Builder) ModeFor(n int) datatypes.Mode {
	if b.schema.ModePolicy == ModePolicyAlwaysFull {
		return datatypes.ModeFull
	}
	switch {
	case n >= fullThreshold:
		return datatypes.ModeFull
	case n >= fallbackThreshold:
		return datatypes.ModeFallback
	default:
		return datatypes.ModeMin
	}
}

// Build derives the feature vector for a normalized series.
//
// Description:
//
//	Emits exactly the schema's column set for any n >= 1. Lags that
//	reach before the start of the series, slopes over windows the
//	series cannot fill, and rolling statistics over under-filled
//	windows all default to 0.0 rather than being omitted.
//
// Inputs:
//   - s: Normalized series (chronological, finite values)
//   - ref: Reference wall-clock time for the time-of-day encoding;
//     nil yields tod_sin = tod_cos = 0.0
//   - cov: Exogenous covariates; nil pointers default to 0.0 and an
//     empty meal type defaults to "Unknown"
//
// Outputs:
//   - *datatypes.FeatureVector: Complete vector over schema.Columns()
//   - datatypes.Mode: Coverage mode per the schema's policy
//
// Assumptions:
//   - s has at least one sample (the normalizer guarantees this)
func (b *Builder) Build(s *datatypes.GlucoseSeries, ref *time.Time, cov datatypes.Covariates) (*datatypes.FeatureVector, datatypes.Mode) {
	sc := b.schema
	n := s.Len()
	mode := b.ModeFor(n)

	vals := s.Values()
	if sc.MedianCenter {
		vals = s.Centered()
	}

	num := make(map[string]float64, len(sc.Columns()))

	for _, l := range sc.LagOffsets {
		v := 0.0
		if n > l {
			v = vals[n-1-l]
		}
		num[lagColumn(l)] = v
	}

	for _, k := range sc.SlopeWindows {
		num[slopeColumn(k)] = stats.SlopeIndexed(vals, k)
	}

	for _, w := range sc.RollingWindows {
		rm, rs := 0.0, 0.0
		if n >= w {
			win := vals[n-w:]
			rm = stats.Mean(win)
			rs = stats.PopStd(win)
		}
		num[rollMeanColumn(w)] = rm
		num[rollStdColumn(w)] = rs
	}

	for _, w := range sc.EMAWindows {
		num[emaColumn(w)] = stats.EMA(vals, w)
	}

	sin, cos := 0.0, 0.0
	if ref != nil {
		sin, cos = stats.TimeOfDaySinCos(*ref)
	}
	num["tod_sin"] = sin
	num["tod_cos"] = cos

	num["HR"] = datatypes.OrDefault(cov.HR)
	num["METs"] = datatypes.OrDefault(cov.METs)
	num["Calories (Activity)"] = datatypes.OrDefault(cov.CaloriesActivity)
	num["Calories"] = datatypes.OrDefault(cov.Calories)
	num["Carbs"] = datatypes.OrDefault(cov.Carbs)
	num["Protein"] = datatypes.OrDefault(cov.Protein)
	num["Fat"] = datatypes.OrDefault(cov.Fat)
	num["Fiber"] = datatypes.OrDefault(cov.Fiber)
	num["Amount Consumed"] = datatypes.OrDefault(cov.AmountConsumed)
	num["Steps"] = datatypes.OrDefault(cov.Steps)

	mealType := cov.MealType
	if mealType == "" {
		mealType = datatypes.MealTypeUnknown
	}

	return &datatypes.FeatureVector{
		Columns:  sc.Columns(),
		Numeric:  num,
		MealType: mealType,
	}, mode
}

// InformativeColumns reports which columns carry genuine signal at the
// given mode. This is a reporting aid for API responses; the emitted
// vector always contains every column regardless of mode.
//
// In fallback mode, lag and window features whose parameter exceeds
// what a 10-29 sample series can support are excluded. In min mode only
// the shortest lag, slope, and smoothing window survive alongside the
// time-of-day encoding and the meal covariates that still matter for a
// near-term prediction.
func (b *Builder) InformativeColumns(mode datatypes.Mode) []string {
	sc := b.schema
	switch mode {
	case datatypes.ModeFull:
		return sc.Columns()
	case datatypes.ModeFallback:
		cols := make([]string, 0, len(sc.Columns()))
		for _, l := range sc.LagOffsets {
			if l <= fallbackLagLimit {
				cols = append(cols, lagColumn(l))
			}
		}
		for _, k := range sc.SlopeWindows {
			if k <= fallbackLagLimit {
				cols = append(cols, slopeColumn(k))
			}
		}
		for _, w := range sc.RollingWindows {
			if w <= fallbackLagLimit {
				cols = append(cols, rollMeanColumn(w), rollStdColumn(w))
			}
		}
		for _, w := range sc.EMAWindows {
			if w <= fallbackLagLimit {
				cols = append(cols, emaColumn(w))
			}
		}
		cols = append(cols, "tod_sin", "tod_cos")
		cols = append(cols, exogenousColumns...)
		return cols
	default:
		cols := make([]string, 0, 10)
		if len(sc.LagOffsets) > 0 {
			cols = append(cols, lagColumn(sc.LagOffsets[0]))
		}
		if len(sc.SlopeWindows) > 0 {
			cols = append(cols, slopeColumn(sc.SlopeWindows[0]))
		}
		if len(sc.RollingWindows) > 0 {
			cols = append(cols, rollMeanColumn(sc.RollingWindows[0]))
		} else if len(sc.EMAWindows) > 0 {
			cols = append(cols, emaColumn(sc.EMAWindows[0]))
		}
		cols = append(cols, "tod_sin", "tod_cos",
			"Calories", "Carbs", "Meal Type", "Steps")
		return cols
	}
}
