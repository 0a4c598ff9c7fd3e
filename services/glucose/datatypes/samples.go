// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides type definitions for the Dia-Log glucose service.
//
// This file contains the glucose time-series types shared by the
// normalizer, the feature builder, and the HTTP handlers.
package datatypes

import (
	"sort"
	"time"
)

// =============================================================================
// Samples
// =============================================================================

// GlucoseSample is a single glucose reading.
//
// Description:
//
//	A reading consists of a value in mg/dL and an optional timestamp.
//	Timestamps are optional because several upstream exporters (manual
//	logs, some CGM CSV dumps) omit or mangle them. A sample with a nil
//	timestamp still participates in feature derivation; it simply sorts
//	before every timestamped sample.
//
// Fields:
//   - Timestamp: Reading time, nil when absent or unparsable
//   - Value: Glucose concentration in mg/dL
//
// Assumptions:
//   - Value is finite (the normalizer repairs non-finite values)
//   - Duplicates are permitted within one request
type GlucoseSample struct {
	Timestamp *time.Time
	Value     float64
}

// GlucoseSeries is an ordered glucose time series.
//
// Description:
//
//	GlucoseSeries holds samples in ascending timestamp order, with
//	timestamp-less samples first. The raw and centered value arrays are
//	cached views over the sample slice, not independent copies, so the
//	sample slice stays the single source of truth.
//
// Thread Safety:
//
//	Not safe for concurrent mutation. Series are request-scoped: built
//	once by the normalizer and read by the feature builder.
type GlucoseSeries struct {
	samples []GlucoseSample

	// values is the cached raw-value view, built on first access.
	values []float64
	// centered is the cached median-centered view, built on first access.
	centered []float64
}

// NewGlucoseSeries wraps already-sorted samples in a series.
//
// Callers that hold unsorted input should use series.Normalize instead;
// this constructor trusts the given order.
func NewGlucoseSeries(samples []GlucoseSample) *GlucoseSeries {
	return &GlucoseSeries{samples: samples}
}

// Len returns the number of samples in the series.
func (s *GlucoseSeries) Len() int {
	return len(s.samples)
}

// Samples returns the underlying sample slice.
//
// The slice is shared, not copied. Callers must not mutate it.
func (s *GlucoseSeries) Samples() []GlucoseSample {
	return s.samples
}

// Values returns the raw value view of the series.
//
// The view is built once and shared across calls; mutating it corrupts
// the series.
func (s *GlucoseSeries) Values() []float64 {
	if s.values == nil {
		s.values = make([]float64, len(s.samples))
		for i, sm := range s.samples {
			s.values[i] = sm.Value
		}
	}
	return s.values
}

// Centered returns the median-centered value view of the series.
//
// Description:
//
//	Each element is Values()[i] minus the series median. Long-horizon
//	feature schemas derive every series feature from this view so that
//	inference matches the centering applied at training time.
//
// Outputs:
//   - []float64: Cached centered view; empty series yields an empty slice
func (s *GlucoseSeries) Centered() []float64 {
	if s.centered == nil {
		values := s.Values()
		med := median(values)
		s.centered = make([]float64, len(values))
		for i, v := range values {
			s.centered[i] = v - med
		}
	}
	return s.centered
}

// Last returns the most recent sample.
//
// Panics on an empty series; the normalizer guarantees non-empty output.
func (s *GlucoseSeries) Last() GlucoseSample {
	return s.samples[len(s.samples)-1]
}

// LatestTimestamp returns the timestamp of the most recent sample,
// or nil when the series is empty or the last sample is untimestamped.
func (s *GlucoseSeries) LatestTimestamp() *time.Time {
	if len(s.samples) == 0 {
		return nil
	}
	return s.samples[len(s.samples)-1].Timestamp
}

// median returns the middle value of xs without mutating it.
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
