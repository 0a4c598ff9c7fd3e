// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package series turns raw wire-format glucose points into an ordered,
// repaired GlucoseSeries.
//
// # Description
//
// Incoming glucose histories are sparse, irregularly sampled, and dirty:
// timestamps may be absent or unparsable, values may be null or
// non-finite. Normalization applies a fixed cleaning policy:
//
//  1. Points without a numeric value are dropped.
//  2. Points whose timestamp fails to parse are kept and sort earliest,
//     stably, so relative input order among them is preserved.
//  3. Remaining points are sorted ascending by timestamp.
//  4. Non-finite values (NaN, +/-Inf) are repaired by linear
//     interpolation between the nearest finite neighbours, extending
//     the nearest finite value across leading and trailing gaps.
//
// An input that leaves zero samples after filtering fails with
// ErrEmptySeries; every other input normalizes successfully.
package series

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dialog-health/dialog-glucose/services/glucose/datatypes"
)

// ParseTimestamp parses an RFC 3339 timestamp, tolerating a trailing
// "Z" suffix and returning nil for empty or unparsable input.
//
// Unparsable is not an error here: a sample with a bad timestamp still
// carries a usable glucose value, it just loses its position in time.
func ParseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	// Some exporters emit "+00:00" style offsets, some a bare "Z".
	normalized := strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, normalized); err == nil {
		return &t
	}
	// Second chance for timestamps without an offset at all.
	if t, err := time.Parse("2006-01-02T15:04:05", normalized); err == nil {
		t = t.UTC()
		return &t
	}
	return nil
}

// Normalize cleans and orders raw glucose points into a series.
//
// # Description
//
// Applies the package-level cleaning policy: drop valueless points,
// parse timestamps leniently, sort ascending with untimestamped points
// first, then repair non-finite values by interpolation.
//
// # Inputs
//
//   - points: Raw wire points, in any order
//
// # Outputs
//
//   - *datatypes.GlucoseSeries: Ascending, finite-valued series
//   - error: ErrEmptySeries when nothing usable remains
func Normalize(points []datatypes.GlucosePoint) (*datatypes.GlucoseSeries, error) {
	samples := make([]datatypes.GlucoseSample, 0, len(points))
	for _, p := range points {
		if p.Value == nil {
			continue
		}
		samples = append(samples, datatypes.GlucoseSample{
			Timestamp: ParseTimestamp(p.TS),
			Value:     *p.Value,
		})
	}
	return NormalizeSamples(samples)
}

// NormalizeSamples sorts and repairs already-parsed samples.
//
// Exposed separately for callers that hold samples rather than wire
// points (the meal-response endpoint pairs values with timestamps
// itself).
func NormalizeSamples(samples []datatypes.GlucoseSample) (*datatypes.GlucoseSeries, error) {
	if len(samples) == 0 {
		return nil, ErrEmptySeries
	}

	sorted := make([]datatypes.GlucoseSample, len(samples))
	copy(sorted, samples)

	// Missing timestamps sort as earliest; the stable sort keeps their
	// relative input order.
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := sorted[i].Timestamp, sorted[j].Timestamp
		if ti == nil {
			return tj != nil
		}
		if tj == nil {
			return false
		}
		return ti.Before(*tj)
	})

	repairNonFinite(sorted)

	// A series that is entirely non-finite cannot be repaired; treat it
	// the same as empty input.
	if !math.IsInf(sorted[0].Value, 0) && !math.IsNaN(sorted[0].Value) {
		return datatypes.NewGlucoseSeries(sorted), nil
	}
	return nil, ErrEmptySeries
}

// repairNonFinite replaces NaN/Inf values by linear interpolation
// between the nearest finite neighbours, repeating the nearest finite
// value across leading and trailing gaps. A slice with no finite value
// is left untouched for the caller to reject.
func repairNonFinite(samples []datatypes.GlucoseSample) {
	n := len(samples)

	finite := func(i int) bool {
		v := samples[i].Value
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	}

	firstFinite := -1
	for i := 0; i < n; i++ {
		if finite(i) {
			firstFinite = i
			break
		}
	}
	if firstFinite == -1 {
		return
	}

	// Leading gap: repeat the first finite value.
	for i := 0; i < firstFinite; i++ {
		samples[i].Value = samples[firstFinite].Value
	}

	prev := firstFinite
	for i := firstFinite + 1; i < n; i++ {
		if !finite(i) {
			continue
		}
		// Interpolate across the gap (prev, i).
		gap := i - prev
		if gap > 1 {
			step := (samples[i].Value - samples[prev].Value) / float64(gap)
			for j := prev + 1; j < i; j++ {
				samples[j].Value = samples[prev].Value + step*float64(j-prev)
			}
		}
		prev = i
	}

	// Trailing gap: repeat the last finite value.
	for i := prev + 1; i < n; i++ {
		samples[i].Value = samples[prev].Value
	}
}
