// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mealresponse

import (
	"time"

	"github.com/dialog-health/dialog-glucose/services/glucose/datatypes"
	"github.com/dialog-health/dialog-glucose/services/glucose/stats"
)

// baselineWindow is the trailing pre-meal window used for the baseline
// estimate when timestamps are available.
const baselineWindow = 15 * time.Minute

// minWindowPoints is the minimum number of in-window points required
// for the timestamped path and for any slope fit.
const minWindowPoints = 3

// fallbackSamples is the window width, in samples, when timestamps are
// absent. Four points at the assumed 5-minute cadence span 15 minutes.
const fallbackSamples = 4

// assumedCadenceMinutes spaces untimestamped samples on the time axis.
const assumedCadenceMinutes = 5.0

// BaselineAndSlope estimates the pre-meal baseline glucose and trend.
//
// Description:
//
//	When the series carries usable timestamps and at least 3 samples,
//	the window is the 15 minutes strictly before the latest sample:
//	baseline is the window mean and slope the least-squares fit of
//	value against elapsed minutes, in mg/dL per minute. Without
//	timestamps (or with too few in-window points) the last
//	min(n, 4) samples are used at an assumed 5-minute cadence; fewer
//	than 3 of them yield slope 0.0.
//
// Outputs:
//   - baseline: Window mean, 0.0 for an empty series
//   - slope: Trend in mg/dL per minute, 0.0 when it cannot be fitted
func BaselineAndSlope(s *datatypes.GlucoseSeries) (baseline, slope float64) {
	n := s.Len()
	if n == 0 {
		return 0, 0
	}

	if base, sl, ok := timestampedWindow(s); ok {
		return base, sl
	}

	k := n
	if k > fallbackSamples {
		k = fallbackSamples
	}
	values := s.Values()
	window := values[n-k:]
	baseline = stats.Mean(window)

	if k >= minWindowPoints {
		xs := make([]float64, k)
		for i := range xs {
			xs[i] = float64(i) * assumedCadenceMinutes
		}
		slope = stats.SlopeXY(xs, window)
	}
	return baseline, slope
}

// timestampedWindow attempts the real 15-minute window. ok is false
// when timestamps are missing or fewer than 3 samples fall in-window,
// in which case the caller falls back to the sample-count window.
func timestampedWindow(s *datatypes.GlucoseSeries) (baseline, slope float64, ok bool) {
	samples := s.Samples()
	if len(samples) < minWindowPoints {
		return 0, 0, false
	}
	last := samples[len(samples)-1].Timestamp
	if last == nil {
		return 0, 0, false
	}

	cutoff := last.Add(-baselineWindow)
	var mins, vals []float64
	var startTS *time.Time
	for _, sm := range samples {
		// The window is [last-15m, last): the meal-time sample itself is
		// excluded from the pre-meal estimate.
		if sm.Timestamp == nil || sm.Timestamp.Before(cutoff) || !sm.Timestamp.Before(*last) {
			continue
		}
		if startTS == nil {
			startTS = sm.Timestamp
		}
		mins = append(mins, sm.Timestamp.Sub(*startTS).Minutes())
		vals = append(vals, sm.Value)
	}
	if len(vals) < minWindowPoints {
		return 0, 0, false
	}
	return stats.Mean(vals), stats.SlopeXY(mins, vals), true
}
