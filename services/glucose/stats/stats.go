// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package stats provides the shared numeric helpers used by feature
// derivation and meal-response baseline estimation.
//
// All helpers follow the degradation contract of the feature pipeline:
// on insufficient input they return the neutral default 0.0 instead of
// failing, so callers never need to special-case short series.
package stats

import (
	"math"
	"time"
)

// Mean returns the arithmetic mean of xs, or 0.0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// PopStd returns the population standard deviation (ddof=0) of xs,
// or 0.0 for an empty slice.
//
// Population rather than sample deviation matches the preprocessing the
// regression artifacts were trained with.
func PopStd(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := Mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

// SlopeIndexed returns the ordinary least-squares slope of the last k
// values of xs against their integer index.
//
// Description:
//
//	The trailing window is xs[len-k:]. Returns 0.0 when xs holds fewer
//	than k values or k < 2, and 0.0 when the index variance is zero
//	(k == 1 windows).
//
// Inputs:
//   - xs: Series values, oldest first
//   - k: Trailing window length
//
// Outputs:
//   - float64: Slope in value units per sample step
func SlopeIndexed(xs []float64, k int) float64 {
	if k < 2 || len(xs) < k {
		return 0
	}
	y := xs[len(xs)-k:]
	// slope = cov(x,y)/var(x) with x = 0..k-1
	xMean := float64(k-1) / 2
	yMean := Mean(y)
	var cov, varX float64
	for i := 0; i < k; i++ {
		dx := float64(i) - xMean
		cov += dx * (y[i] - yMean)
		varX += dx * dx
	}
	if varX == 0 {
		return 0
	}
	return cov / varX
}

// SlopeXY returns the ordinary least-squares slope of y against x.
//
// Used for slopes against elapsed minutes, where the x spacing is not
// uniform. Returns 0.0 when fewer than 2 points are given, when the
// lengths differ, or when x has zero variance.
func SlopeXY(x, y []float64) float64 {
	n := len(x)
	if n < 2 || len(y) != n {
		return 0
	}
	xMean := Mean(x)
	yMean := Mean(y)
	var cov, varX float64
	for i := 0; i < n; i++ {
		dx := x[i] - xMean
		cov += dx * (y[i] - yMean)
		varX += dx * dx
	}
	if varX == 0 {
		return 0
	}
	return cov / varX
}

// EMA returns the exponential moving average over the trailing window of
// length w, with smoothing alpha = 2/(w+1).
//
// Description:
//
//	The recurrence is seeded with the first value of the trailing window
//	and folds the remaining values as v = alpha*x + (1-alpha)*v. Fewer
//	than 2 available samples in the window yield 0.0, matching the
//	neutral-default contract.
func EMA(xs []float64, w int) float64 {
	if w < 1 {
		return 0
	}
	tail := xs
	if len(xs) > w {
		tail = xs[len(xs)-w:]
	}
	if len(tail) < 2 {
		return 0
	}
	alpha := 2.0 / (float64(w) + 1.0)
	v := tail[0]
	for _, x := range tail[1:] {
		v = alpha*x + (1-alpha)*v
	}
	return v
}

// TimeOfDaySinCos encodes the time of day of t on the unit circle.
//
// The angle is 2*pi * minutesSinceMidnight / 1440, so midnight maps to
// (0, 1) and noon to (0, -1). Encoding the clock cyclically keeps 23:55
// and 00:05 close together in feature space.
func TimeOfDaySinCos(t time.Time) (float64, float64) {
	minutes := float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60.0
	angle := 2 * math.Pi * minutes / (24 * 60)
	return math.Sin(angle), math.Cos(angle)
}
