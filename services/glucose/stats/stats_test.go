// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-12)
	assert.InDelta(t, 5.0, Mean([]float64{5}), 1e-12)
	assert.Zero(t, Mean(nil))
}

func TestPopStd(t *testing.T) {
	// Classic textbook set with population std exactly 2.
	assert.InDelta(t, 2.0, PopStd([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
	assert.Zero(t, PopStd([]float64{5}))
	assert.Zero(t, PopStd(nil))
}

func TestSlopeIndexed(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		k    int
		want float64
	}{
		{"perfect ramp", []float64{1, 3, 5}, 3, 2.0},
		{"trailing window only", []float64{0, 0, 10, 14}, 2, 4.0},
		{"flat", []float64{7, 7, 7, 7}, 4, 0.0},
		{"window too large", []float64{1, 2}, 3, 0.0},
		{"k below 2", []float64{1, 2, 3}, 1, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SlopeIndexed(tt.xs, tt.k), 1e-12)
		})
	}
}

func TestSlopeXY(t *testing.T) {
	// One mg/dL per minute over a 10-minute span.
	assert.InDelta(t, 1.0,
		SlopeXY([]float64{0, 5, 10}, []float64{100, 105, 110}), 1e-12)

	// Irregular spacing still fits exactly on a line.
	assert.InDelta(t, 2.0,
		SlopeXY([]float64{0, 3, 10}, []float64{50, 56, 70}), 1e-12)

	assert.Zero(t, SlopeXY([]float64{1}, []float64{1}), "single point")
	assert.Zero(t, SlopeXY([]float64{1, 2}, []float64{1}), "length mismatch")
	assert.Zero(t, SlopeXY([]float64{2, 2}, []float64{1, 5}), "zero x variance")
}

func TestEMA(t *testing.T) {
	// w=3 gives alpha=0.5: 1 -> 1.5 -> 2.25
	assert.InDelta(t, 2.25, EMA([]float64{1, 2, 3}, 3), 1e-12)

	// Only the trailing window participates.
	assert.InDelta(t, 2.25, EMA([]float64{99, 99, 1, 2, 3}, 3), 1e-12)

	assert.Zero(t, EMA([]float64{5}, 3), "single sample")
	assert.Zero(t, EMA(nil, 3))
	assert.Zero(t, EMA([]float64{1, 2, 3}, 0), "invalid window")
}

func TestTimeOfDaySinCos(t *testing.T) {
	tests := []struct {
		name             string
		hour, minute     int
		wantSin, wantCos float64
	}{
		{"midnight", 0, 0, 0, 1},
		{"six am", 6, 0, 1, 0},
		{"noon", 12, 0, 0, -1},
		{"six pm", 18, 0, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := time.Date(2025, 6, 1, tt.hour, tt.minute, 0, 0, time.UTC)
			sin, cos := TimeOfDaySinCos(ts)
			assert.InDelta(t, tt.wantSin, sin, 1e-9)
			assert.InDelta(t, tt.wantCos, cos, 1e-9)
		})
	}
}

func TestTimeOfDaySinCosUnitCircle(t *testing.T) {
	for hour := 0; hour < 24; hour += 3 {
		ts := time.Date(2025, 6, 1, hour, 17, 42, 0, time.UTC)
		sin, cos := TimeOfDaySinCos(ts)
		assert.InDelta(t, 1.0, sin*sin+cos*cos, 1e-9)
	}
}
