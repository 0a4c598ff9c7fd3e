// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package series

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dialog-health/dialog-glucose/services/glucose/datatypes"
)

func fptr(v float64) *float64 { return &v }

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *time.Time
	}{
		{
			"rfc3339 zulu",
			"2025-06-01T08:00:00Z",
			tptr(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)),
		},
		{
			"rfc3339 offset",
			"2025-06-01T08:00:00+02:00",
			tptr(time.Date(2025, 6, 1, 8, 0, 0, 0, time.FixedZone("", 2*60*60))),
		},
		{
			"no offset treated as utc",
			"2025-06-01T08:00:00",
			tptr(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)),
		},
		{
			"surrounding whitespace",
			"  2025-06-01T08:00:00Z  ",
			tptr(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)),
		},
		{"empty", "", nil},
		{"garbage", "yesterday-ish", nil},
		{"date only", "2025-06-01", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimestamp(tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, got.Equal(*tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestNormalize_DropsValuelessPoints(t *testing.T) {
	points := []datatypes.GlucosePoint{
		{TS: "2025-06-01T08:00:00Z", Value: fptr(100)},
		{TS: "2025-06-01T08:05:00Z", Value: nil},
		{TS: "2025-06-01T08:10:00Z", Value: fptr(110)},
	}
	s, err := Normalize(points)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []float64{100, 110}, s.Values())
}

func TestNormalize_EmptyInput(t *testing.T) {
	_, err := Normalize(nil)
	assert.ErrorIs(t, err, ErrEmptySeries)

	_, err = Normalize([]datatypes.GlucosePoint{{Value: nil}, {Value: nil}})
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestNormalize_SortsByTimestamp(t *testing.T) {
	points := []datatypes.GlucosePoint{
		{TS: "2025-06-01T08:10:00Z", Value: fptr(110)},
		{TS: "2025-06-01T08:00:00Z", Value: fptr(100)},
		{TS: "2025-06-01T08:05:00Z", Value: fptr(105)},
	}
	s, err := Normalize(points)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 105, 110}, s.Values())
	require.NotNil(t, s.LatestTimestamp())
	assert.Equal(t, 10, s.LatestTimestamp().Minute())
}

func TestNormalize_UntimestampedSortFirstStably(t *testing.T) {
	points := []datatypes.GlucosePoint{
		{TS: "2025-06-01T08:00:00Z", Value: fptr(100)},
		{TS: "", Value: fptr(90)},
		{TS: "not a time", Value: fptr(92)},
	}
	s, err := Normalize(points)
	require.NoError(t, err)
	// Both untimestamped points precede the timestamped one, in their
	// original relative order.
	assert.Equal(t, []float64{90, 92, 100}, s.Values())
	assert.Nil(t, s.Samples()[0].Timestamp)
	assert.Nil(t, s.Samples()[1].Timestamp)
	assert.NotNil(t, s.Samples()[2].Timestamp)
}

func TestNormalizeSamples_RepairsNonFinite(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   []float64
	}{
		{"single gap", []float64{100, math.NaN(), 110}, []float64{100, 105, 110}},
		{"double gap", []float64{100, math.NaN(), math.NaN(), 130}, []float64{100, 110, 120, 130}},
		{"leading gap", []float64{math.NaN(), math.NaN(), 108, 112}, []float64{108, 108, 108, 112}},
		{"trailing gap", []float64{100, 104, math.Inf(1)}, []float64{100, 104, 104}},
		{"negative inf", []float64{100, math.Inf(-1), 110}, []float64{100, 105, 110}},
		{"already clean", []float64{95, 100, 105}, []float64{95, 100, 105}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NormalizeSamples(samplesAt(tt.values))
			require.NoError(t, err)
			got := s.Values()
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-9, "index %d", i)
			}
		})
	}
}

func TestNormalizeSamples_AllNonFinite(t *testing.T) {
	_, err := NormalizeSamples(samplesAt([]float64{math.NaN(), math.Inf(1)}))
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestNormalizeSamples_DoesNotMutateInput(t *testing.T) {
	in := samplesAt([]float64{110, math.NaN(), 100})
	// Scramble order so sorting has work to do.
	in[0].Timestamp, in[2].Timestamp = in[2].Timestamp, in[0].Timestamp

	_, err := NormalizeSamples(in)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(in[1].Value), "input slice was repaired in place")
}

func tptr(t time.Time) *time.Time { return &t }

// samplesAt builds timestamped samples at a 5-minute cadence.
func samplesAt(values []float64) []datatypes.GlucoseSample {
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	out := make([]datatypes.GlucoseSample, len(values))
	for i, v := range values {
		ts := base.Add(time.Duration(i) * 5 * time.Minute)
		out[i] = datatypes.GlucoseSample{Timestamp: &ts, Value: v}
	}
	return out
}
