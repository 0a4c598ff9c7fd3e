// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the model layer. Handlers map these onto HTTP
// status codes, so failure classes must stay distinguishable.
var (
	// ErrModelNotFound means the artifact file does not exist at the
	// configured path. Maps to 404 at the HTTP boundary.
	ErrModelNotFound = errors.New("model artifact not found")

	// ErrHorizonNotConfigured means the requested horizon has no entry
	// in the model table.
	ErrHorizonNotConfigured = errors.New("no model configured for horizon")
)

// PredictionError wraps a failure inside a loaded model's Predict call.
//
// A loaded artifact failing at inference time is a server-side fault
// (500), distinct from a missing artifact (404) and from malformed
// client input (400). Keeping it a typed error preserves which model
// failed for logging.
type PredictionError struct {
	Model  string
	Reason string
	Err    error
}

func (e *PredictionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("prediction failed (model=%s): %s: %v", e.Model, e.Reason, e.Err)
	}
	return fmt.Sprintf("prediction failed (model=%s): %s", e.Model, e.Reason)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// newPredictionError builds a PredictionError with a formatted reason.
func newPredictionError(model, format string, args ...any) *PredictionError {
	return &PredictionError{Model: model, Reason: fmt.Sprintf(format, args...)}
}
