// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that are used in
// file paths. Using these validators prevents path traversal out of the
// configured dataset directory.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// datasetPattern matches valid demo dataset names.
// Allows: letters, digits, underscores, hyphens
// Max length: 64 characters
var datasetPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_\-]{0,63}$`)

// ValidateDatasetName validates a dataset name to prevent path traversal.
//
// Valid names:
//   - 1-64 characters
//   - Letters a-z, A-Z
//   - Digits 0-9
//   - Underscores and hyphens (never dots or separators)
//
// The name is joined onto the dataset directory and read from disk, so
// anything that could climb out of that directory is rejected here.
//
// Returns an error if the name is invalid.
//
// Example:
//
//	if err := validation.ValidateDatasetName(name); err != nil {
//	    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
//	    return
//	}
//	// Safe to join onto the dataset directory
func ValidateDatasetName(name string) error {
	if name == "" {
		return fmt.Errorf("dataset name cannot be empty")
	}

	if !datasetPattern.MatchString(name) {
		return fmt.Errorf("invalid dataset name: %q (must be 1-64 alphanumeric chars, underscores, or hyphens)", name)
	}

	return nil
}

// SanitizeDatasetName normalizes and validates a dataset name.
// Returns the trimmed name without a .csv suffix if valid, or an error.
//
// Use this when the client may send either "week1" or "week1.csv":
//
//	safeName, err := validation.SanitizeDatasetName(userInput)
//	if err != nil {
//	    return err
//	}
//	// safeName is validated and suffix-free
func SanitizeDatasetName(name string) (string, error) {
	normalized := strings.TrimSuffix(strings.TrimSpace(name), ".csv")
	if err := ValidateDatasetName(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
