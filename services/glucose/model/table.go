// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TableEntry binds one prediction horizon to an artifact on disk.
//
// Fields:
//   - HorizonMin: Prediction horizon in minutes (30, 60, 120)
//   - Path: Filesystem path of the artifact JSON
//   - Schema: Feature schema name ("short", "long"); empty means short
type TableEntry struct {
	HorizonMin int    `yaml:"horizon_min"`
	Path       string `yaml:"path"`
	Schema     string `yaml:"schema"`
}

// Table is the deploy-time mapping from horizons to artifacts, loaded
// from the models YAML file.
//
// Example:
//
//	horizons:
//	  - horizon_min: 30
//	    path: models/delta_30.json
//	    schema: short
//	  - horizon_min: 120
//	    path: models/delta_120.json
//	    schema: long
//	meal_response:
//	  path: models/meal_response.json
type Table struct {
	Horizons     []TableEntry `yaml:"horizons"`
	MealResponse struct {
		Path string `yaml:"path"`
	} `yaml:"meal_response"`
}

// LoadTable reads and validates the model table.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model table %s: %w", path, err)
	}
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse model table %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model table %s: %w", path, err)
	}
	return &t, nil
}

// Validate rejects duplicate or incomplete horizon entries.
func (t *Table) Validate() error {
	if len(t.Horizons) == 0 {
		return fmt.Errorf("no horizons configured")
	}
	seen := make(map[int]bool, len(t.Horizons))
	for _, e := range t.Horizons {
		if e.HorizonMin <= 0 {
			return fmt.Errorf("horizon_min must be positive, got %d", e.HorizonMin)
		}
		if e.Path == "" {
			return fmt.Errorf("horizon %d has no path", e.HorizonMin)
		}
		if seen[e.HorizonMin] {
			return fmt.Errorf("duplicate horizon %d", e.HorizonMin)
		}
		seen[e.HorizonMin] = true
	}
	return nil
}

// Entry returns the table entry for a horizon.
func (t *Table) Entry(horizonMin int) (TableEntry, error) {
	for _, e := range t.Horizons {
		if e.HorizonMin == horizonMin {
			return e, nil
		}
	}
	return TableEntry{}, fmt.Errorf("%w: %d min", ErrHorizonNotConfigured, horizonMin)
}

// HorizonList lists the configured horizons in table order.
func (t *Table) HorizonList() []int {
	out := make([]int, len(t.Horizons))
	for i, e := range t.Horizons {
		out[i] = e.HorizonMin
	}
	return out
}

// Paths lists every artifact path in the table, for registry preload.
func (t *Table) Paths() []string {
	out := make([]string, 0, len(t.Horizons)+1)
	for _, e := range t.Horizons {
		out = append(out, e.Path)
	}
	if t.MealResponse.Path != "" {
		out = append(out, t.MealResponse.Path)
	}
	return out
}
