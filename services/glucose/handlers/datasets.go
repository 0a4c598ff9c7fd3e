// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dialog-health/dialog-glucose/pkg/validation"
	"github.com/dialog-health/dialog-glucose/services/glucose/datatypes"
)

// Demo datasets are CSV files with a header row and two columns:
// ts (RFC 3339, may be empty) and value (mg/dL). They exist so the
// dashboard can exercise the prediction endpoints without a live CGM
// export.

// readDatasetCSV parses one dataset file into wire points. Rows with an
// unparsable value are skipped; a bad timestamp is kept as-is, since
// the normalizer tolerates it downstream.
func readDatasetCSV(path string) ([]datatypes.GlucosePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	points := make([]datatypes.GlucosePoint, 0, len(rows))
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			// header row, or malformed
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			continue
		}
		value := v
		points = append(points, datatypes.GlucosePoint{
			TS:    strings.TrimSpace(row[0]),
			Value: &value,
		})
	}
	return points, nil
}

// HandleListDatasets serves GET /v1/datasets.
func HandleListDatasets(datasetDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := os.ReadDir(datasetDir)
		if err != nil {
			if os.IsNotExist(err) {
				c.JSON(http.StatusOK, gin.H{"datasets": []datatypes.DatasetSummary{}})
				return
			}
			slog.Error("Failed to read dataset directory", "dir", datasetDir, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list datasets"})
			return
		}

		summaries := make([]datatypes.DatasetSummary, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
				continue
			}
			points, err := readDatasetCSV(filepath.Join(datasetDir, e.Name()))
			if err != nil {
				slog.Warn("Skipping unreadable dataset", "file", e.Name(), "error", err)
				continue
			}
			summaries = append(summaries, datatypes.DatasetSummary{
				Name:    strings.TrimSuffix(e.Name(), ".csv"),
				Samples: len(points),
			})
		}
		c.JSON(http.StatusOK, gin.H{"datasets": summaries})
	}
}

// HandleGetDataset serves GET /v1/datasets/:name.
//
// The name is validated before touching the filesystem; anything that
// could escape the dataset directory is a 400, a missing file a 404.
func HandleGetDataset(datasetDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		name, err := validation.SanitizeDatasetName(c.Param("name"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		path := filepath.Join(datasetDir, name+".csv")
		points, err := readDatasetCSV(path)
		if err != nil {
			if os.IsNotExist(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "dataset not found"})
				return
			}
			slog.Error("Failed to read dataset", "file", path, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read dataset"})
			return
		}

		c.JSON(http.StatusOK, datatypes.DatasetResponse{
			Name:    name,
			Glucose: points,
		})
	}
}
