// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dialog-health/dialog-glucose/services/glucose/model"
)

// HealthCheck serves GET /health. It reports registry counters so a
// probe can tell "up but no models loaded yet" from "up and warm".
func HealthCheck(registry *model.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := registry.Stats()
		c.JSON(http.StatusOK, gin.H{
			"status":        "ok",
			"models_loaded": stats.Loaded,
			"model_errors":  stats.Errors,
		})
	}
}
