// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dialog-health/dialog-glucose/services/glucose/handlers"
	"github.com/dialog-health/dialog-glucose/services/glucose/mealresponse"
)

// SetupRoutes registers all HTTP routes on the given router.
//
// Prediction endpoints live under /v1 to leave room for breaking schema
// changes later. /health and /metrics stay unversioned because probes
// and scrapers are configured once and never renegotiate paths.
func SetupRoutes(router *gin.Engine, deps *handlers.Deps, synth *mealresponse.Synthesizer, datasetDir string) {
	router.GET("/health", handlers.HealthCheck(deps.Dispatcher.Registry()))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/predict", handlers.HandlePredict(deps))
		v1.POST("/predict_meal_response", handlers.HandleMealResponse(deps, synth))
		// Demo dataset browsing routes
		datasets := v1.Group("/datasets")
		{
			datasets.GET("", handlers.HandleListDatasets(datasetDir))
			datasets.GET("/:name", handlers.HandleGetDataset(datasetDir))
		}
	}
}
