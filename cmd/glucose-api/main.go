// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command glucose-api starts the Dia-Log glucose prediction HTTP server.
//
// This is the main entry point for the containerized prediction service.
// It reads configuration from environment variables, overridable by
// flags, and starts the server.
//
// # Environment Variables
//
//   - GLUCOSE_PORT: HTTP server port (default: 8000)
//   - GLUCOSE_MODEL_TABLE: Horizon-to-model table path (default: configs/models.yaml)
//   - GLUCOSE_DATASET_DIR: Demo dataset directory (default: data/datasets)
//   - GLUCOSE_MODE_POLICY: Feature mode policy - graded, always_full (default: per schema)
//   - GLUCOSE_LOG_DIR: Directory for dated JSON log files (default: disabled)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: dialog-otel-collector:4317)
//
// # Usage
//
//	# Build
//	go build -o glucose-api ./cmd/glucose-api
//
//	# Run the server
//	./glucose-api serve
//
//	# Inspect a model artifact
//	./glucose-api inspect-model models/delta_30.json
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/dialog-health/dialog-glucose/pkg/logging"
)

func main() {
	// Setup structured logging. GLUCOSE_LOG_DIR additionally mirrors
	// logs to dated JSON files.
	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		Service: "glucose-api",
		JSON:    true,
		LogDir:  os.Getenv("GLUCOSE_LOG_DIR"),
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	// Execute the root command. Cobra handles parsing the arguments.
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
