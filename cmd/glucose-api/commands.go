// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"log"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dialog-health/dialog-glucose/services/glucose"
	"github.com/dialog-health/dialog-glucose/services/glucose/model"
)

// --- Command Flag Variables ---
var (
	servePort      int
	modelTablePath string
	datasetDir     string
	modePolicy     string
	corsOrigins    []string

	rootCmd = &cobra.Command{
		Use:   "glucose-api",
		Short: "The Dia-Log glucose prediction service",
		Long: `glucose-api serves short-horizon glucose delta predictions and
meal response curves over HTTP, backed by regression artifacts
exported from the Dia-Log training pipeline.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the prediction HTTP server",
		Run:   runServe,
	}

	inspectModelCmd = &cobra.Command{
		Use:   "inspect-model [path]",
		Short: "Print the structure of a model artifact",
		Args:  cobra.ExactArgs(1),
		Run:   runInspectModel,
	}
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0,
		"HTTP server port (overrides GLUCOSE_PORT)")
	serveCmd.Flags().StringVar(&modelTablePath, "model-table", "",
		"horizon-to-model table path (overrides GLUCOSE_MODEL_TABLE)")
	serveCmd.Flags().StringVar(&datasetDir, "dataset-dir", "",
		"demo dataset directory (overrides GLUCOSE_DATASET_DIR)")
	serveCmd.Flags().StringVar(&modePolicy, "mode-policy", "",
		"feature mode policy: graded or always_full (overrides GLUCOSE_MODE_POLICY)")
	serveCmd.Flags().StringSliceVar(&corsOrigins, "cors-origin", nil,
		"extra allowed CORS origin (repeatable)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(inspectModelCmd)
}

// runServe builds the service configuration from flags and environment
// variables and blocks on the HTTP server.
func runServe(cmd *cobra.Command, args []string) {
	cfg := glucose.Config{
		Port:           servePort,
		ModelTablePath: modelTablePath,
		DatasetDir:     datasetDir,
		ModePolicy:     modePolicy,
		CORSOrigins:    corsOrigins,
		OTelEndpoint:   getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
	if cfg.Port == 0 {
		cfg.Port = getEnvInt("GLUCOSE_PORT", 0)
	}
	if cfg.ModelTablePath == "" {
		cfg.ModelTablePath = getEnvString("GLUCOSE_MODEL_TABLE", "")
	}
	if cfg.DatasetDir == "" {
		cfg.DatasetDir = getEnvString("GLUCOSE_DATASET_DIR", "")
	}
	if cfg.ModePolicy == "" {
		cfg.ModePolicy = getEnvString("GLUCOSE_MODE_POLICY", "")
	}

	slog.Info("Starting glucose prediction service",
		"port", cfg.Port,
		"model_table", cfg.ModelTablePath,
		"dataset_dir", cfg.DatasetDir,
	)

	svc, err := glucose.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create the glucose service: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Glucose service error: %v", err)
	}
}

// runInspectModel loads one artifact and dumps its structure, the
// debugging aid for "which columns does this model actually want".
func runInspectModel(cmd *cobra.Command, args []string) {
	art, err := model.LoadArtifact(args[0])
	if err != nil {
		log.Fatalf("Failed to load artifact: %v", err)
	}

	fmt.Println("NAME:", art.Name)
	fmt.Println("KIND:", art.Kind)
	fmt.Println("OUTPUTS:", art.Outputs)
	fmt.Println("COLUMNS (len):", len(art.Columns))
	for i, col := range art.Columns {
		fmt.Println(i, col)
	}
	if art.Categorical != nil {
		levels := make([]string, 0, len(art.Categorical.Levels))
		for level := range art.Categorical.Levels {
			levels = append(levels, level)
		}
		sort.Strings(levels)
		fmt.Println("CATEGORICAL:", art.Categorical.Column, "levels:", levels)
	}
	fmt.Println("SCALER: mean/std over", len(art.Scaler.Mean), "numeric columns")
	fmt.Println("INTERCEPTS:", art.Intercepts)
}
