// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/dialog-health/dialog-glucose/services/glucose/handlers"
	"github.com/dialog-health/dialog-glucose/services/glucose/mealresponse"
	"github.com/dialog-health/dialog-glucose/services/glucose/model"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

func testDeps() *handlers.Deps {
	return &handlers.Deps{
		Dispatcher: model.NewDispatcher(model.NewRegistry(), &model.Table{}),
	}
}

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	router := gin.New()
	SetupRoutes(router, testDeps(), mealresponse.NewSynthesizer(), t.TempDir())
	return router
}

// ============================================================================
// Route Registration Tests
// ============================================================================

func TestSetupRoutes_CoreRoutesRegistered(t *testing.T) {
	router := setupTestRouter(t)

	coreRoutes := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"POST", "/v1/predict"},
		{"POST", "/v1/predict_meal_response"},
		{"GET", "/v1/datasets"},
		{"GET", "/v1/datasets/:name"},
	}

	registered := router.Routes()
	for _, expected := range coreRoutes {
		found := false
		for _, r := range registered {
			if r.Method == expected.method && r.Path == expected.path {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected route %s %s not found", expected.method, expected.path)
		}
	}
}

// ============================================================================
// Route Handler Tests
// ============================================================================

func TestSetupRoutes_HealthEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Health endpoint returned %d, want %d", w.Code, http.StatusOK)
	}
}

func TestSetupRoutes_MetricsEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)

	// Prometheus metrics endpoint should return 200
	if w.Code != http.StatusOK {
		t.Errorf("Metrics endpoint returned %d, want %d", w.Code, http.StatusOK)
	}

	// Should return prometheus format
	contentType := w.Header().Get("Content-Type")
	if contentType == "" {
		t.Error("Metrics endpoint should return Content-Type header")
	}
}

func TestSetupRoutes_DatasetListEmptyDir(t *testing.T) {
	router := setupTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/datasets", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Dataset list returned %d, want %d", w.Code, http.StatusOK)
	}
}

// ============================================================================
// API Version Group Tests
// ============================================================================

func TestSetupRoutes_V1GroupExists(t *testing.T) {
	router := setupTestRouter(t)

	registered := router.Routes()
	v1Routes := 0
	for _, r := range registered {
		if len(r.Path) > 3 && r.Path[:3] == "/v1" {
			v1Routes++
		}
	}

	if v1Routes == 0 {
		t.Error("Expected at least one /v1 route")
	}
}
