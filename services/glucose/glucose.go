// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package glucose provides the glucose prediction service for Dia-Log.
//
// This package contains the main Service type that coordinates all
// components of the service: HTTP routing, feature derivation, model
// dispatch, meal-response curve synthesis, and observability
// infrastructure.
//
// # Usage
//
//	cfg := glucose.Config{Port: 8000, ModelTablePath: "configs/models.yaml"}
//	svc, err := glucose.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package glucose

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/dialog-health/dialog-glucose/services/glucose/features"
	"github.com/dialog-health/dialog-glucose/services/glucose/handlers"
	"github.com/dialog-health/dialog-glucose/services/glucose/mealresponse"
	"github.com/dialog-health/dialog-glucose/services/glucose/middleware"
	"github.com/dialog-health/dialog-glucose/services/glucose/model"
	"github.com/dialog-health/dialog-glucose/services/glucose/observability"
	"github.com/dialog-health/dialog-glucose/services/glucose/routes"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the glucose prediction service.
//
// # Description
//
// Service abstracts the server lifecycle, enabling testing and
// alternative implementations. Run() blocks and should only be called
// once per instance.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use after construction.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	//
	// # Outputs
	//
	//   - error: Non-nil if the server fails to start or encounters a
	//     fatal error
	Run() error

	// Router returns the underlying Gin engine for testing.
	//
	// # Outputs
	//
	//   - *gin.Engine: The configured router with all routes registered
	//
	// # Assumptions
	//
	//   - Caller will not modify the router
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds glucose service configuration options.
//
// # Description
//
// Config centralizes all configuration for the prediction service.
// Values can be populated from environment variables, flags, or
// programmatically for testing. All fields are optional with defaults
// applied by New(), except ModelTablePath which must point at an
// existing model table.
type Config struct {
	// Port is the HTTP server port. Default: 8000
	Port int

	// ModelTablePath is the YAML file mapping horizons to model
	// artifacts. Default: "configs/models.yaml"
	ModelTablePath string

	// DatasetDir is the directory of bundled demo datasets.
	// Default: "data/datasets"
	DatasetDir string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "dialog-otel-collector:4317"
	OTelEndpoint string

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	// Default: uses GIN_MODE env var or "debug"
	GinMode string

	// ModePolicy overrides the per-schema feature mode policy.
	// Valid values: "graded", "always_full". Default: per-schema.
	ModePolicy string

	// PreloadModels loads every artifact in the table at startup
	// instead of on first request. A preload failure is logged, not
	// fatal: the artifact may appear on disk later. Always enabled by
	// applyConfigDefaults.
	PreloadModels bool

	// CORSOrigins are extra allowed origins on top of the standard
	// local development ones.
	CORSOrigins []string

	// RateLimitRPS is the sustained per-client request rate.
	// Default: 20
	RateLimitRPS float64

	// RateLimitBurst is the momentary per-client burst.
	// Default: 40
	RateLimitBurst int
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	config        Config
	router        *gin.Engine
	dispatcher    *model.Dispatcher
	metrics       *observability.PredictionMetrics
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a new glucose prediction Service with the given
// configuration.
//
// # Description
//
// New initializes all service components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing
//  3. Initializes Prometheus metrics
//  4. Loads and validates the horizon-to-model table
//  5. Optionally preloads every model artifact
//  6. Sets up HTTP routes and middleware
//
// # Inputs
//
//   - cfg: Service configuration. Zero values use defaults.
//
// # Outputs
//
//   - Service: Ready-to-run prediction service
//   - error: Non-nil if initialization fails
//
// # Limitations
//
//   - A missing or invalid model table is fatal; a missing artifact
//     file is not (the request that needs it gets a 404)
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	// Initialize OpenTelemetry tracer
	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	// Initialize Prometheus metrics. Guarded so tests can construct
	// more than one service in a process without a duplicate
	// registration panic.
	if observability.DefaultMetrics == nil {
		observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics for predictions")
	}
	s.metrics = observability.DefaultMetrics

	// Load the horizon-to-model table
	table, err := model.LoadTable(s.config.ModelTablePath)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to load model table: %w", err)
	}
	slog.Info("Loaded model table",
		"path", s.config.ModelTablePath,
		"horizons", table.HorizonList(),
		"meal_response", table.MealResponse.Path != "")

	registry := model.NewRegistry()
	s.dispatcher = model.NewDispatcher(registry, table)

	if s.config.PreloadModels {
		s.preloadModels(registry, table)
	}

	// Setup HTTP router
	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting glucose prediction server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.ModelTablePath == "" {
		cfg.ModelTablePath = "configs/models.yaml"
	}
	if cfg.DatasetDir == "" {
		cfg.DatasetDir = "data/datasets"
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "dialog-otel-collector:4317"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 20
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 40
	}
	// PreloadModels defaults to true (zero value is false, so it is
	// set unconditionally here)
	cfg.PreloadModels = true
	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// # Description
//
// Sets up an OTLP trace exporter to send spans to the configured
// collector. Connection establishment is lazy, so an unreachable
// collector does not block startup.
//
// # Outputs
//
//   - func(context.Context): Cleanup function to call on shutdown
//   - error: Non-nil if tracer setup fails
//
// # Limitations
//
//   - Uses insecure gRPC connection (appropriate for internal networks)
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("glucose-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// preloadModels warms the registry with every artifact in the table.
//
// Failures are logged and counted but not fatal: a missing artifact at
// boot may be synced onto disk before the first request that needs it.
func (s *service) preloadModels(registry *model.Registry, table *model.Table) {
	for _, path := range table.Paths() {
		if _, err := registry.Resolve(path); err != nil {
			s.metrics.RecordModelLoad(false)
			slog.Warn("Model preload failed", "path", path, "error", err)
			continue
		}
		s.metrics.RecordModelLoad(true)
	}
	slog.Info("Preloaded model artifacts", "loaded", registry.Len())
}

// initRouter sets up the Gin HTTP router with all routes.
//
// # Description
//
// Creates the Gin engine, applies middleware (tracing, CORS, rate
// limiting), and registers all routes.
//
// # Assumptions
//
//   - The dispatcher is initialized
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("glucose-service"))
	s.router.Use(middleware.CORS(s.config.CORSOrigins))

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: s.config.RateLimitRPS,
		Burst:             s.config.RateLimitBurst,
	})
	s.router.Use(limiter.Middleware())

	deps := &handlers.Deps{
		Dispatcher: s.dispatcher,
		Metrics:    s.metrics,
		ModePolicy: features.ModePolicy(s.config.ModePolicy),
	}
	routes.SetupRoutes(s.router, deps, mealresponse.NewSynthesizer(), s.config.DatasetDir)
}

// cleanup releases all resources held by the service.
//
// # Description
//
// Called when Run() exits or on initialization failure. Shuts down the
// tracer exporter.
func (s *service) cleanup() {
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
