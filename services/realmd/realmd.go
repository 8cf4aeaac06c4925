// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package realmd provides the Realm Sync HTTP service.
//
// The service type coordinates the components: gin routing, the badger
// store, the continuity checker, the LLM collaborator, blob storage, the
// maintenance scheduler, and observability (Prometheus metrics plus
// OpenTelemetry tracing).
//
// External collaborators are injected via extensions.ServiceOptions; with a
// nil options value the service runs with no-op providers except session
// auth, which is always backed by the local store.
package realmd

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

	"github.com/realmsync/realmsync/pkg/extensions"
	"github.com/realmsync/realmsync/services/blob"
	"github.com/realmsync/realmsync/services/canon"
	"github.com/realmsync/realmsync/services/jobs"
	"github.com/realmsync/realmsync/services/llm"
	"github.com/realmsync/realmsync/services/realmd/handlers"
	"github.com/realmsync/realmsync/services/realmd/middleware"
	"github.com/realmsync/realmsync/services/realmd/observability"
	"github.com/realmsync/realmsync/services/realmd/routes"
	"github.com/realmsync/realmsync/services/store"
)

// Service is the realmd lifecycle contract. Run blocks; Router exposes the
// configured gin engine for tests.
type Service interface {
	Run() error
	Router() *gin.Engine
}

// Config holds realmd configuration. All fields have defaults applied by
// New.
type Config struct {
	// Port is the HTTP server port. Default: 12310.
	Port int

	// StorePath is the badger data directory. Default: "./data/realmsync".
	// Ignored when StoreInMemory is true.
	StorePath     string
	StoreInMemory bool

	// Blob configures object storage. Default driver: filesystem under
	// "./data/blobs".
	Blob blob.Config

	// LLMBackend selects the model client. Valid values: "openai",
	// "static" (canned responses, for tests and offline runs).
	// Default: "openai".
	LLMBackend string

	// CacheTTL is the model result cache lifetime. Default: 7 days.
	CacheTTL time.Duration

	// OTelEndpoint is the OpenTelemetry collector endpoint. Empty
	// disables tracing.
	OTelEndpoint string

	// EnableMetrics exposes Prometheus metrics on /metrics.
	EnableMetrics bool

	// GinMode sets the gin framework mode ("debug", "release", "test").
	GinMode string

	// RateLimitRPS and RateLimitBurst shape the per-caller limiter.
	// Zero RPS disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	// ExtractionLimit and ChatLimit cap per-user LLM usage per period.
	// Zero means unlimited.
	ExtractionLimit int
	ChatLimit       int

	// Jobs configures the maintenance scheduler. JobsEnabled defaults
	// to true.
	Jobs         jobs.SchedulerConfig
	JobsDisabled bool
}

type service struct {
	config        Config
	opts          extensions.ServiceOptions
	router        *gin.Engine
	store         *store.Store
	checker       *canon.Checker
	llmClient     llm.Client
	blobs         blob.Store
	scheduler     jobs.Scheduler
	tracerCleanup func(context.Context)
}

// New builds a ready-to-run service: config defaults, tracer, metrics,
// store, blob storage, LLM client, scheduler, and router, in that order.
// A nil opts uses the no-op collaborators.
func New(cfg Config, opts *extensions.ServiceOptions) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}
	if opts != nil {
		s.opts = *opts
	} else {
		s.opts = extensions.DefaultOptions()
	}

	if s.config.OTelEndpoint != "" {
		cleanup, err := initTracer(s.config.OTelEndpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	}

	if s.config.EnableMetrics {
		observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics")
	}

	if err := s.initStore(); err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	s.checker = canon.NewChecker(s.store)

	var err error
	s.blobs, err = blob.Open(context.Background(), s.config.Blob)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to open blob storage: %w", err)
	}

	if err := s.initLLMClient(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	if !s.config.JobsDisabled {
		s.scheduler = jobs.NewScheduler(s.store, s.checker, s.config.Jobs)
		if err := s.scheduler.Start(context.Background()); err != nil {
			s.cleanup()
			return nil, fmt.Errorf("failed to start maintenance scheduler: %w", err)
		}
	}

	s.initRouter()
	return s, nil
}

// Run starts the HTTP server and blocks until it stops.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting realmd server", "port", s.config.Port,
		"llm_backend", s.config.LLMBackend, "blob_driver", s.blobs.Driver())

	return s.router.Run(addr)
}

func (s *service) Router() *gin.Engine {
	return s.router
}

func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12310
	}
	if cfg.StorePath == "" {
		cfg.StorePath = "./data/realmsync"
	}
	if cfg.Blob.Driver == "" {
		cfg.Blob.Driver = blob.DriverFilesystem
	}
	if cfg.Blob.Driver == blob.DriverFilesystem && cfg.Blob.Root == "" {
		cfg.Blob.Root = "./data/blobs"
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "openai"
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = llm.DefaultCacheTTL
	}
	return cfg
}

func (s *service) initStore() error {
	var cfg store.Config
	if s.config.StoreInMemory {
		cfg = store.InMemoryConfig()
	} else {
		cfg = store.DefaultConfig(s.config.StorePath)
	}
	cfg.Logger = slog.Default()

	var err error
	s.store, err = store.Open(cfg)
	return err
}

func (s *service) initLLMClient() error {
	switch s.config.LLMBackend {
	case "openai":
		client, err := llm.NewOpenAIClient()
		if err != nil {
			return err
		}
		s.llmClient = client
		slog.Info("Using OpenAI LLM backend", "model", client.Model())
	case "static":
		s.llmClient = &llm.StaticClient{}
		slog.Info("Using static LLM backend (no model calls)")
	default:
		return fmt.Errorf("unknown LLM backend %q", s.config.LLMBackend)
	}
	return nil
}

func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	if s.config.OTelEndpoint != "" {
		s.router.Use(otelgin.Middleware("realmd"))
	}

	h := handlers.New(s.store, s.checker, s.llmClient,
		llm.NewResultCache(s.store, s.config.CacheTTL), s.blobs)
	if s.opts.BillingProvider != nil {
		h.Billing = s.opts.BillingProvider
	}
	if s.opts.AuditLogger != nil {
		h.Audit = s.opts.AuditLogger
	}
	h.Limits = handlers.UsageLimits{
		Extractions: s.config.ExtractionLimit,
		Chats:       s.config.ChatLimit,
	}

	// Session auth against the local store unless an external provider
	// was injected.
	authProvider := s.opts.AuthProvider
	if _, isNop := authProvider.(*extensions.NopAuthProvider); authProvider == nil || isNop {
		authProvider = middleware.NewSessionAuthProvider(s.store)
	}

	var limiter *middleware.RateLimiter
	if s.config.RateLimitRPS > 0 {
		burst := s.config.RateLimitBurst
		if burst == 0 {
			burst = int(s.config.RateLimitRPS) + 1
		}
		limiter = middleware.NewRateLimiter(s.config.RateLimitRPS, burst)
	}

	routes.SetupRoutes(s.router, h, authProvider, limiter)
}

// initTracer sets up the OTLP trace exporter over an insecure gRPC
// connection, appropriate for collector sidecars on internal networks.
func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("realmd")))
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

func (s *service) cleanup() {
	if s.scheduler != nil {
		if err := s.scheduler.Stop(); err != nil {
			slog.Warn("Scheduler stop error", "error", err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("Store close error", "error", err)
		}
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

var _ Service = (*service)(nil)
