package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dunamismax/pixelcache/internal/api"
	"github.com/dunamismax/pixelcache/internal/config"
	"github.com/dunamismax/pixelcache/internal/domain"
	"github.com/dunamismax/pixelcache/internal/engine"
	"github.com/dunamismax/pixelcache/internal/pipeline"
	"github.com/dunamismax/pixelcache/internal/storage"
	"github.com/dunamismax/pixelcache/internal/telemetry"
	"github.com/dunamismax/pixelcache/internal/watermark"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmsgprefix)

	ctx := context.Background()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:  "pixelcache",
		Exporter:     cfg.Trace.Exporter,
		OTLPEndpoint: cfg.Trace.OTLPEndpoint,
		OTLPInsecure: cfg.Trace.OTLPInsecure,
	}, logger)
	if err != nil {
		logger.Fatalf("tracing setup failed: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Printf("tracing shutdown error: %v", err)
		}
	}()

	storageClient, err := storage.NewClient(storage.Config{
		Endpoint: cfg.Storage.Endpoint,
		Access:   cfg.Storage.AccessKey,
		Secret:   cfg.Storage.SecretKey,
		UseSSL:   cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatalf("storage client failed: %v", err)
	}

	ensureCtx, cancelEnsure := context.WithTimeout(ctx, 15*time.Second)
	if err := storageClient.EnsureBucket(ensureCtx, cfg.Storage.DerivedBucket); err != nil {
		logger.Fatalf("ensure derived bucket failed: %v", err)
	}
	cancelEnsure()

	if err := engine.Startup(); err != nil {
		logger.Fatalf("engine startup failed: %v", err)
	}
	defer engine.Shutdown()

	eng, err := engine.New()
	if err != nil {
		logger.Fatalf("engine init failed: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	orchestrator, err := pipeline.New(pipeline.Config{
		Logger:     logger,
		Store:      storageClient,
		Engine:     eng,
		Compositor: watermark.Compositor{},
		Presets:    domain.DefaultPresets(),
		Policy: pipeline.Policy{
			WatermarkEnabled: cfg.Watermark.Enabled,
			FitInCacheKey:    cfg.Cache.IncludeFit,
			VerboseLogging:   cfg.Server.VerboseLogging,
		},
		Buckets: pipeline.Buckets{
			Source:  cfg.Storage.SourceBucket,
			Derived: cfg.Storage.DerivedBucket,
		},
		WatermarkObjectKey: cfg.Watermark.ObjectKey,
		Metrics:            pipeline.NewMetrics(registry),
	})
	if err != nil {
		logger.Fatalf("pipeline init failed: %v", err)
	}

	limiter := buildRateLimiter(cfg.RateLimit, logger)

	app := api.NewServer(api.Config{
		Logger:       logger,
		Orchestrator: orchestrator,
		Registry:     registry,
		RateLimiter:  limiter,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s source_bucket=%s derived_bucket=%s", cfg.Server.Addr, cfg.Storage.SourceBucket, cfg.Storage.DerivedBucket)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Println("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}
