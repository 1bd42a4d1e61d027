package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/statement-converter/internal/api"
	"github.com/dvloznov/statement-converter/internal/api/handlers"
	"github.com/dvloznov/statement-converter/internal/api/middleware"
	"github.com/dvloznov/statement-converter/internal/config"
	"github.com/dvloznov/statement-converter/internal/export"
	"github.com/dvloznov/statement-converter/internal/gcs"
	"github.com/dvloznov/statement-converter/internal/jobs"
	"github.com/dvloznov/statement-converter/internal/jobs/inmemory"
	"github.com/dvloznov/statement-converter/internal/logger"
	"github.com/dvloznov/statement-converter/internal/metrics"
	"github.com/dvloznov/statement-converter/internal/pdftext"
	"github.com/dvloznov/statement-converter/internal/pipeline"
	"github.com/dvloznov/statement-converter/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const limiterIdle = time.Hour

func main() {
	bootLog := logger.New()
	if err := config.LoadDotEnv(".env", "../.env"); err != nil {
		bootLog.Fatal().Err(err).Msg("Failed to load .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.NewFromConfig(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// LLM client
	client, err := pipeline.NewGeminiClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}
	parser := pipeline.NewGeminiParser(client.Models, cfg.GeminiModel, m)
	extractor := pdftext.NewExtractor()

	store := session.NewStore(cfg.SessionTTL, func() *pipeline.Controller {
		return pipeline.NewController(pipeline.NewConversionPipeline(extractor, parser), m)
	}, m)

	// Optional export archive
	var archive export.FileSink
	if cfg.ExportBucket != "" {
		gcsClient, err := gcs.NewClient(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer gcsClient.Close()

		sink, err := gcs.NewSink(gcsClient, cfg.ExportBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid EXPORT_BUCKET")
		}
		archive = sink
		log.Info().Str("destination", cfg.ExportBucket).Msg("Exports will be archived")
	}

	// Initialize job infrastructure
	jobQueue := inmemory.NewQueue(cfg.QueueSize, cfg.WorkerCount)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", cfg.WorkerCount).Msg("Starting job workers")
	if err := jobQueue.Start(workerCtx, jobs.ExecuteRun); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	// Rate limiter, pruned periodically
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
	go func() {
		ticker := time.NewTicker(limiterIdle)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup(limiterIdle)
			}
		}
	}()

	conv := handlers.NewConverter(store, jobQueue, export.NewExporter(archive, export.WithMetrics(m)), archive, cfg.MaxUploadBytes)

	router := api.NewRouter(api.RouterConfig{
		SessionsHandler: handlers.NewSessionsHandler(conv),
		PageHandler:     handlers.NewPageHandler(conv),
		RateLimiter:     limiter,
		Metrics:         m,
		Gatherer:        reg,
		Logger:          log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("model", cfg.GeminiModel).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let in-flight runs finish, then stop the workers
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
