package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/user/places-extractor/internal/adapter/chromedp_driver"
	"github.com/user/places-extractor/internal/adapter/postgres"
	redis_adapter "github.com/user/places-extractor/internal/adapter/redis"
	"github.com/user/places-extractor/internal/delivery/http/handler"
	"github.com/user/places-extractor/internal/delivery/http/router"
	"github.com/user/places-extractor/internal/extractor"
	"github.com/user/places-extractor/internal/scheduler"
	"github.com/user/places-extractor/internal/usecase"
	"github.com/user/places-extractor/pkg/config"
	"github.com/user/places-extractor/pkg/logger"
	"github.com/user/places-extractor/pkg/metrics"
)

// requestTimeout bounds synchronous extractions served over HTTP.
const requestTimeout = 10 * time.Minute

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// --- Logger ---
	logLevel := logger.ParseLevel(cfg.LogLevel)
	logger.Init(os.Stdout, logLevel, "places-extractor")
	slog.Info("Logger initialized", "level", logLevel.String())

	// --- Metrics ---
	metrics.Init()
	slog.Info("Metrics initialized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Database Connections ---

	// PostgreSQL
	dbpool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		slog.Error("Unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	if err := dbpool.Ping(ctx); err != nil {
		slog.Error("Unable to reach database", "error", err)
		os.Exit(1)
	}
	slog.Info("PostgreSQL connection pool established")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		slog.Error("Unable to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("Redis connection established")

	// --- Repositories ---
	recordRepo := postgres.NewRecordRepo(dbpool)
	failureRepo := postgres.NewFailureRepo(dbpool)
	jobRepo := postgres.NewJobRepo(dbpool)
	queueRepo := redis_adapter.NewQueueRepo(rdb)
	cacheRepo := redis_adapter.NewResultCacheRepo(rdb)

	// --- Extractor ---
	locators, err := extractor.LoadLocators(cfg.LocatorsFile)
	if err != nil {
		slog.Error("Invalid locators", "file", cfg.LocatorsFile, "error", err)
		os.Exit(1)
	}
	factory := chromedp_driver.NewFactory(chromedp_driver.Config{
		Headless:        cfg.Headless,
		ExecPath:        cfg.ChromePath,
		Proxies:         cfg.ProxyServers,
		PageLoadTimeout: cfg.PageLoadTimeout,
		ActionTimeout:   cfg.ActionTimeout,
		MaxBrowsers:     cfg.MaxBrowsers,
	})
	ex := extractor.New(factory, locators, extractorOptions(cfg))

	// --- Use Cases ---
	service := usecase.NewExtractionService(ex, recordRepo, failureRepo, cacheRepo, cfg.ResultCacheTTL, cfg.MaxTargetCount)
	jobManager := usecase.NewJobManager(service, jobRepo, queueRepo, recordRepo, failureRepo)
	jobProcessor := usecase.NewJobProcessor(service, jobRepo, queueRepo)

	// --- Background Work ---
	sched, err := scheduler.New(jobRepo, queueRepo, cfg.JobStaleAfter)
	if err != nil {
		slog.Error("Failed to create scheduler", "error", err)
		os.Exit(1)
	}
	if err := sched.Start(ctx); err != nil {
		slog.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		jobProcessor.Run(ctx, cfg.JobWorkers, cfg.JobPollInterval)
	}()
	slog.Info("Job workers started", "workers", cfg.JobWorkers)

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(service, jobManager)
	httpRouter := router.New(apiHandler, requestTimeout)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: requestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not listen on port", "port", cfg.ServerPort, "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}
	workers.Wait()
	slog.Info("Shutdown complete")
}

func extractorOptions(cfg *config.Config) extractor.Options {
	opts := extractor.DefaultOptions()
	opts.Workers = cfg.ExtractWorkers
	opts.ItemDelay = extractor.Range{Min: cfg.ItemDelayMin, Max: cfg.ItemDelayMax}
	opts.ItemTimeout = cfg.ItemTimeout
	opts.DetailSettle = extractor.Range{Min: cfg.DetailSettleMin, Max: cfg.DetailSettleMax}
	opts.SecondarySettle = cfg.SecondarySettle
	opts.RatePerSecond = cfg.RateLimitPerSec

	opts.Collector.ScrollDelay = extractor.Range{Min: cfg.ScrollDelayMin, Max: cfg.ScrollDelayMax}
	opts.Collector.MaxPasses = cfg.MaxPasses
	opts.Collector.AltAdvanceAfter = cfg.AltAdvanceAfter
	opts.Collector.ReloadAfter = cfg.ReloadAfter
	opts.Collector.MaxStagnant = cfg.MaxStagnant
	return opts
}
