package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticketboss/cmd/consumers/jobs"
	"ticketboss/internal/config"
	"ticketboss/internal/consumers"
	"ticketboss/internal/database"
	"ticketboss/internal/logger"
	"ticketboss/internal/messaging"
	"ticketboss/internal/metrics"
	"ticketboss/internal/repository"
	"ticketboss/internal/search"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", "error", err)
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Starting consumers service...")

	// Override client ID for consumers
	cfg.Messaging.ClientID = "ticketboss-consumers"

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()
	slog.Info("Database connected", "driver", db.Driver())

	client, err := messaging.New(cfg.Messaging)
	if err != nil {
		logger.Fatal("Failed to connect to message broker", "error", err)
	}

	var indexer consumers.AuditIndexer
	if cfg.Search.Enabled() {
		es, err := search.NewElasticsearchClient(cfg.Search)
		if err != nil {
			logger.Fatal("Failed to connect to Elasticsearch", "error", err)
		}
		healthCtx, healthCancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := es.HealthCheck(healthCtx); err != nil {
			slog.Warn("Elasticsearch is not healthy yet, indexing will be retried through the broker", "error", err)
		}
		healthCancel()
		indexer = es
	} else {
		slog.Warn("ELASTICSEARCH_URL is empty, reservation events are only logged")
	}

	consumerService := consumers.NewConsumerService(client, indexer)
	if err := consumerService.Start(); err != nil {
		logger.Fatal("Failed to start consumers", "error", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	invariantJob := jobs.NewInvariantCheckJob(repository.NewRepositories(db), cfg.Event.ID, m)
	invariantJob.Start(ctx)

	metricsSrv := &http.Server{
		Addr:    ":" + cfg.ConsumersMetricsPort,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server stopped", "error", err)
		}
	}()

	slog.Info("Consumers service started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down consumers service...")

	invariantJob.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error stopping metrics server", "error", err)
	}

	if err := consumerService.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}

	slog.Info("Consumers service stopped")
}
