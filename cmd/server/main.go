// Package main provides the entry point for the paper ingest service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helixir/paper-ingest-service/internal/cache"
	"github.com/helixir/paper-ingest-service/internal/config"
	"github.com/helixir/paper-ingest-service/internal/knowledgestore"
	"github.com/helixir/paper-ingest-service/internal/observability"
	"github.com/helixir/paper-ingest-service/internal/pdf"
	"github.com/helixir/paper-ingest-service/internal/pipeline"
	httpserver "github.com/helixir/paper-ingest-service/internal/server/http"
	"github.com/helixir/paper-ingest-service/internal/sourceindex"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load a local .env if present; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("paper-ingest-service starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics("paper_ingest")

	source := sourceindex.New(sourceindex.Config{
		BaseURL:    cfg.SourceIndex.BaseURL,
		Email:      cfg.SourceIndex.Email,
		APIKey:     cfg.SourceIndex.APIKey,
		Timeout:    cfg.SourceIndex.Timeout,
		RateLimit:  cfg.SourceIndex.RateLimit,
		BurstSize:  cfg.SourceIndex.BurstSize,
		MaxResults: cfg.SourceIndex.MaxResults,
		Metrics:    metrics,
	})

	downloader := pdf.NewDownloader(pdf.Config{
		Timeout:   cfg.Download.Timeout,
		MaxSize:   cfg.Download.MaxSizeBytes,
		UserAgent: cfg.Download.UserAgent,
	})

	storeConfig := knowledgestore.Config{
		BaseURL:      cfg.KnowledgeStore.BaseURL,
		APIKey:       cfg.KnowledgeStore.APIKey,
		Timeout:      cfg.KnowledgeStore.Timeout,
		PollInterval: cfg.KnowledgeStore.PollInterval,
	}
	store, err := knowledgestore.New(storeConfig)
	if err != nil {
		return fmt.Errorf("create knowledge store client: %w", err)
	}

	pipe := pipeline.New(cache.New(), source, downloader, logger, metrics)

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = promhttp.Handler()
	}

	httpSrv := httpserver.NewServer(
		httpserver.Config{
			Address:      cfg.Server.HTTPAddress(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  2 * time.Minute,
			MetricsPath:  cfg.Metrics.Path,
		},
		pipe,
		store,
		storeConfig,
		httpserver.IngestDefaults{
			KnowledgeBaseName:        cfg.Ingest.KnowledgeBaseName,
			KnowledgeBaseDescription: cfg.Ingest.KnowledgeBaseDescription,
			MaxPapers:                cfg.Ingest.MaxPapers,
			FileProcessTimeout:       cfg.Ingest.FileProcessTimeout,
		},
		metricsHandler,
		logger,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown HTTP server: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}
