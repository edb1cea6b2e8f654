package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"optimizer-pro/config"
	"optimizer-pro/internal/api/router"
	"optimizer-pro/internal/db/postgres"
	"optimizer-pro/internal/logger"
	"optimizer-pro/internal/queue"
	"optimizer-pro/internal/queue/rabbitmq"
	"optimizer-pro/internal/storage"
	"optimizer-pro/internal/storage/disk"
	miniostore "optimizer-pro/internal/storage/minio"
	"optimizer-pro/internal/tracing"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Setup(&cfg.Log)

	shutdownTracing, err := tracing.Init(ctx, &cfg.Tracing)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}
	defer shutdownTracing()

	repo, err := postgres.NewRepository(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create database repository")
	}
	defer repo.Close()

	store, err := newStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create artifact store")
	}
	defer store.Close()

	// The queue is optional; without it optimization events are simply not
	// published and uploads are retained.
	var queueClient queue.Client
	if cfg.Queue.Enabled {
		queueClient, err = rabbitmq.NewClient(&cfg.Queue)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create RabbitMQ client")
		}
		defer queueClient.Close()
	}

	r := router.Setup(cfg, repo, store, queueClient)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("address", server.Addr).Msg("Starting API server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("API server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info().Msg("Shutting down API server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("API server forced to shutdown")
	}

	log.Info().Msg("API server stopped")
}

func newStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "minio":
		return miniostore.New(&cfg.MinIO)
	default:
		return disk.New(&cfg.Storage, cfg.Server.BaseURL)
	}
}
