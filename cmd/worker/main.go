package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"optimizer-pro/config"
	"optimizer-pro/internal/logger"
	"optimizer-pro/internal/queue/rabbitmq"
	"optimizer-pro/internal/storage"
	"optimizer-pro/internal/storage/disk"
	miniostore "optimizer-pro/internal/storage/minio"
	"optimizer-pro/internal/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Setup(&cfg.Log)

	if !cfg.Queue.Enabled {
		log.Fatal().Msg("Queue is disabled; the cleanup worker requires queue.enabled=true")
	}

	store, err := newStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create artifact store")
	}
	defer store.Close()

	queueClient, err := rabbitmq.NewClient(&cfg.Queue)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create RabbitMQ client")
	}
	defer queueClient.Close()

	w := worker.New(store, queueClient, cfg)

	go func() {
		if err := w.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Worker failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info().Msg("Shutting down worker...")

	cancel()
	w.Stop()

	log.Info().Msg("Worker stopped")
}

func newStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "minio":
		return miniostore.New(&cfg.MinIO)
	default:
		return disk.New(&cfg.Storage, cfg.Server.BaseURL)
	}
}
