// Package worker consumes post-optimization events and applies the upload
// retention policy: transient uploads are removed once their optimized
// artifact exists, unless the deployment opts to keep them.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"optimizer-pro/config"
	"optimizer-pro/internal/logger"
	"optimizer-pro/internal/queue"
	"optimizer-pro/internal/storage"
)

type Worker struct {
	store       storage.Store
	queueClient queue.Client
	logger      zerolog.Logger
	config      *config.Config
	sem         chan struct{} // limits concurrent task handling
	wg          sync.WaitGroup
}

func New(
	store storage.Store,
	queueClient queue.Client,
	cfg *config.Config,
) *Worker {
	return &Worker{
		store:       store,
		queueClient: queueClient,
		logger:      logger.GetLogger("worker"),
		config:      cfg,
		sem:         make(chan struct{}, cfg.Queue.MaxWorkers),
	}
}

// Start starts consuming tasks and blocks until the consumer stops
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().Int("max_workers", w.config.Queue.MaxWorkers).Msg("Starting worker")

	if err := w.queueClient.Consume(ctx, w.processTask); err != nil {
		return fmt.Errorf("error consuming messages: %w", err)
	}

	return nil
}

// Stop waits for in-flight tasks to finish
func (w *Worker) Stop() {
	w.logger.Info().Msg("Stopping worker")
	w.wg.Wait()
	w.logger.Info().Msg("Worker stopped")
}

func (w *Worker) processTask(ctx context.Context, task queue.Task) error {
	w.wg.Add(1)
	defer w.wg.Done()

	w.sem <- struct{}{}
	defer func() { <-w.sem }()

	w.logger.Info().
		Str("task_id", task.ID).
		Str("task_type", task.Type).
		Msg("Processing task")

	switch task.Type {
	case queue.TaskTypeImageOptimized:
		return w.cleanupUpload(ctx, task)
	default:
		return fmt.Errorf("unknown task type: %s", task.Type)
	}
}

// cleanupUpload deletes the transient upload behind an optimization event
func (w *Worker) cleanupUpload(ctx context.Context, task queue.Task) error {
	uploadPath, ok := task.Data["upload_path"].(string)
	if !ok {
		return fmt.Errorf("missing upload_path in task data")
	}

	if w.config.Storage.KeepUploads {
		w.logger.Debug().Str("upload_path", uploadPath).Msg("Upload retention enabled, skipping cleanup")
		return nil
	}

	if err := w.store.DeleteUpload(ctx, uploadPath); err != nil {
		return fmt.Errorf("error deleting upload %s: %w", uploadPath, err)
	}

	w.logger.Info().Str("upload_path", uploadPath).Msg("Transient upload removed")
	return nil
}
