package queue

import (
	"context"
)

const (
	// TaskTypeImageOptimized is published after every successful optimization.
	// Consumers use it to apply the upload retention policy.
	TaskTypeImageOptimized = "image_optimized"
)

type Task struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// ProcessFunc is a function that processes a task
type ProcessFunc func(ctx context.Context, task Task) error

// Client defines the interface for queue operations
type Client interface {
	Publish(ctx context.Context, task Task) error
	Consume(ctx context.Context, processFunc ProcessFunc) error

	// Close closes the queue connection
	Close() error
}
