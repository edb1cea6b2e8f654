package db

import (
	"context"

	"optimizer-pro/internal/db/models"
)

// Repository defines the interface for database operations
type Repository interface {
	CreateImage(ctx context.Context, image *models.Image) error
	ListImages(ctx context.Context, limit, offset int) ([]*models.Image, int, error)
	Stats(ctx context.Context) (*models.StatsResponse, error)

	// Health check
	Ping(ctx context.Context) error

	// Close the repository
	Close() error
}
