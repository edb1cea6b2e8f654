package models

import (
	"time"

	"github.com/google/uuid"
)

// Image is one persisted optimization result. Rows are append-only: they are
// created on successful optimization and never updated or deleted.
type Image struct {
	ID               uuid.UUID `json:"id" db:"id"`
	OriginalName     string    `json:"original_name" db:"original_name"`
	OptimizedPath    string    `json:"optimized_path" db:"optimized_path"`
	OriginalSize     int64     `json:"original_size" db:"original_size"`
	OptimizedSize    int64     `json:"optimized_size" db:"optimized_size"`
	CompressionRatio float64   `json:"compression_ratio" db:"compression_ratio"`
	Format           string    `json:"format" db:"format"`
	Quality          int       `json:"quality" db:"quality"`
	Width            int       `json:"width" db:"width"`
	Height           int       `json:"height" db:"height"`
	ProcessingTime   int64     `json:"processing_time" db:"processing_time"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// NewImage creates a new Image record with a fresh ID and server-assigned timestamp
func NewImage(originalName, optimizedPath string, originalSize, optimizedSize int64, compressionRatio float64, format string, quality, width, height int, processingTime int64) *Image {
	return &Image{
		ID:               uuid.New(),
		OriginalName:     originalName,
		OptimizedPath:    optimizedPath,
		OriginalSize:     originalSize,
		OptimizedSize:    optimizedSize,
		CompressionRatio: compressionRatio,
		Format:           format,
		Quality:          quality,
		Width:            width,
		Height:           height,
		ProcessingTime:   processingTime,
		CreatedAt:        time.Now(),
	}
}

// Pagination describes one page of the image listing
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// ImageListResponse represents the response for image listing
type ImageListResponse struct {
	Images     []*Image   `json:"images"`
	Pagination Pagination `json:"pagination"`
}

// OverallStats aggregates all persisted optimization results
type OverallStats struct {
	TotalImages         int64   `json:"total_images"`
	TotalOriginalSize   int64   `json:"total_original_size"`
	TotalOptimizedSize  int64   `json:"total_optimized_size"`
	AvgCompressionRatio float64 `json:"avg_compression_ratio"`
	AvgProcessingTime   float64 `json:"avg_processing_time"`
	FormatsUsed         int64   `json:"formats_used"`
}

// FormatStats is the per-format breakdown, ordered by count descending
type FormatStats struct {
	Format         string  `json:"format"`
	Count          int64   `json:"count"`
	AvgCompression float64 `json:"avg_compression"`
}

// StatsResponse represents the response for the stats endpoint
type StatsResponse struct {
	Overall           OverallStats   `json:"overall"`
	ByFormat          []*FormatStats `json:"by_format"`
	TotalSavingsBytes int64          `json:"total_savings_bytes"`
}
