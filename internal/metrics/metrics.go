package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"optimizer-pro/internal/logger"
)

var (
	// RequestsTotal counts the number of HTTP requests received
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimizer_pro_requests_total",
			Help: "The total number of HTTP requests processed by the API",
		},
		[]string{"method", "status", "endpoint"},
	)

	// RequestDuration measures the duration of HTTP requests
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "optimizer_pro_request_duration_seconds",
			Help:    "The duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ProcessingTotal counts optimized images by outcome
	ProcessingTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimizer_pro_processing_total",
			Help: "The total number of processed images",
		},
		[]string{"status"},
	)

	// ProcessingDuration measures the duration of image processing
	ProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "optimizer_pro_processing_duration_seconds",
			Help:    "The duration of image processing in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // From 100ms to ~100s
		},
		[]string{"status"},
	)

	// ImageSizeReduction measures the image size reduction percentage
	ImageSizeReduction = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "optimizer_pro_size_reduction_percentage",
			Help:    "The percentage of size reduction for processed images",
			Buckets: prometheus.LinearBuckets(0, 10, 11), // 0% to 100% in 10% increments
		},
	)

	// BatchFilesTotal counts per-file outcomes inside batch requests
	BatchFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimizer_pro_batch_files_total",
			Help: "The total number of files processed through batch requests",
		},
		[]string{"status"},
	)
)

// RecordProcessingTime records the time taken to process an image
func RecordProcessingTime(ctx context.Context, status string, startTime time.Time) {
	duration := time.Since(startTime).Seconds()
	ProcessingDuration.WithLabelValues(status).Observe(duration)
	ProcessingTotal.WithLabelValues(status).Inc()

	log := logger.FromContext(ctx)
	log.Debug().
		Str("status", status).
		Float64("duration_seconds", duration).
		Msg("Recorded image processing time")
}

// RecordSizeReduction records the percentage of size reduction
func RecordSizeReduction(ctx context.Context, originalSize, optimizedSize int64) {
	if originalSize <= 0 {
		return
	}

	percentage := (1 - (float64(optimizedSize) / float64(originalSize))) * 100
	ImageSizeReduction.Observe(percentage)

	log := logger.FromContext(ctx)
	log.Debug().
		Int64("original_size", originalSize).
		Int64("optimized_size", optimizedSize).
		Float64("reduction_percentage", percentage).
		Msg("Recorded image size reduction")
}
