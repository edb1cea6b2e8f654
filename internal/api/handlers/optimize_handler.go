package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"optimizer-pro/config"
	"optimizer-pro/internal/db"
	"optimizer-pro/internal/db/models"
	"optimizer-pro/internal/logger"
	"optimizer-pro/internal/metrics"
	"optimizer-pro/internal/optimizer"
	"optimizer-pro/internal/queue"
	"optimizer-pro/internal/storage"
	"optimizer-pro/internal/tracing"
	"optimizer-pro/internal/upload"
)

type OptimizeHandler struct {
	repo      db.Repository
	store     storage.Store
	queue     queue.Client
	processor *optimizer.Processor
	config    *config.Config
}

func NewOptimizeHandler(
	repo db.Repository,
	store storage.Store,
	queueClient queue.Client,
	cfg *config.Config,
) *OptimizeHandler {
	return &OptimizeHandler{
		repo:      repo,
		store:     store,
		queue:     queueClient,
		processor: optimizer.New(),
		config:    cfg,
	}
}

// Settings echoes the effective optimization parameters back to the client
type Settings struct {
	Format           string `json:"format"`
	Quality          int    `json:"quality"`
	Width            string `json:"width"`
	Height           string `json:"height"`
	PreserveMetadata bool   `json:"preserveMetadata"`
	Watermark        bool   `json:"watermark"`
	SmartCrop        bool   `json:"smartCrop"`
}

type OriginalInfo struct {
	Name     string              `json:"name"`
	Size     int64               `json:"size"`
	Metadata *optimizer.Metadata `json:"metadata"`
}

type OptimizedInfo struct {
	Size     int64               `json:"size"`
	SizeKB   string              `json:"size_kb"`
	Metadata *optimizer.Metadata `json:"metadata"`
}

// OptimizeResponse represents the response for a single optimization
type OptimizeResponse struct {
	Message          string        `json:"message"`
	OptimizedFile    string        `json:"optimizedFile"`
	Original         OriginalInfo  `json:"original"`
	Optimized        OptimizedInfo `json:"optimized"`
	CompressionRatio float64       `json:"compression_ratio"`
	ProcessingTime   int64         `json:"processing_time"`
	Settings         Settings      `json:"settings"`
}

// BatchResult annotates one file's outcome inside a batch
type BatchResult struct {
	OriginalName     string  `json:"original_name"`
	OptimizedFile    string  `json:"optimized_file,omitempty"`
	OriginalSize     int64   `json:"original_size,omitempty"`
	OptimizedSize    int64   `json:"optimized_size,omitempty"`
	SizeKB           string  `json:"size_kb,omitempty"`
	CompressionRatio float64 `json:"compression_ratio,omitempty"`
	ProcessingTime   int64   `json:"processing_time,omitempty"`
	Status           string  `json:"status"`
	Error            string  `json:"error,omitempty"`
}

// BatchResponse represents the response for a batch optimization
type BatchResponse struct {
	Message                 string        `json:"message"`
	TotalFiles              int           `json:"total_files"`
	Successful              int           `json:"successful"`
	Failed                  int           `json:"failed"`
	OverallCompressionRatio float64       `json:"overall_compression_ratio"`
	TotalProcessingTime     int64         `json:"total_processing_time"`
	Results                 []BatchResult `json:"results"`
}

// Optimize handles a single-image optimization request
func (h *OptimizeHandler) Optimize(c *gin.Context) {
	start := time.Now()
	ctx := c.Request.Context()
	reqLogger := logger.FromContext(ctx)

	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	contentType, err := upload.Validate(header, h.config.Upload.MaxFileSize)
	if err != nil {
		reqLogger.Warn().Err(err).Str("filename", header.Filename).Msg("Upload rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := parseOptimizationRequest(c)

	ctx, span := tracing.StartSpan(ctx, "optimize.transform")
	defer span.End()
	tracing.AddAttribute(ctx, "image.format", req.Format)
	tracing.AddAttribute(ctx, "image.quality", req.Quality)

	result, err := h.processOne(ctx, header, contentType, req, start)
	if err != nil {
		tracing.RecordError(ctx, err)
		metrics.RecordProcessingTime(ctx, "failed", start)
		reqLogger.Error().Err(err).Str("filename", header.Filename).Msg("Optimization failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Optimization failed", "details": err.Error()})
		return
	}

	metrics.RecordProcessingTime(ctx, "success", start)
	metrics.RecordSizeReduction(ctx, result.Original.Size, result.Optimized.Size)

	reqLogger.Info().
		Str("filename", header.Filename).
		Int64("original_size", result.Original.Size).
		Int64("optimized_size", result.Optimized.Size).
		Float64("compression_ratio", result.CompressionRatio).
		Int64("processing_time_ms", result.ProcessingTime).
		Msg("Optimization completed")

	c.JSON(http.StatusOK, result)
}

// processOne runs the full pipeline for one file: persist the upload, plan and
// execute the transform, write the artifact, and record the result row
// best-effort.
func (h *OptimizeHandler) processOne(
	ctx context.Context,
	header *multipart.FileHeader,
	contentType string,
	req optimizer.Request,
	start time.Time,
) (*OptimizeResponse, error) {
	reqLogger := logger.FromContext(ctx)

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("error reading upload: %w", err)
	}

	img, meta, err := optimizer.Probe(data)
	if err != nil {
		return nil, err
	}

	uploadName := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), storage.SanitizeFileName(header.Filename))
	if err := h.store.SaveUpload(ctx, uploadName, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, fmt.Errorf("error saving upload: %w", err)
	}

	plan := optimizer.BuildPlan(req, meta)

	tctx, cancel := context.WithTimeout(ctx, h.config.Process.Timeout)
	defer cancel()

	out, ext, outWidth, outHeight, err := h.processor.Execute(tctx, img, plan)
	if err != nil {
		return nil, err
	}

	spec := optimizer.ResolveFormat(req.Format, req.Quality)
	artifactName := fmt.Sprintf("%d-%s-optimized.%s", time.Now().UnixMilli(), shortID(), ext)

	if err := h.store.SaveArtifact(ctx, artifactName, out, spec.MimeType()); err != nil {
		return nil, fmt.Errorf("error saving artifact: %w", err)
	}

	optimizedSize := int64(len(out))
	ratio := optimizer.CompressionRatio(meta.Size, optimizedSize)
	processingTime := time.Since(start).Milliseconds()

	// A failed insert does not fail the request: the artifact already exists
	// and the divergence is logged for later reconciliation.
	record := models.NewImage(
		header.Filename, artifactName, meta.Size, optimizedSize,
		ratio, spec.Container, req.Quality, outWidth, outHeight, processingTime,
	)
	if err := h.repo.CreateImage(ctx, record); err != nil {
		reqLogger.Warn().Err(err).Str("artifact", artifactName).Msg("Database save failed, continuing")
	}

	h.publishOptimized(ctx, record.ID.String(), uploadName, artifactName, header.Filename)

	fileURL, err := h.store.ArtifactURL(ctx, artifactName)
	if err != nil {
		reqLogger.Warn().Err(err).Str("artifact", artifactName).Msg("Failed to build artifact URL")
		fileURL = "/optimized/" + artifactName
	}

	return &OptimizeResponse{
		Message:       "Image optimized successfully",
		OptimizedFile: fileURL,
		Original: OriginalInfo{
			Name:     header.Filename,
			Size:     meta.Size,
			Metadata: meta,
		},
		Optimized: OptimizedInfo{
			Size:   optimizedSize,
			SizeKB: fmt.Sprintf("%.2f", float64(optimizedSize)/1024),
			Metadata: &optimizer.Metadata{
				Width:  outWidth,
				Height: outHeight,
				Format: spec.Container,
				Size:   optimizedSize,
			},
		},
		CompressionRatio: ratio,
		ProcessingTime:   processingTime,
		Settings: Settings{
			Format:           spec.Container,
			Quality:          req.Quality,
			Width:            dimensionString(req.Width),
			Height:           dimensionString(req.Height),
			PreserveMetadata: req.PreserveMetadata,
			Watermark:        req.Watermark,
			SmartCrop:        req.SmartCrop,
		},
	}, nil
}

// OptimizeBatch handles a multi-image optimization request. A failure on one
// file is recorded inline and never aborts the batch; the results array
// preserves the input order.
func (h *OptimizeHandler) OptimizeBatch(c *gin.Context) {
	start := time.Now()
	ctx := c.Request.Context()
	reqLogger := logger.FromContext(ctx)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	}

	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	}
	if len(files) > h.config.Upload.MaxFiles {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("%s, maximum is %d files", upload.ErrTooManyFiles.Error(), h.config.Upload.MaxFiles),
		})
		return
	}

	// Batch mode only exercises format/quality/resize; watermark and smart
	// crop are single-image features.
	req := parseOptimizationRequest(c)
	req.Watermark = false
	req.SmartCrop = false

	results := make([]BatchResult, 0, len(files))
	var totalOriginal, totalOptimized int64
	successful := 0

	for _, header := range files {
		result := h.processBatchFile(ctx, header, req)
		if result.Status == "success" {
			successful++
			totalOriginal += result.OriginalSize
			totalOptimized += result.OptimizedSize
		}
		metrics.BatchFilesTotal.WithLabelValues(result.Status).Inc()
		results = append(results, result)
	}

	response := &BatchResponse{
		Message:                 "Batch optimization completed",
		TotalFiles:              len(files),
		Successful:              successful,
		Failed:                  len(files) - successful,
		OverallCompressionRatio: optimizer.CompressionRatio(totalOriginal, totalOptimized),
		TotalProcessingTime:     time.Since(start).Milliseconds(),
		Results:                 results,
	}

	reqLogger.Info().
		Int("total_files", response.TotalFiles).
		Int("successful", response.Successful).
		Int("failed", response.Failed).
		Float64("overall_compression_ratio", response.OverallCompressionRatio).
		Msg("Batch optimization completed")

	c.JSON(http.StatusOK, response)
}

func (h *OptimizeHandler) processBatchFile(ctx context.Context, header *multipart.FileHeader, req optimizer.Request) BatchResult {
	fileStart := time.Now()

	contentType, err := upload.Validate(header, h.config.Upload.MaxFileSize)
	if err != nil {
		return BatchResult{OriginalName: header.Filename, Status: "error", Error: err.Error()}
	}

	file, err := header.Open()
	if err != nil {
		return BatchResult{OriginalName: header.Filename, Status: "error", Error: err.Error()}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return BatchResult{OriginalName: header.Filename, Status: "error", Error: err.Error()}
	}

	img, meta, err := optimizer.Probe(data)
	if err != nil {
		return BatchResult{OriginalName: header.Filename, Status: "error", Error: err.Error()}
	}

	if err := h.store.SaveUpload(ctx, fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), shortID(), storage.SanitizeFileName(header.Filename)),
		bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return BatchResult{OriginalName: header.Filename, Status: "error", Error: err.Error()}
	}

	plan := optimizer.BuildPlan(req, meta)

	tctx, cancel := context.WithTimeout(ctx, h.config.Process.Timeout)
	defer cancel()

	out, ext, _, _, err := h.processor.Execute(tctx, img, plan)
	if err != nil {
		return BatchResult{OriginalName: header.Filename, Status: "error", Error: err.Error()}
	}

	spec := optimizer.ResolveFormat(req.Format, req.Quality)
	artifactName := fmt.Sprintf("%d-%s-optimized.%s", time.Now().UnixMilli(), shortID(), ext)

	if err := h.store.SaveArtifact(ctx, artifactName, out, spec.MimeType()); err != nil {
		return BatchResult{OriginalName: header.Filename, Status: "error", Error: err.Error()}
	}

	fileURL, err := h.store.ArtifactURL(ctx, artifactName)
	if err != nil {
		fileURL = "/optimized/" + artifactName
	}

	optimizedSize := int64(len(out))
	return BatchResult{
		OriginalName:     header.Filename,
		OptimizedFile:    fileURL,
		OriginalSize:     meta.Size,
		OptimizedSize:    optimizedSize,
		SizeKB:           fmt.Sprintf("%.2f", float64(optimizedSize)/1024),
		CompressionRatio: optimizer.CompressionRatio(meta.Size, optimizedSize),
		ProcessingTime:   time.Since(fileStart).Milliseconds(),
		Status:           "success",
	}
}

// Capabilities reports the service's static capability descriptor
func (h *OptimizeHandler) Capabilities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"supportedFormats": []string{"jpeg", "png", "webp", "avif", "gif", "bmp", "tiff"},
		"maxFileSize":      fmt.Sprintf("%dMB", h.config.Upload.MaxFileSize/(1024*1024)),
		"maxFiles":         h.config.Upload.MaxFiles,
		"features": []string{
			"batch_processing",
			"format_conversion",
			"quality_adjustment",
			"resize_presets",
			"metadata_extraction",
			"progressive_encoding",
		},
	})
}

// publishOptimized emits a post-optimization event when a queue is configured.
// Failures are logged and swallowed: the event stream is best-effort.
func (h *OptimizeHandler) publishOptimized(ctx context.Context, imageID, uploadName, artifactName, originalName string) {
	if h.queue == nil {
		return
	}

	task := queue.Task{
		ID:   imageID,
		Type: queue.TaskTypeImageOptimized,
		Data: map[string]any{
			"image_id":       imageID,
			"upload_path":    uploadName,
			"optimized_path": artifactName,
			"filename":       originalName,
		},
	}

	if err := h.queue.Publish(ctx, task); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("image_id", imageID).Msg("Failed to publish optimization event")
	}
}

func parseOptimizationRequest(c *gin.Context) optimizer.Request {
	quality, err := strconv.Atoi(c.DefaultPostForm("quality", "75"))
	if err != nil {
		quality = 75
	}

	opacity, err := strconv.ParseFloat(c.DefaultPostForm("watermarkOpacity", "0.8"), 64)
	if err != nil {
		opacity = 0.8
	}

	return optimizer.Request{
		Format:            c.DefaultPostForm("format", "webp"),
		Quality:           quality,
		Width:             optimizer.ParseDimension(c.PostForm("width")),
		Height:            optimizer.ParseDimension(c.PostForm("height")),
		PreserveMetadata:  parseBool(c.PostForm("preserveMetadata"), false),
		Progressive:       parseBool(c.PostForm("progressive"), true),
		Watermark:         parseBool(c.PostForm("watermark"), false),
		WatermarkText:     c.PostForm("watermarkText"),
		WatermarkPosition: c.DefaultPostForm("watermarkPosition", "bottom-right"),
		WatermarkOpacity:  opacity,
		SmartCrop:         parseBool(c.PostForm("smartCrop"), false),
		CropFocus:         c.DefaultPostForm("cropFocus", "center"),
	}
}

func parseBool(value string, fallback bool) bool {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func dimensionString(value int) string {
	if value <= 0 {
		return "auto"
	}
	return strconv.Itoa(value)
}

func shortID() string {
	return uuid.NewString()[:8]
}
