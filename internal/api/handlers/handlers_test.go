package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"optimizer-pro/config"
	"optimizer-pro/internal/db/models"
	"optimizer-pro/internal/queue"
)

type fakeRepo struct {
	mu      sync.Mutex
	images  []*models.Image
	listErr error
	pingErr error
}

func (r *fakeRepo) CreateImage(ctx context.Context, img *models.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images = append(r.images, img)
	return nil
}

func (r *fakeRepo) ListImages(ctx context.Context, limit, offset int) ([]*models.Image, int, error) {
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	total := len(r.images)
	if offset >= total {
		return []*models.Image{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return r.images[offset:end], total, nil
}

func (r *fakeRepo) Stats(ctx context.Context) (*models.StatsResponse, error) {
	return &models.StatsResponse{Overall: models.OverallStats{TotalImages: int64(len(r.images))}}, nil
}

func (r *fakeRepo) Ping(ctx context.Context) error { return r.pingErr }
func (r *fakeRepo) Close() error                   { return nil }

type fakeStore struct {
	mu        sync.Mutex
	uploads   map[string][]byte
	artifacts map[string][]byte
	deleted   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		uploads:   make(map[string][]byte),
		artifacts: make(map[string][]byte),
	}
}

func (s *fakeStore) SaveUpload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[objectName] = data
	return nil
}

func (s *fakeStore) DeleteUpload(ctx context.Context, objectName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.uploads, objectName)
	s.deleted = append(s.deleted, objectName)
	return nil
}

func (s *fakeStore) SaveArtifact(ctx context.Context, objectName string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[objectName] = data
	return nil
}

func (s *fakeStore) ArtifactURL(ctx context.Context, objectName string) (string, error) {
	return "http://localhost:4000/optimized/" + objectName, nil
}

func (s *fakeStore) Close() error { return nil }

type fakeQueue struct {
	mu        sync.Mutex
	published []queue.Task
}

func (q *fakeQueue) Publish(ctx context.Context, task queue.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, task)
	return nil
}

func (q *fakeQueue) Consume(ctx context.Context, fn queue.ProcessFunc) error { return nil }
func (q *fakeQueue) Close() error                                            { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:    "127.0.0.1",
			Port:    4000,
			Mode:    gin.TestMode,
			BaseURL: "http://localhost:4000",
		},
		Upload:  config.UploadConfig{MaxFileSize: 50 * 1024 * 1024, MaxFiles: 10},
		Process: config.ProcessConfig{Timeout: 30 * time.Second},
	}
}

func jpegBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

type formFile struct {
	field    string
	filename string
	content  []byte
}

func multipartRequest(t *testing.T, target string, files []formFile, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatalf("creating form file: %v", err)
		}
		if _, err := part.Write(f.content); err != nil {
			t.Fatalf("writing form file: %v", err)
		}
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("writing form field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing form writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func newTestEngine(h *OptimizeHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/optimize", h.Optimize)
	r.POST("/optimize-batch", h.OptimizeBatch)
	r.GET("/capabilities", h.Capabilities)
	return r
}

func TestOptimizeEndToEnd(t *testing.T) {
	repo := &fakeRepo{}
	store := newFakeStore()
	q := &fakeQueue{}
	h := NewOptimizeHandler(repo, store, q, testConfig())
	r := newTestEngine(h)

	req := multipartRequest(t, "/optimize",
		[]formFile{{field: "image", filename: "photo.jpg", content: jpegBytes(t, 2000, 1000)}},
		map[string]string{"format": "jpeg", "quality": "80", "width": "800"},
	)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp OptimizeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if resp.Message != "Image optimized successfully" {
		t.Errorf("Message = %q", resp.Message)
	}
	if resp.Original.Name != "photo.jpg" {
		t.Errorf("Original.Name = %q, want photo.jpg", resp.Original.Name)
	}
	if resp.Original.Metadata.Width != 2000 || resp.Original.Metadata.Height != 1000 {
		t.Errorf("original metadata = %dx%d, want 2000x1000",
			resp.Original.Metadata.Width, resp.Original.Metadata.Height)
	}
	if resp.Optimized.Metadata.Width != 800 || resp.Optimized.Metadata.Height != 400 {
		t.Errorf("optimized metadata = %dx%d, want 800x400",
			resp.Optimized.Metadata.Width, resp.Optimized.Metadata.Height)
	}
	if resp.Optimized.Size <= 0 {
		t.Error("optimized size not reported")
	}
	if resp.CompressionRatio <= 0 {
		t.Errorf("CompressionRatio = %v, want > 0 for a downscaled image", resp.CompressionRatio)
	}
	if resp.Settings.Format != "jpeg" || resp.Settings.Quality != 80 {
		t.Errorf("settings = %+v, want jpeg quality 80", resp.Settings)
	}
	if resp.Settings.Width != "800" || resp.Settings.Height != "auto" {
		t.Errorf("settings dims = %q x %q, want 800 x auto", resp.Settings.Width, resp.Settings.Height)
	}

	if len(repo.images) != 1 {
		t.Fatalf("persisted records = %d, want 1", len(repo.images))
	}
	record := repo.images[0]
	if record.Format != "jpeg" || record.Quality != 80 {
		t.Errorf("record = format %q quality %d, want jpeg 80", record.Format, record.Quality)
	}
	if record.Width != 800 || record.Height != 400 {
		t.Errorf("record dims = %dx%d, want 800x400", record.Width, record.Height)
	}

	if len(store.uploads) != 1 || len(store.artifacts) != 1 {
		t.Errorf("store has %d uploads and %d artifacts, want 1 and 1",
			len(store.uploads), len(store.artifacts))
	}

	if len(q.published) != 1 || q.published[0].Type != queue.TaskTypeImageOptimized {
		t.Errorf("published tasks = %+v, want one image_optimized event", q.published)
	}
}

func TestOptimizeMissingFile(t *testing.T) {
	h := NewOptimizeHandler(&fakeRepo{}, newFakeStore(), nil, testConfig())
	r := newTestEngine(h)

	req := multipartRequest(t, "/optimize", nil, map[string]string{"format": "webp"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestOptimizeRejectsNonImage(t *testing.T) {
	h := NewOptimizeHandler(&fakeRepo{}, newFakeStore(), nil, testConfig())
	r := newTestEngine(h)

	req := multipartRequest(t, "/optimize",
		[]formFile{{field: "image", filename: "doc.jpg", content: []byte("%PDF-1.4 not an image")}},
		nil,
	)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestOptimizeUnknownFormatFallsBackToWebp(t *testing.T) {
	repo := &fakeRepo{}
	h := NewOptimizeHandler(repo, newFakeStore(), nil, testConfig())
	r := newTestEngine(h)

	req := multipartRequest(t, "/optimize",
		[]formFile{{field: "image", filename: "photo.jpg", content: jpegBytes(t, 100, 100)}},
		map[string]string{"format": "heic"},
	)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp OptimizeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Settings.Format != "webp" {
		t.Errorf("Settings.Format = %q, want webp fallback", resp.Settings.Format)
	}
}

func TestOptimizeBatchPartialFailure(t *testing.T) {
	repo := &fakeRepo{}
	h := NewOptimizeHandler(repo, newFakeStore(), nil, testConfig())
	r := newTestEngine(h)

	// The corrupt file carries JPEG magic bytes so it passes MIME sniffing
	// and fails only at decode, exercising per-file isolation.
	corrupt := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x00}, 64)...)

	req := multipartRequest(t, "/optimize-batch",
		[]formFile{
			{field: "images", filename: "good.jpg", content: jpegBytes(t, 400, 300)},
			{field: "images", filename: "broken.jpg", content: corrupt},
		},
		map[string]string{"format": "jpeg", "quality": "70"},
	)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp BatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if resp.TotalFiles != 2 || resp.Successful != 1 || resp.Failed != 1 {
		t.Fatalf("totals = %d/%d/%d, want 2 total, 1 successful, 1 failed",
			resp.TotalFiles, resp.Successful, resp.Failed)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(resp.Results))
	}

	// input order preserved
	if resp.Results[0].OriginalName != "good.jpg" || resp.Results[0].Status != "success" {
		t.Errorf("Results[0] = %+v, want good.jpg success", resp.Results[0])
	}
	if resp.Results[1].OriginalName != "broken.jpg" || resp.Results[1].Status != "error" {
		t.Errorf("Results[1] = %+v, want broken.jpg error", resp.Results[1])
	}
	if resp.Results[1].Error == "" {
		t.Error("failed entry carries no error message")
	}

	// batch results are not persisted
	if len(repo.images) != 0 {
		t.Errorf("persisted records = %d, want 0 for batch", len(repo.images))
	}
}

func TestOptimizeBatchNoFiles(t *testing.T) {
	h := NewOptimizeHandler(&fakeRepo{}, newFakeStore(), nil, testConfig())
	r := newTestEngine(h)

	req := multipartRequest(t, "/optimize-batch", nil, map[string]string{"format": "webp"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestOptimizeBatchTooManyFiles(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFiles = 2
	h := NewOptimizeHandler(&fakeRepo{}, newFakeStore(), nil, cfg)
	r := newTestEngine(h)

	content := jpegBytes(t, 10, 10)
	files := []formFile{
		{field: "images", filename: "a.jpg", content: content},
		{field: "images", filename: "b.jpg", content: content},
		{field: "images", filename: "c.jpg", content: content},
	}
	req := multipartRequest(t, "/optimize-batch", files, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCapabilities(t *testing.T) {
	h := NewOptimizeHandler(&fakeRepo{}, newFakeStore(), nil, testConfig())
	r := newTestEngine(h)

	req := httptest.NewRequest(http.MethodGet, "/capabilities", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		SupportedFormats []string `json:"supportedFormats"`
		MaxFileSize      string   `json:"maxFileSize"`
		MaxFiles         int      `json:"maxFiles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.MaxFileSize != "50MB" || resp.MaxFiles != 10 {
		t.Errorf("limits = %q / %d, want 50MB / 10", resp.MaxFileSize, resp.MaxFiles)
	}
	if len(resp.SupportedFormats) != 7 {
		t.Errorf("len(SupportedFormats) = %d, want 7", len(resp.SupportedFormats))
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		value    string
		fallback bool
		expected bool
	}{
		{value: "true", fallback: false, expected: true},
		{value: "false", fallback: true, expected: false},
		{value: "", fallback: true, expected: true},
		{value: "maybe", fallback: false, expected: false},
	}

	for _, tt := range tests {
		if got := parseBool(tt.value, tt.fallback); got != tt.expected {
			t.Errorf("parseBool(%q, %v) = %v, want %v", tt.value, tt.fallback, got, tt.expected)
		}
	}
}
