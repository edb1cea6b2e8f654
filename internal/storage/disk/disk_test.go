package disk

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"optimizer-pro/config"
)

func testStore(t *testing.T) (*Store, *config.StorageConfig) {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.StorageConfig{
		Backend:      "disk",
		UploadDir:    filepath.Join(dir, "uploads"),
		OptimizedDir: filepath.Join(dir, "optimized"),
	}

	store, err := New(cfg, "http://localhost:4000")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s, ok := store.(*Store)
	if !ok {
		t.Fatalf("New() returned %T, want *Store", store)
	}
	return s, cfg
}

func TestNewCreatesDirectories(t *testing.T) {
	_, cfg := testStore(t)

	for _, dir := range []string{cfg.UploadDir, cfg.OptimizedDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("directory %s not created: %v", dir, err)
		}
	}
}

func TestUploadRoundTrip(t *testing.T) {
	store, cfg := testStore(t)
	ctx := context.Background()

	content := []byte("fake image bytes")
	if err := store.SaveUpload(ctx, "123-photo.jpg", bytes.NewReader(content), int64(len(content)), "image/jpeg"); err != nil {
		t.Fatalf("SaveUpload() error = %v", err)
	}

	saved, err := os.ReadFile(filepath.Join(cfg.UploadDir, "123-photo.jpg"))
	if err != nil {
		t.Fatalf("reading saved upload: %v", err)
	}
	if !bytes.Equal(saved, content) {
		t.Error("saved upload differs from input")
	}

	if err := store.DeleteUpload(ctx, "123-photo.jpg"); err != nil {
		t.Fatalf("DeleteUpload() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.UploadDir, "123-photo.jpg")); !os.IsNotExist(err) {
		t.Error("upload still present after delete")
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	store, cfg := testStore(t)
	ctx := context.Background()

	content := []byte("optimized bytes")
	if err := store.SaveArtifact(ctx, "123-optimized.webp", content, "image/webp"); err != nil {
		t.Fatalf("SaveArtifact() error = %v", err)
	}

	saved, err := os.ReadFile(filepath.Join(cfg.OptimizedDir, "123-optimized.webp"))
	if err != nil {
		t.Fatalf("reading saved artifact: %v", err)
	}
	if !bytes.Equal(saved, content) {
		t.Error("saved artifact differs from input")
	}

	url, err := store.ArtifactURL(ctx, "123-optimized.webp")
	if err != nil {
		t.Fatalf("ArtifactURL() error = %v", err)
	}
	if url != "http://localhost:4000/optimized/123-optimized.webp" {
		t.Errorf("ArtifactURL() = %q", url)
	}
}
