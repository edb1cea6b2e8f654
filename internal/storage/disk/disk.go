package disk

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"optimizer-pro/config"
	"optimizer-pro/internal/logger"
	"optimizer-pro/internal/storage"
)

// Store keeps uploads and optimized artifacts in two local directories,
// mirroring the uploads/ and optimized/ layout the service exposes over HTTP.
type Store struct {
	uploadDir    string
	optimizedDir string
	baseURL      string
	logger       zerolog.Logger
}

func New(cfg *config.StorageConfig, baseURL string) (storage.Store, error) {
	log := logger.GetLogger("disk-store")

	for _, dir := range []string{cfg.UploadDir, cfg.OptimizedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("error creating storage directory %s: %w", dir, err)
		}
	}

	log.Info().Str("upload_dir", cfg.UploadDir).Str("optimized_dir", cfg.OptimizedDir).Msg("Disk store initialized")

	return &Store{
		uploadDir:    cfg.UploadDir,
		optimizedDir: cfg.OptimizedDir,
		baseURL:      baseURL,
		logger:       log,
	}, nil
}

// SaveUpload writes the incoming file to the upload directory
func (s *Store) SaveUpload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	path := filepath.Join(s.uploadDir, filepath.Base(objectName))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		os.Remove(path)
		return fmt.Errorf("error writing upload file: %w", err)
	}

	s.logger.Debug().Str("object", objectName).Int64("size", size).Msg("Upload saved")
	return nil
}

// DeleteUpload removes a transient upload from the upload directory
func (s *Store) DeleteUpload(ctx context.Context, objectName string) error {
	path := filepath.Join(s.uploadDir, filepath.Base(objectName))
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("error deleting upload file: %w", err)
	}

	s.logger.Debug().Str("object", objectName).Msg("Upload deleted")
	return nil
}

// SaveArtifact writes an optimized artifact to the optimized directory
func (s *Store) SaveArtifact(ctx context.Context, objectName string, data []byte, contentType string) error {
	path := filepath.Join(s.optimizedDir, filepath.Base(objectName))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing artifact file: %w", err)
	}

	s.logger.Debug().Str("object", objectName).Int("size", len(data)).Msg("Artifact saved")
	return nil
}

// ArtifactURL returns the public URL the artifact is served at
func (s *Store) ArtifactURL(ctx context.Context, objectName string) (string, error) {
	return fmt.Sprintf("%s/optimized/%s", s.baseURL, filepath.Base(objectName)), nil
}

func (s *Store) Close() error {
	return nil
}
