package storage

import (
	"context"
	"io"
	"strings"
)

// Store abstracts where the transient uploads and optimized artifacts live.
// The disk backend serves artifacts statically under /optimized; the MinIO
// backend hands out pre-signed URLs instead.
type Store interface {
	SaveUpload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	DeleteUpload(ctx context.Context, objectName string) error

	SaveArtifact(ctx context.Context, objectName string, data []byte, contentType string) error
	ArtifactURL(ctx context.Context, objectName string) (string, error)

	// Close closes the store
	Close() error
}

// SanitizeFileName sanitizes a file name for storage
func SanitizeFileName(fileName string) string {
	fileName = strings.ReplaceAll(fileName, " ", "_")

	fileName = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.' {
			return r
		}
		return -1
	}, fileName)

	return fileName
}
