// Package upload validates incoming multipart files before the transform
// pipeline runs. Rejections here map to 400 responses.
package upload

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
)

var (
	ErrNoFile          = errors.New("no file uploaded")
	ErrFileTooLarge    = errors.New("file too large")
	ErrInvalidFileType = errors.New("invalid file type, only images are allowed")
	ErrTooManyFiles    = errors.New("too many files")
)

// AllowedTypes is the set of accepted input MIME types
var AllowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
}

// Validate checks one uploaded file against the size limit and the allowed
// MIME set. The content type is sniffed from the first 512 bytes rather than
// trusted from the request. Returns the detected content type.
func Validate(header *multipart.FileHeader, maxSize int64) (string, error) {
	if header == nil {
		return "", ErrNoFile
	}

	if header.Size > maxSize {
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, header.Size, maxSize)
	}

	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("error opening upload: %w", err)
	}
	defer file.Close()

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && n == 0 {
		return "", fmt.Errorf("error reading upload for type detection: %w", err)
	}

	contentType := http.DetectContentType(buffer[:n])
	if !AllowedTypes[contentType] {
		return "", fmt.Errorf("%w: %s", ErrInvalidFileType, contentType)
	}

	return contentType, nil
}
