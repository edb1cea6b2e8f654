package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	minioLib "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"optimizer-pro/config"
	"optimizer-pro/internal/logger"
	"optimizer-pro/internal/storage"
)

const (
	uploadPrefix    = "uploads/"
	optimizedPrefix = "optimized/"
)

// Store keeps uploads and artifacts in a MinIO bucket under the uploads/ and
// optimized/ prefixes. Artifact URLs are pre-signed.
type Store struct {
	client *minioLib.Client
	bucket string
	logger zerolog.Logger
	config *config.MinIOConfig
}

func New(cfg *config.MinIOConfig) (storage.Store, error) {
	log := logger.GetLogger("minio-store")

	client, err := minioLib.New(cfg.Endpoint, &minioLib.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.SSL,
	})
	if err != nil {
		return nil, fmt.Errorf("error initializing MinIO client: %w", err)
	}

	exists, err := client.BucketExists(context.Background(), cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("error checking if bucket exists: %w", err)
	}

	if !exists {
		err = client.MakeBucket(context.Background(), cfg.Bucket, minioLib.MakeBucketOptions{Region: cfg.Location})
		if err != nil {
			return nil, fmt.Errorf("error creating bucket: %w", err)
		}
		log.Info().Str("bucket", cfg.Bucket).Msg("Bucket created")
	} else {
		log.Info().Str("bucket", cfg.Bucket).Msg("Bucket already exists")
	}

	return &Store{
		client: client,
		bucket: cfg.Bucket,
		logger: log,
		config: cfg,
	}, nil
}

// SaveUpload uploads the incoming file under the uploads/ prefix
func (s *Store) SaveUpload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, uploadPrefix+path.Base(objectName), reader, size,
		minioLib.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("error uploading object: %w", err)
	}

	s.logger.Debug().Str("object", objectName).Msg("Upload saved")
	return nil
}

// DeleteUpload removes a transient upload from the bucket
func (s *Store) DeleteUpload(ctx context.Context, objectName string) error {
	err := s.client.RemoveObject(ctx, s.bucket, uploadPrefix+path.Base(objectName), minioLib.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("error deleting object: %w", err)
	}

	s.logger.Debug().Str("object", objectName).Msg("Upload deleted")
	return nil
}

// SaveArtifact uploads an optimized artifact under the optimized/ prefix
func (s *Store) SaveArtifact(ctx context.Context, objectName string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, optimizedPrefix+path.Base(objectName),
		bytes.NewReader(data), int64(len(data)),
		minioLib.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("error uploading artifact: %w", err)
	}

	s.logger.Debug().Str("object", objectName).Int("size", len(data)).Msg("Artifact saved")
	return nil
}

// ArtifactURL generates a pre-signed URL for an artifact
func (s *Store) ArtifactURL(ctx context.Context, objectName string) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucket, optimizedPrefix+path.Base(objectName), s.config.URLExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("error generating pre-signed URL: %w", err)
	}

	return url.String(), nil
}

func (s *Store) Close() error {
	return nil
}
