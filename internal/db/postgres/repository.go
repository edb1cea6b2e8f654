package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"optimizer-pro/config"
	"optimizer-pro/internal/db"
	"optimizer-pro/internal/db/models"
	"optimizer-pro/internal/logger"
)

const schema = `
	CREATE TABLE IF NOT EXISTS images (
		id UUID PRIMARY KEY,
		original_name TEXT NOT NULL,
		optimized_path TEXT NOT NULL,
		original_size BIGINT NOT NULL,
		optimized_size BIGINT NOT NULL,
		compression_ratio DOUBLE PRECISION NOT NULL,
		format TEXT NOT NULL,
		quality INTEGER NOT NULL,
		width INTEGER,
		height INTEGER,
		processing_time BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(ctx context.Context, cfg *config.DatabaseConfig) (db.Repository, error) {
	initLogger := logger.GetLogger("postgres-repository")

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ensure schema: %w", err)
	}

	initLogger.Info().Msg("Connected to Postgres database")
	return &Repository{pool: pool}, nil
}

// CreateImage appends one optimization result row
func (r *Repository) CreateImage(ctx context.Context, image *models.Image) error {
	reqLogger := logger.FromContext(ctx)

	query := `
		INSERT INTO images (
			id, original_name, optimized_path, original_size, optimized_size,
			compression_ratio, format, quality, width, height, processing_time, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	reqLogger.Debug().Str("image_id", image.ID.String()).Msg("Executing CreateImage query")

	_, err := r.pool.Exec(ctx, query,
		image.ID, image.OriginalName, image.OptimizedPath, image.OriginalSize, image.OptimizedSize,
		image.CompressionRatio, image.Format, image.Quality, image.Width, image.Height,
		image.ProcessingTime, image.CreatedAt,
	)

	if err != nil {
		reqLogger.Error().Err(err).Msg("Error creating image record")
		return fmt.Errorf("error creating image record: %w", err)
	}

	reqLogger.Debug().Str("image_id", image.ID.String()).Msg("Image record created")
	return nil
}

// ListImages retrieves a page of images ordered by creation time descending,
// plus the total row count for pagination.
func (r *Repository) ListImages(ctx context.Context, limit, offset int) ([]*models.Image, int, error) {
	reqLogger := logger.FromContext(ctx)

	query := `
		SELECT id, original_name, optimized_path, original_size, optimized_size,
			compression_ratio, format, quality, COALESCE(width, 0), COALESCE(height, 0),
			processing_time, created_at
		FROM images
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	countQuery := `SELECT COUNT(*) FROM images`

	reqLogger.Debug().Int("limit", limit).Int("offset", offset).Msg("Executing ListImages query")

	var total int
	if err := r.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		reqLogger.Error().Err(err).Msg("Error counting images")
		return nil, 0, fmt.Errorf("error counting images: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		reqLogger.Error().Err(err).Msg("Error querying images")
		return nil, 0, fmt.Errorf("error querying images: %w", err)
	}
	defer rows.Close()

	images := make([]*models.Image, 0)
	for rows.Next() {
		var img models.Image
		err := rows.Scan(
			&img.ID, &img.OriginalName, &img.OptimizedPath, &img.OriginalSize, &img.OptimizedSize,
			&img.CompressionRatio, &img.Format, &img.Quality, &img.Width, &img.Height,
			&img.ProcessingTime, &img.CreatedAt,
		)
		if err != nil {
			reqLogger.Error().Err(err).Msg("Error scanning image row")
			return nil, 0, fmt.Errorf("error scanning image row: %w", err)
		}
		images = append(images, &img)
	}

	if err := rows.Err(); err != nil {
		reqLogger.Error().Err(err).Msg("Error iterating over image rows")
		return nil, 0, fmt.Errorf("error iterating over rows: %w", err)
	}

	reqLogger.Debug().Int("count", len(images)).Int("total", total).Msg("Images listed")
	return images, total, nil
}

// Stats computes the aggregate and per-format optimization statistics
func (r *Repository) Stats(ctx context.Context) (*models.StatsResponse, error) {
	reqLogger := logger.FromContext(ctx)

	overallQuery := `
		SELECT
			COUNT(*),
			COALESCE(SUM(original_size), 0),
			COALESCE(SUM(optimized_size), 0),
			COALESCE(AVG(compression_ratio), 0),
			COALESCE(AVG(processing_time), 0),
			COUNT(DISTINCT format)
		FROM images
	`

	formatQuery := `
		SELECT format, COUNT(*), COALESCE(AVG(compression_ratio), 0)
		FROM images
		GROUP BY format
		ORDER BY COUNT(*) DESC
	`

	reqLogger.Debug().Msg("Executing Stats queries")

	var stats models.StatsResponse
	err := r.pool.QueryRow(ctx, overallQuery).Scan(
		&stats.Overall.TotalImages,
		&stats.Overall.TotalOriginalSize,
		&stats.Overall.TotalOptimizedSize,
		&stats.Overall.AvgCompressionRatio,
		&stats.Overall.AvgProcessingTime,
		&stats.Overall.FormatsUsed,
	)
	if err != nil {
		reqLogger.Error().Err(err).Msg("Error querying overall stats")
		return nil, fmt.Errorf("error querying overall stats: %w", err)
	}

	rows, err := r.pool.Query(ctx, formatQuery)
	if err != nil {
		reqLogger.Error().Err(err).Msg("Error querying format stats")
		return nil, fmt.Errorf("error querying format stats: %w", err)
	}
	defer rows.Close()

	stats.ByFormat = make([]*models.FormatStats, 0)
	for rows.Next() {
		var fs models.FormatStats
		if err := rows.Scan(&fs.Format, &fs.Count, &fs.AvgCompression); err != nil {
			reqLogger.Error().Err(err).Msg("Error scanning format stats row")
			return nil, fmt.Errorf("error scanning format stats row: %w", err)
		}
		stats.ByFormat = append(stats.ByFormat, &fs)
	}

	if err := rows.Err(); err != nil {
		reqLogger.Error().Err(err).Msg("Error iterating over format stats rows")
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	stats.TotalSavingsBytes = stats.Overall.TotalOriginalSize - stats.Overall.TotalOptimizedSize

	return &stats, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("error pinging database: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}
