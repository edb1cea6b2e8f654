package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"optimizer-pro/config"
	"optimizer-pro/internal/api/handlers"
	"optimizer-pro/internal/api/middleware"
	"optimizer-pro/internal/db"
	"optimizer-pro/internal/queue"
	"optimizer-pro/internal/storage"
)

func Setup(
	cfg *config.Config,
	repository db.Repository,
	store storage.Store,
	queueClient queue.Client,
) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()

	// Middleware order matters: tracing first so the contextual logger can
	// pick up trace/span IDs, then recovery, CORS, and metrics.
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(middleware.ContextualLogger("api"))
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics())
	}

	optimizeHandler := handlers.NewOptimizeHandler(repository, store, queueClient, cfg)
	imagesHandler := handlers.NewImagesHandler(repository)
	healthHandler := handlers.NewHealthHandler(repository)

	r.GET("/health", healthHandler.Check)

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Endpoint, gin.WrapH(promhttp.Handler()))
	}

	r.POST("/optimize", optimizeHandler.Optimize)
	r.POST("/optimize-batch", optimizeHandler.OptimizeBatch)
	r.GET("/images", imagesHandler.List)
	r.GET("/stats", imagesHandler.Stats)
	r.GET("/capabilities", optimizeHandler.Capabilities)

	// Artifacts are served straight off the filesystem for the disk backend;
	// the minio backend hands out presigned URLs instead.
	if cfg.Storage.Backend == "disk" {
		r.Static("/optimized", cfg.Storage.OptimizedDir)
	}

	return r
}
