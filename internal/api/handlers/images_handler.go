package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"optimizer-pro/internal/db"
	"optimizer-pro/internal/db/models"
	"optimizer-pro/internal/logger"
)

type ImagesHandler struct {
	repo db.Repository
}

func NewImagesHandler(repo db.Repository) *ImagesHandler {
	return &ImagesHandler{
		repo: repo,
	}
}

// List returns a paginated history of optimization records, newest first
func (h *ImagesHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	reqLogger := logger.FromContext(ctx)

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	offset := (page - 1) * limit

	images, total, err := h.repo.ListImages(ctx, limit, offset)
	if err != nil {
		reqLogger.Error().Err(err).Msg("Failed to list images")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch images"})
		return
	}

	totalPages := (total + limit - 1) / limit

	c.JSON(http.StatusOK, models.ImageListResponse{
		Images: images,
		Pagination: models.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	})
}

// Stats returns aggregate optimization statistics
func (h *ImagesHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	reqLogger := logger.FromContext(ctx)

	stats, err := h.repo.Stats(ctx)
	if err != nil {
		reqLogger.Error().Err(err).Msg("Failed to compute stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch statistics"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
