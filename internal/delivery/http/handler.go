package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nutrilog/backend/internal/domain"
	"github.com/nutrilog/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	analysisService *usecase.AnalysisService
}

// NewHandler creates a new HTTP handler
func NewHandler(analysisService *usecase.AnalysisService) *Handler {
	return &Handler{analysisService: analysisService}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "nutrilog-backend",
		"version": "1.0.0",
	})
}

// AnalyzeNutrition handles nutrition analysis requests
func (h *Handler) AnalyzeNutrition(c *gin.Context) {
	var req domain.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "description is required"})
		return
	}

	result, err := h.analysisService.Analyze(c.Request.Context(), req.Description)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": vErr.Message,
				"field": vErr.Field,
			})
			return
		}

		var eErr *domain.EstimationError
		if errors.As(err, &eErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": eErr.Error()})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// CacheStats returns the facts-cache snapshot for operational monitoring
func (h *Handler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.analysisService.CacheStats())
}

// ClearCache drops every cached nutrition entry
func (h *Handler) ClearCache(c *gin.Context) {
	h.analysisService.ClearCache()
	c.Status(http.StatusNoContent)
}
