package handler

import (
	"context"
	"net/http"
	"time"

	"ideahub/internal/repository"
	"ideahub/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type HealthHandler struct {
	store repository.Store
	log   *zap.Logger
}

func NewHealthHandler(store repository.Store, log *zap.Logger) *HealthHandler {
	return &HealthHandler{store: store, log: log}
}

func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
}

// Health handles GET /health by pinging the store
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200      {object}  response.Response
// @Failure      503      {object}  response.Response
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn("health check failed", zap.String("backend", h.store.Backend()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, response.Error(http.StatusServiceUnavailable, "Storage unavailable"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"status": "ok", "backend": h.store.Backend()}))
}
