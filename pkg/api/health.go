package api

import (
	"context"
	"net/http"
	"time"

	"github.com/alphaflow/blobkit/pkg/errors"
	"github.com/gin-gonic/gin"
)

// Pinger checks that the storage backend answers.
type Pinger interface {
	ListContainers(ctx context.Context) ([]string, error)
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	version string
	backend string
	pinger  Pinger
}

// NewHealthHandler creates probes. backend names the storage in use, e.g. "azure" or "memory".
func NewHealthHandler(version, backend string, pinger Pinger) *HealthHandler {
	return &HealthHandler{version: version, backend: backend, pinger: pinger}
}

func (h *HealthHandler) Register(router *gin.Engine) {
	router.GET("/health", h.health)
	router.GET("/ready", h.ready)
}

func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
		"backend": h.backend,
	})
}

func (h *HealthHandler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if _, err := h.pinger.ListContainers(ctx); err != nil {
		appErr := errors.NewServiceUnavailableError("storage backend unavailable").
			WithDetails(map[string]interface{}{"error": err.Error()})
		c.JSON(appErr.HTTPStatus, appErr.ToErrorResponse())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
