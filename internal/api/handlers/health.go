package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MacJediWizard/railsdash/internal/health"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HealthChecker produces a health report.
type HealthChecker interface {
	Check(ctx context.Context) *health.Report
}

// HealthHandler handles health-related HTTP endpoints.
type HealthHandler struct {
	checker HealthChecker
	logger  zerolog.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(checker HealthChecker, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		logger:  logger.With().Str("component", "health_handler").Logger(),
	}
}

// RegisterPublicRoutes registers health check routes that don't require authentication.
func (h *HealthHandler) RegisterPublicRoutes(r *gin.Engine) {
	r.GET("/health", h.Overall)
	r.GET("/health/live", h.Live)
}

// Overall returns host and upstream health. Only critical host issues
// turn the status code to 503.
// GET /health
func (h *HealthHandler) Overall(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	report := h.checker.Check(ctx)
	status := http.StatusOK
	if report.Status == health.StatusCritical {
		h.logger.Warn().Interface("issues", report.Issues).Msg("health check critical")
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

// Live reports that the process is serving requests.
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
