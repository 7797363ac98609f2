package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/MacJediWizard/railsdash/internal/railsr"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// WebhookService is the subset of railsr.Webhooks used by
// SubscriptionsHandler.
type WebhookService interface {
	Create(ctx context.Context, in railsr.WebhookInput) (*railsr.Webhook, error)
	Get(ctx context.Context, id string) (*railsr.Webhook, error)
	List(ctx context.Context, pr railsr.PageRequest) (*railsr.Page[railsr.Webhook], error)
	Update(ctx context.Context, id string, in railsr.WebhookInput) (*railsr.Webhook, error)
	Delete(ctx context.Context, id string) error
	Test(ctx context.Context, id, eventType string) (*railsr.WebhookEvent, error)
	EventTypes(ctx context.Context) ([]railsr.EventType, error)
	Events(ctx context.Context, id string, pr railsr.PageRequest) (*railsr.Page[railsr.WebhookEvent], error)
}

// TestWebhookRequest is the request body for sending a test event.
type TestWebhookRequest struct {
	EventType string `json:"event_type" binding:"required"`
}

// SubscriptionsHandler manages the webhook subscriptions registered
// upstream. Inbound deliveries are handled by WebhookReceiverHandler.
type SubscriptionsHandler struct {
	webhooks WebhookService
	logger   zerolog.Logger
}

// NewSubscriptionsHandler creates a new SubscriptionsHandler.
func NewSubscriptionsHandler(webhooks WebhookService, logger zerolog.Logger) *SubscriptionsHandler {
	return &SubscriptionsHandler{
		webhooks: webhooks,
		logger:   logger.With().Str("component", "subscriptions_handler").Logger(),
	}
}

// RegisterRoutes registers webhook subscription routes on the given router group.
func (h *SubscriptionsHandler) RegisterRoutes(r *gin.RouterGroup) {
	webhooks := r.Group("/webhooks")
	{
		webhooks.GET("", h.List)
		webhooks.POST("", h.Create)
		webhooks.GET("/event-types", h.EventTypes)
		webhooks.GET("/:id", h.Get)
		webhooks.PATCH("/:id", h.Update)
		webhooks.DELETE("/:id", h.Delete)
		webhooks.POST("/:id/test", h.Test)
		webhooks.GET("/:id/events", h.Events)
	}
}

func validWebhookURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}

// List returns a page of webhook subscriptions.
// GET /api/v1/webhooks
func (h *SubscriptionsHandler) List(c *gin.Context) {
	pr, ok := pageRequest(c)
	if !ok {
		return
	}
	page, err := h.webhooks.List(c.Request.Context(), pr)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Create registers a webhook subscription.
// POST /api/v1/webhooks
func (h *SubscriptionsHandler) Create(c *gin.Context) {
	var in railsr.WebhookInput
	if !bindJSON(c, &in) {
		return
	}
	if !validWebhookURL(in.URL) {
		badRequest(c, "url must be an absolute http or https URL")
		return
	}
	if len(in.EventTypes) == 0 {
		badRequest(c, "at least one event type is required")
		return
	}

	webhook, err := h.webhooks.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, webhook)
}

// Get returns one webhook subscription.
// GET /api/v1/webhooks/:id
func (h *SubscriptionsHandler) Get(c *gin.Context) {
	webhook, err := h.webhooks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondFound(c, webhook, "webhook")
}

// Update partially updates a webhook subscription.
// PATCH /api/v1/webhooks/:id
func (h *SubscriptionsHandler) Update(c *gin.Context) {
	var in railsr.WebhookInput
	if !bindJSON(c, &in) {
		return
	}
	if in.URL != "" && !validWebhookURL(in.URL) {
		badRequest(c, "url must be an absolute http or https URL")
		return
	}

	webhook, err := h.webhooks.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, webhook)
}

// Delete removes a webhook subscription.
// DELETE /api/v1/webhooks/:id
func (h *SubscriptionsHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.webhooks.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.logger.Info().Str("webhook_id", id).Msg("webhook deleted")
	c.Status(http.StatusNoContent)
}

// Test asks upstream to deliver a test event to the subscription.
// POST /api/v1/webhooks/:id/test
func (h *SubscriptionsHandler) Test(c *gin.Context) {
	var req TestWebhookRequest
	if !bindJSON(c, &req) {
		return
	}
	event, err := h.webhooks.Test(c.Request.Context(), c.Param("id"), req.EventType)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// EventTypes lists the subscribable event types.
// GET /api/v1/webhooks/event-types
func (h *SubscriptionsHandler) EventTypes(c *gin.Context) {
	types, err := h.webhooks.EventTypes(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_types": types})
}

// Events returns a page of delivery attempts.
// GET /api/v1/webhooks/:id/events
func (h *SubscriptionsHandler) Events(c *gin.Context) {
	pr, ok := pageRequest(c)
	if !ok {
		return
	}
	page, err := h.webhooks.Events(c.Request.Context(), c.Param("id"), pr)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
