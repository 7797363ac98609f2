package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/MacJediWizard/railsdash/internal/events"
	"github.com/MacJediWizard/railsdash/internal/webhooks"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// WebhookReceiver validates and forwards inbound webhook deliveries.
type WebhookReceiver interface {
	Receive(ctx context.Context, payload []byte, signature string) (*events.Event, error)
}

// WebhookRecorder counts inbound webhooks by result.
type WebhookRecorder interface {
	RecordWebhook(result string)
}

// WebhookReceiverHandler handles webhook deliveries from the upstream platform.
type WebhookReceiverHandler struct {
	receiver WebhookReceiver
	recorder WebhookRecorder
	logger   zerolog.Logger
}

// NewWebhookReceiverHandler creates a new WebhookReceiverHandler. recorder may be nil.
func NewWebhookReceiverHandler(receiver WebhookReceiver, recorder WebhookRecorder, logger zerolog.Logger) *WebhookReceiverHandler {
	return &WebhookReceiverHandler{
		receiver: receiver,
		recorder: recorder,
		logger:   logger.With().Str("component", "webhook_receiver_handler").Logger(),
	}
}

// RegisterPublicRoutes registers the inbound webhook route. Deliveries are
// authenticated by signature, not by session.
func (h *WebhookReceiverHandler) RegisterPublicRoutes(r *gin.Engine) {
	r.POST("/api/webhooks", h.Receive)
}

func (h *WebhookReceiverHandler) record(result string) {
	if h.recorder != nil {
		h.recorder.RecordWebhook(result)
	}
}

// Receive accepts one webhook delivery.
// POST /api/webhooks
func (h *WebhookReceiverHandler) Receive(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.record("rejected")
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
			return
		}
		badRequest(c, "failed to read request body")
		return
	}

	event, err := h.receiver.Receive(c.Request.Context(), payload, c.GetHeader(webhooks.SignatureHeader))
	switch {
	case err == nil:
		h.record("accepted")
		c.JSON(http.StatusOK, gin.H{"status": "ok", "id": event.ID})
	case errors.Is(err, webhooks.ErrDisabled):
		h.record("disabled")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Webhooks functionality is temporarily disabled"})
	case errors.Is(err, webhooks.ErrInvalidSignature):
		h.record("rejected")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid signature"})
	case errors.Is(err, webhooks.ErrInvalidPayload):
		h.record("rejected")
		badRequest(c, err.Error())
	default:
		h.record("failed")
		h.logger.Error().Err(err).Msg("failed to forward webhook")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "failed to forward webhook", Retryable: true})
	}
}
