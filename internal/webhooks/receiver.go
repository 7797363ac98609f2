package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MacJediWizard/railsdash/internal/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrDisabled         = errors.New("webhooks functionality is disabled")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
)

// ReceiverConfig holds configuration for the Receiver.
type ReceiverConfig struct {
	Enabled bool
	// Secret enables signature verification when non-empty.
	Secret string
	// RequireSignature rejects every payload while Secret is empty.
	RequireSignature bool
}

// Receiver validates inbound notifications and forwards them as events.
type Receiver struct {
	cfg       ReceiverConfig
	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

func NewReceiver(cfg ReceiverConfig, publisher events.Publisher, logger zerolog.Logger) *Receiver {
	return &Receiver{
		cfg:       cfg,
		publisher: publisher,
		logger:    logger.With().Str("component", "webhook_receiver").Logger(),
		now:       time.Now,
	}
}

// Enabled reports whether inbound webhooks are accepted.
func (r *Receiver) Enabled() bool {
	return r.cfg.Enabled
}

// Receive checks the signature, parses payload and publishes the event.
func (r *Receiver) Receive(ctx context.Context, payload []byte, signature string) (*events.Event, error) {
	if !r.cfg.Enabled {
		return nil, ErrDisabled
	}

	if r.cfg.Secret == "" && r.cfg.RequireSignature {
		r.logger.Error().Msg("rejected webhook, signatures are required but no secret is configured")
		return nil, ErrInvalidSignature
	}
	if r.cfg.Secret != "" && !Verify([]byte(r.cfg.Secret), payload, signature) {
		r.logger.Warn().Int("payload_bytes", len(payload)).Msg("rejected webhook with bad signature")
		return nil, ErrInvalidSignature
	}

	var head struct {
		ID        string `json:"id"`
		Type      string `json:"type"`
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	event := &events.Event{
		ID:         head.ID,
		Type:       head.Type,
		ReceivedAt: r.now().UTC(),
		Payload:    json.RawMessage(payload),
	}
	if event.Type == "" {
		event.Type = head.EventType
	}
	if event.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrInvalidPayload)
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	if err := r.publisher.Publish(ctx, event); err != nil {
		return nil, fmt.Errorf("publish webhook event: %w", err)
	}

	r.logger.Info().Str("event_id", event.ID).Str("event_type", event.Type).Msg("webhook accepted")
	return event, nil
}
