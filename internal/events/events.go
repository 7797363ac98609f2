// Package events forwards inbound upstream notifications to downstream
// consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Event is an upstream webhook notification accepted by the receiver.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	ReceivedAt time.Time       `json:"received_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher delivers events downstream.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// LogPublisher writes events to the log only. It is used when no broker is
// configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "event_log").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, event *Event) error {
	p.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Int("payload_bytes", len(event.Payload)).
		Msg("webhook event received")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
