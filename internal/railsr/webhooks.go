package railsr

import (
	"context"
	"encoding/json"
	"net/http"
)

type Webhook struct {
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	EventTypes  []string `json:"event_types"`
	Description string   `json:"description,omitempty"`
	Active      bool     `json:"active"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// WebhookInput is the body for creating or partially updating a webhook.
type WebhookInput struct {
	URL         string   `json:"url,omitempty"`
	EventTypes  []string `json:"event_types,omitempty"`
	Description string   `json:"description,omitempty"`
	Active      *bool    `json:"active,omitempty"`
	Secret      string   `json:"secret,omitempty"`
}

// WebhookEvent is one delivery attempt of a webhook.
type WebhookEvent struct {
	ID           string          `json:"id"`
	WebhookID    string          `json:"webhook_id,omitempty"`
	EventType    string          `json:"event_type"`
	Status       string          `json:"status,omitempty"`
	ResponseCode int             `json:"response_code,omitempty"`
	Attempts     int             `json:"attempts,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	CreatedAt    string          `json:"created_at,omitempty"`
}

// EventType is a subscribable event. Upstream lists them either as plain
// strings or as {name, description} objects.
type EventType struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (e *EventType) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		*e = EventType{Name: name}
		return nil
	}
	type plain EventType
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*e = EventType(p)
	return nil
}

// Webhooks wraps the /webhooks endpoints.
type Webhooks struct {
	r Requester
}

func NewWebhooks(r Requester) *Webhooks {
	return &Webhooks{r: r}
}

func (w *Webhooks) Create(ctx context.Context, in WebhookInput) (*Webhook, error) {
	return fetch[*Webhook](ctx, w.r, &Request{Method: http.MethodPost, Path: "/webhooks", Body: in})
}

func (w *Webhooks) Get(ctx context.Context, id string) (*Webhook, error) {
	return fetch[*Webhook](ctx, w.r, &Request{Path: "/webhooks/" + escape(id)})
}

func (w *Webhooks) List(ctx context.Context, pr PageRequest) (*Page[Webhook], error) {
	return fetchPage[Webhook](ctx, w.r, "/webhooks", pr, nil)
}

func (w *Webhooks) Update(ctx context.Context, id string, in WebhookInput) (*Webhook, error) {
	return fetch[*Webhook](ctx, w.r, &Request{Method: http.MethodPatch, Path: "/webhooks/" + escape(id), Body: in})
}

func (w *Webhooks) Delete(ctx context.Context, id string) error {
	return exec(ctx, w.r, &Request{Method: http.MethodDelete, Path: "/webhooks/" + escape(id)})
}

// Test asks upstream to fire a synthetic event of the given type.
func (w *Webhooks) Test(ctx context.Context, id, eventType string) (*WebhookEvent, error) {
	return fetch[*WebhookEvent](ctx, w.r, &Request{
		Method: http.MethodPost,
		Path:   "/webhooks/" + escape(id) + "/test",
		Body:   map[string]string{"event_type": eventType},
	})
}

func (w *Webhooks) EventTypes(ctx context.Context) ([]EventType, error) {
	types, err := fetch[[]EventType](ctx, w.r, &Request{Path: "/webhooks/event_types"})
	if err == nil && types == nil {
		types = []EventType{}
	}
	return types, err
}

// Events lists the delivery history of a webhook.
func (w *Webhooks) Events(ctx context.Context, id string, pr PageRequest) (*Page[WebhookEvent], error) {
	return fetchPage[WebhookEvent](ctx, w.r, "/webhooks/"+escape(id)+"/events", pr, nil)
}
