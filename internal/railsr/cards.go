package railsr

import (
	"context"
	"net/http"
	"net/url"
)

type Card struct {
	ID         string         `json:"id"`
	CustomerID string         `json:"customer_id"`
	AccountID  string         `json:"account_id"`
	CardType   string         `json:"card_type"` // virtual or physical
	CardBrand  string         `json:"card_brand,omitempty"`
	CardName   string         `json:"card_name,omitempty"`
	Status     string         `json:"status,omitempty"`
	LastFour   string         `json:"last_four,omitempty"`
	ExpiryDate string         `json:"expiry_date,omitempty"`
	CreatedAt  string         `json:"created_at,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type CardInput struct {
	CustomerID      string         `json:"customer_id"`
	AccountID       string         `json:"account_id"`
	CardType        string         `json:"card_type"`
	CardBrand       string         `json:"card_brand,omitempty"` // visa or mastercard
	CardName        string         `json:"card_name,omitempty"`
	ShippingAddress *Address       `json:"shipping_address,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

type CardLimit struct {
	LimitType string `json:"limit_type"` // daily, monthly, transaction
	Amount    Amount `json:"amount"`
	Currency  string `json:"currency"`
}

type PINRequest struct {
	Status         string `json:"status,omitempty"`
	DeliveryMethod string `json:"delivery_method,omitempty"`
}

// Cards wraps the /cards endpoints.
type Cards struct {
	r Requester
}

func NewCards(r Requester) *Cards {
	return &Cards{r: r}
}

func (c *Cards) Create(ctx context.Context, in CardInput) (*Card, error) {
	return fetch[*Card](ctx, c.r, &Request{Method: http.MethodPost, Path: "/cards", Body: in})
}

func (c *Cards) Get(ctx context.Context, id string) (*Card, error) {
	return fetch[*Card](ctx, c.r, &Request{Path: "/cards/" + escape(id)})
}

func (c *Cards) ListByCustomer(ctx context.Context, customerID string, pr PageRequest) (*Page[Card], error) {
	return fetchPage[Card](ctx, c.r, "/customers/"+escape(customerID)+"/cards", pr, nil)
}

// ListAll lists every card of the program, optionally filtered by type.
func (c *Cards) ListAll(ctx context.Context, pr PageRequest, cardType string) (*Page[Card], error) {
	var filter url.Values
	if cardType != "" {
		filter = url.Values{"card_type": {cardType}}
	}
	return fetchPage[Card](ctx, c.r, "/cards", pr, filter)
}

func (c *Cards) Activate(ctx context.Context, id string) (*Card, error) {
	return c.action(ctx, id, "activate", nil)
}

func (c *Cards) Block(ctx context.Context, id, reason string) (*Card, error) {
	return c.action(ctx, id, "block", map[string]string{"reason": reason})
}

func (c *Cards) Unblock(ctx context.Context, id string) (*Card, error) {
	return c.action(ctx, id, "unblock", nil)
}

func (c *Cards) action(ctx context.Context, id, action string, body any) (*Card, error) {
	return fetch[*Card](ctx, c.r, &Request{
		Method: http.MethodPost,
		Path:   "/cards/" + escape(id) + "/" + action,
		Body:   body,
	})
}

func (c *Cards) SetLimit(ctx context.Context, id string, limit CardLimit) (*CardLimit, error) {
	return fetch[*CardLimit](ctx, c.r, &Request{
		Method: http.MethodPost,
		Path:   "/cards/" + escape(id) + "/limits",
		Body:   limit,
	})
}

func (c *Cards) Limits(ctx context.Context, id string) ([]CardLimit, error) {
	limits, err := fetch[[]CardLimit](ctx, c.r, &Request{Path: "/cards/" + escape(id) + "/limits"})
	if err == nil && limits == nil {
		limits = []CardLimit{}
	}
	return limits, err
}

// RequestPIN asks upstream to deliver the card PIN to the cardholder.
func (c *Cards) RequestPIN(ctx context.Context, id string) (*PINRequest, error) {
	return fetch[*PINRequest](ctx, c.r, &Request{Method: http.MethodPost, Path: "/cards/" + escape(id) + "/pin"})
}
