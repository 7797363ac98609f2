package handlers

import (
	"context"
	"net/http"

	"github.com/MacJediWizard/railsdash/internal/railsr"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CardService is the subset of railsr.Cards used by CardsHandler.
type CardService interface {
	Create(ctx context.Context, in railsr.CardInput) (*railsr.Card, error)
	Get(ctx context.Context, id string) (*railsr.Card, error)
	ListByCustomer(ctx context.Context, customerID string, pr railsr.PageRequest) (*railsr.Page[railsr.Card], error)
	ListAll(ctx context.Context, pr railsr.PageRequest, cardType string) (*railsr.Page[railsr.Card], error)
	Activate(ctx context.Context, id string) (*railsr.Card, error)
	Block(ctx context.Context, id, reason string) (*railsr.Card, error)
	Unblock(ctx context.Context, id string) (*railsr.Card, error)
	SetLimit(ctx context.Context, id string, limit railsr.CardLimit) (*railsr.CardLimit, error)
	Limits(ctx context.Context, id string) ([]railsr.CardLimit, error)
	RequestPIN(ctx context.Context, id string) (*railsr.PINRequest, error)
}

// BlockCardRequest is the request body for blocking a card.
type BlockCardRequest struct {
	Reason string `json:"reason"`
}

// CardsHandler handles card HTTP endpoints.
type CardsHandler struct {
	cards  CardService
	logger zerolog.Logger
}

// NewCardsHandler creates a new CardsHandler.
func NewCardsHandler(cards CardService, logger zerolog.Logger) *CardsHandler {
	return &CardsHandler{
		cards:  cards,
		logger: logger.With().Str("component", "cards_handler").Logger(),
	}
}

// RegisterRoutes registers card routes on the given router group.
func (h *CardsHandler) RegisterRoutes(r *gin.RouterGroup) {
	cards := r.Group("/cards")
	{
		cards.GET("", h.List)
		cards.POST("", h.Create)
		cards.GET("/:id", h.Get)
		cards.POST("/:id/activate", h.Activate)
		cards.POST("/:id/block", h.Block)
		cards.POST("/:id/unblock", h.Unblock)
		cards.GET("/:id/limits", h.Limits)
		cards.POST("/:id/limits", h.SetLimit)
		cards.POST("/:id/pin", h.RequestPIN)
	}
	r.GET("/customers/:id/cards", h.ListByCustomer)
}

// List returns a page of program cards, optionally filtered by card_type.
// GET /api/v1/cards
func (h *CardsHandler) List(c *gin.Context) {
	pr, ok := pageRequest(c)
	if !ok {
		return
	}
	cardType := c.Query("card_type")
	switch cardType {
	case "", "virtual", "physical":
	default:
		badRequest(c, "card_type must be virtual or physical")
		return
	}

	page, err := h.cards.ListAll(c.Request.Context(), pr, cardType)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListByCustomer returns a page of cards issued to a customer.
// GET /api/v1/customers/:id/cards
func (h *CardsHandler) ListByCustomer(c *gin.Context) {
	pr, ok := pageRequest(c)
	if !ok {
		return
	}
	page, err := h.cards.ListByCustomer(c.Request.Context(), c.Param("id"), pr)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Create issues a card.
// POST /api/v1/cards
func (h *CardsHandler) Create(c *gin.Context) {
	var in railsr.CardInput
	if !bindJSON(c, &in) {
		return
	}
	if in.CustomerID == "" || in.AccountID == "" || in.CardType == "" {
		badRequest(c, "customer_id, account_id and card_type are required")
		return
	}
	if in.CardType == "physical" && in.ShippingAddress == nil {
		badRequest(c, "shipping_address is required for physical cards")
		return
	}

	card, err := h.cards.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

// Get returns one card.
// GET /api/v1/cards/:id
func (h *CardsHandler) Get(c *gin.Context) {
	card, err := h.cards.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondFound(c, card, "card")
}

// Activate activates a card.
// POST /api/v1/cards/:id/activate
func (h *CardsHandler) Activate(c *gin.Context) {
	h.action(c, "activate", func(ctx context.Context, id string) (*railsr.Card, error) {
		return h.cards.Activate(ctx, id)
	})
}

// Block blocks a card.
// POST /api/v1/cards/:id/block
func (h *CardsHandler) Block(c *gin.Context) {
	var req BlockCardRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	h.action(c, "block", func(ctx context.Context, id string) (*railsr.Card, error) {
		return h.cards.Block(ctx, id, req.Reason)
	})
}

// Unblock unblocks a card.
// POST /api/v1/cards/:id/unblock
func (h *CardsHandler) Unblock(c *gin.Context) {
	h.action(c, "unblock", func(ctx context.Context, id string) (*railsr.Card, error) {
		return h.cards.Unblock(ctx, id)
	})
}

func (h *CardsHandler) action(c *gin.Context, name string, fn func(context.Context, string) (*railsr.Card, error)) {
	id := c.Param("id")
	card, err := fn(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.logger.Info().Str("card_id", id).Str("action", name).Msg("card state changed")
	c.JSON(http.StatusOK, card)
}

// Limits returns the spending limits of a card.
// GET /api/v1/cards/:id/limits
func (h *CardsHandler) Limits(c *gin.Context) {
	limits, err := h.cards.Limits(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"limits": limits})
}

// SetLimit sets one spending limit of a card.
// POST /api/v1/cards/:id/limits
func (h *CardsHandler) SetLimit(c *gin.Context) {
	var limit railsr.CardLimit
	if !bindJSON(c, &limit) {
		return
	}
	switch limit.LimitType {
	case "daily", "monthly", "transaction":
	default:
		badRequest(c, "limit_type must be daily, monthly or transaction")
		return
	}
	if limit.Amount <= 0 || limit.Currency == "" {
		badRequest(c, "a positive amount and a currency are required")
		return
	}

	out, err := h.cards.SetLimit(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// RequestPIN asks upstream to deliver the card PIN to the cardholder.
// POST /api/v1/cards/:id/pin
func (h *CardsHandler) RequestPIN(c *gin.Context) {
	pin, err := h.cards.RequestPIN(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, pin)
}
