package handlers

import (
	"context"
	"net/http"

	"github.com/MacJediWizard/railsdash/internal/railsr"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// TransactionService is the subset of railsr.Transactions used by
// TransactionsHandler.
type TransactionService interface {
	Create(ctx context.Context, in railsr.TransactionInput) (*railsr.Transaction, error)
	Get(ctx context.Context, id string) (*railsr.Transaction, error)
	ListByAccount(ctx context.Context, accountID string, pr railsr.PageRequest) (*railsr.Page[railsr.Transaction], error)
	ListAll(ctx context.Context, pr railsr.PageRequest) (*railsr.Page[railsr.Transaction], error)
	CreatePayment(ctx context.Context, in railsr.PaymentInput) (*railsr.Payment, error)
	GetPayment(ctx context.Context, id string) (*railsr.Payment, error)
	ListPaymentsByAccount(ctx context.Context, accountID string, pr railsr.PageRequest) (*railsr.Page[railsr.Payment], error)
	ListAllPayments(ctx context.Context, pr railsr.PageRequest) (*railsr.Page[railsr.Payment], error)
}

// TransactionsHandler handles transaction and payment HTTP endpoints.
type TransactionsHandler struct {
	transactions TransactionService
	logger       zerolog.Logger
}

// NewTransactionsHandler creates a new TransactionsHandler.
func NewTransactionsHandler(transactions TransactionService, logger zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		transactions: transactions,
		logger:       logger.With().Str("component", "transactions_handler").Logger(),
	}
}

// RegisterRoutes registers transaction and payment routes on the given router group.
func (h *TransactionsHandler) RegisterRoutes(r *gin.RouterGroup) {
	transactions := r.Group("/transactions")
	{
		transactions.GET("", h.List)
		transactions.POST("", h.Create)
		transactions.GET("/:id", h.Get)
	}
	payments := r.Group("/payments")
	{
		payments.GET("", h.ListPayments)
		payments.POST("", h.CreatePayment)
		payments.GET("/:id", h.GetPayment)
	}
	r.GET("/accounts/:id/transactions", h.ListByAccount)
	r.GET("/accounts/:id/payments", h.ListPaymentsByAccount)
}

// List returns a page of program transactions.
// GET /api/v1/transactions
func (h *TransactionsHandler) List(c *gin.Context) {
	pr, ok := pageRequest(c)
	if !ok {
		return
	}
	page, err := h.transactions.ListAll(c.Request.Context(), pr)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListByAccount returns a page of transactions of one account.
// GET /api/v1/accounts/:id/transactions
func (h *TransactionsHandler) ListByAccount(c *gin.Context) {
	pr, ok := pageRequest(c)
	if !ok {
		return
	}
	page, err := h.transactions.ListByAccount(c.Request.Context(), c.Param("id"), pr)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Create submits a transfer.
// POST /api/v1/transactions
func (h *TransactionsHandler) Create(c *gin.Context) {
	var in railsr.TransactionInput
	if !bindJSON(c, &in) {
		return
	}
	if in.SourceAccountID == "" || in.Currency == "" {
		badRequest(c, "source_account_id and currency are required")
		return
	}
	if (in.DestinationAccountID == "") == (in.DestinationIBAN == "") {
		badRequest(c, "exactly one of destination_account_id and destination_iban is required")
		return
	}
	if in.Amount <= 0 {
		badRequest(c, "amount must be positive")
		return
	}

	tx, err := h.transactions.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if tx != nil {
		h.logger.Info().Str("transaction_id", tx.ID).Str("source_account_id", in.SourceAccountID).Msg("transaction created")
	}
	c.JSON(http.StatusCreated, tx)
}

// Get returns one transaction.
// GET /api/v1/transactions/:id
func (h *TransactionsHandler) Get(c *gin.Context) {
	tx, err := h.transactions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondFound(c, tx, "transaction")
}

// ListPayments returns a page of program payments.
// GET /api/v1/payments
func (h *TransactionsHandler) ListPayments(c *gin.Context) {
	pr, ok := pageRequest(c)
	if !ok {
		return
	}
	page, err := h.transactions.ListAllPayments(c.Request.Context(), pr)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListPaymentsByAccount returns a page of payments of one account.
// GET /api/v1/accounts/:id/payments
func (h *TransactionsHandler) ListPaymentsByAccount(c *gin.Context) {
	pr, ok := pageRequest(c)
	if !ok {
		return
	}
	page, err := h.transactions.ListPaymentsByAccount(c.Request.Context(), c.Param("id"), pr)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreatePayment submits a payment.
// POST /api/v1/payments
func (h *TransactionsHandler) CreatePayment(c *gin.Context) {
	var in railsr.PaymentInput
	if !bindJSON(c, &in) {
		return
	}
	if in.AccountID == "" || in.Currency == "" || in.PaymentMethod == "" {
		badRequest(c, "account_id, currency and payment_method are required")
		return
	}
	if in.Amount <= 0 {
		badRequest(c, "amount must be positive")
		return
	}

	payment, err := h.transactions.CreatePayment(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// GetPayment returns one payment.
// GET /api/v1/payments/:id
func (h *TransactionsHandler) GetPayment(c *gin.Context) {
	payment, err := h.transactions.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondFound(c, payment, "payment")
}
