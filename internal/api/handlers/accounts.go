package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MacJediWizard/railsdash/internal/railsr"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AccountService is the subset of railsr.Accounts used by AccountsHandler.
type AccountService interface {
	Create(ctx context.Context, in railsr.AccountInput) (*railsr.Account, error)
	Get(ctx context.Context, id string) (*railsr.Account, error)
	ListByCustomer(ctx context.Context, customerID string, pr railsr.PageRequest) (*railsr.Page[railsr.Account], error)
	ListAll(ctx context.Context, pr railsr.PageRequest) (*railsr.Page[railsr.Account], error)
	Balance(ctx context.Context, id string) (*railsr.AccountBalance, error)
	Statement(ctx context.Context, id, startDate, endDate string) (*railsr.Statement, error)
	Close(ctx context.Context, id, reason string) (*railsr.Account, error)
	Details(ctx context.Context, id string) (*railsr.AccountDetails, error)
	Ledger(ctx context.Context, id string, pr railsr.PageRequest) (*railsr.Page[railsr.LedgerEntry], error)
	Balances(ctx context.Context) ([]railsr.CurrencyBalance, error)
}

// accountView adds the display label of the owning customer.
type accountView struct {
	railsr.Account
	CustomerLabel string `json:"customer_label"`
}

// viewAccount returns nil for an empty upstream response.
func viewAccount(a *railsr.Account) *accountView {
	if a == nil {
		return nil
	}
	return &accountView{Account: *a, CustomerLabel: a.CustomerLabel()}
}

func viewAccounts(page *railsr.Page[railsr.Account]) railsr.Page[accountView] {
	out := railsr.Page[accountView]{
		Items:      make([]accountView, len(page.Items)),
		Total:      page.Total,
		TotalPages: page.TotalPages,
		Page:       page.Page,
		PerPage:    page.PerPage,
		Paginated:  page.Paginated,
	}
	for i, a := range page.Items {
		out.Items[i] = accountView{Account: a, CustomerLabel: a.CustomerLabel()}
	}
	return out
}

// CloseAccountRequest is the request body for closing an account.
type CloseAccountRequest struct {
	Reason string `json:"reason"`
}

// AccountsHandler handles account HTTP endpoints.
type AccountsHandler struct {
	accounts AccountService
	logger   zerolog.Logger
}

// NewAccountsHandler creates a new AccountsHandler.
func NewAccountsHandler(accounts AccountService, logger zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{
		accounts: accounts,
		logger:   logger.With().Str("component", "accounts_handler").Logger(),
	}
}

// RegisterRoutes registers account routes on the given router group.
func (h *AccountsHandler) RegisterRoutes(r *gin.RouterGroup) {
	accounts := r.Group("/accounts")
	{
		accounts.GET("", h.List)
		accounts.POST("", h.Create)
		accounts.GET("/balances", h.Balances)
		accounts.GET("/:id", h.Get)
		accounts.GET("/:id/balance", h.Balance)
		accounts.GET("/:id/statement", h.Statement)
		accounts.GET("/:id/details", h.Details)
		accounts.GET("/:id/ledger", h.Ledger)
		accounts.POST("/:id/close", h.Close)
	}
	r.GET("/customers/:id/accounts", h.ListByCustomer)
}

// List returns a page of all program accounts.
// GET /api/v1/accounts
func (h *AccountsHandler) List(c *gin.Context) {
	pr, ok := pageRequest(c)
	if !ok {
		return
	}
	page, err := h.accounts.ListAll(c.Request.Context(), pr)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, viewAccounts(page))
}

// ListByCustomer returns a page of accounts owned by a customer.
// GET /api/v1/customers/:id/accounts
func (h *AccountsHandler) ListByCustomer(c *gin.Context) {
	pr, ok := pageRequest(c)
	if !ok {
		return
	}
	page, err := h.accounts.ListByCustomer(c.Request.Context(), c.Param("id"), pr)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, viewAccounts(page))
}

// Create opens an account.
// POST /api/v1/accounts
func (h *AccountsHandler) Create(c *gin.Context) {
	var in railsr.AccountInput
	if !bindJSON(c, &in) {
		return
	}
	if in.CustomerID == "" || in.AccountType == "" || in.Currency == "" {
		badRequest(c, "customer_id, account_type and currency are required")
		return
	}

	account, err := h.accounts.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if account != nil {
		h.logger.Info().Str("account_id", account.ID).Str("customer_id", in.CustomerID).Msg("account created")
	}
	c.JSON(http.StatusCreated, viewAccount(account))
}

// Get returns one account.
// GET /api/v1/accounts/:id
func (h *AccountsHandler) Get(c *gin.Context) {
	account, err := h.accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondFound(c, viewAccount(account), "account")
}

// Balance returns the balance of one account.
// GET /api/v1/accounts/:id/balance
func (h *AccountsHandler) Balance(c *gin.Context) {
	balance, err := h.accounts.Balance(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

// Balances returns program balances per currency.
// GET /api/v1/accounts/balances
func (h *AccountsHandler) Balances(c *gin.Context) {
	balances, err := h.accounts.Balances(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balances": balances})
}

// Statement returns an account statement for a date range.
// GET /api/v1/accounts/:id/statement?start_date=YYYY-MM-DD&end_date=YYYY-MM-DD
func (h *AccountsHandler) Statement(c *gin.Context) {
	start, end := c.Query("start_date"), c.Query("end_date")
	if start == "" || end == "" {
		badRequest(c, "start_date and end_date are required")
		return
	}
	startAt, err1 := time.Parse(time.DateOnly, start)
	endAt, err2 := time.Parse(time.DateOnly, end)
	if err1 != nil || err2 != nil {
		badRequest(c, "dates must be formatted as YYYY-MM-DD")
		return
	}
	if endAt.Before(startAt) {
		badRequest(c, "end_date must not be before start_date")
		return
	}

	statement, err := h.accounts.Statement(c.Request.Context(), c.Param("id"), start, end)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, statement)
}

// Details returns the banking details of an account.
// GET /api/v1/accounts/:id/details
func (h *AccountsHandler) Details(c *gin.Context) {
	details, err := h.accounts.Details(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// Ledger returns a page of ledger entries.
// GET /api/v1/accounts/:id/ledger
func (h *AccountsHandler) Ledger(c *gin.Context) {
	pr, ok := pageRequest(c)
	if !ok {
		return
	}
	page, err := h.accounts.Ledger(c.Request.Context(), c.Param("id"), pr)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Close closes an account.
// POST /api/v1/accounts/:id/close
func (h *AccountsHandler) Close(c *gin.Context) {
	var req CloseAccountRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	account, err := h.accounts.Close(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.logger.Info().Str("account_id", c.Param("id")).Str("reason", req.Reason).Msg("account closed")
	c.JSON(http.StatusOK, viewAccount(account))
}
