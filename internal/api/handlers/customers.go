package handlers

import (
	"context"
	"net/http"

	"github.com/MacJediWizard/railsdash/internal/railsr"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CustomerService is the subset of railsr.Customers used by CustomersHandler.
type CustomerService interface {
	Create(ctx context.Context, in railsr.CustomerInput) (*railsr.Customer, error)
	Get(ctx context.Context, id string) (*railsr.Customer, error)
	Update(ctx context.Context, id string, in railsr.CustomerInput) (*railsr.Customer, error)
	List(ctx context.Context, pr railsr.PageRequest) (*railsr.Page[railsr.Customer], error)
	SubmitKYC(ctx context.Context, doc railsr.KYCDocument) (*railsr.KYCStatus, error)
	KYCStatus(ctx context.Context, id string) (*railsr.KYCStatus, error)
}

// CustomersHandler handles customer HTTP endpoints.
type CustomersHandler struct {
	customers CustomerService
	logger    zerolog.Logger
}

// NewCustomersHandler creates a new CustomersHandler.
func NewCustomersHandler(customers CustomerService, logger zerolog.Logger) *CustomersHandler {
	return &CustomersHandler{
		customers: customers,
		logger:    logger.With().Str("component", "customers_handler").Logger(),
	}
}

// RegisterRoutes registers customer routes on the given router group.
func (h *CustomersHandler) RegisterRoutes(r *gin.RouterGroup) {
	customers := r.Group("/customers")
	{
		customers.GET("", h.List)
		customers.POST("", h.Create)
		customers.GET("/:id", h.Get)
		customers.PATCH("/:id", h.Update)
		customers.GET("/:id/kyc", h.KYCStatus)
		customers.POST("/:id/kyc", h.SubmitKYC)
	}
}

// List returns a page of customers.
// GET /api/v1/customers
func (h *CustomersHandler) List(c *gin.Context) {
	pr, ok := pageRequest(c)
	if !ok {
		return
	}
	page, err := h.customers.List(c.Request.Context(), pr)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Create creates a customer.
// POST /api/v1/customers
func (h *CustomersHandler) Create(c *gin.Context) {
	var in railsr.CustomerInput
	if !bindJSON(c, &in) {
		return
	}
	if in.FirstName == "" || in.LastName == "" || in.Email == "" {
		badRequest(c, "first_name, last_name and email are required")
		return
	}

	customer, err := h.customers.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if customer != nil {
		h.logger.Info().Str("customer_id", customer.ID).Msg("customer created")
	}
	c.JSON(http.StatusCreated, customer)
}

// Get returns one customer.
// GET /api/v1/customers/:id
func (h *CustomersHandler) Get(c *gin.Context) {
	customer, err := h.customers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondFound(c, customer, "customer")
}

// Update partially updates a customer.
// PATCH /api/v1/customers/:id
func (h *CustomersHandler) Update(c *gin.Context) {
	var in railsr.CustomerInput
	if !bindJSON(c, &in) {
		return
	}
	customer, err := h.customers.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// SubmitKYC uploads identity documents for a customer.
// POST /api/v1/customers/:id/kyc
func (h *CustomersHandler) SubmitKYC(c *gin.Context) {
	var doc railsr.KYCDocument
	if !bindJSON(c, &doc) {
		return
	}
	if doc.DocumentType == "" || doc.DocumentFront == "" {
		badRequest(c, "document_type and document_front are required")
		return
	}
	doc.CustomerID = c.Param("id")

	status, err := h.customers.SubmitKYC(c.Request.Context(), doc)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, status)
}

// KYCStatus returns the verification state of a customer.
// GET /api/v1/customers/:id/kyc
func (h *CustomersHandler) KYCStatus(c *gin.Context) {
	status, err := h.customers.KYCStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
