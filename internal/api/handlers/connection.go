package handlers

import (
	"context"
	"net/http"

	"github.com/MacJediWizard/railsdash/internal/config"
	"github.com/MacJediWizard/railsdash/internal/railsr"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ConnectionConfig reports which credentials are present, without their
// values.
type ConnectionConfig struct {
	APIKeyExists    bool   `json:"apiKeyExists"`
	ProgramIDExists bool   `json:"programIdExists"`
	APIURL          string `json:"apiUrl"`
}

// ConnectionResponse is the body of the connection check.
type ConnectionResponse struct {
	Success   bool                `json:"success"`
	Data      *railsr.ProgramInfo `json:"data,omitempty"`
	Error     string              `json:"error,omitempty"`
	Code      railsr.ErrorKind    `json:"code,omitempty"`
	Retryable bool                `json:"retryable,omitempty"`
	Config    *ConnectionConfig   `json:"config,omitempty"`
}

// ProbeResponse is the body of a successful endpoint probe.
type ProbeResponse struct {
	Success  bool   `json:"success"`
	Endpoint string `json:"endpoint,omitempty"`
	Data     any    `json:"data"`
}

// ConnectionHandler checks upstream connectivity and probes individual
// upstream endpoints for the settings page.
type ConnectionHandler struct {
	creds   config.Credentials
	clients *railsr.Clients
	logger  zerolog.Logger
}

// NewConnectionHandler creates a new ConnectionHandler.
func NewConnectionHandler(creds config.Credentials, clients *railsr.Clients, logger zerolog.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		creds:   creds,
		clients: clients,
		logger:  logger.With().Str("component", "connection_handler").Logger(),
	}
}

// RegisterRoutes registers connection routes on the given router group.
func (h *ConnectionHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/settings/check-connection", h.CheckConnection)
	r.GET("/railsr/test", h.Test)
	r.GET("/railsr/test-endpoints", h.TestEndpoint)
}

func (h *ConnectionHandler) configInfo() *ConnectionConfig {
	baseURL := h.creds.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultRailsrURL
	}
	return &ConnectionConfig{
		APIKeyExists:    h.creds.APIKey != "",
		ProgramIDExists: h.creds.ProgramID != "",
		APIURL:          baseURL,
	}
}

// CheckConnection verifies the credentials against the program endpoint.
// GET /api/settings/check-connection
func (h *ConnectionHandler) CheckConnection(c *gin.Context) {
	switch {
	case h.creds.APIKey == "":
		c.JSON(http.StatusBadRequest, ConnectionResponse{
			Error: "API key is missing. Check the server environment.",
			Code:  railsr.KindConfiguration,
		})
		return
	case h.creds.ProgramID == "":
		c.JSON(http.StatusBadRequest, ConnectionResponse{
			Error: "Program ID is missing. Check the server environment.",
			Code:  railsr.KindConfiguration,
		})
		return
	}

	result := h.clients.Program.TestConnection(c.Request.Context())
	if !result.Success {
		h.logger.Warn().Str("kind", string(result.Kind)).Str("error", result.Error).Msg("connection check failed")
		msg := result.Error
		if msg == "" {
			msg = "Could not connect to the Railsr API"
		}
		c.JSON(http.StatusInternalServerError, ConnectionResponse{
			Error:     msg,
			Code:      result.Kind,
			Retryable: result.Kind == railsr.KindTimeout || result.Kind == railsr.KindNetwork,
			Config:    h.configInfo(),
		})
		return
	}

	c.JSON(http.StatusOK, ConnectionResponse{
		Success: true,
		Data:    result.Data,
		Config:  h.configInfo(),
	})
}

func (h *ConnectionHandler) requireCredentials(c *gin.Context) bool {
	if !h.creds.Complete() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing API key or program ID", Code: railsr.KindConfiguration})
		return false
	}
	return true
}

// Test fetches the program information.
// GET /api/railsr/test
func (h *ConnectionHandler) Test(c *gin.Context) {
	if !h.requireCredentials(c) {
		return
	}
	info, err := h.clients.Program.Info(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ProbeResponse{Success: true, Data: info})
}

// TestEndpoint calls one upstream list endpoint and returns the raw result.
// accounts and cards need customerId, transactions needs accountId.
// GET /api/railsr/test-endpoints?endpoint=program|customers|accounts|cards|transactions|webhooks
func (h *ConnectionHandler) TestEndpoint(c *gin.Context) {
	if !h.requireCredentials(c) {
		return
	}

	endpoint := c.DefaultQuery("endpoint", "program")
	var probe func(ctx context.Context) (any, error)

	switch endpoint {
	case "program":
		probe = func(ctx context.Context) (any, error) { return h.clients.Program.Info(ctx) }
	case "customers":
		probe = func(ctx context.Context) (any, error) {
			return h.clients.Customers.List(ctx, railsr.PageRequest{})
		}
	case "accounts":
		customerID := c.Query("customerId")
		if customerID == "" {
			badRequest(c, "Customer ID is required for accounts endpoint")
			return
		}
		probe = func(ctx context.Context) (any, error) {
			return h.clients.Accounts.ListByCustomer(ctx, customerID, railsr.PageRequest{})
		}
	case "cards":
		customerID := c.Query("customerId")
		if customerID == "" {
			badRequest(c, "Customer ID is required for cards endpoint")
			return
		}
		probe = func(ctx context.Context) (any, error) {
			return h.clients.Cards.ListByCustomer(ctx, customerID, railsr.PageRequest{})
		}
	case "transactions":
		accountID := c.Query("accountId")
		if accountID == "" {
			badRequest(c, "Account ID is required for transactions endpoint")
			return
		}
		probe = func(ctx context.Context) (any, error) {
			return h.clients.Transactions.ListByAccount(ctx, accountID, railsr.PageRequest{})
		}
	case "webhooks":
		probe = func(ctx context.Context) (any, error) {
			return h.clients.Webhooks.List(ctx, railsr.PageRequest{})
		}
	default:
		badRequest(c, "Invalid endpoint")
		return
	}

	data, err := probe(c.Request.Context())
	if err != nil {
		h.logger.Warn().Str("endpoint", endpoint).Msg("endpoint probe failed")
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ProbeResponse{Success: true, Endpoint: endpoint, Data: data})
}
