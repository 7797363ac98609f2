package handlers

import (
	"net/http"
	"time"

	"github.com/MacJediWizard/railsdash/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// LoginRequest is the request body for admin login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// MeResponse describes the current session.
type MeResponse struct {
	Authenticated bool              `json:"authenticated"`
	AuthDisabled  bool              `json:"auth_disabled,omitempty"`
	User          *auth.SessionUser `json:"user,omitempty"`
}

// AuthHandler handles admin login and logout.
type AuthHandler struct {
	admin    *auth.Admin
	sessions *auth.SessionStore
	logger   zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(admin *auth.Admin, sessions *auth.SessionStore, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		admin:    admin,
		sessions: sessions,
		logger:   logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterRoutes registers auth routes on the given router group.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.GET("/me", h.Me)
}

// Login checks the admin credentials and starts a session.
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	if !h.admin.Enabled() {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "login is not configured"})
		return
	}

	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.admin.Authenticate(req.Username, req.Password); err != nil {
		h.logger.Warn().Str("username", req.Username).Str("client_ip", c.ClientIP()).Msg("invalid login attempt")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid username or password"})
		return
	}

	user := &auth.SessionUser{Username: req.Username, AuthenticatedAt: time.Now().UTC()}
	if err := h.sessions.SetUser(c.Request, c.Writer, user); err != nil {
		h.logger.Error().Err(err).Msg("failed to save session")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create session"})
		return
	}

	h.logger.Info().Str("username", user.Username).Msg("admin logged in")
	c.JSON(http.StatusOK, MeResponse{Authenticated: true, User: user})
}

// Logout ends the session.
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.ClearUser(c.Request, c.Writer); err != nil {
		h.logger.Error().Err(err).Msg("failed to clear session")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to clear session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the session state.
// GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	if !h.admin.Enabled() {
		c.JSON(http.StatusOK, MeResponse{Authenticated: true, AuthDisabled: true})
		return
	}
	user, err := h.sessions.GetUser(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, MeResponse{})
		return
	}
	c.JSON(http.StatusOK, MeResponse{Authenticated: true, User: user})
}
