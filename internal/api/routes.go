// Package api provides the HTTP API for the railsdash server.
package api

import (
	"errors"

	"github.com/MacJediWizard/railsdash/internal/api/handlers"
	"github.com/MacJediWizard/railsdash/internal/api/middleware"
	"github.com/MacJediWizard/railsdash/internal/auth"
	"github.com/MacJediWizard/railsdash/internal/config"
	"github.com/MacJediWizard/railsdash/internal/railsr"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/ulule/limiter/v3"
)

// Config holds configuration for the API router.
type Config struct {
	Environment config.Environment
	// AllowedOrigins for CORS. Empty allows all origins outside production.
	AllowedOrigins []string
	// RateLimitRequests is the number of requests allowed per period.
	RateLimitRequests int64
	// RateLimitPeriod is the duration string for rate limiting (e.g. "1m", "1h").
	RateLimitPeriod string
	// RateLimitStore shares limiter state between instances. Nil keeps it in memory.
	RateLimitStore limiter.Store
	MaxBodyBytes   int64
	Version        handlers.VersionInfo
}

// DefaultConfig returns a Config with sensible defaults for development.
func DefaultConfig() Config {
	return Config{
		Environment:       config.EnvDevelopment,
		AllowedOrigins:    []string{},
		RateLimitRequests: 100,
		RateLimitPeriod:   "1m",
		MaxBodyBytes:      middleware.DefaultMaxBodyBytes,
		Version:           handlers.VersionInfo{Version: "dev"},
	}
}

// Deps are the services the routes are served from. Snapshots, Feed,
// Gatherer and WebhookRecorder are optional.
type Deps struct {
	Credentials     config.Credentials
	Clients         *railsr.Clients
	Stats           handlers.StatsService
	Snapshots       handlers.StatsSnapshots
	Feed            handlers.StatsFeed
	Receiver        handlers.WebhookReceiver
	WebhookRecorder handlers.WebhookRecorder
	Health          handlers.HealthChecker
	Sessions        *auth.SessionStore
	Admin           *auth.Admin
	Gatherer        prometheus.Gatherer
}

// Router wraps a Gin engine with configured middleware and routes.
type Router struct {
	Engine *gin.Engine
	logger zerolog.Logger
}

// NewRouter creates a new Router with the given dependencies.
func NewRouter(cfg Config, deps Deps, logger zerolog.Logger) (*Router, error) {
	if deps.Clients == nil || deps.Stats == nil || deps.Receiver == nil || deps.Health == nil {
		return nil, errors.New("api: clients, stats, receiver and health are required")
	}
	if deps.Sessions == nil || deps.Admin == nil {
		return nil, errors.New("api: sessions and admin are required")
	}
	if len(cfg.AllowedOrigins) == 0 && cfg.Environment == config.EnvProduction {
		return nil, errors.New("api: CORS_ORIGINS must be set in production")
	}

	r := &Router{
		Engine: gin.New(),
		logger: logger.With().Str("component", "router").Logger(),
	}

	if len(cfg.AllowedOrigins) == 0 {
		r.logger.Warn().Msg("CORS_ORIGINS is empty, all origins are allowed")
	}
	if !deps.Admin.Enabled() {
		r.logger.Warn().Msg("ADMIN_PASSWORD_HASH is not set, the API is open without login")
	}

	// Global middleware
	r.Engine.Use(gin.Recovery())
	r.Engine.Use(middleware.RequestLogger(logger))
	r.Engine.Use(middleware.SecurityHeaders())
	r.Engine.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Engine.Use(middleware.BodyLimitMiddleware(cfg.MaxBodyBytes))

	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitPeriod, cfg.RateLimitStore)
	if err != nil {
		return nil, err
	}
	r.Engine.Use(rateLimiter)

	// Public endpoints
	handlers.NewHealthHandler(deps.Health, logger).RegisterPublicRoutes(r.Engine)
	handlers.NewVersionHandler(cfg.Version, logger).RegisterPublicRoutes(r.Engine)
	if deps.Gatherer != nil {
		handlers.NewMetricsHandler(deps.Gatherer).RegisterPublicRoutes(r.Engine)
	}
	handlers.NewWebhookReceiverHandler(deps.Receiver, deps.WebhookRecorder, logger).RegisterPublicRoutes(r.Engine)

	authGroup := r.Engine.Group("/auth")
	handlers.NewAuthHandler(deps.Admin, deps.Sessions, logger).RegisterRoutes(authGroup)

	requireAdmin := middleware.AuthMiddleware(deps.Sessions, deps.Admin, logger)

	// Dashboard and settings routes (auth required)
	apiGroup := r.Engine.Group("/api")
	apiGroup.Use(requireAdmin)
	handlers.NewDashboardHandler(deps.Stats, deps.Snapshots, deps.Feed, logger).RegisterRoutes(apiGroup)
	handlers.NewConnectionHandler(deps.Credentials, deps.Clients, logger).RegisterRoutes(apiGroup)

	// Resource routes (auth required)
	apiV1 := r.Engine.Group("/api/v1")
	apiV1.Use(requireAdmin)
	handlers.NewCustomersHandler(deps.Clients.Customers, logger).RegisterRoutes(apiV1)
	handlers.NewAccountsHandler(deps.Clients.Accounts, logger).RegisterRoutes(apiV1)
	handlers.NewCardsHandler(deps.Clients.Cards, logger).RegisterRoutes(apiV1)
	handlers.NewTransactionsHandler(deps.Clients.Transactions, logger).RegisterRoutes(apiV1)
	handlers.NewSubscriptionsHandler(deps.Clients.Webhooks, logger).RegisterRoutes(apiV1)

	r.logger.Info().Msg("API router initialized")
	return r, nil
}
