// Package main is the entrypoint for the railsdash server.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MacJediWizard/railsdash/internal/api"
	"github.com/MacJediWizard/railsdash/internal/api/handlers"
	"github.com/MacJediWizard/railsdash/internal/api/middleware"
	"github.com/MacJediWizard/railsdash/internal/auth"
	"github.com/MacJediWizard/railsdash/internal/config"
	"github.com/MacJediWizard/railsdash/internal/dashboard"
	"github.com/MacJediWizard/railsdash/internal/events"
	"github.com/MacJediWizard/railsdash/internal/health"
	"github.com/MacJediWizard/railsdash/internal/httpclient"
	"github.com/MacJediWizard/railsdash/internal/metrics"
	"github.com/MacJediWizard/railsdash/internal/railsr"
	"github.com/MacJediWizard/railsdash/internal/webhooks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("version", Version).Logger()
	if os.Getenv("ENV") != string(config.EnvProduction) {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	logger.Info().
		Str("version", Version).
		Str("commit", Commit).
		Str("build_date", BuildDate).
		Msg("Starting railsdash server")

	cfg := config.LoadServerConfig()
	creds := cfg.Credentials()
	isProduction := cfg.Environment == config.EnvProduction

	if !creds.Complete() {
		logger.Warn().Msg("RAILSR_API_KEY or RAILSR_PROGRAM_ID is not set, dashboard will serve mock data")
	}
	if cfg.Proxy.HasProxy() {
		logger.Info().Str("proxy", httpclient.ProxyInfo(&cfg.Proxy)).Msg("Using outbound proxy")
	}

	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		return 1
	}

	// Session store and admin login
	sessionSecret := cfg.SessionSecret
	if sessionSecret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			logger.Error().Err(err).Msg("Failed to generate session secret")
			return 1
		}
		sessionSecret = hex.EncodeToString(buf)
		logger.Warn().Msg("SESSION_SECRET not set, using a random secret; sessions will not survive a restart")
	}

	sessionCfg := auth.DefaultSessionConfig([]byte(sessionSecret), isProduction)
	sessionCfg.MaxAge = cfg.SessionMaxAge
	sessions, err := auth.NewSessionStore(sessionCfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize session store")
		return 1
	}
	admin, err := auth.NewAdmin(cfg.AdminUsername, cfg.AdminPasswordHash)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize admin login")
		return 1
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMetrics, err := metrics.NewPrometheusMetrics(registry)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to register metrics")
		return 1
	}

	// Upstream clients
	client, err := railsr.NewClient(railsr.ClientConfig{
		Credentials: creds,
		Proxy:       &cfg.Proxy,
		Observer:    promMetrics,
	}, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create Railsr client")
		return 1
	}
	clients := railsr.NewClients(client, logger)

	// Dashboard aggregation
	aggregator := dashboard.NewAggregator(dashboard.NewClientSource(clients), dashboard.AggregatorConfig{
		Configured:  client.Configured(),
		UseMockData: cfg.UseMockData,
		Recorder:    promMetrics,
	}, logger)

	feedCfg := dashboard.DefaultFeedConfig()
	feedCfg.AllowedOrigins = cfg.AllowedOrigins
	feed := dashboard.NewFeed(feedCfg, logger)
	feed.Start()
	defer feed.Stop()

	deps := api.Deps{
		Credentials:     creds,
		Clients:         clients,
		Stats:           aggregator,
		Feed:            feed,
		WebhookRecorder: promMetrics,
		Sessions:        sessions,
		Admin:           admin,
		Gatherer:        registry,
	}

	var refresher *dashboard.Refresher
	if cfg.StatsRefreshSchedule != "" {
		refresher = dashboard.NewRefresher(aggregator, cfg.StatsRefreshSchedule, feed, logger)
		if err := refresher.Start(); err != nil {
			logger.Error().Err(err).Str("schedule", cfg.StatsRefreshSchedule).Msg("Failed to start stats refresher")
			return 1
		}
		deps.Snapshots = refresher
	} else {
		logger.Info().Msg("STATS_REFRESH_SCHEDULE is empty, stats are computed per request")
	}

	// Inbound webhooks
	var publisher events.Publisher = events.NewLogPublisher(logger)
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error().Err(err).Str("amqp_url", httpclient.MaskURL(cfg.AMQPURL)).Msg("Failed to connect to AMQP broker")
			return 1
		}
		publisher = amqpPublisher
		logger.Info().Str("queue", cfg.AMQPQueue).Msg("Forwarding webhooks to AMQP")
	}
	defer publisher.Close()

	if cfg.WebhooksEnabled && cfg.WebhookSecret == "" {
		logger.Warn().Msg("WEBHOOK_SECRET is not set, webhook signatures are not verified")
	}
	deps.Receiver = webhooks.NewReceiver(webhooks.ReceiverConfig{
		Enabled:          cfg.WebhooksEnabled,
		Secret:           cfg.WebhookSecret,
		RequireSignature: isProduction,
	}, publisher, logger)

	// Health
	deps.Health = health.NewService(health.ServiceConfig{
		Configured: client.Configured(),
		MockData:   cfg.UseMockData,
	}, health.PingFunc(func(ctx context.Context) error {
		_, err := clients.Program.Info(ctx)
		return err
	}), logger)

	// Router
	routerCfg := api.DefaultConfig()
	routerCfg.Environment = cfg.Environment
	routerCfg.AllowedOrigins = cfg.AllowedOrigins
	routerCfg.RateLimitRequests = cfg.RateLimitRequests
	routerCfg.RateLimitPeriod = cfg.RateLimitPeriod
	routerCfg.Version = handlers.VersionInfo{
		Version:     Version,
		Commit:      Commit,
		BuildDate:   BuildDate,
		Environment: string(cfg.Environment),
		MockData:    cfg.UseMockData || !client.Configured(),
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error().Err(err).Msg("Invalid REDIS_URL")
			return 1
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		store, err := middleware.NewRedisStore(redisClient)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to initialize redis rate limit store")
			return 1
		}
		routerCfg.RateLimitStore = store
		logger.Info().Str("redis_url", httpclient.MaskURL(cfg.RedisURL)).Msg("Rate limits shared through redis")
	}

	router, err := api.NewRouter(routerCfg, deps, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize router")
		return 1
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down server")
	case err := <-serverErr:
		logger.Error().Err(err).Msg("HTTP server error")
		return 1
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if refresher != nil {
		select {
		case <-refresher.Stop().Done():
		case <-shutdownCtx.Done():
			logger.Warn().Msg("Stats refresh still running at shutdown")
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
		return 1
	}

	logger.Info().Msg("Server stopped gracefully")
	return 0
}
