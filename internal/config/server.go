// Package config provides configuration management for railsdash.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment represents the deployment environment.
type Environment string

const (
	// EnvDevelopment is the default local development environment.
	EnvDevelopment Environment = "development"
	// EnvStaging is the staging/pre-production environment.
	EnvStaging Environment = "staging"
	// EnvProduction is the production environment.
	EnvProduction Environment = "production"
)

const (
	// DefaultRailsrURL is the upstream API base URL used when RAILSR_API_URL is unset.
	DefaultRailsrURL = "https://api.railsr.com/v3"
	// DefaultRailsrTimeout bounds every upstream request.
	DefaultRailsrTimeout = 10 * time.Second
	// DefaultStatsSchedule is the cron spec for refreshing dashboard stats.
	DefaultStatsSchedule = "@every 1m"
)

// Credentials identify the program on the upstream platform. They are passed
// explicitly into client constructors.
type Credentials struct {
	APIKey    string
	ProgramID string
	BaseURL   string
	Timeout   time.Duration
	Debug     bool
}

// Complete reports whether both the API key and the program id are set.
func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.ProgramID) != ""
}

// ServerConfig holds server-level configuration loaded from environment variables.
type ServerConfig struct {
	Environment Environment
	ListenAddr  string

	Railsr      Credentials
	UseMockData bool

	WebhooksEnabled bool
	WebhookSecret   string

	SessionSecret     string
	SessionMaxAge     int // seconds (default: 86400)
	AdminUsername     string
	AdminPasswordHash string

	AllowedOrigins    []string
	RateLimitRequests int64
	RateLimitPeriod   string
	RedisURL          string

	AMQPURL   string
	AMQPQueue string

	StatsRefreshSchedule string

	Proxy ProxyConfig
}

// LoadServerConfig reads server configuration from environment variables.
func LoadServerConfig() ServerConfig {
	env := Environment(os.Getenv("ENV"))
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// valid
	default:
		env = EnvDevelopment
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		listenAddr = ":" + port
	}

	sessionMaxAge := getEnvInt("SESSION_MAX_AGE", 86400)
	if sessionMaxAge < 0 {
		sessionMaxAge = 86400
	}

	rateLimitRequests := int64(getEnvInt("RATE_LIMIT_REQUESTS", 100))
	if rateLimitRequests <= 0 {
		rateLimitRequests = 100
	}

	var origins []string
	for _, origin := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	schedule, ok := os.LookupEnv("STATS_REFRESH_SCHEDULE")
	if !ok {
		schedule = DefaultStatsSchedule
	}

	return ServerConfig{
		Environment: env,
		ListenAddr:  listenAddr,
		Railsr: Credentials{
			APIKey:    strings.TrimSpace(os.Getenv("RAILSR_API_KEY")),
			ProgramID: strings.TrimSpace(os.Getenv("RAILSR_PROGRAM_ID")),
			BaseURL:   getEnvString("RAILSR_API_URL", DefaultRailsrURL),
			Timeout:   getEnvDuration("RAILSR_TIMEOUT", DefaultRailsrTimeout),
			Debug:     getEnvBool("RAILSR_DEBUG", false),
		},
		UseMockData:          getEnvBool("USE_MOCK_DATA", getEnvBool("NEXT_PUBLIC_USE_MOCK_DATA", false)),
		WebhooksEnabled:      getEnvBool("WEBHOOKS_ENABLED", false),
		WebhookSecret:        os.Getenv("WEBHOOK_SECRET"),
		SessionSecret:        os.Getenv("SESSION_SECRET"),
		SessionMaxAge:        sessionMaxAge,
		AdminUsername:        getEnvString("ADMIN_USERNAME", "admin"),
		AdminPasswordHash:    os.Getenv("ADMIN_PASSWORD_HASH"),
		AllowedOrigins:       origins,
		RateLimitRequests:    rateLimitRequests,
		RateLimitPeriod:      getEnvString("RATE_LIMIT_PERIOD", "1m"),
		RedisURL:             os.Getenv("REDIS_URL"),
		AMQPURL:              os.Getenv("AMQP_URL"),
		AMQPQueue:            getEnvString("AMQP_QUEUE", "railsr.webhooks"),
		StatsRefreshSchedule: strings.TrimSpace(schedule),
		Proxy:                LoadProxyConfig(),
	}
}

// Validate reports settings the server cannot run with. Production requires
// an admin password hash and a session secret, and enabled webhooks must be
// signed there.
func (c ServerConfig) Validate() error {
	if c.Environment != EnvProduction {
		return nil
	}
	var errs []error
	if c.AdminPasswordHash == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD_HASH is required in production"))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required in production"))
	}
	if c.WebhooksEnabled && c.WebhookSecret == "" {
		errs = append(errs, errors.New("WEBHOOK_SECRET is required in production when WEBHOOKS_ENABLED is set"))
	}
	return errors.Join(errs...)
}

// Credentials returns the upstream credentials for constructing clients.
func (c ServerConfig) Credentials() Credentials {
	return c.Railsr
}

// getEnvString reads a string from an environment variable, returning the default if unset or blank.
func getEnvString(key, defaultVal string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvBool reads a boolean from an environment variable, returning the default if unset or invalid.
func getEnvBool(key string, defaultVal bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultVal
	}
}

// getEnvInt reads an integer from an environment variable, returning the default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvDuration reads a duration such as "10s" from an environment variable.
// Non-positive or unparsable values yield the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
