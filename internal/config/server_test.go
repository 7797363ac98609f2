package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoadServerConfig_DefaultEnvironment(t *testing.T) {
	os.Unsetenv("ENV")
	cfg := LoadServerConfig()
	if cfg.Environment != EnvDevelopment {
		t.Errorf("expected %q, got %q", EnvDevelopment, cfg.Environment)
	}
}

func TestLoadServerConfig_InvalidEnvironment(t *testing.T) {
	t.Setenv("ENV", "invalid")
	cfg := LoadServerConfig()
	if cfg.Environment != EnvDevelopment {
		t.Errorf("expected %q for invalid ENV, got %q", EnvDevelopment, cfg.Environment)
	}
}

func TestLoadServerConfig_ValidEnvironments(t *testing.T) {
	tests := []struct {
		env  string
		want Environment
	}{
		{"development", EnvDevelopment},
		{"staging", EnvStaging},
		{"production", EnvProduction},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("ENV", tt.env)
			cfg := LoadServerConfig()
			if cfg.Environment != tt.want {
				t.Errorf("expected %q, got %q", tt.want, cfg.Environment)
			}
		})
	}
}

func TestLoadServerConfig_RailsrDefaults(t *testing.T) {
	t.Setenv("RAILSR_API_KEY", "")
	t.Setenv("RAILSR_PROGRAM_ID", "")
	t.Setenv("RAILSR_API_URL", "")
	t.Setenv("RAILSR_TIMEOUT", "")

	cfg := LoadServerConfig()
	if cfg.Railsr.BaseURL != DefaultRailsrURL {
		t.Errorf("BaseURL = %q, want %q", cfg.Railsr.BaseURL, DefaultRailsrURL)
	}
	if cfg.Railsr.Timeout != DefaultRailsrTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Railsr.Timeout, DefaultRailsrTimeout)
	}
	if cfg.Credentials().Complete() {
		t.Error("expected incomplete credentials")
	}
	if cfg.WebhooksEnabled {
		t.Error("webhooks must be disabled by default")
	}
}

func TestLoadServerConfig_RailsrFromEnv(t *testing.T) {
	t.Setenv("RAILSR_API_KEY", " key ")
	t.Setenv("RAILSR_PROGRAM_ID", "prog")
	t.Setenv("RAILSR_API_URL", "https://play.railsbank.com/v3")
	t.Setenv("RAILSR_TIMEOUT", "2s")
	t.Setenv("RAILSR_DEBUG", "yes")

	cfg := LoadServerConfig()
	if cfg.Railsr.APIKey != "key" {
		t.Errorf("APIKey = %q, want trimmed key", cfg.Railsr.APIKey)
	}
	if cfg.Railsr.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", cfg.Railsr.Timeout)
	}
	if !cfg.Railsr.Debug {
		t.Error("expected debug enabled")
	}
	if !cfg.Credentials().Complete() {
		t.Error("expected complete credentials")
	}
}

func TestLoadServerConfig_MockDataFlag(t *testing.T) {
	tests := []struct {
		name   string
		mock   string
		legacy string
		want   bool
	}{
		{"unset", "", "", false},
		{"primary flag", "true", "", true},
		{"legacy flag", "", "true", true},
		{"primary overrides legacy", "false", "true", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("USE_MOCK_DATA", tt.mock)
			t.Setenv("NEXT_PUBLIC_USE_MOCK_DATA", tt.legacy)
			cfg := LoadServerConfig()
			if cfg.UseMockData != tt.want {
				t.Errorf("UseMockData = %v, want %v", cfg.UseMockData, tt.want)
			}
		})
	}
}

func TestLoadServerConfig_StatsSchedule(t *testing.T) {
	os.Unsetenv("STATS_REFRESH_SCHEDULE")
	if got := LoadServerConfig().StatsRefreshSchedule; got != DefaultStatsSchedule {
		t.Errorf("expected default schedule, got %q", got)
	}

	t.Setenv("STATS_REFRESH_SCHEDULE", "")
	if got := LoadServerConfig().StatsRefreshSchedule; got != "" {
		t.Errorf("expected disabled schedule, got %q", got)
	}
}

func TestLoadServerConfig_CORSOrigins(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://a.example.com, ,https://b.example.com")
	cfg := LoadServerConfig()
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.AllowedOrigins)
	}
}

func TestServerConfig_Validate(t *testing.T) {
	prod := ServerConfig{
		Environment:       EnvProduction,
		AdminPasswordHash: "$2a$10$hash",
		SessionSecret:     "secret",
	}

	tests := []struct {
		name    string
		mutate  func(c *ServerConfig)
		wantErr string
	}{
		{"complete production", func(c *ServerConfig) {}, ""},
		{"production webhooks signed", func(c *ServerConfig) {
			c.WebhooksEnabled = true
			c.WebhookSecret = "whsec"
		}, ""},
		{"missing password hash", func(c *ServerConfig) { c.AdminPasswordHash = "" }, "ADMIN_PASSWORD_HASH"},
		{"missing session secret", func(c *ServerConfig) { c.SessionSecret = "" }, "SESSION_SECRET"},
		{"unsigned webhooks", func(c *ServerConfig) { c.WebhooksEnabled = true }, "WEBHOOK_SECRET"},
		{"development allows everything", func(c *ServerConfig) {
			*c = ServerConfig{Environment: EnvDevelopment, WebhooksEnabled: true}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := prod
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
