package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MacJediWizard/railsdash/internal/auth"
	"github.com/MacJediWizard/railsdash/internal/config"
	"github.com/MacJediWizard/railsdash/internal/dashboard"
	"github.com/MacJediWizard/railsdash/internal/events"
	"github.com/MacJediWizard/railsdash/internal/health"
	"github.com/MacJediWizard/railsdash/internal/railsr"
	"github.com/MacJediWizard/railsdash/internal/webhooks"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticStats struct{}

func (staticStats) Stats(context.Context) dashboard.StatsResult {
	return dashboard.StatsResult{Success: true, IsMockData: true, Data: dashboard.MockStats()}
}

type staticHealth struct{}

func (staticHealth) Check(context.Context) *health.Report {
	return &health.Report{Status: health.StatusHealthy}
}

func testDeps(t *testing.T, passwordHash string) Deps {
	t.Helper()
	creds := config.Credentials{}
	client, err := railsr.NewClient(railsr.ClientConfig{Credentials: creds}, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	admin, err := auth.NewAdmin("admin", passwordHash)
	if err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}
	sessions, err := auth.NewSessionStore(auth.DefaultSessionConfig([]byte(strings.Repeat("k", 32)), false), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create session store: %v", err)
	}
	return Deps{
		Credentials: creds,
		Clients:     railsr.NewClients(client, zerolog.Nop()),
		Stats:       staticStats{},
		Receiver:    webhooks.NewReceiver(webhooks.ReceiverConfig{Enabled: true}, events.NewLogPublisher(zerolog.Nop()), zerolog.Nop()),
		Health:      staticHealth{},
		Sessions:    sessions,
		Admin:       admin,
		Gatherer:    prometheus.NewRegistry(),
	}
}

func serve(r *Router, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)
	return w
}

func TestNewRouter_Validation(t *testing.T) {
	t.Run("missing deps", func(t *testing.T) {
		deps := testDeps(t, "")
		deps.Receiver = nil
		if _, err := NewRouter(DefaultConfig(), deps, zerolog.Nop()); err == nil {
			t.Error("expected error for missing receiver")
		}
	})

	t.Run("missing sessions", func(t *testing.T) {
		deps := testDeps(t, "")
		deps.Sessions = nil
		if _, err := NewRouter(DefaultConfig(), deps, zerolog.Nop()); err == nil {
			t.Error("expected error for missing sessions")
		}
	})

	t.Run("production needs origins", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Environment = config.EnvProduction
		if _, err := NewRouter(cfg, testDeps(t, ""), zerolog.Nop()); err == nil {
			t.Error("expected error for production without CORS origins")
		}

		cfg.AllowedOrigins = []string{"https://dash.example.com"}
		if _, err := NewRouter(cfg, testDeps(t, ""), zerolog.Nop()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("invalid rate limit", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RateLimitPeriod = "forever"
		if _, err := NewRouter(cfg, testDeps(t, ""), zerolog.Nop()); err == nil {
			t.Error("expected error for invalid rate limit period")
		}
	})
}

func TestNewRouter_OpenWithoutPassword(t *testing.T) {
	r, err := NewRouter(DefaultConfig(), testDeps(t, ""), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create router: %v", err)
	}

	tests := []struct {
		method       string
		path         string
		body         string
		expectedCode int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/health/live", "", http.StatusOK},
		{http.MethodGet, "/version", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/api/dashboard/stats", "", http.StatusOK},
		{http.MethodPost, "/api/webhooks", `{"id":"evt_1","type":"customer.created"}`, http.StatusOK},
		// unconfigured credentials
		{http.MethodGet, "/api/settings/check-connection", "", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/customers", "", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/v1/nothing", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(r, tt.method, tt.path, tt.body)
			if w.Code != tt.expectedCode {
				t.Errorf("expected %d, got %d: %s", tt.expectedCode, w.Code, w.Body.String())
			}
		})
	}
}

func TestNewRouter_RequiresLogin(t *testing.T) {
	hash, err := auth.HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	r, err := NewRouter(DefaultConfig(), testDeps(t, hash), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create router: %v", err)
	}

	for _, path := range []string{"/api/dashboard/stats", "/api/v1/customers", "/api/railsr/test"} {
		if w := serve(r, http.MethodGet, path, ""); w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, w.Code)
		}
	}

	// Public routes stay reachable.
	if w := serve(r, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Errorf("expected health 200, got %d", w.Code)
	}
	if w := serve(r, http.MethodPost, "/api/webhooks", `{"type":"card.blocked"}`); w.Code != http.StatusOK {
		t.Errorf("expected webhook 200, got %d", w.Code)
	}

	login := serve(r, http.MethodPost, "/auth/login", `{"username":"admin","password":"s3cret-pass"}`)
	if login.Code != http.StatusOK {
		t.Fatalf("expected login 200, got %d", login.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil)
	for _, c := range login.Result().Cookies() {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 after login, got %d", w.Code)
	}
}
