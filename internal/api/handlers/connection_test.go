package handlers

import (
	"net/http"
	"testing"

	"github.com/MacJediWizard/railsdash/internal/config"
	"github.com/MacJediWizard/railsdash/internal/railsr"
	"github.com/rs/zerolog"
)

func TestConnectionHandler_CheckConnection(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		creds := config.Credentials{ProgramID: "prog_1"}
		h := NewConnectionHandler(creds, newClients(t, creds), zerolog.Nop())
		r := newGroupRouter(h.RegisterRoutes)

		w := doRequest(r, http.MethodGet, "/api/v1/settings/check-connection", "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		var resp ConnectionResponse
		decodeBody(t, w, &resp)
		if resp.Success || resp.Error != "API key is missing. Check the server environment." {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("missing program id", func(t *testing.T) {
		creds := config.Credentials{APIKey: "k"}
		h := NewConnectionHandler(creds, newClients(t, creds), zerolog.Nop())
		r := newGroupRouter(h.RegisterRoutes)

		w := doRequest(r, http.MethodGet, "/api/v1/settings/check-connection", "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		up := newFakeUpstream(t, map[string]upstreamRoute{
			"GET /program": {body: `{"data":{"id":"prog_1","name":"Demo Program","status":"active"}}`},
		})
		h := NewConnectionHandler(up.credentials(), up.clients(t), zerolog.Nop())
		r := newGroupRouter(h.RegisterRoutes)

		w := doRequest(r, http.MethodGet, "/api/v1/settings/check-connection", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var resp ConnectionResponse
		decodeBody(t, w, &resp)
		if !resp.Success || resp.Data == nil || resp.Data.Name != "Demo Program" {
			t.Errorf("unexpected response %+v", resp)
		}
		if resp.Config == nil || !resp.Config.APIKeyExists || resp.Config.APIURL != up.srv.URL {
			t.Errorf("unexpected config %+v", resp.Config)
		}
	})

	t.Run("upstream failure reports config", func(t *testing.T) {
		up := newFakeUpstream(t, map[string]upstreamRoute{
			"GET /program": {status: 401, body: `{"error":"invalid api key"}`},
		})
		h := NewConnectionHandler(up.credentials(), up.clients(t), zerolog.Nop())
		r := newGroupRouter(h.RegisterRoutes)

		w := doRequest(r, http.MethodGet, "/api/v1/settings/check-connection", "")
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
		var resp ConnectionResponse
		decodeBody(t, w, &resp)
		if resp.Success || resp.Code != railsr.KindUpstream || resp.Retryable {
			t.Errorf("unexpected response %+v", resp)
		}
		if resp.Config == nil || !resp.Config.ProgramIDExists {
			t.Errorf("expected config in failure response, got %+v", resp.Config)
		}
	})
}

func TestConnectionHandler_TestEndpoint(t *testing.T) {
	up := newFakeUpstream(t, map[string]upstreamRoute{
		"GET /program":                 {body: `{"data":{"id":"prog_1"}}`},
		"GET /webhooks":                {body: `{"data":[{"id":"wh_1","url":"https://example.com","event_types":["customer.created"],"active":true}]}`},
		"GET /customers/c1/accounts":   {body: `{"data":[]}`},
		"GET /accounts/a1/transactions": {status: 500, body: `{"message":"boom"}`},
	})
	h := NewConnectionHandler(up.credentials(), up.clients(t), zerolog.Nop())
	r := newGroupRouter(h.RegisterRoutes)

	tests := []struct {
		name          string
		query         string
		expectedCode  int
		expectedError string
	}{
		{"default is program", "", http.StatusOK, ""},
		{"webhooks", "?endpoint=webhooks", http.StatusOK, ""},
		{"accounts with customer", "?endpoint=accounts&customerId=c1", http.StatusOK, ""},
		{"accounts without customer", "?endpoint=accounts", http.StatusBadRequest, "Customer ID is required for accounts endpoint"},
		{"cards without customer", "?endpoint=cards", http.StatusBadRequest, "Customer ID is required for cards endpoint"},
		{"transactions without account", "?endpoint=transactions", http.StatusBadRequest, "Account ID is required for transactions endpoint"},
		{"transactions upstream failure", "?endpoint=transactions&accountId=a1", http.StatusBadGateway, "boom"},
		{"unknown endpoint", "?endpoint=ledgers", http.StatusBadRequest, "Invalid endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodGet, "/api/v1/railsr/test-endpoints"+tt.query, "")
			if w.Code != tt.expectedCode {
				t.Fatalf("expected %d, got %d: %s", tt.expectedCode, w.Code, w.Body.String())
			}
			if tt.expectedError != "" {
				var resp ErrorResponse
				decodeBody(t, w, &resp)
				if resp.Error != tt.expectedError {
					t.Errorf("expected error %q, got %q", tt.expectedError, resp.Error)
				}
				return
			}
			var resp ProbeResponse
			decodeBody(t, w, &resp)
			if !resp.Success || resp.Data == nil {
				t.Errorf("unexpected response %+v", resp)
			}
		})
	}
}

func TestConnectionHandler_RequiresCredentials(t *testing.T) {
	creds := config.Credentials{}
	h := NewConnectionHandler(creds, newClients(t, creds), zerolog.Nop())
	r := newGroupRouter(h.RegisterRoutes)

	for _, path := range []string{"/api/v1/railsr/test", "/api/v1/railsr/test-endpoints?endpoint=customers"} {
		w := doRequest(r, http.MethodGet, path, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
			continue
		}
		var resp ErrorResponse
		decodeBody(t, w, &resp)
		if resp.Error != "Missing API key or program ID" {
			t.Errorf("%s: unexpected error %q", path, resp.Error)
		}
	}
}
