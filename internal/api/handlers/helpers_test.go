package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/MacJediWizard/railsdash/internal/config"
	"github.com/MacJediWizard/railsdash/internal/railsr"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type upstreamRoute struct {
	status int
	body   string
}

type upstreamCall struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

// fakeUpstream serves canned responses keyed by "METHOD /path" and records
// every call.
type fakeUpstream struct {
	srv    *httptest.Server
	routes map[string]upstreamRoute

	mu    sync.Mutex
	calls []upstreamCall
}

func newFakeUpstream(t *testing.T, routes map[string]upstreamRoute) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{routes: routes}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeUpstream) serve(w http.ResponseWriter, r *http.Request) {
	call := upstreamCall{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		json.Unmarshal(data, &call.Body)
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	route, ok := f.routes[r.Method+" "+r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"not_found","message":"resource not found"}}`))
		return
	}
	if route.status != 0 {
		w.WriteHeader(route.status)
	}
	w.Write([]byte(route.body))
}

func (f *fakeUpstream) credentials() config.Credentials {
	return config.Credentials{APIKey: "test-key", ProgramID: "prog_1", BaseURL: f.srv.URL}
}

// clients returns resource clients pointed at the fake upstream.
func (f *fakeUpstream) clients(t *testing.T) *railsr.Clients {
	t.Helper()
	return newClients(t, f.credentials())
}

func (f *fakeUpstream) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeUpstream) lastCall() upstreamCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return upstreamCall{}
	}
	return f.calls[len(f.calls)-1]
}

func newClients(t *testing.T, creds config.Credentials) *railsr.Clients {
	t.Helper()
	client, err := railsr.NewClient(railsr.ClientConfig{Credentials: creds}, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return railsr.NewClients(client, zerolog.Nop())
}

// newGroupRouter mounts register under /api/v1.
func newGroupRouter(register func(*gin.RouterGroup)) *gin.Engine {
	r := gin.New()
	register(r.Group("/api/v1"))
	return r
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", w.Body.String(), err)
	}
}
