package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MacJediWizard/railsdash/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(t *testing.T, hash string) *gin.Engine {
	t.Helper()
	admin, err := auth.NewAdmin("admin", hash)
	require.NoError(t, err)
	sessions, err := auth.NewSessionStore(auth.DefaultSessionConfig([]byte(strings.Repeat("s", 32)), false), zerolog.Nop())
	require.NoError(t, err)

	r := gin.New()
	NewAuthHandler(admin, sessions, zerolog.Nop()).RegisterRoutes(r.Group("/auth"))
	return r
}

func withCookies(req *http.Request, w *httptest.ResponseRecorder) *http.Request {
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestAuthHandler_LoginFlow(t *testing.T) {
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	r := newAuthRouter(t, hash)

	w := doRequest(r, http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(r, http.MethodPost, "/auth/login", `{"username":"admin","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(r, http.MethodPost, "/auth/login", `{"username":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	login := doRequest(r, http.MethodPost, "/auth/login", `{"username":"admin","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, login.Code)
	require.NotEmpty(t, login.Result().Cookies())

	req := withCookies(httptest.NewRequest(http.MethodGet, "/auth/me", nil), login)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var me MeResponse
	decodeBody(t, w, &me)
	assert.True(t, me.Authenticated)
	require.NotNil(t, me.User)
	assert.Equal(t, "admin", me.User.Username)

	req = withCookies(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), login)
	logout := httptest.NewRecorder()
	r.ServeHTTP(logout, req)
	require.Equal(t, http.StatusOK, logout.Code)

	req = withCookies(httptest.NewRequest(http.MethodGet, "/auth/me", nil), logout)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Disabled(t *testing.T) {
	r := newAuthRouter(t, "")

	w := doRequest(r, http.MethodPost, "/auth/login", `{"username":"admin","password":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(r, http.MethodGet, "/auth/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	var me MeResponse
	decodeBody(t, w, &me)
	assert.True(t, me.AuthDisabled)
	assert.Nil(t, me.User)
}
