// Package handlers contains the HTTP handlers of the railsdash API.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/MacJediWizard/railsdash/internal/railsr"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ErrorResponse is the body of every failed API call. Code is the upstream
// error kind, empty for errors raised by the API itself.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Code      railsr.ErrorKind  `json:"code,omitempty"`
	Retryable bool              `json:"retryable"`
	Upstream  *railsr.ErrorBody `json:"upstream,omitempty"`
}

// upstreamStatus maps a client error to the HTTP status returned to the
// dashboard.
func upstreamStatus(e *railsr.Error) int {
	switch e.Kind {
	case railsr.KindConfiguration:
		return http.StatusServiceUnavailable
	case railsr.KindTimeout:
		return http.StatusGatewayTimeout
	case railsr.KindUpstream:
		if e.Status >= 400 && e.Status < 500 {
			return e.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

// respondError writes err as an ErrorResponse. Errors from the railsr
// client keep their kind; anything else is an internal error.
func respondError(c *gin.Context, logger zerolog.Logger, err error) {
	var re *railsr.Error
	if !errors.As(err, &re) {
		if errors.Is(err, railsr.ErrInvalidPath) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid resource id"})
			return
		}
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	status := upstreamStatus(re)
	resp := ErrorResponse{
		Error:     re.Error(),
		Code:      re.Kind,
		Retryable: re.Retryable(),
		Upstream:  re.Body,
	}
	if re.Body != nil && re.Body.Message != "" {
		resp.Error = re.Body.Message
	}

	event := logger.Warn()
	if status >= 500 {
		event = logger.Error()
	}
	event.Err(err).
		Str("kind", string(re.Kind)).
		Int("upstream_status", re.Status).
		Int("status", status).
		Msg("upstream call failed")

	c.JSON(status, resp)
}

// respondFound writes item, or a 404 when upstream answered with an empty
// body for a single resource.
func respondFound[T any](c *gin.Context, item *T, what string) {
	if item == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: what + " not found"})
		return
	}
	c.JSON(http.StatusOK, item)
}

// badRequest writes a 400 with msg.
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// pageRequest reads the page and per_page query parameters.
func pageRequest(c *gin.Context) (railsr.PageRequest, bool) {
	var pr railsr.PageRequest
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"page", &pr.Page},
		{"per_page", &pr.PerPage},
	} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(c, "invalid "+p.name)
			return pr, false
		}
		*p.dst = n
	}
	return pr, true
}

// bindJSON decodes the request body into dst, writing a 400 or 413 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
			return false
		}
		badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}
