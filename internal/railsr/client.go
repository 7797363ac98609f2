// Package railsr is a client for the Railsr banking-as-a-service REST API.
//
// A single Client executes every request and is the only place where
// failures are classified. Resource clients (Customers, Accounts, Cards,
// Transactions, Webhooks, Program) hold a Requester and translate domain
// operations into paths, methods and snake_case bodies.
package railsr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MacJediWizard/railsdash/internal/config"
	"github.com/MacJediWizard/railsdash/internal/httpclient"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 10 << 20

var emptyList = json.RawMessage(`{"data":[]}`)

// Requester executes a request against the upstream API and returns the
// raw JSON body of a successful response.
type Requester interface {
	Do(ctx context.Context, req *Request) (json.RawMessage, error)
}

// Request describes a single upstream call.
type Request struct {
	Method string // defaults to GET
	Path   string // relative to the base URL, must start with "/"
	Query  url.Values
	Body   any // encoded as JSON when non-nil
	Header http.Header
}

// Observer is notified after every call. Outcome is "success" or the
// ErrorKind of the failure.
type Observer interface {
	ObserveRequest(resource, outcome string, duration time.Duration)
}

// ClientConfig holds configuration for creating a new Client.
type ClientConfig struct {
	Credentials config.Credentials
	Proxy       *config.ProxyConfig
	Observer    Observer

	// HTTPClient overrides the proxy-aware client built from Proxy.
	HTTPClient *http.Client
}

// Client is the base client shared by all resource clients.
type Client struct {
	apiKey    string
	programID string
	baseURL   string
	timeout   time.Duration
	debug     bool

	httpClient *http.Client
	observer   Observer
	logger     zerolog.Logger
}

// NewClient creates a new base client. Missing credentials are not an error
// here; every call made with them fails with ErrConfiguration before any
// network I/O.
func NewClient(cfg ClientConfig, logger zerolog.Logger) (*Client, error) {
	creds := cfg.Credentials

	baseURL := strings.TrimSpace(creds.BaseURL)
	if baseURL == "" {
		baseURL = config.DefaultRailsrURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("railsr client: invalid base URL %q", creds.BaseURL)
	}

	timeout := creds.Timeout
	if timeout <= 0 {
		timeout = config.DefaultRailsrTimeout
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc, err = httpclient.New(httpclient.Options{Timeout: timeout, Proxy: cfg.Proxy})
		if err != nil {
			return nil, fmt.Errorf("railsr client: create http client: %w", err)
		}
	}

	return &Client{
		apiKey:     strings.TrimSpace(creds.APIKey),
		programID:  strings.TrimSpace(creds.ProgramID),
		baseURL:    strings.TrimRight(parsed.String(), "/"),
		timeout:    timeout,
		debug:      creds.Debug,
		httpClient: hc,
		observer:   cfg.Observer,
		logger:     logger.With().Str("component", "railsr_client").Logger(),
	}, nil
}

// Configured reports whether both the API key and the program id are set.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.programID != ""
}

// BaseURL returns the upstream base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do executes req. The returned body is valid JSON; an empty 2xx body is
// returned as {"data":[]}.
func (c *Client) Do(ctx context.Context, req *Request) (json.RawMessage, error) {
	start := time.Now()
	body, err := c.do(ctx, req)
	if c.observer != nil {
		outcome := "success"
		if err != nil {
			outcome = string(KindOf(err))
			if outcome == "" {
				outcome = "invalid_request"
			}
		}
		c.observer.ObserveRequest(resourceOf(req.Path), outcome, time.Since(start))
	}
	return body, err
}

func (c *Client) do(ctx context.Context, req *Request) (json.RawMessage, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	if !c.Configured() {
		return nil, &Error{Kind: KindConfiguration, Method: method, Path: req.Path}
	}
	if err := checkPath(req.Path); err != nil {
		return nil, err
	}

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var payload io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("railsr: encode request body: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return nil, fmt.Errorf("railsr: build request: %w", err)
	}
	c.applyHeaders(httpReq, req.Header)

	if c.debug {
		c.logger.Info().
			Str("method", method).
			Str("url", target).
			Interface("headers", maskHeaders(httpReq.Header)).
			Msg("railsr request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: transportKind(err), Method: method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &Error{Kind: transportKind(err), Method: method, Path: req.Path, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := parseErrorBody(raw)
		if c.debug {
			c.logger.Warn().
				Str("method", method).
				Str("path", req.Path).
				Int("status", resp.StatusCode).
				Str("body", string(raw)).
				Msg("railsr request failed")
		}
		return nil, &Error{Kind: KindUpstream, Method: method, Path: req.Path, Status: resp.StatusCode, Body: body, Raw: raw}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return emptyList, nil
	}
	if !json.Valid(trimmed) {
		c.logger.Error().
			Str("method", method).
			Str("path", req.Path).
			Int("status", resp.StatusCode).
			Str("body", string(raw)).
			Msg("railsr returned a non-JSON body")
		return nil, &Error{Kind: KindMalformed, Method: method, Path: req.Path, Status: resp.StatusCode, Raw: raw}
	}

	return json.RawMessage(trimmed), nil
}

type requestIDKey struct{}

// WithRequestID returns a context whose upstream requests carry id as their
// X-Request-ID, so a dashboard request can be traced to the upstream calls it
// caused.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the id stored by WithRequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// applyHeaders sets the mandatory headers, then merges the caller's headers
// on top. Caller values win on collision.
func (c *Client) applyHeaders(r *http.Request, extra http.Header) {
	r.Header.Set("Authorization", "Bearer "+c.apiKey)
	r.Header.Set("Program-ID", c.programID)
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	if id := RequestIDFrom(r.Context()); id != "" {
		r.Header.Set("X-Request-ID", id)
	} else {
		r.Header.Set("X-Request-ID", uuid.NewString())
	}

	for key, values := range extra {
		key = http.CanonicalHeaderKey(key)
		if key == "Authorization" || key == "Program-Id" {
			c.logger.Warn().Str("header", key).Msg("caller overrides an authentication header")
		}
		r.Header.Del(key)
		for _, v := range values {
			r.Header.Add(key, v)
		}
	}
}

// transportKind separates deadline expiry from other transport failures.
// A cancelled parent context counts as a network failure.
func transportKind(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}

func maskHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		v := h.Get(k)
		if k == "Authorization" {
			v = maskSecret(v)
		}
		out[k] = v
	}
	return out
}

func maskSecret(v string) string {
	scheme, token, ok := strings.Cut(v, " ")
	if !ok {
		token, scheme = v, ""
	}
	masked := "****"
	if len(token) > 8 {
		masked = token[:4] + "****"
	}
	if scheme == "" {
		return masked
	}
	return scheme + " " + masked
}

// resourceOf reduces a path to its first segment so metric labels stay
// bounded: "/customers/c1/accounts" -> "customers".
func resourceOf(path string) string {
	seg := strings.TrimPrefix(path, "/")
	if i := strings.IndexAny(seg, "/?"); i >= 0 {
		seg = seg[:i]
	}
	if seg == "" {
		return "root"
	}
	return seg
}
