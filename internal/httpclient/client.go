// Package httpclient builds the outbound HTTP clients used to reach the
// upstream banking API, with optional HTTP(S) or SOCKS5 proxying.
package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MacJediWizard/railsdash/internal/config"
	"golang.org/x/net/proxy"
)

// DefaultTimeout matches the upstream request budget.
const DefaultTimeout = config.DefaultRailsrTimeout

// Options configures the HTTP client.
type Options struct {
	// Timeout is a hard ceiling for the whole exchange. Zero means DefaultTimeout.
	Timeout time.Duration
	Proxy   *config.ProxyConfig
}

// New creates an HTTP client with optional proxy support.
func New(opts Options) (*http.Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	transport, err := newTransport(opts.Proxy)
	if err != nil {
		return nil, err
	}

	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
	}, nil
}

func newTransport(pc *config.ProxyConfig) (*http.Transport, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	if !pc.HasProxy() {
		return transport, nil
	}

	if pc.SOCKS5Proxy != "" {
		dial, err := socks5Dialer(pc.SOCKS5Proxy)
		if err != nil {
			return nil, fmt.Errorf("configure proxy: %w", err)
		}
		transport.DialContext = dial
		return transport, nil
	}

	bypass := parseNoProxy(pc.NoProxy)
	httpsProxy, err := parseProxyURL(pc.HTTPSProxy)
	if err != nil {
		return nil, fmt.Errorf("configure proxy: %w", err)
	}
	httpProxy, err := parseProxyURL(pc.HTTPProxy)
	if err != nil {
		return nil, fmt.Errorf("configure proxy: %w", err)
	}

	transport.Proxy = func(req *http.Request) (*url.URL, error) {
		if bypass.match(req.URL.Host) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != nil {
			return httpsProxy, nil
		}
		return httpProxy, nil
	}
	return transport, nil
}

func parseProxyURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse proxy URL: %w", err)
	}
	return u, nil
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

func socks5Dialer(raw string) (dialFunc, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse SOCKS5 proxy URL: %w", err)
	}

	var auth *proxy.Auth
	if u.User != nil {
		password, _ := u.User.Password()
		auth = &proxy.Auth{User: u.User.Username(), Password: password}
	}

	dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("create SOCKS5 dialer: %w", err)
	}

	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}, nil
}

// noProxy is a pre-parsed NO_PROXY list.
type noProxy struct {
	all     bool
	exact   []string
	suffixs []string
}

func parseNoProxy(list string) noProxy {
	var np noProxy
	for _, pattern := range strings.Split(list, ",") {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		switch {
		case pattern == "":
		case pattern == "*":
			np.all = true
		case strings.HasPrefix(pattern, "."):
			np.suffixs = append(np.suffixs, pattern)
		default:
			// "example.com" covers the host itself and its subdomains
			np.exact = append(np.exact, pattern)
			np.suffixs = append(np.suffixs, "."+pattern)
		}
	}
	return np
}

func (np noProxy) match(host string) bool {
	if np.all {
		return true
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(host)
	for _, e := range np.exact {
		if host == e {
			return true
		}
	}
	for _, s := range np.suffixs {
		if strings.HasSuffix(host, s) {
			return true
		}
	}
	return false
}

// ProxyInfo returns a log-safe description of the configured proxy.
func ProxyInfo(cfg *config.ProxyConfig) string {
	if !cfg.HasProxy() {
		return "direct"
	}

	var parts []string
	if cfg.SOCKS5Proxy != "" {
		parts = append(parts, "socks5="+MaskURL(cfg.SOCKS5Proxy))
	}
	if cfg.HTTPProxy != "" {
		parts = append(parts, "http="+MaskURL(cfg.HTTPProxy))
	}
	if cfg.HTTPSProxy != "" {
		parts = append(parts, "https="+MaskURL(cfg.HTTPSProxy))
	}
	if cfg.NoProxy != "" {
		parts = append(parts, "no_proxy="+cfg.NoProxy)
	}
	return strings.Join(parts, " ")
}

// MaskURL hides the password component of a URL.
func MaskURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	if _, hasPass := u.User.Password(); hasPass {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
