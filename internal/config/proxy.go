package config

import "os"

// ProxyConfig holds outbound proxy settings for upstream API calls.
type ProxyConfig struct {
	HTTPProxy   string `yaml:"http_proxy,omitempty"`
	HTTPSProxy  string `yaml:"https_proxy,omitempty"`
	NoProxy     string `yaml:"no_proxy,omitempty"`
	SOCKS5Proxy string `yaml:"socks5_proxy,omitempty"`
}

// HasProxy returns true if any proxy is configured.
func (p *ProxyConfig) HasProxy() bool {
	if p == nil {
		return false
	}
	return p.HTTPProxy != "" || p.HTTPSProxy != "" || p.SOCKS5Proxy != ""
}

// LoadProxyConfig reads proxy settings from the conventional environment variables.
// Upper-case names take precedence over lower-case ones.
func LoadProxyConfig() ProxyConfig {
	return ProxyConfig{
		HTTPProxy:   firstEnv("HTTP_PROXY", "http_proxy"),
		HTTPSProxy:  firstEnv("HTTPS_PROXY", "https_proxy"),
		NoProxy:     firstEnv("NO_PROXY", "no_proxy"),
		SOCKS5Proxy: firstEnv("SOCKS5_PROXY", "socks5_proxy"),
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
