package binance

import (
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.binance.com"

type Config struct {
	RESTBaseURL string
	HTTPTimeout time.Duration
	UserAgent   string

	ProxyEnabled bool
	RESTProxyURL string
}

func (c *Config) withDefaults() Config {
	out := *c
	out.RESTBaseURL = strings.TrimRight(strings.TrimSpace(out.RESTBaseURL), "/")
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = DefaultBaseURL
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 30 * time.Second
	}
	out.RESTProxyURL = strings.TrimSpace(out.RESTProxyURL)
	return out
}
