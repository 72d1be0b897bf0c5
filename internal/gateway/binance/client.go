package binance

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"financeshub/internal/gateway/httpjson"

	sdk "github.com/adshao/go-binance/v2"
)

const (
	Source = "binance"

	klinesPath    = "/api/v3/klines"
	dailyInterval = "1d"
	pageLimit     = 1000
	// last millisecond of a UTC day
	dayTailMs = 86_399_000
)

// Client fetches spot market data from the exchange REST API and wraps it into envelopes.
type Client struct {
	cfg  Config
	http httpjson.Getter
	sdk  *sdk.Client
	now  func() time.Time
}

func New(cfg Config) (*Client, error) {
	final := cfg.withDefaults()
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyEnabled && final.RESTProxyURL != "" {
		proxyURL, err := url.Parse(final.RESTProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}

	getter := httpjson.New(final.HTTPTimeout)
	getter.HTTP = httpClient
	if final.UserAgent != "" {
		getter.UserAgent = final.UserAgent
	}

	api := sdk.NewClient("", "")
	api.BaseURL = final.RESTBaseURL
	api.HTTPClient = httpClient

	return &Client{
		cfg:  final,
		http: getter,
		sdk:  api,
		now:  time.Now,
	}, nil
}

func (c *Client) BaseURL() string { return c.cfg.RESTBaseURL }
