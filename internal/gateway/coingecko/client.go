package coingecko

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"financeshub/internal/envelope"
	"financeshub/internal/gateway/httpjson"
	"financeshub/internal/pkg/errkind"
)

const (
	Source         = "coingecko"
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	// DefaultAPIKeyHeader is the header used by the public demo plan.
	DefaultAPIKeyHeader = "x-cg-demo-api-key"
)

type Config struct {
	BaseURL      string
	APIKey       string
	APIKeyHeader string
	HTTPTimeout  time.Duration
	UserAgent    string
}

// Client wraps market-data endpoints into envelopes. Each call is a single GET; the whole
// response object becomes the payload.
type Client struct {
	baseURL string
	http    httpjson.Getter
}

func New(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	getter := httpjson.New(cfg.HTTPTimeout)
	if cfg.UserAgent != "" {
		getter.UserAgent = cfg.UserAgent
	}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		header := cfg.APIKeyHeader
		if header == "" {
			header = DefaultAPIKeyHeader
		}
		getter.Headers = map[string]string{header: key}
	}
	return &Client{baseURL: base, http: getter}
}

// MarketChart fetches /coins/<id>/market_chart. days defaults to "max", vs to "usd".
func (c *Client) MarketChart(ctx context.Context, coinID, days, vs, asset string) ([]envelope.Envelope, error) {
	coinID = strings.TrimSpace(coinID)
	if coinID == "" {
		return nil, errkind.Input("coin_id is required")
	}
	if days == "" {
		days = "max"
	}
	params := map[string]string{
		"vs_currency": orDefault(vs, "usd"),
		"days":        days,
	}
	return c.fetch(ctx, "/coins/"+url.PathEscape(coinID)+"/market_chart", coinID, params, asset)
}

// CurrentPrice fetches /simple/price for one coin.
func (c *Client) CurrentPrice(ctx context.Context, coinID, vs, asset string) ([]envelope.Envelope, error) {
	coinID = strings.TrimSpace(coinID)
	if coinID == "" {
		return nil, errkind.Input("coin_id is required")
	}
	params := map[string]string{
		"ids":           coinID,
		"vs_currencies": orDefault(vs, "usd"),
	}
	return c.fetch(ctx, "/simple/price", coinID, params, asset)
}

// DailyPrices fetches the last N days of bitcoin prices at daily granularity.
func (c *Client) DailyPrices(ctx context.Context, days int, vs, asset string) ([]envelope.Envelope, error) {
	if days <= 0 {
		return nil, errkind.Input("days must be positive, got %d", days)
	}
	params := map[string]string{
		"vs_currency": orDefault(vs, "usd"),
		"days":        strconv.Itoa(days),
		"interval":    "daily",
	}
	return c.fetch(ctx, "/coins/bitcoin/market_chart", "bitcoin", params, asset)
}

func (c *Client) fetch(ctx context.Context, path, coinID string, params map[string]string, asset string) ([]envelope.Envelope, error) {
	endpoint := c.baseURL + path
	q := make(url.Values, len(params))
	for k, v := range params {
		q.Set(k, v)
	}
	body, err := c.http.GetJSON(ctx, endpoint, q)
	if err != nil {
		return nil, err
	}
	payload, err := httpjson.DecodeObject(body)
	if err != nil {
		return nil, err
	}
	currency := params["vs_currency"]
	if currency == "" {
		currency = params["vs_currencies"]
	}
	params["coin_id"] = coinID
	return []envelope.Envelope{envelope.New(envelope.Fields{
		Source:        Source,
		Endpoint:      endpoint,
		RequestParams: params,
		Asset:         orDefault(asset, coinID),
		Currency:      currency,
		Payload:       payload,
	})}, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
