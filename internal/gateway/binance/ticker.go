package binance

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"financeshub/internal/envelope"
	"financeshub/internal/pkg/errkind"
)

const tickerPath = "/api/v3/ticker/price"

// TickerPrice reads the latest spot price for symbol through the SDK and wraps it as a single
// envelope.
func (c *Client) TickerPrice(ctx context.Context, symbol, quote, asset string) ([]envelope.Envelope, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, errkind.Input("symbol is required")
	}
	if quote == "" {
		quote = "usdt"
	}
	if asset == "" {
		asset = symbol
	}
	prices, err := c.sdk.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance ticker price %s: %w", symbol, err)
	}
	for _, p := range prices {
		if p == nil || !strings.EqualFold(p.Symbol, symbol) {
			continue
		}
		return []envelope.Envelope{envelope.New(envelope.Fields{
			Source:   Source,
			Endpoint: c.cfg.RESTBaseURL + tickerPath,
			RequestParams: map[string]string{
				"symbol":         symbol,
				"quote_currency": quote,
			},
			Asset:    asset,
			Currency: quote,
			Payload: map[string]any{
				"symbol": p.Symbol,
				"price":  p.Price,
			},
		})}, nil
	}
	return nil, errkind.Shape("binance ticker price: %s missing from response", symbol)
}

func toValues(params map[string]string) url.Values {
	q := make(url.Values, len(params))
	for k, v := range params {
		q.Set(k, v)
	}
	return q
}
