package binance

import (
	"context"
	"strconv"
	"strings"
	"time"

	"financeshub/internal/envelope"
	"financeshub/internal/gateway/httpjson"
	"financeshub/internal/logger"
	"financeshub/internal/pkg/errkind"

	"github.com/tidwall/gjson"
)

const dateLayout = "2006-01-02"

// KlineRequest selects a daily kline window. EndDate defaults to today (UTC), QuoteCurrency
// to "usdt" and Asset to Symbol.
type KlineRequest struct {
	Symbol        string
	StartDate     string
	EndDate       string
	QuoteCurrency string
	Asset         string
}

// Klines pages through /api/v3/klines for [StartDate 00:00Z, EndDate 23:59:59Z] and returns
// one envelope per non-empty page. Pages are requested until the exchange returns an empty
// array or the window is exhausted.
func (c *Client) Klines(ctx context.Context, req KlineRequest) ([]envelope.Envelope, error) {
	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		return nil, errkind.Input("symbol is required")
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	end := c.now().UTC().Truncate(24 * time.Hour)
	endDate := end.Format(dateLayout)
	if strings.TrimSpace(req.EndDate) != "" {
		if end, err = parseDate(req.EndDate); err != nil {
			return nil, err
		}
		endDate = req.EndDate
	}
	if start.After(end) {
		return nil, errkind.Input("start_date %s must be <= end_date %s", req.StartDate, endDate)
	}
	quote := req.QuoteCurrency
	if quote == "" {
		quote = "usdt"
	}
	asset := req.Asset
	if asset == "" {
		asset = symbol
	}

	endpoint := c.cfg.RESTBaseURL + klinesPath
	startMs := start.UnixMilli()
	endMs := end.UnixMilli() + dayTailMs
	log := logger.With("source", Source, "symbol", symbol)

	var out []envelope.Envelope
	for startMs <= endMs {
		params := map[string]string{
			"symbol":    symbol,
			"interval":  dailyInterval,
			"startTime": strconv.FormatInt(startMs, 10),
			"endTime":   strconv.FormatInt(endMs, 10),
			"limit":     strconv.Itoa(pageLimit),
		}
		body, err := c.http.GetJSON(ctx, endpoint, toValues(params))
		if err != nil {
			return nil, err
		}
		doc := gjson.ParseBytes(body)
		if !doc.IsArray() {
			return nil, errkind.Shape("binance klines for %s: expected a JSON array", symbol)
		}
		items := doc.Array()
		if len(items) == 0 {
			break
		}

		params["start_date"] = req.StartDate
		params["end_date"] = endDate
		params["quote_currency"] = quote
		out = append(out, envelope.New(envelope.Fields{
			Source:        Source,
			Endpoint:      endpoint,
			RequestParams: params,
			Asset:         asset,
			Currency:      quote,
			Payload: map[string]any{
				"symbol":   symbol,
				"interval": dailyInterval,
				"rows":     klineRows(items),
			},
		}))

		next := items[len(items)-1].Get("0").Int() + 1
		if next <= startMs {
			log.Warn("kline page did not advance the window, stopping", "start_ms", startMs)
			break
		}
		startMs = next
	}
	log.Debug("klines fetched", "pages", len(out))
	return out, nil
}

// klineRows keeps open time, close time and close price of every well-formed kline; rows
// with fewer than 7 fields are dropped.
func klineRows(items []gjson.Result) []any {
	rows := make([]any, 0, len(items))
	for _, item := range items {
		if !item.IsArray() {
			continue
		}
		fields := item.Array()
		if len(fields) < 7 {
			continue
		}
		rows = append(rows, map[string]any{
			"open_time":  httpjson.Value(fields[0]),
			"close_time": httpjson.Value(fields[6]),
			"close":      httpjson.Value(fields[4]),
		})
	}
	return rows
}

func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errkind.Input("date is required")
	}
	t, err := time.ParseInLocation(dateLayout, v, time.UTC)
	if err != nil {
		return time.Time{}, errkind.Input("invalid date %q: %v", v, err)
	}
	return t, nil
}
