package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"financeshub/internal/envelope"
	"financeshub/internal/gateway/httpjson"
	"financeshub/internal/pkg/errkind"

	"github.com/tidwall/gjson"
)

const (
	Source         = "yfinance"
	DefaultBaseURL = "https://query1.finance.yahoo.com"
	// Yahoo rejects requests without a browser-like agent.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) financeshub/1.0"

	dateLayout = "2006-01-02"
)

type Config struct {
	BaseURL     string
	HTTPTimeout time.Duration
	UserAgent   string
}

// Index is a benchmark ticker with the currency it is quoted in.
type Index struct {
	Symbol   string
	Currency string
}

var (
	IndexSP500 = Index{Symbol: "^GSPC", Currency: "usd"}
	IndexIBOV  = Index{Symbol: "^BVSP", Currency: "brl"}
)

type Client struct {
	baseURL string
	http    httpjson.Getter
	now     func() time.Time
}

func New(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	getter := httpjson.New(cfg.HTTPTimeout)
	getter.UserAgent = DefaultUserAgent
	if cfg.UserAgent != "" {
		getter.UserAgent = cfg.UserAgent
	}
	return &Client{baseURL: base, http: getter, now: time.Now}
}

// ClosePrices returns the daily close history of symbol for [start, end). end defaults to
// today (UTC). An empty history, including Yahoo's own "no data" reply, yields no envelopes
// and no error.
func (c *Client) ClosePrices(ctx context.Context, symbol, start, end, currency, asset string) ([]envelope.Envelope, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, errkind.Input("symbol is required")
	}
	from, err := parseDate(start)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(end) == "" {
		end = c.now().UTC().Format(dateLayout)
	}
	to, err := parseDate(end)
	if err != nil {
		return nil, err
	}
	if from.After(to) {
		return nil, errkind.Input("start_date %s must be <= end_date %s", start, end)
	}
	if currency == "" {
		currency = "usd"
	}
	if asset == "" {
		asset = symbol
	}

	endpoint := c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol)
	params := map[string]string{
		"period1":  strconv.FormatInt(from.Unix(), 10),
		"period2":  strconv.FormatInt(to.Unix(), 10),
		"interval": "1d",
		"events":   "history",
	}
	q := make(url.Values, len(params))
	for k, v := range params {
		q.Set(k, v)
	}
	body, err := c.http.GetJSON(ctx, endpoint, q)
	if err != nil {
		var se *httpjson.StatusError
		if errors.As(err, &se) && se.StatusCode >= http.StatusBadRequest && se.StatusCode < http.StatusInternalServerError && noData(se.Body) {
			return nil, nil
		}
		return nil, err
	}
	rows, err := closeRows(body)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	params["symbol"] = symbol
	params["start_date"] = start
	params["end_date"] = end
	return []envelope.Envelope{envelope.New(envelope.Fields{
		Source:        Source,
		Endpoint:      endpoint,
		RequestParams: params,
		Asset:         asset,
		Currency:      currency,
		Payload: map[string]any{
			"symbol":     symbol,
			"start_date": start,
			"end_date":   end,
			"rows":       rows,
		},
	})}, nil
}

func (c *Client) IndexCloses(ctx context.Context, idx Index, start, end string) ([]envelope.Envelope, error) {
	return c.ClosePrices(ctx, idx.Symbol, start, end, idx.Currency, "")
}

func (c *Client) SP500(ctx context.Context, start, end string) ([]envelope.Envelope, error) {
	return c.IndexCloses(ctx, IndexSP500, start, end)
}

func (c *Client) IBOV(ctx context.Context, start, end string) ([]envelope.Envelope, error) {
	return c.IndexCloses(ctx, IndexIBOV, start, end)
}

// noData reports whether a chart document is Yahoo saying the window holds no bars
// ("No data found, symbol may be delisted", "Data doesn't exist for startDate ...").
func noData(body []byte) bool {
	chartErr := gjson.GetBytes(body, "chart.error")
	if !chartErr.IsObject() {
		return false
	}
	if strings.EqualFold(chartErr.Get("code").String(), "Not Found") {
		return true
	}
	desc := strings.ToLower(chartErr.Get("description").String())
	return strings.Contains(desc, "no data found") || strings.Contains(desc, "data doesn't exist")
}

// closeRows turns a chart document into {date, value} rows. Dates are rendered in the
// exchange's own UTC offset; bars without a close are skipped.
func closeRows(body []byte) ([]any, error) {
	if noData(body) {
		return nil, nil
	}
	doc := gjson.ParseBytes(body)
	if chartErr := doc.Get("chart.error"); chartErr.IsObject() {
		return nil, errkind.Shape("yahoo chart error: %s: %s", chartErr.Get("code").String(), chartErr.Get("description").String())
	}
	result := doc.Get("chart.result.0")
	if !result.IsObject() {
		return nil, errkind.Shape("yahoo chart: missing chart.result")
	}
	stamps := result.Get("timestamp").Array()
	if len(stamps) == 0 {
		return nil, nil
	}
	closes := result.Get("indicators.quote.0.close").Array()
	offset := result.Get("meta.gmtoffset").Int()

	rows := make([]any, 0, len(stamps))
	for i, ts := range stamps {
		if i >= len(closes) || closes[i].Type != gjson.Number {
			continue
		}
		day := time.Unix(ts.Int()+offset, 0).UTC().Format(dateLayout)
		rows = append(rows, map[string]any{
			"date":  day,
			"value": httpjson.Value(closes[i]),
		})
	}
	return rows, nil
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
