package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"financeshub/internal/pkg/errkind"
	"financeshub/internal/pkg/text"

	"github.com/tidwall/gjson"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "financeshub/1.0"

	maxErrBody = 512
)

// Getter is the GET-JSON collaborator every fetch adapter depends on.
type Getter interface {
	GetJSON(ctx context.Context, endpoint string, params url.Values) ([]byte, error)
}

type Client struct {
	HTTP      *http.Client
	UserAgent string
	Headers   map[string]string
}

func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout, Transport: transport},
		UserAgent: DefaultUserAgent,
	}
}

// GetJSON issues one GET and returns the body once it is known to be valid
// JSON. Non-2xx answers are errors carrying the status and a body excerpt.
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	for k, v := range c.Headers {
		if strings.TrimSpace(v) != "" {
			req.Header.Set(k, v)
		}
	}
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u.Redacted(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: u.Redacted(), StatusCode: resp.StatusCode, Body: body}
	}
	if !gjson.ValidBytes(body) {
		return nil, errkind.Shape("GET %s: response is not valid JSON", u.Redacted())
	}
	return body, nil
}

// StatusError is a non-2xx answer. Body holds the full response so adapters can tell a
// provider's structured "no data" reply from a real failure.
type StatusError struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.StatusCode, text.Truncate(string(e.Body), maxErrBody))
}

// Value converts a gjson result into the payload representation used by
// envelopes: numbers stay as their raw text so they round-trip verbatim.
func Value(r gjson.Result) any {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		return json.Number(r.Raw)
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.JSON:
		v, err := Decode([]byte(r.Raw))
		if err != nil {
			return r.Raw
		}
		return v
	default:
		return nil
	}
}

// Decode unmarshals raw JSON keeping numbers as json.Number.
func Decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeObject is Decode restricted to a top-level JSON object.
func DecodeObject(raw []byte) (map[string]any, error) {
	if !gjson.ParseBytes(raw).IsObject() {
		return nil, errkind.Shape("expected a JSON object")
	}
	v, err := Decode(raw)
	if err != nil {
		return nil, errkind.Shape("decode object: %v", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errkind.Shape("expected a JSON object")
	}
	return obj, nil
}
