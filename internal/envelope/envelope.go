// Package envelope defines the canonical record produced by every fetch adapter and consumed
// by every sink.
package envelope

import (
	"bytes"
	"encoding/json"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Envelope wraps one upstream response page with its provenance. The identity is the
// (asset, currency, uid) triple; uid is unique per envelope.
type Envelope struct {
	Source        string            `json:"source"`
	Endpoint      string            `json:"endpoint"`
	RequestParams map[string]string `json:"request_params"`
	Asset         string            `json:"asset"`
	Currency      string            `json:"currency"`
	UID           string            `json:"uid"`
	FetchedAt     time.Time         `json:"fetched_at"`
	Payload       map[string]any    `json:"payload"`
}

// Fields are the adapter-supplied parts of an envelope. UID and FetchedAt are stamped by New.
type Fields struct {
	Source        string
	Endpoint      string
	RequestParams map[string]string
	Asset         string
	Currency      string
	Payload       map[string]any
}

// New materializes an envelope, stamping a fresh uid and the current UTC time.
func New(f Fields) Envelope {
	params := maps.Clone(f.RequestParams)
	if params == nil {
		params = map[string]string{}
	}
	payload := maps.Clone(f.Payload)
	if payload == nil {
		payload = map[string]any{}
	}
	return Envelope{
		Source:        f.Source,
		Endpoint:      f.Endpoint,
		RequestParams: params,
		Asset:         f.Asset,
		Currency:      f.Currency,
		UID:           uuid.NewString(),
		FetchedAt:     Now(),
		Payload:       payload,
	}
}

// MarshalLine renders the envelope as a single JSON line terminated by '\n'.
// HTML characters and non-ASCII text are written verbatim.
func (e Envelope) MarshalLine() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses one JSON line back into an envelope. Numbers inside the payload are kept as
// json.Number so they compare equal to what the adapters produced.
func Decode(line []byte) (Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var env Envelope
	if err := dec.Decode(&env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}
