// Package persist routes fetched envelopes to the configured sinks.
package persist

import (
	"context"
	"fmt"
	"strings"

	"financeshub/internal/envelope"
	"financeshub/internal/logger"
	"financeshub/internal/pkg/errkind"
)

type Sink string

const (
	SinkFile     Sink = "file"
	SinkPostgres Sink = "postgres"
	SinkBoth     Sink = "both"
	SinkNone     Sink = "none"
)

// ParseSink validates a sink name. The empty string is returned unchanged so callers can
// fall back to their default.
func ParseSink(v string) (Sink, error) {
	s := Sink(strings.ToLower(strings.TrimSpace(v)))
	switch s {
	case "", SinkFile, SinkPostgres, SinkBoth, SinkNone:
		return s, nil
	}
	return "", errkind.Config("FINANCES_HUB_SINK must be one of: file, postgres, both, none (got %q)", v)
}

func (s Sink) writesFile() bool     { return s == SinkFile || s == SinkBoth }
func (s Sink) writesPostgres() bool { return s == SinkPostgres || s == SinkBoth }

type FileWriter interface {
	Write(category string, envs []envelope.Envelope) (string, error)
}

type EnvelopeInserter interface {
	InsertEnvelopes(ctx context.Context, dsn string, envs []envelope.Envelope) (int, error)
}

// Target is the per-run destination. Empty fields fall back to the router defaults.
type Target struct {
	Sink Sink
	DSN  string
}

type Router struct {
	files       FileWriter
	db          EnvelopeInserter
	defaultSink Sink
}

func NewRouter(files FileWriter, db EnvelopeInserter, defaultSink Sink) *Router {
	if defaultSink == "" {
		defaultSink = SinkNone
	}
	return &Router{files: files, db: db, defaultSink: defaultSink}
}

func (r *Router) DefaultSink() Sink { return r.defaultSink }

// Inject writes envs to every destination selected by the target sink and returns the sink
// that was applied. Each destination is called exactly once, also for an empty batch; a
// failure in the relational store does not undo an earlier file write.
func (r *Router) Inject(ctx context.Context, envs []envelope.Envelope, category string, target Target) (Sink, error) {
	sink, err := ParseSink(string(target.Sink))
	if err != nil {
		return "", err
	}
	if sink == "" {
		sink = r.defaultSink
	}
	if _, err := ParseSink(string(sink)); err != nil {
		return "", err
	}
	if sink.writesFile() && r.files == nil {
		return "", errkind.Config("sink %s needs a file store", sink)
	}
	if sink.writesPostgres() && r.db == nil {
		return "", errkind.Config("sink %s needs a relational store", sink)
	}

	log := logger.With("category", category, "sink", string(sink))
	if sink.writesFile() {
		path, err := r.files.Write(category, envs)
		if err != nil {
			return sink, fmt.Errorf("file sink: %w", err)
		}
		log.Debug("envelopes appended", "path", path, "count", len(envs))
	}
	if sink.writesPostgres() {
		n, err := r.db.InsertEnvelopes(ctx, target.DSN, envs)
		if err != nil {
			return sink, fmt.Errorf("postgres sink: %w", err)
		}
		log.Debug("envelopes inserted", "rows", n)
	}
	return sink, nil
}
