// Package logger is the process-wide slog logger. Output, format and level can be switched
// at any time; loggers obtained from With keep the handler they were created with.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	levelVar slog.LevelVar

	mu      sync.RWMutex
	out     io.Writer = os.Stdout
	useJSON bool
	current = build()
)

// build must be called with mu held for writing, or during package init.
func build() *slog.Logger {
	w := out
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: &levelVar}
	if useJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	current = build()
}

// SetFormat selects "json"; any other value means text.
func SetFormat(f string) {
	mu.Lock()
	defer mu.Unlock()
	useJSON = strings.EqualFold(strings.TrimSpace(f), "json")
	current = build()
}

// SetLevel accepts debug, info, warn/warning and error. Unknown names mean info.
func SetLevel(level string) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	levelVar.Set(l)
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// With returns a structured logger carrying the given attributes, e.g.
// logger.With("job", name).Info("fetched", "envelopes", n).
func With(args ...any) *slog.Logger {
	return get().With(args...)
}

func Debugf(format string, v ...any) { get().Debug(fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { get().Info(fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { get().Warn(fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { get().Error(fmt.Sprintf(format, v...)) }
