// Package rawfile appends envelopes to per-category JSON Lines files.
package rawfile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"financeshub/internal/envelope"
	"financeshub/internal/pkg/errkind"
)

const (
	DefaultBaseDir = "data/raw"
	fileName       = "raw.jsonl"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	return &Store{baseDir: baseDir}
}

func (s *Store) BaseDir() string { return s.baseDir }

// Write appends envs to <base>/<category>/raw.jsonl, one object per line, and returns the
// file path. The file is created even when envs is empty.
func (s *Store) Write(category string, envs []envelope.Envelope) (string, error) {
	category = strings.TrimSpace(category)
	if category == "" || strings.ContainsAny(category, `/\`) || category == ".." {
		return "", errkind.Input("invalid category %q", category)
	}
	dir := filepath.Join(s.baseDir, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create raw dir: %w", err)
	}
	path := filepath.Join(dir, fileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	for _, env := range envs {
		line, err := env.MarshalLine()
		if err != nil {
			_ = f.Close()
			return "", fmt.Errorf("encode envelope %s: %w", env.UID, err)
		}
		if _, err := w.Write(line); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}
