// Package config loads the service configuration from YAML and the FINANCES_HUB_* environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"financeshub/internal/pkg/errkind"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	EnvConfig = "FINANCES_HUB_CONFIG"
	EnvSink   = "FINANCES_HUB_SINK"
	EnvPGDSN  = "FINANCES_HUB_PG_DSN"
	EnvJobs   = "FINANCES_HUB_JOBS"

	DefaultPath = "configs/config.yaml"
)

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"storage.sink":         EnvSink,
	"storage.postgres_dsn": EnvPGDSN,
	"jobs.path":            EnvJobs,
}

// ResolvePath picks the explicit path, then FINANCES_HUB_CONFIG, then DefaultPath.
func ResolvePath(path string) (resolved string, explicit bool) {
	if p := strings.TrimSpace(path); p != "" {
		return p, true
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfig)); p != "" {
		return p, true
	}
	return DefaultPath, false
}

// Load reads the config file named by path (or the environment) and applies env overrides,
// defaults and validation. A missing default file is not an error.
func Load(path string) (*Config, error) {
	resolved, explicit := ResolvePath(path)
	return load(resolved, !explicit)
}

func load(path string, optional bool) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if _, err := os.Stat(path); err != nil {
		if !optional || !errors.Is(err, fs.ErrNotExist) {
			return nil, errkind.Config("config file %s: %v", path, err)
		}
	} else {
		files, err := resolveConfigIncludes(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errkind.ErrConfig, err)
		}
		for _, file := range files {
			if err := mergeConfigFile(v, file); err != nil {
				return nil, errkind.Config("reading config file failed (%s): %v", file, err)
			}
		}
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, errkind.Config("parsing config failed: %v", err)
	}
	setKeys := make(keySet)
	collectSettingsKeys(v.AllSettings(), setKeys)
	cfg.applyDefaults(setKeys)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	tmp := viper.New()
	tmp.SetConfigFile(path)
	if err := tmp.ReadInConfig(); err != nil {
		return err
	}
	return v.MergeConfigMap(tmp.AllSettings())
}

// resolveConfigIncludes lists path and everything it pulls in through "include", depth first,
// so included files are merged before the file that names them.
func resolveConfigIncludes(path string) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := includeWalker{visited: map[string]bool{}, active: map[string]bool{}}
	if err := w.walk(abs); err != nil {
		return nil, err
	}
	return w.order, nil
}

type includeWalker struct {
	visited map[string]bool
	active  map[string]bool
	order   []string
}

func (w *includeWalker) walk(path string) error {
	path = filepath.Clean(path)
	switch {
	case w.active[path]:
		return fmt.Errorf("include cycle at %s", path)
	case w.visited[path]:
		return nil
	}
	w.active[path] = true
	includes, err := readIncludes(path)
	if err != nil {
		return fmt.Errorf("include list of %s: %w", path, err)
	}
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		if err := w.walk(inc); err != nil {
			return err
		}
	}
	delete(w.active, path)
	w.visited[path] = true
	w.order = append(w.order, path)
	return nil
}

// readIncludes accepts either a single file name or a list of them.
func readIncludes(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var raw []any
	switch val := v.Get("include").(type) {
	case nil:
		return nil, nil
	case string:
		raw = []any{val}
	case []any:
		raw = val
	default:
		return nil, fmt.Errorf("include must be a file name or a list of file names")
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		name, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("include entries must be strings, got %T", item)
		}
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

// collectSettingsKeys records every leaf key present in settings, dotted and lowercased.
func collectSettingsKeys(settings map[string]any, dest keySet) {
	for k, v := range settings {
		markLeaves(strings.ToLower(strings.TrimSpace(k)), v, dest)
	}
}

func markLeaves(key string, node any, dest keySet) {
	if key == "" {
		return
	}
	nested, ok := node.(map[string]any)
	if !ok {
		dest.mark(key)
		return
	}
	for k, v := range nested {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			markLeaves(key+"."+k, v, dest)
		}
	}
}
