package config

import (
	"strings"
	"time"

	"financeshub/internal/scheduler"
)

// Config is the process configuration of the ingestion service.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	SQL       SQLConfig       `mapstructure:"sql"`
	Run       RunConfig       `mapstructure:"run"`
	HTTP      HTTPConfig      `mapstructure:"http"`
}

type AppConfig struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogPath   string `mapstructure:"log_path"`
	// Mode is "once" (run all jobs and exit) or "schedule".
	Mode string `mapstructure:"mode"`
}

const (
	ModeOnce     = "once"
	ModeSchedule = "schedule"
)

type ScheduleConfig struct {
	// Cron, when set, replaces the interval/offset alignment.
	Cron           string `mapstructure:"cron"`
	Interval       string `mapstructure:"interval"`
	Offset         string `mapstructure:"offset"`
	RunImmediately bool   `mapstructure:"run_immediately"`
}

// IntervalDuration is only meaningful after validate.
func (s ScheduleConfig) IntervalDuration() time.Duration {
	d, _ := scheduler.ParseIntervalDuration(s.Interval)
	return d
}

func (s ScheduleConfig) OffsetDuration() time.Duration {
	d, _ := parseOffset(s.Offset)
	return d
}

type StorageConfig struct {
	Sink         string `mapstructure:"sink"`
	RawDir       string `mapstructure:"raw_dir"`
	PostgresDSN  string `mapstructure:"postgres_dsn"`
	RunlogPath   string `mapstructure:"runlog_path"`
	EnsureSchema bool   `mapstructure:"ensure_schema"`
}

type ProvidersConfig struct {
	HTTPTimeoutSeconds int             `mapstructure:"http_timeout_seconds"`
	UserAgent          string          `mapstructure:"user_agent"`
	Binance            BinanceConfig   `mapstructure:"binance"`
	Coingecko          CoingeckoConfig `mapstructure:"coingecko"`
	Yahoo              YahooConfig     `mapstructure:"yahoo"`
}

func (p ProvidersConfig) HTTPTimeout() time.Duration {
	return time.Duration(p.HTTPTimeoutSeconds) * time.Second
}

type BinanceConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	ProxyEnabled bool   `mapstructure:"proxy_enabled"`
	ProxyURL     string `mapstructure:"proxy_url"`
}

type CoingeckoConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	APIKeyHeader string `mapstructure:"api_key_header"`
}

type YahooConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type JobsConfig struct {
	// Path of the declarative job file. Empty selects the built-in job set.
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

type SQLConfig struct {
	TransformsDirs []string `mapstructure:"transforms_dirs"`
	TestsDir       string   `mapstructure:"tests_dir"`
	RunTransforms  bool     `mapstructure:"run_transforms"`
	Validate       bool     `mapstructure:"validate"`
}

type RunConfig struct {
	ContinueOnError bool `mapstructure:"continue_on_error"`
}

type HTTPConfig struct {
	// StatusAddr enables the status API when non-empty.
	StatusAddr string `mapstructure:"status_addr"`
}

type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
