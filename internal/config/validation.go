package config

import (
	"strings"
	"time"

	"financeshub/internal/persist"
	"financeshub/internal/pkg/errkind"
	"financeshub/internal/scheduler"
)

func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Schedule.validate(c.App.Mode); err != nil {
		return err
	}
	if err := c.Storage.validate(); err != nil {
		return err
	}
	if c.Providers.HTTPTimeoutSeconds <= 0 {
		return errkind.Config("providers.http_timeout_seconds must be > 0")
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch a.Mode {
	case ModeOnce, ModeSchedule:
	default:
		return errkind.Config("app.mode must be once or schedule (got %q)", a.Mode)
	}
	switch strings.ToLower(strings.TrimSpace(a.LogFormat)) {
	case "text", "json":
	default:
		return errkind.Config("app.log_format must be text or json (got %q)", a.LogFormat)
	}
	return nil
}

func (s *ScheduleConfig) validate(mode string) error {
	if mode != ModeSchedule {
		return nil
	}
	if strings.TrimSpace(s.Cron) != "" {
		if _, err := scheduler.ParseCron(s.Cron); err != nil {
			return errkind.Config("schedule.cron: %v", err)
		}
		return nil
	}
	interval, ok := scheduler.ParseIntervalDuration(s.Interval)
	if !ok {
		return errkind.Config("schedule.interval is invalid: %q", s.Interval)
	}
	offset, ok := parseOffset(s.Offset)
	if !ok {
		return errkind.Config("schedule.offset is invalid: %q", s.Offset)
	}
	if offset >= interval {
		return errkind.Config("schedule.offset %s must be shorter than interval %s", offset, interval)
	}
	return nil
}

// validate rejects an unknown sink. The DSN is checked lazily by the relational store.
func (s *StorageConfig) validate() error {
	if _, err := persist.ParseSink(s.Sink); err != nil {
		return err
	}
	if strings.TrimSpace(s.RawDir) == "" {
		return errkind.Config("storage.raw_dir is required")
	}
	return nil
}

func parseOffset(raw string) (time.Duration, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" {
		return 0, true
	}
	return scheduler.ParseIntervalDuration(raw)
}
