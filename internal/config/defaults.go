package config

import "strings"

const (
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"
	defaultMode           = ModeOnce
	defaultInterval       = "1d"
	defaultOffset         = "30m"
	defaultSink           = "none"
	defaultRawDir         = "data/raw"
	defaultRunlogPath     = "data/runlog.db"
	defaultHTTPTimeoutSec = 30
	defaultTestsDir       = "sql/tests"
)

var defaultTransformsDirs = []string{"sql/silver", "sql/gold"}

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Schedule.applyDefaults(keys)
	c.Storage.applyDefaults(keys)
	c.Providers.applyDefaults(keys)
	c.Jobs.applyDefaults(keys)
	c.SQL.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.log_level", &a.LogLevel, defaultLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultLogFormat),
		stringFieldDefault("app.mode", &a.Mode, defaultMode),
	)
	a.Mode = strings.ToLower(strings.TrimSpace(a.Mode))
}

func (s *ScheduleConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("schedule.interval", &s.Interval, defaultInterval),
		stringFieldDefault("schedule.offset", &s.Offset, defaultOffset),
		boolFieldDefault("schedule.run_immediately", &s.RunImmediately, true),
	)
}

func (s *StorageConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("storage.sink", &s.Sink, defaultSink),
		stringFieldDefault("storage.raw_dir", &s.RawDir, defaultRawDir),
		stringFieldDefault("storage.runlog_path", &s.RunlogPath, defaultRunlogPath),
	)
	s.Sink = strings.ToLower(strings.TrimSpace(s.Sink))
}

func (p *ProvidersConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "providers.http_timeout_seconds",
			need:  func() bool { return p.HTTPTimeoutSeconds <= 0 },
			apply: func() { p.HTTPTimeoutSeconds = defaultHTTPTimeoutSec },
		},
	)
}

func (j *JobsConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys, boolFieldDefault("jobs.watch", &j.Watch, true))
}

func (s *SQLConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("sql.tests_dir", &s.TestsDir, defaultTestsDir),
		fieldDefault{
			key:   "sql.transforms_dirs",
			need:  func() bool { return len(s.TransformsDirs) == 0 },
			apply: func() { s.TransformsDirs = append([]string(nil), defaultTransformsDirs...) },
		},
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

// boolFieldDefault applies def only when the key is absent, since false is a valid setting.
func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
