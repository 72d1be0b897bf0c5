package jobspec

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"financeshub/internal/logger"
	"financeshub/internal/pkg/errkind"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Snapshot is an immutable view of the loaded job set.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Jobs     []Descriptor
}

type ChangeListener func(Snapshot)

// Registry keeps the job file loaded and reloads it when the file changes. A reload that
// fails validation keeps the previous snapshot.
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errkind.Config("job registry requires a path")
	}
	r := &Registry{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Watch starts following the file for changes.
func (r *Registry) Watch() error {
	v := viper.New()
	v.SetConfigFile(r.path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("watch job file: %w", err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.Reload(); err != nil {
			logger.Errorf("job file reload failed, keeping version %d: %v", r.Snapshot().Version, err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	r.mu.Lock()
	r.v = v
	r.mu.Unlock()
	return nil
}

func (r *Registry) Reload() error {
	jobs, err := Load(r.path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Jobs:     jobs,
	}
	r.mu.Unlock()
	logger.Infof("job registry loaded %d jobs from %s", len(jobs), filepath.Base(r.path))
	return nil
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{
		Version:  r.snapshot.Version,
		LoadedAt: r.snapshot.LoadedAt,
		Jobs:     append([]Descriptor(nil), r.snapshot.Jobs...),
	}
}

func (r *Registry) Jobs() []Descriptor {
	return r.Snapshot().Jobs
}

func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) notifyListeners() {
	snap := r.Snapshot()
	r.mu.RLock()
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Errorf("job registry listener panic: %v", rec)
				}
			}()
			cb(snap)
		}(fn)
	}
}
