// Package app wires configuration, adapters, stores and the orchestrator into a runnable
// service.
package app

import (
	"context"
	"fmt"
	"time"

	"financeshub/internal/config"
	"financeshub/internal/jobspec"
	"financeshub/internal/logger"
	"financeshub/internal/orchestrator"
	"financeshub/internal/persist"
	"financeshub/internal/sqlscript"
	"financeshub/internal/store/bronze"
	"financeshub/internal/store/runlog"
	statushttp "financeshub/internal/transport/http/status"

	"golang.org/x/sync/errgroup"
)

const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
)

// runLoop triggers a task repeatedly until ctx is done.
type runLoop interface {
	Start(ctx context.Context, task func(context.Context))
}

type App struct {
	cfg       *config.Config
	sink      persist.Sink
	runner    *orchestrator.Runner
	registry  *jobspec.Registry
	ledger    *runlog.Store
	warehouse *bronze.Store
	scripts   *sqlscript.Runner
	scheduler runLoop
	status    *statushttp.Server
}

func NewApp(ctx context.Context, cfg *config.Config, opts ...AppBuilderOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.SetFormat(cfg.App.LogFormat)
	return NewAppBuilder(cfg, opts...).Build(ctx)
}

// Run executes one pass over the job set in "once" mode, or keeps running scheduled passes
// until ctx is cancelled in "schedule" mode.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.Close()

	if err := a.prepareWarehouse(ctx); err != nil {
		return err
	}
	if a.scheduler == nil {
		_, err := a.RunOnce(ctx, TriggerManual)
		return err
	}

	if a.registry != nil && a.cfg.Jobs.Watch {
		if err := a.registry.Watch(); err != nil {
			return err
		}
		a.registry.OnChange(func(snap jobspec.Snapshot) {
			logger.Infof("job file reloaded: version=%d jobs=%d, applies to next run", snap.Version, len(snap.Jobs))
		})
	}

	group, ctx := errgroup.WithContext(ctx)
	if a.status != nil {
		group.Go(func() error {
			logger.Infof("status API listening on %s", a.status.Addr())
			if err := a.status.Start(ctx); err != nil {
				return fmt.Errorf("status http server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		a.scheduler.Start(ctx, func(ctx context.Context) {
			// failures are recorded in the ledger; the schedule keeps going
			if _, err := a.RunOnce(ctx, TriggerSchedule); err != nil {
				logger.Errorf("scheduled run failed: %v", err)
			}
		})
		return nil
	})
	return group.Wait()
}

// RunOnce runs every configured job once with the configured sink and SQL steps.
func (a *App) RunOnce(ctx context.Context, trigger string) (orchestrator.Results, error) {
	results, err := a.runner.RunAll(ctx, nil, a.runConfig(trigger))
	logger.Infof("run complete: jobs=%d envelopes=%d", len(results), results.Total())
	return results, err
}

func (a *App) runConfig(trigger string) orchestrator.RunConfig {
	return orchestrator.RunConfig{
		Target:          persist.Target{Sink: a.sink, DSN: a.cfg.Storage.PostgresDSN},
		ContinueOnError: a.cfg.Run.ContinueOnError,
		RunTransforms:   a.cfg.SQL.RunTransforms,
		TransformDirs:   a.cfg.SQL.TransformsDirs,
		Validate:        a.cfg.SQL.Validate,
		TestsDir:        a.cfg.SQL.TestsDir,
		Trigger:         trigger,
	}
}

// prepareWarehouse creates the bronze tables when asked to and the relational sink is in use.
func (a *App) prepareWarehouse(ctx context.Context) error {
	if !a.cfg.Storage.EnsureSchema {
		return nil
	}
	if a.sink != persist.SinkPostgres && a.sink != persist.SinkBoth {
		return nil
	}
	return a.EnsureSchema(ctx)
}

// EnsureSchema creates the bronze tables, then applies the schema.sql of every transforms
// directory.
func (a *App) EnsureSchema(ctx context.Context) error {
	dsn := a.cfg.Storage.PostgresDSN
	if err := a.warehouse.EnsureSchema(ctx, dsn); err != nil {
		return fmt.Errorf("ensure bronze schema: %w", err)
	}
	for _, dir := range a.cfg.SQL.TransformsDirs {
		if _, err := sqlscript.RunDir(ctx, a.scripts, dsn, dir, sqlscript.LoadSchema); err != nil {
			return fmt.Errorf("schema %s: %w", dir, err)
		}
	}
	logger.Infof("warehouse schema ready")
	return nil
}

// JobNames lists the jobs the next run would execute, in run order.
func (a *App) JobNames() []string {
	var jobs []orchestrator.Job
	if a.registry != nil {
		var err error
		if jobs, err = orchestrator.FromDescriptors(a.registry.Jobs()); err != nil {
			logger.Warnf("list jobs: %v", err)
			return nil
		}
	} else {
		jobs = orchestrator.DefaultJobs(time.Now())
	}
	names := make([]string, 0, len(jobs))
	for _, job := range jobs {
		names = append(names, job.JobName())
	}
	return names
}

func (a *App) Close() {
	if a == nil {
		return
	}
	closeLedger(a.ledger)
	a.ledger = nil
}
