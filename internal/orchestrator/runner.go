package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"financeshub/internal/envelope"
	"financeshub/internal/gateway/binance"
	"financeshub/internal/logger"
	"financeshub/internal/metrics"
	"financeshub/internal/persist"
	"financeshub/internal/sqlscript"
	"financeshub/internal/store/runlog"

	"github.com/google/uuid"
)

type ExchangeFetcher interface {
	Klines(ctx context.Context, req binance.KlineRequest) ([]envelope.Envelope, error)
	TickerPrice(ctx context.Context, symbol, quote, asset string) ([]envelope.Envelope, error)
}

type MarketDataFetcher interface {
	MarketChart(ctx context.Context, coinID, days, vs, asset string) ([]envelope.Envelope, error)
	CurrentPrice(ctx context.Context, coinID, vs, asset string) ([]envelope.Envelope, error)
	DailyPrices(ctx context.Context, days int, vs, asset string) ([]envelope.Envelope, error)
}

type EquityFetcher interface {
	ClosePrices(ctx context.Context, symbol, start, end, currency, asset string) ([]envelope.Envelope, error)
}

type Injector interface {
	Inject(ctx context.Context, envs []envelope.Envelope, category string, target persist.Target) (persist.Sink, error)
}

type ScriptRunner = sqlscript.Executor

// Recorder persists run outcomes; see runlog.Store.
type Recorder interface {
	StartRun(ctx context.Context, run runlog.Run) error
	RecordJob(ctx context.Context, res runlog.JobResult) error
	FinishRun(ctx context.Context, id, status string, envelopes int, message string) error
}

type Deps struct {
	Exchange   ExchangeFetcher
	MarketData MarketDataFetcher
	Equity     EquityFetcher
	Injector   Injector
	Scripts    ScriptRunner
	Recorder   Recorder
	// Jobs supplies the job set when RunAll is called with nil jobs.
	Jobs func() ([]Job, error)
}

// RunConfig is shared by every job of one run.
type RunConfig struct {
	Target persist.Target
	// ContinueOnError runs every job even after a failure; SQL steps are then skipped.
	ContinueOnError bool
	RunTransforms   bool
	TransformDirs   []string
	Validate        bool
	TestsDir        string
	Trigger         string
}

// Results maps job name to the number of envelopes it produced.
type Results map[string]int

func (r Results) Total() int {
	n := 0
	for _, v := range r {
		n += v
	}
	return n
}

type Runner struct {
	deps Deps
}

func NewRunner(deps Deps) *Runner {
	if deps.Jobs == nil {
		deps.Jobs = func() ([]Job, error) { return DefaultJobs(time.Now()), nil }
	}
	return &Runner{deps: deps}
}

// RunAll executes jobs sequentially in order, injecting each job's envelopes with the run's
// target. By default the first failing job aborts the run before later jobs and before any
// SQL step; the counts gathered so far are returned with the error.
func (r *Runner) RunAll(ctx context.Context, jobs []Job, cfg RunConfig) (Results, error) {
	if jobs == nil {
		var err error
		if jobs, err = r.deps.Jobs(); err != nil {
			return nil, err
		}
	}
	runID := uuid.NewString()
	trigger := cfg.Trigger
	if trigger == "" {
		trigger = "manual"
	}
	log := logger.With("run", runID, "trigger", trigger)
	r.startRun(ctx, runlog.Run{ID: runID, Trigger: trigger, Sink: string(cfg.Target.Sink), Jobs: len(jobs), StartedAt: time.Now()})

	results := make(Results, len(jobs))
	var errs []error
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		started := time.Now()
		n, err := r.RunJob(ctx, job, cfg.Target)
		res := runlog.JobResult{
			RunID:      runID,
			Job:        job.JobName(),
			Category:   job.Category(),
			Status:     runlog.StatusDone,
			Envelopes:  n,
			DurationMs: time.Since(started).Milliseconds(),
		}
		if err != nil {
			res.Status = runlog.StatusFailed
			res.Error = err.Error()
			r.recordJob(ctx, res)
			log.Error("job failed", "job", job.JobName(), "error", err)
			errs = append(errs, fmt.Errorf("job %s: %w", job.JobName(), err))
			if !cfg.ContinueOnError {
				break
			}
			continue
		}
		r.recordJob(ctx, res)
		results[job.JobName()] = n
		log.Info("job finished", "job", job.JobName(), "envelopes", n, "duration_ms", res.DurationMs)
	}

	if len(errs) == 0 {
		if err := r.runSQL(ctx, cfg); err != nil {
			errs = append(errs, err)
		}
	} else if cfg.RunTransforms || cfg.Validate {
		log.Warn("skipping SQL steps after job failure")
	}

	err := errors.Join(errs...)
	status := runlog.StatusDone
	message := ""
	if err != nil {
		status = runlog.StatusFailed
		if len(results) > 0 {
			status = runlog.StatusPartial
		}
		message = err.Error()
	}
	metrics.ObserveRun(trigger, status, time.Now())
	r.finishRun(ctx, runID, status, results.Total(), message)
	log.Info("run finished", "status", status, "jobs", len(results), "envelopes", results.Total())
	return results, err
}

// RunJob fetches with the job's adapter and injects the result under the job's category.
func (r *Runner) RunJob(ctx context.Context, job Job, target persist.Target) (int, error) {
	envs, err := r.fetch(ctx, job)
	if err != nil {
		return 0, err
	}
	if _, err := r.deps.Injector.Inject(ctx, envs, job.Category(), target); err != nil {
		return 0, err
	}
	return len(envs), nil
}

func (r *Runner) fetch(ctx context.Context, job Job) ([]envelope.Envelope, error) {
	switch j := job.(type) {
	case ExchangeJob:
		if r.deps.Exchange == nil {
			return nil, fmt.Errorf("no exchange adapter configured")
		}
		return r.deps.Exchange.Klines(ctx, j.Request)
	case ExchangePriceJob:
		if r.deps.Exchange == nil {
			return nil, fmt.Errorf("no exchange adapter configured")
		}
		return r.deps.Exchange.TickerPrice(ctx, j.Symbol, j.Quote, j.Asset)
	case MarketDataJob:
		if r.deps.MarketData == nil {
			return nil, fmt.Errorf("no market-data adapter configured")
		}
		switch j.Mode {
		case MarketChart:
			return r.deps.MarketData.MarketChart(ctx, j.CoinID, j.Days, j.Currency, j.Asset)
		case CurrentPrice:
			return r.deps.MarketData.CurrentPrice(ctx, j.CoinID, j.Currency, j.Asset)
		case DailyPrices:
			days, err := strconv.Atoi(j.Days)
			if err != nil {
				return nil, fmt.Errorf("days %q: %w", j.Days, err)
			}
			return r.deps.MarketData.DailyPrices(ctx, days, j.Currency, j.Asset)
		}
		return nil, fmt.Errorf("unknown market-data mode %q", j.Mode)
	case EquityJob:
		if r.deps.Equity == nil {
			return nil, fmt.Errorf("no equity adapter configured")
		}
		return r.deps.Equity.ClosePrices(ctx, j.Symbol, j.StartDate, j.EndDate, j.Currency, j.Asset)
	}
	return nil, fmt.Errorf("unsupported job type %T", job)
}

// runSQL applies transforms (in directory order) and then the data-quality tests.
func (r *Runner) runSQL(ctx context.Context, cfg RunConfig) error {
	if !cfg.RunTransforms && !cfg.Validate {
		return nil
	}
	if r.deps.Scripts == nil {
		return fmt.Errorf("SQL steps requested but no script runner configured")
	}
	if cfg.RunTransforms {
		for _, dir := range cfg.TransformDirs {
			n, err := sqlscript.RunDir(ctx, r.deps.Scripts, cfg.Target.DSN, dir, sqlscript.LoadTransforms)
			if err != nil {
				return fmt.Errorf("transforms %s: %w", filepath.Base(dir), err)
			}
			logger.Infof("transforms %s: %d statements", filepath.Base(dir), n)
		}
	}
	if cfg.Validate {
		n, err := sqlscript.RunDir(ctx, r.deps.Scripts, cfg.Target.DSN, cfg.TestsDir, sqlscript.LoadTests)
		if err != nil {
			return fmt.Errorf("sql tests: %w", err)
		}
		logger.Infof("sql tests: %d statements passed", n)
	}
	return nil
}

func (r *Runner) startRun(ctx context.Context, run runlog.Run) {
	if r.deps.Recorder == nil {
		return
	}
	if err := r.deps.Recorder.StartRun(ctx, run); err != nil {
		logger.Warnf("run ledger: start %s: %v", run.ID, err)
	}
}

func (r *Runner) recordJob(ctx context.Context, res runlog.JobResult) {
	metrics.ObserveJob(res.Category, res.Status, res.Envelopes, time.Duration(res.DurationMs)*time.Millisecond)
	if r.deps.Recorder == nil {
		return
	}
	if err := r.deps.Recorder.RecordJob(ctx, res); err != nil {
		logger.Warnf("run ledger: job %s: %v", res.Job, err)
	}
}

func (r *Runner) finishRun(ctx context.Context, id, status string, envelopes int, message string) {
	if r.deps.Recorder == nil {
		return
	}
	// the run context may already be cancelled
	ctx = context.WithoutCancel(ctx)
	if err := r.deps.Recorder.FinishRun(ctx, id, status, envelopes, message); err != nil {
		logger.Warnf("run ledger: finish %s: %v", id, err)
	}
}
