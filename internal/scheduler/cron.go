package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"financeshub/internal/logger"

	"github.com/robfig/cron/v3"
)

// CronScheduler runs a task on a standard five-field cron expression (or a descriptor such as
// "@daily"), evaluated in UTC. A run that is still going when the next one is due makes the
// next one skip.
type CronScheduler struct {
	Spec           string
	RunImmediately bool

	schedule cron.Schedule
}

// ParseCron validates a cron expression.
func ParseCron(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("empty cron expression")
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("cron %q: %w", spec, err)
	}
	return sched, nil
}

func NewCronScheduler(spec string) (*CronScheduler, error) {
	sched, err := ParseCron(spec)
	if err != nil {
		return nil, err
	}
	return &CronScheduler{Spec: strings.TrimSpace(spec), schedule: sched}, nil
}

// Next reports when the task fires after t.
func (s *CronScheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.UTC())
}

// Start blocks until ctx is done and waits for a running task to return.
func (s *CronScheduler) Start(ctx context.Context, task func(context.Context)) {
	if s == nil || task == nil {
		return
	}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() { task(ctx) }))

	logger.Infof("CronScheduler: started spec=%q run_immediately=%v next=%s",
		s.Spec, s.RunImmediately, s.Next(time.Now()).Format(time.RFC3339))
	if s.RunImmediately {
		task(ctx)
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	logger.Infof("CronScheduler: ctx done, exit")
}

// cronLogger routes cron's internal messages to the service logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logger.With(keysAndValues...).Debug("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.With(keysAndValues...).Error("cron: "+msg, "error", err)
}
