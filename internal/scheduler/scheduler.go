// Package scheduler triggers periodic runs aligned to wall-clock boundaries.
package scheduler

import (
	"context"
	"time"

	"financeshub/internal/logger"
)

// AlignedScheduler runs a task at every Interval boundary (UTC) plus Offset, e.g. daily at
// 00:30Z once the previous daily candle has closed.
type AlignedScheduler struct {
	Interval       time.Duration
	Offset         time.Duration
	RunImmediately bool

	nowFn func() time.Time
}

func NewAlignedScheduler(interval, offset time.Duration) *AlignedScheduler {
	return &AlignedScheduler{
		Interval: interval,
		Offset:   offset,
		nowFn:    time.Now,
	}
}

// Start blocks until ctx is done. Runs never overlap: the next wake-up is computed after the
// previous task returns.
func (s *AlignedScheduler) Start(ctx context.Context, task func(context.Context)) {
	if s == nil {
		return
	}
	if task == nil {
		logger.Warnf("AlignedScheduler: task is nil, exit")
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("AlignedScheduler: invalid interval=%s, exit", s.Interval)
		return
	}
	if s.Offset < 0 || s.Offset >= s.Interval {
		logger.Warnf("AlignedScheduler: offset=%s outside [0, %s), clamp to 0", s.Offset, s.Interval)
		s.Offset = 0
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}

	startAt := s.nowFn().UTC()
	logger.Infof("AlignedScheduler: started interval=%s offset=%s run_immediately=%v at=%s",
		s.Interval, s.Offset, s.RunImmediately, startAt.Format(time.RFC3339))

	if s.RunImmediately {
		task(ctx)
	}

	for {
		now := s.nowFn().UTC()
		wakeAt, wait := s.nextTimes(now)
		logger.Infof("AlignedScheduler: next run at %s (in %s) | uptime=%s",
			wakeAt.Format(time.RFC3339),
			wait.Truncate(time.Second),
			now.Sub(startAt).Truncate(time.Second),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Infof("AlignedScheduler: ctx done, exit")
			return
		case <-timer.C:
		}
		task(ctx)
	}
}

// nextTimes returns the first boundary+offset strictly after now.
func (s *AlignedScheduler) nextTimes(now time.Time) (wakeAt time.Time, wait time.Duration) {
	now = now.UTC()
	wakeAt = now.Truncate(s.Interval).Add(s.Offset)
	if !wakeAt.After(now) {
		wakeAt = wakeAt.Add(s.Interval)
	}
	return wakeAt, wakeAt.Sub(now)
}
