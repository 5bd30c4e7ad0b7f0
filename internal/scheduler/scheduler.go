// Package scheduler drives the trading loop on a fixed interval. Ticks
// never overlap: if one is still running when the next fires, the new tick
// is skipped and logged rather than queued.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"mako/internal/logger"
)

type IntervalScheduler struct {
	Name           string
	Interval       time.Duration
	RunImmediately bool

	ctx     context.Context
	nowFn   func() time.Time
	running atomic.Bool
	wg      sync.WaitGroup
	skipped atomic.Int64
}

func NewIntervalScheduler(ctx context.Context, name string, interval time.Duration) *IntervalScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &IntervalScheduler{
		Name:     name,
		Interval: interval,
		ctx:      ctx,
		nowFn:    time.Now,
	}
}

// Skipped reports how many ticks were dropped because the previous one was
// still in flight.
func (s *IntervalScheduler) Skipped() int64 { return s.skipped.Load() }

// Start blocks until the context is cancelled, invoking task every
// Interval. A cancelled context lets an in-flight tick finish before Start
// returns.
func (s *IntervalScheduler) Start(task func(context.Context)) {
	if s == nil {
		return
	}
	if task == nil {
		logger.Warnf("scheduler[%s]: task is nil, exit", s.Name)
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("scheduler[%s]: invalid interval=%s, exit", s.Name, s.Interval)
		return
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}

	logger.Infof("scheduler[%s]: started interval=%s run_immediately=%v",
		s.Name, s.Interval, s.RunImmediately)

	if s.RunImmediately {
		s.fire(task)
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			logger.Infof("scheduler[%s]: ctx done, waiting for in-flight tick", s.Name)
			s.wg.Wait()
			return
		case <-ticker.C:
			s.fire(task)
		}
	}
}

// fire starts one tick unless the previous one is still going.
func (s *IntervalScheduler) fire(task func(context.Context)) {
	if !s.running.CompareAndSwap(false, true) {
		n := s.skipped.Add(1)
		logger.Warnf("scheduler[%s]: previous tick still running, skipping (total skipped=%d)", s.Name, n)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		start := s.nowFn()
		task(s.ctx)
		logger.Debugf("scheduler[%s]: tick finished in %s", s.Name, s.nowFn().Sub(start).Truncate(time.Millisecond))
	}()
}
