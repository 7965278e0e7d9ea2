package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
)

// ErrInvalidInterval is returned by Start for a non-positive polling interval.
var ErrInvalidInterval = errors.New("polling interval must be positive")

// CycleRunner runs one polling cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (CycleResult, error)
}

// Scheduler drives CycleRunner periodically. It is either STOPPED or RUNNING;
// at most one timer is armed at a time.
type Scheduler struct {
	runner       CycleRunner
	skipOverlaps bool

	mu       sync.Mutex
	cron     *gocron.Scheduler
	armed    *atomic.Bool // 現在のタイマーの世代。停止時にfalseにする
	draining []chan struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSkipOverlapping skips a tick while the previous cycle is still running.
func WithSkipOverlapping(skip bool) SchedulerOption {
	return func(s *Scheduler) {
		s.skipOverlaps = skip
	}
}

// NewScheduler creates a stopped Scheduler.
func NewScheduler(runner CycleRunner, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{runner: runner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start はタイマーを(再)起動します。既存のタイマーは先に停止され、
// 1回目のサイクルは即座に、それ以降はinterval毎に実行されます。
// 実行中のサイクルの終了は待ちません。
func (s *Scheduler) Start(interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.detachLocked()

	armed := &atomic.Bool{}
	armed.Store(true)

	cron := gocron.NewScheduler(time.UTC)
	cron.Every(interval).StartImmediately()
	if s.skipOverlaps {
		cron.SingletonMode()
	}
	if _, err := cron.Do(func() { s.tick(armed) }); err != nil {
		return fmt.Errorf("schedule polling job: %w", err)
	}
	cron.StartAsync()
	s.cron, s.armed = cron, armed

	slog.Info("price polling started", "interval", interval, "skip_overlapping", s.skipOverlaps)
	return nil
}

// Stop halts future ticks and returns at once. A cycle that has already started runs to completion;
// use Wait to block until it has.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.detachLocked() {
		slog.Info("price polling stopped")
	}
}

// Running reports whether a timer is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// Wait blocks until every stopped timer has finished its in-flight cycle, or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	pending := append([]chan struct{}(nil), s.draining...)
	s.mu.Unlock()

	for _, done := range pending {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// detachLocked disarms the current timer and releases it in the background,
// since gocron's Stop waits for running jobs.
func (s *Scheduler) detachLocked() bool {
	if s.cron == nil {
		return false
	}
	cron := s.cron
	s.armed.Store(false)
	s.cron, s.armed = nil, nil

	done := make(chan struct{})
	go func() {
		cron.Stop()
		close(done)
	}()

	kept := s.draining[:0]
	for _, d := range s.draining {
		select {
		case <-d:
		default:
			kept = append(kept, d)
		}
	}
	s.draining = append(kept, done)
	return true
}

// tick runs one cycle. The cycle context is independent of the timer so that
// stopping the scheduler never cancels in-flight work.
func (s *Scheduler) tick(armed *atomic.Bool) {
	if !armed.Load() {
		return
	}
	start := time.Now()
	res, err := s.runner.RunCycle(context.Background())
	if err != nil {
		slog.Error("polling cycle aborted", "error", err)
		return
	}
	slog.Info("polling cycle finished",
		"total", res.Total,
		"updated", res.Updated,
		"failed", res.Failed,
		"alerts", res.Alerts,
		"elapsed", time.Since(start),
	)
}
