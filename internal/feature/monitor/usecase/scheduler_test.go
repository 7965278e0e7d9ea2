package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRunner counts cycles and optionally blocks each one until released.
type countingRunner struct {
	cycles  atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32
	hold    chan struct{}
	err     error
}

func (r *countingRunner) RunCycle(ctx context.Context) (CycleResult, error) {
	r.cycles.Add(1)
	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		prev := r.maxSeen.Load()
		if n <= prev || r.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}
	if r.hold != nil {
		<-r.hold
	}
	if ctx.Err() != nil {
		return CycleResult{}, ctx.Err()
	}
	return CycleResult{}, r.err
}

func TestScheduler_StartRunsImmediatelyThenPeriodically(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{}
	s := NewScheduler(runner)
	t.Cleanup(s.Stop)

	require.NoError(t, s.Start(time.Hour))
	assert.True(t, s.Running())
	require.Eventually(t, func() bool { return runner.cycles.Load() == 1 }, time.Second, 5*time.Millisecond,
		"the first cycle runs without waiting for the interval")

	s.Stop()
	runner2 := &countingRunner{}
	s2 := NewScheduler(runner2)
	t.Cleanup(s2.Stop)
	require.NoError(t, s2.Start(20*time.Millisecond))
	require.Eventually(t, func() bool { return runner2.cycles.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_RejectsNonPositiveInterval(t *testing.T) {
	t.Parallel()

	s := NewScheduler(&countingRunner{})
	assert.ErrorIs(t, s.Start(0), ErrInvalidInterval)
	assert.ErrorIs(t, s.Start(-time.Second), ErrInvalidInterval)
	assert.False(t, s.Running())
}

func TestScheduler_StopHaltsTicks(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{}
	s := NewScheduler(runner)

	require.NoError(t, s.Start(20*time.Millisecond))
	require.Eventually(t, func() bool { return runner.cycles.Load() >= 1 }, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.Running())
	stoppedAt := runner.cycles.Load()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, stoppedAt, runner.cycles.Load(), "no cycles after Stop")

	// Stop on a stopped scheduler is a no-op.
	s.Stop()
	assert.False(t, s.Running())
}

func TestScheduler_RestartReplacesTimer(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{}
	s := NewScheduler(runner)
	t.Cleanup(s.Stop)

	require.NoError(t, s.Start(time.Hour))
	require.Eventually(t, func() bool { return runner.cycles.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Start(time.Hour))
	assert.True(t, s.Running())

	require.Eventually(t, func() bool { return runner.cycles.Load() == 2 }, time.Second, 5*time.Millisecond,
		"each Start runs one immediate cycle")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), runner.cycles.Load(), "the replaced timer must not keep ticking")
}

func TestScheduler_SnapshotErrorKeepsTimerArmed(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{err: errors.New("store unavailable")}
	s := NewScheduler(runner)
	t.Cleanup(s.Stop)

	require.NoError(t, s.Start(20*time.Millisecond))
	require.Eventually(t, func() bool { return runner.cycles.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, s.Running())
}

func TestScheduler_OverlapAllowedByDefault(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{hold: make(chan struct{})}
	s := NewScheduler(runner)

	require.NoError(t, s.Start(20*time.Millisecond))
	require.Eventually(t, func() bool { return runner.maxSeen.Load() >= 2 }, 2*time.Second, 5*time.Millisecond,
		"a slow cycle does not hold back the next tick")

	close(runner.hold)
	s.Stop()
}

func TestScheduler_SkipOverlapping(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{hold: make(chan struct{})}
	s := NewScheduler(runner, WithSkipOverlapping(true))

	require.NoError(t, s.Start(20*time.Millisecond))
	require.Eventually(t, func() bool { return runner.cycles.Load() == 1 }, time.Second, 5*time.Millisecond)

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int32(1), runner.maxSeen.Load(), "ticks are skipped while a cycle is running")

	close(runner.hold)
	s.Stop()
}

// returnsWithin fails the test when fn has not returned after d.
func returnsWithin(t *testing.T, d time.Duration, fn func()) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("call still blocked after %v", d)
	}
}

func TestScheduler_StopDoesNotWaitForInFlightCycle(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{hold: make(chan struct{})}
	s := NewScheduler(runner)

	require.NoError(t, s.Start(time.Hour))
	require.Eventually(t, func() bool { return runner.active.Load() == 1 }, time.Second, 5*time.Millisecond)

	returnsWithin(t, 200*time.Millisecond, s.Stop)
	returnsWithin(t, 200*time.Millisecond, func() { assert.False(t, s.Running()) })

	// 実行中のサイクルはキャンセルされず、Waitはその終了まで待つ
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)

	close(runner.hold)
	require.NoError(t, s.Wait(context.Background()))
	assert.Equal(t, int32(0), runner.active.Load())
	assert.Equal(t, int32(1), runner.cycles.Load())
}

func TestScheduler_RestartDoesNotWaitForInFlightCycle(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{hold: make(chan struct{})}
	s := NewScheduler(runner)
	t.Cleanup(s.Stop)

	require.NoError(t, s.Start(time.Hour))
	require.Eventually(t, func() bool { return runner.active.Load() == 1 }, time.Second, 5*time.Millisecond)

	returnsWithin(t, 200*time.Millisecond, func() { assert.NoError(t, s.Start(time.Hour)) })
	assert.True(t, s.Running())
	require.Eventually(t, func() bool { return runner.cycles.Load() == 2 }, time.Second, 5*time.Millisecond,
		"the new timer runs its immediate cycle while the old one is still in flight")

	close(runner.hold)
	require.Eventually(t, func() bool { return runner.active.Load() == 0 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_WaitWithoutStopReturnsImmediately(t *testing.T) {
	t.Parallel()

	s := NewScheduler(&countingRunner{})
	assert.NoError(t, s.Wait(context.Background()))
}
