package stitcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/altomedia/stitcher/internal/metrics"
)

func TestTickSkipsWhileCycleInFlight(t *testing.T) {
	var runs atomic.Int32
	release := make(chan struct{})

	s := NewScheduler(time.Second, func(context.Context) error {
		runs.Add(1)
		<-release
		return nil
	}, metrics.New(), testLogger())

	done := make(chan struct{})
	go func() {
		s.tick(context.Background())
		close(done)
	}()

	// Wait for the first cycle to be in flight, then collide with it.
	for runs.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	s.tick(context.Background())

	if got := runs.Load(); got != 1 {
		t.Errorf("colliding tick ran the cycle, runs = %d", got)
	}

	close(release)
	<-done

	s.tick(context.Background())
	if got := runs.Load(); got != 2 {
		t.Errorf("tick after completion did not run, runs = %d", got)
	}
}

func TestTickSkipsOnNonLeader(t *testing.T) {
	var runs atomic.Int32

	s := NewScheduler(time.Second, func(context.Context) error {
		runs.Add(1)
		return nil
	}, metrics.New(), testLogger())
	s.SetLeaderCheck(func() bool { return false })

	s.tick(context.Background())
	if runs.Load() != 0 {
		t.Error("non-leader tick ran the cycle")
	}

	s.SetLeaderCheck(func() bool { return true })
	s.tick(context.Background())
	if runs.Load() != 1 {
		t.Error("leader tick did not run the cycle")
	}
}

func TestTickSwallowsCycleErrors(t *testing.T) {
	var runs atomic.Int32

	s := NewScheduler(time.Second, func(context.Context) error {
		runs.Add(1)
		return errors.New("cycle exploded")
	}, metrics.New(), testLogger())

	s.tick(context.Background())
	s.tick(context.Background())

	if got := runs.Load(); got != 2 {
		t.Errorf("failing cycle stopped the scheduler, runs = %d", got)
	}
}

func TestTickRecoversFromPanic(t *testing.T) {
	s := NewScheduler(time.Second, func(context.Context) error {
		panic("unreachable slot")
	}, metrics.New(), testLogger())

	// Must not crash the test binary.
	s.tick(context.Background())
	s.tick(context.Background())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	var runs atomic.Int32

	s := NewScheduler(5*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}, metrics.New(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// The first cycle fires immediately, before the first tick.
	for runs.Load() < 2 {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
