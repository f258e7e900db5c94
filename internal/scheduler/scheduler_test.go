package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/ferux/homewatch/internal/fcontext"
	"github.com/ferux/homewatch/internal/presence"
)

type blockingReconciler struct {
	release chan struct{}
	calls   atomic.Int32
	active  atomic.Int32
	overlap atomic.Bool

	mu      sync.Mutex
	passIDs []string
	err     error
}

func (r *blockingReconciler) Reconcile(ctx context.Context) (presence.Report, error) {
	r.calls.Add(1)
	if r.active.Add(1) > 1 {
		r.overlap.Store(true)
	}
	defer r.active.Add(-1)

	r.mu.Lock()
	r.passIDs = append(r.passIDs, fcontext.RequestID(ctx))
	err := r.err
	r.mu.Unlock()

	select {
	case <-r.release:
	case <-ctx.Done():
	}

	return presence.Report{Checked: 1}, err
}

type capturedErrors struct {
	mu   sync.Mutex
	errs []error
}

func (c *capturedErrors) CaptureException(err error, _ *sentry.EventHint, _ sentry.EventModifier) *sentry.EventID {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errs = append(c.errs, err)

	return nil
}

func (c *capturedErrors) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.errs)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition was not met in time")
		}

		time.Sleep(5 * time.Millisecond)
	}
}

func TestTriggerWhileRunningIsDropped(t *testing.T) {
	is := is.New(t)
	r := &blockingReconciler{release: make(chan struct{})}
	s := New(r, time.Hour, zerolog.Nop(), nil)

	is.True(s.Trigger(context.Background()))
	waitFor(t, s.Running)

	is.True(!s.Trigger(context.Background()))
	is.True(!s.Trigger(context.Background()))

	close(r.release)
	waitFor(t, func() bool { return !s.Running() })

	is.Equal(r.calls.Load(), int32(1))
	is.Equal(s.LastReport().Checked, 1)
}

func TestRunNeverOverlaps(t *testing.T) {
	is := is.New(t)
	r := &blockingReconciler{release: make(chan struct{})}
	s := New(r, 5*time.Millisecond, zerolog.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		s.Run(ctx)
		close(done)
	}()

	waitFor(t, s.Running)
	// several ticks pass while the first pass is blocked.
	time.Sleep(50 * time.Millisecond)
	is.Equal(r.calls.Load(), int32(1))

	close(r.release)
	waitFor(t, func() bool { return r.calls.Load() >= 3 })

	cancel()
	<-done

	is.True(!r.overlap.Load())
	is.True(!s.Running())

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	for _, id := range r.passIDs {
		is.True(len(id) != 0)
		is.True(!seen[id])
		seen[id] = true
	}
}

func TestRunStopsInFlightPass(t *testing.T) {
	is := is.New(t)
	r := &blockingReconciler{release: make(chan struct{})}
	s := New(r, time.Hour, zerolog.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		s.Run(ctx)
		close(done)
	}()

	waitFor(t, s.Running)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return")
	}

	is.True(!s.Running())
	is.True(!s.Trigger(context.Background()))
}

func TestFailedPassIsReported(t *testing.T) {
	is := is.New(t)
	r := &blockingReconciler{release: make(chan struct{}), err: errors.New("listing devices: disk I/O error")}
	close(r.release)

	reporter := &capturedErrors{}
	s := New(r, time.Hour, zerolog.Nop(), reporter)

	is.True(s.Trigger(context.Background()))
	waitFor(t, func() bool { return reporter.count() == 1 })
	waitFor(t, func() bool { return !s.Running() })

	is.Equal(s.LastReport(), presence.Report{})
}
