// Package scheduler runs reconciliation passes periodically and on demand,
// never more than one at a time.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pborman/uuid"
	"github.com/rs/zerolog"

	"github.com/ferux/homewatch/internal/fcontext"
	"github.com/ferux/homewatch/internal/presence"
)

type Reconciler interface {
	Reconcile(ctx context.Context) (presence.Report, error)
}

// ErrorReporter is satisfied by *sentry.Client.
type ErrorReporter interface {
	CaptureException(exception error, hint *sentry.EventHint, scope sentry.EventModifier) *sentry.EventID
}

// Scheduler owns the single-flight guard of reconciliation passes.
type Scheduler struct {
	reconciler Reconciler
	interval   time.Duration
	logger     zerolog.Logger
	reporter   ErrorReporter

	running atomic.Bool
	wg      sync.WaitGroup

	mu   sync.Mutex
	base context.Context
	last presence.Report
}

// New creates scheduler. reporter may be nil.
func New(r Reconciler, interval time.Duration, logger zerolog.Logger, reporter ErrorReporter) *Scheduler {
	return &Scheduler{
		reconciler: r,
		interval:   interval,
		logger:     logger.With().Str("component", "scheduler").Logger(),
		reporter:   reporter,
	}
}

// Run does a pass right away and then one per interval until ctx is done.
// It returns after the last started pass has finished.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Str("interval", s.interval.String()).Msg("started")
	s.start(ctx, "schedule")

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.logger.Info().Msg("stopped")

			return
		case <-ticker.C:
			s.start(ctx, "schedule")
		}
	}
}

// Trigger starts a pass in the background. It reports false when a pass is
// already running.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	s.mu.Lock()
	base := s.base
	s.mu.Unlock()

	if base == nil {
		base = fcontext.Detach(ctx)
	}

	return s.start(base, "manual")
}

// Running reports whether a pass is in progress.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// LastReport returns the summary of the latest finished pass.
func (s *Scheduler) LastReport() presence.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.last
}

func (s *Scheduler) start(ctx context.Context, reason string) bool {
	if ctx.Err() != nil {
		return false
	}

	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn().Str("reason", reason).Msg("pass is still running, skipping")
		return false
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		s.pass(ctx, reason)
	}()

	return true
}

func (s *Scheduler) pass(ctx context.Context, reason string) {
	passID := uuid.New()
	ctx = fcontext.WithRequestID(ctx, passID)
	ctx = fcontext.WithLogger(ctx, s.logger.With().Str("pass_id", passID).Logger())
	logger := zerolog.Ctx(ctx)

	logger.Debug().Str("reason", reason).Msg("pass started")

	report, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("pass failed")

		if s.reporter != nil {
			s.reporter.CaptureException(err, &sentry.EventHint{OriginalException: err}, sentry.NewScope())
		}

		return
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	logger.Info().
		Int("checked", report.Checked).
		Int("changed", report.Changed).
		Int("moved", report.Moved).
		Int("failed", report.Failed).
		Str("took", report.Took.String()).
		Msg("pass finished")
}
