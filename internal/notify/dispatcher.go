package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ferux/homewatch/internal/fcontext"
)

// Dispatcher delivers messages in the background. Callers never wait for
// delivery and never see its errors; failed messages are logged and dropped.
type Dispatcher struct {
	sink    Sink
	timeout time.Duration
	logger  zerolog.Logger

	wg sync.WaitGroup
}

func NewDispatcher(sink Sink, timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		sink:    sink,
		timeout: timeout,
		logger:  logger.With().Str("pkg", "notify").Logger(),
	}
}

// Send schedules delivery and returns immediately. Cancelling ctx does not
// cancel delivery.
func (d *Dispatcher) Send(ctx context.Context, title, body string) {
	dctx := fcontext.Detach(ctx)
	logger := d.logger.With().Str("request_id", fcontext.RequestID(ctx)).Str("title", title).Logger()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		sctx, cancel := context.WithTimeout(logger.WithContext(dctx), d.timeout)
		defer cancel()

		if err := d.sink.Send(sctx, title, body); err != nil {
			logger.Error().Err(err).Msg("unable to deliver notification")
			return
		}

		logger.Info().Msg("notification sent")
	}()
}

// Wait blocks until every scheduled message is handled or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
